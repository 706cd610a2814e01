package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lakegrid/grid"
	"lakegrid/storage"
)

const DefaultTileSize = 50.0

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Server wires the grid engine and the store into the HTTP surface. It
// caches the point locator per boundary version: regeneration invalidates
// the cache, so queries always run against a consistent grid snapshot.
type Server struct {
	store storage.Store

	locatorMutex      sync.Mutex
	locator           *grid.Locator
	locatorBoundaryID uuid.UUID
}

func NewServer(store storage.Store) *Server {
	return &Server{store: store}
}

func StartServer(port string, server *Server) {
	router := server.Router()
	sigolo.Infof("Start server on port %s", port)
	err := http.ListenAndServe(":"+port, router)
	sigolo.FatalCheck(err)
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/boundary/geojson", s.uploadBoundary).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/tiles/generate", s.generateTiles).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/tiles", s.getTiles).Methods(http.MethodGet)
	r.HandleFunc("/api/tiles/centroid", s.getTileCentroid).Methods(http.MethodGet)
	r.HandleFunc("/api/tiles/locate", s.locateTile).Methods(http.MethodGet)
	r.HandleFunc("/api/wq/ingest", s.ingestSample).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/samples/latest", s.latestSamples).Methods(http.MethodGet)
	r.HandleFunc("/api/drones", s.getDrones).Methods(http.MethodGet)
	r.HandleFunc("/api/drones", s.upsertDrone).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/missions/chat", s.missionChat).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")
		writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if request.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(writer, request)
	})
}

func writeJson(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	err := json.NewEncoder(writer).Encode(payload)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func writeError(writer http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	writeJson(writer, status, response)
}

func (s *Server) health(writer http.ResponseWriter, request *http.Request) {
	writeJson(writer, http.StatusOK, map[string]any{"ok": true, "msg": "lakegrid backend"})
}

func (s *Server) uploadBoundary(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		sigolo.Errorf("Error reading HTTP body of boundary upload: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error reading HTTP body.", nil)
		return
	}

	boundary, err := parseBoundaryGeoJson(body)
	if err != nil {
		sigolo.Errorf("Error parsing boundary upload: %+v", err)
		writeError(writer, http.StatusBadRequest, "Invalid boundary geometry.", err)
		return
	}

	name := request.URL.Query().Get("name")
	if name == "" {
		name = "lake"
	}

	entity := &storage.Boundary{
		ID:       uuid.New(),
		Name:     name,
		Geometry: boundary,
	}
	err = s.store.StoreBoundary(entity)
	if err != nil {
		sigolo.Errorf("Error storing boundary: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error storing boundary.", nil)
		return
	}

	sigolo.Infof("Stored boundary '%s' (%s) with %d polygon(s)", name, entity.ID, len(boundary))

	bound := boundary.Bound()
	writeJson(writer, http.StatusOK, map[string]any{
		"ok":     true,
		"id":     entity.ID,
		"stored": "MultiPolygon",
		"bounds": []float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()},
	})
}

func (s *Server) generateTiles(writer http.ResponseWriter, request *http.Request) {
	tileSize := DefaultTileSize
	if raw := request.URL.Query().Get("tile_m"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(writer, http.StatusBadRequest, "Invalid tile_m parameter.", err)
			return
		}
		tileSize = parsed
	}

	boundary, err := s.store.ActiveBoundary()
	if errors.Is(err, storage.ErrNoActiveBoundary) {
		writeError(writer, http.StatusBadRequest, "Boundary not set. Upload a boundary first.", nil)
		return
	}
	if err != nil {
		sigolo.Errorf("Error loading active boundary: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error loading active boundary.", nil)
		return
	}

	generationStartTime := time.Now()
	cells, err := grid.Generate(boundary.Geometry, tileSize)
	if errors.Is(err, grid.ErrInvalidTileSize) {
		writeError(writer, http.StatusBadRequest, "Invalid tile_m parameter.", err)
		return
	}
	if err != nil {
		sigolo.Errorf("Error generating tiles: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error generating tiles.", nil)
		return
	}

	err = s.store.ReplaceCells(boundary.ID, storage.CellsFromGrid(boundary.ID, cells))
	if err != nil {
		sigolo.Errorf("Error storing tiles: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error storing tiles.", nil)
		return
	}

	s.invalidateLocator()
	metrics.ObserveGeneration(len(cells), time.Since(generationStartTime))

	sigolo.Infof("Generated %d tiles of %.1fm for boundary %s", len(cells), tileSize, boundary.ID)

	writeJson(writer, http.StatusOK, map[string]any{"ok": true, "count": len(cells)})
}

func (s *Server) getTiles(writer http.ResponseWriter, request *http.Request) {
	collection := geojson.NewFeatureCollection()

	boundary, err := s.store.ActiveBoundary()
	if err != nil && !errors.Is(err, storage.ErrNoActiveBoundary) {
		sigolo.Errorf("Error loading active boundary: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error loading tiles.", nil)
		return
	}

	if boundary != nil {
		cells, err := s.store.CellsForBoundary(boundary.ID)
		if err != nil {
			sigolo.Errorf("Error loading tiles: %+v", err)
			writeError(writer, http.StatusInternalServerError, "Error loading tiles.", nil)
			return
		}

		for _, cell := range cells {
			feature := geojson.NewFeature(cell.Polygon)
			feature.Properties["zone_id"] = cell.TileID
			collection.Features = append(collection.Features, feature)
		}
	}

	writeJson(writer, http.StatusOK, collection)
}

func (s *Server) getTileCentroid(writer http.ResponseWriter, request *http.Request) {
	tileID := request.URL.Query().Get("tile_id")
	if tileID == "" {
		writeError(writer, http.StatusBadRequest, "Missing tile_id parameter.", nil)
		return
	}

	boundary, err := s.store.ActiveBoundary()
	if errors.Is(err, storage.ErrNoActiveBoundary) {
		writeError(writer, http.StatusNotFound, "Tile not found.", nil)
		return
	}
	if err != nil {
		sigolo.Errorf("Error loading active boundary: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error loading tile.", nil)
		return
	}

	cell, err := s.store.CellByID(boundary.ID, tileID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(writer, http.StatusNotFound, "Tile not found.", nil)
		return
	}
	if err != nil {
		sigolo.Errorf("Error loading tile %s: %+v", tileID, err)
		writeError(writer, http.StatusInternalServerError, "Error loading tile.", nil)
		return
	}

	writeJson(writer, http.StatusOK, map[string]any{
		"zone_id": cell.TileID,
		"lat":     cell.Centroid.Lat(),
		"lon":     cell.Centroid.Lon(),
	})
}

func (s *Server) locateTile(writer http.ResponseWriter, request *http.Request) {
	lat, err := strconv.ParseFloat(request.URL.Query().Get("lat"), 64)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Invalid lat parameter.", err)
		return
	}
	lon, err := strconv.ParseFloat(request.URL.Query().Get("lon"), 64)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Invalid lon parameter.", err)
		return
	}

	locator, err := s.cellLocator()
	if errors.Is(err, storage.ErrNoActiveBoundary) {
		metrics.IncrementLocateMisses()
		writeError(writer, http.StatusNotFound, "No tile found for this coordinate.", nil)
		return
	}
	if err != nil {
		sigolo.Errorf("Error building locator: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error locating tile.", nil)
		return
	}

	tileID, found := locator.Locate(orb.Point{lon, lat})
	if !found {
		metrics.IncrementLocateMisses()
		writeError(writer, http.StatusNotFound, "No tile found for this coordinate.", nil)
		return
	}

	metrics.IncrementLocateHits()
	writeJson(writer, http.StatusOK, map[string]any{
		"lat":     lat,
		"lon":     lon,
		"tile_id": tileID,
	})
}

// cellLocator returns the locator for the active boundary's cell set,
// rebuilding it only when the active boundary changed or the grid has been
// regenerated.
func (s *Server) cellLocator() (*grid.Locator, error) {
	boundary, err := s.store.ActiveBoundary()
	if err != nil {
		return nil, err
	}

	s.locatorMutex.Lock()
	defer s.locatorMutex.Unlock()

	if s.locator != nil && s.locatorBoundaryID == boundary.ID {
		return s.locator, nil
	}

	cells, err := s.store.CellsForBoundary(boundary.ID)
	if err != nil {
		return nil, err
	}

	s.locator = grid.NewLocator(storage.GridCells(cells))
	s.locatorBoundaryID = boundary.ID

	return s.locator, nil
}

func (s *Server) invalidateLocator() {
	s.locatorMutex.Lock()
	defer s.locatorMutex.Unlock()
	s.locator = nil
	s.locatorBoundaryID = uuid.Nil
}

// LocateZone resolves a coordinate to the zone identifier of the containing
// cell of the active grid. Used by the MQTT telemetry consumer; a missing
// grid is reported as a plain miss there.
func (s *Server) LocateZone(point orb.Point) (string, bool) {
	locator, err := s.cellLocator()
	if err != nil {
		if !errors.Is(err, storage.ErrNoActiveBoundary) {
			sigolo.Errorf("Error building locator: %+v", err)
		}
		return "", false
	}
	return locator.Locate(point)
}
