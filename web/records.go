package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"

	"lakegrid/storage"
)

const defaultSampleLimit = 20

type sampleMetricsDto struct {
	TempC    *float64 `json:"temp_c,omitempty"`
	PH       *float64 `json:"ph,omitempty"`
	ECUsCm   *float64 `json:"ec_us_cm,omitempty"`
	DOMgL    *float64 `json:"do_mg_l,omitempty"`
	TOCMgL   *float64 `json:"toc_mg_l,omitempty"`
	CODMgL   *float64 `json:"cod_mg_l,omitempty"`
	TNMgL    *float64 `json:"t_n_mg_l,omitempty"`
	TPMgL    *float64 `json:"t_p_mg_l,omitempty"`
	SSMgL    *float64 `json:"ss_mg_l,omitempty"`
	ClMgL    *float64 `json:"cl_mg_l,omitempty"`
	ChlAMgM3 *float64 `json:"chl_a_mg_m3,omitempty"`
	CdMgL    *float64 `json:"cd_mg_l,omitempty"`
	BODMgL   *float64 `json:"bod_mg_l,omitempty"`
}

type assessmentDto struct {
	CurrWQState      string   `json:"curr_wq_state,omitempty"`
	TargetWQState    string   `json:"target_wq_state,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	ReferenceSources []string `json:"reference_sources,omitempty"`
}

type sampleRequest struct {
	ZoneID   string           `json:"zone_id"`
	DeviceID string           `json:"device_id"`
	Data     sampleMetricsDto `json:"w_data"`
	LLM      *assessmentDto   `json:"llm"`
}

type sampleDto struct {
	ID       int64  `json:"idx"`
	ZoneID   string `json:"zone_id"`
	DeviceID string `json:"device_id"`
	sampleMetricsDto
	assessmentDto
	CreatedAt time.Time `json:"ts"`
}

func toMetrics(dto sampleMetricsDto) storage.SampleMetrics {
	return storage.SampleMetrics{
		TempC:    dto.TempC,
		PH:       dto.PH,
		ECUsCm:   dto.ECUsCm,
		DOMgL:    dto.DOMgL,
		TOCMgL:   dto.TOCMgL,
		CODMgL:   dto.CODMgL,
		TNMgL:    dto.TNMgL,
		TPMgL:    dto.TPMgL,
		SSMgL:    dto.SSMgL,
		ClMgL:    dto.ClMgL,
		ChlAMgM3: dto.ChlAMgM3,
		CdMgL:    dto.CdMgL,
		BODMgL:   dto.BODMgL,
	}
}

func toMetricsDto(metrics storage.SampleMetrics) sampleMetricsDto {
	return sampleMetricsDto{
		TempC:    metrics.TempC,
		PH:       metrics.PH,
		ECUsCm:   metrics.ECUsCm,
		DOMgL:    metrics.DOMgL,
		TOCMgL:   metrics.TOCMgL,
		CODMgL:   metrics.CODMgL,
		TNMgL:    metrics.TNMgL,
		TPMgL:    metrics.TPMgL,
		SSMgL:    metrics.SSMgL,
		ClMgL:    metrics.ClMgL,
		ChlAMgM3: metrics.ChlAMgM3,
		CdMgL:    metrics.CdMgL,
		BODMgL:   metrics.BODMgL,
	}
}

func (s *Server) ingestSample(writer http.ResponseWriter, request *http.Request) {
	var body sampleRequest
	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Invalid sample body.", err)
		return
	}
	if body.ZoneID == "" {
		writeError(writer, http.StatusBadRequest, "Missing zone_id.", nil)
		return
	}

	sample := &storage.Sample{
		ZoneID:   body.ZoneID,
		DeviceID: body.DeviceID,
		Metrics:  toMetrics(body.Data),
	}
	if body.LLM != nil {
		sample.CurrWQState = body.LLM.CurrWQState
		sample.TargetWQState = body.LLM.TargetWQState
		sample.Reason = body.LLM.Reason
		sample.ReferenceSources = body.LLM.ReferenceSources
	}

	id, err := s.store.StoreSample(sample)
	if err != nil {
		sigolo.Errorf("Error storing sample: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error storing sample.", nil)
		return
	}

	writeJson(writer, http.StatusOK, map[string]any{"ok": true, "idx": id})
}

func (s *Server) latestSamples(writer http.ResponseWriter, request *http.Request) {
	zoneID := request.URL.Query().Get("zone_id")

	limit := defaultSampleLimit
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(writer, http.StatusBadRequest, "Invalid limit parameter.", err)
			return
		}
		limit = parsed
	}

	samples, err := s.store.LatestSamples(zoneID, limit)
	if err != nil {
		sigolo.Errorf("Error loading samples: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error loading samples.", nil)
		return
	}

	items := make([]sampleDto, 0, len(samples))
	for _, sample := range samples {
		items = append(items, sampleDto{
			ID:               sample.ID,
			ZoneID:           sample.ZoneID,
			DeviceID:         sample.DeviceID,
			sampleMetricsDto: toMetricsDto(sample.Metrics),
			assessmentDto: assessmentDto{
				CurrWQState:      sample.CurrWQState,
				TargetWQState:    sample.TargetWQState,
				Reason:           sample.Reason,
				ReferenceSources: sample.ReferenceSources,
			},
			CreatedAt: sample.CreatedAt,
		})
	}

	writeJson(writer, http.StatusOK, map[string]any{"ok": true, "items": items})
}

type droneDto struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Battery  float64 `json:"battery"`
	TileID   string  `json:"tile_id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Heading  float64 `json:"heading"`
	VideoURL string  `json:"video_url"`
}

func (s *Server) getDrones(writer http.ResponseWriter, request *http.Request) {
	drones, err := s.store.Drones()
	if err != nil {
		sigolo.Errorf("Error loading drones: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error loading drones.", nil)
		return
	}

	dronesByID := map[string]droneDto{}
	for _, drone := range drones {
		dronesByID[drone.ID] = droneDto{
			ID:       drone.ID,
			Status:   drone.Status,
			Battery:  drone.Battery,
			TileID:   drone.ZoneID,
			Lat:      drone.Lat,
			Lon:      drone.Lon,
			Heading:  drone.Heading,
			VideoURL: drone.VideoURL,
		}
	}

	writeJson(writer, http.StatusOK, map[string]any{"ok": true, "drones": dronesByID})
}

func (s *Server) upsertDrone(writer http.ResponseWriter, request *http.Request) {
	var body droneDto
	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Invalid drone body.", err)
		return
	}
	if body.ID == "" {
		writeError(writer, http.StatusBadRequest, "Missing drone id.", nil)
		return
	}
	if body.Status == "" {
		body.Status = "IDLE"
	}

	// The zone is resolved on the server side, clients only send raw GPS.
	zoneID, _ := s.LocateZone(orb.Point{body.Lon, body.Lat})

	err = s.store.UpsertDrone(&storage.Drone{
		ID:       body.ID,
		Status:   body.Status,
		Battery:  body.Battery,
		ZoneID:   zoneID,
		Lat:      body.Lat,
		Lon:      body.Lon,
		Heading:  body.Heading,
		VideoURL: body.VideoURL,
	})
	if err != nil {
		sigolo.Errorf("Error storing drone %s: %+v", body.ID, err)
		writeError(writer, http.StatusInternalServerError, "Error storing drone.", nil)
		return
	}

	writeJson(writer, http.StatusOK, map[string]any{"ok": true})
}

type missionRequest struct {
	MissionID     int     `json:"mission_id"`
	LinkMissionID int     `json:"link_mission_id"`
	ZoneID        string  `json:"zone_id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	CurrWQState   string  `json:"curr_wq_state"`
	TargetWQState string  `json:"target_wq_state"`
	Text          string  `json:"text"`
}

func (s *Server) missionChat(writer http.ResponseWriter, request *http.Request) {
	var body missionRequest
	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Invalid mission body.", err)
		return
	}

	_, err = s.store.StoreMission(&storage.Mission{
		MissionID:     body.MissionID,
		LinkMissionID: body.LinkMissionID,
		ZoneID:        body.ZoneID,
		Lat:           body.Lat,
		Lon:           body.Lon,
		CurrWQState:   body.CurrWQState,
		TargetWQState: body.TargetWQState,
		Text:          body.Text,
	})
	if err != nil {
		sigolo.Errorf("Error storing mission: %+v", err)
		writeError(writer, http.StatusInternalServerError, "Error storing mission.", nil)
		return
	}

	response := fmt.Sprintf("Mission for zone %s accepted.", body.ZoneID)
	if body.TargetWQState != "" {
		response = fmt.Sprintf("Mission for zone %s accepted, target water quality state is '%s'.", body.ZoneID, body.TargetWQState)
	}

	writeJson(writer, http.StatusOK, map[string]any{
		"RES":             true,
		"mission_id":      body.MissionID,
		"link_mission_id": body.LinkMissionID,
		"zone_id":         body.ZoneID,
		"lat":             body.Lat,
		"lon":             body.Lon,
		"curr_wq_state":   body.CurrWQState,
		"target_wq_state": body.TargetWQState,
		"response":        response,
	})
}
