package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store guarded by a single
// read-write mutex. It backs the tests and serves as a fallback when no
// database is configured. All methods return copies, callers never share
// slices with the store.
type MemoryStore struct {
	mutex         sync.RWMutex
	boundaries    []Boundary
	cells         map[uuid.UUID]map[string]Cell
	samples       []Sample
	drones        map[string]Drone
	missions      []Mission
	nextSampleID  int64
	nextMissionID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cells:  map[uuid.UUID]map[string]Cell{},
		drones: map[string]Drone{},
	}
}

func (s *MemoryStore) StoreBoundary(boundary *Boundary) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if boundary.ID == uuid.Nil {
		boundary.ID = uuid.New()
	}
	if boundary.CreatedAt.IsZero() {
		boundary.CreatedAt = time.Now()
	}

	// The most recently stored version is the active one.
	s.boundaries = append(s.boundaries, *boundary)
	return nil
}

func (s *MemoryStore) ActiveBoundary() (*Boundary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.boundaries) == 0 {
		return nil, ErrNoActiveBoundary
	}

	boundary := s.boundaries[len(s.boundaries)-1]
	return &boundary, nil
}

func (s *MemoryStore) ReplaceCells(boundaryID uuid.UUID, cells []Cell) error {
	cellsByID := make(map[string]Cell, len(cells))
	for _, cell := range cells {
		cell.BoundaryID = boundaryID
		cellsByID[cell.TileID] = cell
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Swapping the whole map is the snapshot semantic: a reader holding the
	// previous cell set keeps a consistent grid.
	s.cells[boundaryID] = cellsByID
	return nil
}

func (s *MemoryStore) CellsForBoundary(boundaryID uuid.UUID) ([]Cell, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var cells []Cell
	for _, cell := range s.cells[boundaryID] {
		cells = append(cells, cell)
	}

	sort.Slice(cells, func(i, j int) bool {
		return cells[i].TileID < cells[j].TileID
	})

	return cells, nil
}

func (s *MemoryStore) CellByID(boundaryID uuid.UUID, tileID string) (*Cell, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cell, ok := s.cells[boundaryID][tileID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cell, nil
}

func (s *MemoryStore) StoreSample(sample *Sample) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextSampleID++
	sample.ID = s.nextSampleID
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}

	s.samples = append(s.samples, *sample)
	return sample.ID, nil
}

func (s *MemoryStore) LatestSamples(zoneID string, limit int) ([]Sample, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var samples []Sample
	for i := len(s.samples) - 1; i >= 0 && len(samples) < limit; i-- {
		if zoneID != "" && s.samples[i].ZoneID != zoneID {
			continue
		}
		samples = append(samples, s.samples[i])
	}

	return samples, nil
}

func (s *MemoryStore) UpsertDrone(drone *Drone) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if drone.UpdatedAt.IsZero() {
		drone.UpdatedAt = time.Now()
	}

	s.drones[drone.ID] = *drone
	return nil
}

func (s *MemoryStore) Drones() ([]Drone, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var drones []Drone
	for _, drone := range s.drones {
		drones = append(drones, drone)
	}

	sort.Slice(drones, func(i, j int) bool {
		return drones[i].ID < drones[j].ID
	})

	return drones, nil
}

func (s *MemoryStore) StoreMission(mission *Mission) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextMissionID++
	mission.ID = s.nextMissionID
	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = time.Now()
	}

	s.missions = append(s.missions, *mission)
	return mission.ID, nil
}
