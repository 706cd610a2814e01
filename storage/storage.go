package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a requested record does not exist. Lookup
	// misses are normal outcomes and must stay distinguishable from storage
	// failures, so this sentinel is never wrapped into a generic error.
	ErrNotFound = errors.New("record not found")

	// ErrNoActiveBoundary is returned when an operation needs a boundary but
	// none has been stored yet.
	ErrNoActiveBoundary = errors.New("no active boundary")
)

// Boundary is one uploaded version of the monitored water body's outline,
// always normalized to multi-polygon form. Every upload creates a new
// version and exactly one version is active at a time. Grid generation and
// point location always run against the active version, which lets readers
// work on a consistent snapshot while a new grid is being written.
type Boundary struct {
	ID        uuid.UUID
	Name      string
	Geometry  orb.MultiPolygon
	CreatedAt time.Time
}

// Cell is one persisted grid tile, keyed by the boundary version it was
// generated for plus its human-readable zone identifier.
type Cell struct {
	BoundaryID uuid.UUID
	TileID     string
	Polygon    orb.Polygon
	Centroid   orb.Point
}

// SampleMetrics holds the measured water-quality values of one observation.
// All values are optional, sensors rarely report the full set.
type SampleMetrics struct {
	TempC    *float64
	PH       *float64
	ECUsCm   *float64
	DOMgL    *float64
	TOCMgL   *float64
	CODMgL   *float64
	TNMgL    *float64
	TPMgL    *float64
	SSMgL    *float64
	ClMgL    *float64
	ChlAMgM3 *float64
	CdMgL    *float64
	BODMgL   *float64
}

// Sample is one water-quality observation together with the optional
// assessment attached to it. It references its zone by identifier string
// only. The reference is weak: regenerating the grid may leave it dangling
// and consumers must tolerate that.
type Sample struct {
	ID               int64
	ZoneID           string
	DeviceID         string
	Metrics          SampleMetrics
	CurrWQState      string
	TargetWQState    string
	Reason           string
	ReferenceSources []string
	CreatedAt        time.Time
}

// Drone is the last known state of one drone. ZoneID is a weak reference to
// the grid cell the drone was last located in.
type Drone struct {
	ID        string
	Status    string
	Battery   float64
	ZoneID    string
	Lat       float64
	Lon       float64
	Heading   float64
	VideoURL  string
	UpdatedAt time.Time
}

// Mission is one mission request issued for a zone.
type Mission struct {
	ID            int64
	MissionID     int
	LinkMissionID int
	ZoneID        string
	Lat           float64
	Lon           float64
	CurrWQState   string
	TargetWQState string
	Text          string
	CreatedAt     time.Time
}

// BoundaryStore persists boundary versions. Storing a boundary atomically
// makes it the new active version; older versions stay in storage but are
// not used for generation anymore.
type BoundaryStore interface {
	StoreBoundary(boundary *Boundary) error
	ActiveBoundary() (*Boundary, error)
}

// CellStore persists generated grid cells per boundary version.
// ReplaceCells swaps the whole cell set of one boundary version in a single
// transaction: readers never observe a partially regenerated grid and
// re-running a generation with identical input is idempotent.
type CellStore interface {
	ReplaceCells(boundaryID uuid.UUID, cells []Cell) error
	CellsForBoundary(boundaryID uuid.UUID) ([]Cell, error)
	CellByID(boundaryID uuid.UUID, tileID string) (*Cell, error)
}

type SampleStore interface {
	StoreSample(sample *Sample) (int64, error)
	LatestSamples(zoneID string, limit int) ([]Sample, error)
}

type DroneStore interface {
	UpsertDrone(drone *Drone) error
	Drones() ([]Drone, error)
}

type MissionStore interface {
	StoreMission(mission *Mission) (int64, error)
}

// Store bundles all collaborator contracts the backend needs.
type Store interface {
	BoundaryStore
	CellStore
	SampleStore
	DroneStore
	MissionStore
}
