package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore implements Store on a relational database via gorm. Geometry
// columns hold GeoJSON text, which keeps the schema free of any spatial
// extension. Row types (DAOs) are separate from the domain types.
type PostgresStore struct {
	db *gorm.DB
}

type boundaryDao struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string
	Geometry  string `gorm:"type:text"`
	Active    bool   `gorm:"index"`
	CreatedAt time.Time
}

func (boundaryDao) TableName() string { return "boundaries" }

type cellDao struct {
	BoundaryID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	TileID      string    `gorm:"primaryKey"`
	Polygon     string    `gorm:"type:text"`
	CentroidLon float64
	CentroidLat float64
}

func (cellDao) TableName() string { return "cells" }

type sampleDao struct {
	ID               int64  `gorm:"primaryKey"`
	ZoneID           string `gorm:"index"`
	DeviceID         string
	TempC            *float64
	PH               *float64
	ECUsCm           *float64
	DOMgL            *float64
	TOCMgL           *float64
	CODMgL           *float64
	TNMgL            *float64
	TPMgL            *float64
	SSMgL            *float64
	ClMgL            *float64
	ChlAMgM3         *float64
	CdMgL            *float64
	BODMgL           *float64
	CurrWQState      string
	TargetWQState    string
	Reason           string
	ReferenceSources string `gorm:"type:text"`
	CreatedAt        time.Time
}

func (sampleDao) TableName() string { return "samples" }

type droneDao struct {
	ID        string `gorm:"primaryKey"`
	Status    string
	Battery   float64
	ZoneID    string
	Lat       float64
	Lon       float64
	Heading   float64
	VideoURL  string
	UpdatedAt time.Time
}

func (droneDao) TableName() string { return "drones" }

type missionDao struct {
	ID            int64 `gorm:"primaryKey"`
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

func (missionDao) TableName() string { return "missions" }

// NewPostgresStore connects to the database behind the given DSN and
// migrates the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	err = db.AutoMigrate(&boundaryDao{}, &cellDao{}, &sampleDao{}, &droneDao{}, &missionDao{})
	if err != nil {
		return nil, errors.Wrap(err, "unable to migrate database schema")
	}

	sigolo.Info("Connected to database and migrated schema")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) StoreBoundary(boundary *Boundary) error {
	if boundary.ID == uuid.Nil {
		boundary.ID = uuid.New()
	}
	if boundary.CreatedAt.IsZero() {
		boundary.CreatedAt = time.Now()
	}

	geometry, err := marshalGeometry(boundary.Geometry)
	if err != nil {
		return err
	}

	dao := boundaryDao{
		ID:        boundary.ID,
		Name:      boundary.Name,
		Geometry:  geometry,
		Active:    true,
		CreatedAt: boundary.CreatedAt,
	}

	// Activating the new version and deactivating the old one must be one
	// atomic step, otherwise a reader could see no active boundary at all.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&boundaryDao{}).Where("active").Update("active", false).Error
		if err != nil {
			return err
		}
		return tx.Create(&dao).Error
	})

	return errors.Wrap(err, "unable to store boundary")
}

func (s *PostgresStore) ActiveBoundary() (*Boundary, error) {
	var dao boundaryDao
	err := s.db.Where("active").Order("created_at DESC").First(&dao).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveBoundary
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to load active boundary")
	}

	geometry, err := unmarshalMultiPolygon(dao.Geometry)
	if err != nil {
		return nil, err
	}

	return &Boundary{
		ID:        dao.ID,
		Name:      dao.Name,
		Geometry:  geometry,
		CreatedAt: dao.CreatedAt,
	}, nil
}

func (s *PostgresStore) ReplaceCells(boundaryID uuid.UUID, cells []Cell) error {
	daos := make([]cellDao, 0, len(cells))
	for _, cell := range cells {
		polygon, err := marshalGeometry(cell.Polygon)
		if err != nil {
			return err
		}
		daos = append(daos, cellDao{
			BoundaryID:  boundaryID,
			TileID:      cell.TileID,
			Polygon:     polygon,
			CentroidLon: cell.Centroid.Lon(),
			CentroidLat: cell.Centroid.Lat(),
		})
	}

	// Wholesale replacement in one transaction: readers either see the old
	// grid or the new one, never a torn mixture, and stale identifiers from
	// a previous tile size cannot survive.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("boundary_id = ?", boundaryID).Delete(&cellDao{}).Error
		if err != nil {
			return err
		}
		if len(daos) == 0 {
			return nil
		}
		return tx.CreateInBatches(daos, 500).Error
	})

	return errors.Wrapf(err, "unable to replace cells of boundary %s", boundaryID)
}

func (s *PostgresStore) CellsForBoundary(boundaryID uuid.UUID) ([]Cell, error) {
	var daos []cellDao
	err := s.db.Where("boundary_id = ?", boundaryID).Order("tile_id").Find(&daos).Error
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load cells of boundary %s", boundaryID)
	}

	cells := make([]Cell, 0, len(daos))
	for _, dao := range daos {
		cell, err := dao.toCell()
		if err != nil {
			return nil, err
		}
		cells = append(cells, *cell)
	}

	return cells, nil
}

func (s *PostgresStore) CellByID(boundaryID uuid.UUID, tileID string) (*Cell, error) {
	var dao cellDao
	err := s.db.Where("boundary_id = ? AND tile_id = ?", boundaryID, tileID).First(&dao).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load cell %s", tileID)
	}

	return dao.toCell()
}

func (d cellDao) toCell() (*Cell, error) {
	polygon, err := unmarshalPolygon(d.Polygon)
	if err != nil {
		return nil, err
	}

	return &Cell{
		BoundaryID: d.BoundaryID,
		TileID:     d.TileID,
		Polygon:    polygon,
		Centroid:   orb.Point{d.CentroidLon, d.CentroidLat},
	}, nil
}

func (s *PostgresStore) StoreSample(sample *Sample) (int64, error) {
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}

	referenceSources := ""
	if len(sample.ReferenceSources) > 0 {
		data, err := json.Marshal(sample.ReferenceSources)
		if err != nil {
			return 0, errors.Wrap(err, "unable to marshal reference sources")
		}
		referenceSources = string(data)
	}

	dao := sampleDao{
		ZoneID:           sample.ZoneID,
		DeviceID:         sample.DeviceID,
		TempC:            sample.Metrics.TempC,
		PH:               sample.Metrics.PH,
		ECUsCm:           sample.Metrics.ECUsCm,
		DOMgL:            sample.Metrics.DOMgL,
		TOCMgL:           sample.Metrics.TOCMgL,
		CODMgL:           sample.Metrics.CODMgL,
		TNMgL:            sample.Metrics.TNMgL,
		TPMgL:            sample.Metrics.TPMgL,
		SSMgL:            sample.Metrics.SSMgL,
		ClMgL:            sample.Metrics.ClMgL,
		ChlAMgM3:         sample.Metrics.ChlAMgM3,
		CdMgL:            sample.Metrics.CdMgL,
		BODMgL:           sample.Metrics.BODMgL,
		CurrWQState:      sample.CurrWQState,
		TargetWQState:    sample.TargetWQState,
		Reason:           sample.Reason,
		ReferenceSources: referenceSources,
		CreatedAt:        sample.CreatedAt,
	}

	err := s.db.Create(&dao).Error
	if err != nil {
		return 0, errors.Wrap(err, "unable to store sample")
	}

	sample.ID = dao.ID
	return dao.ID, nil
}

func (s *PostgresStore) LatestSamples(zoneID string, limit int) ([]Sample, error) {
	query := s.db.Order("id DESC").Limit(limit)
	if zoneID != "" {
		query = query.Where("zone_id = ?", zoneID)
	}

	var daos []sampleDao
	err := query.Find(&daos).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to load samples")
	}

	samples := make([]Sample, 0, len(daos))
	for _, dao := range daos {
		var referenceSources []string
		if dao.ReferenceSources != "" {
			err = json.Unmarshal([]byte(dao.ReferenceSources), &referenceSources)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to unmarshal reference sources of sample %d", dao.ID)
			}
		}

		samples = append(samples, Sample{
			ID:       dao.ID,
			ZoneID:   dao.ZoneID,
			DeviceID: dao.DeviceID,
			Metrics: SampleMetrics{
				TempC:    dao.TempC,
				PH:       dao.PH,
				ECUsCm:   dao.ECUsCm,
				DOMgL:    dao.DOMgL,
				TOCMgL:   dao.TOCMgL,
				CODMgL:   dao.CODMgL,
				TNMgL:    dao.TNMgL,
				TPMgL:    dao.TPMgL,
				SSMgL:    dao.SSMgL,
				ClMgL:    dao.ClMgL,
				ChlAMgM3: dao.ChlAMgM3,
				CdMgL:    dao.CdMgL,
				BODMgL:   dao.BODMgL,
			},
			CurrWQState:      dao.CurrWQState,
			TargetWQState:    dao.TargetWQState,
			Reason:           dao.Reason,
			ReferenceSources: referenceSources,
			CreatedAt:        dao.CreatedAt,
		})
	}

	return samples, nil
}

func (s *PostgresStore) UpsertDrone(drone *Drone) error {
	if drone.UpdatedAt.IsZero() {
		drone.UpdatedAt = time.Now()
	}

	dao := droneDao{
		ID:        drone.ID,
		Status:    drone.Status,
		Battery:   drone.Battery,
		ZoneID:    drone.ZoneID,
		Lat:       drone.Lat,
		Lon:       drone.Lon,
		Heading:   drone.Heading,
		VideoURL:  drone.VideoURL,
		UpdatedAt: drone.UpdatedAt,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&dao).Error

	return errors.Wrapf(err, "unable to upsert drone %s", drone.ID)
}

func (s *PostgresStore) Drones() ([]Drone, error) {
	var daos []droneDao
	err := s.db.Order("id").Find(&daos).Error
	if err != nil {
		return nil, errors.Wrap(err, "unable to load drones")
	}

	drones := make([]Drone, 0, len(daos))
	for _, dao := range daos {
		drones = append(drones, Drone{
			ID:        dao.ID,
			Status:    dao.Status,
			Battery:   dao.Battery,
			ZoneID:    dao.ZoneID,
			Lat:       dao.Lat,
			Lon:       dao.Lon,
			Heading:   dao.Heading,
			VideoURL:  dao.VideoURL,
			UpdatedAt: dao.UpdatedAt,
		})
	}

	return drones, nil
}

func (s *PostgresStore) StoreMission(mission *Mission) (int64, error) {
	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = time.Now()
	}

	dao := missionDao{
		MissionID:     mission.MissionID,
		LinkMissionID: mission.LinkMissionID,
		ZoneID:        mission.ZoneID,
		Lat:           mission.Lat,
		Lon:           mission.Lon,
		CurrWQState:   mission.CurrWQState,
		TargetWQState: mission.TargetWQState,
		Text:          mission.Text,
		CreatedAt:     mission.CreatedAt,
	}

	err := s.db.Create(&dao).Error
	if err != nil {
		return 0, errors.Wrap(err, "unable to store mission")
	}

	mission.ID = dao.ID
	return dao.ID, nil
}

func marshalGeometry(geometry orb.Geometry) (string, error) {
	data, err := geojson.NewGeometry(geometry).MarshalJSON()
	if err != nil {
		return "", errors.Wrap(err, "unable to marshal geometry")
	}
	return string(data), nil
}

func unmarshalMultiPolygon(data string) (orb.MultiPolygon, error) {
	geometry, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal geometry")
	}

	switch g := geometry.Geometry().(type) {
	case orb.MultiPolygon:
		return g, nil
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	}

	return nil, errors.Errorf("stored geometry is of type %s, expected MultiPolygon", geometry.Type)
}

func unmarshalPolygon(data string) (orb.Polygon, error) {
	geometry, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal geometry")
	}

	polygon, ok := geometry.Geometry().(orb.Polygon)
	if !ok {
		return nil, errors.Errorf("stored geometry is of type %s, expected Polygon", geometry.Type)
	}

	return polygon, nil
}
