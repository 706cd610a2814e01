package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"

	"lakegrid/grid"
	"lakegrid/storage"
	"lakegrid/util"
)

// newTestConsumer builds a consumer around a memory store and a locator over
// a generated 100m grid. The MQTT client is nil, HandleState never touches it.
func newTestConsumer(t *testing.T) (*Consumer, *storage.MemoryStore, []grid.Cell) {
	projection := grid.NewProjection(orb.Point{127.0, 37.4})
	ring := orb.Ring{
		projection.ToGeo(orb.Point{-50, -50}),
		projection.ToGeo(orb.Point{50, -50}),
		projection.ToGeo(orb.Point{50, 50}),
		projection.ToGeo(orb.Point{-50, 50}),
	}
	ring = append(ring, ring[0])

	cells, err := grid.Generate(orb.MultiPolygon{orb.Polygon{ring}}, 50)
	util.AssertNil(t, err)

	locator := grid.NewLocator(cells)
	store := storage.NewMemoryStore()

	return NewConsumer(nil, DefaultTopic, store, locator.Locate), store, cells
}

func centroidOf(t *testing.T, cells []grid.Cell, tileID string) orb.Point {
	t.Helper()
	for _, cell := range cells {
		if cell.ID == tileID {
			return cell.Centroid
		}
	}
	t.Fatalf("tile %s not found in test grid", tileID)
	return orb.Point{}
}

func statePayload(t *testing.T, state DroneState) []byte {
	payload, err := json.Marshal(state)
	util.AssertNil(t, err)
	return payload
}

func TestHandleState_storesDroneWithZone(t *testing.T) {
	consumer, store, cells := newTestConsumer(t)
	centroid := centroidOf(t, cells, "B2")

	err := consumer.HandleState(statePayload(t, DroneState{
		ID:      "drone-1",
		Status:  "MOVING",
		Battery: 76.5,
		Lat:     centroid.Lat(),
		Lon:     centroid.Lon(),
		Heading: 90,
	}))
	util.AssertNil(t, err)

	drones, err := store.Drones()
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(drones))
	util.AssertEqual(t, "drone-1", drones[0].ID)
	util.AssertEqual(t, "MOVING", drones[0].Status)
	util.AssertEqual(t, 76.5, drones[0].Battery)
	util.AssertEqual(t, "B2", drones[0].ZoneID)
	util.AssertEqual(t, 90.0, drones[0].Heading)
	util.AssertFalse(t, drones[0].UpdatedAt.IsZero())
}

func TestHandleState_outsideGridStoredWithoutZone(t *testing.T) {
	consumer, store, _ := newTestConsumer(t)

	err := consumer.HandleState([]byte(`{"id": "drone-1", "lat": 0, "lon": 0}`))
	util.AssertNil(t, err)

	drones, err := store.Drones()
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(drones))
	util.AssertEqual(t, "", drones[0].ZoneID)
	util.AssertEqual(t, "IDLE", drones[0].Status)
}

func TestHandleState_withoutResolver(t *testing.T) {
	store := storage.NewMemoryStore()
	consumer := NewConsumer(nil, DefaultTopic, store, nil)

	err := consumer.HandleState([]byte(`{"id": "drone-1", "lat": 37.4, "lon": 127.0}`))
	util.AssertNil(t, err)

	drones, err := store.Drones()
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(drones))
}

func TestHandleState_invalidPayload(t *testing.T) {
	consumer, store, _ := newTestConsumer(t)

	err := consumer.HandleState([]byte("not json"))
	util.AssertNotNil(t, err)

	drones, err := store.Drones()
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(drones))
}

func TestHandleState_missingID(t *testing.T) {
	consumer, store, _ := newTestConsumer(t)

	err := consumer.HandleState([]byte(`{"status": "MOVING", "lat": 37.4, "lon": 127.0}`))
	util.AssertNotNil(t, err)

	drones, err := store.Drones()
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(drones))
}

func TestHandleState_laterStateWins(t *testing.T) {
	consumer, store, _ := newTestConsumer(t)

	util.AssertNil(t, consumer.HandleState([]byte(`{"id": "drone-1", "battery": 100}`)))
	util.AssertNil(t, consumer.HandleState([]byte(`{"id": "drone-1", "battery": 80, "status": "RETURNING"}`)))

	drones, err := store.Drones()
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(drones))
	util.AssertEqual(t, 80.0, drones[0].Battery)
	util.AssertEqual(t, "RETURNING", drones[0].Status)
}
