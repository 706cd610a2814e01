package grid

import (
	"reflect"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"

	"lakegrid/util"
)

// squareBoundary builds a square boundary of the given side length in
// meters, centered on the given geographic point.
func squareBoundary(center orb.Point, sideLength float64) orb.MultiPolygon {
	projection := NewProjection(center)
	half := sideLength / 2

	ring := orb.Ring{
		projection.ToGeo(orb.Point{-half, -half}),
		projection.ToGeo(orb.Point{half, -half}),
		projection.ToGeo(orb.Point{half, half}),
		projection.ToGeo(orb.Point{-half, half}),
	}
	ring = append(ring, ring[0])

	return orb.MultiPolygon{orb.Polygon{ring}}
}

func cellIDs(cells []Cell) []string {
	var ids []string
	for _, cell := range cells {
		ids = append(ids, cell.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestGenerate_fourTilesForHundredMeterSquare(t *testing.T) {
	boundary := squareBoundary(orb.Point{0, 0}, 100)

	cells, err := Generate(boundary, 50)

	util.AssertNil(t, err)
	util.AssertEqual(t, 4, len(cells))
	util.AssertEqual(t, []string{"A1", "A2", "B1", "B2"}, cellIDs(cells))
}

func TestGenerate_rowMajorOrder(t *testing.T) {
	boundary := squareBoundary(orb.Point{0, 0}, 100)

	cells, err := Generate(boundary, 50)

	util.AssertNil(t, err)
	util.AssertEqual(t, "A1", cells[0].ID)
	util.AssertEqual(t, "B1", cells[1].ID)
	util.AssertEqual(t, "A2", cells[2].ID)
	util.AssertEqual(t, "B2", cells[3].ID)
}

func TestGenerate_tileSideLength(t *testing.T) {
	boundary := squareBoundary(orb.Point{127.0, 37.4}, 100)

	cells, err := Generate(boundary, 50)
	util.AssertNil(t, err)

	centroid, _ := planar.CentroidArea(boundary)
	projection := NewProjection(centroid)

	for _, cell := range cells {
		ring := cell.Polygon[0]
		util.AssertEqual(t, 5, len(ring))

		lowerLeft := projection.ToLocal(ring[0])
		lowerRight := projection.ToLocal(ring[1])
		upperRight := projection.ToLocal(ring[2])

		util.AssertApprox(t, 50.0, lowerRight.X()-lowerLeft.X(), 1e-6)
		util.AssertApprox(t, 50.0, upperRight.Y()-lowerRight.Y(), 1e-6)
	}
}

func TestGenerate_closedRings(t *testing.T) {
	boundary := squareBoundary(orb.Point{127.0, 37.4}, 100)

	cells, err := Generate(boundary, 50)
	util.AssertNil(t, err)

	for _, cell := range cells {
		ring := cell.Polygon[0]
		util.AssertEqual(t, ring[0], ring[len(ring)-1])
	}
}

func TestGenerate_centroidInsideCell(t *testing.T) {
	boundary := squareBoundary(orb.Point{127.0, 37.4}, 100)

	cells, err := Generate(boundary, 50)
	util.AssertNil(t, err)

	for _, cell := range cells {
		util.AssertTrue(t, planar.PolygonContains(cell.Polygon, cell.Centroid))
	}
}

func TestGenerate_deterministic(t *testing.T) {
	boundary := squareBoundary(orb.Point{127.0, 37.4}, 320)

	first, err := Generate(boundary, 50)
	util.AssertNil(t, err)
	second, err := Generate(boundary, 50)
	util.AssertNil(t, err)

	util.AssertTrue(t, reflect.DeepEqual(first, second))
}

func TestGenerate_partialOverlapQualifies(t *testing.T) {
	// A 60m square is covered by four 50m tiles which all only partially
	// overlap the boundary. Intersection, not containment, qualifies a cell.
	boundary := squareBoundary(orb.Point{0, 0}, 60)

	cells, err := Generate(boundary, 50)

	util.AssertNil(t, err)
	util.AssertEqual(t, []string{"A1", "A2", "B1", "B2"}, cellIDs(cells))
}

func TestGenerate_singleTileForTinyBoundary(t *testing.T) {
	boundary := squareBoundary(orb.Point{0, 0}, 10)

	cells, err := Generate(boundary, 50)

	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(cells))
	util.AssertEqual(t, "A1", cells[0].ID)
}

func TestGenerate_cellsInsideHoleAreExcluded(t *testing.T) {
	// A 300m square with a 150m hole in the middle: the four 50m tiles that
	// lie completely inside the hole must not be produced.
	center := orb.Point{0, 0}
	outer := squareBoundary(center, 300)[0][0]
	hole := squareBoundary(center, 150)[0][0]
	boundary := orb.MultiPolygon{orb.Polygon{outer, hole}}

	cells, err := Generate(boundary, 50)
	util.AssertNil(t, err)

	util.AssertEqual(t, 32, len(cells))
	for _, excluded := range []string{"C3", "C4", "D3", "D4"} {
		for _, cell := range cells {
			if cell.ID == excluded {
				t.Fatalf("cell %s lies completely inside the hole but was produced", excluded)
			}
		}
	}
}

func TestGenerate_invalidTileSize(t *testing.T) {
	boundary := squareBoundary(orb.Point{0, 0}, 100)

	for _, tileSize := range []float64{0, -5} {
		cells, err := Generate(boundary, tileSize)
		util.AssertNotNil(t, err)
		util.AssertTrue(t, errors.Is(err, ErrInvalidTileSize))
		util.AssertNil(t, cells)
	}
}

func TestGenerate_emptyBoundary(t *testing.T) {
	cells, err := Generate(orb.MultiPolygon{}, 50)

	util.AssertNotNil(t, err)
	util.AssertTrue(t, errors.Is(err, ErrInvalidBoundary))
	util.AssertNil(t, cells)
}

func TestGenerate_coverage(t *testing.T) {
	// Every point inside the boundary must lie in at least one cell, even
	// though cells are never clipped to the boundary.
	boundary := squareBoundary(orb.Point{127.0, 37.4}, 100)

	cells, err := Generate(boundary, 30)
	util.AssertNil(t, err)

	locator := NewLocator(cells)
	centroid, _ := planar.CentroidArea(boundary)
	projection := NewProjection(centroid)

	for x := -45.0; x <= 45.0; x += 15 {
		for y := -45.0; y <= 45.0; y += 15 {
			point := projection.ToGeo(orb.Point{x, y})
			_, found := locator.Locate(point)
			util.AssertTrue(t, found)
		}
	}
}
