package grid

import (
	"math"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

var (
	ErrInvalidTileSize = errors.New("tile size must be a positive number of meters")
	ErrInvalidBoundary = errors.New("boundary must contain at least one polygon")
)

// Cell is one square tile of the generated grid. The polygon is the full
// square footprint in geographic coordinates as a closed 5-vertex ring. It
// is not clipped to the boundary, so it may extend beyond it.
type Cell struct {
	ID       string
	Column   int
	Row      int
	Polygon  orb.Polygon
	Centroid orb.Point
}

// Generate tiles the bounding region of the boundary with squares of
// tileSize meters side length and keeps every square whose footprint shares
// at least one point with the boundary. The squares are laid out on a local
// metric plane centered on the boundary centroid and projected back to
// geographic coordinates. The result is deterministic and ordered row-major,
// but only the uniqueness of the identifiers is guaranteed to consumers.
func Generate(boundary orb.MultiPolygon, tileSize float64) ([]Cell, error) {
	if !(tileSize > 0) || math.IsInf(tileSize, 1) {
		return nil, errors.Wrapf(ErrInvalidTileSize, "got %f", tileSize)
	}
	if len(boundary) == 0 {
		return nil, ErrInvalidBoundary
	}

	centroid, _ := planar.CentroidArea(boundary)
	projection := NewProjection(centroid)

	// The projection is linear but per-axis min/max over both projected bbox
	// corners guarantees the local rectangle covers the whole extent.
	bound := boundary.Bound()
	cornerA := projection.ToLocal(bound.Min)
	cornerB := projection.ToLocal(bound.Max)
	x0 := math.Min(cornerA.X(), cornerB.X())
	x1 := math.Max(cornerA.X(), cornerB.X())
	y0 := math.Min(cornerA.Y(), cornerB.Y())
	y1 := math.Max(cornerA.Y(), cornerB.Y())

	// The centroid and projection math leaves float64 noise on the extent. A
	// row or column within epsilon of the far edge is an artifact of that
	// noise, not a real tile.
	epsilon := tileSize * 1e-9

	var cells []Cell
	for row := 0; ; row++ {
		y := y0 + float64(row)*tileSize
		if y >= y1-epsilon {
			break
		}

		for col := 0; ; col++ {
			x := x0 + float64(col)*tileSize
			if x >= x1-epsilon {
				break
			}

			ring := orb.Ring{
				projection.ToGeo(orb.Point{x, y}),
				projection.ToGeo(orb.Point{x + tileSize, y}),
				projection.ToGeo(orb.Point{x + tileSize, y + tileSize}),
				projection.ToGeo(orb.Point{x, y + tileSize}),
			}
			ring = append(ring, ring[0])
			polygon := orb.Polygon{ring}

			if !boundaryIntersectsCell(boundary, polygon.Bound()) {
				continue
			}

			cellCentroid, _ := planar.CentroidArea(polygon)
			cells = append(cells, Cell{
				ID:       CellID(col, row),
				Column:   col,
				Row:      row,
				Polygon:  polygon,
				Centroid: cellCentroid,
			})
		}
	}

	sigolo.Debugf("Generated %d cells with %.1fm side length", len(cells), tileSize)

	return cells, nil
}
