package grid

import (
	"math"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type bucketIndex [2]int

// Locator answers point-in-cell queries against one generated cell set. The
// cells are hashed into a uniform bucket grid over their bounding boxes, so
// a query only scans the bucket of the query point instead of all cells.
// A Locator is immutable after construction and safe for concurrent reads.
type Locator struct {
	cells      []Cell
	buckets    map[bucketIndex][]int
	bucketSize float64
}

// NewLocator builds the bucket index for the given cells. The bucket edge
// length is the largest cell bound edge, so every cell only covers a few
// buckets and the bucket of a query point holds all candidate cells.
func NewLocator(cells []Cell) *Locator {
	bucketSize := 0.0
	for _, cell := range cells {
		bound := cell.Polygon.Bound()
		bucketSize = math.Max(bucketSize, math.Max(bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y()))
	}
	if bucketSize == 0 {
		bucketSize = 1
	}

	locator := &Locator{
		cells:      cells,
		buckets:    map[bucketIndex][]int{},
		bucketSize: bucketSize,
	}

	for i, cell := range cells {
		bound := cell.Polygon.Bound()
		minBucket := locator.bucketFor(bound.Min)
		maxBucket := locator.bucketFor(bound.Max)
		for x := minBucket[0]; x <= maxBucket[0]; x++ {
			for y := minBucket[1]; y <= maxBucket[1]; y++ {
				key := bucketIndex{x, y}
				locator.buckets[key] = append(locator.buckets[key], i)
			}
		}
	}

	sigolo.Debugf("Built locator with %d cells in %d buckets", len(cells), len(locator.buckets))

	return locator
}

func (l *Locator) bucketFor(point orb.Point) bucketIndex {
	return bucketIndex{
		int(math.Floor(point.X() / l.bucketSize)),
		int(math.Floor(point.Y() / l.bucketSize)),
	}
}

// Locate returns the identifier of a cell containing the given geographic
// coordinate. Coordinates on a shared cell edge may match multiple cells, in
// which case any one of them is returned. A miss is a normal outcome and
// reported via the bool, not an error.
func (l *Locator) Locate(point orb.Point) (string, bool) {
	for _, i := range l.buckets[l.bucketFor(point)] {
		cell := l.cells[i]
		if !cell.Polygon.Bound().Contains(point) {
			continue
		}
		if planar.PolygonContains(cell.Polygon, point) {
			return cell.ID, true
		}
	}
	return "", false
}
