package grid

import (
	"testing"

	"github.com/paulmach/orb"

	"lakegrid/util"
)

func unitSquare(minX, minY, size float64) orb.Ring {
	return orb.Ring{
		{minX, minY},
		{minX + size, minY},
		{minX + size, minY + size},
		{minX, minY + size},
		{minX, minY},
	}
}

func TestSegmentsIntersect(t *testing.T) {
	// Proper crossing.
	util.AssertTrue(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}))
	// Touching endpoint.
	util.AssertTrue(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{2, 0}))
	// Endpoint on the interior of the other segment.
	util.AssertTrue(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{1, 2}))
	// Collinear overlap.
	util.AssertTrue(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}))
	// Collinear but disjoint.
	util.AssertFalse(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}))
	// Parallel.
	util.AssertFalse(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{0, 1}, orb.Point{2, 1}))
	// Disjoint.
	util.AssertFalse(t, segmentsIntersect(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{2, 0}, orb.Point{3, 1}))
}

func TestPolygonIntersectsBound_disjoint(t *testing.T) {
	polygon := orb.Polygon{unitSquare(0, 0, 1)}
	bound := orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{6, 6}}

	util.AssertFalse(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_partialOverlap(t *testing.T) {
	polygon := orb.Polygon{unitSquare(0, 0, 2)}
	bound := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}

	util.AssertTrue(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_sharedEdge(t *testing.T) {
	polygon := orb.Polygon{unitSquare(0, 0, 1)}
	bound := orb.Bound{Min: orb.Point{1, 0}, Max: orb.Point{2, 1}}

	util.AssertTrue(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_polygonInsideBound(t *testing.T) {
	polygon := orb.Polygon{unitSquare(1, 1, 1)}
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{3, 3}}

	util.AssertTrue(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_boundInsidePolygon(t *testing.T) {
	polygon := orb.Polygon{unitSquare(0, 0, 10)}
	bound := orb.Bound{Min: orb.Point{4, 4}, Max: orb.Point{5, 5}}

	util.AssertTrue(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_boundInsideHole(t *testing.T) {
	polygon := orb.Polygon{unitSquare(0, 0, 10), unitSquare(2, 2, 6)}
	bound := orb.Bound{Min: orb.Point{4, 4}, Max: orb.Point{5, 5}}

	util.AssertFalse(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_boundCrossingHoleEdge(t *testing.T) {
	polygon := orb.Polygon{unitSquare(0, 0, 10), unitSquare(2, 2, 6)}
	bound := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}

	util.AssertTrue(t, polygonIntersectsBound(polygon, bound))
}

func TestPolygonIntersectsBound_edgesCrossWithoutContainedVertices(t *testing.T) {
	// A plus-shaped overlap: a wide flat polygon crossing a tall narrow
	// rectangle. No vertex of either shape lies inside the other.
	polygon := orb.Polygon{orb.Ring{
		{-3, 1}, {3, 1}, {3, 2}, {-3, 2}, {-3, 1},
	}}
	bound := orb.Bound{Min: orb.Point{0, -3}, Max: orb.Point{1, 6}}

	util.AssertTrue(t, polygonIntersectsBound(polygon, bound))
}

func TestBoundaryIntersectsCell(t *testing.T) {
	boundary := orb.MultiPolygon{
		{unitSquare(0, 0, 1)},
		{unitSquare(10, 10, 1)},
	}

	util.AssertTrue(t, boundaryIntersectsCell(boundary, orb.Bound{Min: orb.Point{0.5, 0.5}, Max: orb.Point{1.5, 1.5}}))
	util.AssertTrue(t, boundaryIntersectsCell(boundary, orb.Bound{Min: orb.Point{10.5, 10.5}, Max: orb.Point{11.5, 11.5}}))
	util.AssertFalse(t, boundaryIntersectsCell(boundary, orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{6, 6}}))
}
