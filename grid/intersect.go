package grid

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// boundaryIntersectsCell reports whether the boundary and the cell footprint
// share at least one point. Cell footprints are axis-aligned rectangles in
// geographic space (the projection scales each axis independently), so this
// is a rectangle vs. multi-polygon test. Touching edges and corners count as
// intersection.
func boundaryIntersectsCell(boundary orb.MultiPolygon, cell orb.Bound) bool {
	for _, polygon := range boundary {
		if polygonIntersectsBound(polygon, cell) {
			return true
		}
	}
	return false
}

func polygonIntersectsBound(polygon orb.Polygon, bound orb.Bound) bool {
	if len(polygon) == 0 || !bound.Intersects(polygon.Bound()) {
		return false
	}

	// Some polygon vertex lies within the rectangle. This also covers
	// polygons completely inside the rectangle. Interior ring vertices count
	// as well since the rings belong to the polygon.
	for _, ring := range polygon {
		for _, point := range ring {
			if bound.Contains(point) {
				return true
			}
		}
	}

	// Some rectangle corner lies within the polygon. This also covers
	// rectangles completely inside the polygon but outside its holes.
	for _, corner := range boundCorners(bound) {
		if planar.PolygonContains(polygon, corner) {
			return true
		}
	}

	// Remaining case: edges cross without any vertex inside the other shape.
	rectangleRing := boundRing(bound)
	for _, ring := range polygon {
		for i := 0; i < len(ring)-1; i++ {
			for j := 0; j < len(rectangleRing)-1; j++ {
				if segmentsIntersect(ring[i], ring[i+1], rectangleRing[j], rectangleRing[j+1]) {
					return true
				}
			}
		}
	}

	return false
}

func boundCorners(b orb.Bound) [4]orb.Point {
	return [4]orb.Point{
		b.Min,
		{b.Max.X(), b.Min.Y()},
		b.Max,
		{b.Min.X(), b.Max.Y()},
	}
}

func boundRing(b orb.Bound) orb.Ring {
	corners := boundCorners(b)
	return orb.Ring{corners[0], corners[1], corners[2], corners[3], corners[0]}
}

// segmentsIntersect reports whether the segments p1-p2 and q1-q2 share a
// point, including touching endpoints and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// orientation returns the cross product of a->b and a->c: positive for a
// counter-clockwise turn, negative for clockwise and zero for collinear
// points.
func orientation(a, b, c orb.Point) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

// onSegment expects c to be collinear with a-b and checks whether it lies
// between them.
func onSegment(a, b, c orb.Point) bool {
	return math.Min(a.X(), b.X()) <= c.X() && c.X() <= math.Max(a.X(), b.X()) &&
		math.Min(a.Y(), b.Y()) <= c.Y() && c.Y() <= math.Max(a.Y(), b.Y())
}
