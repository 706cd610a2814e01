package grid

import (
	"math"

	"github.com/paulmach/orb"
)

// metersPerDegreeLat is the length of one degree of latitude in meters on a
// fixed-radius spherical earth. The longitude equivalent shrinks with the
// cosine of the latitude. This approximation is fine for lake-scale areas
// but degrades for very large extents or near the poles.
const metersPerDegreeLat = 111320.0

// MetersPerDegree returns the length of one degree of longitude and one
// degree of latitude (in this order) in meters at the given latitude.
func MetersPerDegree(lat float64) (float64, float64) {
	return metersPerDegreeLat * math.Cos(lat*math.Pi/180.0), metersPerDegreeLat
}

// Projection maps geographic coordinates (degrees) onto a locally flat plane
// (meters) centered on a fixed reference point, usually the centroid of the
// boundary a grid is generated for. Both directions are pure functions, so a
// projection can be shared between goroutines.
type Projection struct {
	origin     orb.Point
	mPerDegLon float64
	mPerDegLat float64
}

func NewProjection(origin orb.Point) *Projection {
	mPerDegLon, mPerDegLat := MetersPerDegree(origin.Lat())
	return &Projection{
		origin:     origin,
		mPerDegLon: mPerDegLon,
		mPerDegLat: mPerDegLat,
	}
}

// ToLocal converts the given geographic coordinate into meters relative to
// the reference point of this projection.
func (p *Projection) ToLocal(point orb.Point) orb.Point {
	return orb.Point{
		(point.Lon() - p.origin.Lon()) * p.mPerDegLon,
		(point.Lat() - p.origin.Lat()) * p.mPerDegLat,
	}
}

// ToGeo is the exact inverse of ToLocal.
func (p *Projection) ToGeo(point orb.Point) orb.Point {
	return orb.Point{
		p.origin.Lon() + point.X()/p.mPerDegLon,
		p.origin.Lat() + point.Y()/p.mPerDegLat,
	}
}
