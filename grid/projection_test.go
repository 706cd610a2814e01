package grid

import (
	"testing"

	"github.com/paulmach/orb"

	"lakegrid/util"
)

func TestMetersPerDegree_equator(t *testing.T) {
	mPerDegLon, mPerDegLat := MetersPerDegree(0)

	util.AssertApprox(t, 111320.0, mPerDegLon, 1e-9)
	util.AssertApprox(t, 111320.0, mPerDegLat, 1e-9)
}

func TestMetersPerDegree_shrinksWithLatitude(t *testing.T) {
	mPerDegLon, mPerDegLat := MetersPerDegree(60)

	util.AssertApprox(t, 55660.0, mPerDegLon, 1e-6)
	util.AssertApprox(t, 111320.0, mPerDegLat, 1e-9)
}

func TestProjection_originMapsToZero(t *testing.T) {
	origin := orb.Point{127.0, 37.4}
	projection := NewProjection(origin)

	local := projection.ToLocal(origin)

	util.AssertApprox(t, 0.0, local.X(), 1e-12)
	util.AssertApprox(t, 0.0, local.Y(), 1e-12)
}

func TestProjection_roundTrip(t *testing.T) {
	projection := NewProjection(orb.Point{127.0, 37.4})

	points := []orb.Point{
		{127.0, 37.4},
		{127.01, 37.39},
		{126.95, 37.45},
		{127.123456, 37.398765},
	}

	for _, point := range points {
		roundTripped := projection.ToGeo(projection.ToLocal(point))
		util.AssertApprox(t, point.Lon(), roundTripped.Lon(), 1e-12)
		util.AssertApprox(t, point.Lat(), roundTripped.Lat(), 1e-12)
	}
}

func TestProjection_knownDistance(t *testing.T) {
	projection := NewProjection(orb.Point{0, 0})

	// One degree of latitude at the equator.
	local := projection.ToLocal(orb.Point{0, 1})

	util.AssertApprox(t, 0.0, local.X(), 1e-9)
	util.AssertApprox(t, 111320.0, local.Y(), 1e-9)
}
