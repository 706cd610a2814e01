package web

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

var ErrInvalidBoundaryGeometry = errors.New("boundary must be a GeoJSON (Multi)Polygon, Feature or FeatureCollection resolving to one")

// parseBoundaryGeoJson accepts the three GeoJSON shapes a boundary upload
// may have (bare geometry, Feature, FeatureCollection) and normalizes the
// result to a multi-polygon. A FeatureCollection contributes all of its
// polygonal members.
func parseBoundaryGeoJson(data []byte) (orb.MultiPolygon, error) {
	var typed struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(data, &typed)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidBoundaryGeometry, err.Error())
	}

	var geometries []orb.Geometry
	switch typed.Type {
	case "FeatureCollection":
		collection, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidBoundaryGeometry, err.Error())
		}
		for _, feature := range collection.Features {
			geometries = append(geometries, feature.Geometry)
		}
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidBoundaryGeometry, err.Error())
		}
		geometries = append(geometries, feature.Geometry)
	default:
		geometry, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidBoundaryGeometry, err.Error())
		}
		geometries = append(geometries, geometry.Geometry())
	}

	return normalizeToMultiPolygon(geometries)
}

func normalizeToMultiPolygon(geometries []orb.Geometry) (orb.MultiPolygon, error) {
	var boundary orb.MultiPolygon
	for _, geometry := range geometries {
		if geometry == nil {
			return nil, errors.Wrap(ErrInvalidBoundaryGeometry, "feature without geometry")
		}
		switch g := geometry.(type) {
		case orb.Polygon:
			boundary = append(boundary, g)
		case orb.MultiPolygon:
			boundary = append(boundary, g...)
		default:
			return nil, errors.Wrapf(ErrInvalidBoundaryGeometry, "unsupported geometry type %s", geometry.GeoJSONType())
		}
	}

	if len(boundary) == 0 {
		return nil, ErrInvalidBoundaryGeometry
	}

	return boundary, nil
}
