package importing

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"

	"lakegrid/storage"
)

// ImportBoundary reads the water polygons from the given OSM file and stores
// them as the new active boundary.
func ImportBoundary(inputFile string, name string, store storage.BoundaryStore) (*storage.Boundary, error) {
	geometry, err := ReadWaterBoundary(inputFile)
	if err != nil {
		return nil, err
	}

	boundary := &storage.Boundary{
		ID:       uuid.New(),
		Name:     name,
		Geometry: geometry,
	}
	err = store.StoreBoundary(boundary)
	if err != nil {
		return nil, errors.Wrap(err, "unable to store imported boundary")
	}

	sigolo.Infof("Stored boundary '%s' (%s) imported from %s", name, boundary.ID, inputFile)

	return boundary, nil
}

// ReadWaterBoundary scans a .osm or .osm.pbf file and assembles all closed
// ways tagged natural=water into a multi-polygon. Multipolygon relations
// (lakes with islands) are not assembled.
func ReadWaterBoundary(inputFile string) (orb.MultiPolygon, error) {
	file, scanner, err := getScanner(inputFile)
	if err != nil {
		return nil, err
	}

	defer file.Close()
	defer scanner.Close()

	sigolo.Infof("Start reading water polygons from %s", inputFile)
	readStartTime := time.Now()

	nodePositions := map[osm.NodeID]orb.Point{}
	var boundary orb.MultiPolygon

	for scanner.Scan() {
		switch osmObj := scanner.Object().(type) {
		case *osm.Node:
			nodePositions[osmObj.ID] = orb.Point{osmObj.Lon, osmObj.Lat}
		case *osm.Way:
			if osmObj.Tags.Find("natural") != "water" {
				continue
			}

			ring := make(orb.Ring, 0, len(osmObj.Nodes))
			for _, node := range osmObj.Nodes {
				position, ok := nodePositions[node.ID]
				if !ok {
					return nil, errors.Errorf("way %d references node %d which has not been read", osmObj.ID, node.ID)
				}
				ring = append(ring, position)
			}

			if len(ring) < 4 || !ring.Closed() {
				sigolo.Warnf("Skip way %d: not a closed ring", osmObj.ID)
				continue
			}

			boundary = append(boundary, orb.Polygon{ring})
		case *osm.Relation:
			sigolo.Debugf("Skip relation %d: relations are not assembled", osmObj.ID)
		}
	}

	if len(boundary) == 0 {
		return nil, errors.Errorf("no closed natural=water way found in %s", inputFile)
	}

	sigolo.Infof("Read %d water polygon(s) in %s", len(boundary), time.Since(readStartTime))

	return boundary, nil
}

func getScanner(inputFile string) (*os.File, osm.Scanner, error) {
	if !strings.HasSuffix(inputFile, ".osm") && !strings.HasSuffix(inputFile, ".pbf") {
		return nil, nil, errors.Errorf("input file %s must be an .osm or .pbf file", inputFile)
	}

	file, err := os.Open(inputFile)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to open input file %s", inputFile)
	}

	var scanner osm.Scanner
	if strings.HasSuffix(inputFile, ".osm") {
		scanner = osmxml.New(context.Background(), file)
	} else {
		scanner = osmpbf.New(context.Background(), file, 1)
	}

	return file, scanner, nil
}
