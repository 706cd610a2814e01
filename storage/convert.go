package storage

import (
	"github.com/google/uuid"

	"lakegrid/grid"
)

// CellsFromGrid tags freshly generated grid cells with the boundary version
// they were generated for.
func CellsFromGrid(boundaryID uuid.UUID, cells []grid.Cell) []Cell {
	converted := make([]Cell, 0, len(cells))
	for _, cell := range cells {
		converted = append(converted, Cell{
			BoundaryID: boundaryID,
			TileID:     cell.ID,
			Polygon:    cell.Polygon,
			Centroid:   cell.Centroid,
		})
	}
	return converted
}

// GridCells converts persisted cells back into the shape the point locator
// works on. Column and row indices are not persisted, the identifier is the
// only key downstream consumers rely on.
func GridCells(cells []Cell) []grid.Cell {
	converted := make([]grid.Cell, 0, len(cells))
	for _, cell := range cells {
		converted = append(converted, grid.Cell{
			ID:       cell.TileID,
			Polygon:  cell.Polygon,
			Centroid: cell.Centroid,
		})
	}
	return converted
}
