// Package grid lays actors out in a virtual cell grid and partitions that
// grid into tiles small enough for one bounded raster surface each.
//
// Both computations are pure: the same actor count, cell size and maximum
// surface edge always produce the same layout and the same tiles in the same
// order, so actor-to-tile assignment is reproducible from the count alone.
package grid

import (
	"image"
	"math"
)

// Layout is the virtual grid derived from an actor count.
//
// Actor i occupies cell (i % Columns, i / Columns). Rows counts the
// completely filled rows; OverflowRow additionally counts a trailing partial
// row, so Columns*OverflowRow >= TotalActors.
type Layout struct {
	Columns     int
	Rows        int
	OverflowRow int
	TotalActors int
}

// ComputeGrid returns the layout for actorCount actors. A non-positive count
// yields the zero Layout.
func ComputeGrid(actorCount int) Layout {
	if actorCount <= 0 {
		return Layout{}
	}

	columns := int(math.Ceil(math.Sqrt(float64(actorCount))))
	// Guard against float rounding on perfect squares.
	for columns*columns < actorCount {
		columns++
	}
	for columns > 1 && (columns-1)*(columns-1) >= actorCount {
		columns--
	}

	rows := actorCount / columns
	overflow := rows
	if actorCount > columns*rows {
		overflow++
	}

	return Layout{
		Columns:     columns,
		Rows:        rows,
		OverflowRow: overflow,
		TotalActors: actorCount,
	}
}

// Cell returns the grid cell of actor i.
func (l Layout) Cell(i int) image.Point {
	return image.Pt(i%l.Columns, i/l.Columns)
}

// Index returns the actor index at cell, or -1 if no actor occupies it.
func (l Layout) Index(cell image.Point) int {
	if cell.X < 0 || cell.X >= l.Columns || cell.Y < 0 || cell.Y >= l.OverflowRow {
		return -1
	}
	i := cell.Y*l.Columns + cell.X
	if i >= l.TotalActors {
		return -1
	}
	return i
}

// Bounds returns the full cell rectangle, overflow row included.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Columns, l.OverflowRow)
}

// PixelSize returns the size of the whole grid for the given cell size.
func (l Layout) PixelSize(cellWidth, cellHeight int) image.Point {
	return image.Pt(l.Columns*cellWidth, l.OverflowRow*cellHeight)
}
