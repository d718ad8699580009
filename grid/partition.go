package grid

import (
	"image"

	"github.com/gogpu/swarm/config"
)

// Tile is one bounded surface's share of the grid.
type Tile struct {
	// Column and Row locate the tile in the tile grid.
	Column int
	Row    int

	// PixelWidth and PixelHeight are the surface size; both are at most the
	// maximum surface edge.
	PixelWidth  int
	PixelHeight int

	// Cells is the half-open range of grid cells owned by this tile.
	Cells image.Rectangle
}

// Size returns the tile's pixel size.
func (t Tile) Size() image.Point {
	return image.Pt(t.PixelWidth, t.PixelHeight)
}

// Origin returns the pixel position of the tile's top-left corner within
// the whole grid.
func (t Tile) Origin(cellWidth, cellHeight int) image.Point {
	return image.Pt(t.Cells.Min.X*cellWidth, t.Cells.Min.Y*cellHeight)
}

// Partition is the ordered set of tiles covering a layout.
//
// Tiles are stored column-major: all rows of tile column 0, then all rows of
// tile column 1, and so on. Tile (c, r) is at index c*TileRows + r.
type Partition struct {
	Layout Layout
	Tiles  []Tile

	TileColumns int
	TileRows    int

	// CellsX and CellsY are the cells per full tile along each axis.
	CellsX int
	CellsY int

	CellWidth  int
	CellHeight int
}

// ComputePartition divides layout into tiles no larger than maxSurfaceEdge
// on either axis. The last tile column and row may be smaller.
//
// It fails with a *config.Error when a single cell does not fit in
// maxSurfaceEdge.
func ComputePartition(layout Layout, cellWidth, cellHeight, maxSurfaceEdge int) (*Partition, error) {
	if err := checkCell(cellWidth, cellHeight, maxSurfaceEdge); err != nil {
		return nil, err
	}

	p := &Partition{
		Layout:     layout,
		CellsX:     maxSurfaceEdge / cellWidth,
		CellsY:     maxSurfaceEdge / cellHeight,
		CellWidth:  cellWidth,
		CellHeight: cellHeight,
	}
	if layout.TotalActors == 0 {
		return p, nil
	}

	p.TileColumns = ceilDiv(layout.Columns, p.CellsX)
	p.TileRows = ceilDiv(layout.OverflowRow, p.CellsY)
	p.Tiles = make([]Tile, 0, p.TileColumns*p.TileRows)

	for c := range p.TileColumns {
		x0 := c * p.CellsX
		x1 := min(x0+p.CellsX, layout.Columns)
		for r := range p.TileRows {
			y0 := r * p.CellsY
			y1 := min(y0+p.CellsY, layout.OverflowRow)
			p.Tiles = append(p.Tiles, Tile{
				Column:      c,
				Row:         r,
				PixelWidth:  (x1 - x0) * cellWidth,
				PixelHeight: (y1 - y0) * cellHeight,
				Cells:       image.Rect(x0, y0, x1, y1),
			})
		}
	}
	return p, nil
}

// Single returns a one-tile partition covering the whole layout regardless
// of surface limits. The Direct strategy uses it: its single surface is
// viewport sized and the camera is baked into each draw.
func Single(layout Layout, cellWidth, cellHeight int, viewport image.Point) *Partition {
	p := &Partition{
		Layout:      layout,
		TileColumns: 1,
		TileRows:    1,
		CellsX:      layout.Columns,
		CellsY:      layout.OverflowRow,
		CellWidth:   cellWidth,
		CellHeight:  cellHeight,
	}
	p.Tiles = []Tile{{
		PixelWidth:  viewport.X,
		PixelHeight: viewport.Y,
		Cells:       layout.Bounds(),
	}}
	return p
}

// TileIndex returns the index into Tiles of tile (column, row), or -1.
func (p *Partition) TileIndex(column, row int) int {
	if column < 0 || column >= p.TileColumns || row < 0 || row >= p.TileRows {
		return -1
	}
	return column*p.TileRows + row
}

// Locate returns the tile index owning actor i and the actor's cell within
// that tile.
func (p *Partition) Locate(i int) (tile int, local image.Point) {
	if p.Layout.Columns == 0 || p.CellsX == 0 || p.CellsY == 0 {
		return -1, image.Point{}
	}
	cell := p.Layout.Cell(i)
	c, r := cell.X/p.CellsX, cell.Y/p.CellsY
	return p.TileIndex(c, r), image.Pt(cell.X%p.CellsX, cell.Y%p.CellsY)
}

// Members returns the actor indices owned by tile t in row-major order
// within the tile. Cells past the last actor are skipped.
func (p *Partition) Members(t int) []int {
	cells := p.Tiles[t].Cells
	out := make([]int, 0, cells.Dx()*cells.Dy())
	for y := cells.Min.Y; y < cells.Max.Y; y++ {
		for x := cells.Min.X; x < cells.Max.X; x++ {
			if i := p.Layout.Index(image.Pt(x, y)); i >= 0 {
				out = append(out, i)
			}
		}
	}
	return out
}

func checkCell(cellWidth, cellHeight, maxSurfaceEdge int) error {
	if cellWidth <= 0 || cellHeight <= 0 {
		return config.Errorf("sprite_set.cell", "cell size must be positive, got %dx%d", cellWidth, cellHeight)
	}
	if maxSurfaceEdge < cellWidth || maxSurfaceEdge < cellHeight {
		return config.Errorf("canvas.max_surface_edge",
			"%d cannot hold one %dx%d sprite cell", maxSurfaceEdge, cellWidth, cellHeight)
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
