package grid

import (
	"fmt"
	"iter"
	"math"
)

// Grid is an immutable lattice of square cells laid over a physical region.
type Grid struct {
	region  Region
	spacing float64
	cols    int
	rows    int
}

// MaxCells is the largest cell count a grid may have. Cell indices are
// stored as int32 in adjacency lists and frontier state.
const MaxCells = math.MaxInt32

// New builds a grid over region with the given cell spacing.
// Returns ErrInvalidSpacing if spacing is not a positive finite number and
// ErrInvalidRegion if the region has no area or would need more than
// MaxCells cells.
// Complexity: O(1).
func New(region Region, spacing float64) (*Grid, error) {
	if math.IsNaN(spacing) || math.IsInf(spacing, 0) || spacing <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpacing, spacing)
	}
	region = NewRegion(region.Min, region.Max)
	if !region.valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegion, region)
	}
	cols := math.Ceil(region.Width() / spacing)
	rows := math.Ceil(region.Height() / spacing)
	if !(cols*rows <= MaxCells) {
		return nil, fmt.Errorf("%w: %s at spacing %g needs %g cells, limit %d",
			ErrInvalidRegion, region, spacing, cols*rows, MaxCells)
	}
	return &Grid{
		region:  region,
		spacing: spacing,
		cols:    int(cols),
		rows:    int(rows),
	}, nil
}

// Region returns the physical bounds the grid was built from.
func (g *Grid) Region() Region { return g.region }

// Spacing returns the cell edge length.
func (g *Grid) Spacing() float64 { return g.spacing }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Len returns the total number of cells.
func (g *Grid) Len() int { return g.cols * g.rows }

// Valid reports whether c lies within the grid.
func (g *Grid) Valid(c Cell) bool {
	return c.Col >= 0 && c.Col < g.cols && c.Row >= 0 && c.Row < g.rows
}

// Index maps a valid cell to its row-major flat index.
// The result is meaningless for invalid cells; check with Valid first.
func (g *Grid) Index(c Cell) int {
	return c.Row*g.cols + c.Col
}

// CellAt converts a row-major flat index back to a cell.
func (g *Grid) CellAt(i int) Cell {
	return Cell{Col: i % g.cols, Row: i / g.cols}
}

// ToCell maps a physical point to the cell that contains it.
// Bounds are inclusive; a point on the upper edge maps to the last column/row.
func (g *Grid) ToCell(p Point) (Cell, error) {
	if !g.region.Contains(p) {
		return NoCell, &OutOfBoundsError{Point: p, Region: g.region}
	}
	col := int(math.Floor((p.X - g.region.Min.X) / g.spacing))
	row := int(math.Floor((p.Y - g.region.Min.Y) / g.spacing))
	return Cell{Col: min(col, g.cols-1), Row: min(row, g.rows-1)}, nil
}

// ToPhysical returns the center of cell c.
func (g *Grid) ToPhysical(c Cell) Point {
	return Point{
		X: g.region.Min.X + (float64(c.Col)+0.5)*g.spacing,
		Y: g.region.Min.Y + (float64(c.Row)+0.5)*g.spacing,
	}
}

// Contains returns every cell whose center lies inside sub, in row-major order.
// The sub-region may extend past the grid; only valid cells are returned.
func (g *Grid) Contains(sub Region) []Cell {
	sub = NewRegion(sub.Min, sub.Max)
	if math.IsNaN(sub.Min.X) || math.IsNaN(sub.Min.Y) || math.IsNaN(sub.Max.X) || math.IsNaN(sub.Max.Y) {
		return nil
	}

	// Candidate range padded by one cell, then filtered on the exact centers
	// so the result agrees with ToPhysical.
	colLo := clampIndex(math.Floor((sub.Min.X-g.region.Min.X)/g.spacing)-1, g.cols)
	colHi := clampIndex(math.Ceil((sub.Max.X-g.region.Min.X)/g.spacing), g.cols)
	rowLo := clampIndex(math.Floor((sub.Min.Y-g.region.Min.Y)/g.spacing)-1, g.rows)
	rowHi := clampIndex(math.Ceil((sub.Max.Y-g.region.Min.Y)/g.spacing), g.rows)

	var cells []Cell
	for row := rowLo; row <= rowHi; row++ {
		for col := colLo; col <= colHi; col++ {
			c := Cell{Col: col, Row: row}
			if sub.Contains(g.ToPhysical(c)) {
				cells = append(cells, c)
			}
		}
	}
	return cells
}

// clampIndex converts f to an index in [0, n-1], saturating infinities.
func clampIndex(f float64, n int) int {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > float64(n-1):
		return n - 1
	}
	return int(f)
}

// Cells yields every cell in row-major order.
func (g *Grid) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for i := range g.Len() {
			if !yield(g.CellAt(i)) {
				return
			}
		}
	}
}
