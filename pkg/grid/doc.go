// Package grid maps a rectangular physical region onto a lattice of cells.
//
// # Overview
//
// A [Grid] is created once from a [Region] (lower-left and upper-right
// corners) and a positive cell spacing. Column and row counts are
// ceil((max-min)/spacing) along each axis, so the last column or row may
// extend past the region's upper edge by less than one spacing.
//
// Cells are identified by their integer (column, row) pair and are stored in
// row-major flat arrays everywhere else in vgadepth:
//
//	index = row*Cols + col
//
// [Grid.Index] and [Grid.CellAt] convert between the two forms.
//
// # Coordinate Mapping
//
// [Grid.ToCell] maps a physical point to the cell containing it. Region bounds
// are inclusive: a point lying exactly on the upper edge maps to the last
// column or row. Points outside the region fail with [OutOfBoundsError].
//
// [Grid.ToPhysical] returns the center of a cell (lower-left corner plus half
// a spacing). Every valid cell's center lies within the region expanded by
// half a spacing.
//
// [Grid.Contains] returns all cells whose center lies inside a sub-region, in
// row-major order. It is used to build regional selection sets.
//
// # Concurrency
//
// A Grid is immutable after [New] returns and is safe for concurrent use.
package grid
