package selection

import (
	"fmt"
	"iter"
	"slices"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
)

// ErrNoPoints is returned by FromPoints when given no points.
var ErrNoPoints = vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "selection: no points given")

// Set is an ordered set of origin cells. The zero value is an empty set.
type Set struct {
	cells []grid.Cell
}

// Len returns the number of origins.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cells)
}

// Empty reports whether the set has no origins.
func (s *Set) Empty() bool { return s.Len() == 0 }

// Cells returns a copy of the origins in insertion order.
func (s *Set) Cells() []grid.Cell {
	if s == nil {
		return nil
	}
	return slices.Clone(s.cells)
}

// All yields the origins in insertion order.
func (s *Set) All() iter.Seq[grid.Cell] {
	return func(yield func(grid.Cell) bool) {
		if s == nil {
			return
		}
		for _, c := range s.cells {
			if !yield(c) {
				return
			}
		}
	}
}

func newSet(cells []grid.Cell) *Set {
	seen := make(map[grid.Cell]struct{}, len(cells))
	out := make([]grid.Cell, 0, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return &Set{cells: out}
}

// Of builds a set from cells that are already known to lie in g.
// Invalid cells fail with an INVALID_CELL error.
func Of(g *grid.Grid, cells ...grid.Cell) (*Set, error) {
	for _, c := range cells {
		if !g.Valid(c) {
			return nil, vgaerrors.New(vgaerrors.ErrCodeInvalidCell, "selection: cell %s is not in the grid", c)
		}
	}
	return newSet(cells), nil
}

// FromPoints maps every point to its grid cell. Several points falling in
// the same cell select it once.
func FromPoints(g *grid.Grid, pts []grid.Point) (*Set, error) {
	if len(pts) == 0 {
		return nil, ErrNoPoints
	}
	cells := make([]grid.Cell, len(pts))
	for i, p := range pts {
		c, err := g.ToCell(p)
		if err != nil {
			return nil, &PointOutsideRegionError{Point: p, Region: g.Region(), Index: i, cause: err}
		}
		cells[i] = c
	}
	return newSet(cells), nil
}

// FromRegion selects every cell whose center lies in r. The result may be
// empty; an analysis over an empty set writes nothing.
func FromRegion(g *grid.Grid, r grid.Region) *Set {
	return &Set{cells: g.Contains(r)}
}

// PointOutsideRegionError reports a selection point outside the grid region.
type PointOutsideRegionError struct {
	Point  grid.Point
	Region grid.Region
	// Index is the position of Point in the input.
	Index int

	cause error
}

func (e *PointOutsideRegionError) Error() string {
	return fmt.Sprintf("Point outside of target region: %s not in %s", e.Point, e.Region)
}

func (e *PointOutsideRegionError) Unwrap() error { return e.cause }

// Code reports the structured error code.
func (e *PointOutsideRegionError) Code() vgaerrors.Code { return vgaerrors.ErrCodePointOutsideRegion }
