package grid

import (
	"errors"
	"fmt"
	"math"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
)

// Sentinel errors for grid construction.
var (
	// ErrInvalidSpacing indicates a spacing that is zero, negative or not finite.
	ErrInvalidSpacing = errors.New("grid: spacing must be positive and finite")

	// ErrInvalidRegion indicates a region with zero extent on an axis,
	// non-finite corners, or too many cells at the requested spacing.
	ErrInvalidRegion = errors.New("grid: invalid region")
)

// Point is a location in physical (world) coordinates.
type Point struct {
	X, Y float64
}

// String formats the point as "x,y", the same form accepted on the command line.
func (p Point) String() string {
	return fmt.Sprintf("%g,%g", p.X, p.Y)
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Region is an axis-aligned rectangle given by its lower-left (Min) and
// upper-right (Max) corners. Bounds are inclusive.
type Region struct {
	Min, Max Point
}

// NewRegion returns the region spanned by two opposite corners in any order.
func NewRegion(a, b Point) Region {
	return Region{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns the extent along X.
func (r Region) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the extent along Y.
func (r Region) Height() float64 { return r.Max.Y - r.Min.Y }

// Contains reports whether p lies inside r, edges included.
func (r Region) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// String formats the region as "(minx,miny)-(maxx,maxy)".
func (r Region) String() string {
	return fmt.Sprintf("(%s)-(%s)", r.Min, r.Max)
}

func (r Region) valid() bool {
	for _, v := range []float64{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Max.X > r.Min.X && r.Max.Y > r.Min.Y
}

// Cell identifies one grid location by column and row.
type Cell struct {
	Col, Row int
}

// NoCell is the zero-information cell used where a predecessor is absent.
var NoCell = Cell{Col: -1, Row: -1}

// String formats the cell as "(col,row)".
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// OutOfBoundsError is returned by [Grid.ToCell] when a point lies outside the
// grid region.
type OutOfBoundsError struct {
	Point  Point
	Region Region
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("grid: point %s outside region %s", e.Point, e.Region)
}

// Code reports the structured error code.
func (e *OutOfBoundsError) Code() vgaerrors.Code { return vgaerrors.ErrCodeOutOfBounds }
