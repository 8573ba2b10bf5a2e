package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/matzehuels/vgadepth/pkg/attr"
	"github.com/matzehuels/vgadepth/pkg/grid"
)

// Sink stores named columns.
type Sink interface {
	WriteColumn(ctx context.Context, col Column) error
}

// Column is a snapshot of one attribute column with its grid geometry.
type Column struct {
	Name    string
	Cols    int
	Rows    int
	Spacing float64
	Region  grid.Region
	// Values holds one entry per cell in row-major order; NaN is undefined.
	Values []float64
}

// FromStore snapshots column h of s.
func FromStore(s *attr.Store, h attr.ColumnHandle) (Column, error) {
	name, err := s.Name(h)
	if err != nil {
		return Column{}, err
	}
	vals, err := s.Values(h)
	if err != nil {
		return Column{}, err
	}
	g := s.Grid()
	return Column{
		Name:    name,
		Cols:    g.Cols(),
		Rows:    g.Rows(),
		Spacing: g.Spacing(),
		Region:  g.Region(),
		Values:  vals,
	}, nil
}

// Grid rebuilds the grid the column was taken from.
func (c Column) Grid() (*grid.Grid, error) {
	return grid.New(c.Region, c.Spacing)
}

// Cell returns the cell of the i-th value.
func (c Column) Cell(i int) grid.Cell {
	return grid.Cell{Col: i % c.Cols, Row: i / c.Cols}
}

// Nullable returns the values with undefined cells as nil.
func (c Column) Nullable() []*float64 {
	out := make([]*float64, len(c.Values))
	for i, v := range c.Values {
		if !math.IsNaN(v) {
			out[i] = &v
		}
	}
	return out
}

// Defined returns the number of cells with a value.
func (c Column) Defined() int {
	n := 0
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

func (c Column) validate() error {
	if c.Name == "" {
		return fmt.Errorf("persist: column has no name")
	}
	if c.Cols <= 0 || c.Rows <= 0 || len(c.Values) != c.Cols*c.Rows {
		return fmt.Errorf("persist: column %q has %d values for a %dx%d grid", c.Name, len(c.Values), c.Cols, c.Rows)
	}
	return nil
}

type columnJSON struct {
	Name    string     `json:"name"`
	Cols    int        `json:"cols"`
	Rows    int        `json:"rows"`
	Spacing float64    `json:"spacing"`
	Min     [2]float64 `json:"min"`
	Max     [2]float64 `json:"max"`
	Values  []*float64 `json:"values"`
}

// MarshalJSON encodes undefined values as null.
func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(columnJSON{
		Name:    c.Name,
		Cols:    c.Cols,
		Rows:    c.Rows,
		Spacing: c.Spacing,
		Min:     [2]float64{c.Region.Min.X, c.Region.Min.Y},
		Max:     [2]float64{c.Region.Max.X, c.Region.Max.Y},
		Values:  c.Nullable(),
	})
}

// UnmarshalJSON decodes null values as undefined.
func (c *Column) UnmarshalJSON(data []byte) error {
	var raw columnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Column{
		Name:    raw.Name,
		Cols:    raw.Cols,
		Rows:    raw.Rows,
		Spacing: raw.Spacing,
		Region: grid.Region{
			Min: grid.Point{X: raw.Min[0], Y: raw.Min[1]},
			Max: grid.Point{X: raw.Max[0], Y: raw.Max[1]},
		},
		Values: make([]float64, len(raw.Values)),
	}
	for i, v := range raw.Values {
		if v == nil {
			c.Values[i] = attr.Undefined
		} else {
			c.Values[i] = *v
		}
	}
	return nil
}
