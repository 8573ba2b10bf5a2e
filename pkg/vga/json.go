package vga

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/vgadepth/pkg/grid"
)

type document struct {
	Region  region   `json:"region"`
	Spacing float64  `json:"spacing"`
	Edges   [][4]int `json:"edges"`
}

type region struct {
	Min [2]float64 `json:"min"`
	Max [2]float64 `json:"max"`
}

// WriteJSON encodes the graph with its grid geometry and writes it to w.
// The output can be read back with [ReadJSON].
func WriteJSON(v *Graph, w io.Writer) error {
	r := v.grid.Region()
	out := document{
		Region:  region{Min: [2]float64{r.Min.X, r.Min.Y}, Max: [2]float64{r.Max.X, r.Max.Y}},
		Spacing: v.grid.Spacing(),
		Edges:   make([][4]int, 0, v.EdgeCount()),
	}
	for a, b := range v.Edges() {
		out.Edges = append(out.Edges, [4]int{a.Col, a.Row, b.Col, b.Row})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the graph to a JSON file at path.
func ExportJSON(v *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(v, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ErrTooManyCells is returned by ReadJSON when the document's grid has
// more cells than the reader allows.
var ErrTooManyCells = errors.New("vga: grid exceeds cell limit")

// ReadOption configures ReadJSON and ImportJSON.
type ReadOption func(*readConfig)

type readConfig struct {
	maxCells int
}

// WithMaxCells rejects documents whose grid has more than n cells before
// any adjacency storage is allocated. Values below 1 leave only the
// grid.MaxCells bound.
func WithMaxCells(n int) ReadOption {
	return func(c *readConfig) { c.maxCells = n }
}

// ReadJSON decodes a graph and its grid from r.
//
// ReadJSON returns an error if the JSON is malformed, the grid geometry is
// invalid or larger than the configured cell limit, or an edge references a
// cell outside the grid or joins a cell to itself. Errors name the offending
// edge by position. ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...ReadOption) (*Graph, error) {
	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g, err := grid.New(grid.Region{
		Min: grid.Point{X: data.Region.Min[0], Y: data.Region.Min[1]},
		Max: grid.Point{X: data.Region.Max[0], Y: data.Region.Max[1]},
	}, data.Spacing)
	if err != nil {
		return nil, err
	}
	if cfg.maxCells > 0 && g.Len() > cfg.maxCells {
		return nil, fmt.Errorf("%w: %dx%d is %d cells, limit %d",
			ErrTooManyCells, g.Cols(), g.Rows(), g.Len(), cfg.maxCells)
	}

	v := New(g)
	for i, e := range data.Edges {
		a := grid.Cell{Col: e[0], Row: e[1]}
		b := grid.Cell{Col: e[2], Row: e[3]}
		if err := v.AddEdge(a, b); err != nil {
			return nil, fmt.Errorf("edge %d %s-%s: %w", i, a, b, err)
		}
	}
	return v, nil
}

// ImportJSON reads a graph from the JSON file at path.
func ImportJSON(path string, opts ...ReadOption) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, opts...)
}
