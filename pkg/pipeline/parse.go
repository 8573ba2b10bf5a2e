package pipeline

import (
	"errors"
	"io/fs"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/selection"
	"github.com/matzehuels/vgadepth/pkg/vga"
)

// LoadGraph returns opts.Graph or reads it from opts.GraphPath, together
// with its content hash. Graphs larger than opts.MaxCells are rejected.
func LoadGraph(opts Options) (*vga.Graph, string, error) {
	g := opts.Graph
	if g == nil {
		var err error
		if g, err = vga.ImportJSON(opts.GraphPath, vga.WithMaxCells(opts.MaxCells)); err != nil {
			switch {
			case errors.Is(err, fs.ErrNotExist):
				return nil, "", vgaerrors.Wrap(vgaerrors.ErrCodeFileNotFound, err, "Failed to load file %s", opts.GraphPath)
			case errors.Is(err, vga.ErrTooManyCells):
				return nil, "", vgaerrors.Wrap(vgaerrors.ErrCodeInvalidInput, err, "graph %s is too large", opts.GraphPath)
			}
			return nil, "", vgaerrors.Wrap(vgaerrors.ErrCodeInvalidFormat, err, "invalid graph %s", opts.GraphPath)
		}
	}
	if n := g.Grid().Len(); opts.MaxCells > 0 && n > opts.MaxCells {
		return nil, "", vgaerrors.New(vgaerrors.ErrCodeInvalidInput, "graph has %d cells, limit %d", n, opts.MaxCells)
	}
	return g, g.Hash(), nil
}

// LoadPoints returns opts.Points or reads them from opts.PointsFile.
func LoadPoints(opts Options) ([]grid.Point, error) {
	if len(opts.Points) > 0 {
		return opts.Points, nil
	}
	return selection.LoadFile(opts.PointsFile, opts.Delimiter)
}

// Select resolves points to origin cells on g. Every point is checked
// against the grid region before any cell is selected.
func Select(g *grid.Grid, pts []grid.Point) (*selection.Set, error) {
	return selection.FromPoints(g, pts)
}
