package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/persist"
	"github.com/matzehuels/vgadepth/pkg/render/dot"
	"github.com/matzehuels/vgadepth/pkg/vga"
)

// graphCommand groups commands that build and draw visibility graphs.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build and draw visibility graphs",
	}
	cmd.AddCommand(c.graphLatticeCommand())
	cmd.AddCommand(c.graphDotCommand())
	return cmd
}

type latticeFlags struct {
	min, max string
	spacing  float64
	conn     string   // 4, 8 or full
	blocks   []string // "x0,y0,x1,y1" obstacles
	output   string
}

// graphLatticeCommand creates "graph lattice".
func (c *CLI) graphLatticeCommand() *cobra.Command {
	f := latticeFlags{spacing: 1, conn: "8"}

	cmd := &cobra.Command{
		Use:   "lattice",
		Short: "Generate a lattice visibility graph over a region",
		Long: `Generate a visibility graph over a rectangular region.

Connectivity 4 and 8 link each open cell to its lattice neighbors. "full"
links every pair of open cells, as inside one convex space. Cells whose
centers fall inside a --block rectangle are left out of the graph.`,
		Example: `  vgadepth graph lattice --min 0,0 --max 20,10 --spacing 0.5 -o floor.json
  vgadepth graph lattice --min 0,0 --max 9,9 --block 4,0,5,7 --conn 4 -o wall.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLattice(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.min, "min", "", `lower-left corner "x,y"`)
	cmd.Flags().StringVar(&f.max, "max", "", `upper-right corner "x,y"`)
	cmd.Flags().Float64Var(&f.spacing, "spacing", f.spacing, "cell edge length")
	cmd.Flags().StringVar(&f.conn, "conn", f.conn, "connectivity: 4, 8, full")
	cmd.Flags().StringArrayVar(&f.blocks, "block", nil, `obstacle rectangle "x0,y0,x1,y1" (repeatable)`)
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output graph JSON file")
	_ = cmd.MarkFlagRequired("min")
	_ = cmd.MarkFlagRequired("max")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *CLI) runLattice(ctx context.Context, f latticeFlags) error {
	v, err := buildLattice(f, c.Config.Analysis.MaxCells)
	if err != nil {
		return err
	}
	if err := vgaerrors.ValidatePath(f.output); err != nil {
		return err
	}
	if err := vga.ExportJSON(v, f.output); err != nil {
		return vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "write graph")
	}

	loggerFromContext(ctx).Debug("wrote lattice", "cols", v.Grid().Cols(), "rows", v.Grid().Rows())
	printSuccess("Graph generated")
	printFile(f.output)
	printStats(v.Grid().Len(), v.EdgeCount(), 0, false)
	printNextStep("Compute step depth", fmt.Sprintf("%s stepdepth -g %s -p x,y -t visual", appName, f.output))
	return nil
}

// buildLattice builds the grid and its visibility. maxCells of 0 leaves only
// the grid.MaxCells bound.
func buildLattice(f latticeFlags, maxCells int) (*vga.Graph, error) {
	lo, err := parseCoords(f.min, 2)
	if err != nil {
		return nil, err
	}
	hi, err := parseCoords(f.max, 2)
	if err != nil {
		return nil, err
	}
	g, err := grid.New(grid.NewRegion(grid.Point{X: lo[0], Y: lo[1]}, grid.Point{X: hi[0], Y: hi[1]}), f.spacing)
	if err != nil {
		return nil, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidArgument, err, "invalid grid")
	}
	if maxCells > 0 && g.Len() > maxCells {
		return nil, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument,
			"grid has %d cells, limit %d (raise analysis.max_cells or --spacing)", g.Len(), maxCells)
	}

	blocked := make(map[grid.Cell]bool)
	for _, b := range f.blocks {
		r, err := parseCoords(b, 4)
		if err != nil {
			return nil, err
		}
		for _, cell := range g.Contains(grid.NewRegion(grid.Point{X: r[0], Y: r[1]}, grid.Point{X: r[2], Y: r[3]})) {
			blocked[cell] = true
		}
	}
	var open vga.Open
	if len(blocked) > 0 {
		open = func(c grid.Cell) bool { return !blocked[c] }
	}

	if strings.EqualFold(strings.TrimSpace(f.conn), "full") {
		return vga.FullVisibility(g, open), nil
	}
	conn, err := vga.ParseConnectivity(f.conn)
	if err != nil {
		return nil, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidArgument, err, "--conn")
	}
	return vga.Lattice(g, conn, open), nil
}

// parseCoords parses n comma-separated finite numbers.
func parseCoords(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidArgument, err, "invalid number %q", p)
		}
		out[i] = v
	}
	return out, nil
}

type dotFlags struct {
	column    string
	output    string
	labels    bool
	hideEdges bool
}

// graphDotCommand creates "graph dot".
func (c *CLI) graphDotCommand() *cobra.Command {
	var f dotFlags

	cmd := &cobra.Command{
		Use:   "dot [graph.json]",
		Short: "Draw a visibility graph as DOT or SVG",
		Long: `Draw a visibility graph with Graphviz, optionally colored by a depth column
written with 'stepdepth -o column.json'. The output format follows the
extension of --output: .dot writes Graphviz source, .svg renders it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDot(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.column, "column", "", "depth column JSON file to color cells by")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: <input>.svg)")
	cmd.Flags().BoolVar(&f.labels, "labels", false, "write depth values into cells")
	cmd.Flags().BoolVar(&f.hideEdges, "hide-edges", false, "omit visibility edges")

	return cmd
}

func (c *CLI) runDot(ctx context.Context, input string, f dotFlags) error {
	v, err := vga.ImportJSON(input, vga.WithMaxCells(c.Config.Analysis.MaxCells))
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	var values []float64
	if f.column != "" {
		col, err := readColumnFile(f.column)
		if err != nil {
			return err
		}
		if col.Cols != v.Grid().Cols() || col.Rows != v.Grid().Rows() {
			return vgaerrors.New(vgaerrors.ErrCodeInvalidInput, "column %q is %dx%d but the graph grid is %dx%d",
				col.Name, col.Cols, col.Rows, v.Grid().Cols(), v.Grid().Rows())
		}
		values = col.Values
	}

	output := f.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}

	src := dot.ToDOT(v, values, dot.Options{Labels: f.labels, HideEdges: f.hideEdges})
	var data []byte
	switch strings.ToLower(filepath.Ext(output)) {
	case ".dot", ".gv":
		data = []byte(src)
	case ".svg":
		spinner := newSpinnerWithContext(ctx, "Rendering SVG")
		spinner.Start()
		data, err = dot.RenderSVG(ctx, src)
		if err != nil {
			spinner.StopWithError("Render failed")
			return err
		}
		spinner.Stop()
	default:
		return vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "unsupported output %s (want .dot or .svg)", output)
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "write %s", output)
	}
	printSuccess("Diagram written")
	printFile(output)
	return nil
}

func readColumnFile(path string) (persist.Column, error) {
	fh, err := os.Open(path)
	if os.IsNotExist(err) {
		return persist.Column{}, vgaerrors.Wrap(vgaerrors.ErrCodeFileNotFound, err, "column file %s", path)
	}
	if err != nil {
		return persist.Column{}, err
	}
	defer fh.Close()
	col, err := persist.ReadJSON(fh)
	if err != nil {
		return persist.Column{}, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidFormat, err, "column file %s", path)
	}
	return col, nil
}
