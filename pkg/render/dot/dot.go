package dot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/vga"
)

// MaxNodes bounds the diagrams RenderSVG accepts.
const MaxNodes = 2500

// inchesPerCell is the distance between neighboring node centers.
const inchesPerCell = 0.6

// Options configures diagram generation.
type Options struct {
	// Labels writes the depth value into each node.
	Labels bool
	// HideEdges omits visibility edges, leaving only the colored cells.
	HideEdges bool
}

// ToDOT converts a visibility graph to Graphviz DOT source.
// values holds one depth per cell in row-major order (NaN is undefined) and
// may be nil for an uncolored diagram.
func ToDOT(vis *vga.Graph, values []float64, opts Options) string {
	g := vis.Grid()
	maxDepth := maxDefined(values)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=square, style=filled, fixedsize=true, width=0.5, fontsize=10, fillcolor=white];\n")
	buf.WriteString("  edge [color=\"#00000040\"];\n")
	buf.WriteString("\n")

	origin := g.Region().Min
	scale := inchesPerCell / g.Spacing()
	for c := range g.Cells() {
		p := g.ToPhysical(c)
		attrs := []string{
			fmt.Sprintf("pos=\"%.3f,%.3f!\"", (p.X-origin.X)*scale, (p.Y-origin.Y)*scale),
		}
		label := ""
		if i := g.Index(c); i < len(values) {
			v := values[i]
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fillColor(v, maxDepth)))
			if opts.Labels && !math.IsNaN(v) {
				label = strconv.FormatFloat(v, 'g', 3, 64)
			}
		}
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(c), strings.Join(attrs, ", "))
	}

	if !opts.HideEdges {
		buf.WriteString("\n")
		for a, b := range vis.Edges() {
			fmt.Fprintf(&buf, "  %q -- %q;\n", nodeID(a), nodeID(b))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(c grid.Cell) string {
	return fmt.Sprintf("%d,%d", c.Col, c.Row)
}

func maxDefined(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && v > m {
			m = v
		}
	}
	return m
}

// fillColor maps depth to an HSV color string: blue at zero, red at max.
func fillColor(v, maxDepth float64) string {
	if math.IsNaN(v) {
		return "lightgrey"
	}
	t := 0.0
	if maxDepth > 0 {
		t = v / maxDepth
	}
	return fmt.Sprintf("%.3f 0.700 1.000", 0.667*(1-t))
}

// RenderSVG renders DOT source to SVG using Graphviz's neato engine.
func RenderSVG(ctx context.Context, src string) ([]byte, error) {
	if n := strings.Count(src, "pos="); n > MaxNodes {
		return nil, vgaerrors.New(vgaerrors.ErrCodeInvalidInput, "diagram has %d nodes (max %d)", n, MaxNodes)
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root tag so the SVG scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
