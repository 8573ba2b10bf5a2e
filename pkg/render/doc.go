// Package render provides visual output for visibility graphs.
//
// The [dot] subpackage converts a (small) visibility graph and an optional
// depth column into Graphviz DOT source and renders it to SVG in-process.
//
//	src := dot.ToDOT(vis, values, dot.Options{Labels: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// [dot]: github.com/matzehuels/vgadepth/pkg/render/dot
package render
