// Package dot renders visibility graphs as Graphviz diagrams.
//
// # Overview
//
// Each grid cell becomes a square node pinned at its physical position, and
// each visible pair becomes an undirected edge. When a depth column is
// supplied, nodes are filled on a blue-to-red scale by depth; undefined
// cells are grey.
//
// # Usage
//
//	src := dot.ToDOT(vis, values, dot.Options{Labels: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// The layout engine is neato with pinned positions, so the diagram keeps
// the grid's geometry. Diagrams are meant for small grids; [ToDOT] itself
// has no limit but [RenderSVG] refuses sources above [MaxNodes] nodes.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package dot
