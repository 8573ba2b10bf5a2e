// Package pkg provides the libraries behind vgadepth, a step-depth
// analysis engine for visibility graphs.
//
// # Overview
//
// A visibility graph joins the cells of a regular grid laid over a floor
// plan. Step depth measures, for every cell, how far it is from a set of
// origin cells: in visibility steps, in metric path length, or in
// accumulated turn angle. The packages are organized as:
//
//  1. [grid], [vga], [attr], [selection] - the spatial model
//  2. [depth] - the propagation engine
//  3. [pipeline] - orchestration (load → select → propagate → persist)
//  4. [cache], [persist] - result caching and column sinks
//  5. [api], [render] - HTTP surface and Graphviz diagrams
//
// # Architecture
//
//	graph JSON + origin points
//	         ↓
//	    [vga] + [selection] (graph and origin cells)
//	         ↓
//	    [depth] (frontier search into an [attr] column)
//	         ↓
//	    [persist] sinks: JSON, CSV, SQLite, PostgreSQL, MongoDB
//
// # Quick Start
//
//	g, _ := grid.New(grid.Region{Max: grid.Point{X: 20, Y: 10}}, 0.5)
//	v := vga.Lattice(g, vga.Conn8, nil)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Execute(ctx, pipeline.Options{
//	    Graph:  v,
//	    Points: []grid.Point{{X: 1, Y: 1}},
//	    Type:   "angular",
//	})
//	_ = runner.Persist(ctx, res, persist.NewCSVFile("depth.csv"))
package pkg
