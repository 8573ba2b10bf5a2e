// Package depth computes step depth over a visibility graph.
//
// # Overview
//
// Given a set of origin cells, the engine assigns every reachable cell its
// distance to the nearest origin under one of three cost models and writes
// the result into a column of an [attr.Store]. Cells with no path to any
// origin stay Undefined.
//
// # Cost Models
//
//   - [UnitStep] ("visual"): every edge costs 1. The frontier is a FIFO queue
//     and the search is plain breadth-first search.
//   - [Metric] ("metric"): an edge costs the straight-line distance between
//     the two cell centers. Dijkstra over a priority queue.
//   - [Angular] ("angular"): an edge costs the turn, in radians within
//     [0, π], between the direction the current cell was entered and the
//     direction of the edge. The first step out of an origin costs 0. Costs
//     are summed along the path. Dijkstra over a priority queue.
//
// # Determinism
//
// A candidate cost replaces the current one only if strictly smaller, and
// equal-cost frontier entries leave in the order they were discovered. With
// the graph's stable neighbor order, repeated runs over the same inputs
// produce identical columns.
//
// # Run Lifecycle
//
// Each run moves through [StateInitializing], [StatePropagating],
// [StateFinalizing] and [StateDone]. The target column is reset on entry and
// only written in the finalizing state. Every N settlements (see
// [WithCheckEvery]) the engine reports progress to its [ProgressSink] and
// asks whether to stop; if so the run ends in [StateCancelled] with the
// column still fully reset and returns a [*CancelledError].
//
// # Concurrency
//
// A run is single-threaded. The engine holds the column's writer for the
// whole run and pins the graph if it supports pinning, so independent runs
// on different columns may proceed concurrently.
//
// [attr.Store]: github.com/matzehuels/vgadepth/pkg/attr.Store
package depth
