// Package vga holds the visibility graph of a grid: the symmetric relation
// stating which cells can see each other.
//
// # Overview
//
// Visibility is computed upstream (by an isovist or line-of-sight pass) and
// handed to this package as an edge list. A [Graph] stores it as adjacency
// lists over row-major cell indices, one list per cell, so memory grows with
// the number of edges rather than with pointers between cells.
//
// # Neighbor Order
//
// [Graph.NeighborsOf] yields neighbors in insertion order. The order is
// stable across calls as long as the graph is not modified, which makes
// tie-breaking in the depth engine reproducible. Builders fill the lists in a
// fixed order:
//
//   - [Lattice] visits the Conn4 offsets N, E, S, W (Conn8 adds the diagonals
//     clockwise from NE).
//   - [FullVisibility] lists every other open cell in row-major order.
//   - [ReadJSON] replays the file's edge list in file order.
//
// [WriteJSON] emits edges in insertion order, so a graph built edge by edge
// reads back with the same neighbor order and the same [Graph.Hash]. Builder
// neighbor orders cannot always be expressed as one edge sequence (Conn8 is
// such a case); their JSON form reads back with file-order neighbors and a
// different hash.
//
// # Pinning
//
// A graph must not change while an analysis reads it. [Graph.Pin] marks the
// graph as in use and returns a release function; [Graph.AddEdge] fails with
// [ErrGraphInUse] until every pin has been released.
//
// # JSON Format
//
//	{
//	  "region":  {"min": [0, 0], "max": [3, 3]},
//	  "spacing": 1,
//	  "edges":   [[0, 0, 1, 0], [1, 0, 2, 0]]
//	}
//
// Each edge is [col1, row1, col2, row2]. Edges are undirected; listing both
// directions is allowed and deduplicated. [WithMaxCells] bounds the grid
// size a reader accepts.
package vga
