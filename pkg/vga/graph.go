package vga

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/matzehuels/vgadepth/pkg/grid"
)

var (
	// ErrGraphInUse is returned by AddEdge while the graph is pinned by a run.
	ErrGraphInUse = errors.New("vga: graph is pinned by a running analysis")

	// ErrSelfLoop is returned when both endpoints of an edge are the same cell.
	ErrSelfLoop = errors.New("vga: self-loop")

	// ErrInvalidCell is returned when an edge endpoint lies outside the grid.
	ErrInvalidCell = errors.New("vga: cell not in grid")
)

// Graph is an undirected visibility graph over the cells of one grid.
//
// Reads (NeighborsOf, Degree, EdgeCount) may run concurrently with each
// other. Writes are rejected while the graph is pinned.
type Graph struct {
	grid  *grid.Grid
	adj   [][]int32
	order [][2]int32 // edges in insertion order

	mu   sync.Mutex
	pins int
}

// New returns an edgeless graph over g.
func New(g *grid.Grid) *Graph {
	return &Graph{grid: g, adj: make([][]int32, g.Len())}
}

// Grid returns the grid the graph is defined on.
func (v *Graph) Grid() *grid.Grid { return v.grid }

// AddEdge records mutual visibility between a and b. Adding an existing edge
// is a no-op.
func (v *Graph) AddEdge(a, b grid.Cell) error {
	if !v.grid.Valid(a) {
		return fmt.Errorf("%w: %s", ErrInvalidCell, a)
	}
	if !v.grid.Valid(b) {
		return fmt.Errorf("%w: %s", ErrInvalidCell, b)
	}
	if a == b {
		return fmt.Errorf("%w: %s", ErrSelfLoop, a)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pins > 0 {
		return ErrGraphInUse
	}
	ia, ib := int32(v.grid.Index(a)), int32(v.grid.Index(b))
	if slices.Contains(v.adj[ia], ib) {
		return nil
	}
	v.adj[ia] = append(v.adj[ia], ib)
	v.adj[ib] = append(v.adj[ib], ia)
	v.order = append(v.order, [2]int32{min(ia, ib), max(ia, ib)})
	return nil
}

// NeighborsOf yields the cells visible from c in insertion order.
// An invalid cell has no neighbors.
func (v *Graph) NeighborsOf(c grid.Cell) iter.Seq[grid.Cell] {
	return func(yield func(grid.Cell) bool) {
		if !v.grid.Valid(c) {
			return
		}
		for _, j := range v.adj[v.grid.Index(c)] {
			if !yield(v.grid.CellAt(int(j))) {
				return
			}
		}
	}
}

// Degree returns the number of cells visible from c.
func (v *Graph) Degree(c grid.Cell) int {
	if !v.grid.Valid(c) {
		return 0
	}
	return len(v.adj[v.grid.Index(c)])
}

// EdgeCount returns the number of undirected edges.
func (v *Graph) EdgeCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.order)
}

// Edges yields every undirected edge once, lower index first. Graphs built
// with AddEdge yield edges in the order they were added, so adding them to a
// new graph in this order reproduces every neighbor order. Lattice and
// FullVisibility graphs yield edges in row-major order of the lower endpoint.
func (v *Graph) Edges() iter.Seq2[grid.Cell, grid.Cell] {
	return func(yield func(grid.Cell, grid.Cell) bool) {
		for _, e := range v.order {
			if !yield(v.grid.CellAt(int(e[0])), v.grid.CellAt(int(e[1]))) {
				return
			}
		}
	}
}

// Pin marks the graph as in use. The returned function releases the pin and
// is safe to call more than once.
func (v *Graph) Pin() (release func()) {
	v.mu.Lock()
	v.pins++
	v.mu.Unlock()
	return sync.OnceFunc(func() {
		v.mu.Lock()
		v.pins--
		v.mu.Unlock()
	})
}

// Pinned reports whether any run currently holds the graph.
func (v *Graph) Pinned() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pins > 0
}
