package vga

import (
	"fmt"
	"strings"

	"github.com/matzehuels/vgadepth/pkg/grid"
)

// Connectivity selects which lattice neighbors see each other.
type Connectivity int

const (
	// Conn4 connects orthogonal neighbors: N, E, S, W.
	Conn4 Connectivity = iota
	// Conn8 also connects diagonals: N, NE, E, SE, S, SW, W, NW.
	Conn8
)

var (
	// Rows grow with Y, so N is row+1.
	offsets4 = [][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	offsets8 = [][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
)

func (c Connectivity) offsets() [][2]int {
	if c == Conn8 {
		return offsets8
	}
	return offsets4
}

func (c Connectivity) String() string {
	if c == Conn8 {
		return "8"
	}
	return "4"
}

// ParseConnectivity accepts "4" or "8" (also "conn4"/"conn8").
func ParseConnectivity(s string) (Connectivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "4", "conn4":
		return Conn4, nil
	case "8", "conn8":
		return Conn8, nil
	}
	return Conn4, fmt.Errorf("vga: unknown connectivity %q (want 4 or 8)", s)
}

// Open reports whether a cell takes part in the graph. A nil Open treats
// every cell as open.
type Open func(grid.Cell) bool

func (o Open) has(c grid.Cell) bool { return o == nil || o(c) }

// Lattice connects every open cell to its open lattice neighbors.
// Neighbor lists follow the connectivity's offset order.
func Lattice(g *grid.Grid, conn Connectivity, open Open) *Graph {
	v := New(g)
	offs := conn.offsets()
	for c := range g.Cells() {
		if !open.has(c) {
			continue
		}
		i := g.Index(c)
		nbrs := make([]int32, 0, len(offs))
		for _, d := range offs {
			n := grid.Cell{Col: c.Col + d[0], Row: c.Row + d[1]}
			if g.Valid(n) && open.has(n) {
				nbrs = append(nbrs, int32(g.Index(n)))
			}
		}
		v.adj[i] = nbrs
	}
	v.indexEdges()
	return v
}

// FullVisibility connects every pair of open cells, as in an unobstructed
// convex space. Memory is quadratic in the number of open cells.
func FullVisibility(g *grid.Grid, open Open) *Graph {
	v := New(g)
	var cells []int32
	for c := range g.Cells() {
		if open.has(c) {
			cells = append(cells, int32(g.Index(c)))
		}
	}
	for _, i := range cells {
		nbrs := make([]int32, 0, len(cells)-1)
		for _, j := range cells {
			if j != i {
				nbrs = append(nbrs, j)
			}
		}
		v.adj[i] = nbrs
	}
	v.indexEdges()
	return v
}

// indexEdges records the edges of builder-filled adjacency lists in
// row-major order of the lower endpoint.
func (v *Graph) indexEdges() {
	for i, nbrs := range v.adj {
		for _, j := range nbrs {
			if int(j) > i {
				v.order = append(v.order, [2]int32{int32(i), j})
			}
		}
	}
}
