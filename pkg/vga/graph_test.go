package vga

import (
	"bytes"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/vgadepth/pkg/grid"
)

func unitGrid(t *testing.T, w, h float64) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.Region{Max: grid.Point{X: w, Y: h}}, 1)
	require.NoError(t, err)
	return g
}

func c(col, row int) grid.Cell { return grid.Cell{Col: col, Row: row} }

func TestAddEdge(t *testing.T) {
	t.Parallel()
	v := New(unitGrid(t, 3, 3))

	require.NoError(t, v.AddEdge(c(0, 0), c(1, 0)))
	require.NoError(t, v.AddEdge(c(0, 0), c(2, 2)))
	require.NoError(t, v.AddEdge(c(1, 0), c(0, 0)))

	assert.Equal(t, 2, v.EdgeCount())
	assert.Equal(t, []grid.Cell{c(1, 0), c(2, 2)}, slices.Collect(v.NeighborsOf(c(0, 0))))
	assert.Equal(t, []grid.Cell{c(0, 0)}, slices.Collect(v.NeighborsOf(c(1, 0))))
	assert.Equal(t, []grid.Cell{c(0, 0)}, slices.Collect(v.NeighborsOf(c(2, 2))))
	assert.Equal(t, 2, v.Degree(c(0, 0)))

	assert.ErrorIs(t, v.AddEdge(c(1, 1), c(1, 1)), ErrSelfLoop)
	assert.ErrorIs(t, v.AddEdge(c(0, 0), c(3, 0)), ErrInvalidCell)
	assert.ErrorIs(t, v.AddEdge(grid.NoCell, c(0, 0)), ErrInvalidCell)

	assert.Empty(t, slices.Collect(v.NeighborsOf(grid.NoCell)))
	assert.Zero(t, v.Degree(grid.NoCell))
}

func TestNeighborsRestartable(t *testing.T) {
	t.Parallel()
	v := Lattice(unitGrid(t, 4, 4), Conn8, nil)

	first := slices.Collect(v.NeighborsOf(c(1, 1)))
	second := slices.Collect(v.NeighborsOf(c(1, 1)))
	assert.Equal(t, first, second)
	assert.Len(t, first, 8)

	// Early break leaves later iteration unaffected.
	for range v.NeighborsOf(c(1, 1)) {
		break
	}
	assert.Equal(t, first, slices.Collect(v.NeighborsOf(c(1, 1))))
}

func TestPin(t *testing.T) {
	t.Parallel()
	v := New(unitGrid(t, 2, 2))

	release := v.Pin()
	assert.True(t, v.Pinned())
	assert.ErrorIs(t, v.AddEdge(c(0, 0), c(1, 0)), ErrGraphInUse)

	other := v.Pin()
	release()
	release()
	assert.True(t, v.Pinned())
	other()
	assert.False(t, v.Pinned())

	require.NoError(t, v.AddEdge(c(0, 0), c(1, 0)))
}

func TestLattice(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 3, 3)

	t.Run("conn4", func(t *testing.T) {
		v := Lattice(g, Conn4, nil)
		assert.Equal(t, 12, v.EdgeCount())
		assert.Equal(t, []grid.Cell{c(1, 2), c(2, 1), c(1, 0), c(0, 1)}, slices.Collect(v.NeighborsOf(c(1, 1))))
		assert.Equal(t, 2, v.Degree(c(0, 0)))
	})

	t.Run("conn8", func(t *testing.T) {
		v := Lattice(g, Conn8, nil)
		assert.Equal(t, 20, v.EdgeCount())
		assert.Equal(t, 8, v.Degree(c(1, 1)))
		assert.Equal(t, 3, v.Degree(c(0, 0)))
	})

	t.Run("blocked cells", func(t *testing.T) {
		v := Lattice(g, Conn4, func(x grid.Cell) bool { return x != c(1, 1) })
		assert.Equal(t, 8, v.EdgeCount())
		assert.Zero(t, v.Degree(c(1, 1)))
		assert.NotContains(t, slices.Collect(v.NeighborsOf(c(1, 0))), c(1, 1))
	})

	t.Run("symmetric", func(t *testing.T) {
		v := Lattice(g, Conn8, nil)
		for a := range g.Cells() {
			for b := range v.NeighborsOf(a) {
				assert.Contains(t, slices.Collect(v.NeighborsOf(b)), a)
			}
		}
	})
}

func TestFullVisibility(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 3, 2)

	v := FullVisibility(g, nil)
	assert.Equal(t, 15, v.EdgeCount())
	assert.Equal(t, 5, v.Degree(c(0, 0)))
	assert.Equal(t, []grid.Cell{c(1, 0), c(2, 0), c(0, 1), c(1, 1), c(2, 1)}, slices.Collect(v.NeighborsOf(c(0, 0))))

	v = FullVisibility(g, func(x grid.Cell) bool { return x.Row == 0 })
	assert.Equal(t, 3, v.EdgeCount())
	assert.Zero(t, v.Degree(c(0, 1)))
}

func TestParseConnectivity(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Connectivity{"4": Conn4, "8": Conn8, "Conn8": Conn8, " conn4 ": Conn4} {
		got, err := ParseConnectivity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseConnectivity("6")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()
	g, err := grid.New(grid.Region{Min: grid.Point{X: -1, Y: 2}, Max: grid.Point{X: 3, Y: 5}}, 0.5)
	require.NoError(t, err)
	v := Lattice(g, Conn8, func(x grid.Cell) bool { return (x.Col+x.Row)%5 != 0 })

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(v, &buf))

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.Region(), back.Grid().Region())
	assert.Equal(t, g.Spacing(), back.Grid().Spacing())
	assert.Equal(t, v.EdgeCount(), back.EdgeCount())

	for x := range g.Cells() {
		want := slices.Collect(v.NeighborsOf(x))
		got := slices.Collect(back.NeighborsOf(x))
		assert.ElementsMatch(t, want, got, "cell %s", x)
	}

	// The file form is stable: writing the read-back graph again yields
	// the same neighbor order.
	var again bytes.Buffer
	require.NoError(t, WriteJSON(back, &again))
	twice, err := ReadJSON(&again)
	require.NoError(t, err)
	assert.Equal(t, back.Hash(), twice.Hash())
}

func TestJSONKeepsNeighborOrder(t *testing.T) {
	t.Parallel()
	v := New(unitGrid(t, 3, 3))
	require.NoError(t, v.AddEdge(c(1, 1), c(2, 2)))
	require.NoError(t, v.AddEdge(c(1, 1), c(0, 0)))
	require.NoError(t, v.AddEdge(c(0, 0), c(2, 0)))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(v, &buf))
	back, err := ReadJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, []grid.Cell{c(2, 2), c(0, 0)}, slices.Collect(back.NeighborsOf(c(1, 1))))
	assert.Equal(t, []grid.Cell{c(1, 1), c(2, 0)}, slices.Collect(back.NeighborsOf(c(0, 0))))
	assert.Equal(t, v.Hash(), back.Hash())
}

func TestEdgesOrder(t *testing.T) {
	t.Parallel()
	v := New(unitGrid(t, 3, 3))
	require.NoError(t, v.AddEdge(c(2, 2), c(1, 1)))
	require.NoError(t, v.AddEdge(c(0, 0), c(1, 0)))
	require.NoError(t, v.AddEdge(c(1, 1), c(2, 2)))

	var got [][2]grid.Cell
	for a, b := range v.Edges() {
		got = append(got, [2]grid.Cell{a, b})
	}
	assert.Equal(t, [][2]grid.Cell{{c(1, 1), c(2, 2)}, {c(0, 0), c(1, 0)}}, got)
}

func TestHash(t *testing.T) {
	t.Parallel()
	build := func(edges ...[2]grid.Cell) *Graph {
		v := New(unitGrid(t, 3, 3))
		for _, e := range edges {
			require.NoError(t, v.AddEdge(e[0], e[1]))
		}
		return v
	}
	ab := build([2]grid.Cell{c(1, 1), c(0, 0)}, [2]grid.Cell{c(1, 1), c(2, 2)})
	ba := build([2]grid.Cell{c(1, 1), c(2, 2)}, [2]grid.Cell{c(1, 1), c(0, 0)})

	assert.Len(t, ab.Hash(), 64)
	assert.Equal(t, ab.Hash(), build([2]grid.Cell{c(0, 0), c(1, 1)}, [2]grid.Cell{c(2, 2), c(1, 1)}).Hash())
	assert.NotEqual(t, ab.Hash(), ba.Hash())
	assert.NotEqual(t, ab.Hash(), New(unitGrid(t, 3, 3)).Hash())
	assert.NotEqual(t, New(unitGrid(t, 3, 3)).Hash(), New(unitGrid(t, 3, 4)).Hash())
}

func TestReadJSONErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed", `{"region":`, "decode"},
		{"bad spacing", `{"region":{"min":[0,0],"max":[1,1]},"spacing":0,"edges":[]}`, "spacing"},
		{"edge outside", `{"region":{"min":[0,0],"max":[2,2]},"spacing":1,"edges":[[0,0,5,5]]}`, "edge 0"},
		{"self loop", `{"region":{"min":[0,0],"max":[2,2]},"spacing":1,"edges":[[0,0,1,0],[1,1,1,1]]}`, "edge 1"},
		{"overflowing grid", `{"region":{"min":[0,0],"max":[1e300,1]},"spacing":1,"edges":[]}`, "invalid region"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadJSONMaxCells(t *testing.T) {
	t.Parallel()
	doc := `{"region":{"min":[0,0],"max":[100000,100000]},"spacing":1,"edges":[]}`

	_, err := ReadJSON(strings.NewReader(doc), WithMaxCells(1_000_000))
	require.ErrorIs(t, err, ErrTooManyCells)
	assert.Contains(t, err.Error(), "100000x100000")

	small := `{"region":{"min":[0,0],"max":[10,10]},"spacing":1,"edges":[[0,0,1,0]]}`
	v, err := ReadJSON(strings.NewReader(small), WithMaxCells(100))
	require.NoError(t, err)
	assert.Equal(t, 100, v.Grid().Len())

	_, err = ReadJSON(strings.NewReader(small), WithMaxCells(99))
	assert.ErrorIs(t, err, ErrTooManyCells)

	path := t.TempDir() + "/big.json"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err = ImportJSON(path, WithMaxCells(10))
	assert.ErrorIs(t, err, ErrTooManyCells)
}

func TestImportExport(t *testing.T) {
	t.Parallel()
	v := Lattice(unitGrid(t, 5, 5), Conn4, nil)
	path := t.TempDir() + "/graph.json"

	require.NoError(t, ExportJSON(v, path))
	back, err := ImportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, v.EdgeCount(), back.EdgeCount())

	_, err = ImportJSON(t.TempDir() + "/missing.json")
	assert.Error(t, err)
}
