package depth

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/vgadepth/pkg/attr"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/selection"
	"github.com/matzehuels/vgadepth/pkg/vga"
)

var undef = math.NaN()

func newGrid(t testing.TB, cols, rows int) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.Region{Max: grid.Point{X: float64(cols), Y: float64(rows)}}, 1)
	require.NoError(t, err)
	return g
}

func origins(t testing.TB, g *grid.Grid, cells ...grid.Cell) *selection.Set {
	t.Helper()
	s, err := selection.Of(g, cells...)
	require.NoError(t, err)
	return s
}

// run executes one job on a fresh store and returns the column.
func run(t testing.TB, v *vga.Graph, m Model, from *selection.Set, opts ...Option) []float64 {
	t.Helper()
	store := attr.NewStore(v.Grid())
	h, err := store.CreateColumn(m.Column())
	require.NoError(t, err)
	_, err = NewEngine(opts...).Run(context.Background(), Job{
		Grid: v.Grid(), Graph: v, Origins: from, Model: m, Store: store, Column: h,
	})
	require.NoError(t, err)
	vals, err := store.Values(h)
	require.NoError(t, err)
	return vals
}

func assertColumn(t *testing.T, want, got []float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("column mismatch (-want +got):\n%s", diff)
	}
}

func TestCenterOfThreeByThree(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 3, 3)
	center := origins(t, g, grid.Cell{Col: 1, Row: 1})

	t.Run("unit step", func(t *testing.T) {
		got := run(t, vga.Lattice(g, vga.Conn4, nil), UnitStep, center)
		assertColumn(t, []float64{2, 1, 2, 1, 0, 1, 2, 1, 2}, got)
	})

	t.Run("metric with diagonals visible", func(t *testing.T) {
		got := run(t, vga.Lattice(g, vga.Conn8, nil), Metric, center)
		r2 := math.Sqrt2
		assertColumn(t, []float64{r2, 1, r2, 1, 0, 1, r2, 1, r2}, got)
	})

	t.Run("metric orthogonal only", func(t *testing.T) {
		got := run(t, vga.Lattice(g, vga.Conn4, nil), Metric, center)
		assertColumn(t, []float64{2, 1, 2, 1, 0, 1, 2, 1, 2}, got)
	})

	t.Run("metric full visibility", func(t *testing.T) {
		got := run(t, vga.FullVisibility(g, nil), Metric, center)
		r2 := math.Sqrt2
		assertColumn(t, []float64{r2, 1, r2, 1, 0, 1, r2, 1, r2}, got)
	})
}

func TestAngularCorridors(t *testing.T) {
	t.Parallel()

	t.Run("straight row", func(t *testing.T) {
		g := newGrid(t, 3, 1)
		got := run(t, vga.Lattice(g, vga.Conn4, nil), Angular, origins(t, g, grid.Cell{}))
		assertColumn(t, []float64{0, 0, 0}, got)
	})

	t.Run("long straight corridor", func(t *testing.T) {
		g := newGrid(t, 50, 1)
		got := run(t, vga.Lattice(g, vga.Conn4, nil), Angular, origins(t, g, grid.Cell{Col: 17}))
		for i, v := range got {
			assert.Zero(t, v, "cell %d", i)
		}
	})

	t.Run("L shaped path", func(t *testing.T) {
		g := newGrid(t, 3, 2)
		v := vga.New(g)
		require.NoError(t, v.AddEdge(grid.Cell{Col: 0, Row: 0}, grid.Cell{Col: 1, Row: 0}))
		require.NoError(t, v.AddEdge(grid.Cell{Col: 1, Row: 0}, grid.Cell{Col: 2, Row: 0}))
		require.NoError(t, v.AddEdge(grid.Cell{Col: 2, Row: 0}, grid.Cell{Col: 2, Row: 1}))

		got := run(t, v, Angular, origins(t, g, grid.Cell{}))
		assertColumn(t, []float64{0, 0, 0, undef, undef, math.Pi / 2}, got)
	})

	t.Run("u turn", func(t *testing.T) {
		g := newGrid(t, 2, 2)
		v := vga.New(g)
		require.NoError(t, v.AddEdge(grid.Cell{Col: 0, Row: 0}, grid.Cell{Col: 1, Row: 0}))
		require.NoError(t, v.AddEdge(grid.Cell{Col: 1, Row: 0}, grid.Cell{Col: 1, Row: 1}))
		require.NoError(t, v.AddEdge(grid.Cell{Col: 1, Row: 1}, grid.Cell{Col: 0, Row: 1}))

		got := run(t, v, Angular, origins(t, g, grid.Cell{}))
		assertColumn(t, []float64{0, 0, math.Pi, math.Pi / 2}, got)
	})

	t.Run("two origins", func(t *testing.T) {
		g := newGrid(t, 6, 1)
		got := run(t, vga.Lattice(g, vga.Conn4, nil), Angular, origins(t, g, grid.Cell{}, grid.Cell{Col: 5}))
		assertColumn(t, []float64{0, 0, 0, 0, 0, 0}, got)
	})
}

// bfs is a brute-force hop-count oracle.
func bfs(v *vga.Graph, from []grid.Cell) []float64 {
	g := v.Grid()
	dist := make([]float64, g.Len())
	for i := range dist {
		dist[i] = undef
	}
	var queue []grid.Cell
	for _, c := range from {
		if math.IsNaN(dist[g.Index(c)]) {
			dist[g.Index(c)] = 0
			queue = append(queue, c)
		}
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for n := range v.NeighborsOf(c) {
			if math.IsNaN(dist[g.Index(n)]) {
				dist[g.Index(n)] = dist[g.Index(c)] + 1
				queue = append(queue, n)
			}
		}
	}
	return dist
}

func randomGraph(t testing.TB, rng *rand.Rand, cols, rows, edges int) *vga.Graph {
	t.Helper()
	g := newGrid(t, cols, rows)
	v := vga.New(g)
	for range edges {
		a := g.CellAt(rng.IntN(g.Len()))
		b := g.CellAt(rng.IntN(g.Len()))
		if a == b {
			continue
		}
		require.NoError(t, v.AddEdge(a, b))
	}
	return v
}

func TestUnitStepMatchesBFS(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := range 25 {
		v := randomGraph(t, rng, 8, 6, 40+trial*3)
		g := v.Grid()
		from := []grid.Cell{g.CellAt(rng.IntN(g.Len()))}
		if trial%3 == 0 {
			from = append(from, g.CellAt(rng.IntN(g.Len())))
		}

		got := run(t, v, UnitStep, origins(t, g, from...), WithCheckEvery(3))
		assertColumn(t, bfs(v, from), got)
	}
}

func TestMultiSourceIsPerCellMinimum(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 5))

	for _, m := range []Model{UnitStep, Metric} {
		t.Run(m.String(), func(t *testing.T) {
			for range 10 {
				v := randomGraph(t, rng, 7, 7, 70)
				g := v.Grid()
				from := []grid.Cell{
					g.CellAt(rng.IntN(g.Len())),
					g.CellAt(rng.IntN(g.Len())),
					g.CellAt(rng.IntN(g.Len())),
				}

				want := make([]float64, g.Len())
				for i := range want {
					want[i] = undef
				}
				for _, o := range from {
					single := run(t, v, m, origins(t, g, o))
					for i, x := range single {
						if !math.IsNaN(x) && (math.IsNaN(want[i]) || x < want[i]) {
							want[i] = x
						}
					}
				}

				got := run(t, v, m, origins(t, g, from...))
				if diff := cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
					t.Errorf("multi-source mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 2))
	v := randomGraph(t, rng, 12, 12, 400)
	g := v.Grid()
	from := origins(t, g, grid.Cell{Col: 3, Row: 4}, grid.Cell{Col: 9, Row: 1})

	for _, m := range Models {
		first := run(t, v, m, from)
		second := run(t, v, m, from)
		for i := range first {
			assert.Equal(t, math.Float64bits(first[i]), math.Float64bits(second[i]), "%s cell %d", m, i)
		}
	}
}

func TestMetricGrowsWithHops(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 9, 7)
	v := vga.Lattice(g, vga.Conn8, nil)
	from := origins(t, g, grid.Cell{Col: 2, Row: 3})

	hops := run(t, v, UnitStep, from)
	metric := run(t, v, Metric, from)

	for a, b := range v.Edges() {
		ia, ib := g.Index(a), g.Index(b)
		if hops[ia] > hops[ib] {
			ia, ib = ib, ia
		}
		if hops[ib] == hops[ia]+1 {
			assert.GreaterOrEqual(t, metric[ib], metric[ia], "%s -> %s", g.CellAt(ia), g.CellAt(ib))
		}
	}
}

func TestDisconnectedStaysUndefined(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 5, 1)
	v := vga.New(g)
	require.NoError(t, v.AddEdge(grid.Cell{Col: 0}, grid.Cell{Col: 1}))
	require.NoError(t, v.AddEdge(grid.Cell{Col: 2}, grid.Cell{Col: 3}))

	for _, m := range Models {
		got := run(t, v, m, origins(t, g, grid.Cell{}))
		assert.False(t, attr.IsUndefined(got[1]), m.String())
		for _, i := range []int{2, 3, 4} {
			assert.True(t, attr.IsUndefined(got[i]), "%s cell %d", m, i)
		}
	}
}

func TestIsolatedOrigin(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 3, 1)
	got := run(t, vga.New(g), Metric, origins(t, g, grid.Cell{Col: 1}))
	assertColumn(t, []float64{undef, 0, undef}, got)
}

func TestZeroOrigins(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 4, 4)
	store := attr.NewStore(g)
	h, _ := store.CreateColumn("depth")
	require.NoError(t, store.SetValue(h, grid.Cell{}, 3))

	var states []State
	empty := selection.FromRegion(g, grid.Region{Min: grid.Point{X: 10, Y: 10}, Max: grid.Point{X: 11, Y: 11}})
	res, err := NewEngine(WithStateHook(func(s State) { states = append(states, s) })).Run(context.Background(), Job{
		Grid: g, Graph: vga.Lattice(g, vga.Conn4, nil), Origins: empty, Model: Angular, Store: store, Column: h,
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Zero(t, res.Settled)
	assert.Equal(t, []State{StateInitializing, StatePropagating, StateFinalizing, StateDone}, states)

	vals, _ := store.Values(h)
	for _, x := range vals {
		assert.True(t, attr.IsUndefined(x))
	}
}

func TestRerunResetsColumn(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 4, 1)
	v := vga.New(g)
	require.NoError(t, v.AddEdge(grid.Cell{Col: 0}, grid.Cell{Col: 1}))
	require.NoError(t, v.AddEdge(grid.Cell{Col: 2}, grid.Cell{Col: 3}))

	store := attr.NewStore(g)
	h, _ := store.CreateColumn("depth")
	job := Job{Grid: g, Graph: v, Model: UnitStep, Store: store, Column: h}

	job.Origins = origins(t, g, grid.Cell{Col: 3})
	_, err := Run(context.Background(), job)
	require.NoError(t, err)

	job.Origins = origins(t, g, grid.Cell{Col: 0})
	_, err = Run(context.Background(), job)
	require.NoError(t, err)

	vals, _ := store.Values(h)
	assertColumn(t, []float64{0, 1, undef, undef}, vals)
}

func TestCancellation(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 100, 120)
	v := vga.Lattice(g, vga.Conn8, nil)
	store := attr.NewStore(g)
	h, _ := store.CreateColumn(Angular.Column())
	for c := range g.Cells() {
		require.NoError(t, store.SetValue(h, c, 42))
	}

	var (
		progress []float64
		states   []State
	)
	sink := FuncSink{
		OnProgress:  func(f float64) { progress = append(progress, f) },
		IsCancelled: func() bool { return len(progress) >= 3 },
	}
	res, err := NewEngine(WithCheckEvery(500), WithStateHook(func(s State) { states = append(states, s) })).
		Run(context.Background(), Job{
			Grid: g, Graph: v, Origins: origins(t, g, grid.Cell{Col: 50, Row: 60}),
			Model: Angular, Store: store, Column: h, Sink: sink,
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, vgaerrors.Is(err, vgaerrors.ErrCodeCancelled))
	var ce *CancelledError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1500, ce.Settled)
	assert.Equal(t, 12000, ce.Total)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, []State{StateInitializing, StatePropagating, StateCancelled}, states)

	vals, _ := store.Values(h)
	for i, x := range vals {
		if !attr.IsUndefined(x) {
			t.Fatalf("cell %d kept value %v after cancellation", i, x)
		}
	}
	assert.False(t, v.Pinned())

	// The column is writable again.
	require.NoError(t, store.SetValue(h, grid.Cell{}, 1))
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 10, 10)
	store := attr.NewStore(g)
	h, _ := store.CreateColumn("depth")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Job{
		Grid: g, Graph: vga.Lattice(g, vga.Conn4, nil), Origins: origins(t, g, grid.Cell{}),
		Model: UnitStep, Store: store, Column: h,
	})
	var ce *CancelledError
	require.True(t, errors.As(err, &ce))
	assert.Zero(t, ce.Settled)

	_, err = Run(context.Background(), Job{
		Grid: g, Graph: vga.Lattice(g, vga.Conn4, nil), Origins: origins(t, g, grid.Cell{}),
		Model: UnitStep, Store: store, Column: h, Sink: ContextSink(ctx, nil),
	})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestProgressMonotonic(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 30, 30)
	store := attr.NewStore(g)
	h, _ := store.CreateColumn("depth")

	var progress []float64
	res, err := NewEngine(WithCheckEvery(50)).Run(context.Background(), Job{
		Grid: g, Graph: vga.Lattice(g, vga.Conn4, nil), Origins: origins(t, g, grid.Cell{}),
		Model: Metric, Store: store, Column: h,
		Sink: FuncSink{OnProgress: func(f float64) { progress = append(progress, f) }},
	})
	require.NoError(t, err)
	assert.Equal(t, 900, res.Settled)
	assert.InDelta(t, 58.0, res.MaxDepth, 1e-9)

	require.NotEmpty(t, progress)
	assert.Equal(t, 1.0, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestGraphPinnedDuringRun(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 3, 3)
	v := vga.Lattice(g, vga.Conn4, nil)
	store := attr.NewStore(g)
	h, _ := store.CreateColumn("depth")

	var addErr error
	hook := func(s State) {
		if s == StatePropagating {
			addErr = v.AddEdge(grid.Cell{}, grid.Cell{Col: 2, Row: 2})
		}
	}
	_, err := NewEngine(WithStateHook(hook)).Run(context.Background(), Job{
		Grid: g, Graph: v, Origins: origins(t, g, grid.Cell{}), Model: UnitStep, Store: store, Column: h,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, addErr, vga.ErrGraphInUse)
	assert.False(t, v.Pinned())
}

// TestFirstDiscoveredPathWinsTies builds two graphs that differ only in
// the order O sees A and B. X is reached at the same turn cost through
// either, so the first-settled predecessor is kept and decides the turn
// toward Y.
func TestFirstDiscoveredPathWinsTies(t *testing.T) {
	t.Parallel()
	var (
		o = grid.Cell{Col: 2, Row: 2}
		a = grid.Cell{Col: 1, Row: 1}
		b = grid.Cell{Col: 3, Row: 1}
		x = grid.Cell{Col: 2, Row: 0}
		y = grid.Cell{Col: 4, Row: 0}
	)
	build := func(first, second grid.Cell) *vga.Graph {
		g := newGrid(t, 5, 5)
		v := vga.New(g)
		for _, e := range [][2]grid.Cell{{o, first}, {o, second}, {a, x}, {b, x}, {x, y}} {
			require.NoError(t, v.AddEdge(e[0], e[1]))
		}
		return v
	}

	tests := []struct {
		name          string
		first, second grid.Cell
		want          float64
	}{
		{"a first", a, b, math.Pi/2 + math.Pi/4},
		{"b first", b, a, math.Pi/2 + 3*math.Pi/4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := build(tt.first, tt.second)
			got := run(t, v, Angular, origins(t, v.Grid(), o))
			g := v.Grid()
			assert.InDelta(t, math.Pi/2, got[g.Index(x)], 1e-12)
			assert.InDelta(t, tt.want, got[g.Index(y)], 1e-12)

			// Repeated runs keep the same winner.
			assertColumn(t, got, run(t, v, Angular, origins(t, g, o)))
		})
	}
}

func TestConcurrentRunsOnDistinctColumns(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 40, 40)
	v := vga.Lattice(g, vga.Conn8, func(c grid.Cell) bool { return c.Col != 20 || c.Row < 5 })
	from := origins(t, g, grid.Cell{Col: 1, Row: 1})
	store := attr.NewStore(g)

	var wg sync.WaitGroup
	handles := make(map[Model]attr.ColumnHandle)
	errs := make([]error, len(Models))
	for i, m := range Models {
		h, err := store.CreateColumn(m.Column())
		require.NoError(t, err)
		handles[m] = h
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = Run(context.Background(), Job{Grid: g, Graph: v, Origins: from, Model: m, Store: store, Column: h})
		}()
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "model %s", Models[i])
	}

	for _, m := range Models {
		got, err := store.Values(handles[m])
		require.NoError(t, err)
		assertColumn(t, run(t, v, m, from), got)
	}
}

func TestInvalidJob(t *testing.T) {
	t.Parallel()
	g := newGrid(t, 2, 2)
	other := newGrid(t, 3, 3)
	wide, tall := newGrid(t, 4, 3), newGrid(t, 6, 2)
	v := vga.Lattice(g, vga.Conn4, nil)
	store := attr.NewStore(g)
	h, _ := store.CreateColumn("depth")

	tests := []struct {
		name string
		job  Job
	}{
		{"nil grid", Job{Graph: v, Store: store, Column: h}},
		{"nil graph", Job{Grid: g, Store: store, Column: h}},
		{"nil store", Job{Grid: g, Graph: v, Column: h}},
		{"store on other grid", Job{Grid: g, Graph: v, Store: attr.NewStore(other), Column: h}},
		{"store with same size other shape", Job{Grid: wide, Graph: vga.Lattice(wide, vga.Conn4, nil), Store: attr.NewStore(tall), Column: h}},
		{"graph on other grid", Job{Grid: g, Graph: vga.Lattice(other, vga.Conn4, nil), Store: store, Column: h}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.job)
			assert.ErrorIs(t, err, ErrInvalidJob)
		})
	}

	_, err := Run(context.Background(), Job{Grid: g, Graph: v, Store: store, Column: h, Model: Model(9)})
	assert.True(t, vgaerrors.Is(err, vgaerrors.ErrCodeInvalidArgument))

	_, err = Run(context.Background(), Job{Grid: g, Graph: v, Store: store, Column: attr.ColumnHandle(5)})
	assert.ErrorIs(t, err, attr.ErrUnknownColumn)
}
