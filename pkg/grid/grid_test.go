package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
)

func unitGrid(t *testing.T, w, h float64) *Grid {
	t.Helper()
	g, err := New(Region{Min: Point{0, 0}, Max: Point{w, h}}, 1)
	require.NoError(t, err)
	return g
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("derives counts with ceil", func(t *testing.T) {
		t.Parallel()
		g, err := New(Region{Min: Point{0, 0}, Max: Point{2.5, 1}}, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, g.Cols())
		assert.Equal(t, 1, g.Rows())
		assert.Equal(t, 3, g.Len())
	})

	t.Run("exactly max cells", func(t *testing.T) {
		t.Parallel()
		g, err := New(Region{Max: Point{MaxCells, 1}}, 1)
		require.NoError(t, err)
		assert.Equal(t, MaxCells, g.Len())
		assert.Positive(t, g.Cols())
	})

	t.Run("normalizes swapped corners", func(t *testing.T) {
		t.Parallel()
		g, err := New(Region{Min: Point{4, 4}, Max: Point{0, 0}}, 2)
		require.NoError(t, err)
		assert.Equal(t, Point{0, 0}, g.Region().Min)
		assert.Equal(t, 2, g.Cols())
	})

	tests := []struct {
		name    string
		region  Region
		spacing float64
		want    error
	}{
		{"zero spacing", Region{Max: Point{1, 1}}, 0, ErrInvalidSpacing},
		{"negative spacing", Region{Max: Point{1, 1}}, -1, ErrInvalidSpacing},
		{"nan spacing", Region{Max: Point{1, 1}}, math.NaN(), ErrInvalidSpacing},
		{"inf spacing", Region{Max: Point{1, 1}}, math.Inf(1), ErrInvalidSpacing},
		{"zero width", Region{Max: Point{0, 1}}, 1, ErrInvalidRegion},
		{"zero height", Region{Max: Point{1, 0}}, 1, ErrInvalidRegion},
		{"infinite corner", Region{Max: Point{math.Inf(1), 1}}, 1, ErrInvalidRegion},
		{"column count overflows int", Region{Max: Point{1e300, 1}}, 1, ErrInvalidRegion},
		{"cell count overflows int", Region{Max: Point{1e10, 1e10}}, 1, ErrInvalidRegion},
		{"tiny spacing", Region{Max: Point{1, 1}}, 1e-300, ErrInvalidRegion},
		{"one past max cells", Region{Max: Point{MaxCells + 1, 1}}, 1, ErrInvalidRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.region, tt.spacing)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestToCell(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 3, 3)

	tests := []struct {
		p    Point
		want Cell
	}{
		{Point{0, 0}, Cell{0, 0}},
		{Point{0.5, 0.5}, Cell{0, 0}},
		{Point{1, 0}, Cell{1, 0}},
		{Point{1.5, 2.2}, Cell{1, 2}},
		{Point{3, 3}, Cell{2, 2}},
		{Point{2.999, 0}, Cell{2, 0}},
	}
	for _, tt := range tests {
		got, err := g.ToCell(tt.p)
		require.NoError(t, err, "point %s", tt.p)
		assert.Equal(t, tt.want, got, "point %s", tt.p)
	}
}

func TestToCellOutOfBounds(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 3, 3)

	for _, p := range []Point{{-0.001, 1}, {3.001, 1}, {1, -1}, {1, 3.5}, {math.NaN(), 1}} {
		c, err := g.ToCell(p)
		require.Error(t, err)
		assert.Equal(t, NoCell, c)

		var oob *OutOfBoundsError
		require.True(t, errors.As(err, &oob))
		assert.True(t, vgaerrors.Is(err, vgaerrors.ErrCodeOutOfBounds))
		if !math.IsNaN(p.X) {
			assert.Equal(t, p, oob.Point)
			assert.Contains(t, err.Error(), p.String())
		}
	}
}

func TestToPhysical(t *testing.T) {
	t.Parallel()
	g, err := New(Region{Min: Point{10, 20}, Max: Point{14, 22}}, 2)
	require.NoError(t, err)

	assert.Equal(t, Point{11, 21}, g.ToPhysical(Cell{0, 0}))
	assert.Equal(t, Point{13, 21}, g.ToPhysical(Cell{1, 0}))

	// Round trip through the center of every cell.
	for c := range g.Cells() {
		back, err := g.ToCell(g.ToPhysical(c))
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
}

func TestCentersWithinHalfSpacing(t *testing.T) {
	t.Parallel()
	g, err := New(Region{Min: Point{0, 0}, Max: Point{2.1, 0.3}}, 0.5)
	require.NoError(t, err)

	half := g.Spacing() / 2
	r := g.Region()
	for c := range g.Cells() {
		p := g.ToPhysical(c)
		assert.GreaterOrEqual(t, p.X, r.Min.X-half)
		assert.LessOrEqual(t, p.X, r.Max.X+half)
		assert.GreaterOrEqual(t, p.Y, r.Min.Y-half)
		assert.LessOrEqual(t, p.Y, r.Max.Y+half)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 4, 3)

	seen := make(map[int]bool)
	for c := range g.Cells() {
		i := g.Index(c)
		assert.False(t, seen[i], "index %d reused", i)
		seen[i] = true
		assert.Equal(t, c, g.CellAt(i))
	}
	assert.Len(t, seen, 12)
	assert.Equal(t, 5, g.Index(Cell{Col: 1, Row: 1}))
}

func TestValid(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 2, 2)

	assert.True(t, g.Valid(Cell{0, 0}))
	assert.True(t, g.Valid(Cell{1, 1}))
	assert.False(t, g.Valid(Cell{2, 0}))
	assert.False(t, g.Valid(Cell{0, -1}))
	assert.False(t, g.Valid(NoCell))
}

func TestContains(t *testing.T) {
	t.Parallel()
	g := unitGrid(t, 3, 3)

	t.Run("interior block", func(t *testing.T) {
		got := g.Contains(Region{Min: Point{0.4, 0.4}, Max: Point{1.6, 1.6}})
		assert.Equal(t, []Cell{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, got)
	})

	t.Run("edges inclusive", func(t *testing.T) {
		got := g.Contains(Region{Min: Point{1.5, 1.5}, Max: Point{1.5, 1.5}})
		assert.Equal(t, []Cell{{1, 1}}, got)
	})

	t.Run("extends past grid", func(t *testing.T) {
		got := g.Contains(Region{Min: Point{-10, 2}, Max: Point{10, 10}})
		assert.Equal(t, []Cell{{0, 2}, {1, 2}, {2, 2}}, got)
	})

	t.Run("no centers inside", func(t *testing.T) {
		assert.Empty(t, g.Contains(Region{Min: Point{0.6, 0.6}, Max: Point{1.4, 1.4}}))
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.Empty(t, g.Contains(Region{Min: Point{5, 5}, Max: Point{6, 6}}))
	})

	t.Run("infinite region covers all", func(t *testing.T) {
		inf := math.Inf(1)
		got := g.Contains(Region{Min: Point{-inf, -inf}, Max: Point{inf, inf}})
		assert.Len(t, got, 9)
	})
}
