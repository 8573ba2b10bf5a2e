package depth

import (
	"math"
	"strings"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
)

// Model selects how one graph step contributes to depth.
type Model int

const (
	// UnitStep counts hops.
	UnitStep Model = iota
	// Metric sums Euclidean distances between cell centers.
	Metric
	// Angular sums turn angles in radians.
	Angular
)

// Models lists every cost model in token order.
var Models = []Model{Angular, Metric, UnitStep}

// String returns the token that selects the model on the command line.
func (m Model) String() string {
	switch m {
	case UnitStep:
		return "visual"
	case Metric:
		return "metric"
	case Angular:
		return "angular"
	}
	return "unknown"
}

// Column returns the default name of the column a run with m writes.
func (m Model) Column() string {
	switch m {
	case Metric:
		return "Metric Step Shortest-Path Length"
	case Angular:
		return "Angular Step Depth"
	}
	return "Visual Step Depth"
}

// Valid reports whether m is one of the defined models.
func (m Model) Valid() bool { return m >= UnitStep && m <= Angular }

// weighted reports whether the model needs a priority frontier.
func (m Model) weighted() bool { return m != UnitStep }

// Cost returns the non-negative cost of stepping from one cell to a visible
// cell. pred is the cell from was entered from, or grid.NoCell at an origin.
func (m Model) Cost(g *grid.Grid, pred, from, to grid.Cell) float64 {
	switch m {
	case Metric:
		return g.ToPhysical(from).Dist(g.ToPhysical(to))
	case Angular:
		if pred == grid.NoCell {
			return 0
		}
		return turn(pred, from, to)
	}
	return 1
}

// turn returns the angle in [0, π] between pred→from and from→to.
// Cells are uniform squares, so integer offsets give the same angle as
// physical centers.
func turn(pred, from, to grid.Cell) float64 {
	ax, ay := float64(from.Col-pred.Col), float64(from.Row-pred.Row)
	bx, by := float64(to.Col-from.Col), float64(to.Row-from.Row)
	cross := ax*by - ay*bx
	dot := ax*bx + ay*by
	return math.Atan2(math.Abs(cross), dot)
}

// ParseModel maps a command-line token to a model. "visual" selects
// UnitStep. An empty token fails with REQUIRED_ARGUMENT and an unknown one
// with INVALID_ARGUMENT.
func ParseModel(token string) (Model, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return UnitStep, vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "Step depth type (--type) must be provided")
	}
	for _, m := range Models {
		if m.String() == t {
			return m, nil
		}
	}
	return UnitStep, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "Invalid step type: %s", token)
}
