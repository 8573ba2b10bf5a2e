package depth

import (
	"fmt"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
)

// State is a stage of one run.
type State int

const (
	StateInitializing State = iota
	StatePropagating
	StateFinalizing
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StatePropagating:
		return "propagating"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrCancelled matches any *CancelledError with errors.Is.
	ErrCancelled = vgaerrors.New(vgaerrors.ErrCodeCancelled, "depth: analysis cancelled")

	// ErrInvalidJob is returned when a job lacks a grid, graph or store, or
	// its store is keyed by a different grid.
	ErrInvalidJob = vgaerrors.New(vgaerrors.ErrCodeInvalidInput, "depth: invalid job")
)

// CancelledError is returned when a run stops at a check point. The target
// column is left fully Undefined.
type CancelledError struct {
	// Settled is the number of cells settled before the stop.
	Settled int
	// Total is the number of cells in the grid.
	Total int
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("depth: analysis cancelled after settling %d of %d cells", e.Settled, e.Total)
}

// Is lets errors.Is(err, ErrCancelled) match.
func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// Code reports the structured error code.
func (e *CancelledError) Code() vgaerrors.Code { return vgaerrors.ErrCodeCancelled }
