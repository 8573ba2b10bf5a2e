package depth

import (
	"context"
	"fmt"
	"io"
	"iter"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vgadepth/pkg/attr"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/selection"
)

// DefaultCheckEvery is the number of settlements between check points.
const DefaultCheckEvery = 1024

// Graph is the read-only view of visibility the engine needs.
type Graph interface {
	NeighborsOf(c grid.Cell) iter.Seq[grid.Cell]
}

// gridded is implemented by graphs that know the grid they were built on.
type gridded interface {
	Grid() *grid.Grid
}

// pinner is implemented by graphs that can refuse mutation during a run.
type pinner interface {
	Pin() (release func())
}

// Job describes one run.
type Job struct {
	Grid    *grid.Grid
	Graph   Graph
	Origins *selection.Set
	Model   Model
	Store   *attr.Store
	Column  attr.ColumnHandle
	// Sink may be nil.
	Sink ProgressSink
}

// Result summarizes a finished run.
type Result struct {
	Model    Model
	State    State
	Origins  int
	Settled  int
	MaxDepth float64
	Duration time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithCheckEvery sets the number of settlements between check points.
// Values below 1 are ignored.
func WithCheckEvery(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.checkEvery = n
		}
	}
}

// WithLogger sets the logger for run diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStateHook registers fn to be called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(e *Engine) { e.hook = fn }
}

// Engine runs depth propagation. It holds only configuration; one Engine may
// serve concurrent runs.
type Engine struct {
	checkEvery int
	logger     *log.Logger
	hook       func(State)
}

// NewEngine returns an engine configured by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		checkEvery: DefaultCheckEvery,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes job with a default engine.
func Run(ctx context.Context, job Job) (Result, error) {
	return NewEngine().Run(ctx, job)
}

// Run computes depth from job.Origins and writes it to job.Column.
//
// The run stops at the next check point once ctx is done or the sink reports
// cancellation; it then returns a *CancelledError and leaves the column fully
// Undefined. An empty origin set is a successful run that writes nothing.
func (e *Engine) Run(ctx context.Context, job Job) (Result, error) {
	if err := job.validate(); err != nil {
		return Result{}, err
	}
	sink := job.Sink
	if sink == nil {
		sink = NopSink{}
	}

	start := time.Now()
	r := &runner{
		grid:       job.Grid,
		graph:      job.Graph,
		model:      job.Model,
		sink:       sink,
		ctx:        ctx,
		checkEvery: e.checkEvery,
		hook:       e.hook,
	}

	r.enter(StateInitializing)
	if p, ok := job.Graph.(pinner); ok {
		release := p.Pin()
		defer release()
	}
	w, err := job.Store.Writer(job.Column)
	if err != nil {
		return Result{}, err
	}
	defer w.Close()
	if err := w.Reset(); err != nil {
		return Result{}, err
	}
	r.init(job.Origins)

	e.logger.Debug("step depth started",
		"model", job.Model,
		"cells", job.Grid.Len(),
		"origins", job.Origins.Len())

	r.enter(StatePropagating)
	if !r.process() {
		r.enter(StateCancelled)
		e.logger.Debug("step depth cancelled", "settled", r.settledCount)
		return Result{Model: job.Model, State: StateCancelled, Origins: job.Origins.Len(), Settled: r.settledCount},
			&CancelledError{Settled: r.settledCount, Total: job.Grid.Len()}
	}

	r.enter(StateFinalizing)
	maxDepth, err := r.finalize(w)
	if err != nil {
		_ = w.Reset()
		return Result{}, fmt.Errorf("finalize: %w", err)
	}
	sink.Progress(1)
	r.enter(StateDone)

	res := Result{
		Model:    job.Model,
		State:    StateDone,
		Origins:  job.Origins.Len(),
		Settled:  r.settledCount,
		MaxDepth: maxDepth,
		Duration: time.Since(start),
	}
	e.logger.Debug("step depth finished",
		"model", job.Model,
		"settled", res.Settled,
		"duration", res.Duration)
	return res, nil
}

func (j Job) validate() error {
	switch {
	case j.Grid == nil:
		return fmt.Errorf("%w: nil grid", ErrInvalidJob)
	case j.Graph == nil:
		return fmt.Errorf("%w: nil graph", ErrInvalidJob)
	case j.Store == nil:
		return fmt.Errorf("%w: nil store", ErrInvalidJob)
	case !sameShape(j.Store.Grid(), j.Grid):
		sg := j.Store.Grid()
		return fmt.Errorf("%w: store is %dx%d, grid is %dx%d", ErrInvalidJob, sg.Cols(), sg.Rows(), j.Grid.Cols(), j.Grid.Rows())
	case !j.Model.Valid():
		return vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "depth: unknown model %d", int(j.Model))
	}
	if gg, ok := j.Graph.(gridded); ok && !sameShape(gg.Grid(), j.Grid) {
		og := gg.Grid()
		return fmt.Errorf("%w: graph is %dx%d, grid is %dx%d", ErrInvalidJob, og.Cols(), og.Rows(), j.Grid.Cols(), j.Grid.Rows())
	}
	for c := range j.Origins.All() {
		if !j.Grid.Valid(c) {
			return &attr.InvalidCellError{Cell: c}
		}
	}
	return nil
}

func sameShape(a, b *grid.Grid) bool {
	return a.Cols() == b.Cols() && a.Rows() == b.Rows()
}

// runner holds the per-run frontier state over flat cell indices.
type runner struct {
	grid       *grid.Grid
	graph      Graph
	model      Model
	sink       ProgressSink
	ctx        context.Context
	checkEvery int
	hook       func(State)

	cost    []float64 // best known cost; +Inf until reached
	pred    []int32   // predecessor on the best path; -1 at origins and unreached cells
	settled []bool
	queue   frontier

	settledCount int
	reported     float64
}

func (r *runner) enter(s State) {
	if r.hook != nil {
		r.hook(s)
	}
}

// init seeds every origin at cost 0 with no predecessor.
func (r *runner) init(origins *selection.Set) {
	n := r.grid.Len()
	r.cost = make([]float64, n)
	r.pred = make([]int32, n)
	r.settled = make([]bool, n)
	for i := range n {
		r.cost[i] = math.Inf(1)
		r.pred[i] = -1
	}
	r.queue = newFrontier(r.model, max(origins.Len(), 16))
	for c := range origins.All() {
		i := r.grid.Index(c)
		if r.cost[i] == 0 {
			continue
		}
		r.cost[i] = 0
		r.queue.push(int32(i), 0)
	}
}

// process settles cells until the frontier drains. It returns false if the
// run was cancelled at a check point.
func (r *runner) process() bool {
	if r.stop() {
		return false
	}
	for {
		u, c, ok := r.queue.pop()
		if !ok {
			return true
		}
		// Stale entry from a later improvement, or already settled.
		if r.settled[u] || c > r.cost[u] {
			continue
		}
		r.settled[u] = true
		r.settledCount++
		r.relax(u)

		if r.settledCount%r.checkEvery == 0 && r.stop() {
			return false
		}
	}
}

// stop reports progress and polls for cancellation.
func (r *runner) stop() bool {
	frac := float64(r.settledCount) / float64(len(r.cost))
	if frac > r.reported {
		r.reported = frac
		r.sink.Progress(frac)
	}
	return r.sink.Cancelled() || (r.ctx != nil && r.ctx.Err() != nil)
}

// relax offers every unsettled neighbor of u the cost of reaching it via u.
// Only strictly smaller costs replace the current one, so the first path
// discovered wins ties.
func (r *runner) relax(u int32) {
	from := r.grid.CellAt(int(u))
	pred := grid.NoCell
	if p := r.pred[u]; p >= 0 {
		pred = r.grid.CellAt(int(p))
	}
	for to := range r.graph.NeighborsOf(from) {
		if !r.grid.Valid(to) {
			continue
		}
		v := int32(r.grid.Index(to))
		if r.settled[v] {
			continue
		}
		step := r.model.Cost(r.grid, pred, from, to)
		if step < 0 || math.IsNaN(step) {
			continue
		}
		next := r.cost[u] + step
		if next < r.cost[v] {
			r.cost[v] = next
			r.pred[v] = u
			r.queue.push(v, next)
		}
	}
}

// finalize writes every settled cost to the column and returns the largest.
func (r *runner) finalize(w *attr.ColumnWriter) (float64, error) {
	maxDepth := 0.0
	for i, done := range r.settled {
		if !done {
			continue
		}
		if err := w.Set(r.grid.CellAt(i), r.cost[i]); err != nil {
			return 0, err
		}
		maxDepth = max(maxDepth, r.cost[i])
	}
	return maxDepth, nil
}
