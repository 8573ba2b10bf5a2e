package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vgadepth/pkg/attr"
	"github.com/matzehuels/vgadepth/pkg/cache"
	"github.com/matzehuels/vgadepth/pkg/depth"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/observability"
	"github.com/matzehuels/vgadepth/pkg/persist"
)

// Runner encapsulates run execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// ResultTTL bounds how long computed columns stay cached.
	ResultTTL time.Duration

	now func() time.Time
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		ResultTTL: cache.TTLResult,
		now:       time.Now,
	}
}

// Execute loads the inputs, computes the depth column and caches it.
//
// A cancelled run returns the engine's *depth.CancelledError; nothing is
// cached in that case.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	res := &Result{RunID: uuid.New()}
	logger := opts.Logger.With("run", res.RunID.String()[:8])

	// Stage 1: Load
	loadStart := time.Now()
	g, hash, err := LoadGraph(opts)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	res.Graph = g
	res.GraphHash = hash
	pts, err := LoadPoints(opts)
	if err != nil {
		return nil, err
	}

	// Stage 2: Select
	origins, err := Select(g.Grid(), pts)
	if err != nil {
		return nil, err
	}
	res.Stats = Stats{
		Cells:    g.Grid().Len(),
		Edges:    g.EdgeCount(),
		Origins:  origins.Len(),
		LoadTime: time.Since(loadStart),
	}
	logger.Info("loaded inputs",
		"cells", res.Stats.Cells,
		"edges", res.Stats.Edges,
		"origins", res.Stats.Origins,
		"duration", res.Stats.LoadTime)

	res.Store = attr.NewStore(g.Grid())
	res.Column, err = res.Store.CreateColumn(opts.Column)
	if err != nil {
		return nil, err
	}

	// Stage 3: Propagate, or restore from cache
	key := r.Keyer.ResultKey(hash, opts.CacheKeyOpts(g.Grid(), origins))
	runStart := time.Now()
	if !opts.Refresh {
		if hit, err := r.restore(ctx, key, res, opts); err != nil {
			logger.Warn("ignoring cached column", "err", err)
		} else if hit {
			res.Stats.RunTime = time.Since(runStart)
			logger.Info("restored step depth from cache", "model", opts.model, "duration", res.Stats.RunTime)
			return res, nil
		}
	}

	logger.Info("calculating step depth", "model", opts.model)
	observability.Run().OnRunStart(ctx, opts.model.String(), res.Stats.Cells, res.Stats.Origins)
	engine := depth.NewEngine(depth.WithCheckEvery(opts.CheckEvery), depth.WithLogger(logger))
	dres, err := engine.Run(ctx, depth.Job{
		Grid:    g.Grid(),
		Graph:   g,
		Origins: origins,
		Model:   opts.model,
		Store:   res.Store,
		Column:  res.Column,
		Sink:    opts.Progress,
	})
	res.Stats.RunTime = time.Since(runStart)
	observability.Run().OnRunComplete(ctx, opts.model.String(), dres.Settled, res.Stats.RunTime, err)
	if err != nil {
		return nil, err
	}
	res.Depth = dres
	logger.Info("calculated step depth",
		"model", opts.model,
		"settled", dres.Settled,
		"duration", res.Stats.RunTime)

	r.store(ctx, key, res)
	return res, nil
}

// restore fills res from the cached column under key.
func (r *Runner) restore(ctx context.Context, key string, res *Result, opts Options) (bool, error) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "result")
		return false, err
	}
	var col persist.Column
	if err := json.Unmarshal(data, &col); err != nil {
		return false, err
	}
	g := res.Graph.Grid()
	if len(col.Values) != g.Len() {
		return false, fmt.Errorf("cached column has %d values, grid has %d", len(col.Values), g.Len())
	}

	w, err := res.Store.Writer(res.Column)
	if err != nil {
		return false, err
	}
	defer w.Close()
	var maxDepth float64
	defined := 0
	for i, v := range col.Values {
		if attr.IsUndefined(v) {
			continue
		}
		if err := w.Set(g.CellAt(i), v); err != nil {
			return false, err
		}
		maxDepth = max(maxDepth, v)
		defined++
	}
	observability.Cache().OnCacheHit(ctx, "result")

	res.CacheHit = true
	res.Depth = depth.Result{
		Model:    opts.model,
		State:    depth.StateDone,
		Origins:  res.Stats.Origins,
		Settled:  defined,
		MaxDepth: maxDepth,
	}
	return true, nil
}

// store caches the computed column. Failures are logged, not returned.
func (r *Runner) store(ctx context.Context, key string, res *Result) {
	col, err := res.Snapshot()
	if err != nil {
		r.Logger.Warn("snapshot for cache failed", "err", err)
		return
	}
	data, err := json.Marshal(col)
	if err != nil {
		r.Logger.Warn("encode for cache failed", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.ResultTTL); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "result", len(data))
}

// Persist writes the result's column to each sink in order, stopping at the
// first failure.
func (r *Runner) Persist(ctx context.Context, res *Result, sinks ...persist.Sink) error {
	col, err := res.Snapshot()
	if err != nil {
		return err
	}
	for _, s := range sinks {
		start := time.Now()
		err := s.WriteColumn(ctx, col)
		d := time.Since(start)
		observability.Run().OnPersist(ctx, sinkName(s), col.Name, d, err)
		if err != nil {
			return vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "persist %s", sinkName(s))
		}
		r.Logger.Info("wrote column", "sink", sinkName(s), "column", col.Name, "duration", d.Round(time.Millisecond))
	}
	return nil
}

// SaveRecord stores the run record under its run key.
func (r *Runner) SaveRecord(ctx context.Context, res *Result) (Record, error) {
	rec, err := res.Record(r.now())
	if err != nil {
		return Record{}, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if err := r.Cache.Set(ctx, r.Keyer.RunKey(rec.RunID), data, cache.TTLRun); err != nil {
		return Record{}, vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "save run %s", rec.RunID)
	}
	return rec, nil
}

// LoadRecord fetches a stored run record by ID.
func (r *Runner) LoadRecord(ctx context.Context, runID string) (Record, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return Record{}, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "invalid run id %q", runID)
	}
	data, hit, err := r.Cache.Get(ctx, r.Keyer.RunKey(runID))
	if err != nil {
		return Record{}, vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "load run %s", runID)
	}
	if !hit {
		return Record{}, vgaerrors.New(vgaerrors.ErrCodeRunNotFound, "run %s not found", runID)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, vgaerrors.Wrap(vgaerrors.ErrCodeInternal, err, "decode run %s", runID)
	}
	return rec, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func sinkName(s persist.Sink) string {
	if n, ok := s.(interface{ String() string }); ok {
		return n.String()
	}
	return fmt.Sprintf("%T", s)
}
