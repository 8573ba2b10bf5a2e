// Package pipeline runs step-depth analyses end to end.
//
// This package implements the load → select → propagate → persist sequence
// shared by the CLI and the HTTP API. By centralizing it, both entry points
// resolve points, derive column names and use the result cache the same way.
//
// # Stages
//
//  1. Load: read the visibility graph and the origin points
//  2. Select: map points to cells, failing on any point outside the region
//  3. Propagate: run the depth engine into a fresh attribute store
//  4. Persist: hand the column to one or more sinks
//
// Stage 3 is skipped on a cache hit: the column is restored from the cache
// instead, since identical inputs always produce the identical column.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    GraphPath: "graph.json",
//	    Points:    []grid.Point{{X: 1.5, Y: 2.5}},
//	    Type:      "angular",
//	})
//	if err != nil {
//	    return err
//	}
//	err = runner.Persist(ctx, res, persist.NewCSVFile("depth.csv"))
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vgadepth/pkg/attr"
	"github.com/matzehuels/vgadepth/pkg/cache"
	"github.com/matzehuels/vgadepth/pkg/depth"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/persist"
	"github.com/matzehuels/vgadepth/pkg/selection"
	"github.com/matzehuels/vgadepth/pkg/vga"
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options contains all configuration for one step-depth run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Input options
	GraphPath  string       `json:"graph_path,omitempty"`
	Points     []grid.Point `json:"points,omitempty"`
	PointsFile string       `json:"points_file,omitempty"`
	Delimiter  rune         `json:"delimiter,omitempty"` // points file delimiter, default tab

	// Analysis options
	Type       string `json:"type"`             // angular, metric or visual
	Column     string `json:"column,omitempty"` // default derives from Type
	CheckEvery int    `json:"check_every,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`   // bypass the result cache
	MaxCells   int    `json:"max_cells,omitempty"` // 0 leaves only grid.MaxCells

	// Runtime options (not serialized)
	Graph    *vga.Graph         `json:"-"` // takes precedence over GraphPath
	Progress depth.ProgressSink `json:"-"`
	Logger   *log.Logger        `json:"-"`

	model depth.Model
	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Model returns the parsed cost model. Valid after ValidateAndSetDefaults.
func (o *Options) Model() depth.Model { return o.model }

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Graph == nil && o.GraphPath == "" {
		return vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "graph is required")
	}
	if len(o.Points) > 0 && o.PointsFile != "" {
		return vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "points cannot be used together with points_file")
	}
	if len(o.Points) == 0 && o.PointsFile == "" {
		return vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "points or points_file is required")
	}
	m, err := depth.ParseModel(o.Type)
	if err != nil {
		return err
	}
	o.model = m
	if o.Column == "" {
		o.Column = m.Column()
	}
	if err := vgaerrors.ValidateColumnName(o.Column); err != nil {
		return err
	}
	if o.Delimiter == 0 {
		o.Delimiter = selection.DefaultFileDelimiter
	}
	if err := vgaerrors.ValidateDelimiter(o.Delimiter); err != nil {
		return err
	}
	if o.CheckEvery <= 0 {
		o.CheckEvery = depth.DefaultCheckEvery
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a run.
type Result struct {
	// RunID identifies the run in logs and the API.
	RunID uuid.UUID

	// Graph is the visibility graph the run used.
	Graph *vga.Graph

	// GraphHash is the content hash of the graph, neighbor order included.
	GraphHash string

	// Store holds the computed column.
	Store *attr.Store

	// Column is the handle of the computed column in Store.
	Column attr.ColumnHandle

	// Depth is the engine's report. On a cache hit only Model, State,
	// Origins and MaxDepth are set.
	Depth depth.Result

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the column came from the cache.
	CacheHit bool
}

// Stats contains run statistics.
type Stats struct {
	Cells    int
	Edges    int
	Origins  int
	LoadTime time.Duration
	RunTime  time.Duration
}

// Snapshot copies the computed column out of the store.
func (r *Result) Snapshot() (persist.Column, error) {
	return persist.FromStore(r.Store, r.Column)
}

// Summary computes statistics over the computed column.
func (r *Result) Summary() (attr.Summary, error) {
	return r.Store.Summarize(r.Column)
}

// Record is the stored description of a finished run.
type Record struct {
	RunID     string          `json:"run_id"`
	Model     string          `json:"model"`
	Column    string          `json:"column"`
	GraphHash string          `json:"graph_hash"`
	Origins   int             `json:"origins"`
	Settled   int             `json:"settled"`
	MaxDepth  float64         `json:"max_depth"`
	Duration  time.Duration   `json:"duration_ns"`
	CacheHit  bool            `json:"cache_hit"`
	CreatedAt time.Time       `json:"created_at"`
	Summary   attr.Summary    `json:"summary"`
	Values    *persist.Column `json:"values,omitempty"`
}

// Record builds the stored description of r, including the column values.
func (r *Result) Record(now time.Time) (Record, error) {
	col, err := r.Snapshot()
	if err != nil {
		return Record{}, err
	}
	sum, err := r.Summary()
	if err != nil {
		return Record{}, err
	}
	return Record{
		RunID:     r.RunID.String(),
		Model:     r.Depth.Model.String(),
		Column:    col.Name,
		GraphHash: r.GraphHash,
		Origins:   r.Depth.Origins,
		Settled:   r.Depth.Settled,
		MaxDepth:  r.Depth.MaxDepth,
		Duration:  r.Stats.RunTime,
		CacheHit:  r.CacheHit,
		CreatedAt: now.UTC(),
		Summary:   sum,
		Values:    &col,
	}, nil
}

// CacheKeyOpts returns cache key options for the result of this run.
func (o *Options) CacheKeyOpts(g *grid.Grid, origins *selection.Set) cache.ResultKeyOpts {
	idx := make([]int, 0, origins.Len())
	for c := range origins.All() {
		idx = append(idx, g.Index(c))
	}
	return cache.ResultKeyOpts{Model: o.model.String(), Origins: idx}
}
