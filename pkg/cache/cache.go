// Package cache stores computed depth columns and run records keyed by
// content hashes.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry, for the CLI.
//   - [MemoryCache]: bounded in-process LRU, for the HTTP server.
//   - [RedisCache]: shared cache for multi-instance deployments.
//   - [NullCache]: caching disabled.
//
// # Keys
//
// A [Keyer] derives keys from the inputs of a run: the hash of the graph
// document, the cost model and the origin cells. Identical inputs always
// map to the same key because the engine is deterministic. [ScopedKeyer]
// prefixes every key for namespace isolation.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	TTLResult = 7 * 24 * time.Hour
	TTLRun    = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A miss is reported as (nil, false, nil), not as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey identifies the depth column of one run.
	ResultKey(graphHash string, opts ResultKeyOpts) string
	// RunKey identifies the stored record of a run by ID.
	RunKey(runID string) string
}

// ResultKeyOpts are the run inputs besides the graph that affect a result.
type ResultKeyOpts struct {
	Model   string `json:"model"`
	Origins []int  `json:"origins"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResultKey hashes the graph hash together with the model and origins.
// Origin order matters only as far as the caller passes it; callers should
// pass origins in selection order.
func (DefaultKeyer) ResultKey(graphHash string, opts ResultKeyOpts) string {
	return hashKey("result", graphHash, opts)
}

// RunKey returns "run:<id>".
func (DefaultKeyer) RunKey(runID string) string {
	return "run:" + runID
}
