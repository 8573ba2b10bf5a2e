package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogRunHooks logs run events at debug level.
type LogRunHooks struct {
	Logger *log.Logger
}

// NewLogRunHooks returns run hooks that write to l.
func NewLogRunHooks(l *log.Logger) *LogRunHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogRunHooks{Logger: l}
}

func (h *LogRunHooks) OnRunStart(_ context.Context, model string, cells, origins int) {
	h.Logger.Debug("run started", "model", model, "cells", cells, "origins", origins)
}

func (h *LogRunHooks) OnRunComplete(_ context.Context, model string, settled int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("run failed", "model", model, "settled", settled, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("run complete", "model", model, "settled", settled, "duration", d)
}

func (h *LogRunHooks) OnPersist(_ context.Context, sink, column string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Warn("persist failed", "sink", sink, "column", column, "err", err)
		return
	}
	h.Logger.Debug("persisted column", "sink", sink, "column", column, "duration", d)
}

// LogCacheHooks logs cache events at debug level.
type LogCacheHooks struct {
	Logger *log.Logger
}

func (h *LogCacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogCacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogCacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ RunHooks   = (*LogRunHooks)(nil)
	_ CacheHooks = (*LogCacheHooks)(nil)
)
