package depth

import "context"

// ProgressSink receives progress and is polled for cancellation at each
// check point of a run.
type ProgressSink interface {
	// Progress reports the settled fraction in [0, 1]. Values never decrease
	// within a run.
	Progress(fraction float64)
	// Cancelled reports whether the run should stop.
	Cancelled() bool
}

// NopSink ignores progress and never cancels.
type NopSink struct{}

func (NopSink) Progress(float64) {}
func (NopSink) Cancelled() bool { return false }

// FuncSink adapts two functions to a ProgressSink. Either may be nil.
type FuncSink struct {
	OnProgress  func(fraction float64)
	IsCancelled func() bool
}

func (s FuncSink) Progress(f float64) {
	if s.OnProgress != nil {
		s.OnProgress(f)
	}
}

func (s FuncSink) Cancelled() bool {
	return s.IsCancelled != nil && s.IsCancelled()
}

// ContextSink cancels when ctx is done and forwards progress to fn, which
// may be nil.
func ContextSink(ctx context.Context, fn func(fraction float64)) ProgressSink {
	return FuncSink{
		OnProgress:  fn,
		IsCancelled: func() bool { return ctx.Err() != nil },
	}
}
