package engine

import (
	"time"

	"github.com/homiodev/homio-hquery/internal/query"
)

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout  time.Duration
	progress query.ProgressSink
}

// WithTimeout overrides the descriptor timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// WithProgress streams live output lines of the call to sink.
func WithProgress(sink query.ProgressSink) CallOption {
	return func(o *callOptions) { o.progress = sink }
}
