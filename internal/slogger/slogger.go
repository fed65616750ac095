// Package slogger provides structured logging for hquery using Go's slog with
// charmbracelet/log as the handler for readable terminal output.
package slogger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type contextKey string

const loggerKey contextKey = "logger"

// Config holds logger configuration.
type Config struct {
	// Verbosity controls log level:
	// 0 (default) -> Error only
	// 1 (-v)      -> Info level
	// 2+ (-vv)    -> Debug level
	Verbosity int

	// Output is the writer for log output. Defaults to os.Stderr.
	Output io.Writer

	// Timestamps adds a time column, useful for long-running watch output.
	Timestamps bool
}

// New creates a new slog.Logger with charmbracelet/log as the handler.
func New(cfg Config) *slog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var level charmlog.Level
	switch {
	case cfg.Verbosity >= 2:
		level = charmlog.DebugLevel
	case cfg.Verbosity == 1:
		level = charmlog.InfoLevel
	default:
		level = charmlog.ErrorLevel
	}

	handler := charmlog.NewWithOptions(output, charmlog.Options{
		Level:           level,
		Prefix:          "hquery",
		ReportTimestamp: cfg.Timestamps,
		ReportCaller:    false,
	})

	return slog.New(handler)
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context.
// Returns a discarding logger if none is set (never returns nil).
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}

// L is a convenience alias for FromContext.
func L(ctx context.Context) *slog.Logger {
	return FromContext(ctx)
}

// Progress logs live process output: stdout lines at info, stderr lines at
// error. It satisfies query.ProgressSink.
type Progress struct {
	Logger *slog.Logger
}

// Progress implements query.ProgressSink.
func (p Progress) Progress(pct float64, msg string, isError bool) {
	if p.Logger == nil {
		return
	}
	if isError {
		p.Logger.Error(msg, "progress", pct)
		return
	}
	p.Logger.Info(msg, "progress", pct)
}
