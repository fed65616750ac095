package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/homiodev/homio-hquery/internal/drain"
	"github.com/homiodev/homio-hquery/internal/exec"
	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/slogger"
)

// Transports reported to the observer.
const (
	transportProcess = "process"
	transportHTTP    = "http"
)

// spawnExitCode is recorded when a process cannot be started.
const spawnExitCode = 1

// run starts one process, drains its output, and waits for it to exit.
// command is the masked form of parts used in messages.
func (e *Engine) run(ctx context.Context, d *query.Descriptor, parts []string, command string, args []query.Arg, timeout time.Duration, sink query.ProgressSink) *query.Outcome {
	logger := slogger.L(ctx)

	if sink == nil && d.PrintOutput {
		sink = slogger.Progress{Logger: logger}
	}
	progress(sink, 0, fmt.Sprintf("Execute: '%s'. Command: '%s'", d.Name, command), false)

	opts := &exec.StartOptions{Argv: parts}
	if d.Dir != "" {
		opts.Dir = e.resolver.Resolve(d.Dir, args)
	}

	start := time.Now()
	proc, err := e.executor.Start(ctx, opts)
	if err != nil {
		elapsed := time.Since(start)
		logger.Error("unable to start process", "error", err)
		e.observer.Invoked(d.Name, transportProcess, spawnExitCode, elapsed)
		return &query.Outcome{
			Command:  command,
			ExitCode: spawnExitCode,
			Stderr:   []string{err.Error()},
			Duration: elapsed,
			Err:      err,
		}
	}
	logger.Debug("process started", "pid", proc.PID(), "timeout", timeout)

	var lineSink drain.Sink
	if sink != nil {
		lineSink = func(line string, isError bool) {
			sink.Progress(50, line, isError)
		}
	}
	pair := drain.Start(ctx, proc.Stdout(), proc.Stderr(), lineSink)

	code, timedOut, waitErr := proc.Wait(timeout)

	grace := d.StreamGrace
	if grace <= 0 {
		grace = e.streamGrace
	}
	stdout, stderr := pair.Stop(grace, e.stopTimeout)

	switch {
	case timedOut:
		logger.Error("process timed out", "timeout", timeout)
		stderr = append(stderr, waitErr.Error())
	case waitErr != nil:
		stderr = append(stderr, waitErr.Error())
	case code != 0 && ctx.Err() != nil:
		stderr = append(stderr, ctx.Err().Error())
	}
	if code == 0 && (timedOut || waitErr != nil) {
		code = spawnExitCode
	}

	elapsed := time.Since(start)
	e.observer.Invoked(d.Name, transportProcess, code, elapsed)
	progress(sink, 100, fmt.Sprintf("Finished '%s' with exit code %d", d.Name, code), false)
	logger.Debug("process finished",
		"exit_code", code,
		"duration", elapsed,
		"stdout_lines", len(stdout),
		"stderr_lines", len(stderr),
	)

	return &query.Outcome{
		Command:  command,
		ExitCode: code,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: elapsed,
	}
}

// fetch performs the HTTP request of a URL descriptor.
func (e *Engine) fetch(ctx context.Context, d *query.Descriptor, url, display string, timeout time.Duration) *query.Outcome {
	start := time.Now()
	body, err := e.http.Get(ctx, url, timeout)
	elapsed := time.Since(start)

	if err != nil {
		err = maskURL(err, url, display)
		slogger.L(ctx).Error("request failed", "url", display, "error", err)
		e.observer.Invoked(d.Name, transportHTTP, -1, elapsed)
		return &query.Outcome{
			Command:  display,
			ExitCode: -1,
			Stderr:   []string{err.Error()},
			Duration: elapsed,
			Err:      err,
		}
	}

	e.observer.Invoked(d.Name, transportHTTP, 0, elapsed)
	return &query.Outcome{
		Command:  display,
		Stdout:   splitLines(string(body)),
		Duration: elapsed,
	}
}

// maskedError replaces the resolved URL in an error message with its display
// form and keeps the wrapped chain.
type maskedError struct {
	err error
	msg string
}

func (m *maskedError) Error() string { return m.msg }
func (m *maskedError) Unwrap() error { return m.err }

func maskURL(err error, url, display string) error {
	if url == display {
		return err
	}
	return &maskedError{err: err, msg: strings.ReplaceAll(err.Error(), url, display)}
}

func progress(sink query.ProgressSink, pct float64, msg string, isError bool) {
	if sink != nil {
		sink.Progress(pct, msg, isError)
	}
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
