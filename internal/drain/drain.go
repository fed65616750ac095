// Package drain reads a process's stdout and stderr concurrently so neither
// pipe can fill up and block the child.
package drain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultStopTimeout bounds how long Stop waits for readers after cancelling.
const DefaultStopTimeout = 5 * time.Second

// Scanner buffer sizes.
const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 1024 * 1024
)

// Sink receives each non-empty line as it is read.
type Sink func(line string, isError bool)

// Pair owns the two readers of one process.
type Pair struct {
	stdout  buffer
	stderr  buffer
	cancel  context.CancelFunc
	closers []io.Closer
	done    chan struct{}
}

// Start begins draining stdout and stderr. Readers that are also io.Closers
// are closed by Stop.
func Start(ctx context.Context, stdout, stderr io.Reader, sink Sink) *Pair {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	p := &Pair{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, r := range []io.Reader{stdout, stderr} {
		if c, ok := r.(io.Closer); ok {
			p.closers = append(p.closers, c)
		}
	}

	g.Go(func() error { return read(gctx, "stdout", stdout, &p.stdout, false, sink) })
	g.Go(func() error { return read(gctx, "stderr", stderr, &p.stderr, true, sink) })

	go func() {
		_ = g.Wait()
		close(p.done)
	}()
	return p
}

// Stop waits up to grace for both readers to reach end of stream, then
// cancels them by closing the streams and waits up to stopTimeout more.
// Readers still blocked after that are abandoned. The returned slices hold
// every line collected so far, in emission order per stream.
func (p *Pair) Stop(grace, stopTimeout time.Duration) (stdout, stderr []string) {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	if grace > 0 {
		timer := time.NewTimer(grace)
		select {
		case <-p.done:
		case <-timer.C:
		}
		timer.Stop()
	}

	p.cancel()
	for _, c := range p.closers {
		_ = c.Close()
	}

	timer := time.NewTimer(stopTimeout)
	select {
	case <-p.done:
	case <-timer.C:
	}
	timer.Stop()

	return p.stdout.snapshot(), p.stderr.snapshot()
}

// Done is closed once both readers have finished.
func (p *Pair) Done() <-chan struct{} {
	return p.done
}

func read(ctx context.Context, name string, r io.Reader, buf *buffer, isError bool, sink Sink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		buf.append(line)
		if sink != nil && line != "" {
			sink(line, isError)
		}
	}

	err := scanner.Err()
	if err == nil || closed(err) {
		return nil
	}
	// Kept as an output line so the outcome records the failure.
	buf.append(fmt.Sprintf("%s reader error: %v", name, err))
	return err
}

func closed(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, context.Canceled)
}

type buffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *buffer) append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

func (b *buffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}
