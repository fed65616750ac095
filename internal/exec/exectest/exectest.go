// Package exectest provides a scripted exec.Executor for tests.
package exectest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/homiodev/homio-hquery/internal/exec"
)

// Script describes how a fake process behaves.
type Script struct {
	Stdout   []string
	Stderr   []string
	ExitCode int

	// StartErr makes Start fail.
	StartErr error

	// Runtime delays the exit after all output is written.
	Runtime time.Duration

	// Hang keeps the process alive until it is killed.
	Hang bool

	// KeepOpen leaves the output pipes open after exit, like a background
	// child that inherited them.
	KeepOpen bool
}

// Executor is a fake exec.Executor. Scripts are keyed by the argv joined
// with ", "; unknown commands use Default.
type Executor struct {
	mu      sync.Mutex
	Scripts map[string]Script
	Default Script
	Paths   map[string]string
	calls   []exec.StartOptions
}

// New returns an Executor with the given scripts.
func New(scripts map[string]Script) *Executor {
	return &Executor{Scripts: scripts}
}

// Start implements exec.Executor.
func (e *Executor) Start(_ context.Context, opts *exec.StartOptions) (exec.Process, error) {
	if opts == nil || len(opts.Argv) == 0 {
		return nil, exec.ErrEmptyCommand
	}
	e.mu.Lock()
	e.calls = append(e.calls, *opts)
	script, ok := e.Scripts[strings.Join(opts.Argv, ", ")]
	if !ok {
		script = e.Default
	}
	e.mu.Unlock()

	if script.StartErr != nil {
		return nil, script.StartErr
	}
	return start(script), nil
}

// LookPath implements exec.Executor.
func (e *Executor) LookPath(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.Paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%s: executable file not found in $PATH", name)
}

// Calls returns a copy of every StartOptions seen.
func (e *Executor) Calls() []exec.StartOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]exec.StartOptions(nil), e.calls...)
}

// Starts returns how many processes were started.
func (e *Executor) Starts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type process struct {
	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter

	done     chan struct{}
	killed   chan struct{}
	killOnce sync.Once
	code     int
}

func start(s Script) *process {
	p := &process{
		done:   make(chan struct{}),
		killed: make(chan struct{}),
		code:   s.ExitCode,
	}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()

	var wg sync.WaitGroup
	wg.Add(2)
	go p.write(&wg, p.stdoutW, s.Stdout, s.KeepOpen)
	go p.write(&wg, p.stderrW, s.Stderr, s.KeepOpen)

	go func() {
		wg.Wait()
		var runtime <-chan time.Time
		if s.Runtime > 0 {
			runtime = time.After(s.Runtime)
		}
		switch {
		case s.Hang:
			<-p.killed
			p.code = -1
		case runtime != nil:
			select {
			case <-runtime:
			case <-p.killed:
				p.code = -1
			}
		}
		close(p.done)
	}()
	return p
}

func (p *process) write(wg *sync.WaitGroup, w *io.PipeWriter, lines []string, keepOpen bool) {
	defer wg.Done()
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return
		}
	}
	if !keepOpen {
		_ = w.Close()
	}
}

func (p *process) Stdout() io.ReadCloser { return p.stdoutR }
func (p *process) Stderr() io.ReadCloser { return p.stderrR }
func (p *process) PID() int              { return 4242 }

func (p *process) Wait(timeout time.Duration) (int, bool, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-p.done:
		return p.code, false, nil
	case <-expired:
		_ = p.Kill()
		<-p.done
		return p.code, true, fmt.Errorf("%w after %s", exec.ErrTimeout, timeout)
	}
}

func (p *process) Kill() error {
	p.killOnce.Do(func() {
		close(p.killed)
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
	})
	return nil
}
