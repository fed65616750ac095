package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

type executor struct{}

// New returns a new Executor that uses os/exec.
func New() Executor {
	return &executor{}
}

func (e *executor) Start(ctx context.Context, opts *StartOptions) (Process, error) {
	if opts == nil || len(opts.Argv) == 0 {
		return nil, ErrEmptyCommand
	}
	name, args := Command(opts.Argv)

	// G204: This is intentional - we're an executor that runs descriptor-declared commands.
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // Intentional subprocess execution

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	// Plain os pipes instead of StdoutPipe: Wait must not close the read
	// ends while the drain readers are still consuming them.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	return &process{
		cmd:    cmd,
		stdout: stdoutR,
		stderr: stderrR,
		done:   make(chan struct{}),
	}, nil
}

func (e *executor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

type process struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	once    sync.Once
	done    chan struct{}
	waitErr error
}

func (p *process) Stdout() io.ReadCloser { return p.stdout }
func (p *process) Stderr() io.ReadCloser { return p.stderr }
func (p *process) PID() int              { return p.cmd.Process.Pid }

func (p *process) Wait(timeout time.Duration) (int, bool, error) {
	p.once.Do(func() {
		go func() {
			p.waitErr = p.cmd.Wait()
			close(p.done)
		}()
	})

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-p.done:
		return p.exitCode(), false, p.err()
	case <-expired:
		_ = p.Kill()
		<-p.done
		return p.exitCode(), true, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

func (p *process) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

func (p *process) exitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// err hides the ExitError of a normal non-zero exit.
func (p *process) err() error {
	var exitErr *exec.ExitError
	if p.waitErr == nil || errors.As(p.waitErr, &exitErr) {
		return nil
	}
	return p.waitErr
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
