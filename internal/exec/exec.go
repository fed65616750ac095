// Package exec starts the external processes and HTTP requests behind query
// invocations.
package exec

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors for process execution.
var (
	ErrEmptyCommand = errors.New("empty command")
	ErrTimeout      = errors.New("process timed out")
)

// StartOptions configures a process launch.
type StartOptions struct {
	Argv []string // Resolved command parts (required)
	Dir  string   // Working directory (empty = current)
	Env  []string // Additional environment variables (KEY=VALUE format)
}

// Process is a running external process whose output is read by the caller.
type Process interface {
	// Stdout and Stderr are the read ends of the output pipes. The caller
	// owns them and must close them when done reading.
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser

	// Wait blocks until the process exits or timeout elapses. On timeout
	// the process is killed and timedOut is true. A positive exit code is
	// not an error. A zero timeout waits indefinitely.
	Wait(timeout time.Duration) (exitCode int, timedOut bool, err error)

	// Kill terminates the process.
	Kill() error

	PID() int
}

// Executor starts external processes.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/executor.go . Executor
type Executor interface {
	// Start launches the command described by opts. A single part runs
	// through the platform shell; several parts are executed as an argv.
	Start(ctx context.Context, opts *StartOptions) (Process, error)

	// LookPath searches for an executable in PATH.
	LookPath(name string) (string, error)
}

// Command returns the program and arguments used to run argv.
func Command(argv []string) (string, []string) {
	if len(argv) > 1 {
		return argv[0], argv[1:]
	}
	return shellName, []string{shellFlag, argv[0]}
}
