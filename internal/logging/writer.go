// Package logging records query results to a file alongside terminal output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// TeeWriter writes to a primary writer and appends to a log file.
// It implements io.WriteCloser.
type TeeWriter struct {
	primary io.Writer
	logFile *os.File
	mu      sync.Mutex
}

// NewTeeWriter opens logPath for appending, creating it and its directory
// when needed. A nil primary writes to the log file only.
func NewTeeWriter(primary io.Writer, logPath string) (*TeeWriter, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	//nolint:gosec // G302/G304: path is chosen by the user on the command line
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &TeeWriter{
		primary: primary,
		logFile: logFile,
	}, nil
}

// Write writes p to the log file, then to the primary writer.
func (t *TeeWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logFile != nil {
		if _, err := t.logFile.Write(p); err != nil {
			return 0, fmt.Errorf("write to log file: %w", err)
		}
	}

	if t.primary != nil {
		return t.primary.Write(p)
	}
	return len(p), nil
}

// Close closes the log file. The primary writer is not closed.
func (t *TeeWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logFile == nil {
		return nil
	}
	err := t.logFile.Close()
	t.logFile = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// LogPath returns the path of the log file, or "" once closed.
func (t *TeeWriter) LogPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logFile != nil {
		return t.logFile.Name()
	}
	return ""
}
