//go:build !windows

package exec

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
}

func TestCommand(t *testing.T) {
	t.Run("single part uses shell", func(t *testing.T) {
		name, args := Command([]string{"echo hi | tr a-z A-Z"})
		assert.Equal(t, "/bin/sh", name)
		assert.Equal(t, []string{"-c", "echo hi | tr a-z A-Z"}, args)
	})

	t.Run("several parts form argv", func(t *testing.T) {
		name, args := Command([]string{"ls", "-la", "/tmp"})
		assert.Equal(t, "ls", name)
		assert.Equal(t, []string{"-la", "/tmp"}, args)
	})
}

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestExecutor_Start(t *testing.T) {
	e := New()
	ctx := context.Background()

	t.Run("captures stdout through shell", func(t *testing.T) {
		p, err := e.Start(ctx, &StartOptions{Argv: []string{"echo hello"}})
		require.NoError(t, err)
		assert.Positive(t, p.PID())

		assert.Equal(t, "hello\n", readAll(t, p.Stdout()))
		assert.Empty(t, readAll(t, p.Stderr()))

		code, timedOut, err := p.Wait(time.Second)
		require.NoError(t, err)
		assert.False(t, timedOut)
		assert.Equal(t, 0, code)
	})

	t.Run("captures stderr", func(t *testing.T) {
		p, err := e.Start(ctx, &StartOptions{Argv: []string{"sh", "-c", "echo oops >&2"}})
		require.NoError(t, err)

		assert.Empty(t, readAll(t, p.Stdout()))
		assert.Equal(t, "oops\n", readAll(t, p.Stderr()))

		code, _, err := p.Wait(time.Second)
		require.NoError(t, err)
		assert.Equal(t, 0, code)
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		p, err := e.Start(ctx, &StartOptions{Argv: []string{"sh", "-c", "exit 42"}})
		require.NoError(t, err)
		_ = readAll(t, p.Stdout())
		_ = readAll(t, p.Stderr())

		code, timedOut, err := p.Wait(time.Second)
		require.NoError(t, err)
		assert.False(t, timedOut)
		assert.Equal(t, 42, code)
	})

	t.Run("kills on timeout", func(t *testing.T) {
		p, err := e.Start(ctx, &StartOptions{Argv: []string{"sleep 5"}})
		require.NoError(t, err)
		defer p.Stdout().Close()
		defer p.Stderr().Close()

		start := time.Now()
		code, timedOut, err := p.Wait(100 * time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.True(t, timedOut)
		assert.NotEqual(t, 0, code)
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("working directory and env", func(t *testing.T) {
		dir := t.TempDir()
		p, err := e.Start(ctx, &StartOptions{
			Argv: []string{"pwd && echo $HQUERY_TEST"},
			Dir:  dir,
			Env:  []string{"HQUERY_TEST=set"},
		})
		require.NoError(t, err)

		out := readAll(t, p.Stdout())
		_ = readAll(t, p.Stderr())
		_, _, err = p.Wait(time.Second)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], dir[strings.LastIndex(dir, "/")+1:])
		assert.Equal(t, "set", lines[1])
	})

	t.Run("spawn failure", func(t *testing.T) {
		_, err := e.Start(ctx, &StartOptions{Argv: []string{"/nonexistent/hquery-binary", "arg"}})
		require.Error(t, err)
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := e.Start(ctx, &StartOptions{})
		assert.ErrorIs(t, err, ErrEmptyCommand)
	})
}

func TestExecutor_LookPath(t *testing.T) {
	e := New()

	path, err := e.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = e.LookPath("hquery-nonexistent-binary-xyz")
	assert.Error(t, err)
}
