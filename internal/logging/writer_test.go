package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeWriter_Write(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "results", "cpu-temp.log")

	primary := &bytes.Buffer{}
	tw, err := NewTeeWriter(primary, logPath)
	require.NoError(t, err)
	assert.Equal(t, logPath, tw.LogPath())

	n, err := tw.Write([]byte("41\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = tw.Write([]byte("42\n"))
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	assert.Equal(t, "41\n42\n", primary.String())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "41\n42\n", string(data))
}

func TestTeeWriter_Appends(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "results.log")
	require.NoError(t, os.WriteFile(logPath, []byte("old\n"), 0o644))

	tw, err := NewTeeWriter(nil, logPath)
	require.NoError(t, err)

	n, err := tw.Write([]byte("new\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, tw.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestTeeWriter_Close(t *testing.T) {
	tw, err := NewTeeWriter(&bytes.Buffer{}, filepath.Join(t.TempDir(), "a.log"))
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, tw.Close())
	assert.Equal(t, "", tw.LogPath())

	_, err = tw.Write([]byte("after close\n"))
	assert.NoError(t, err)
}

func TestNewTeeWriter_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewTeeWriter(nil, filepath.Join(blocker, "sub", "x.log"))
	assert.Error(t, err)
}
