package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	old := ReloadDelay
	ReloadDelay = 20 * time.Millisecond
	t.Cleanup(func() { ReloadDelay = old })

	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "single.yaml")
	require.NoError(t, os.WriteFile(file, []byte("queries: []\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{dir, file}, func() { changed <- struct{}{} })
	}()

	waitFor := func(t *testing.T) {
		t.Helper()
		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatal("no change notification")
		}
	}

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	t.Run("new file in directory", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "new.yaml"), []byte("queries: []\n"), 0o644))
		waitFor(t)
	})

	t.Run("watched file rewritten through store", func(t *testing.T) {
		require.NoError(t, NewStore(file).Add(context.Background(), Query{Name: "a", Unix: Strings{"true"}}))
		waitFor(t)
	})

	t.Run("other files are ignored", func(t *testing.T) {
		time.Sleep(100 * time.Millisecond)
		for len(changed) > 0 {
			<-changed
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		select {
		case <-changed:
			t.Fatal("unexpected change notification")
		case <-time.After(200 * time.Millisecond):
		}
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
