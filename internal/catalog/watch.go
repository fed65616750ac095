package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/homiodev/homio-hquery/internal/slogger"
)

// ReloadDelay coalesces bursts of file events into one reload.
var ReloadDelay = 250 * time.Millisecond

// Watch calls onChange after catalog files under paths change. It blocks
// until ctx is done. Parent directories of files are watched so atomic
// renames are seen.
func Watch(ctx context.Context, paths []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	logger := slogger.L(ctx)
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		dir := abs
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			dirs[abs] = true
		} else {
			files[abs] = true
			dir = filepath.Dir(abs)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	relevant := func(name string) bool {
		abs, err := filepath.Abs(name)
		if err != nil {
			return false
		}
		return files[abs] || (dirs[filepath.Dir(abs)] && isCatalogFile(abs))
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			logger.Debug("catalog file changed", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(ReloadDelay, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher error", "error", err)
		}
	}
}
