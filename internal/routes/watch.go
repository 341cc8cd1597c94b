package routes

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the table at path whenever the file changes and passes each
// successfully parsed table to apply. Invalid edits are logged and skipped so
// the previous table stays in effect. Blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply func(*Table)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("route watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file rather than write it.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Reload once the burst of events from a single save settles.
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C
		case <-reload:
			reload = nil
			t, err := LoadFile(path)
			if err != nil {
				logger.Warn("route table reload failed", "path", path, "error", err)
				continue
			}
			logger.Info("route table reloaded", "path", path, "music_routes", len(t.MusicRoutes()))
			apply(t)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("route watcher error", "error", err)
		}
	}
}
