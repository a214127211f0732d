// Package watch re-runs a callback whenever one of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 100 * time.Millisecond

type Watcher struct {
	// Paths are the files to watch. Their directories are watched so that
	// editors replacing a file by rename are noticed as well.
	Paths    []string
	Debounce time.Duration
	Logger   *slog.Logger
	// OnChange runs once at start and after every burst of changes. An error
	// is logged and watching continues.
	OnChange func(ctx context.Context, changed string) error
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	files := make(map[string]bool, len(w.Paths))
	dirs := make(map[string]bool)
	for _, p := range w.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}

	w.run(ctx, logger, "")

	var timer *time.Timer
	var fire <-chan time.Time
	var changed string
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !files[name] {
				continue
			}
			changed = name
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			logger.Info("Change detected", "file", filepath.Base(changed))
			w.run(ctx, logger, changed)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) run(ctx context.Context, logger *slog.Logger, changed string) {
	if err := w.OnChange(ctx, changed); err != nil {
		logger.Error("Render failed", "error", err)
	}
}
