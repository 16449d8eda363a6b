package lm

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader is what the Watcher triggers on file changes.
type Reloader interface {
	Load(ctx context.Context) error
}

// Watcher reloads the model whenever its file changes on disk. The parent
// directory is watched so that editors and deploy tools that replace the file
// are noticed too.
type Watcher struct {
	path     string
	reloader Reloader
	debounce time.Duration
	log      *slog.Logger
}

// NewWatcher creates a Watcher for the model file at path.
func NewWatcher(log *slog.Logger, path string, reloader Reloader, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		path:     filepath.Clean(path),
		reloader: reloader,
		debounce: debounce,
		log:      log.With("component", "lm_watcher"),
	}
}

// Run watches until ctx is done. A failed reload keeps the previous model.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.log.InfoContext(ctx, "watching model file", slog.String("path", w.path))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WarnContext(ctx, "model watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			if err := w.reloader.Load(ctx); err != nil {
				w.log.ErrorContext(ctx, "model reload failed, keeping previous model",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
