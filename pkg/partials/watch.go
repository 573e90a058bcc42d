package partials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates Store entries when files below a directory change.
type Watcher struct {
	dir      string
	store    *Store
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	onChange func(name string)
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// OnChange registers fn to run after a partial has been invalidated.
func OnChange(fn func(name string)) WatchOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WatchLogger sets the watcher logger.
func WatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher watches dir, and every directory below it, for changes to the
// partials cached in store. Names are the slash separated paths relative to
// dir, matching the names NewDirSource resolves.
func NewWatcher(dir string, store *Store, opts ...WatchOption) (*Watcher, error) {
	if store == nil {
		return nil, errors.New("partials: store is required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("partials: create watcher: %w", err)
	}

	w := &Watcher{
		dir:     dir,
		store:   store,
		watcher: fw,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(w)
	}

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		return fw.Add(path)
	})
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("partials: watch %s: %w", dir, err)
	}
	return w, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("partial watcher error", slog.Any("error", err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("partial watcher could not follow directory",
					slog.String("dir", event.Name), slog.Any("error", err))
			}
			return
		}
	}

	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		return
	}
	name := filepath.ToSlash(rel)
	w.store.Invalidate(name)
	if w.onChange != nil {
		w.onChange(name)
	}
}
