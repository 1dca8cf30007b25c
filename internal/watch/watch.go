// Package watch re-imports a word file whenever it changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/checksum"
	"github.com/starford/wordmaster/internal/importer"
	"github.com/starford/wordmaster/internal/session"
)

// DefaultDebounce is how long the file must be quiet before it is re-read.
const DefaultDebounce = 200 * time.Millisecond

// Importer replaces the word collection from raw text.
type Importer interface {
	Import(text string) (session.Snapshot, int, error)
}

// EventCallback is called after a watcher-driven import with the number of
// words imported.
type EventCallback func(path string, count int)

// Watcher follows a single word file.
type Watcher struct {
	path     string
	imp      Importer
	logger   *slog.Logger
	debounce time.Duration
	cb       EventCallback

	last string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithCallback sets a callback invoked after every successful import.
func WithCallback(cb EventCallback) Option {
	return func(w *Watcher) { w.cb = cb }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for path. The file's current content counts as
// already imported, so starting the watcher never overwrites study progress.
func New(path string, imp Importer, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		imp:      imp,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if text, err := importer.ReadFile(w.path); err == nil {
		w.last = checksum.Text(text)
	}
	return w
}

// Run watches the file's directory until ctx is cancelled. The directory is
// watched rather than the file so editors that save by rename are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}

	w.logger.Info("watcher: started", slog.String("path", w.path))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			w.reload()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0:
				schedule()
			case ev.Op&fsnotify.Remove != 0:
				w.logger.Debug("watcher: source removed, keeping words", slog.String("path", w.path))
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reload imports the file if its content changed since the last import.
func (w *Watcher) reload() {
	text, err := importer.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("watcher: read failed", slog.String("path", w.path), slog.String("error", err.Error()))
		}
		return
	}

	sum := checksum.Text(text)
	if sum == w.last {
		return
	}

	_, n, err := w.imp.Import(text)
	switch {
	case errors.Is(err, apperr.ErrImportEmpty):
		w.logger.Warn("watcher: no words in source", slog.String("path", w.path))
		w.last = sum
		return
	case err != nil:
		// The words replaced the collection in memory even if persisting failed.
		w.logger.Error("watcher: import failed", slog.String("path", w.path), slog.String("error", err.Error()))
	}

	w.last = sum
	w.logger.Debug("watcher: imported", slog.String("path", w.path), slog.Int("count", n))
	if w.cb != nil {
		w.cb(w.path, n)
	}
}
