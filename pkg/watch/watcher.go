// Package watch reports file changes under a set of paths, debounced, so a
// burst of edits triggers a single regeneration.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openfroyo/resgen/pkg/telemetry"
)

// DefaultDebounce is how long events must settle before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc handles a batch of changed paths. Calls are serialized.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches files and directories recursively. A Watcher runs once.
type Watcher struct {
	logger  *telemetry.Logger
	delay   time.Duration
	filter  func(path string) bool
	started chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger.NewComponentLogger("watch")
		}
	}
}

// WithFilter replaces the path filter. Paths for which filter returns false
// are ignored.
func WithFilter(filter func(path string) bool) Option {
	return func(w *Watcher) {
		if filter != nil {
			w.filter = filter
		}
	}
}

// New creates a watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		logger:  telemetry.Nop(),
		delay:   DefaultDebounce,
		filter:  DefaultFilter,
		started: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// DefaultFilter ignores hidden files and editor backups.
func DefaultFilter(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return !strings.HasSuffix(base, ".swp")
}

// Started is closed once every path is being watched.
func (w *Watcher) Started() <-chan struct{} {
	return w.started
}

// Run watches paths until ctx is done and calls onChange with the sorted set
// of changed paths once events settle. Missing paths are skipped with a
// warning. Errors returned by onChange are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, paths []string, onChange ChangeFunc) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	watched := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			w.logger.WithError(err).WithField("path", path).Warn("Failed to stat path for watching")
			continue
		}

		if info.IsDir() {
			err = addRecursive(fsw, path)
		} else {
			err = fsw.Add(path)
		}
		if err != nil {
			w.logger.WithError(err).WithField("path", path).Warn("Failed to watch path")
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("none of %d paths could be watched", len(paths))
	}

	w.logger.WithField("paths", watched).Info("Started watching resource paths")
	close(w.started)

	timer := time.NewTimer(w.delay)
	timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// New directories are watched as they appear.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(fsw, event.Name); err != nil {
						w.logger.WithError(err).WithField("path", event.Name).Warn("Failed to watch directory")
					}
				}
			}

			if !w.filter(event.Name) {
				continue
			}

			w.logger.WithFields(map[string]interface{}{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Debug("Resource file changed")

			pending[event.Name] = true
			timer.Reset(w.delay)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			if err := onChange(ctx, changed); err != nil {
				w.logger.WithError(err).Error("Failed to handle change")
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

// addRecursive adds dir and every directory below it.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
