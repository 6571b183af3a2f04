// Package watch rebuilds on source changes. A filesystem watcher covers the
// category directories under the source root; rapid event bursts are
// debounced into a single rebuild. An optional scheduler triggers periodic
// full rebuilds regardless of filesystem activity.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// DefaultDebounce is how long the watcher waits after the last event before
// triggering a rebuild.
const DefaultDebounce = 2 * time.Second

// Watcher monitors a source tree and invokes the rebuild callback after
// changes settle.
type Watcher struct {
	sourceRoot string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	rebuild    func(ctx context.Context) error
}

// NewWatcher creates a watcher over sourceRoot. The rebuild callback runs on
// the watcher goroutine; overlapping rebuilds cannot occur.
func NewWatcher(sourceRoot string, debounce time.Duration, rebuild func(ctx context.Context) error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		sourceRoot: sourceRoot,
		watcher:    fsw,
		debounce:   debounce,
		rebuild:    rebuild,
	}, nil
}

// addRecursive registers dir and every subdirectory beneath it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Run watches until the context is canceled. The source root must exist.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if _, err := os.Stat(w.sourceRoot); err != nil {
		return fmt.Errorf("source root not watchable: %w", err)
	}
	if err := w.addRecursive(w.sourceRoot); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.sourceRoot, err)
	}
	slog.Info("Watching source tree", logfields.Path(w.sourceRoot))

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			// New directories need explicit registration.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))

		case <-timerC:
			timer = nil
			timerC = nil
			slog.Info("Source changes settled, rebuilding")
			if err := w.rebuild(ctx); err != nil {
				// Watch mode keeps running after a failed build so the next
				// save can fix it.
				slog.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}
