package catalog

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a Store whenever its catalog file changes on disk.
type Watcher struct {
	store     *Store
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	logger    *zap.Logger
	reloaded  chan error
	done      chan struct{}
}

// NewWatcher watches the directory holding the store's current source.
// The store must have been loaded successfully.
func NewWatcher(store *Store, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	source := store.Source()
	if source == "" {
		return nil, fmt.Errorf("catalog not loaded, nothing to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	// Editors replace files by rename, so watch the directory.
	if err := fsw.Add(filepath.Dir(source)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching directory %s: %w", filepath.Dir(source), err)
	}

	w := &Watcher{
		store:     store,
		fsWatcher: fsw,
		debounce:  debounce,
		logger:    logger,
		reloaded:  make(chan error, 1),
		done:      make(chan struct{}),
	}
	go w.loop(filepath.Base(source))

	return w, nil
}

// Reloaded delivers the outcome of each reload. Results are dropped
// when nobody reads them.
func (w *Watcher) Reloaded() <-chan error {
	return w.reloaded
}

// Stop terminates the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop(base string) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base ||
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := w.store.Reload()
			if err != nil {
				w.logger.Warn("Catalog reload failed, keeping previous catalog", zap.Error(err))
			}
			select {
			case w.reloaded <- err:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Catalog watcher error", zap.Error(err))

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
