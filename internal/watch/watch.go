// Package watch re-runs a callback when report or template files change.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/harborlight/weekly/internal/logging"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a fixed set of files. The parent directories are watched
// so that editors which save by rename are still seen.
type Watcher struct {
	files    map[string]bool
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func() error

	mu            sync.Mutex
	debounceTimer *time.Timer
	closed        bool

	// runMu serializes onChange calls.
	runMu sync.Mutex
}

// New creates a watcher for paths. onChange runs once per debounced burst
// of changes; a debounce of zero uses DefaultDebounce.
func New(paths []string, debounce time.Duration, onChange func() error) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to watch")
	}
	if onChange == nil {
		return nil, errors.New("onChange callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		files:    make(map[string]bool, len(paths)),
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "resolving %s", p)
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "failed to watch directory %s", dir)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Run processes file events until ctx is cancelled or the watcher is
// closed. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logging.Logger.Debugw("watched file changed",
				logging.FieldFile, event.Name,
				logging.FieldEvent, event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Logger.Warnw("file watcher error", logging.FieldError, err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.files[filepath.Clean(event.Name)]
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	if err := w.onChange(); err != nil {
		logging.Logger.Errorw("rebuild after change failed", logging.FieldError, err)
	}
}

// Close stops watching and cancels any pending callback. It is safe to
// call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
