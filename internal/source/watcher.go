package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joe/hosts-sync/pkg/filesystem"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls a callback when files below the sources directory change.
// Bursts of events within the debounce window produce one call.
type Watcher struct {
	root     string
	debounce time.Duration
	callback func()
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	stopOnce sync.Once
	done     chan struct{}
	changes  chan struct{}
}

// NewWatcher creates a watcher for root. Start must be called to begin
// watching.
func NewWatcher(root string, debounce time.Duration, callback func(), logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		root:     root,
		debounce: debounce,
		callback: callback,
		logger:   logger,
		watcher:  watcher,
		done:     make(chan struct{}),
		changes:  make(chan struct{}, 1),
	}, nil
}

// Start watches root and its subdirectories until ctx is canceled or Stop
// is called. It returns once the watches are registered.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Debug("watching sources", "root", w.root)

	return nil
}

// Stop stops watching. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) addRecursive(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	scanner := filesystem.NewRealFileSystem().Scan(root)

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		if !info.IsDir {
			continue
		}

		dir := filepath.Join(root, filepath.FromSlash(info.RelativePath))
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return nil
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.changes:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil

			w.logger.Debug("sources changed")
			w.callback()
		}
	}
}

// watchIfDir adds a watch for a newly created subdirectory.
func (w *Watcher) watchIfDir(name string) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}

	if err := w.watcher.Add(name); err != nil {
		w.logger.Warn("failed to watch new directory", "path", name, "error", err)
		return
	}

	w.logger.Debug("watching new directory", "path", name)
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			if event.Has(fsnotify.Create) {
				w.watchIfDir(event.Name)
			}

			select {
			case w.changes <- struct{}{}:
			default:
				// a change is already pending
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("source watcher error", "error", err)
		}
	}
}
