// Package watch turns fsnotify events into debounced per-directory change
// notifications.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/justyntemme/duopane/internal/debug"
	"github.com/justyntemme/duopane/internal/logging"
)

// DefaultDebounce is used when a non-positive debounce is requested.
const DefaultDebounce = 200 * time.Millisecond

// DirectoryWatcher watches directories and reports each changed directory
// once its events have been quiet for the debounce interval. Watches are
// reference counted so both panels can show the same directory.
type DirectoryWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching map[string]int // path -> number of Watch calls
	notify   chan string
	done     chan struct{}
	closeMu  sync.Once
	debounce time.Duration
}

// NewDirectoryWatcher creates a watcher and starts its event loop.
func NewDirectoryWatcher(debounce time.Duration) (*DirectoryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dw := &DirectoryWatcher{
		watcher:  w,
		watching: make(map[string]int),
		notify:   make(chan string, 16),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go dw.run()
	return dw, nil
}

func (dw *DirectoryWatcher) run() {
	lastEvent := make(map[string]time.Time)
	tick := dw.debounce / 2
	if tick <= 0 {
		tick = dw.debounce
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if dir, ok := dw.owner(event); ok {
				lastEvent[dir] = time.Now()
				debug.Log(debug.WATCH, "watch: %s on %s (dir %s)", event.Op, event.Name, dir)
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			logging.L().Warn("watch: fsnotify error", zap.Error(err))

		case now := <-ticker.C:
			for dir, at := range lastEvent {
				if now.Sub(at) < dw.debounce {
					continue
				}
				select {
				case dw.notify <- dir:
					debug.Log(debug.WATCH, "watch: change notification for %s", dir)
				default:
					// Receiver is behind; it will rescan anyway.
				}
				delete(lastEvent, dir)
			}
		}
	}
}

// owner maps an event to the watched directory it affects.
func (dw *DirectoryWatcher) owner(event fsnotify.Event) (string, bool) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	// Changes to the watched directory itself, including permission changes.
	if dw.watching[event.Name] > 0 {
		return event.Name, true
	}
	if !(event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Write)) {
		return "", false
	}
	parent := filepath.Dir(event.Name)
	if dw.watching[parent] > 0 {
		return parent, true
	}
	return "", false
}

// Watch adds a reference to path, starting the underlying watch on the first.
func (dw *DirectoryWatcher) Watch(path string) error {
	path = filepath.Clean(path)
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watching[path] > 0 {
		dw.watching[path]++
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return err
	}
	dw.watching[path] = 1
	debug.Log(debug.WATCH, "watch: now watching %s", path)
	return nil
}

// Unwatch drops a reference to path, removing the watch on the last.
func (dw *DirectoryWatcher) Unwatch(path string) error {
	path = filepath.Clean(path)
	dw.mu.Lock()
	defer dw.mu.Unlock()

	n := dw.watching[path]
	if n == 0 {
		return nil
	}
	if n > 1 {
		dw.watching[path] = n - 1
		return nil
	}
	delete(dw.watching, path)
	if err := dw.watcher.Remove(path); err != nil {
		// The directory may already be gone.
		debug.Log(debug.WATCH, "watch: remove %s: %v", path, err)
	}
	debug.Log(debug.WATCH, "watch: stopped watching %s", path)
	return nil
}

// Notify returns the channel that receives changed directory paths.
func (dw *DirectoryWatcher) Notify() <-chan string {
	return dw.notify
}

// Close shuts down the watcher. It is safe to call more than once.
func (dw *DirectoryWatcher) Close() error {
	var err error
	dw.closeMu.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
	})
	return err
}
