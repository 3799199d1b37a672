// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It watches one file through its parent directory (so rename-on-save editors
// are caught) and coalesces bursts of events into a single callback once the
// file has been quiet for the debounce interval.
package fsnotify

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before onChange fires.
const DefaultDebounce = 100 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	done     chan struct{}
	debounce time.Duration

	mu      sync.Mutex
	stopped bool
	timer   *time.Timer
}

// NewWatcher creates a new file watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:       fw,
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
	}, nil
}

// Watch starts monitoring filePath. The file itself need not exist yet;
// its parent directory must.
func (w *Watcher) Watch(filePath string, onChange func(filePath string)) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := w.fw.Add(dir); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					w.schedule(absPath, onChange)
				}

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// Errors are swallowed; fsnotify recovers automatically

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// schedule (re)arms the trailing-edge debounce timer.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			onChange(path)
		}
	})
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	return w.fw.Close()
}
