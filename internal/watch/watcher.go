package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events editors emit per save.
const DefaultDebounce = 200 * time.Millisecond

// ChangeHandler is called with the full content of a watched file after
// it was written.
type ChangeHandler func(path string, content []byte)

// Watcher delivers the content of watched files whenever they change on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	debounce time.Duration
	log      *zap.Logger

	mu       sync.RWMutex
	watching map[string]struct{} // absolute file paths
	dirs     map[string]bool

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	done chan struct{}
}

// New creates a Watcher and starts its event loop.
func New(onChange ChangeHandler, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		log:      log,
		watching: make(map[string]struct{}),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	go w.watchLoop()

	return w, nil
}

// WatchFile starts watching a file. The file need not exist yet.
func (w *Watcher) WatchFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching[absPath] = struct{}{}

	// fsnotify watches directories; atomic-rename saves replace the file inode.
	dir := filepath.Dir(absPath)
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		delete(w.watching, absPath)
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// StopWatching stops delivering changes for path.
func (w *Watcher) StopWatching(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	delete(w.watching, absPath)
	w.mu.Unlock()
}

// Close stops the watcher and waits for the event loop and pending
// deliveries to finish.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done

	w.timersMu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.timersMu.Unlock()
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.mu.RLock()
			_, watched := w.watching[absPath]
			w.mu.RUnlock()
			if watched {
				w.schedule(absPath)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(absPath string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if t, ok := w.timers[absPath]; ok {
		t.Stop()
	}
	w.timers[absPath] = time.AfterFunc(w.debounce, func() {
		w.timersMu.Lock()
		delete(w.timers, absPath)
		w.timersMu.Unlock()
		w.deliver(absPath)
	})
}

func (w *Watcher) deliver(absPath string) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		w.log.Warn("read watched file", zap.String("path", absPath), zap.Error(err))
		return
	}
	w.log.Debug("watched file changed", zap.String("path", absPath), zap.Int("bytes", len(content)))
	if w.onChange != nil {
		w.onChange(absPath, content)
	}
}
