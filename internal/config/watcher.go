package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads the settings file when it changes on disk and notifies
// registered callbacks with the new value.
type Watcher struct {
	store    *Store
	debounce time.Duration

	// reloadMu is held from the read through the callbacks, so values
	// reach the callbacks in the order they were read.
	reloadMu sync.Mutex

	mu       sync.Mutex
	last     Settings
	onChange []func(Settings)
	timer    *time.Timer

	watcher *fsnotify.Watcher
	errChan chan error
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a watcher for store. current is the value already
// applied by the caller; callbacks only fire for values that differ from it.
func NewWatcher(store *Store, current Settings) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    store,
		debounce: DefaultDebounce,
		last:     current,
		errChan:  make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDebounce overrides the debounce delay. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// OnChange registers a callback invoked with every new settings value.
func (w *Watcher) OnChange(cb func(Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, cb)
}

// Errors returns a channel for receiving errors that occur during watching.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Start begins watching the directory that contains the settings file.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	go w.watchLoop()
	return nil
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	target := filepath.Base(w.store.Path())
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			// Atomic saves show up as Create (rename onto the target).
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.publishError(err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.ctx.Err() != nil {
			return
		}
		w.Reload()
	})
}

// Reload reads the file now and notifies callbacks if the value changed.
// It reports the loaded settings and whether they differ from the previous value.
// Concurrent calls run one after the other; callbacks must not call Reload.
func (w *Watcher) Reload() (Settings, bool) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	settings := w.store.Load()

	w.mu.Lock()
	if settings == w.last {
		w.mu.Unlock()
		return settings, false
	}
	w.last = settings
	callbacks := append([]func(Settings){}, w.onChange...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(settings)
	}
	return settings, true
}

// Current returns the last value seen by the watcher.
func (w *Watcher) Current() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watcher) publishError(err error) {
	select {
	case w.errChan <- err:
	default:
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}
