package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the
// result to a callback. Bursts of events are coalesced into one reload.
//
// Editors usually replace files (write temp, rename over), which drops
// the watch on the file itself, so the parent directory is watched and
// events are filtered by name.
type Watcher struct {
	path     string
	delay    time.Duration
	onChange func(*Config, error)

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	closed bool

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher watches path and invokes onChange with the reloaded config
// after each change, debounced by delay. A non-positive delay uses
// 100ms. The callback runs on the watcher goroutine; no callback runs
// after Close returns.
func NewWatcher(path string, delay time.Duration, onChange func(*Config, error)) (*Watcher, error) {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		delay:    delay,
		onChange: onChange,
		fsw:      fsw,
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Path returns the watched config file path.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// loop coalesces fsnotify events into debounced reloads. Everything
// runs on this one goroutine, so Close can wait for it and guarantee
// no callback fires afterward.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
				timerCh = timer.C
			} else {
				timer.Reset(w.delay)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			cfg, err := Load(w.path)
			w.onChange(cfg, err)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.onChange(nil, err)
		}
	}
}
