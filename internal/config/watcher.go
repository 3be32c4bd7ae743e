package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounceDelay = 500 * time.Millisecond

// Watcher re-loads a configuration file after it settles on disk and hands
// every changed, valid configuration to onReload.
type Watcher struct {
	path     string
	delay    time.Duration
	onReload func(*Config)

	mu      sync.Mutex
	pending *time.Timer
	current *Config
}

// NewWatcher returns a watcher for path. A non-positive delay selects the
// default debounce.
func NewWatcher(path string, delay time.Duration, onReload func(*Config)) *Watcher {
	if delay <= 0 {
		delay = defaultDebounceDelay
	}
	return &Watcher{path: filepath.Clean(path), delay: delay, onReload: onReload}
}

// Run blocks until ctx is done. It watches the file's directory so that
// editors replacing the file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch config directory %s: %w", dir, err)
	}
	defer w.stopPending()

	if cfg, _, err := Load(w.path, false); err == nil {
		w.mu.Lock()
		w.current = cfg
		w.mu.Unlock()
	}
	slog.Info("Watching configuration file", "path", w.path, "debounce", w.delay)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping configuration watcher")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("config watcher event stream closed")
			}
			if w.concerns(ev) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("config watcher error stream closed")
			}
			slog.Error("Config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) concerns(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// schedule restarts the debounce so a burst of writes yields one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Reset(w.delay)
		return
	}
	w.pending = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
}

func (w *Watcher) reload() {
	cfg, _, err := Load(w.path, false)
	if err != nil {
		slog.Error("Config reload rejected, keeping current configuration", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	unchanged := w.current != nil && reflect.DeepEqual(w.current, cfg)
	if !unchanged {
		w.current = cfg
	}
	w.mu.Unlock()

	if unchanged {
		slog.Debug("Config file touched without changes", "path", w.path)
		return
	}
	w.onReload(cfg)
	slog.Info("Configuration reloaded", "path", w.path)
}
