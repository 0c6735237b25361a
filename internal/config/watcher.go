// ABOUTME: Polling settings watcher for hot reload: mtime checks on every candidate settings file
// ABOUTME: Run blocks until the context ends; each change reloads and hands the result to a callback

package config

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is how often settings files are polled.
const DefaultWatchInterval = 2 * time.Second

// Watcher monitors files for changes by polling mtime at regular intervals.
type Watcher struct {
	paths    []string
	onChange func()
	interval time.Duration

	mu     sync.Mutex
	mtimes map[string]time.Time
}

// NewWatcher creates a watcher that calls onChange when any path appears,
// disappears or changes mtime. The current state is the baseline.
func NewWatcher(paths []string, interval time.Duration, onChange func()) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	w := &Watcher{
		paths:    paths,
		onChange: onChange,
		interval: interval,
		mtimes:   make(map[string]time.Time),
	}
	w.snapshotLocked()
	return w
}

// WatchSettings reloads the settings of projectRoot whenever a settings file
// changes and passes the result, validated, to fn.
func WatchSettings(projectRoot string, interval time.Duration, fn func(*Settings, error)) *Watcher {
	return NewWatcher(WatchPaths(projectRoot), interval, func() {
		s, err := Load(projectRoot)
		if err == nil {
			err = s.Validate()
		}
		fn(s, err)
	})
}

// Run polls until ctx ends.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check compares the files against the last snapshot and, on a change,
// records the new state and calls onChange synchronously.
func (w *Watcher) Check() bool {
	w.mu.Lock()
	changed := w.changedLocked()
	if changed {
		w.snapshotLocked()
	}
	w.mu.Unlock()

	if changed {
		w.onChange()
	}
	return changed
}

func (w *Watcher) changedLocked() bool {
	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			// Removed since the last snapshot.
			if _, existed := w.mtimes[path]; existed {
				return true
			}
			continue
		}
		prev, ok := w.mtimes[path]
		if !ok || !info.ModTime().Equal(prev) {
			return true
		}
	}
	return false
}

func (w *Watcher) snapshotLocked() {
	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.mtimes, path)
			continue
		}
		w.mtimes[path] = info.ModTime()
	}
}
