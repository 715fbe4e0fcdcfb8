// Package watcher reports when a snapshot directory's files change, with
// bursts of writes collapsed into one notification.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/castrank/castrank/pkg/logging"
)

// DefaultDebounceDuration is the default quiet window after the last write.
const DefaultDebounceDuration = 250 * time.Millisecond

// Debouncer coalesces rapid events into a single callback invocation.
// Only the callback from the most recent Trigger runs, once the duration
// has passed without another Trigger.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	seq      uint64
}

// NewDebouncer creates a Debouncer. Zero means DefaultDebounceDuration.
func NewDebouncer(duration time.Duration) *Debouncer {
	if duration == 0 {
		duration = DefaultDebounceDuration
	}
	return &Debouncer{duration: duration}
}

// Trigger (re)schedules callback.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		current := seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			callback()
		}
	})
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the debounce window.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Watcher notifies when any of a set of file names inside a directory is
// written, created, renamed into place or removed.
type Watcher struct {
	dir      string
	names    map[string]bool
	debounce *Debouncer
	log      *logging.Logger
}

// New watches the given file names inside dir. Editors and atomic writers
// replace files by rename, so the directory itself is watched.
func New(dir string, names []string, debounce time.Duration, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Nop()
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &Watcher{dir: filepath.Clean(dir), names: set, debounce: NewDebouncer(debounce), log: log}
}

// Run delivers one value on the returned channel per burst of changes,
// until ctx is cancelled. Notifications are dropped while the consumer
// has one pending.
func (w *Watcher) Run(ctx context.Context) (<-chan struct{}, error) {
	if _, err := os.Stat(w.dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	changes := make(chan struct{}, 1)
	var mu sync.Mutex
	closed := false
	notify := func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	go func() {
		defer func() {
			w.debounce.Cancel()
			fw.Close()
			mu.Lock()
			closed = true
			close(changes)
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.log.Warn().Err(err).Str("dir", w.dir).Msg("snapshot watcher error")
			case evt, ok := <-fw.Events:
				if !ok {
					return
				}
				if !w.names[filepath.Base(evt.Name)] {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				w.log.Debug().Str("file", evt.Name).Str("op", evt.Op.String()).Msg("snapshot changed")
				w.debounce.Trigger(notify)
			}
		}
	}()
	return changes, nil
}
