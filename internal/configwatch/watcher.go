package configwatch

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcpmux/pkg/logging"
)

// State is the watcher's state-machine position (spec §4.6).
type State int

const (
	StateIdle State = iota
	StateWatching
	StateReloading
	StateError
)

// Event is emitted once per successfully applied reload.
type Event struct {
	Config *Config
	Diff   Diff
}

// Watcher observes one config file and emits a debounced Event whenever it
// changes and passes validation. Errors are logged and the previous good
// config remains active (spec §4.6's atomic-swap requirement).
type Watcher struct {
	path        string
	opts        LoadOptions
	debounce    time.Duration

	mu      sync.RWMutex
	state   State
	current *Config

	events chan Event
}

// NewWatcher loads the initial config synchronously, then returns a Watcher
// ready to Start. debounce coalesces bursts of fs events into one reload.
func NewWatcher(path string, opts LoadOptions, debounce time.Duration) (*Watcher, error) {
	cfg, err := Load(path, opts)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		opts:     opts,
		debounce: debounce,
		state:    StateIdle,
		current:  cfg,
		events:   make(chan Event, 1),
	}, nil
}

// Current returns a snapshot of the presently active config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// State returns the watcher's current state-machine position.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Events returns the channel of applied-reload events. Buffered by one;
// the caller should drain it promptly.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start watches the config file for changes until ctx is cancelled. It
// debounces bursts of fs events (editors frequently rewrite-then-rename) and
// on settle, reloads, diffs against the active config, and — only if the
// load succeeds — atomically swaps it in and emits an Event.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		return err
	}

	w.setState(StateWatching)

	var debounceTimer *time.Timer
	var debounceC <-chan time.Time

	resetDebounce := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(w.debounce)
		} else {
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)
		}
		debounceC = debounceTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				resetDebounce()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("configwatch", "watch error: %v", err)
		case <-debounceC:
			debounceC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	w.setState(StateReloading)

	newCfg, err := Load(w.path, w.opts)
	if err != nil {
		logging.Error("configwatch", err, "reload failed, keeping previous config")
		w.setState(StateError)
		return
	}

	w.mu.Lock()
	oldCfg := w.current
	diff := ComputeDiff(oldCfg, newCfg)
	w.current = newCfg
	w.mu.Unlock()

	w.setState(StateWatching)

	if diff.Empty() {
		return
	}

	select {
	case w.events <- Event{Config: newCfg, Diff: diff}:
	default:
		// A prior event hasn't been drained yet; the debounced reload
		// already carries the latest content so it is safe to drop the
		// stale notification (spec §5: overlapping events coalesce).
		<-w.events
		w.events <- Event{Config: newCfg, Diff: diff}
	}
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
