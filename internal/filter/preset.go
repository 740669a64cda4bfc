package filter

import (
	"sync"

	"mcpmux/pkg/mcperr"
)

// Preset is a named, persisted tag query a session can reference by name
// instead of supplying a predicate inline (spec §4.5).
type Preset struct {
	Name  string
	Query map[string]any
}

// PresetStore holds the active set of presets and notifies subscribers when
// a preset they depend on changes, so the router can emit listChanged.
type PresetStore struct {
	mu        sync.RWMutex
	presets   map[string]Predicate
	listeners map[string][]func()
}

// NewPresetStore returns an empty preset store.
func NewPresetStore() *PresetStore {
	return &PresetStore{
		presets:   make(map[string]Predicate),
		listeners: make(map[string][]func()),
	}
}

// Set compiles and installs/replaces a preset, then fires listChanged
// notifications for every session subscribed to that preset name.
func (s *PresetStore) Set(name string, query map[string]any) error {
	pred, err := ParseQuery(query)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.presets[name] = pred
	listeners := append([]func(){}, s.listeners[name]...)
	s.mu.Unlock()

	for _, notify := range listeners {
		if notify != nil {
			notify()
		}
	}
	return nil
}

// Resolve looks up a preset by name, returning KindPresetNotFound if it is
// not defined.
func (s *PresetStore) Resolve(name string) (Predicate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pred, ok := s.presets[name]
	if !ok {
		return nil, mcperr.New(mcperr.KindPresetNotFound, "preset %q is not defined", name)
	}
	return pred, nil
}

// Subscribe registers a listChanged callback to fire whenever the named
// preset is subsequently replaced via Set. Returns an unsubscribe func.
func (s *PresetStore) Subscribe(name string, onChange func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[name] = append(s.listeners[name], onChange)
	idx := len(s.listeners[name]) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.listeners[name]
		if idx < len(list) {
			list[idx] = nil
		}
	}
}
