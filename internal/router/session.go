package router

import (
	"sync"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/filter"
)

// InboundSession is one AI client's view onto the aggregator: a tag-filter
// predicate deciding which upstreams it sees, plus the preset subscription
// bound to that session (spec §4.2).
type InboundSession struct {
	ID        string
	Predicate filter.Predicate

	mu                sync.Mutex
	presetName        string
	unsubscribePreset func()
}

// NewInboundSession creates a session with an always-match predicate; call
// SetPredicate to narrow it from query params or a named preset.
func NewInboundSession(id string) *InboundSession {
	return &InboundSession{ID: id, Predicate: filter.MatchAll}
}

// SetPredicate installs the compiled predicate this session's requests are
// filtered through.
func (s *InboundSession) SetPredicate(p filter.Predicate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		p = filter.MatchAll
	}
	s.Predicate = p
}

func (s *InboundSession) predicate() filter.Predicate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Predicate
}

// boundPreset reports the name of the preset this session is currently
// subscribed to, if any.
func (s *InboundSession) boundPreset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presetName
}

// setPresetSubscription records the active preset subscription, replacing
// (without unsubscribing) whatever was there before; callers must have
// already torn down the previous one via clearPresetSubscription.
func (s *InboundSession) setPresetSubscription(name string, unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presetName = name
	s.unsubscribePreset = unsubscribe
}

// clearPresetSubscription tears down this session's preset subscription, if
// any, so a later preset change no longer notifies it.
func (s *InboundSession) clearPresetSubscription() {
	s.mu.Lock()
	unsubscribe := s.unsubscribePreset
	s.presetName = ""
	s.unsubscribePreset = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// sees reports whether this session's filter predicate admits the given
// upstream descriptor.
func (s *InboundSession) sees(d configwatch.UpstreamDescriptor) bool {
	return s.predicate().Match(filter.NormalizeTags(d.Tags))
}
