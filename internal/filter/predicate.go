package filter

import "strings"

// TagSet is a normalized (lower-cased) set of tags attached to an upstream
// descriptor.
type TagSet map[string]struct{}

// NormalizeTags builds a TagSet from a raw tag list.
func NormalizeTags(tags []string) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

func (s TagSet) has(tag string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}

// Predicate decides whether an upstream's tag set is visible to a session.
// A nil Predicate cannot be matched against; InboundSession.SetPredicate
// substitutes MatchAll for nil (spec §4.5: "empty predicate => match all").
type Predicate interface {
	Match(tags TagSet) bool
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(tags TagSet) bool

func (f PredicateFunc) Match(tags TagSet) bool { return f(tags) }

// MatchAll is the predicate used when a session has no active filter.
var MatchAll Predicate = PredicateFunc(func(TagSet) bool { return true })

// ParseSimpleOR builds a predicate matching any upstream whose tag set
// contains at least one of the comma-separated tags in s. An empty or
// whitespace-only s yields MatchAll.
func ParseSimpleOR(s string) Predicate {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	if len(tags) == 0 {
		return MatchAll
	}
	return PredicateFunc(func(ts TagSet) bool {
		for _, tag := range tags {
			if ts.has(tag) {
				return true
			}
		}
		return false
	})
}
