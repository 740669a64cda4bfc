package inboundserver

import (
	"net/url"
	"regexp"
	"strings"

	"mcpmux/internal/filter"
	"mcpmux/pkg/mcperr"
)

var validTagChar = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// resolvedFilter is what queryFilterMiddleware resolves once per request and
// stashes in the request context: the compiled predicate, plus the preset
// name it came from (empty for the other three query forms), so the session
// can subscribe to that preset's future changes (spec §4.5).
type resolvedFilter struct {
	Predicate  filter.Predicate
	PresetName string
}

// resolveQueryFilter implements the /mcp query-parameter priority of spec §6:
// preset > tag-filter > tags > filter (compat, tries advanced then simple).
// At most one of the four is expected; if several are present the
// highest-priority one wins and the rest are ignored, matching the spec's
// "mutually exclusive; set at most one" note without hard-failing a client
// that sends more than it should.
func (s *Server) resolveQueryFilter(q url.Values) (resolvedFilter, error) {
	if name := q.Get("preset"); name != "" {
		pred, err := s.Router.Presets.Resolve(name)
		if err != nil {
			return resolvedFilter{}, err
		}
		return resolvedFilter{Predicate: pred, PresetName: name}, nil
	}
	if expr := q.Get("tag-filter"); expr != "" {
		pred, err := filter.ParseDSL(expr)
		if err != nil {
			return resolvedFilter{}, err
		}
		return resolvedFilter{Predicate: pred}, nil
	}
	if csv := q.Get("tags"); csv != "" {
		if err := validateTagCSV(csv); err != nil {
			return resolvedFilter{}, err
		}
		return resolvedFilter{Predicate: filter.ParseSimpleOR(csv)}, nil
	}
	if expr := q.Get("filter"); expr != "" {
		if p, err := filter.ParseDSL(expr); err == nil {
			return resolvedFilter{Predicate: p}, nil
		}
		if err := validateTagCSV(expr); err != nil {
			return resolvedFilter{}, err
		}
		return resolvedFilter{Predicate: filter.ParseSimpleOR(expr)}, nil
	}
	return resolvedFilter{Predicate: filter.MatchAll}, nil
}

func validateTagCSV(csv string) error {
	for _, tag := range strings.Split(csv, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !validTagChar.MatchString(tag) {
			return mcperr.New(mcperr.KindInvalidFilter, "invalid tag %q: only letters, digits, '_', '.', '-' are allowed", tag)
		}
	}
	return nil
}
