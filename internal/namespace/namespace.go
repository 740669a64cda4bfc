package namespace

import (
	"strings"

	"mcpmux/pkg/mcperr"
)

// SEP is the constant multi-character separator joining an upstream name to
// an original capability name. The upstream-name rules (alphanumerics, '-'
// and '_') do not exclude SEP itself: "a_1mcp_b" is a valid name. Decode
// splits at the first occurrence, so an upstream name containing SEP does
// not round-trip.
const SEP = "_1mcp_"

// Encode builds the namespaced id for a capability named name on upstream.
func Encode(upstream, name string) string {
	return upstream + SEP + name
}

// Decode splits a namespaced id back into its upstream and original-name
// parts. It fails with KindInvalidParams if the separator is absent or the
// upstream part is empty, matching the router's dispatch-table contract
// (spec §4.2).
func Decode(id string) (upstream, name string, err error) {
	idx := strings.Index(id, SEP)
	if idx < 0 {
		return "", "", mcperr.New(mcperr.KindInvalidParams, "namespaced id %q: missing separator %q", id, SEP)
	}
	upstream = id[:idx]
	name = id[idx+len(SEP):]
	if upstream == "" {
		return "", "", mcperr.New(mcperr.KindInvalidParams, "namespaced id %q: empty upstream part", id)
	}
	return upstream, name, nil
}
