package pagination

import (
	"encoding/base64"
	"encoding/json"

	"mcpmux/pkg/mcperr"
)

// maxDecodedCursorLength bounds the base64-decoded byte length of an inbound
// cursor (spec §3), rejecting an oversized or malicious cursor before it
// reaches json.Unmarshal.
const maxDecodedCursorLength = 1000

// Cursor names the upstream a fan-out page continues from and, if the
// upstream itself returned one, that upstream's own opaque cursor.
type Cursor struct {
	Upstream       string `json:"u"`
	UpstreamCursor string `json:"c,omitempty"`
}

// Encode serializes a cursor to the opaque base64 string handed back to the
// inbound client as nextCursor. The JSON encoding is an internal wire detail;
// callers must treat the result as opaque.
func Encode(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode parses an inbound cursor string produced by Encode. It fails with
// KindInvalidCursor if the string is not valid base64 in the
// [A-Za-z0-9+/=] charset or does not decode to a well-formed Cursor.
func Decode(s string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, mcperr.Wrap(mcperr.KindInvalidCursor, err, "cursor %q is not valid base64", s)
	}
	if len(raw) > maxDecodedCursorLength {
		return Cursor{}, mcperr.New(mcperr.KindInvalidCursor, "cursor %q decodes to %d bytes, exceeding the %d-byte limit", s, len(raw), maxDecodedCursorLength)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, mcperr.Wrap(mcperr.KindInvalidCursor, err, "cursor %q does not decode to a valid page marker", s)
	}
	if c.Upstream == "" {
		return Cursor{}, mcperr.New(mcperr.KindInvalidCursor, "cursor %q names no upstream", s)
	}
	return c, nil
}

// Next computes the outbound cursor for a fan-out page: if the upstream
// itself returned a continuation cursor, the page continues on the same
// upstream; otherwise it advances to nextUpstream if one is visible, or ends
// the stream if not (spec §4.3 step 2).
func Next(upstream, upstreamNextCursor, nextUpstream string) (cursor string, ok bool) {
	if upstreamNextCursor != "" {
		return Encode(Cursor{Upstream: upstream, UpstreamCursor: upstreamNextCursor}), true
	}
	if nextUpstream != "" {
		return Encode(Cursor{Upstream: nextUpstream}), true
	}
	return "", false
}
