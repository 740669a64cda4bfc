package router

import (
	"strconv"

	"mcpmux/internal/pagination"
)

// paginate slices a flattened, upstream-grouped list into one page of at
// most pageSize items, starting from cursor. The cursor's UpstreamCursor
// carries a decimal offset within that upstream's contiguous run of items,
// matching pagination.Cursor's "upstream name + upstream-scoped opaque
// cursor" shape (spec §4.3) even though the "upstream's own cursor" here is
// synthesized over an already-materialized slice rather than round-tripped
// through the upstream's own tools/list.
func paginate[T any](items []T, upstreamOf func(T) string, cursor string, pageSize int) (page []T, nextCursor string, err error) {
	start := 0

	if cursor != "" {
		c, decodeErr := pagination.Decode(cursor)
		if decodeErr != nil {
			return nil, "", decodeErr
		}

		offset := 0
		if c.UpstreamCursor != "" {
			offset, _ = strconv.Atoi(c.UpstreamCursor)
		}

		idx := indexOfUpstreamStart(items, upstreamOf, c.Upstream)
		if idx < 0 {
			// Fallback: upstream no longer present, reset to the beginning
			// (spec §4.3).
			start = 0
		} else {
			start = idx + offset
		}
	}

	if start >= len(items) {
		return nil, "", nil
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	page = items[start:end]

	if end >= len(items) {
		return page, "", nil
	}

	nextUpstream := upstreamOf(items[end])
	nextStart := indexOfUpstreamStart(items, upstreamOf, nextUpstream)
	next := pagination.Cursor{Upstream: nextUpstream, UpstreamCursor: strconv.Itoa(end - nextStart)}
	nextCursor = pagination.Encode(next)

	return page, nextCursor, nil
}

func indexOfUpstreamStart[T any](items []T, upstreamOf func(T) string, upstream string) int {
	for i, item := range items {
		if upstreamOf(item) == upstream {
			return i
		}
	}
	return -1
}
