// Package pagination implements the opaque cursor codec the router uses to
// present N upstreams' paginated lists as a single paginated list, per spec
// §4.3: a cursor names the upstream a page continues from plus that
// upstream's own opaque cursor, if any.
package pagination
