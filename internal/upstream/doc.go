// Package upstream implements the connection manager of spec §4.1: for
// every non-disabled upstream descriptor it maintains one Connection,
// connecting with retry/backoff, capturing the upstream's advertised
// capabilities, and supporting a re-entrant reload that diffs descriptors
// and only recreates transports whose transport-affecting fields changed.
package upstream
