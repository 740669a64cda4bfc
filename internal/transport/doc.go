// Package transport implements the three upstream MCP client adapters named
// in spec §4.7 — stdio, streamable-HTTP and SSE — each wrapping the
// corresponding github.com/mark3labs/mcp-go/client transport. Every adapter
// satisfies the Client contract: Start/Close lifecycle, the typed
// capability-discovery and invocation methods the router dispatches
// through, and OnClose/OnError hooks the upstream connection manager uses
// for restart and 401-refresh bookkeeping.
package transport
