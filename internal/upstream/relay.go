package upstream

import (
	"context"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"mcpmux/internal/transport"
)

// RelayHandlers answers the three reverse request types an MCP server can
// send back to its client (spec §4.7): listing the client's workspace
// roots, requesting an LLM sampling completion, and eliciting structured
// input. Each function is handed the inbound session id the request
// should be routed to (Connection.BoundSession) rather than a session
// object directly, keeping this package's only dependency on
// internal/router a string id, not an import of the package itself.
type RelayHandlers struct {
	ListRoots     func(ctx context.Context, sessionID string) ([]gomcp.Root, error)
	CreateMessage func(ctx context.Context, sessionID string, req gomcp.CreateMessageRequest) (*gomcp.CreateMessageResult, error)
	Elicit        func(ctx context.Context, sessionID string, req gomcp.ElicitRequest) (*gomcp.ElicitResult, error)
}

// wireInto registers r's handlers on cl, closing over c so each callback
// resolves the currently-bound session at call time rather than the
// session bound when the connection was established.
func (r RelayHandlers) wireInto(c *Connection, cl transport.Client) {
	if r.ListRoots != nil {
		cl.SetRootsListHandler(func(ctx context.Context) ([]gomcp.Root, error) {
			return r.ListRoots(ctx, c.BoundSession())
		})
	}
	if r.CreateMessage != nil {
		cl.SetSamplingHandler(func(ctx context.Context, req gomcp.CreateMessageRequest) (*gomcp.CreateMessageResult, error) {
			return r.CreateMessage(ctx, c.BoundSession(), req)
		})
	}
	if r.Elicit != nil {
		cl.SetElicitationHandler(func(ctx context.Context, req gomcp.ElicitRequest) (*gomcp.ElicitResult, error) {
			return r.Elicit(ctx, c.BoundSession(), req)
		})
	}
}
