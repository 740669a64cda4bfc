package transport

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ClientInfo identifies this aggregator to every upstream it connects to.
var ClientInfo = mcp.Implementation{
	Name:    "mcpmux",
	Version: "0.1.0",
}

// ProtocolVersion is the MCP protocol version this aggregator negotiates.
const ProtocolVersion = "2024-11-05"

// Client is the contract the upstream connection manager drives: Start
// performs the transport-specific connection setup and the MCP
// initialize handshake; the capability methods forward one JSON-RPC call
// each; Close releases the underlying transport. OnClose callbacks run when
// Close tears down a connected adapter, and OnError callbacks run when a
// forwarded call returns an error; neither fires on its own when the
// upstream goes away between calls (spec §4.7/§4.1).
type Client interface {
	Start(ctx context.Context) (*mcp.InitializeResult, error)
	Close() error

	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	ListResources(ctx context.Context) ([]mcp.Resource, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
	ListResourceTemplates(ctx context.Context) ([]mcp.ResourceTemplate, error)
	ListPrompts(ctx context.Context) ([]mcp.Prompt, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error)
	Subscribe(ctx context.Context, uri string) error
	Unsubscribe(ctx context.Context, uri string) error
	Complete(ctx context.Context, ref mcp.Reference, arg mcp.CompleteArgument) (*mcp.CompleteResult, error)
	SetLevel(ctx context.Context, level mcp.LoggingLevel) error
	Ping(ctx context.Context) error

	OnClose(func())
	OnError(func(error))

	// SetRootsListHandler, SetSamplingHandler and SetElicitationHandler
	// store this adapter's answer to a server-initiated reverse request
	// (spec §4.7's pass-through of roots/list, sampling/createMessage and
	// elicitation/create back to whichever inbound session is bound to this
	// upstream). Each setter replaces any previously registered handler.
	// The adapters only store the handler; no incoming request reaches it
	// (see the handler fields of base).
	SetRootsListHandler(handler func(ctx context.Context) ([]mcp.Root, error))
	SetSamplingHandler(handler func(ctx context.Context, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error))
	SetElicitationHandler(handler func(ctx context.Context, req mcp.ElicitRequest) (*mcp.ElicitResult, error))
}
