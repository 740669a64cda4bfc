package transport

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	gomcp "github.com/mark3labs/mcp-go/mcp"
)

// StreamableHTTPAdapter connects to an upstream over MCP Streamable HTTP:
// one JSON-RPC request/response per POST, or a chunked response stream
// (spec §4.7).
type StreamableHTTPAdapter struct {
	base
	url     string
	headers map[string]string
}

// NewStreamableHTTPAdapter constructs an adapter for url with optional
// extra headers (e.g. a bearer token attached by the OAuth-refresh
// collaborator).
func NewStreamableHTTPAdapter(url string, headers map[string]string) *StreamableHTTPAdapter {
	return &StreamableHTTPAdapter{url: url, headers: headers}
}

func (a *StreamableHTTPAdapter) Start(ctx context.Context) (*gomcp.InitializeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil, fmt.Errorf("streamable-http adapter for %s already started", a.url)
	}

	var opts []transport.StreamableHTTPCOption
	if len(a.headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(a.headers))
	}

	c, err := client.NewStreamableHttpClient(a.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", a.url, err)
	}

	result, err := c.Initialize(ctx, gomcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                   `json:"protocolVersion"`
			Capabilities    gomcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      gomcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: ProtocolVersion,
			ClientInfo:      ClientInfo,
			Capabilities:    gomcp.ClientCapabilities{},
		},
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initializing %s: %w", a.url, err)
	}

	a.underlying = c
	a.connected = true
	return result, nil
}

func (a *StreamableHTTPAdapter) Close() error { return a.close("transport.http") }

func (a *StreamableHTTPAdapter) ListTools(ctx context.Context) ([]gomcp.Tool, error) {
	return a.listTools(ctx)
}
func (a *StreamableHTTPAdapter) CallTool(ctx context.Context, name string, args map[string]any) (*gomcp.CallToolResult, error) {
	return a.callTool(ctx, name, args)
}
func (a *StreamableHTTPAdapter) ListResources(ctx context.Context) ([]gomcp.Resource, error) {
	return a.listResources(ctx)
}
func (a *StreamableHTTPAdapter) ReadResource(ctx context.Context, uri string) (*gomcp.ReadResourceResult, error) {
	return a.readResource(ctx, uri)
}
func (a *StreamableHTTPAdapter) ListResourceTemplates(ctx context.Context) ([]gomcp.ResourceTemplate, error) {
	return a.listResourceTemplates(ctx)
}
func (a *StreamableHTTPAdapter) ListPrompts(ctx context.Context) ([]gomcp.Prompt, error) {
	return a.listPrompts(ctx)
}
func (a *StreamableHTTPAdapter) GetPrompt(ctx context.Context, name string, args map[string]string) (*gomcp.GetPromptResult, error) {
	return a.getPrompt(ctx, name, args)
}
func (a *StreamableHTTPAdapter) Subscribe(ctx context.Context, uri string) error {
	return a.subscribe(ctx, uri)
}
func (a *StreamableHTTPAdapter) Unsubscribe(ctx context.Context, uri string) error {
	return a.unsubscribe(ctx, uri)
}
func (a *StreamableHTTPAdapter) Complete(ctx context.Context, ref gomcp.Reference, arg gomcp.CompleteArgument) (*gomcp.CompleteResult, error) {
	return a.complete(ctx, ref, arg)
}
func (a *StreamableHTTPAdapter) SetLevel(ctx context.Context, level gomcp.LoggingLevel) error {
	return a.setLevel(ctx, level)
}
func (a *StreamableHTTPAdapter) Ping(ctx context.Context) error { return a.ping(ctx) }

var _ Client = (*StreamableHTTPAdapter)(nil)
