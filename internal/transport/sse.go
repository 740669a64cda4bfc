package transport

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	gomcp "github.com/mark3labs/mcp-go/mcp"
)

// SSEAdapter connects to an upstream over the deprecated-but-retained SSE
// transport: an `event:`/`data:` stream with reconnect driven by
// Last-Event-ID (spec §4.7).
type SSEAdapter struct {
	base
	url     string
	headers map[string]string
}

// NewSSEAdapter constructs an adapter for url with optional extra headers.
func NewSSEAdapter(url string, headers map[string]string) *SSEAdapter {
	return &SSEAdapter{url: url, headers: headers}
}

func (a *SSEAdapter) Start(ctx context.Context) (*gomcp.InitializeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil, fmt.Errorf("sse adapter for %s already started", a.url)
	}

	var opts []transport.ClientOption
	if len(a.headers) > 0 {
		opts = append(opts, transport.WithHeaders(a.headers))
	}

	c, err := client.NewSSEMCPClient(a.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sse client for %s: %w", a.url, err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting sse stream for %s: %w", a.url, err)
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

func (a *SSEAdapter) Close() error { return a.close("transport.sse") }

func (a *SSEAdapter) ListTools(ctx context.Context) ([]gomcp.Tool, error) { return a.listTools(ctx) }
func (a *SSEAdapter) CallTool(ctx context.Context, name string, args map[string]any) (*gomcp.CallToolResult, error) {
	return a.callTool(ctx, name, args)
}
func (a *SSEAdapter) ListResources(ctx context.Context) ([]gomcp.Resource, error) {
	return a.listResources(ctx)
}
func (a *SSEAdapter) ReadResource(ctx context.Context, uri string) (*gomcp.ReadResourceResult, error) {
	return a.readResource(ctx, uri)
}
func (a *SSEAdapter) ListResourceTemplates(ctx context.Context) ([]gomcp.ResourceTemplate, error) {
	return a.listResourceTemplates(ctx)
}
func (a *SSEAdapter) ListPrompts(ctx context.Context) ([]gomcp.Prompt, error) { return a.listPrompts(ctx) }
func (a *SSEAdapter) GetPrompt(ctx context.Context, name string, args map[string]string) (*gomcp.GetPromptResult, error) {
	return a.getPrompt(ctx, name, args)
}
func (a *SSEAdapter) Subscribe(ctx context.Context, uri string) error   { return a.subscribe(ctx, uri) }
func (a *SSEAdapter) Unsubscribe(ctx context.Context, uri string) error { return a.unsubscribe(ctx, uri) }
func (a *SSEAdapter) Complete(ctx context.Context, ref gomcp.Reference, arg gomcp.CompleteArgument) (*gomcp.CompleteResult, error) {
	return a.complete(ctx, ref, arg)
}
func (a *SSEAdapter) SetLevel(ctx context.Context, level gomcp.LoggingLevel) error {
	return a.setLevel(ctx, level)
}
func (a *SSEAdapter) Ping(ctx context.Context) error { return a.ping(ctx) }

var _ Client = (*SSEAdapter)(nil)
