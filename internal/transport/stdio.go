package transport

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	gomcp "github.com/mark3labs/mcp-go/mcp"

	"mcpmux/pkg/logging"
)

// StdioAdapter connects to an upstream MCP server spawned as a subprocess,
// communicating over newline-delimited JSON-RPC on stdin/stdout (spec §4.7).
// Restart-on-exit is the upstream connection manager's responsibility
// (§4.1); this adapter owns one process lifetime. It does not read or
// forward the subprocess's stderr.
type StdioAdapter struct {
	base
	command string
	args    []string
	env     map[string]string
	cwd     string
}

// NewStdioAdapter constructs an adapter that will spawn command with args
// and env on Start.
func NewStdioAdapter(command string, args []string, env map[string]string, cwd string) *StdioAdapter {
	return &StdioAdapter{command: command, args: args, env: env, cwd: cwd}
}

// Start spawns the subprocess and performs the MCP initialize handshake.
func (a *StdioAdapter) Start(ctx context.Context) (*gomcp.InitializeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil, fmt.Errorf("stdio adapter for %s already started", a.command)
	}

	var envStrings []string
	for k, v := range a.env {
		envStrings = append(envStrings, k+"="+v)
	}

	logging.Debug("transport.stdio", "starting %s %v", a.command, a.args)
	c, err := client.NewStdioMCPClient(a.command, envStrings, a.args...)
	if err != nil {
		return nil, fmt.Errorf("spawning %s: %w", a.command, err)
	}

	result, err := c.Initialize(ctx, gomcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
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
		return nil, fmt.Errorf("initializing %s: %w", a.command, err)
	}

	a.underlying = c
	a.connected = true
	return result, nil
}

func (a *StdioAdapter) Close() error { return a.close("transport.stdio") }

func (a *StdioAdapter) ListTools(ctx context.Context) ([]gomcp.Tool, error) { return a.listTools(ctx) }
func (a *StdioAdapter) CallTool(ctx context.Context, name string, args map[string]any) (*gomcp.CallToolResult, error) {
	return a.callTool(ctx, name, args)
}
func (a *StdioAdapter) ListResources(ctx context.Context) ([]gomcp.Resource, error) {
	return a.listResources(ctx)
}
func (a *StdioAdapter) ReadResource(ctx context.Context, uri string) (*gomcp.ReadResourceResult, error) {
	return a.readResource(ctx, uri)
}
func (a *StdioAdapter) ListResourceTemplates(ctx context.Context) ([]gomcp.ResourceTemplate, error) {
	return a.listResourceTemplates(ctx)
}
func (a *StdioAdapter) ListPrompts(ctx context.Context) ([]gomcp.Prompt, error) { return a.listPrompts(ctx) }
func (a *StdioAdapter) GetPrompt(ctx context.Context, name string, args map[string]string) (*gomcp.GetPromptResult, error) {
	return a.getPrompt(ctx, name, args)
}
func (a *StdioAdapter) Subscribe(ctx context.Context, uri string) error   { return a.subscribe(ctx, uri) }
func (a *StdioAdapter) Unsubscribe(ctx context.Context, uri string) error { return a.unsubscribe(ctx, uri) }
func (a *StdioAdapter) Complete(ctx context.Context, ref gomcp.Reference, arg gomcp.CompleteArgument) (*gomcp.CompleteResult, error) {
	return a.complete(ctx, ref, arg)
}
func (a *StdioAdapter) SetLevel(ctx context.Context, level gomcp.LoggingLevel) error {
	return a.setLevel(ctx, level)
}
func (a *StdioAdapter) Ping(ctx context.Context) error { return a.ping(ctx) }

var _ Client = (*StdioAdapter)(nil)
