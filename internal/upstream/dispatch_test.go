package upstream

import (
	"context"
	"fmt"
	"testing"
	"time"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/transport"
	"mcpmux/pkg/mcperr"
)

// slowClient is a minimal transport.Client stub whose CallTool blocks until
// released, used to exercise Invoke's deadline wrapping without a real
// upstream process.
type slowClient struct {
	release chan struct{}
}

func (s *slowClient) Start(context.Context) (*gomcp.InitializeResult, error) { return nil, nil }
func (s *slowClient) Close() error                                          { return nil }
func (s *slowClient) ListTools(context.Context) ([]gomcp.Tool, error)       { return nil, nil }
func (s *slowClient) CallTool(ctx context.Context, _ string, _ map[string]any) (*gomcp.CallToolResult, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return &gomcp.CallToolResult{}, nil
}
func (s *slowClient) ListResources(context.Context) ([]gomcp.Resource, error) { return nil, nil }
func (s *slowClient) ReadResource(context.Context, string) (*gomcp.ReadResourceResult, error) {
	return nil, nil
}
func (s *slowClient) ListResourceTemplates(context.Context) ([]gomcp.ResourceTemplate, error) {
	return nil, nil
}
func (s *slowClient) ListPrompts(context.Context) ([]gomcp.Prompt, error) { return nil, nil }
func (s *slowClient) GetPrompt(context.Context, string, map[string]string) (*gomcp.GetPromptResult, error) {
	return nil, nil
}
func (s *slowClient) Subscribe(context.Context, string) error   { return nil }
func (s *slowClient) Unsubscribe(context.Context, string) error { return nil }
func (s *slowClient) Complete(context.Context, gomcp.Reference, gomcp.CompleteArgument) (*gomcp.CompleteResult, error) {
	return nil, nil
}
func (s *slowClient) SetLevel(context.Context, gomcp.LoggingLevel) error { return nil }
func (s *slowClient) Ping(context.Context) error                        { return nil }
func (s *slowClient) OnClose(func())                                    {}
func (s *slowClient) OnError(func(error))                               {}
func (s *slowClient) SetRootsListHandler(func(context.Context) ([]gomcp.Root, error)) {}
func (s *slowClient) SetSamplingHandler(func(context.Context, gomcp.CreateMessageRequest) (*gomcp.CreateMessageResult, error)) {
}
func (s *slowClient) SetElicitationHandler(func(context.Context, gomcp.ElicitRequest) (*gomcp.ElicitResult, error)) {
}

// unauthorizedClient always fails with a 401-shaped error, used to exercise
// Invoke's refresh-and-retry branch.
type unauthorizedClient struct{ slowClient }

func (u *unauthorizedClient) CallTool(context.Context, string, map[string]any) (*gomcp.CallToolResult, error) {
	return nil, fmt.Errorf("upstream returned 401 Unauthorized")
}

func TestInvoke_401WithNoRegisteredCredentialsReturnsOriginalError(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{
		Name: "alpha", Type: configwatch.TransportHTTP, URL: "http://example.invalid",
	})
	c.setConnected(&unauthorizedClient{}, &gomcp.InitializeResult{})

	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = c
	m.mu.Unlock()

	_, err := Invoke(context.Background(), m, "alpha", func(cl transport.Client) (*gomcp.CallToolResult, error) {
		return cl.CallTool(context.Background(), "whoami", nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestInvoke_401OnStdioUpstreamSkipsRefresh(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{
		Name: "alpha", Type: configwatch.TransportStdio, Command: "x",
	})
	c.setConnected(&unauthorizedClient{}, &gomcp.InitializeResult{})

	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = c
	m.mu.Unlock()

	_, err := Invoke(context.Background(), m, "alpha", func(cl transport.Client) (*gomcp.CallToolResult, error) {
		return cl.CallTool(context.Background(), "whoami", nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestInvoke_ExceedsEffectiveTimeoutReturnsKindTimeout(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{
		Name: "alpha", Type: configwatch.TransportHTTP, URL: "http://example.invalid",
		RequestTimeout: 10 * time.Millisecond,
	})
	c.setConnected(&slowClient{release: make(chan struct{})}, &gomcp.InitializeResult{})

	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = c
	m.mu.Unlock()

	_, err := Invoke(context.Background(), m, "alpha", func(cl transport.Client) (*gomcp.CallToolResult, error) {
		return cl.CallTool(context.Background(), "slow", nil)
	})
	require.Error(t, err)
	assert.Equal(t, mcperr.KindTimeout, mcperr.KindOf(err))
}

func TestInvoke_WithinTimeoutSucceeds(t *testing.T) {
	release := make(chan struct{})
	close(release)
	c := newConnection(configwatch.UpstreamDescriptor{
		Name: "alpha", Type: configwatch.TransportHTTP, URL: "http://example.invalid",
		RequestTimeout: time.Second,
	})
	c.setConnected(&slowClient{release: release}, &gomcp.InitializeResult{})

	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = c
	m.mu.Unlock()

	result, err := Invoke(context.Background(), m, "alpha", func(cl transport.Client) (*gomcp.CallToolResult, error) {
		return cl.CallTool(context.Background(), "fast", nil)
	})
	require.NoError(t, err)
	assert.NotNil(t, result)
}
