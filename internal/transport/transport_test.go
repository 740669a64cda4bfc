package transport

import (
	"context"
	"errors"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"mcpmux/internal/configwatch"
)

// fakeUnderlying implements github.com/mark3labs/mcp-go/client.MCPClient
// with canned responses, so base's dispatch logic can be exercised without
// spawning a real process or opening a real connection.
type fakeUnderlying struct {
	listToolsErr error
	closeCalled  bool
}

func (f *fakeUnderlying) Initialize(ctx context.Context, r gomcp.InitializeRequest) (*gomcp.InitializeResult, error) {
	return &gomcp.InitializeResult{}, nil
}
func (f *fakeUnderlying) Ping(ctx context.Context) error { return nil }
func (f *fakeUnderlying) ListResources(ctx context.Context, r gomcp.ListResourcesRequest) (*gomcp.ListResourcesResult, error) {
	return &gomcp.ListResourcesResult{}, nil
}
func (f *fakeUnderlying) ListResourceTemplates(ctx context.Context, r gomcp.ListResourceTemplatesRequest) (*gomcp.ListResourceTemplatesResult, error) {
	return &gomcp.ListResourceTemplatesResult{}, nil
}
func (f *fakeUnderlying) ReadResource(ctx context.Context, r gomcp.ReadResourceRequest) (*gomcp.ReadResourceResult, error) {
	return &gomcp.ReadResourceResult{}, nil
}
func (f *fakeUnderlying) Subscribe(ctx context.Context, r gomcp.SubscribeRequest) error   { return nil }
func (f *fakeUnderlying) Unsubscribe(ctx context.Context, r gomcp.UnsubscribeRequest) error { return nil }
func (f *fakeUnderlying) ListPrompts(ctx context.Context, r gomcp.ListPromptsRequest) (*gomcp.ListPromptsResult, error) {
	return &gomcp.ListPromptsResult{}, nil
}
func (f *fakeUnderlying) GetPrompt(ctx context.Context, r gomcp.GetPromptRequest) (*gomcp.GetPromptResult, error) {
	return &gomcp.GetPromptResult{}, nil
}
func (f *fakeUnderlying) ListTools(ctx context.Context, r gomcp.ListToolsRequest) (*gomcp.ListToolsResult, error) {
	if f.listToolsErr != nil {
		return nil, f.listToolsErr
	}
	return &gomcp.ListToolsResult{Tools: []gomcp.Tool{{Name: "read"}}}, nil
}
func (f *fakeUnderlying) CallTool(ctx context.Context, r gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	return &gomcp.CallToolResult{}, nil
}
func (f *fakeUnderlying) SetLevel(ctx context.Context, r gomcp.SetLevelRequest) error { return nil }
func (f *fakeUnderlying) Complete(ctx context.Context, r gomcp.CompleteRequest) (*gomcp.CompleteResult, error) {
	return &gomcp.CompleteResult{}, nil
}
func (f *fakeUnderlying) Close() error {
	f.closeCalled = true
	return nil
}
func (f *fakeUnderlying) OnNotification(handler func(notification gomcp.JSONRPCNotification)) {}

func newConnectedStdioAdapter(fake *fakeUnderlying) *StdioAdapter {
	a := NewStdioAdapter("echo", nil, nil, "")
	a.underlying = fake
	a.connected = true
	return a
}

func TestListTools_Success(t *testing.T) {
	fake := &fakeUnderlying{}
	a := newConnectedStdioAdapter(fake)

	tools, err := a.ListTools(context.Background())
	assert.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.Equal(t, "read", tools[0].Name)
}

func TestListTools_ErrorFiresOnError(t *testing.T) {
	fake := &fakeUnderlying{listToolsErr: errors.New("boom")}
	a := newConnectedStdioAdapter(fake)

	var gotErr error
	a.OnError(func(err error) { gotErr = err })

	_, err := a.ListTools(context.Background())
	assert.Error(t, err)
	assert.Equal(t, err, gotErr)
}

func TestNotConnected_ReturnsError(t *testing.T) {
	a := NewStdioAdapter("echo", nil, nil, "")
	_, err := a.ListTools(context.Background())
	assert.Error(t, err)
}

func TestClose_FiresOnClose(t *testing.T) {
	fake := &fakeUnderlying{}
	a := newConnectedStdioAdapter(fake)

	closed := false
	a.OnClose(func() { closed = true })

	assert.NoError(t, a.Close())
	assert.True(t, closed)
	assert.True(t, fake.closeCalled)
}

func TestFactory_BuildsCorrectAdapterType(t *testing.T) {
	stdio, err := New(configwatch.UpstreamDescriptor{Type: configwatch.TransportStdio, Command: "echo"})
	assert.NoError(t, err)
	assert.IsType(t, &StdioAdapter{}, stdio)

	http, err := New(configwatch.UpstreamDescriptor{Type: configwatch.TransportHTTP, URL: "https://example.com"})
	assert.NoError(t, err)
	assert.IsType(t, &StreamableHTTPAdapter{}, http)

	sse, err := New(configwatch.UpstreamDescriptor{Type: configwatch.TransportSSE, URL: "https://example.com"})
	assert.NoError(t, err)
	assert.IsType(t, &SSEAdapter{}, sse)

	_, err = New(configwatch.UpstreamDescriptor{Type: "bogus"})
	assert.Error(t, err)
}
