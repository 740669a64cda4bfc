package upstream

import (
	"context"
	"fmt"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"mcpmux/internal/configwatch"
)

// pingableClient is a minimal transport.Client stub whose Ping/SetLevel
// calls are independently controllable, used to exercise the manager's
// fan-out helpers without a real upstream process.
type pingableClient struct {
	slowClient
	pingErr     error
	setLevelErr error
}

func (p *pingableClient) Ping(context.Context) error { return p.pingErr }
func (p *pingableClient) SetLevel(context.Context, gomcp.LoggingLevel) error {
	return p.setLevelErr
}

func connectedWith(t *testing.T, name string, cl *pingableClient, caps gomcp.ServerCapabilities) *Connection {
	t.Helper()
	c := newConnection(configwatch.UpstreamDescriptor{
		Name: name, Type: configwatch.TransportHTTP, URL: "http://example.invalid",
	})
	c.setConnected(cl, &gomcp.InitializeResult{Capabilities: caps})
	return c
}

func TestManager_PingAll_OnlyPingsConnectedUpstreams(t *testing.T) {
	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = connectedWith(t, "alpha", &pingableClient{}, gomcp.ServerCapabilities{})
	disabled := newConnection(configwatch.UpstreamDescriptor{Name: "beta", Type: configwatch.TransportStdio, Command: "x", Disabled: true})
	m.connections["beta"] = disabled
	m.mu.Unlock()

	results := m.PingAll(context.Background())
	assert.Len(t, results, 1)
	assert.NoError(t, results["alpha"])
	assert.NotContains(t, results, "beta")
}

func TestManager_PingAll_ReportsPerUpstreamFailureWithoutStoppingOthers(t *testing.T) {
	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = connectedWith(t, "alpha", &pingableClient{}, gomcp.ServerCapabilities{})
	m.connections["broken"] = connectedWith(t, "broken", &pingableClient{pingErr: fmt.Errorf("connection reset")}, gomcp.ServerCapabilities{})
	m.mu.Unlock()

	results := m.PingAll(context.Background())
	assert.NoError(t, results["alpha"])
	assert.Error(t, results["broken"])
}

func TestManager_SetLoggingLevelAll_SkipsUpstreamsWithoutLoggingCapability(t *testing.T) {
	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = connectedWith(t, "alpha", &pingableClient{}, gomcp.ServerCapabilities{Logging: &struct{}{}})
	m.connections["beta"] = connectedWith(t, "beta", &pingableClient{}, gomcp.ServerCapabilities{})
	m.mu.Unlock()

	results := m.SetLoggingLevelAll(context.Background(), gomcp.LoggingLevel("info"))
	assert.Len(t, results, 1)
	assert.NoError(t, results["alpha"])
	assert.NotContains(t, results, "beta")
}

func TestManager_SetLoggingLevelAll_ReportsUpstreamError(t *testing.T) {
	m := NewManager("mcpmux")
	m.mu.Lock()
	m.connections["alpha"] = connectedWith(t, "alpha", &pingableClient{setLevelErr: fmt.Errorf("rejected")}, gomcp.ServerCapabilities{Logging: &struct{}{}})
	m.mu.Unlock()

	results := m.SetLoggingLevelAll(context.Background(), gomcp.LoggingLevel("debug"))
	assert.Error(t, results["alpha"])
}
