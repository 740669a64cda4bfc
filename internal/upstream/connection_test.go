package upstream

import (
	"errors"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmux/internal/configwatch"
)

func TestNewConnection_DisabledDescriptorStartsDisabled(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{Name: "alpha", Disabled: true})
	assert.Equal(t, StatusDisabled, c.Status())
	assert.Nil(t, c.Client())
}

func TestNewConnection_EnabledDescriptorStartsDisconnected(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{Name: "alpha"})
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestConnection_SetError(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{Name: "alpha"})
	c.setError(errors.New("boom"))
	assert.Equal(t, StatusError, c.Status())
	require.Error(t, c.LastError())
	assert.Nil(t, c.Client())
}

func TestConnection_SetConnected_CapturesCapabilities(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{Name: "alpha"})
	result := &gomcp.InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities:    gomcp.ServerCapabilities{Tools: &gomcp.ToolsCapability{ListChanged: true}},
	}
	c.setConnected(nil, result)

	assert.Equal(t, StatusConnected, c.Status())
	assert.True(t, c.Capabilities().Tools.ListChanged)
}

func TestConnection_ClientNilUnlessConnected(t *testing.T) {
	c := newConnection(configwatch.UpstreamDescriptor{Name: "alpha"})
	c.setStatus(StatusConnecting)
	assert.Nil(t, c.Client())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "disabled", StatusDisabled.String())
	assert.Equal(t, "unknown", Status(99).String())
}
