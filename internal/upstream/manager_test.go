package upstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/transport"
	"mcpmux/pkg/mcperr"
)

func TestManager_Get_NotFound(t *testing.T) {
	m := NewManager("mcpmux")
	_, err := m.Get("missing")
	assert.Error(t, err)
	assert.Equal(t, mcperr.KindNotFound, mcperr.KindOf(err))
}

func TestManager_CreateAll_DisabledSkipsConnect(t *testing.T) {
	m := NewManager("mcpmux")
	descriptors := map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "nonexistent-binary", Disabled: true},
	}

	conns := m.CreateAll(context.Background(), descriptors)
	require.Contains(t, conns, "alpha")
	assert.Equal(t, StatusDisabled, conns["alpha"].Status())
}

func TestManager_CreateAll_FailureDoesNotBlockOthers(t *testing.T) {
	m := NewManager("mcpmux")
	descriptors := map[string]configwatch.UpstreamDescriptor{
		"broken":   {Name: "broken", Type: configwatch.TransportStdio, Command: "definitely-not-a-real-binary-xyz"},
		"disabled": {Name: "disabled", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns := m.CreateAll(ctx, descriptors)
	assert.Equal(t, StatusError, conns["broken"].Status())
	assert.Equal(t, StatusDisabled, conns["disabled"].Status())
	assert.Error(t, conns["broken"].LastError())
}

func TestManager_Reload_AddsAndRemoves(t *testing.T) {
	m := NewManager("mcpmux")
	m.CreateAll(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"gone": {Name: "gone", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	})

	diff := m.Reload(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"new": {Name: "new", Type: configwatch.TransportStdio, Command: "y", Disabled: true},
	})

	assert.Len(t, diff.Added, 1)
	assert.Len(t, diff.Removed, 1)

	_, err := m.Get("gone")
	assert.Error(t, err)
	conn, err := m.Get("new")
	assert.NoError(t, err)
	assert.Equal(t, StatusDisabled, conn.Status())
}

func TestInvoke_NotConnected(t *testing.T) {
	m := NewManager("mcpmux")
	m.CreateAll(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	})

	_, err := Invoke(context.Background(), m, "alpha", func(_ transport.Client) (struct{}, error) { return struct{}{}, nil })
	assert.Error(t, err)
	assert.Equal(t, mcperr.KindDisconnected, mcperr.KindOf(err))
}

func TestInvoke_UnknownUpstream(t *testing.T) {
	m := NewManager("mcpmux")
	_, err := Invoke(context.Background(), m, "missing", func(_ transport.Client) (struct{}, error) { return struct{}{}, nil })
	assert.Error(t, err)
	assert.Equal(t, mcperr.KindNotFound, mcperr.KindOf(err))
}

func TestManager_ConnectTemplate_SharesIdenticalRenders(t *testing.T) {
	m := NewManager("mcpmux")
	base := configwatch.UpstreamDescriptor{
		Name: "search", Type: configwatch.TransportStdio,
		Command: "definitely-not-a-real-binary-xyz", Args: []string{"--project", "{{ .project }}"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c1, err := m.ConnectTemplate(ctx, base, map[string]any{"project": "acme"})
	require.NoError(t, err)
	c2, err := m.ConnectTemplate(ctx, base, map[string]any{"project": "acme"})
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestManager_ConnectTemplate_DifferentVarsDifferentInstance(t *testing.T) {
	m := NewManager("mcpmux")
	base := configwatch.UpstreamDescriptor{
		Name: "search", Type: configwatch.TransportStdio,
		Command: "definitely-not-a-real-binary-xyz", Args: []string{"--project", "{{ .project }}"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c1, err := m.ConnectTemplate(ctx, base, map[string]any{"project": "acme"})
	require.NoError(t, err)
	c2, err := m.ConnectTemplate(ctx, base, map[string]any{"project": "other"})
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.NotEqual(t, c1.Name, c2.Name)
}
