package upstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmux/internal/configwatch"
)

func TestReload_NoChanges_IsNoop(t *testing.T) {
	m := NewManager("mcpmux")
	descriptors := map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	}
	m.CreateAll(context.Background(), descriptors)

	diff := m.Reload(context.Background(), descriptors)
	assert.True(t, diff.Empty())
}

func TestReload_ModifiedMetadataOnly_KeepsConnection(t *testing.T) {
	m := NewManager("mcpmux")
	m.CreateAll(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true, Tags: []string{"a"}},
	})

	diff := m.Reload(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true, Tags: []string{"a", "b"}},
	})

	require.Len(t, diff.Modified, 1)
	assert.False(t, diff.Modified[0].TransportChanged)

	c, err := m.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Descriptor.Tags)
}

func TestReload_ModifiedTransport_Recreates(t *testing.T) {
	m := NewManager("mcpmux")
	m.CreateAll(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	})

	diff := m.Reload(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "y", Disabled: true},
	})

	require.Len(t, diff.Modified, 1)
	assert.True(t, diff.Modified[0].TransportChanged)

	c, err := m.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "y", c.Descriptor.Command)
	assert.Equal(t, StatusDisabled, c.Status())
}

func TestReload_DisablingAnUpstream_ClosesIt(t *testing.T) {
	m := NewManager("mcpmux")
	m.CreateAll(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x"},
	})

	diff := m.Reload(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	})

	require.Len(t, diff.Modified, 1)
	c, err := m.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, c.Status())
}
