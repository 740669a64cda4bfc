package configwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDiff_AddedRemovedModified(t *testing.T) {
	old := &Config{Servers: map[string]UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: TransportStdio, Command: "a", Tags: []string{"web"}},
		"gone":  {Name: "gone", Type: TransportStdio, Command: "g"},
	}}
	new := &Config{Servers: map[string]UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: TransportStdio, Command: "a", Tags: []string{"web", "prod"}},
		"new":   {Name: "new", Type: TransportStdio, Command: "n"},
	}}

	d := ComputeDiff(old, new)
	assert.Len(t, d.Added, 1)
	assert.Equal(t, "new", d.Added[0].Name)
	assert.Len(t, d.Removed, 1)
	assert.Equal(t, "gone", d.Removed[0].Name)
	assert.Len(t, d.Modified, 1)
	assert.Equal(t, "alpha", d.Modified[0].Name)
	assert.Contains(t, d.Modified[0].FieldsChanged, "tags")
	assert.False(t, d.Modified[0].TransportChanged)
}

func TestComputeDiff_TransportChange(t *testing.T) {
	old := &Config{Servers: map[string]UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: TransportStdio, Command: "a"},
	}}
	new := &Config{Servers: map[string]UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: TransportStdio, Command: "b"},
	}}

	d := ComputeDiff(old, new)
	assert.Len(t, d.Modified, 1)
	assert.True(t, d.Modified[0].TransportChanged)
}

func TestComputeDiff_NoChanges(t *testing.T) {
	cfg := &Config{Servers: map[string]UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: TransportStdio, Command: "a"},
	}}
	d := ComputeDiff(cfg, cfg)
	assert.True(t, d.Empty())
}

func TestComputeDiff_NilOld(t *testing.T) {
	new := &Config{Servers: map[string]UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: TransportStdio, Command: "a"},
	}}
	d := ComputeDiff(nil, new)
	assert.Len(t, d.Added, 1)
}
