package lazyload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/namespace"
	"mcpmux/internal/upstream"
	"mcpmux/pkg/mcperr"
)

func newTestManager() *upstream.Manager {
	m := upstream.NewManager("mcpmux")
	m.CreateAll(context.Background(), map[string]configwatch.UpstreamDescriptor{
		"alpha": {Name: "alpha", Type: configwatch.TransportStdio, Command: "x", Disabled: true},
	})
	return m
}

func TestOrchestrator_ExposesRealTool_Full(t *testing.T) {
	o := NewOrchestrator(ModeFull, newTestManager(), NewSchemaCache(10, 0))
	assert.True(t, o.ExposesRealTool(namespace.Encode("alpha", "search")))
}

func TestOrchestrator_ExposesRealTool_Metatool(t *testing.T) {
	o := NewOrchestrator(ModeMetatool, newTestManager(), NewSchemaCache(10, 0))
	assert.False(t, o.ExposesRealTool(namespace.Encode("alpha", "search")))
}

func TestOrchestrator_ExposesRealTool_Hybrid(t *testing.T) {
	o := NewOrchestrator(ModeHybrid, newTestManager(), NewSchemaCache(10, 0))
	o.HybridPatterns = []string{"search*"}

	assert.True(t, o.ExposesRealTool(namespace.Encode("alpha", "search_docs")))
	assert.False(t, o.ExposesRealTool(namespace.Encode("alpha", "write_file")))
}

func TestOrchestrator_ExposesRealTool_Hybrid_MalformedID(t *testing.T) {
	o := NewOrchestrator(ModeHybrid, newTestManager(), NewSchemaCache(10, 0))
	o.HybridPatterns = []string{"*"}
	assert.False(t, o.ExposesRealTool("not-namespaced"))
}

func TestMetaTools_Shape(t *testing.T) {
	tools := MetaTools()
	require.Len(t, tools, 3)

	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	assert.True(t, names[MetaToolList])
	assert.True(t, names[MetaToolSchema])
	assert.True(t, names[MetaToolInvoke])
}

func TestOrchestrator_ToolList_SkipsDisconnected(t *testing.T) {
	o := NewOrchestrator(ModeMetatool, newTestManager(), NewSchemaCache(10, 0))
	tools, err := o.ToolList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestOrchestrator_ToolSchema_UnconnectedUpstream(t *testing.T) {
	o := NewOrchestrator(ModeMetatool, newTestManager(), NewSchemaCache(10, 0))
	_, err := o.ToolSchema(context.Background(), "alpha", "search")
	assert.Error(t, err)
	assert.Equal(t, mcperr.KindDisconnected, mcperr.KindOf(err))
}

func TestOrchestrator_ToolSchema_UnknownUpstream(t *testing.T) {
	o := NewOrchestrator(ModeMetatool, newTestManager(), NewSchemaCache(10, 0))
	_, err := o.ToolSchema(context.Background(), "missing", "search")
	assert.Error(t, err)
	assert.Equal(t, mcperr.KindNotFound, mcperr.KindOf(err))
}

func TestOrchestrator_ToolInvoke_FallbackSkip(t *testing.T) {
	o := NewOrchestrator(ModeMetatool, newTestManager(), NewSchemaCache(10, 0))
	o.FallbackOnError = FallbackSkip

	_, err := o.ToolInvoke(context.Background(), "alpha", "search", nil)
	assert.Error(t, err)
}
