package lazyload

import (
	"context"
	"path"

	"github.com/mark3labs/mcp-go/mcp"

	"mcpmux/internal/namespace"
	"mcpmux/internal/transport"
	"mcpmux/internal/upstream"
	"mcpmux/pkg/mcperr"
)

// Mode selects how the orchestrator exposes tools to a session (spec §4.4).
type Mode string

const (
	ModeFull     Mode = "full"
	ModeMetatool Mode = "metatool"
	ModeHybrid   Mode = "hybrid"
)

// FallbackPolicy governs tool_invoke's behavior when a schema fails to load.
type FallbackPolicy string

const (
	// FallbackSkip returns a typed error without invoking the tool.
	FallbackSkip FallbackPolicy = "skip"
	// FallbackFull calls the upstream without schema validation.
	FallbackFull FallbackPolicy = "full"
)

const (
	MetaToolList   = "tool_list"
	MetaToolSchema = "tool_schema"
	MetaToolInvoke = "tool_invoke"
)

// Orchestrator decides, per spec §4.4, which real tools a session sees
// directly and serves the three meta-tools for everything else.
type Orchestrator struct {
	Mode            Mode
	HybridPatterns  []string
	FallbackOnError FallbackPolicy

	manager *upstream.Manager
	cache   *SchemaCache
}

// NewOrchestrator builds an orchestrator backed by the given connection
// manager and schema cache.
func NewOrchestrator(mode Mode, manager *upstream.Manager, cache *SchemaCache) *Orchestrator {
	return &Orchestrator{
		Mode:            mode,
		FallbackOnError: FallbackSkip,
		manager:         manager,
		cache:           cache,
	}
}

// ExposesRealTool reports whether a namespaced tool id should appear
// directly in tools/list for the configured mode.
func (o *Orchestrator) ExposesRealTool(namespacedID string) bool {
	switch o.Mode {
	case ModeFull:
		return true
	case ModeMetatool:
		return false
	case ModeHybrid:
		_, name, err := namespace.Decode(namespacedID)
		if err != nil {
			return false
		}
		for _, pattern := range o.HybridPatterns {
			if ok, _ := path.Match(pattern, name); ok {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// MetaTools returns the mcp.Tool definitions for tool_list/tool_schema/
// tool_invoke, for registration in the inbound session's tools/list when
// the orchestrator is in metatool or hybrid mode.
func MetaTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        MetaToolList,
			Description: "List tools available from upstream MCP servers, without their full input schemas",
			InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		},
		{
			Name:        MetaToolSchema,
			Description: "Fetch the full input schema for one upstream tool",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"upstream": map[string]any{"type": "string", "description": "Upstream server name"},
					"tool":     map[string]any{"type": "string", "description": "Tool name on that upstream"},
				},
				Required: []string{"upstream", "tool"},
			},
		},
		{
			Name:        MetaToolInvoke,
			Description: "Invoke a tool on an upstream MCP server",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"upstream":  map[string]any{"type": "string", "description": "Upstream server name"},
					"tool":      map[string]any{"type": "string", "description": "Tool name on that upstream"},
					"arguments": map[string]any{"type": "object", "description": "Arguments to pass to the tool"},
				},
				Required: []string{"upstream", "tool"},
			},
		},
	}
}

// ToolList implements the tool_list meta-tool: every tool from every
// connected, non-disabled upstream, without schemas.
func (o *Orchestrator) ToolList(ctx context.Context) ([]NamedTool, error) {
	var out []NamedTool
	for name, c := range o.manager.Snapshot() {
		cl := c.Client()
		if cl == nil {
			continue
		}
		tools, err := cl.ListTools(ctx)
		if err != nil {
			continue
		}
		for _, t := range tools {
			out = append(out, NamedTool{Upstream: name, Name: t.Name, Description: t.Description})
		}
	}
	return out, nil
}

// NamedTool is a lightweight (upstream, tool, description) triple, the
// payload of tool_list.
type NamedTool struct {
	Upstream    string
	Name        string
	Description string
}

// ToolSchema implements the tool_schema meta-tool, serving from the schema
// cache and coalescing concurrent loads for the same (upstream, tool) key.
func (o *Orchestrator) ToolSchema(ctx context.Context, upstreamName, tool string) (*mcp.Tool, error) {
	c, err := o.manager.Get(upstreamName)
	if err != nil {
		return nil, err
	}
	return o.cache.GetOrLoad(ctx, upstreamName, tool, func(ctx context.Context) (*mcp.Tool, error) {
		cl := c.Client()
		if cl == nil {
			return nil, mcperr.New(mcperr.KindDisconnected, "upstream %q is not connected", upstreamName)
		}
		tools, err := cl.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		for i := range tools {
			if tools[i].Name == tool {
				return &tools[i], nil
			}
		}
		return nil, mcperr.New(mcperr.KindNotFound, "upstream %q has no tool %q", upstreamName, tool)
	})
}

// ToolInvoke implements the tool_invoke meta-tool. It loads the tool's
// schema first (for future input validation hooks); on load failure it
// follows FallbackOnError: skip returns the error, full calls through
// regardless.
func (o *Orchestrator) ToolInvoke(ctx context.Context, upstreamName, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	if _, err := o.manager.Get(upstreamName); err != nil {
		return nil, err
	}

	if _, err := o.ToolSchema(ctx, upstreamName, tool); err != nil && o.FallbackOnError == FallbackSkip {
		return nil, mcperr.Wrap(mcperr.KindNotFound, err, "tool_invoke %s/%s: schema unavailable", upstreamName, tool)
	}

	return upstream.Invoke(ctx, o.manager, upstreamName, func(cl transport.Client) (*mcp.CallToolResult, error) {
		return cl.CallTool(ctx, tool, args)
	})
}
