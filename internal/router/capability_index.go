package router

import (
	"context"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"mcpmux/internal/namespace"
	"mcpmux/internal/upstream"
	"mcpmux/pkg/logging"
)

// IndexedTool is a tool namespaced to the upstream it came from.
type IndexedTool struct {
	Upstream string
	Tool     mcp.Tool
}

// IndexedResource is a resource namespaced to the upstream it came from.
type IndexedResource struct {
	Upstream string
	Resource mcp.Resource
}

// IndexedPrompt is a prompt namespaced to the upstream it came from.
type IndexedPrompt struct {
	Upstream string
	Prompt   mcp.Prompt
}

// CapabilityIndex is the router's union view of every connected upstream's
// tools, resources and prompts, keyed by namespaced id (spec §3/§4.2). It is
// rebuilt wholesale on upstream reconnect, config reload, or lazy-load
// mutation rather than incrementally patched, matching the teacher's
// ServerRegistry.GetAllTools sweep-on-read style.
type CapabilityIndex struct {
	manager *upstream.Manager

	mu        sync.RWMutex
	tools     []IndexedTool
	resources []IndexedResource
	prompts   []IndexedPrompt
}

// NewCapabilityIndex builds an empty index backed by manager; call Rebuild
// to populate it.
func NewCapabilityIndex(manager *upstream.Manager) *CapabilityIndex {
	return &CapabilityIndex{manager: manager}
}

// Rebuild re-fetches tools/resources/prompts from every connected upstream
// and replaces the index atomically. A single upstream's fetch failure
// (e.g. it doesn't implement resources) does not block the others.
func (idx *CapabilityIndex) Rebuild(ctx context.Context) {
	var tools []IndexedTool
	var resources []IndexedResource
	var prompts []IndexedPrompt

	names := make([]string, 0)
	for name := range idx.manager.Snapshot() {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := idx.manager.Snapshot()
	for _, name := range names {
		c := snapshot[name]
		cl := c.Client()
		if cl == nil {
			continue
		}
		caps := c.Capabilities()

		if caps.Tools != nil {
			if ts, err := cl.ListTools(ctx); err == nil {
				for _, t := range ts {
					tools = append(tools, IndexedTool{Upstream: name, Tool: t})
				}
			} else {
				logging.Debug("router", "%s: list tools failed: %v", name, err)
			}
		}

		if caps.Resources != nil {
			if rs, err := cl.ListResources(ctx); err == nil {
				for _, r := range rs {
					resources = append(resources, IndexedResource{Upstream: name, Resource: r})
				}
			} else {
				logging.Debug("router", "%s: list resources failed: %v", name, err)
			}
		}

		if caps.Prompts != nil {
			if ps, err := cl.ListPrompts(ctx); err == nil {
				for _, p := range ps {
					prompts = append(prompts, IndexedPrompt{Upstream: name, Prompt: p})
				}
			} else {
				logging.Debug("router", "%s: list prompts failed: %v", name, err)
			}
		}
	}

	sort.SliceStable(tools, func(i, j int) bool {
		if tools[i].Upstream != tools[j].Upstream {
			return tools[i].Upstream < tools[j].Upstream
		}
		return tools[i].Tool.Name < tools[j].Tool.Name
	})

	idx.mu.Lock()
	idx.tools = tools
	idx.resources = resources
	idx.prompts = prompts
	idx.mu.Unlock()
}

// Tools returns a copy of the tool index, ordered by upstream name then tool
// name for deterministic pagination.
func (idx *CapabilityIndex) Tools() []IndexedTool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]IndexedTool, len(idx.tools))
	copy(out, idx.tools)
	return out
}

// Resources returns a copy of the resource index.
func (idx *CapabilityIndex) Resources() []IndexedResource {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]IndexedResource, len(idx.resources))
	copy(out, idx.resources)
	return out
}

// Prompts returns a copy of the prompt index.
func (idx *CapabilityIndex) Prompts() []IndexedPrompt {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]IndexedPrompt, len(idx.prompts))
	copy(out, idx.prompts)
	return out
}

// NamespacedName returns the id a session dispatches tool calls against.
func (t IndexedTool) NamespacedName() string {
	return namespace.Encode(t.Upstream, t.Tool.Name)
}

// NamespacedName returns the id a session dispatches prompt calls against.
func (p IndexedPrompt) NamespacedName() string {
	return namespace.Encode(p.Upstream, p.Prompt.Name)
}

// NamespacedURI returns the id a session dispatches resource reads against.
func (r IndexedResource) NamespacedURI() string {
	return namespace.Encode(r.Upstream, r.Resource.URI)
}
