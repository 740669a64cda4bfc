package router

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"mcpmux/internal/filter"
	"mcpmux/internal/lazyload"
	"mcpmux/internal/namespace"
	"mcpmux/internal/transport"
	"mcpmux/internal/upstream"
	"mcpmux/pkg/mcperr"
)

const defaultPageSize = 50

// Router is the inbound session router of spec §4.2: it owns the
// Capability Index, the set of active inbound sessions, the tag-filter
// preset store, and the lazy-loading orchestrator, and it dispatches a
// session's list/call/read requests against them.
type Router struct {
	Manager      *upstream.Manager
	Index        *CapabilityIndex
	Orchestrator *lazyload.Orchestrator
	Presets      *filter.PresetStore
	PageSize     int
	Denylist     *Denylist

	mu       sync.RWMutex
	sessions map[string]*InboundSession

	notifier *Notifier
}

// New builds a Router over an already-constructed connection manager.
func New(manager *upstream.Manager, orch *lazyload.Orchestrator) *Router {
	r := &Router{
		Manager:      manager,
		Index:        NewCapabilityIndex(manager),
		Orchestrator: orch,
		Presets:      filter.NewPresetStore(),
		PageSize:     defaultPageSize,
		Denylist:     NewDenylist(nil),
		sessions:     make(map[string]*InboundSession),
	}
	r.notifier = NewNotifier(r.sessionIDs)
	return r
}

// Session returns the session for id, creating one on first use.
func (r *Router) Session(id string) *InboundSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = NewInboundSession(id)
		r.sessions[id] = s
	}
	return s
}

// CloseSession drops a session's state when the inbound transport closes.
func (r *Router) CloseSession(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.clearPresetSubscription()
	}
}

// ApplySessionFilter installs the predicate resolved for this request onto
// session, and keeps the session's preset subscription in sync: a request
// naming a preset subscribes the session to it (spec §4.5's preset ->
// listChanged propagation), a request naming no preset, or a different
// preset, drops any stale subscription first. presetName is empty for the
// tag-filter/tags/filter query forms and for the no-filter default.
func (r *Router) ApplySessionFilter(session *InboundSession, presetName string, predicate filter.Predicate) {
	if presetName == "" {
		session.clearPresetSubscription()
		session.SetPredicate(predicate)
		return
	}
	if session.boundPreset() == presetName {
		session.SetPredicate(predicate)
		return
	}
	session.clearPresetSubscription()
	unsubscribe := r.Presets.Subscribe(presetName, func() {
		if pred, err := r.Presets.Resolve(presetName); err == nil {
			session.SetPredicate(pred)
		}
		r.RebuildIndex(context.Background())
	})
	session.setPresetSubscription(presetName, unsubscribe)
	session.SetPredicate(predicate)
}

// Ping fans a ping out to every connected upstream (spec §A's ambient
// health-check surface), returning each upstream's result.
func (r *Router) Ping(ctx context.Context) map[string]error {
	return r.Manager.PingAll(ctx)
}

// SetLoggingLevel fans logging/setLevel out to every connected upstream
// that advertises the logging capability.
func (r *Router) SetLoggingLevel(ctx context.Context, level mcp.LoggingLevel) map[string]error {
	return r.Manager.SetLoggingLevelAll(ctx, level)
}

func (r *Router) sessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Notifier returns the router's listChanged batching notifier, so a
// transport adapter can wire SendNotificationToSpecificClient into it.
func (r *Router) Notifier() *Notifier {
	return r.notifier
}

// RebuildIndex refreshes the Capability Index from the connection manager
// and fires batched listChanged notifications for every active session
// (spec §4.2's "listChanged propagation"). Call this after an upstream
// reconnect, a config reload, or a lazy-load cache invalidation.
func (r *Router) RebuildIndex(ctx context.Context) {
	r.Index.Rebuild(ctx)
	r.notifier.NotifyAll(KindTools)
	r.notifier.NotifyAll(KindResources)
	r.notifier.NotifyAll(KindPrompts)
}

func (r *Router) visibleUpstream(session *InboundSession, name string) bool {
	c, err := r.Manager.Get(name)
	if err != nil {
		return false
	}
	return session.sees(c.Descriptor)
}

// ListTools returns one page of namespaced tools visible to session,
// honoring the lazy-loading orchestrator's mode (spec §4.2/§4.4).
func (r *Router) ListTools(ctx context.Context, session *InboundSession, cursor string) ([]mcp.Tool, string, error) {
	all := r.Index.Tools()

	var visible []IndexedTool
	for _, t := range all {
		if !r.visibleUpstream(session, t.Upstream) {
			continue
		}
		if r.Orchestrator != nil && !r.Orchestrator.ExposesRealTool(t.NamespacedName()) {
			continue
		}
		visible = append(visible, t)
	}

	page, next, err := paginate(visible, func(t IndexedTool) string { return t.Upstream }, cursor, r.PageSize)
	if err != nil {
		return nil, "", err
	}

	tools := make([]mcp.Tool, len(page))
	for i, t := range page {
		tool := t.Tool
		tool.Name = t.NamespacedName()
		tools[i] = tool
	}

	if r.Orchestrator != nil && r.Orchestrator.Mode != lazyload.ModeFull && cursor == "" {
		tools = append(lazyload.MetaTools(), tools...)
	}

	return tools, next, nil
}

// CallTool dispatches a namespaced tool call to its upstream.
func (r *Router) CallTool(ctx context.Context, session *InboundSession, namespacedName string, args map[string]any) (*mcp.CallToolResult, error) {
	switch namespacedName {
	case lazyload.MetaToolList:
		return nil, mcperr.New(mcperr.KindInvalidParams, "%s must be called through tools/list, not tools/call", lazyload.MetaToolList)
	case lazyload.MetaToolSchema:
		return r.callToolSchema(ctx, args)
	case lazyload.MetaToolInvoke:
		return r.callToolInvoke(ctx, session, args)
	}

	upstreamName, toolName, err := namespace.Decode(namespacedName)
	if err != nil {
		return nil, err
	}
	if !r.visibleUpstream(session, upstreamName) {
		return nil, mcperr.New(mcperr.KindNotFound, "tool %q is not visible to this session", namespacedName)
	}
	if r.Denylist.Blocks(toolName) {
		return nil, mcperr.New(mcperr.KindPermissionDenied, "tool %q is blocked by the destructive-tools denylist; pass --yolo to allow it", namespacedName)
	}

	r.bindSession(upstreamName, session.ID)
	return upstream.Invoke(ctx, r.Manager, upstreamName, func(cl transport.Client) (*mcp.CallToolResult, error) {
		return cl.CallTool(ctx, toolName, args)
	})
}

// bindSession records session as the most recent caller to dispatch a
// request at upstreamName, so a reverse request that upstream sends back
// (roots/list, sampling/createMessage, elicitation/create) knows which
// inbound session to forward to. Best-effort: an unknown upstream is
// simply not bound, since the dispatch call right after this will fail on
// its own.
func (r *Router) bindSession(upstreamName, sessionID string) {
	if c, err := r.Manager.Get(upstreamName); err == nil {
		c.BindSession(sessionID)
	}
}

func (r *Router) callToolSchema(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	upstreamName, _ := args["upstream"].(string)
	tool, _ := args["tool"].(string)
	if upstreamName == "" || tool == "" {
		return nil, mcperr.New(mcperr.KindInvalidParams, "%s requires 'upstream' and 'tool'", lazyload.MetaToolSchema)
	}
	schema, err := r.Orchestrator.ToolSchema(ctx, upstreamName, tool)
	if err != nil {
		return nil, err
	}
	return toolToCallResult(schema), nil
}

func (r *Router) callToolInvoke(ctx context.Context, session *InboundSession, args map[string]any) (*mcp.CallToolResult, error) {
	upstreamName, _ := args["upstream"].(string)
	tool, _ := args["tool"].(string)
	if upstreamName == "" || tool == "" {
		return nil, mcperr.New(mcperr.KindInvalidParams, "%s requires 'upstream' and 'tool'", lazyload.MetaToolInvoke)
	}
	if !r.visibleUpstream(session, upstreamName) {
		return nil, mcperr.New(mcperr.KindNotFound, "upstream %q is not visible to this session", upstreamName)
	}
	if r.Denylist.Blocks(tool) {
		return nil, mcperr.New(mcperr.KindPermissionDenied, "tool %q is blocked by the destructive-tools denylist; pass --yolo to allow it", tool)
	}
	toolArgs, _ := args["arguments"].(map[string]any)
	return r.Orchestrator.ToolInvoke(ctx, upstreamName, tool, toolArgs)
}

func toolToCallResult(tool *mcp.Tool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: tool.Description},
		},
	}
}

// ListResources returns one page of namespaced resources visible to
// session.
func (r *Router) ListResources(ctx context.Context, session *InboundSession, cursor string) ([]mcp.Resource, string, error) {
	all := r.Index.Resources()

	var visible []IndexedResource
	for _, res := range all {
		if r.visibleUpstream(session, res.Upstream) {
			visible = append(visible, res)
		}
	}

	page, next, err := paginate(visible, func(r IndexedResource) string { return r.Upstream }, cursor, r.PageSize)
	if err != nil {
		return nil, "", err
	}

	resources := make([]mcp.Resource, len(page))
	for i, res := range page {
		out := res.Resource
		out.URI = res.NamespacedURI()
		resources[i] = out
	}
	return resources, next, nil
}

// ReadResource dispatches a namespaced resource read to its upstream.
func (r *Router) ReadResource(ctx context.Context, session *InboundSession, namespacedURI string) (*mcp.ReadResourceResult, error) {
	upstreamName, uri, err := namespace.Decode(namespacedURI)
	if err != nil {
		return nil, err
	}
	if !r.visibleUpstream(session, upstreamName) {
		return nil, mcperr.New(mcperr.KindNotFound, "resource %q is not visible to this session", namespacedURI)
	}
	r.bindSession(upstreamName, session.ID)
	return upstream.Invoke(ctx, r.Manager, upstreamName, func(cl transport.Client) (*mcp.ReadResourceResult, error) {
		return cl.ReadResource(ctx, uri)
	})
}

// ListPrompts returns one page of namespaced prompts visible to session.
func (r *Router) ListPrompts(ctx context.Context, session *InboundSession, cursor string) ([]mcp.Prompt, string, error) {
	all := r.Index.Prompts()

	var visible []IndexedPrompt
	for _, p := range all {
		if r.visibleUpstream(session, p.Upstream) {
			visible = append(visible, p)
		}
	}

	page, next, err := paginate(visible, func(p IndexedPrompt) string { return p.Upstream }, cursor, r.PageSize)
	if err != nil {
		return nil, "", err
	}

	prompts := make([]mcp.Prompt, len(page))
	for i, p := range page {
		out := p.Prompt
		out.Name = p.NamespacedName()
		prompts[i] = out
	}
	return prompts, next, nil
}

// GetPrompt dispatches a namespaced prompt request to its upstream.
func (r *Router) GetPrompt(ctx context.Context, session *InboundSession, namespacedName string, args map[string]string) (*mcp.GetPromptResult, error) {
	upstreamName, name, err := namespace.Decode(namespacedName)
	if err != nil {
		return nil, err
	}
	if !r.visibleUpstream(session, upstreamName) {
		return nil, mcperr.New(mcperr.KindNotFound, "prompt %q is not visible to this session", namespacedName)
	}
	r.bindSession(upstreamName, session.ID)
	return upstream.Invoke(ctx, r.Manager, upstreamName, func(cl transport.Client) (*mcp.GetPromptResult, error) {
		return cl.GetPrompt(ctx, name, args)
	})
}
