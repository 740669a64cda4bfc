// Package inboundserver wires the inbound session router onto the
// mark3labs/mcp-go server machinery: stdio, streamable HTTP and the
// deprecated SSE transport, per spec §6.
package inboundserver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"mcpmux/internal/lazyload"
	"mcpmux/internal/router"
	"mcpmux/pkg/mcperr"
)

// defaultSessionID is used for stdio, which is inherently single-client:
// there is no per-connection MCP session id to key a router.InboundSession
// on, so every call on stdin/stdout shares one session.
const defaultSessionID = "default-session"

// Server adapts a *router.Router onto mcp-go's transport-level servers. The
// registered tool/resource/prompt set mirrors the Capability Index as a
// whole; per-session narrowing happens two ways: WithToolFilter rebuilds the
// tools/list response per caller from Router.ListTools, and every handler
// re-checks visibility/denylist against the calling session before
// dispatching, so a hidden or blocked capability is refused even if it's
// still globally registered.
type Server struct {
	Router  *router.Router
	Name    string
	Version string

	mcp *mcpserver.MCPServer

	mu              sync.Mutex
	registeredTools map[string]bool
	registeredRes   map[string]bool
	registeredProm  map[string]bool
}

// NewServer builds the mcp-go server and wires listChanged delivery and the
// session-scoped tool filter onto rt.
func NewServer(rt *router.Router, name, version string) *Server {
	s := &Server{
		Router:          rt,
		Name:            name,
		Version:         version,
		registeredTools: make(map[string]bool),
		registeredRes:   make(map[string]bool),
		registeredProm:  make(map[string]bool),
	}

	hooks := &mcpserver.Hooks{}
	hooks.AddAfterAny(s.afterAnyHook)

	s.mcp = mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithToolFilter(s.sessionToolFilter),
		mcpserver.WithHooks(hooks),
	)

	rt.Notifier().Send = func(sessionID, method string) error {
		return s.mcp.SendNotificationToSpecificClient(sessionID, method, nil)
	}

	return s
}

// afterAnyHook runs once mcp-go has already produced its own response to
// the inbound client for any request; it only reacts to the two methods
// that need a side effect fanned out to the upstreams, ping and
// logging/setLevel, ignoring everything else. Both fan-outs are
// best-effort: a failing upstream is recorded by the Manager's own
// connection bookkeeping, not surfaced back through this hook.
func (s *Server) afterAnyHook(ctx context.Context, _ any, method mcp.MCPMethod, message any, _ any) {
	switch string(method) {
	case "ping":
		s.Router.Ping(ctx)
	case "logging/setLevel":
		if req, ok := message.(*mcp.SetLevelRequest); ok {
			s.Router.SetLoggingLevel(ctx, req.Params.Level)
		}
	}
}

func sessionIDFromContext(ctx context.Context) string {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	return defaultSessionID
}

// resolveSession returns the calling session, applying whatever predicate
// queryFilterMiddleware stashed in ctx for this request.
func (s *Server) resolveSession(ctx context.Context) *router.InboundSession {
	session := s.Router.Session(sessionIDFromContext(ctx))
	if resolved, ok := ctx.Value(pendingPredicateKey{}).(resolvedFilter); ok {
		s.Router.ApplySessionFilter(session, resolved.PresetName, resolved.Predicate)
	}
	return session
}

// sessionToolFilter is the mcp-go WithToolFilter callback: it ignores the
// globally-registered list it's handed and recomputes the response from
// Router.ListTools for the calling session, folding in the lazy-loading
// meta-tools when the orchestrator isn't in full mode (spec §4.4).
//
// This returns only the first page of Router.ListTools; tools past that page
// are not listed here. The meta-tools take no cursor, and tool_list sent
// through tools/call is rejected by Router.CallTool.
func (s *Server) sessionToolFilter(ctx context.Context, _ []mcp.Tool) []mcp.Tool {
	session := s.resolveSession(ctx)
	tools, _, err := s.Router.ListTools(ctx, session, "")
	if err != nil {
		return nil
	}
	return tools
}

// Sync diffs the Capability Index (plus meta-tools) against what's
// currently registered with the mcp-go server and adds/removes the delta,
// mirroring the teacher's addNewItems/removeItems batch pattern. Call after
// Router.RebuildIndex.
func (s *Server) Sync(ctx context.Context) {
	s.syncTools()
	s.syncResources()
	s.syncPrompts()
}

func (s *Server) syncTools() {
	wantTools := s.Router.Index.Tools()
	want := make(map[string]mcp.Tool, len(wantTools)+3)
	for _, t := range wantTools {
		tool := t.Tool
		tool.Name = t.NamespacedName()
		want[tool.Name] = tool
	}
	if s.Router.Orchestrator != nil && s.Router.Orchestrator.Mode != lazyload.ModeFull {
		for _, t := range lazyload.MetaTools() {
			want[t.Name] = t
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var toAdd []mcpserver.ServerTool
	for name, tool := range want {
		if s.registeredTools[name] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerTool{Tool: tool, Handler: s.toolHandler(name)})
	}
	var toRemove []string
	for name := range s.registeredTools {
		if _, ok := want[name]; !ok {
			toRemove = append(toRemove, name)
		}
	}

	if len(toAdd) > 0 {
		s.mcp.AddTools(toAdd...)
		for _, st := range toAdd {
			s.registeredTools[st.Tool.Name] = true
		}
	}
	if len(toRemove) > 0 {
		s.mcp.DeleteTools(toRemove...)
		for _, name := range toRemove {
			delete(s.registeredTools, name)
		}
	}
}

func (s *Server) syncResources() {
	wantResources := s.Router.Index.Resources()
	want := make(map[string]mcp.Resource, len(wantResources))
	for _, r := range wantResources {
		res := r.Resource
		res.URI = r.NamespacedURI()
		want[res.URI] = res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var toAdd []mcpserver.ServerResource
	for uri, res := range want {
		if s.registeredRes[uri] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerResource{Resource: res, Handler: s.resourceHandler(uri)})
	}
	var toRemove []string
	for uri := range s.registeredRes {
		if _, ok := want[uri]; !ok {
			toRemove = append(toRemove, uri)
		}
	}

	if len(toAdd) > 0 {
		s.mcp.AddResources(toAdd...)
		for _, sr := range toAdd {
			s.registeredRes[sr.Resource.URI] = true
		}
	}
	for _, uri := range toRemove {
		s.mcp.RemoveResource(uri)
		delete(s.registeredRes, uri)
	}
}

func (s *Server) syncPrompts() {
	wantPrompts := s.Router.Index.Prompts()
	want := make(map[string]mcp.Prompt, len(wantPrompts))
	for _, p := range wantPrompts {
		prompt := p.Prompt
		prompt.Name = p.NamespacedName()
		want[prompt.Name] = prompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var toAdd []mcpserver.ServerPrompt
	for name, prompt := range want {
		if s.registeredProm[name] {
			continue
		}
		toAdd = append(toAdd, mcpserver.ServerPrompt{Prompt: prompt, Handler: s.promptHandler(name)})
	}
	var toRemove []string
	for name := range s.registeredProm {
		if _, ok := want[name]; !ok {
			toRemove = append(toRemove, name)
		}
	}

	if len(toAdd) > 0 {
		s.mcp.AddPrompts(toAdd...)
		for _, sp := range toAdd {
			s.registeredProm[sp.Prompt.Name] = true
		}
	}
	if len(toRemove) > 0 {
		s.mcp.DeletePrompts(toRemove...)
		for _, name := range toRemove {
			delete(s.registeredProm, name)
		}
	}
}

func (s *Server) toolHandler(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session := s.resolveSession(ctx)
		args, _ := req.Params.Arguments.(map[string]any)
		result, err := s.Router.CallTool(ctx, session, name, args)
		if err != nil {
			return nil, asProtocolError(err)
		}
		return result, nil
	}
}

func (s *Server) resourceHandler(uri string) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		session := s.resolveSession(ctx)
		result, err := s.Router.ReadResource(ctx, session, uri)
		if err != nil {
			return nil, asProtocolError(err)
		}
		return result.Contents, nil
	}
}

func (s *Server) promptHandler(name string) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		session := s.resolveSession(ctx)
		result, err := s.Router.GetPrompt(ctx, session, name, req.Params.Arguments)
		if err != nil {
			return nil, asProtocolError(err)
		}
		return result, nil
	}
}

// asProtocolError turns an *mcperr.Error into a plain error carrying its
// message; mcp-go surfaces a tool/resource/prompt handler's returned error
// as the JSON-RPC error text, so the Kind taxonomy's HTTP/JSON-RPC code
// mapping is only exercised directly at the HTTP query-param boundary
// (queryfilter.go), not here.
func asProtocolError(err error) error {
	if e, ok := err.(*mcperr.Error); ok {
		return fmt.Errorf("%s", e.Error())
	}
	return err
}

// StdioListen serves one stdio client on stdin/stdout until ctx is
// cancelled, the teacher's single-user fallback transport.
func (s *Server) StdioListen(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StreamableHTTPHandler returns the /mcp POST/GET/DELETE handler (spec §6's
// default transport, session id carried in the MCP-Session-Id header).
func (s *Server) StreamableHTTPHandler() http.Handler {
	return s.queryFilterMiddleware(mcpserver.NewStreamableHTTPServer(s.mcp))
}

// SSEHandler returns the deprecated /sse + /messages transport, retained for
// compatibility per spec §6.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	sse := mcpserver.NewSSEServer(
		s.mcp,
		mcpserver.WithBaseURL(baseURL),
		mcpserver.WithSSEEndpoint("/sse"),
		mcpserver.WithMessageEndpoint("/messages"),
	)
	return s.queryFilterMiddleware(sse)
}
