package transport

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	gomcp "github.com/mark3labs/mcp-go/mcp"

	"mcpmux/pkg/logging"
)

// base holds the state and callback registries shared by every transport
// adapter, mirroring the shared-helper pattern used for the three transport
// client types this package replaces.
type base struct {
	mu         sync.RWMutex
	underlying client.MCPClient
	connected  bool

	onClose []func()
	onError []func(error)

	// rootsListHandler/samplingHandler/elicitationHandler hold this
	// connection's answer to a reverse request sent by the upstream
	// (roots/list, sampling/createMessage, elicitation/create). client.
	// MCPClient, the interface underlying satisfies, has no method to wire
	// these into the live request dispatch for any of the three transports
	// it backs, so until a construction path exposes that hook, a value
	// stored here is reachable (SetXHandler is real, called from Manager.
	// Relay.wireInto) but not yet invoked by an actual incoming request.
	rootsListHandler   func(ctx context.Context) ([]gomcp.Root, error)
	samplingHandler    func(ctx context.Context, req gomcp.CreateMessageRequest) (*gomcp.CreateMessageResult, error)
	elicitationHandler func(ctx context.Context, req gomcp.ElicitRequest) (*gomcp.ElicitResult, error)
}

func (b *base) SetRootsListHandler(handler func(ctx context.Context) ([]gomcp.Root, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rootsListHandler = handler
}

func (b *base) SetSamplingHandler(handler func(ctx context.Context, req gomcp.CreateMessageRequest) (*gomcp.CreateMessageResult, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samplingHandler = handler
}

func (b *base) SetElicitationHandler(handler func(ctx context.Context, req gomcp.ElicitRequest) (*gomcp.ElicitResult, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elicitationHandler = handler
}

func (b *base) OnClose(cb func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onClose = append(b.onClose, cb)
}

func (b *base) OnError(cb func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = append(b.onError, cb)
}

func (b *base) fireError(err error) error {
	if err == nil {
		return nil
	}
	b.mu.RLock()
	cbs := append([]func(error){}, b.onError...)
	b.mu.RUnlock()
	for _, cb := range cbs {
		cb(err)
	}
	return err
}

func (b *base) fireClose() {
	b.mu.RLock()
	cbs := append([]func(){}, b.onClose...)
	b.mu.RUnlock()
	for _, cb := range cbs {
		cb()
	}
}

func (b *base) checkConnected() error {
	if !b.connected || b.underlying == nil {
		return errNotConnected
	}
	return nil
}

var errNotConnected = &notConnectedError{}

type notConnectedError struct{}

func (*notConnectedError) Error() string { return "transport: not connected" }

func (b *base) close(subsystem string) error {
	b.mu.Lock()
	c := b.underlying
	wasConnected := b.connected
	b.connected = false
	b.underlying = nil
	b.mu.Unlock()

	if !wasConnected || c == nil {
		return nil
	}
	err := c.Close()
	if err != nil {
		logging.Warn(subsystem, "error closing underlying client: %v", err)
	}
	b.fireClose()
	return err
}

func (b *base) listTools(ctx context.Context) ([]gomcp.Tool, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	res, err := c.ListTools(ctx, gomcp.ListToolsRequest{})
	if err != nil {
		return nil, b.fireError(err)
	}
	return res.Tools, nil
}

func (b *base) callTool(ctx context.Context, name string, args map[string]any) (*gomcp.CallToolResult, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	req := gomcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, b.fireError(err)
	}
	return res, nil
}

func (b *base) listResources(ctx context.Context) ([]gomcp.Resource, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	res, err := c.ListResources(ctx, gomcp.ListResourcesRequest{})
	if err != nil {
		return nil, b.fireError(err)
	}
	return res.Resources, nil
}

func (b *base) readResource(ctx context.Context, uri string) (*gomcp.ReadResourceResult, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	req := gomcp.ReadResourceRequest{}
	req.Params.URI = uri
	res, err := c.ReadResource(ctx, req)
	if err != nil {
		return nil, b.fireError(err)
	}
	return res, nil
}

func (b *base) listResourceTemplates(ctx context.Context) ([]gomcp.ResourceTemplate, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	res, err := c.ListResourceTemplates(ctx, gomcp.ListResourceTemplatesRequest{})
	if err != nil {
		return nil, b.fireError(err)
	}
	return res.ResourceTemplates, nil
}

func (b *base) listPrompts(ctx context.Context) ([]gomcp.Prompt, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	res, err := c.ListPrompts(ctx, gomcp.ListPromptsRequest{})
	if err != nil {
		return nil, b.fireError(err)
	}
	return res.Prompts, nil
}

func (b *base) getPrompt(ctx context.Context, name string, args map[string]string) (*gomcp.GetPromptResult, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	req := gomcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.GetPrompt(ctx, req)
	if err != nil {
		return nil, b.fireError(err)
	}
	return res, nil
}

func (b *base) subscribe(ctx context.Context, uri string) error {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	req := gomcp.SubscribeRequest{}
	req.Params.URI = uri
	if err := c.Subscribe(ctx, req); err != nil {
		return b.fireError(err)
	}
	return nil
}

func (b *base) unsubscribe(ctx context.Context, uri string) error {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	req := gomcp.UnsubscribeRequest{}
	req.Params.URI = uri
	if err := c.Unsubscribe(ctx, req); err != nil {
		return b.fireError(err)
	}
	return nil
}

func (b *base) complete(ctx context.Context, ref gomcp.Reference, arg gomcp.CompleteArgument) (*gomcp.CompleteResult, error) {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	req := gomcp.CompleteRequest{}
	req.Params.Ref = ref
	req.Params.Argument = arg
	res, err := c.Complete(ctx, req)
	if err != nil {
		return nil, b.fireError(err)
	}
	return res, nil
}

func (b *base) setLevel(ctx context.Context, level gomcp.LoggingLevel) error {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	req := gomcp.SetLevelRequest{}
	req.Params.Level = level
	if err := c.SetLevel(ctx, req); err != nil {
		return b.fireError(err)
	}
	return nil
}

func (b *base) ping(ctx context.Context) error {
	b.mu.RLock()
	c := b.underlying
	err := b.checkConnected()
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := c.Ping(ctx); err != nil {
		return b.fireError(err)
	}
	return nil
}
