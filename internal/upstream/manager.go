package upstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/rendertemplate"
	"mcpmux/internal/transport"
	"mcpmux/pkg/logging"
	"mcpmux/pkg/mcperr"
	"mcpmux/pkg/oauth"
)

const (
	maxConnectAttempts = 3
	initialRetryDelay  = 1 * time.Second
	retryBackoffFactor = 2

	defaultGracefulCloseTimeout = 5 * time.Second
)

// Manager is the upstream connection manager (spec §4.1). SelfName is this
// aggregator's own serverInfo.name, used to reject a self-referential
// upstream as CircularDependency.
type Manager struct {
	SelfName             string
	GracefulCloseTimeout time.Duration

	// Refresher drives the http/sse OAuth-401 pause/refresh/recreate cycle
	// (spec §4.1). Upstreams without an OAuthProvider reference simply get
	// no registered token source, so Refresh is a no-op for them.
	Refresher *OAuthRefresher

	// Relay answers the reverse requests an upstream sends back to this
	// aggregator (roots/list, sampling/createMessage, elicitation/create),
	// routed to whichever inbound session most recently dispatched a
	// request at the asking connection. Nil fields leave that request type
	// unanswered. Set once by the inbound server at startup.
	Relay RelayHandlers

	mu          sync.RWMutex
	connections map[string]*Connection
	reloadMu    sync.Mutex
}

// NewManager constructs an empty Manager.
func NewManager(selfName string) *Manager {
	return &Manager{
		SelfName:             selfName,
		GracefulCloseTimeout: defaultGracefulCloseTimeout,
		Refresher:            NewOAuthRefresher(oauth.NewClient()),
		connections:          make(map[string]*Connection),
	}
}

// registerOAuthProviders registers every descriptor's OAuthProvider
// reference, if any, with the manager's refresher, so a later 401 on that
// upstream knows what to refresh.
func (m *Manager) registerOAuthProviders(descriptors map[string]configwatch.UpstreamDescriptor) {
	for name, d := range descriptors {
		if d.OAuthProvider == nil {
			continue
		}
		m.Refresher.Register(name, TokenSource{
			Issuer:        d.OAuthProvider.Issuer,
			TokenEndpoint: d.OAuthProvider.TokenEndpoint,
			ClientID:      d.OAuthProvider.ClientID,
			RefreshToken:  d.OAuthProvider.RefreshToken,
		})
	}
}

// CreateAll synchronously allocates a Connection per descriptor, then
// asynchronously connects each in parallel. An individual upstream's
// failure to connect never prevents the others from succeeding (spec
// §4.1).
func (m *Manager) CreateAll(ctx context.Context, descriptors map[string]configwatch.UpstreamDescriptor) map[string]*Connection {
	m.mu.Lock()
	conns := make(map[string]*Connection, len(descriptors))
	for name, d := range descriptors {
		c := newConnection(d)
		conns[name] = c
	}
	m.connections = conns
	m.mu.Unlock()

	m.registerOAuthProviders(descriptors)

	var wg sync.WaitGroup
	for _, c := range conns {
		if c.Status() == StatusDisabled {
			continue
		}
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			m.connectWithRetry(ctx, c)
		}(c)
	}
	wg.Wait()

	return conns
}

// ConnectTemplate resolves a template descriptor (spec §4.6 "mcpTemplates")
// against a session's render context and returns the shared or per-session
// Connection for it, connecting lazily on first use (spec §9 "Template
// rendering vs. shared connections"). Two sessions whose vars render the
// template identically land on the same connection key and share one
// upstream instance; any difference in the rendered output naturally
// produces a distinct key and a distinct instance.
func (m *Manager) ConnectTemplate(ctx context.Context, base configwatch.UpstreamDescriptor, vars map[string]any) (*Connection, error) {
	rendered, err := rendertemplate.New().Render(base, vars)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.KindConfigInvalid, err, "render template %q", base.Name)
	}

	hash, err := rendertemplate.Hash(rendered)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.KindFatal, err, "hash rendered template %q", base.Name)
	}
	key := fmt.Sprintf("%s:%s", base.Name, hash)
	rendered.Name = key

	m.mu.Lock()
	if c, ok := m.connections[key]; ok {
		m.mu.Unlock()
		return c, nil
	}
	c := newConnection(rendered)
	m.connections[key] = c
	m.mu.Unlock()

	m.connectWithRetry(ctx, c)
	if c.Status() == StatusError {
		return c, c.LastError()
	}
	return c, nil
}

// Get looks up a connection by name.
func (m *Manager) Get(name string) (*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[name]
	if !ok {
		return nil, mcperr.New(mcperr.KindNotFound, "upstream %q is not configured", name)
	}
	return c, nil
}

// Snapshot returns the current set of connections, keyed by name. Callers
// must treat the returned map as read-only.
func (m *Manager) Snapshot() map[string]*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Connection, len(m.connections))
	for k, v := range m.connections {
		out[k] = v
	}
	return out
}

// connectWithRetry performs the initial-connect retry policy: 3 attempts,
// 1s initial delay, exponential backoff x2 (spec §4.1).
func (m *Manager) connectWithRetry(ctx context.Context, c *Connection) {
	c.setStatus(StatusConnecting)

	delay := initialRetryDelay
	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		cl, err := transport.New(c.Descriptor)
		if err != nil {
			lastErr = err
			break
		}

		connectCtx := ctx
		if c.Descriptor.ConnectionTimeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, c.Descriptor.ConnectionTimeout)
			defer cancel()
		}

		result, err := cl.Start(connectCtx)
		if err != nil {
			lastErr = err
			logging.Warn("upstream", "connect attempt %d/%d to %q failed: %v", attempt, maxConnectAttempts, c.Name, err)
			if attempt < maxConnectAttempts {
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				delay *= retryBackoffFactor
			}
			continue
		}

		if result != nil && result.ServerInfo.Name == m.SelfName {
			_ = cl.Close()
			c.setError(mcperr.New(mcperr.KindCircularDependency, "upstream %q advertises this aggregator's own name", c.Name))
			return
		}

		m.wireLifecycleHooks(c, cl)
		c.setConnected(cl, result)
		logging.Info("upstream", "connected to %q", c.Name)
		return
	}

	c.setError(mcperr.Wrap(mcperr.KindDisconnected, lastErr, "failed to connect to %q after %d attempts", c.Name, maxConnectAttempts))
}

// wireLifecycleHooks attaches hooks to a freshly connected client: transport
// errors are logged, the reverse-request relay is wired in, and a close hook
// marks a still-Connected connection Disconnected and respawns a stdio
// upstream that has RestartOnExit set. The close hook runs only when the
// transport is closed through Close. Nothing here forwards stderr.
func (m *Manager) wireLifecycleHooks(c *Connection, cl transport.Client) {
	cl.OnError(func(err error) {
		logging.Warn("upstream", "%q: transport error: %v", c.Name, err)
	})
	m.Relay.wireInto(c, cl)
	cl.OnClose(func() {
		if c.Status() != StatusConnected {
			return
		}
		c.setStatus(StatusDisconnected)
		logging.Warn("upstream", "%q: connection closed", c.Name)
		if c.Descriptor.Type == configwatch.TransportStdio && c.Descriptor.RestartOnExit {
			go m.maybeRestart(c)
		}
	})
}

func (m *Manager) maybeRestart(c *Connection) {
	now := time.Now()
	if now.Sub(c.restartWindow) > time.Minute {
		c.restartCount = 0
		c.restartWindow = now
	}
	if c.Descriptor.MaxRestarts > 0 && c.restartCount >= c.Descriptor.MaxRestarts {
		logging.Warn("upstream", "%q: exceeded maxRestarts (%d), not respawning", c.Name, c.Descriptor.MaxRestarts)
		return
	}
	c.restartCount++
	if c.Descriptor.RestartDelay > 0 {
		time.Sleep(c.Descriptor.RestartDelay)
	}
	m.connectWithRetry(context.Background(), c)
}
