package upstream

import (
	"sync"
	"time"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/transport"
)

// Status is a Connection's lifecycle state. Transitions are monotonic for a
// given attempt: Disconnected -> Connecting -> {Connected | Error} (spec §3).
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Connection is the runtime counterpart of an UpstreamDescriptor (spec §3).
type Connection struct {
	mu sync.RWMutex

	Name       string
	Descriptor configwatch.UpstreamDescriptor

	status          Status
	lastError       error
	protocolVersion string
	capabilities    gomcp.ServerCapabilities

	client transport.Client

	restartCount  int
	restartWindow time.Time

	// refreshMu serializes OAuth-401 recreation attempts for this
	// connection, so concurrent 401s coalesce onto one recreation (spec
	// §4.1 "exactly one recreation in flight").
	refreshMu sync.Mutex

	// boundSession is the inbound session id of the most recent caller to
	// dispatch a request at this upstream. A reverse request the upstream
	// sends back (roots/list, sampling/createMessage, elicitation/create)
	// has no session of its own to address, so it is routed to whichever
	// inbound session most recently exercised this connection.
	boundSession string
}

// BindSession records id as the most recent caller to dispatch a request
// at this connection.
func (c *Connection) BindSession(id string) {
	c.mu.Lock()
	c.boundSession = id
	c.mu.Unlock()
}

// BoundSession returns the inbound session id a reverse request on this
// connection should be routed to, or "" if no request has dispatched here
// yet.
func (c *Connection) BoundSession() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boundSession
}

func newConnection(d configwatch.UpstreamDescriptor) *Connection {
	status := StatusDisconnected
	if d.Disabled {
		status = StatusDisabled
	}
	return &Connection{Name: d.Name, Descriptor: d, status: status}
}

// Status returns the connection's current lifecycle state.
func (c *Connection) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// LastError returns the error from the most recent failed attempt, if any.
func (c *Connection) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Capabilities returns the upstream's advertised server capabilities,
// captured at handshake time (spec §4.1's "capability capture").
func (c *Connection) Capabilities() gomcp.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capabilities
}

// Client returns the transport client for dispatching requests, or nil if
// not currently connected.
func (c *Connection) Client() transport.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status != StatusConnected {
		return nil
	}
	return c.client
}

func (c *Connection) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Connection) setError(err error) {
	c.mu.Lock()
	c.status = StatusError
	c.lastError = err
	c.mu.Unlock()
}

// updateHeaders merges refreshed credential headers into the connection's
// descriptor ahead of a transport recreation.
func (c *Connection) updateHeaders(headers map[string]string) {
	c.mu.Lock()
	if c.Descriptor.Headers == nil {
		c.Descriptor.Headers = make(map[string]string, len(headers))
	}
	for k, v := range headers {
		c.Descriptor.Headers[k] = v
	}
	c.mu.Unlock()
}

func (c *Connection) setConnected(cl transport.Client, result *gomcp.InitializeResult) {
	c.mu.Lock()
	c.status = StatusConnected
	c.client = cl
	c.lastError = nil
	if result != nil {
		c.protocolVersion = result.ProtocolVersion
		c.capabilities = result.Capabilities
	}
	c.mu.Unlock()
}
