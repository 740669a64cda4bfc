package upstream

import (
	"context"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/transport"
	"mcpmux/pkg/logging"
	"mcpmux/pkg/mcperr"
	"mcpmux/pkg/oauth"
)

// Invoke is the single dispatch path every inbound request forwards a
// call to an upstream's transport through: it enforces the upstream's
// configured request deadline (spec §4.1/§5, mapped to KindTimeout), and
// for http/sse upstreams wired to a CredentialProvider, transparently
// refreshes credentials and recreates the connection on a 401 before
// retrying fn exactly once (spec §4.1's OAuth pause/refresh/recreate).
func Invoke[T any](ctx context.Context, m *Manager, name string, fn func(transport.Client) (T, error)) (T, error) {
	var zero T

	c, err := m.Get(name)
	if err != nil {
		return zero, err
	}

	result, err := invokeOnce(ctx, c, fn)
	if err == nil || !oauth.Is401Error(err) {
		return result, err
	}
	if m.Refresher == nil {
		return result, err
	}
	if c.Descriptor.Type != configwatch.TransportHTTP && c.Descriptor.Type != configwatch.TransportSSE {
		return result, err
	}

	if rerr := m.refreshAndRecreate(ctx, c); rerr != nil {
		logging.Warn("upstream", "%q: credential refresh after 401 failed: %v", name, rerr)
		return result, err
	}
	return invokeOnce(ctx, c, fn)
}

func invokeOnce[T any](ctx context.Context, c *Connection, fn func(transport.Client) (T, error)) (T, error) {
	var zero T

	// Wait out any credential refresh in progress on this connection.
	c.refreshMu.Lock()
	c.refreshMu.Unlock()

	cl := c.Client()
	if cl == nil {
		return zero, mcperr.New(mcperr.KindDisconnected, "upstream %q is not connected", c.Name)
	}

	callCtx := ctx
	if d := c.Descriptor.EffectiveTimeout(); d > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		val, err := fn(cl)
		ch <- outcome{val, err}
	}()

	select {
	case <-callCtx.Done():
		return zero, mcperr.New(mcperr.KindTimeout, "upstream %q: request deadline exceeded", c.Name)
	case out := <-ch:
		return out.val, out.err
	}
}

// refreshAndRecreate pauses outgoing requests on c (by holding refreshMu for
// the duration), refreshes its OAuth credentials, and recreates its
// transport carrying the new headers. Concurrent 401s on the same
// connection coalesce onto one recreation (spec §4.1).
func (m *Manager) refreshAndRecreate(ctx context.Context, c *Connection) error {
	stale := c.Client()
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if cur := c.Client(); cur != nil && cur != stale {
		// Another 401 on this connection already recreated it.
		return nil
	}

	headers, err := m.Refresher.Refresh(ctx, c.Name)
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		return mcperr.New(mcperr.KindAuthFailed, "upstream %q: no refreshed credentials available", c.Name)
	}

	if cl := c.Client(); cl != nil {
		_ = cl.Close()
	}
	c.updateHeaders(headers)
	m.connectWithRetry(ctx, c)
	if c.Status() != StatusConnected {
		return mcperr.Wrap(mcperr.KindAuthFailed, c.LastError(), "upstream %q: reconnect after credential refresh failed", c.Name)
	}
	return nil
}
