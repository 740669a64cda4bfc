package upstream

import (
	"context"
	"sync"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"mcpmux/internal/transport"
)

// PingAll fans a ping out to every connected upstream, best-effort and in
// parallel, the same isolated-failure shape as CreateAll: one upstream
// timing out never blocks or fails the others. The returned map only
// carries entries for upstreams that were actually pinged; a disconnected
// or disabled upstream is silently skipped rather than reported as a
// failure, since it has nothing to answer with.
func (m *Manager) PingAll(ctx context.Context) map[string]error {
	conns := m.Snapshot()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]error, len(conns))
	)
	for name, c := range conns {
		if c.Status() != StatusConnected {
			continue
		}
		cl := c.Client()
		if cl == nil {
			continue
		}
		wg.Add(1)
		go func(name string, cl transport.Client) {
			defer wg.Done()
			err := cl.Ping(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, cl)
	}
	wg.Wait()

	return results
}

// SetLoggingLevelAll fans logging/setLevel out to every connected upstream
// that advertised the logging capability, skipping the rest the same way
// CapabilityIndex.Rebuild skips a list call the upstream never advertised.
func (m *Manager) SetLoggingLevelAll(ctx context.Context, level gomcp.LoggingLevel) map[string]error {
	conns := m.Snapshot()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]error, len(conns))
	)
	for name, c := range conns {
		if c.Status() != StatusConnected {
			continue
		}
		if c.Capabilities().Logging == nil {
			continue
		}
		cl := c.Client()
		if cl == nil {
			continue
		}
		wg.Add(1)
		go func(name string, cl transport.Client) {
			defer wg.Done()
			err := cl.SetLevel(ctx, level)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, cl)
	}
	wg.Wait()

	return results
}
