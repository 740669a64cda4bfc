package upstream

import (
	"context"
	"sync"
	"time"

	"mcpmux/internal/configwatch"
	"mcpmux/pkg/logging"
)

// Reload computes a three-way diff against the currently active descriptors
// and applies it: removed connections are closed through closeGracefully,
// added ones are created and connected, and modified ones either recreate
// their transport or mutate metadata in place depending on
// ModifiedEntry.TransportChanged (spec §4.1/§4.6). Reload is serialized —
// only one reload runs at a time (spec §5) — and is safe to call
// concurrently; callers block until their diff is applied.
func (m *Manager) Reload(ctx context.Context, newDescriptors map[string]configwatch.UpstreamDescriptor) configwatch.Diff {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	oldDescriptors := make(map[string]configwatch.UpstreamDescriptor)
	for name, c := range m.Snapshot() {
		oldDescriptors[name] = c.Descriptor
	}

	diff := configwatch.ComputeDiff(&configwatch.Config{Servers: oldDescriptors}, &configwatch.Config{Servers: newDescriptors})
	if diff.Empty() {
		return diff
	}

	m.registerOAuthProviders(newDescriptors)

	var wg sync.WaitGroup

	for _, d := range diff.Removed {
		c, err := m.Get(d.Name)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			m.closeGracefully(c)
		}(c)
	}

	for _, d := range diff.Added {
		c := newConnection(d)
		m.mu.Lock()
		m.connections[d.Name] = c
		m.mu.Unlock()
		if c.Status() == StatusDisabled {
			continue
		}
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			m.connectWithRetry(ctx, c)
		}(c)
	}

	for _, entry := range diff.Modified {
		entry := entry
		c, err := m.Get(entry.Name)
		if err != nil {
			continue
		}
		if !entry.TransportChanged {
			wasDisabled := entry.Old.Disabled
			c.mu.Lock()
			c.Descriptor = entry.New
			c.mu.Unlock()

			switch {
			case !wasDisabled && entry.New.Disabled:
				wg.Add(1)
				go func(c *Connection) {
					defer wg.Done()
					m.closeGracefully(c)
					c.setStatus(StatusDisabled)
				}(c)
			case wasDisabled && !entry.New.Disabled:
				c.setStatus(StatusDisconnected)
				wg.Add(1)
				go func(c *Connection) {
					defer wg.Done()
					m.connectWithRetry(ctx, c)
				}(c)
			}
			continue
		}
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			m.closeGracefully(c)
			c.mu.Lock()
			c.Descriptor = entry.New
			c.status = StatusDisconnected
			if entry.New.Disabled {
				c.status = StatusDisabled
			}
			c.mu.Unlock()
			if !entry.New.Disabled {
				m.connectWithRetry(ctx, c)
			}
		}(c)
	}

	wg.Wait()

	for _, d := range diff.Removed {
		m.mu.Lock()
		delete(m.connections, d.Name)
		m.mu.Unlock()
	}

	logging.Info("upstream", "reload applied: %d added, %d removed, %d modified", len(diff.Added), len(diff.Removed), len(diff.Modified))
	return diff
}

// closeGracefully calls Close on the transport and waits up to
// GracefulCloseTimeout for it to return (spec §4.1). In-flight requests are
// not tracked or drained first, and there is no separate forced close: past
// the timeout the Close call is left running in the background. Either way
// the connection is marked Disconnected.
func (m *Manager) closeGracefully(c *Connection) {
	cl := c.Client()
	if cl == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = cl.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(m.GracefulCloseTimeout):
		logging.Warn("upstream", "%q: graceful close timed out, not waiting further", c.Name)
	}
	c.setStatus(StatusDisconnected)
}
