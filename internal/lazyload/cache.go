package lazyload

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// CacheKey identifies a schema cache entry.
type CacheKey struct {
	Upstream string
	Tool     string
}

// Loader fetches a tool's schema from its upstream on a cache miss.
type Loader func(ctx context.Context) (*mcp.Tool, error)

// Stats are the SchemaCache's running counters (spec §4.4).
type Stats struct {
	Hits      int64
	Misses    int64
	Coalesced int64
	Evictions int64
}

type cacheEntry struct {
	key       CacheKey
	schema    *mcp.Tool
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type inflight struct {
	done   chan struct{}
	schema *mcp.Tool
	err    error
}

// SchemaCache is an LRU cache of per-(upstream, tool) schemas, capped at
// maxEntries with an optional TTL, and with at most one loader in flight per
// key (spec §4.4's get_or_load invariant).
type SchemaCache struct {
	maxEntries int
	ttl        time.Duration

	mu       sync.Mutex
	order    *list.List
	elements map[CacheKey]*list.Element
	inflight map[CacheKey]*inflight

	hits, misses, coalesced, evictions int64
}

// NewSchemaCache builds a cache capped at maxEntries (0 means unbounded)
// with entries expiring ttl after insertion (0 means no expiry).
func NewSchemaCache(maxEntries int, ttl time.Duration) *SchemaCache {
	return &SchemaCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		order:      list.New(),
		elements:   make(map[CacheKey]*list.Element),
		inflight:   make(map[CacheKey]*inflight),
	}
}

// GetOrLoad returns the cached schema for (upstream, tool), loading it via
// loader on a miss. Concurrent calls for the same key while a load is in
// flight attach to that load rather than starting a second one.
func (c *SchemaCache) GetOrLoad(ctx context.Context, upstream, tool string, loader Loader) (*mcp.Tool, error) {
	key := CacheKey{Upstream: upstream, Tool: tool}

	c.mu.Lock()
	if el, ok := c.elements[key]; ok {
		entry := el.Value.(*cacheEntry)
		if !entry.expired(time.Now()) {
			c.order.MoveToFront(el)
			atomic.AddInt64(&c.hits, 1)
			c.mu.Unlock()
			return entry.schema, nil
		}
		c.removeLocked(key)
	}

	if inf, ok := c.inflight[key]; ok {
		atomic.AddInt64(&c.coalesced, 1)
		c.mu.Unlock()
		<-inf.done
		return inf.schema, inf.err
	}

	inf := &inflight{done: make(chan struct{})}
	c.inflight[key] = inf
	atomic.AddInt64(&c.misses, 1)
	c.mu.Unlock()

	schema, err := loader(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		c.insertLocked(key, schema)
	}
	c.mu.Unlock()

	inf.schema, inf.err = schema, err
	close(inf.done)

	return schema, err
}

// Set installs a schema directly, bypassing the loader path.
func (c *SchemaCache) Set(upstream, tool string, schema *mcp.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(CacheKey{Upstream: upstream, Tool: tool}, schema)
}

// GetIfCached returns a schema only if already present and unexpired,
// without triggering a load.
func (c *SchemaCache) GetIfCached(upstream, tool string) (*mcp.Tool, bool) {
	key := CacheKey{Upstream: upstream, Tool: tool}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elements[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if entry.expired(time.Now()) {
		c.removeLocked(key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.schema, true
}

// Invalidate drops cached entries for a given upstream, or every entry if
// upstream is empty.
func (c *SchemaCache) Invalidate(upstream string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if upstream == "" {
		c.order = list.New()
		c.elements = make(map[CacheKey]*list.Element)
		return
	}
	for key := range c.elements {
		if key.Upstream == upstream {
			c.removeLocked(key)
		}
	}
}

// Stats returns a snapshot of the cache's running counters.
func (c *SchemaCache) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Coalesced: atomic.LoadInt64(&c.coalesced),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

func (c *SchemaCache) insertLocked(key CacheKey, schema *mcp.Tool) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if el, ok := c.elements[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.schema = schema
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, schema: schema, expiresAt: expiresAt})
	c.elements[key] = el

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		back := c.order.Back()
		if back != nil {
			c.removeElementLocked(back)
			atomic.AddInt64(&c.evictions, 1)
		}
	}
}

func (c *SchemaCache) removeLocked(key CacheKey) {
	if el, ok := c.elements[key]; ok {
		c.removeElementLocked(el)
	}
}

func (c *SchemaCache) removeElementLocked(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.elements, entry.key)
}
