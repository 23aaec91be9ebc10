package cache

import (
	"sync"
	"time"
)

// Cache is the read cache used for account projections and client reads.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration, tags ...string)
	Delete(key string)
	InvalidateTag(tag string)
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
	tags      []string
}

// TTLCache stores values in memory with per-entry TTLs. Entries may carry
// tags; invalidating a tag drops every entry that carries it.
type TTLCache[V any] struct {
	mu    sync.RWMutex
	items map[string]cacheEntry[V]
	byTag map[string]map[string]struct{}
	now   func() time.Time
}

func NewTTLCache[V any]() *TTLCache[V] {
	return &TTLCache[V]{
		items: make(map[string]cacheEntry[V]),
		byTag: make(map[string]map[string]struct{}),
		now:   time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.Delete(key)
		return zero, false
	}
	return entry.value, true
}

// Set stores a value with the provided TTL. A ttl of zero never expires.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration, tags ...string) {
	if c == nil {
		return
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	c.items[key] = cacheEntry[V]{value: value, expiresAt: expiresAt, tags: tags}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Delete removes a cached entry.
func (c *TTLCache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.removeLocked(key)
	c.mu.Unlock()
}

// InvalidateTag removes every entry carrying tag.
func (c *TTLCache[V]) InvalidateTag(tag string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.byTag[tag] {
		c.removeLocked(key)
	}
	delete(c.byTag, tag)
}

// Len reports the number of stored entries, expired ones included.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TTLCache[V]) removeLocked(key string) {
	entry, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	for _, tag := range entry.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}

// NoopCache always misses and ignores writes.
type NoopCache[V any] struct{}

func (NoopCache[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (NoopCache[V]) Set(string, V, time.Duration, ...string) {}

func (NoopCache[V]) Delete(string) {}

func (NoopCache[V]) InvalidateTag(string) {}
