// Package cache provides the explicit, process-scoped lookup caches the
// repositories read through. Nothing here is global: every repository gets
// its own instances through its constructor.
package cache

import "sync"

// ReadThrough is a keyed cache that lives for one process invocation. Entries
// never expire on their own; callers invalidate with Delete or Clear.
type ReadThrough[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New returns an empty cache.
func New[K comparable, V any]() *ReadThrough[K, V] {
	return &ReadThrough[K, V]{entries: make(map[K]V)}
}

func (c *ReadThrough[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

func (c *ReadThrough[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *ReadThrough[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *ReadThrough[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]V)
}

// Len reports the number of cached entries.
func (c *ReadThrough[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load returns the cached value for key, or calls fetch and caches its result
// when it succeeds.
func (c *ReadThrough[K, V]) Load(key K, fetch func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	value, err := fetch()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, value)
	return value, nil
}
