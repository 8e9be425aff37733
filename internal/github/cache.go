package github

import "sync"

// Cache is a per-process response cache. One invocation never queries the
// same endpoint twice; nothing is persisted across runs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]any),
	}
}

// Get returns the cached value for key, if present.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.entries[key]

	return val, ok
}

// Set stores a value for key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
}
