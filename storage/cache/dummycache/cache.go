package dummycache

import (
	"sync"

	"github.com/tshola/ngoma/core/collection"
)

// Cache is an in-memory collection.Cache for tests and local development.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte

	failWith error
}

var _ collection.Cache = (*Cache)(nil)

func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

func (c *Cache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.failWith != nil {
		return nil, c.failWith
	}
	data, ok := c.entries[key]
	if !ok {
		return nil, collection.ErrCacheMiss
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (c *Cache) Put(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failWith != nil {
		return c.failWith
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.entries[key] = cp
	return nil
}

// FailWith makes all subsequent operations return err; nil restores normal
// behavior.
func (c *Cache) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}
