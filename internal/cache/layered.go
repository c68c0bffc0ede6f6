package cache

import "time"

// Layered checks the memory layer first, falls back to disk, and promotes
// disk hits into memory.
type Layered struct {
	memory Cache
	disk   Cache
}

// NewLayered builds the standard two-layer cache.
func NewLayered(dir string, ttl time.Duration) *Layered {
	return &Layered{
		memory: NewMemoryCache(ttl, 10*time.Minute),
		disk:   NewDiskCache(dir, ttl),
	}
}

func (c *Layered) Get(key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		return val, true
	}
	if val, ok := c.disk.Get(key); ok {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}
	return nil, false
}

func (c *Layered) Set(key string, value []byte, ttl time.Duration) error {
	_ = c.memory.Set(key, value, ttl)
	return c.disk.Set(key, value, ttl)
}

func (c *Layered) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *Layered) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
