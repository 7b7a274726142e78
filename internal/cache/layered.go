package cache

import (
	"errors"
	"io/fs"
	"time"
)

// LayeredCache reads through a fast memory tier to a disk tier, so
// evaluation memos and PubMed responses survive between runs
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewLayeredCache pairs a memory tier with a disk tier rooted at diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory, then disk. Disk hits are copied into memory with the
// memory tier's default TTL.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	v, ok := c.disk.Get(key)
	if ok {
		_ = c.memory.Set(key, v, 0)
	}
	return v, ok
}

// Set writes both tiers; only the disk write can fail
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	_ = c.memory.Set(key, value, ttl)
	return c.disk.Set(key, value, ttl)
}

// Delete drops key from both tiers. Deleting an absent key is not an error.
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	err := c.disk.Delete(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
