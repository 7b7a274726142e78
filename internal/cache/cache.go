package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/evidentia/internal/model"
)

// keyPrefix is bumped whenever cached value shapes change
const keyPrefix = "evidentia:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a fixed-length key from its parts (a namespace plus identifying strings)
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by config: memory plus disk when a
// directory is set, memory only otherwise. It returns nil when caching is disabled.
func New(config model.CacheConfig) Cache {
	if !config.Enabled {
		return nil
	}

	memoryTTL := config.MemoryTTL
	if memoryTTL <= 0 {
		memoryTTL = time.Hour
	}

	if config.Dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}

	diskTTL := config.DiskTTL
	if diskTTL <= 0 {
		diskTTL = 7 * 24 * time.Hour
	}
	return NewLayeredCache(memoryTTL, config.Dir, diskTTL)
}
