package cache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache keeps one file per key under dir. Each file starts with the
// expiry as big-endian Unix nanoseconds, followed by the raw value.
type DiskCache struct {
	dir string
	ttl time.Duration
}

const expiryHeaderLen = 8

// NewDiskCache returns a cache rooted at dir whose entries default to ttl
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl}
}

func (c *DiskCache) Get(key string) ([]byte, bool) {
	file := c.file(key)
	raw, err := os.ReadFile(file)
	if err != nil || len(raw) < expiryHeaderLen {
		return nil, false
	}

	expires := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:expiryHeaderLen])))
	if !time.Now().Before(expires) {
		_ = os.Remove(file)
		return nil, false
	}
	return raw[expiryHeaderLen:], true
}

// Set writes the entry through a temp file and rename, so readers never
// observe a partial file. A zero ttl means the cache default.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	buf := make([]byte, expiryHeaderLen, expiryHeaderLen+len(value))
	binary.BigEndian.PutUint64(buf, uint64(time.Now().Add(ttl).UnixNano()))
	buf = append(buf, value...)

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.file(key)); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry; a missing entry yields an fs.ErrNotExist error
func (c *DiskCache) Delete(key string) error {
	return os.Remove(c.file(key))
}

// Clear removes the cache directory
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// file maps key to its path; ':' is not portable in file names
func (c *DiskCache) file(key string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(key, ":", "_")+".entry")
}
