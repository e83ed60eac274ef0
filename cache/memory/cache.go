// Package memory provides an in-process cache.Cache with LRU eviction.
package memory

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/cube/cache"
)

// Cache implements cache.Cache in memory.
//
// Entries are evicted least recently used first, when either the entry
// limit or the byte limit is exceeded. The cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex // serializes Put and Prune so the byte count stays consistent
	lru      *lru.Cache
	maxBytes int64
	bytes    atomic.Int64
}

var _ cache.Cache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithMaxBytes sets the size limit in bytes. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// New creates a cache holding at most entries items.
func New(entries int, opts ...Option) (*Cache, error) {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	l, err := lru.NewWithEvict(entries, func(_, value any) {
		c.bytes.Add(-int64(len(value.([]byte))))
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get returns the content stored under key.
// Returns nil, false if the content is not cached.
func (c *Cache) Get(key digest.Digest) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Put stores a copy of content under key. An existing entry is left in
// place, and content larger than the size limit is silently not cached.
func (c *Cache) Put(key digest.Digest, content []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	size := int64(len(content))
	if c.maxBytes > 0 && size > c.maxBytes {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(key) {
		return nil
	}
	c.lru.Add(key, bytes.Clone(content))
	c.bytes.Add(size)
	if c.maxBytes > 0 {
		c.pruneLocked(c.maxBytes)
	}
	return nil
}

// Delete removes the content stored under key.
func (c *Cache) Delete(key digest.Digest) error {
	c.lru.Remove(key)
	return nil
}

// MaxBytes returns the configured size limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the total size of the cached content.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Prune evicts least recently used entries until the cache holds at most
// targetBytes.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(targetBytes), nil
}

func (c *Cache) pruneLocked(targetBytes int64) int64 {
	before := c.bytes.Load()
	for c.bytes.Load() > targetBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	return before - c.bytes.Load()
}
