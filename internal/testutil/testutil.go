// Package testutil provides fixtures shared by cube's tests.
package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
)

// MockCache implements a basic concurrency-safe cache for tests. It counts
// calls so tests can assert how often the cache was consulted.
type MockCache struct {
	mu   sync.RWMutex
	data map[digest.Digest][]byte

	Gets atomic.Int64
	Puts atomic.Int64
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[digest.Digest][]byte)}
}

// Get retrieves data by digest.
func (c *MockCache) Get(key digest.Digest) ([]byte, bool) {
	c.Gets.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[key]
	return data, ok
}

// Put stores data by digest.
func (c *MockCache) Put(key digest.Digest, content []byte) error {
	c.Puts.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = content
	return nil
}

// Delete removes an entry.
func (c *MockCache) Delete(key digest.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// MaxBytes reports no limit.
func (c *MockCache) MaxBytes() int64 { return 0 }

// SizeBytes returns the total size of stored content.
func (c *MockCache) SizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, v := range c.data {
		n += int64(len(v))
	}
	return n
}

// Prune is a no-op.
func (c *MockCache) Prune(int64) (int64, error) { return c.SizeBytes(), nil }

// Len returns the number of stored entries.
func (c *MockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
