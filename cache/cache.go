// Package cache memoizes expensive codec results by content digest.
//
// Yaz0 compression is far slower than decompression, so packing the same
// archive twice with the same settings can reuse the first result. Keys are
// OCI content digests of the input combined with the codec parameters, see
// Key. Because keys are content hashes, a hit is the exact output for that
// input and no further verification is needed.
package cache

import (
	"github.com/opencontainers/go-digest"
)

// Cache stores codec outputs by digest.
//
// Implementations should handle their own size limits and eviction policies
// and must be safe for concurrent use.
type Cache interface {
	// Get returns the content stored under key.
	// Returns nil, false if the content is not cached.
	Get(key digest.Digest) ([]byte, bool)

	// Put stores content under key.
	Put(key digest.Digest, content []byte) error

	// Delete removes the content stored under key.
	// Implementations should treat missing entries as a no-op.
	Delete(key digest.Digest) error

	// MaxBytes returns the configured size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current size in bytes.
	SizeBytes() int64

	// Prune removes entries until the cache is at or below targetBytes.
	// Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}

// Key returns the cache key for input processed with params, a canonical
// description of the codec settings such as yaz0.Params.
func Key(input []byte, params string) digest.Digest {
	d := digest.Canonical.Digester()
	h := d.Hash()
	h.Write([]byte(params))
	h.Write([]byte{0})
	h.Write(input)
	return d.Digest()
}
