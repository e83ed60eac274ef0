package szs

import (
	"log/slog"

	"github.com/meigma/cube/cache"
	"github.com/meigma/cube/yaz0"
)

// Option configures a Codec.
type Option func(*Codec)

// WithCompression sets the Yaz0 encoder options used by Pack.
func WithCompression(opts ...yaz0.Option) Option {
	return func(c *Codec) {
		c.encode = append(c.encode, opts...)
	}
}

// WithDecodeOptions sets the Yaz0 decoder options used by Unpack.
func WithDecodeOptions(opts ...yaz0.DecodeOption) Option {
	return func(c *Codec) {
		c.decode = append(c.decode, opts...)
	}
}

// WithCache memoizes compressed outputs in cache.
func WithCache(cache cache.Cache) Option {
	return func(c *Codec) {
		c.cache = cache
	}
}

// WithLogger sets the logger for codec operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}
