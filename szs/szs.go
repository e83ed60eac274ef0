package szs

import (
	"bytes"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/cube/cache"
	"github.com/meigma/cube/rarc"
	"github.com/meigma/cube/yaz0"
)

// Codec packs and unpacks SZS files with fixed settings.
// It is safe for concurrent use.
type Codec struct {
	encode []yaz0.Option
	decode []yaz0.DecodeOption
	cache  cache.Cache
	logger *slog.Logger

	packGroup singleflight.Group
}

// New creates a Codec with the given options.
func New(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unpack decodes an SZS file with a Codec built from opts.
func Unpack(data []byte, opts ...Option) (*rarc.Archive, error) {
	return New(opts...).Unpack(data)
}

// Pack encodes an archive as an SZS file with a Codec built from opts.
func Pack(a *rarc.Archive, opts ...Option) ([]byte, error) {
	return New(opts...).Pack(a)
}

// Unpack decompresses data when it carries the Yaz0 magic and parses the
// resulting RARC archive. Uncompressed archives are parsed directly.
func (c *Codec) Unpack(data []byte) (*rarc.Archive, error) {
	log := c.log()
	raw := data
	if yaz0.IsCompressed(data) {
		var err error
		if raw, err = yaz0.Decompress(data, c.decode...); err != nil {
			return nil, fmt.Errorf("decompress archive: %w", err)
		}
		log.Debug("decompressed archive", "compressed", len(data), "size", len(raw))
	} else {
		log.Debug("archive is not compressed", "size", len(data))
	}

	a, err := rarc.Parse(raw, rarc.ParseWithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}
	return a, nil
}

// Pack serializes a and compresses the result.
//
// With a cache, the output is looked up by the digest of the serialized
// archive and the encoder settings before compressing.
func (c *Codec) Pack(a *rarc.Archive) ([]byte, error) {
	raw, err := rarc.Serialize(a)
	if err != nil {
		return nil, fmt.Errorf("serialize archive: %w", err)
	}
	if c.cache == nil {
		return c.compress(raw)
	}

	key := cache.Key(raw, yaz0.Params(c.encode...))
	if hit, ok := c.cache.Get(key); ok {
		c.log().Debug("compression cache hit", "key", key.String(), "size", len(hit))
		return bytes.Clone(hit), nil
	}

	v, err, shared := c.packGroup.Do(key.String(), func() (any, error) {
		// Double-check after acquiring singleflight
		if hit, ok := c.cache.Get(key); ok {
			return hit, nil
		}
		out, err := c.compress(raw)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Put(key, bytes.Clone(out)); err != nil {
			c.log().Warn("failed to store compressed archive", "key", key.String(), "error", err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := v.([]byte) //nolint:errcheck // type is guaranteed by the group func
	if shared {
		out = bytes.Clone(out)
	}
	return out, nil
}

func (c *Codec) compress(raw []byte) ([]byte, error) {
	out, err := yaz0.Compress(raw, c.encode...)
	if err != nil {
		return nil, fmt.Errorf("compress archive: %w", err)
	}
	c.log().Debug("compressed archive", "size", len(raw), "compressed", len(out))
	return out, nil
}

func (c *Codec) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
