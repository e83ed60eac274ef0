package bundle

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/cube/internal/format"
)

// ReadOption configures Walk.
type ReadOption func(*readConfig)

type readConfig struct {
	maxDecoderMemory uint64
	maxFileSize      int64
}

// ReadWithMaxDecoderMemory limits the memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func ReadWithMaxDecoderMemory(limit uint64) ReadOption {
	return func(c *readConfig) {
		c.maxDecoderMemory = limit
	}
}

// ReadWithMaxFileSize limits the size of a single file.
// Set limit to 0 to disable the limit.
func ReadWithMaxFileSize(limit int64) ReadOption {
	return func(c *readConfig) {
		c.maxFileSize = limit
	}
}

// WalkFunc is called for each entry of a bundle. data is nil for
// directories.
type WalkFunc func(hdr *tar.Header, data []byte) error

// Walk reads a bundle from r and calls fn for every entry in order. File
// contents are verified against their recorded digest before fn sees them.
func Walk(r io.Reader, fn WalkFunc, opts ...ReadOption) error {
	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var decOpts []zstd.DOption
	if cfg.maxDecoderMemory > 0 {
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(cfg.maxDecoderMemory))
	}
	dec, err := zstd.NewReader(r, decOpts...)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read bundle: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			if err := fn(hdr, nil); err != nil {
				return err
			}
			continue
		}
		if cfg.maxFileSize > 0 && hdr.Size > cfg.maxFileSize {
			return fmt.Errorf("%s: %d bytes exceeds limit %d: %w", hdr.Name, hdr.Size, cfg.maxFileSize, format.ErrSizeOverflow)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		if err := verify(hdr, data); err != nil {
			return err
		}
		if err := fn(hdr, data); err != nil {
			return err
		}
	}
}

func verify(hdr *tar.Header, data []byte) error {
	recorded, ok := hdr.PAXRecords[DigestRecord]
	if !ok {
		return nil
	}
	want, err := digest.Parse(recorded)
	if err != nil {
		return fmt.Errorf("%s: %w", hdr.Name, err)
	}
	v := want.Verifier()
	_, _ = v.Write(data) //nolint:errcheck // hash writes never fail
	if !v.Verified() {
		return fmt.Errorf("%s: %w", hdr.Name, ErrDigestMismatch)
	}
	return nil
}
