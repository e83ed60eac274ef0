// Package bundle writes and reads .tar.zst bundles of extracted archives.
//
// Each regular file carries its sha256 digest in the PAX record
// DigestRecord, which Walk verifies while reading.
package bundle

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

// DigestRecord is the PAX record holding a file's content digest.
const DigestRecord = "CUBE.digest"

var (
	// ErrDigestMismatch is returned by Walk when file content does not match
	// its recorded digest.
	ErrDigestMismatch = errors.New("cube: bundle digest mismatch")

	// ErrClosed is returned when adding to a closed Writer.
	ErrClosed = errors.New("cube: bundle writer closed")
)

// Stats counts what AddFS wrote.
type Stats struct {
	Dirs  int
	Files int
	Bytes uint64
}

// Option configures a Writer.
type Option func(*writerConfig)

type writerConfig struct {
	level   zstd.EncoderLevel
	modTime time.Time
	mapName func(string) (string, error)
	logger  *slog.Logger
}

// WithLevel sets the zstd encoder level (default: zstd.SpeedDefault).
func WithLevel(level zstd.EncoderLevel) Option {
	return func(c *writerConfig) {
		c.level = level
	}
}

// WithModTime sets the modification time recorded for every entry
// (default: the Unix epoch).
func WithModTime(t time.Time) Option {
	return func(c *writerConfig) {
		c.modTime = t
	}
}

// WithNameMapper converts every path element of an added file system before
// it is written, for example to decode Shift-JIS archive names to UTF-8.
// The prefix passed to AddFS is written as given.
func WithNameMapper(fn func(string) (string, error)) Option {
	return func(c *writerConfig) {
		c.mapName = fn
	}
}

// WithLogger sets the logger for bundle output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *writerConfig) {
		c.logger = logger
	}
}

// Writer streams file trees into a zstd-compressed tar stream.
// AddFS may be called from multiple goroutines; trees are written one at a
// time.
type Writer struct {
	cfg writerConfig
	enc *zstd.Encoder
	tw  *tar.Writer

	mu     sync.Mutex
	closed bool
}

// NewWriter returns a Writer that writes to w. Close must be called to
// flush the stream.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	cfg := writerConfig{level: zstd.SpeedDefault, modTime: time.Unix(0, 0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(cfg.level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Writer{cfg: cfg, enc: enc, tw: tar.NewWriter(enc)}, nil
}

// AddFS writes every directory and regular file of fsys below prefix. An
// empty prefix writes the tree at the top level.
func (w *Writer) AddFS(ctx context.Context, prefix string, fsys fs.FS) (Stats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var stats Stats
	if w.closed {
		return stats, ErrClosed
	}
	log := w.log()

	root := strings.Trim(prefix, "/")
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var rel string
		if p != "." {
			mapped, err := w.mapPath(p)
			if err != nil {
				return err
			}
			rel = mapped
		}
		name := path.Join(root, rel)

		if d.IsDir() {
			if name == "." || name == "" {
				return nil
			}
			stats.Dirs++
			return w.tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     0o755,
				ModTime:  w.cfg.modTime,
				Format:   tar.FormatPAX,
			})
		}
		if !d.Type().IsRegular() {
			log.Debug("skipped non-regular file", "path", p)
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Typeflag:   tar.TypeReg,
			Name:       name,
			Mode:       0o644,
			Size:       int64(len(data)),
			ModTime:    w.cfg.modTime,
			PAXRecords: map[string]string{DigestRecord: digest.FromBytes(data).String()},
			Format:     tar.FormatPAX,
		}
		if err := w.tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		if _, err := w.tw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		stats.Files++
		stats.Bytes += uint64(len(data))
		return nil
	})
	if err != nil {
		return stats, err
	}
	log.Debug("added tree to bundle", "prefix", root, "dirs", stats.Dirs, "files", stats.Files, "bytes", stats.Bytes)
	return stats, nil
}

// Close finishes the tar stream and flushes the encoder. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.tw.Close(); err != nil {
		w.enc.Close()
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("close zstd encoder: %w", err)
	}
	return nil
}

// mapPath applies the name mapper to each element of a slash path.
func (w *Writer) mapPath(p string) (string, error) {
	if w.cfg.mapName == nil || p == "" {
		return p, nil
	}
	elems := strings.Split(p, "/")
	for i, e := range elems {
		mapped, err := w.cfg.mapName(e)
		if err != nil {
			return "", err
		}
		elems[i] = mapped
	}
	return strings.Join(elems, "/"), nil
}

func (w *Writer) log() *slog.Logger {
	if w.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.cfg.logger
}
