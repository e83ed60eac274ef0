package rarc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/cube/internal/fsutil"
	"github.com/meigma/cube/internal/pathutil"
)

// ExtractStats reports the outcome of Extract.
type ExtractStats struct {
	Dirs    int
	Files   int
	Skipped int
	Bytes   uint64
}

// Extract writes the tree below destDir, creating it if needed.
//
// Names are decoded from Shift-JIS. Every file is written atomically through
// a temporary file and rename, and no path may escape destDir. Existing
// files are skipped unless ExtractWithOverwrite is set.
func (a *Archive) Extract(ctx context.Context, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logOrDiscard(cfg.logger)
	var stats ExtractStats

	if a.Root == nil {
		return stats, fmt.Errorf("extract: %w: archive has no root directory", ErrInvariantViolation)
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return stats, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return stats, fmt.Errorf("open destination root %s: %w", destDir, err)
	}
	defer root.Close()

	prefix := ""
	if cfg.rootDir {
		if prefix, err = localName(a.Root.Name); err != nil {
			return stats, err
		}
		if err := root.MkdirAll(prefix, 0o750); err != nil {
			return stats, fmt.Errorf("create directory %s: %w", prefix, err)
		}
	}

	total := a.Stats().Files
	log.Info("extracting archive", "root", DisplayName(a.Root.Name), "dest", destDir, "files", total)

	// Archive paths map to decoded local paths as the walk descends.
	local := map[string]string{"": prefix}
	err = a.Walk(func(p string, n Node) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := localName(n.EntryName())
		if err != nil {
			return err
		}
		parent := local[archiveDir(p)]
		rel := pathutil.Join(parent, name)

		switch n := n.(type) {
		case *Directory:
			local[p] = rel
			if err := root.MkdirAll(filepath.FromSlash(rel), 0o750); err != nil {
				return fmt.Errorf("create directory %s: %w", rel, err)
			}
			stats.Dirs++
		case *File:
			data := n.Data
			if cfg.decompress && n.IsCompressed() {
				if data, err = n.Decompressed(); err != nil {
					return err
				}
			}
			written, err := fsutil.WriteInRoot(root, rel, data, cfg.overwrite)
			if err != nil {
				return fmt.Errorf("extract %s: %w", rel, err)
			}
			if !written {
				log.Debug("skipped existing file", "path", rel)
				stats.Skipped++
				return nil
			}
			stats.Files++
			stats.Bytes += uint64(len(data))
			if cfg.progress != nil {
				cfg.progress(ProgressEvent{
					Stage:      StageExtracting,
					Path:       rel,
					BytesDone:  stats.Bytes,
					FilesDone:  stats.Files + stats.Skipped,
					FilesTotal: total,
				})
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	log.Debug("archive extracted", "dirs", stats.Dirs, "files", stats.Files, "skipped", stats.Skipped, "bytes", stats.Bytes)
	return stats, nil
}

// archiveDir returns the archive path of p's parent, "" for the root.
func archiveDir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// localName decodes a raw name and rejects names that are not a single
// local path element.
func localName(raw string) (string, error) {
	name, err := DecodeName(raw)
	if err != nil {
		return "", err
	}
	if !validName(name) || strings.ContainsRune(name, '\\') || !filepath.IsLocal(name) {
		return "", &fs.PathError{Op: "extract", Path: name, Err: fs.ErrInvalid}
	}
	return name, nil
}
