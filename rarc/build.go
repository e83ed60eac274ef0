package rarc

import (
	"context"
	"fmt"
	"io/fs"
	"path"
)

// FromFS builds an archive from every directory and regular file in fsys.
//
// Entries are added in lexical order, the order fs.WalkDir visits them.
// Names are converted from UTF-8 to Shift-JIS; a name Shift-JIS cannot
// represent fails the build. Empty directories are preserved and
// non-regular files such as symlinks are skipped.
//
// The context can be used for cancellation of long-running builds.
func FromFS(ctx context.Context, fsys fs.FS, rootName string, opts ...BuildOption) (*Archive, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logOrDiscard(cfg.logger)
	maxFiles := cfg.maxFiles
	if maxFiles == 0 {
		maxFiles = DefaultMaxFiles
	}
	flags := cfg.fileFlags
	if flags == 0 {
		flags = DefaultFileFlags
	}

	encodedRoot, err := EncodeName(rootName)
	if err != nil {
		return nil, err
	}
	if !validName(encodedRoot) {
		return nil, &fs.PathError{Op: "build", Path: rootName, Err: fs.ErrInvalid}
	}
	a := NewArchive(encodedRoot)
	a.Layout = cfg.layout
	log.Info("building archive", "root", rootName)

	dirs := map[string]*Directory{".": a.Root}
	var files int
	var total uint64
	report := func(p string) {
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{Stage: StageEnumerating, Path: p, BytesDone: total, FilesDone: files})
		}
	}
	report("")

	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		parent, ok := dirs[path.Dir(p)]
		if !ok {
			return fmt.Errorf("build %s: parent directory was skipped", p)
		}
		name, err := EncodeName(d.Name())
		if err != nil {
			return err
		}

		if d.IsDir() {
			sub, err := parent.AddDir(name)
			if err != nil {
				return err
			}
			dirs[p] = sub
			return nil
		}
		if !d.Type().IsRegular() {
			log.Debug("skipped non-regular file", "path", p, "type", d.Type().String())
			return nil
		}
		if maxFiles > 0 && files >= maxFiles {
			return fmt.Errorf("%w: more than %d files", ErrSizeOverflow, maxFiles)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		f, err := parent.AddFile(name, data)
		if err != nil {
			return err
		}
		f.Flags = flags
		files++
		total += uint64(len(data))
		report(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("archive built", "dirs", len(dirs)-1, "files", files, "bytes", total)
	return a, nil
}
