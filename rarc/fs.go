package rarc

import (
	"bytes"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/meigma/cube/internal/pathutil"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// Open implements fs.FS. Paths are relative to the root directory, whose
// own name is not part of any path. Files read their stored bytes, which
// are Yaz0 compressed for entries flagged FlagCompressed.
func (a *Archive) Open(name string) (fs.File, error) {
	n, err := a.resolve("open", name)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *File:
		return &openFile{f: n, name: name, r: bytes.NewReader(n.Data)}, nil
	case *Directory:
		return &openDir{d: n, name: name}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS. The returned info's Sys method yields the
// underlying *File or *Directory.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	n, err := a.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	return newInfo(name, n), nil
}

// ReadFile implements fs.ReadFileFS. It returns a copy of the stored bytes.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	n, err := a.resolve("read", name)
	if err != nil {
		return nil, err
	}
	f, ok := n.(*File)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return bytes.Clone(f.Data), nil
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	n, err := a.resolve("readdir", name)
	if err != nil {
		return nil, err
	}
	d, ok := n.(*Directory)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return dirEntries(d), nil
}

func (a *Archive) resolve(op, name string) (Node, error) {
	if !pathutil.Valid(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if a.Root == nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	n, ok := a.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return n, nil
}

func dirEntries(d *Directory) []fs.DirEntry {
	entries := make([]fs.DirEntry, 0, len(d.Entries))
	for _, e := range d.Entries {
		if e == nil {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(newInfo(e.EntryName(), e)))
	}
	slices.SortStableFunc(entries, func(x, y fs.DirEntry) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return entries
}

// nodeInfo implements fs.FileInfo for archive nodes.
type nodeInfo struct {
	name string
	node Node
}

func newInfo(path string, n Node) *nodeInfo {
	name := "."
	if path != "." {
		name = pathutil.Base(path)
	}
	return &nodeInfo{name: name, node: n}
}

func (fi *nodeInfo) Name() string { return fi.name }

func (fi *nodeInfo) Size() int64 {
	if f, ok := fi.node.(*File); ok {
		return int64(len(f.Data))
	}
	return 0
}

func (fi *nodeInfo) Mode() fs.FileMode {
	if fi.IsDir() {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

func (fi *nodeInfo) ModTime() time.Time { return time.Time{} }

func (fi *nodeInfo) IsDir() bool {
	_, ok := fi.node.(*Directory)
	return ok
}

// Sys returns the *File or *Directory.
func (fi *nodeInfo) Sys() any { return fi.node }

// openFile implements fs.File, io.ReaderAt and io.Seeker for a file.
type openFile struct {
	f    *File
	name string
	r    *bytes.Reader
}

func (o *openFile) Stat() (fs.FileInfo, error) { return newInfo(o.name, o.f), nil }

func (o *openFile) Read(p []byte) (int, error) {
	if o.r == nil {
		return 0, &fs.PathError{Op: "read", Path: o.name, Err: fs.ErrClosed}
	}
	return o.r.Read(p)
}

func (o *openFile) ReadAt(p []byte, off int64) (int, error) {
	if o.r == nil {
		return 0, &fs.PathError{Op: "read", Path: o.name, Err: fs.ErrClosed}
	}
	return o.r.ReadAt(p, off)
}

func (o *openFile) Seek(offset int64, whence int) (int64, error) {
	if o.r == nil {
		return 0, &fs.PathError{Op: "seek", Path: o.name, Err: fs.ErrClosed}
	}
	return o.r.Seek(offset, whence)
}

func (o *openFile) Close() error {
	if o.r == nil {
		return &fs.PathError{Op: "close", Path: o.name, Err: fs.ErrClosed}
	}
	o.r = nil
	return nil
}

// openDir implements fs.ReadDirFile for a directory.
type openDir struct {
	d       *Directory
	name    string
	entries []fs.DirEntry
	offset  int
}

func (o *openDir) Stat() (fs.FileInfo, error) { return newInfo(o.name, o.d), nil }

func (o *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: o.name, Err: fs.ErrInvalid}
}

func (o *openDir) Close() error { return nil }

func (o *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if o.entries == nil {
		o.entries = dirEntries(o.d)
	}
	rest := o.entries[o.offset:]
	if n <= 0 {
		o.offset = len(o.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	o.offset += n
	return rest[:n], nil
}
