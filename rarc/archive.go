package rarc

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"strings"

	"github.com/meigma/cube/internal/pathutil"
	"github.com/meigma/cube/yaz0"
)

// Node is an entry of a directory: either a *File or a *Directory.
type Node interface {
	// EntryName returns the raw on-disk name of the node.
	EntryName() string
	isNode()
}

// Archive is an in-memory RARC archive.
//
// The zero value is not usable; create archives with NewArchive, Parse or
// FromFS. An Archive is not safe for concurrent mutation.
type Archive struct {
	// Root is the root directory. It owns the whole tree.
	Root *Directory

	// KeepFileIDs writes every File.ID and NextFileID verbatim instead of
	// renumbering. Parse sets it only when the input's IDs cannot be
	// recomputed.
	KeepFileIDs bool

	// SyncFileIDs is the on-disk flag declaring that file IDs equal entry
	// indices. When set and KeepFileIDs is not, IDs are entry indices;
	// otherwise they count files in emission order.
	SyncFileIDs bool

	// NextFileID is the info block's next-ID field, used with KeepFileIDs.
	NextFileID uint16

	// StringTable holds the original string table bytes. When non-nil the
	// serializer reuses the offsets of names already present and appends
	// new names. Parse keeps it only when a freshly built table would differ.
	StringTable []byte

	// Layout selects node and dot-entry ordering.
	Layout Layout

	// Reserved fields preserved across a round trip.
	Reserved Reserved
}

// Reserved holds header and info block bytes with no known meaning.
type Reserved struct {
	// Header is the word at header offset 0x1C.
	Header uint32
	// Info holds info block bytes 0x1B through 0x1F.
	Info [5]byte
}

// NewArchive returns an empty archive whose root directory is named
// rootName. New archives use synchronized file IDs.
func NewArchive(rootName string) *Archive {
	return &Archive{
		Root:        &Directory{Name: rootName, Type: nodeType(rootName, true)},
		SyncFileIDs: true,
	}
}

// Directory is a directory node. It owns its entries.
type Directory struct {
	// Name is the raw on-disk name.
	Name string

	// Type is the four-byte node tag. A zero value is derived from the name
	// on serialization.
	Type [4]byte

	// Flags are written on the entry that references this directory from its
	// parent. FlagDirectory is always added.
	Flags uint8

	// ID is the node index assigned by Parse.
	ID int

	// EntrySize is the size field of the referencing entry. Zero means 0x10.
	EntrySize uint32

	// Reserved is the trailing word of the referencing entry.
	Reserved uint32

	// Entries are the children in on-disk order.
	Entries []Node

	parent *Directory

	// dots holds the size and reserved words of the "." and ".." entries.
	dots [2]entryTail
}

// entryTail is the part of an entry record that carries no meaning but is
// written back as read.
type entryTail struct {
	size     uint32
	reserved uint32
}

// EntryName returns the directory name.
func (d *Directory) EntryName() string { return d.Name }

func (*Directory) isNode() {}

// Parent returns the directory that contains d, or nil for the root and for
// directories not attached through AddDir or Parse. The link is never
// serialized.
func (d *Directory) Parent() *Directory { return d.parent }

// Child returns the entry named name.
func (d *Directory) Child(name string) (Node, bool) {
	for _, e := range d.Entries {
		if e != nil && e.EntryName() == name {
			return e, true
		}
	}
	return nil, false
}

// AddFile appends a file named name holding data. The directory takes
// ownership of data.
func (d *Directory) AddFile(name string, data []byte) (*File, error) {
	if err := d.checkNewName("add file", name); err != nil {
		return nil, err
	}
	f := &File{Name: name, Flags: DefaultFileFlags, Data: data}
	d.Entries = append(d.Entries, f)
	return f, nil
}

// AddDir appends an empty subdirectory named name.
func (d *Directory) AddDir(name string) (*Directory, error) {
	if err := d.checkNewName("add dir", name); err != nil {
		return nil, err
	}
	sub := &Directory{
		Name:   name,
		Type:   nodeType(name, false),
		Flags:  FlagDirectory,
		parent: d,
	}
	d.Entries = append(d.Entries, sub)
	return sub, nil
}

// Remove deletes the entry named name and reports whether it existed.
func (d *Directory) Remove(name string) bool {
	for i, e := range d.Entries {
		if e == nil || e.EntryName() != name {
			continue
		}
		if sub, ok := e.(*Directory); ok {
			sub.parent = nil
		}
		d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
		return true
	}
	return false
}

func (d *Directory) checkNewName(op, name string) error {
	if !validName(name) {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if _, exists := d.Child(name); exists {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrExist}
	}
	return nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\x00")
}

// File is a file entry. It exclusively owns Data.
type File struct {
	// Name is the raw on-disk name.
	Name string

	// ID is the file ID read by Parse. It is written verbatim only when
	// Archive.KeepFileIDs is set.
	ID uint16

	// Flags is the entry flags byte. Zero means DefaultFileFlags, except on
	// files read by Parse, whose flags are written verbatim.
	Flags uint8

	// Reserved is the trailing word of the entry record.
	Reserved uint32

	// Data is the stored content, Yaz0 compressed when IsCompressed.
	Data []byte

	parsed bool
}

// EntryName returns the file name.
func (f *File) EntryName() string { return f.Name }

func (*File) isNode() {}

// IsCompressed reports whether the stored data is compressed.
func (f *File) IsCompressed() bool {
	return f.Flags&FlagCompressed != 0
}

// Decompressed returns the file content with entry-level compression
// removed. Uncompressed files return Data itself.
func (f *File) Decompressed(opts ...yaz0.DecodeOption) ([]byte, error) {
	if !f.IsCompressed() {
		return f.Data, nil
	}
	if f.Flags&FlagYaz0 == 0 {
		return nil, fmt.Errorf("decompress %q: Yay0 entries are not supported", f.Name)
	}
	out, err := yaz0.Decompress(f.Data, opts...)
	if err != nil {
		return nil, fmt.Errorf("decompress %q: %w", f.Name, err)
	}
	return out, nil
}

// Lookup resolves a slash-separated path relative to the root. The empty
// path and "." return the root.
func (a *Archive) Lookup(path string) (Node, bool) {
	path = NormalizePath(path)
	if path == "." {
		return a.Root, true
	}
	if !pathutil.Valid(path) {
		return nil, false
	}
	var cur Node = a.Root
	for _, elem := range strings.Split(path, "/") {
		dir, ok := cur.(*Directory)
		if !ok || dir == nil {
			return nil, false
		}
		if cur, ok = dir.Child(elem); !ok {
			return nil, false
		}
	}
	return cur, true
}

// WalkFunc is called by Walk for every entry below the root. path is
// slash-separated and relative to the root.
type WalkFunc func(path string, n Node) error

// Walk visits every entry depth-first in entry order. Returning
// fs.SkipDir from fn for a directory skips its contents; fs.SkipAll stops
// the walk without error.
func (a *Archive) Walk(fn WalkFunc) error {
	if a.Root == nil {
		return nil
	}
	err := walkDir(a.Root, "", fn)
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func walkDir(dir *Directory, prefix string, fn WalkFunc) error {
	for _, e := range dir.Entries {
		if e == nil {
			continue
		}
		p := pathutil.Join(prefix, e.EntryName())
		err := fn(p, e)
		sub, isDir := e.(*Directory)
		if isDir && errors.Is(err, fs.SkipDir) {
			continue
		}
		if err != nil {
			return err
		}
		if isDir {
			if err := walkDir(sub, p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Files returns an iterator over every file and its path, in Walk order.
func (a *Archive) Files() iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		_ = a.Walk(func(path string, n Node) error { //nolint:errcheck // only SkipAll is returned
			if f, ok := n.(*File); ok && !yield(path, f) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// Stats summarizes the contents of an archive.
type Stats struct {
	Dirs       int
	Files      int
	Compressed int
	DataBytes  uint64
}

// Stats counts the directories and files below the root.
func (a *Archive) Stats() Stats {
	var s Stats
	_ = a.Walk(func(_ string, n Node) error { //nolint:errcheck // fn never fails
		switch n := n.(type) {
		case *Directory:
			s.Dirs++
		case *File:
			s.Files++
			s.DataBytes += uint64(len(n.Data))
			if n.IsCompressed() {
				s.Compressed++
			}
		}
		return nil
	})
	return s
}

// Equal reports whether two archives hold the same tree: names, node types,
// flags and file contents in the same order. IDs and serialization
// settings are not compared.
func (a *Archive) Equal(b *Archive) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalDir(a.Root, b.Root)
}

func equalDir(x, y *Directory) bool {
	if x == nil || y == nil {
		return x == y
	}
	if x.Name != y.Name || x.Type != y.Type || len(x.Entries) != len(y.Entries) {
		return false
	}
	for i := range x.Entries {
		switch xe := x.Entries[i].(type) {
		case *Directory:
			ye, ok := y.Entries[i].(*Directory)
			if !ok || xe.Flags|FlagDirectory != ye.Flags|FlagDirectory || !equalDir(xe, ye) {
				return false
			}
		case *File:
			ye, ok := y.Entries[i].(*File)
			if !ok || ye == nil || xe == nil {
				return false
			}
			if xe.Name != ye.Name || fileFlags(xe) != fileFlags(ye) || !bytes.Equal(xe.Data, ye.Data) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func fileFlags(f *File) uint8 {
	if f.Flags == 0 && !f.parsed {
		return DefaultFileFlags
	}
	return f.Flags
}
