package rarc

import (
	"math"
	"strings"

	"github.com/meigma/cube/internal/format"
)

// MarshalBinary implements encoding.BinaryMarshaler using Serialize.
func (a *Archive) MarshalBinary() ([]byte, error) {
	return Serialize(a)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using Parse.
func (a *Archive) UnmarshalBinary(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

// Serialize encodes a as RARC bytes.
//
// Directories are numbered in a.Layout.NodeOrder with the root at index 0.
// Each directory's entries are its children in order plus "." and ".."
// placed per a.Layout.DotEntries. Names are deduplicated in the string
// table. Sections start on 32-byte boundaries and each file's data is
// padded to 32 bytes. The input is not modified.
//
// Serialize returns ErrInvariantViolation when the tree is inconsistent or
// a value does not fit its on-disk field.
func Serialize(a *Archive) ([]byte, error) {
	p, err := buildPlan(a)
	if err != nil {
		return nil, err
	}
	return p.encode(a), nil
}

// plan is the fully resolved on-disk form of an archive, minus file bytes.
type plan struct {
	nodes   []nodeRecord
	entries []entryRecord
	strings *stringTable
	strtab  []byte
	files   []*File // emission order, parallel to fileEntries
	// fileEntries holds the entry index of each file in files.
	fileEntries []int
	dataLength  uint64
	mramSize    uint64
	aramSize    uint64
	nextFileID  uint16
}

func buildPlan(a *Archive) (*plan, error) {
	if a == nil || a.Root == nil {
		return nil, invariantf("archive has no root directory")
	}
	if err := checkName(a.Root.Name); err != nil {
		return nil, err
	}
	dirs, err := orderNodes(a.Root, a.Layout.NodeOrder)
	if err != nil {
		return nil, err
	}
	if uint64(len(dirs)) > math.MaxUint32 {
		return nil, invariantf("too many directories: %d", len(dirs))
	}

	index := make(map[*Directory]uint32, len(dirs))
	for i, d := range dirs {
		index[d] = uint32(i) //nolint:gosec // bounded above
	}
	parentOf := map[*Directory]uint32{a.Root: noParent}

	p := &plan{
		nodes:   make([]nodeRecord, len(dirs)),
		strings: newStringTable(a.StringTable),
	}
	if _, err := p.strings.offset(a.Root.Name); err != nil {
		return nil, err
	}

	var fileCount int
	for i, d := range dirs {
		first := len(p.entries)
		if a.Layout.DotEntries == DotEntriesFirst {
			if err := p.addDots(d, uint32(i), parentOf[d]); err != nil { //nolint:gosec // bounded above
				return nil, err
			}
		}
		for _, child := range d.Entries {
			switch c := child.(type) {
			case *Directory:
				if c == nil {
					return nil, invariantf("nil directory in %q", d.Name)
				}
				if c.parent != nil && c.parent != d {
					return nil, invariantf("directory %q is owned by %q but points at %q", c.Name, d.Name, c.parent.Name)
				}
				if err := checkName(c.Name); err != nil {
					return nil, err
				}
				parentOf[c] = uint32(i) //nolint:gosec // bounded above
				if err := p.addEntry(c.Name, entryRecord{
					id:       dirID,
					flags:    c.Flags | FlagDirectory,
					offset:   index[c],
					size:     orDirEntrySize(c.EntrySize),
					reserved: c.Reserved,
				}); err != nil {
					return nil, err
				}
			case *File:
				if c == nil {
					return nil, invariantf("nil file in %q", d.Name)
				}
				if err := checkName(c.Name); err != nil {
					return nil, err
				}
				rec, err := p.fileRecord(a, c, fileCount)
				if err != nil {
					return nil, err
				}
				p.files = append(p.files, c)
				p.fileEntries = append(p.fileEntries, len(p.entries))
				if err := p.addEntry(c.Name, rec); err != nil {
					return nil, err
				}
				fileCount++
			default:
				return nil, invariantf("nil entry in %q", d.Name)
			}
		}
		if a.Layout.DotEntries == DotEntriesLast {
			if err := p.addDots(d, uint32(i), parentOf[d]); err != nil { //nolint:gosec // bounded above
				return nil, err
			}
		}

		count := len(p.entries) - first
		if count > math.MaxUint16 {
			return nil, invariantf("directory %q has %d entries", d.Name, count)
		}
		typ := d.Type
		if typ == [4]byte{} {
			typ = nodeType(d.Name, i == 0)
		}
		p.nodes[i] = nodeRecord{
			typ:        typ,
			nameHash:   Hash(d.Name),
			entryCount: uint16(count),
			firstEntry: uint32(first), //nolint:gosec // entry count is checked below
		}
	}
	if uint64(len(p.entries)) > math.MaxUint32/entrySize {
		return nil, invariantf("too many entries: %d", len(p.entries))
	}

	// Node names are resolved after every entry so that string order follows
	// entry emission order.
	for i, d := range dirs {
		off, err := p.strings.offset(d.Name)
		if err != nil {
			return nil, err
		}
		p.nodes[i].nameOffset = off
	}

	switch {
	case a.KeepFileIDs:
		p.nextFileID = a.NextFileID
	case a.SyncFileIDs:
		if len(p.entries) > math.MaxUint16 {
			return nil, invariantf("%d entries do not fit 16-bit file IDs", len(p.entries))
		}
		p.nextFileID = uint16(len(p.entries)) //nolint:gosec // checked above
	default:
		p.nextFileID = uint16(fileCount) //nolint:gosec // fileRecord checks the counter
	}

	p.strtab = p.strings.bytes()
	if total := p.sections().total; total > math.MaxUint32 {
		return nil, invariantf("archive would be %d bytes", total)
	}
	return p, nil
}

// fileRecord builds the entry of f and reserves its data range.
func (p *plan) fileRecord(a *Archive, f *File, fileCount int) (entryRecord, error) {
	flags := fileFlags(f)
	if flags&FlagDirectory != 0 {
		return entryRecord{}, invariantf("file %q has the directory flag", f.Name)
	}
	if uint64(len(f.Data)) > math.MaxUint32 {
		return entryRecord{}, invariantf("file %q is %d bytes", f.Name, len(f.Data))
	}

	var id uint16
	switch {
	case a.KeepFileIDs:
		id = f.ID
	case a.SyncFileIDs:
		if len(p.entries) >= dirID {
			return entryRecord{}, invariantf("entry index %d does not fit a file ID", len(p.entries))
		}
		id = uint16(len(p.entries)) //nolint:gosec // checked above
	default:
		if fileCount >= dirID {
			return entryRecord{}, invariantf("file count %d does not fit a file ID", fileCount)
		}
		id = uint16(fileCount) //nolint:gosec // checked above
	}

	size := uint64(len(f.Data))
	offset := p.dataLength
	padded := uint64(format.Align(len(f.Data), sectionAlign))
	if offset+padded > math.MaxUint32 {
		return entryRecord{}, invariantf("file data exceeds 4 GiB at %q", f.Name)
	}
	p.dataLength += padded
	if flags&FlagPreloadMRAM != 0 {
		p.mramSize += padded
	}
	if flags&FlagPreloadARAM != 0 {
		p.aramSize += padded
	}
	return entryRecord{
		id:       id,
		flags:    flags,
		offset:   uint32(offset), //nolint:gosec // checked above
		size:     uint32(size),   //nolint:gosec // checked above
		reserved: f.Reserved,
	}, nil
}

func (p *plan) addDots(d *Directory, self, parent uint32) error {
	for i, name := range [2]string{".", ".."} {
		offset := self
		if i == 1 {
			offset = parent
		}
		if err := p.addEntry(name, entryRecord{
			id:       dirID,
			flags:    FlagDirectory,
			offset:   offset,
			size:     orDirEntrySize(d.dots[i].size),
			reserved: d.dots[i].reserved,
		}); err != nil {
			return err
		}
	}
	return nil
}

func orDirEntrySize(size uint32) uint32 {
	if size == 0 {
		return dirEntrySize
	}
	return size
}

// addEntry resolves the name of rec and appends it.
func (p *plan) addEntry(name string, rec entryRecord) error {
	off, err := p.strings.offset(name)
	if err != nil {
		return err
	}
	rec.nameOffset = off
	rec.nameHash = Hash(name)
	p.entries = append(p.entries, rec)
	return nil
}

func checkName(name string) error {
	if name == "" {
		return invariantf("empty name")
	}
	if name == "." || name == ".." {
		return invariantf("reserved name %q", name)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return invariantf("name %q contains NUL", name)
	}
	return nil
}

// sections holds section offsets relative to the end of the header.
type sections struct {
	nodes, entries, strings, data uint64
	total                         uint64
}

func (p *plan) sections() sections {
	var s sections
	s.nodes = infoSize
	s.entries = alignUp(s.nodes + uint64(len(p.nodes))*nodeSize)
	s.strings = alignUp(s.entries + uint64(len(p.entries))*entrySize)
	s.data = alignUp(s.strings + uint64(len(p.strtab)))
	s.total = headerSize + s.data + p.dataLength
	return s
}

func alignUp(n uint64) uint64 {
	return (n + sectionAlign - 1) &^ (sectionAlign - 1)
}

// encode writes the archive. buildPlan has bounded every field.
//
//nolint:gosec // narrowing conversions are bounded by buildPlan
func (p *plan) encode(a *Archive) []byte {
	s := p.sections()
	out := make([]byte, s.total)
	body := out[headerSize:]

	info{
		nodeCount:     uint32(len(p.nodes)),
		nodeOffset:    uint32(s.nodes),
		entryCount:    uint32(len(p.entries)),
		entryOffset:   uint32(s.entries),
		stringsLength: uint32(len(p.strtab)),
		stringsOffset: uint32(s.strings),
		nextFileID:    p.nextFileID,
		syncFileIDs:   a.SyncFileIDs,
		reserved:      a.Reserved.Info,
	}.put(body)

	for i, n := range p.nodes {
		n.put(body[s.nodes+uint64(i)*nodeSize:])
	}
	for i, e := range p.entries {
		e.put(body[s.entries+uint64(i)*entrySize:])
	}
	copy(body[s.strings:], p.strtab)
	data := body[s.data:]
	for i, f := range p.files {
		copy(data[p.entries[p.fileEntries[i]].offset:], f.Data)
	}

	// The header goes last, once every size is known.
	header{
		fileSize:   uint32(s.total),
		headerSize: headerSize,
		dataOffset: uint32(s.data),
		dataLength: uint32(p.dataLength),
		mramSize:   uint32(p.mramSize),
		aramSize:   uint32(p.aramSize),
		reserved:   a.Reserved.Header,
	}.put(out)
	return out
}
