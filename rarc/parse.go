package rarc

import (
	"bytes"
	"fmt"
	"log/slog"
)

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	logger *slog.Logger
}

// ParseWithLogger sets a logger for debug output.
func ParseWithLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

// Parse decodes a RARC archive into an owned tree. File data is copied out
// of data, which is not retained.
//
// Parse returns ErrMalformedHeader for a bad or inconsistent header,
// ErrInvalidOffset for any reference outside the buffer or its section, and
// ErrCyclicDirectory when a directory node is reachable more than once.
// No partial archive is returned.
func Parse(data []byte, opts ...ParseOption) (*Archive, error) {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &parser{data: data, logger: cfg.logger}
	return p.parse()
}

type parser struct {
	data   []byte
	logger *slog.Logger

	info     info
	nodes    []byte
	entries  []byte
	strtab   []byte
	fileData []byte

	visited []bool
	dots    DotPlacement
	files   int
}

// log returns the logger, falling back to a discard logger if nil.
func (p *parser) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

func (p *parser) parse() (*Archive, error) {
	if len(p.data) < headerSize+infoSize {
		return nil, fmt.Errorf("%w: archive is %d bytes, need at least %d", ErrMalformedHeader, len(p.data), headerSize+infoSize)
	}
	if string(p.data[:4]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedHeader, p.data[:4])
	}
	h := readHeader(p.data)
	if uint64(h.fileSize) != uint64(len(p.data)) {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrMalformedHeader, h.fileSize, len(p.data))
	}
	if h.headerSize != headerSize {
		return nil, fmt.Errorf("%w: header size %#x, want %#x", ErrMalformedHeader, h.headerSize, headerSize)
	}
	p.info = readInfo(p.data[headerSize:])
	if p.info.nodeCount == 0 {
		return nil, fmt.Errorf("%w: archive has no directory nodes", ErrMalformedHeader)
	}

	body := p.data[headerSize:]
	var err error
	if p.nodes, err = section(body, "node table", p.info.nodeOffset, p.info.nodeCount, nodeSize); err != nil {
		return nil, err
	}
	if p.entries, err = section(body, "entry table", p.info.entryOffset, p.info.entryCount, entrySize); err != nil {
		return nil, err
	}
	if p.strtab, err = section(body, "string table", p.info.stringsOffset, p.info.stringsLength, 1); err != nil {
		return nil, err
	}
	if p.fileData, err = section(body, "file data", h.dataOffset, h.dataLength, 1); err != nil {
		return nil, err
	}

	p.visited = make([]bool, p.info.nodeCount)
	root, err := p.readDir(0, nil, "", FlagDirectory, entryTail{})
	if err != nil {
		return nil, err
	}

	a := &Archive{
		Root:        root,
		SyncFileIDs: p.info.syncFileIDs,
		NextFileID:  p.info.nextFileID,
		Reserved: Reserved{
			Header: h.reserved,
			Info:   p.info.reserved,
		},
	}
	order, ok := detectNodeOrder(root)
	if !ok {
		p.log().Debug("node order matches neither depth-first nor breadth-first")
	}
	a.Layout = Layout{DotEntries: p.dots, NodeOrder: order}
	p.retainOriginals(a)

	unreachable := 0
	for _, v := range p.visited {
		if !v {
			unreachable++
		}
	}
	p.log().Debug("parsed archive",
		"size", len(p.data),
		"nodes", p.info.nodeCount,
		"entries", p.info.entryCount,
		"files", p.files,
		"unreachable_nodes", unreachable,
		"dot_entries", a.Layout.DotEntries.String(),
		"node_order", a.Layout.NodeOrder.String(),
		"keep_file_ids", a.KeepFileIDs,
		"keep_string_table", a.StringTable != nil)
	return a, nil
}

// section returns body[off : off+count*size].
func section(body []byte, what string, off, count uint32, size uint64) ([]byte, error) {
	end := uint64(off) + uint64(count)*size
	if end > uint64(len(body)) {
		return nil, fmt.Errorf("%w: %s [%#x, %#x) exceeds %#x bytes", ErrInvalidOffset, what, off, end, len(body))
	}
	return body[off:end], nil
}

// readDir decodes node idx and, recursively, its subdirectories. name, flags
// and tail come from the referencing entry; the root takes its name from the
// node record.
func (p *parser) readDir(idx uint32, parent *Directory, name string, flags uint8, tail entryTail) (*Directory, error) {
	if p.visited[idx] {
		return nil, fmt.Errorf("%w: node %d is reached more than once", ErrCyclicDirectory, idx)
	}
	p.visited[idx] = true

	rec := readNode(p.nodes[uint64(idx)*nodeSize:])
	nodeName, err := p.name(rec.nameOffset)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", idx, err)
	}
	if parent == nil {
		name = nodeName
	} else if nodeName != name {
		p.log().Debug("node name differs from its entry", "node", idx, "node_name", nodeName, "entry_name", name)
	}
	d := &Directory{
		Name:   name,
		Type:   rec.typ,
		Flags:  flags,
		ID:     int(idx),
		parent: parent,
	}
	if parent != nil {
		d.EntrySize, d.Reserved = tail.size, tail.reserved
	}

	first, count := uint64(rec.firstEntry), uint64(rec.entryCount)
	if first+count > uint64(p.info.entryCount) {
		return nil, fmt.Errorf("%w: node %d entries [%d, %d) exceed %d", ErrInvalidOffset, idx, first, first+count, p.info.entryCount)
	}
	for j := first; j < first+count; j++ {
		e := readEntry(p.entries[j*entrySize:])
		ename, err := p.name(e.nameOffset)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", j, err)
		}
		if e.isDir() && (ename == "." || ename == "..") {
			if idx == 0 && ename == "." && j != first {
				p.dots = DotEntriesLast
			}
			dot := 0
			if ename == ".." {
				dot = 1
			}
			d.dots[dot] = entryTail{size: e.size, reserved: e.reserved}
			continue
		}
		if e.isDir() {
			if e.offset >= p.info.nodeCount {
				return nil, fmt.Errorf("%w: entry %d references node %d of %d", ErrInvalidOffset, j, e.offset, p.info.nodeCount)
			}
			sub, err := p.readDir(e.offset, d, ename, e.flags, entryTail{size: e.size, reserved: e.reserved})
			if err != nil {
				return nil, err
			}
			d.Entries = append(d.Entries, sub)
			continue
		}
		if uint64(e.offset)+uint64(e.size) > uint64(len(p.fileData)) {
			return nil, fmt.Errorf("%w: file %q data [%#x, +%#x) exceeds data section of %#x bytes",
				ErrInvalidOffset, ename, e.offset, e.size, len(p.fileData))
		}
		d.Entries = append(d.Entries, &File{
			Name:     ename,
			ID:       e.id,
			Flags:    e.flags,
			Reserved: e.reserved,
			Data:     bytes.Clone(p.fileData[e.offset : e.offset+e.size]),
			parsed:   true,
		})
		p.files++
	}
	return d, nil
}

// name reads the NUL-terminated string at off in the string table.
func (p *parser) name(off uint32) (string, error) {
	if uint64(off) >= uint64(len(p.strtab)) {
		return "", fmt.Errorf("%w: name offset %#x exceeds string table of %#x bytes", ErrInvalidOffset, off, len(p.strtab))
	}
	end := bytes.IndexByte(p.strtab[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: name at %#x is not NUL-terminated", ErrInvalidOffset, off)
	}
	return string(p.strtab[off : off+uint32(end)]), nil //nolint:gosec // end < len(strtab)
}

// retainOriginals keeps the on-disk file IDs and string table on a only
// when serializing the tree with fresh values would not reproduce them.
func (p *parser) retainOriginals(a *Archive) {
	fresh, err := buildPlan(a)
	if err != nil {
		// The tree cannot be re-serialized as parsed, e.g. it has an empty
		// name. Keep everything so that edits stay as close as possible.
		a.KeepFileIDs = true
		a.StringTable = bytes.Clone(p.strtab)
		return
	}
	if !bytes.Equal(fresh.strtab, p.strtab) {
		a.StringTable = bytes.Clone(p.strtab)
	}
	if fresh.nextFileID != p.info.nextFileID || uint64(len(fresh.entries)) != uint64(p.info.entryCount) {
		a.KeepFileIDs = true
		return
	}
	for i, rec := range fresh.entries {
		if rec.isDir() {
			continue
		}
		if be.Uint16(p.entries[i*entrySize:]) != rec.id {
			a.KeepFileIDs = true
			return
		}
	}
}
