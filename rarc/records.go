package rarc

import (
	"encoding/binary"
	"fmt"
)

// Magic is the tag at the start of every RARC archive.
const Magic = "RARC"

// On-disk sizes.
const (
	headerSize = 0x20
	infoSize   = 0x20
	nodeSize   = 0x10
	entrySize  = 0x14

	// sectionAlign is the alignment of each section and of each file's data.
	sectionAlign = 0x20

	// dirEntrySize is the size field written on directory entries.
	dirEntrySize = 0x10

	// dirID is the ID field of directory entries.
	dirID = 0xFFFF

	// noParent is the ".." target of the root directory.
	noParent = 0xFFFFFFFF

	maxNameOffset = 0xFFFFFF
)

var be = binary.BigEndian

// header is the 0x20-byte block at offset 0.
type header struct {
	fileSize   uint32
	headerSize uint32
	dataOffset uint32
	dataLength uint32
	mramSize   uint32
	aramSize   uint32
	reserved   uint32
}

func readHeader(b []byte) header {
	return header{
		fileSize:   be.Uint32(b[0x04:]),
		headerSize: be.Uint32(b[0x08:]),
		dataOffset: be.Uint32(b[0x0C:]),
		dataLength: be.Uint32(b[0x10:]),
		mramSize:   be.Uint32(b[0x14:]),
		aramSize:   be.Uint32(b[0x18:]),
		reserved:   be.Uint32(b[0x1C:]),
	}
}

func (h header) put(b []byte) {
	copy(b, Magic)
	be.PutUint32(b[0x04:], h.fileSize)
	be.PutUint32(b[0x08:], h.headerSize)
	be.PutUint32(b[0x0C:], h.dataOffset)
	be.PutUint32(b[0x10:], h.dataLength)
	be.PutUint32(b[0x14:], h.mramSize)
	be.PutUint32(b[0x18:], h.aramSize)
	be.PutUint32(b[0x1C:], h.reserved)
}

// info is the 0x20-byte block following the header. Offsets are relative
// to the end of the header.
type info struct {
	nodeCount     uint32
	nodeOffset    uint32
	entryCount    uint32
	entryOffset   uint32
	stringsLength uint32
	stringsOffset uint32
	nextFileID    uint16
	syncFileIDs   bool
	reserved      [5]byte
}

func readInfo(b []byte) info {
	in := info{
		nodeCount:     be.Uint32(b[0x00:]),
		nodeOffset:    be.Uint32(b[0x04:]),
		entryCount:    be.Uint32(b[0x08:]),
		entryOffset:   be.Uint32(b[0x0C:]),
		stringsLength: be.Uint32(b[0x10:]),
		stringsOffset: be.Uint32(b[0x14:]),
		nextFileID:    be.Uint16(b[0x18:]),
		syncFileIDs:   b[0x1A] != 0,
	}
	copy(in.reserved[:], b[0x1B:0x20])
	return in
}

func (in info) put(b []byte) {
	be.PutUint32(b[0x00:], in.nodeCount)
	be.PutUint32(b[0x04:], in.nodeOffset)
	be.PutUint32(b[0x08:], in.entryCount)
	be.PutUint32(b[0x0C:], in.entryOffset)
	be.PutUint32(b[0x10:], in.stringsLength)
	be.PutUint32(b[0x14:], in.stringsOffset)
	be.PutUint16(b[0x18:], in.nextFileID)
	if in.syncFileIDs {
		b[0x1A] = 1
	}
	copy(b[0x1B:0x20], in.reserved[:])
}

// nodeRecord describes one directory.
type nodeRecord struct {
	typ        [4]byte
	nameOffset uint32
	nameHash   uint16
	entryCount uint16
	firstEntry uint32
}

func readNode(b []byte) nodeRecord {
	n := nodeRecord{
		nameOffset: be.Uint32(b[0x04:]),
		nameHash:   be.Uint16(b[0x08:]),
		entryCount: be.Uint16(b[0x0A:]),
		firstEntry: be.Uint32(b[0x0C:]),
	}
	copy(n.typ[:], b[:4])
	return n
}

func (n nodeRecord) put(b []byte) {
	copy(b, n.typ[:])
	be.PutUint32(b[0x04:], n.nameOffset)
	be.PutUint16(b[0x08:], n.nameHash)
	be.PutUint16(b[0x0A:], n.entryCount)
	be.PutUint32(b[0x0C:], n.firstEntry)
}

// entryRecord is a file or directory reference. For directories offset is a
// node index; for files it is relative to the data section.
type entryRecord struct {
	id         uint16
	nameHash   uint16
	flags      uint8
	nameOffset uint32
	offset     uint32
	size       uint32
	reserved   uint32
}

func readEntry(b []byte) entryRecord {
	return entryRecord{
		id:         be.Uint16(b[0x00:]),
		nameHash:   be.Uint16(b[0x02:]),
		flags:      b[0x04],
		nameOffset: be.Uint32(b[0x04:]) & maxNameOffset,
		offset:     be.Uint32(b[0x08:]),
		size:       be.Uint32(b[0x0C:]),
		reserved:   be.Uint32(b[0x10:]),
	}
}

func (e entryRecord) put(b []byte) {
	be.PutUint16(b[0x00:], e.id)
	be.PutUint16(b[0x02:], e.nameHash)
	be.PutUint32(b[0x04:], uint32(e.flags)<<24|e.nameOffset&maxNameOffset)
	be.PutUint32(b[0x08:], e.offset)
	be.PutUint32(b[0x0C:], e.size)
	be.PutUint32(b[0x10:], e.reserved)
}

func (e entryRecord) isDir() bool {
	return e.flags&FlagDirectory != 0
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
