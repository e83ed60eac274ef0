package testutil

import (
	"encoding/binary"
	"testing"
)

// RARCEntry describes one entry record for BuildRARC.
type RARCEntry struct {
	Name  string
	ID    uint16
	Flags uint8
	// Node is the node index referenced by directory entries.
	Node uint32
	// Data is the content of file entries.
	Data []byte
	// Size overrides the 0x10 size field of directory entries when set.
	Size uint32
	// Reserved is written to the last word of the record.
	Reserved uint32
}

// RARCNode describes one directory node for BuildRARC. Entries must include
// the "." and ".." records in the position the fixture wants them.
type RARCNode struct {
	Type    string
	Name    string
	Entries []RARCEntry
}

// RARCOptions holds info block values for BuildRARC.
type RARCOptions struct {
	NextFileID  uint16
	SyncFileIDs bool
	// Strings, when set, is written verbatim as the string table; names
	// must already be present in it.
	Strings []byte
}

// File returns a file entry with the usual MRAM flags.
func File(id uint16, name string, data []byte) RARCEntry {
	return RARCEntry{Name: name, ID: id, Flags: 0x11, Data: data}
}

// Dir returns a directory entry pointing at node.
func Dir(name string, node uint32) RARCEntry {
	return RARCEntry{Name: name, ID: 0xFFFF, Flags: 0x02, Node: node}
}

// Dots returns the "." and ".." entries for node self with the given
// parent, or 0xFFFFFFFF for the root.
func Dots(self, parent uint32) []RARCEntry {
	return []RARCEntry{Dir(".", self), Dir("..", parent)}
}

// BuildRARC assembles a RARC archive byte by byte, independent of the
// package under test. Sections are aligned to 32 bytes and each file's
// data is padded to 32 bytes. The string table starts with ".\0..\0" and
// lists names in node order, each node's name before its entries.
func BuildRARC(tb testing.TB, nodes []RARCNode, opts RARCOptions) []byte {
	tb.Helper()
	be := binary.BigEndian

	strtab := opts.Strings
	offsets := map[string]uint32{}
	if strtab == nil {
		strtab = []byte(".\x00..\x00")
		offsets["."], offsets[".."] = 0, 2
	} else {
		start := 0
		for i, c := range strtab {
			if c == 0 {
				if _, ok := offsets[string(strtab[start:i])]; !ok {
					offsets[string(strtab[start:i])] = uint32(start)
				}
				start = i + 1
			}
		}
	}
	nameOffset := func(name string) uint32 {
		if off, ok := offsets[name]; ok {
			return off
		}
		if opts.Strings != nil {
			tb.Fatalf("name %q missing from fixed string table", name)
		}
		off := uint32(len(strtab))
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
		offsets[name] = off
		return off
	}
	hash := func(name string) uint16 {
		var h uint16
		for i := 0; i < len(name); i++ {
			h = h*3 + uint16(name[i])
		}
		return h
	}

	var nodeBuf, entryBuf, data []byte
	var mram uint32
	var entryCount uint32
	for _, n := range nodes {
		rec := make([]byte, 0x10)
		copy(rec, n.Type)
		be.PutUint32(rec[4:], nameOffset(n.Name))
		be.PutUint16(rec[8:], hash(n.Name))
		be.PutUint16(rec[10:], uint16(len(n.Entries)))
		be.PutUint32(rec[12:], entryCount)
		nodeBuf = append(nodeBuf, rec...)

		for _, e := range n.Entries {
			rec := make([]byte, 0x14)
			be.PutUint16(rec[0:], e.ID)
			be.PutUint16(rec[2:], hash(e.Name))
			be.PutUint32(rec[4:], uint32(e.Flags)<<24|nameOffset(e.Name))
			if e.Flags&0x02 != 0 {
				be.PutUint32(rec[8:], e.Node)
				size := e.Size
				if size == 0 {
					size = 0x10
				}
				be.PutUint32(rec[12:], size)
			} else {
				be.PutUint32(rec[8:], uint32(len(data)))
				be.PutUint32(rec[12:], uint32(len(e.Data)))
				data = append(data, e.Data...)
				data = pad32(data)
				if e.Flags&0x10 != 0 {
					mram += uint32(align32(len(e.Data)))
				}
			}
			be.PutUint32(rec[16:], e.Reserved)
			entryBuf = append(entryBuf, rec...)
			entryCount++
		}
	}
	strtab = pad32(strtab)

	nodeOff := uint32(0x20)
	entryOff := uint32(align32(int(nodeOff) + len(nodeBuf)))
	strOff := uint32(align32(int(entryOff) + len(entryBuf)))
	dataOff := uint32(align32(int(strOff) + len(strtab)))
	total := 0x20 + int(dataOff) + len(data)

	out := make([]byte, total)
	copy(out, "RARC")
	be.PutUint32(out[0x04:], uint32(total))
	be.PutUint32(out[0x08:], 0x20)
	be.PutUint32(out[0x0C:], dataOff)
	be.PutUint32(out[0x10:], uint32(len(data)))
	be.PutUint32(out[0x14:], mram)

	info := out[0x20:]
	be.PutUint32(info[0x00:], uint32(len(nodes)))
	be.PutUint32(info[0x04:], nodeOff)
	be.PutUint32(info[0x08:], entryCount)
	be.PutUint32(info[0x0C:], entryOff)
	be.PutUint32(info[0x10:], uint32(len(strtab)))
	be.PutUint32(info[0x14:], strOff)
	be.PutUint16(info[0x18:], opts.NextFileID)
	if opts.SyncFileIDs {
		info[0x1A] = 1
	}

	body := out[0x20:]
	copy(body[nodeOff:], nodeBuf)
	copy(body[entryOff:], entryBuf)
	copy(body[strOff:], strtab)
	copy(body[dataOff:], data)
	return out
}

func align32(n int) int {
	return (n + 31) &^ 31
}

func pad32(b []byte) []byte {
	for len(b)%32 != 0 {
		b = append(b, 0)
	}
	return b
}
