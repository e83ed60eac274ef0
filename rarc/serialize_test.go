package rarc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cube/internal/testutil"
)

func TestSerializeSingleFile(t *testing.T) {
	t.Parallel()

	a := NewArchive("root")
	_, err := a.Root.AddFile("test.bin", []byte{1, 2, 3})
	require.NoError(t, err)

	out, err := Serialize(a)
	require.NoError(t, err)

	be := binary.BigEndian
	assert.Equal(t, Magic, string(out[:4]))
	assert.Equal(t, uint32(len(out)), be.Uint32(out[0x04:]))
	assert.Equal(t, 0xE0, len(out))
	assert.Equal(t, uint32(0x20), be.Uint32(out[0x08:]), "header size")
	assert.Equal(t, uint32(0xA0), be.Uint32(out[0x0C:]), "data offset")
	assert.Equal(t, uint32(0x20), be.Uint32(out[0x10:]), "data length")
	assert.Equal(t, uint32(0x20), be.Uint32(out[0x14:]), "MRAM size")
	assert.Equal(t, uint32(0), be.Uint32(out[0x18:]), "ARAM size")

	assert.Equal(t, uint32(1), be.Uint32(out[0x20:]), "node count")
	assert.Equal(t, uint32(0x20), be.Uint32(out[0x24:]), "node offset")
	assert.Equal(t, uint32(3), be.Uint32(out[0x28:]), "entry count")
	assert.Equal(t, uint32(0x40), be.Uint32(out[0x2C:]), "entry offset")
	assert.Equal(t, uint32(0x20), be.Uint32(out[0x30:]), "string table length")
	assert.Equal(t, uint32(0x80), be.Uint32(out[0x34:]), "string table offset")
	assert.Equal(t, uint16(3), be.Uint16(out[0x38:]), "next file ID")
	assert.Equal(t, byte(1), out[0x3A], "sync flag")

	assert.Equal(t, "ROOT", string(out[0x40:0x44]))
	assert.Equal(t, uint32(5), be.Uint32(out[0x44:]), "root name offset")
	assert.Equal(t, Hash("root"), be.Uint16(out[0x48:]))

	file := out[0x60+2*0x14:]
	assert.Equal(t, uint16(2), be.Uint16(file[0:]), "synchronized ID is the entry index")
	assert.Equal(t, uint8(0x11), file[4])
	assert.Equal(t, uint32(3), be.Uint32(file[0x0C:]))

	assert.Equal(t, []byte(".\x00..\x00root\x00test.bin\x00"), out[0xA0:0xA0+19])
	assert.Equal(t, []byte{1, 2, 3}, out[0xC0:0xC3])
	assert.Equal(t, make([]byte, 29), out[0xC3:], "file data is zero padded")

	back, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, a.Equal(back))
	n, ok := back.Lookup("test.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, n.(*File).Data)
}

func TestSerializeEmptyRoot(t *testing.T) {
	t.Parallel()

	out, err := Serialize(NewArchive("empty"))
	require.NoError(t, err)

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "empty", back.Root.Name)
	assert.Empty(t, back.Root.Entries)
}

func TestRoundTripFixtures(t *testing.T) {
	t.Parallel()

	fixtures := map[string][]byte{
		"simple":   simpleFixture(t),
		"nintendo": nintendoFixture(t),
	}
	for name, data := range fixtures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a, err := Parse(data)
			require.NoError(t, err)
			out, err := a.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestRoundTripEntryTails(t *testing.T) {
	t.Parallel()

	dots := testutil.Dots(1, 0)
	dots[0].Reserved, dots[1].Size = 0xAAAA0001, 0x20
	sub := testutil.Dir("sub", 1)
	sub.Size, sub.Reserved = 0x40, 0xBBBB0002
	file := testutil.File(2, "a.bin", []byte("alpha"))
	file.Reserved = 0xCCCC0003

	data := testutil.BuildRARC(t, []testutil.RARCNode{
		{Type: "ROOT", Name: "root", Entries: append(testutil.Dots(0, noParentNode), file, sub)},
		{Type: "SUB ", Name: "sub", Entries: dots},
	}, testutil.RARCOptions{NextFileID: 5, SyncFileIDs: true})

	a, err := Parse(data)
	require.NoError(t, err)
	n, ok := a.Lookup("a.bin")
	require.True(t, ok)
	assert.Equal(t, uint32(0xCCCC0003), n.(*File).Reserved)
	n, ok = a.Lookup("sub")
	require.True(t, ok)
	assert.Equal(t, uint32(0x40), n.(*Directory).EntrySize)
	assert.Equal(t, uint32(0xBBBB0002), n.(*Directory).Reserved)

	out, err := Serialize(a)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRoundTripZeroFileFlags(t *testing.T) {
	t.Parallel()

	zero := testutil.File(2, "zero.bin", []byte("z"))
	zero.Flags = 0
	data := testutil.BuildRARC(t, []testutil.RARCNode{
		{Type: "ROOT", Name: "root", Entries: append(testutil.Dots(0, noParentNode), zero)},
	}, testutil.RARCOptions{NextFileID: 3, SyncFileIDs: true})

	a, err := Parse(data)
	require.NoError(t, err)
	n, ok := a.Lookup("zero.bin")
	require.True(t, ok)
	assert.Zero(t, n.(*File).Flags)

	out, err := Serialize(a)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// Files built in memory still take the default.
	b := NewArchive("root")
	_, err = b.Root.AddFile("zero.bin", []byte("z"))
	require.NoError(t, err)
	b.Root.Entries[0].(*File).Flags = 0
	out, err = Serialize(b)
	require.NoError(t, err)
	entry := out[0x20+binary.BigEndian.Uint32(out[0x2C:])+2*entrySize:]
	assert.Equal(t, DefaultFileFlags, entry[4])
}

func TestSerializeIdempotent(t *testing.T) {
	t.Parallel()

	for _, layout := range []Layout{
		{},
		{DotEntries: DotEntriesLast},
		{NodeOrder: NodeOrderBreadthFirst},
		{DotEntries: DotEntriesLast, NodeOrder: NodeOrderBreadthFirst},
	} {
		for _, sync := range []bool{true, false} {
			a := sampleArchive(t)
			a.Layout = layout
			a.SyncFileIDs = sync

			first, err := Serialize(a)
			require.NoError(t, err)
			parsed, err := Parse(first)
			require.NoError(t, err)
			assert.Equal(t, layout, parsed.Layout)
			assert.True(t, a.Equal(parsed))

			second, err := Serialize(parsed)
			require.NoError(t, err)
			assert.Equal(t, first, second, "layout %+v sync %v", layout, sync)
		}
	}
}

// sampleArchive builds:
//
//	files/
//	  readme.txt
//	  a/
//	    data.bin
//	    b/
//	  c/
//	    data.bin
func sampleArchive(t *testing.T) *Archive {
	t.Helper()
	a := NewArchive("files")
	_, err := a.Root.AddFile("readme.txt", []byte("hello"))
	require.NoError(t, err)
	dirA, err := a.Root.AddDir("a")
	require.NoError(t, err)
	_, err = dirA.AddFile("data.bin", bytes.Repeat([]byte{7}, 33))
	require.NoError(t, err)
	_, err = dirA.AddDir("b")
	require.NoError(t, err)
	dirC, err := a.Root.AddDir("c")
	require.NoError(t, err)
	_, err = dirC.AddFile("data.bin", nil)
	require.NoError(t, err)
	return a
}

func TestSerializeDeduplicatesNames(t *testing.T) {
	t.Parallel()

	out, err := Serialize(sampleArchive(t))
	require.NoError(t, err)

	be := binary.BigEndian
	strOff := 0x20 + be.Uint32(out[0x34:])
	strLen := be.Uint32(out[0x30:])
	table := out[strOff : strOff+strLen]
	assert.Equal(t, 1, bytes.Count(table, []byte("data.bin\x00")))
	assert.True(t, bytes.HasPrefix(table, []byte(".\x00..\x00files\x00")))
	assert.Zero(t, strLen%32)
}

func TestSerializeNodeOrder(t *testing.T) {
	t.Parallel()

	nodeNames := func(out []byte) []string {
		be := binary.BigEndian
		count := be.Uint32(out[0x20:])
		strOff := 0x20 + be.Uint32(out[0x34:])
		var names []string
		for i := range count {
			off := be.Uint32(out[0x40+i*0x10+4:])
			name := out[strOff+off:]
			names = append(names, string(name[:bytes.IndexByte(name, 0)]))
		}
		return names
	}

	a := sampleArchive(t)
	out, err := Serialize(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"files", "a", "b", "c"}, nodeNames(out))

	a.Layout.NodeOrder = NodeOrderBreadthFirst
	out, err = Serialize(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"files", "a", "c", "b"}, nodeNames(out))
}

func TestSerializeDotEntries(t *testing.T) {
	t.Parallel()

	be := binary.BigEndian
	entryName := func(out []byte, i uint32) (string, uint32) {
		strOff := 0x20 + be.Uint32(out[0x34:])
		e := out[0x20+be.Uint32(out[0x2C:])+i*0x14:]
		name := out[strOff+be.Uint32(e[4:])&0xFFFFFF:]
		return string(name[:bytes.IndexByte(name, 0)]), be.Uint32(e[8:])
	}

	a := NewArchive("root")
	sub, err := a.Root.AddDir("sub")
	require.NoError(t, err)
	_, err = sub.AddFile("x", []byte("x"))
	require.NoError(t, err)

	out, err := Serialize(a)
	require.NoError(t, err)
	name, target := entryName(out, 0)
	assert.Equal(t, ".", name)
	assert.Equal(t, uint32(0), target)
	name, target = entryName(out, 1)
	assert.Equal(t, "..", name)
	assert.Equal(t, uint32(0xFFFFFFFF), target)
	name, target = entryName(out, 4)
	assert.Equal(t, "..", name, "second node's parent entry")
	assert.Equal(t, uint32(0), target)

	a.Layout.DotEntries = DotEntriesLast
	out, err = Serialize(a)
	require.NoError(t, err)
	name, target = entryName(out, 0)
	assert.Equal(t, "sub", name)
	assert.Equal(t, uint32(1), target)
	name, _ = entryName(out, 1)
	assert.Equal(t, ".", name)
	name, target = entryName(out, 2)
	assert.Equal(t, "..", name)
	assert.Equal(t, uint32(0xFFFFFFFF), target)
}

func TestSerializeFileIDs(t *testing.T) {
	t.Parallel()

	ids := func(a *Archive) []uint16 {
		out, err := Serialize(a)
		require.NoError(t, err)
		back, err := Parse(out)
		require.NoError(t, err)
		var got []uint16
		for _, f := range back.Files() {
			got = append(got, f.ID)
		}
		return got
	}

	a := sampleArchive(t)
	// Entry indices: files 0-4 (. .. readme a c), a 5-8 (. .. data b),
	// b 9-10, c 11-13 (. .. data).
	assert.Equal(t, []uint16{2, 7, 13}, ids(a))

	a.SyncFileIDs = false
	assert.Equal(t, []uint16{0, 1, 2}, ids(a))

	a.KeepFileIDs = true
	a.NextFileID = 99
	for _, f := range a.Files() {
		f.ID = 40
	}
	assert.Equal(t, []uint16{40, 40, 40}, ids(a))
}

func TestSerializeMemorySizes(t *testing.T) {
	t.Parallel()

	a := NewArchive("root")
	mram, err := a.Root.AddFile("mram.bin", make([]byte, 40))
	require.NoError(t, err)
	mram.Flags = FlagFile | FlagPreloadMRAM
	aram, err := a.Root.AddFile("aram.bin", make([]byte, 10))
	require.NoError(t, err)
	aram.Flags = FlagFile | FlagPreloadARAM
	dvd, err := a.Root.AddFile("dvd.bin", make([]byte, 100))
	require.NoError(t, err)
	dvd.Flags = FlagFile | FlagLoadFromDVD

	out, err := Serialize(a)
	require.NoError(t, err)
	be := binary.BigEndian
	assert.Equal(t, uint32(64+32+128), be.Uint32(out[0x10:]), "data length")
	assert.Equal(t, uint32(64), be.Uint32(out[0x14:]), "MRAM size")
	assert.Equal(t, uint32(32), be.Uint32(out[0x18:]), "ARAM size")
}

func TestSerializeReusesStringTable(t *testing.T) {
	t.Parallel()

	a := NewArchive("root")
	_, err := a.Root.AddFile("old.bin", []byte("o"))
	require.NoError(t, err)
	a.StringTable = []byte(".\x00..\x00old.bin\x00root\x00")

	_, err = a.Root.AddFile("new.bin", []byte("n"))
	require.NoError(t, err)
	out, err := Serialize(a)
	require.NoError(t, err)

	be := binary.BigEndian
	strOff := 0x20 + be.Uint32(out[0x34:])
	table := out[strOff : strOff+be.Uint32(out[0x30:])]
	assert.True(t, bytes.HasPrefix(table, []byte(".\x00..\x00old.bin\x00root\x00new.bin\x00")))
	assert.Equal(t, uint32(13), be.Uint32(out[0x44:]), "root keeps its original offset")

	back, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, a.Equal(back))
}

func TestSerializeInvariantViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() *Archive
	}{
		{"nil archive", func() *Archive { return nil }},
		{"nil root", func() *Archive { return &Archive{} }},
		{"empty root name", func() *Archive { return NewArchive("") }},
		{"nil entry", func() *Archive {
			a := NewArchive("root")
			a.Root.Entries = append(a.Root.Entries, nil)
			return a
		}},
		{"nil file", func() *Archive {
			a := NewArchive("root")
			a.Root.Entries = append(a.Root.Entries, (*File)(nil))
			return a
		}},
		{"empty file name", func() *Archive {
			a := NewArchive("root")
			a.Root.Entries = append(a.Root.Entries, &File{})
			return a
		}},
		{"dot name", func() *Archive {
			a := NewArchive("root")
			a.Root.Entries = append(a.Root.Entries, &Directory{Name: "."})
			return a
		}},
		{"NUL in name", func() *Archive {
			a := NewArchive("root")
			a.Root.Entries = append(a.Root.Entries, &File{Name: "a\x00b"})
			return a
		}},
		{"directory reachable twice", func() *Archive {
			a := NewArchive("root")
			sub := &Directory{Name: "sub"}
			a.Root.Entries = append(a.Root.Entries, sub, sub)
			return a
		}},
		{"cycle", func() *Archive {
			a := NewArchive("root")
			sub, _ := a.Root.AddDir("sub")
			sub.Entries = append(sub.Entries, a.Root)
			return a
		}},
		{"dangling parent", func() *Archive {
			a := NewArchive("root")
			other := NewArchive("other")
			sub, _ := other.Root.AddDir("sub")
			a.Root.Entries = append(a.Root.Entries, sub)
			return a
		}},
		{"file with directory flag", func() *Archive {
			a := NewArchive("root")
			f, _ := a.Root.AddFile("f", nil)
			f.Flags = FlagFile | FlagDirectory
			return a
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := Serialize(tt.build())
			require.ErrorIs(t, err, ErrInvariantViolation)
			assert.Nil(t, out)
		})
	}
}

func TestSerializeDoesNotMutate(t *testing.T) {
	t.Parallel()

	a := sampleArchive(t)
	a.SyncFileIDs = false
	for _, f := range a.Files() {
		f.ID = 500
	}
	_, err := Serialize(a)
	require.NoError(t, err)
	for _, f := range a.Files() {
		assert.Equal(t, uint16(500), f.ID)
	}
	assert.Nil(t, a.StringTable)
}
