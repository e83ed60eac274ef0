package rarc

import (
	"bytes"

	"github.com/meigma/cube/internal/format"
)

// dotNames is the prefix of every freshly built string table.
const dotNames = ".\x00..\x00"

// stringTable accumulates NUL-terminated names, reusing the offset of a name
// that is already present.
type stringTable struct {
	buf     []byte
	offsets map[string]uint32
}

// newStringTable starts a table from seed, or from ".\0..\0" when seed is
// nil. Names found at the start of a seed string win over names found at a
// suffix of a longer string.
func newStringTable(seed []byte) *stringTable {
	if seed == nil {
		return &stringTable{
			buf:     []byte(dotNames),
			offsets: map[string]uint32{".": 0, "..": 2},
		}
	}
	t := &stringTable{
		buf:     bytes.Clone(seed),
		offsets: make(map[string]uint32),
	}
	var suffixes []int
	start := 0
	for i, c := range t.buf {
		if c != 0 {
			continue
		}
		t.index(start, i)
		for j := start + 1; j < i; j++ {
			suffixes = append(suffixes, j)
		}
		start = i + 1
	}
	for _, j := range suffixes {
		end := j + bytes.IndexByte(t.buf[j:], 0)
		t.index(j, end)
	}
	return t
}

func (t *stringTable) index(start, end int) {
	name := string(t.buf[start:end])
	if _, ok := t.offsets[name]; !ok {
		t.offsets[name] = uint32(start) //nolint:gosec // seed comes from a 32-bit length
	}
}

// offset returns the offset of name, appending it if needed.
func (t *stringTable) offset(name string) (uint32, error) {
	if off, ok := t.offsets[name]; ok {
		return off, nil
	}
	if len(t.buf) > maxNameOffset {
		return 0, invariantf("string table exceeds %d bytes", maxNameOffset)
	}
	off := uint32(len(t.buf)) //nolint:gosec // bounded above
	t.buf = append(t.buf, name...)
	t.buf = append(t.buf, 0)
	t.offsets[name] = off
	return off, nil
}

// bytes returns the table padded to the section alignment.
func (t *stringTable) bytes() []byte {
	return format.Pad(bytes.Clone(t.buf), sectionAlign)
}
