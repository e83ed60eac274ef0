package yaz0

import (
	"fmt"
	"math"
)

// Compress encodes src as a Yaz0 stream.
//
// Compression always succeeds for inputs whose length fits the 32-bit size
// field; larger inputs return ErrSizeOverflow.
func Compress(src []byte, opts ...Option) ([]byte, error) {
	if uint64(len(src)) > math.MaxUint32 {
		return nil, fmt.Errorf("yaz0: input of %d bytes: %w", len(src), ErrSizeOverflow)
	}
	cfg := newConfig(opts)

	out := make([]byte, 0, MaxCompressedLen(len(src)))
	out = appendHeader(out, Header{
		Size:      uint32(len(src)), //nolint:gosec // checked above
		Alignment: cfg.alignment,
	})

	w := tokenWriter{out: out}
	m := newMatcher(src, cfg)

	var (
		pending    bool
		pendDist   int
		pendLength int
	)
	for pos := 0; pos < len(src); {
		var dist, length int
		if pending {
			dist, length = pendDist, pendLength
			pending = false
		} else {
			dist, length = m.find(pos)
		}

		if length == 0 {
			w.literal(src[pos])
			pos++
			continue
		}

		if cfg.level == LevelLookahead && length < cfg.maxMatch && pos+1 < len(src) {
			nextDist, nextLength := m.find(pos + 1)
			if nextLength > length {
				w.literal(src[pos])
				pos++
				pending, pendDist, pendLength = true, nextDist, nextLength
				continue
			}
		}

		w.match(dist, length)
		pos += length
	}
	return w.out, nil
}

// tokenWriter packs literals and back-references behind flag bytes.
type tokenWriter struct {
	out     []byte
	flagPos int
	mask    byte
}

// slot reserves a flag bit for the next token, starting a new group when the
// current flag byte is full.
func (w *tokenWriter) slot() {
	if w.mask == 0 {
		w.flagPos = len(w.out)
		w.out = append(w.out, 0)
		w.mask = 0x80
	}
}

func (w *tokenWriter) literal(b byte) {
	w.slot()
	w.out[w.flagPos] |= w.mask
	w.out = append(w.out, b)
	w.mask >>= 1
}

func (w *tokenWriter) match(dist, length int) {
	w.slot()
	d := dist - 1
	if length <= maxShortMatch {
		w.out = append(w.out, byte(length-2)<<4|byte(d>>8), byte(d))
	} else {
		w.out = append(w.out, byte(d>>8), byte(d), byte(length-0x12))
	}
	w.mask >>= 1
}

func fmtParams(c config) string {
	return fmt.Sprintf("yaz0;window=%d;min=%d;max=%d;level=%s;align=%d",
		c.window, c.minMatch, c.maxMatch, c.level, c.alignment)
}

// hashBits sizes the hash chain head table.
const hashBits = 15

// matcher finds back-references using hash chains over 3-byte prefixes.
//
// prev is a ring indexed by position modulo MaxDistance; every position
// still inside the window owns its slot, and chains are followed only while
// positions stay inside the window.
type matcher struct {
	src      []byte
	window   int
	minMatch int
	maxMatch int
	head     []int
	prev     []int
	inserted int
}

func newMatcher(src []byte, cfg config) *matcher {
	m := &matcher{
		src:      src,
		window:   cfg.window,
		minMatch: cfg.minMatch,
		maxMatch: cfg.maxMatch,
		head:     make([]int, 1<<hashBits),
		prev:     make([]int, MaxDistance),
	}
	for i := range m.head {
		m.head[i] = -1
	}
	return m
}

func hash3(b []byte) uint32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return (v * 2654435761) >> (32 - hashBits)
}

// insertUpTo adds every position before pos to the hash chains.
func (m *matcher) insertUpTo(pos int) {
	for ; m.inserted < pos; m.inserted++ {
		i := m.inserted
		if i+MinMatch > len(m.src) {
			continue
		}
		h := hash3(m.src[i:])
		m.prev[i%MaxDistance] = m.head[h]
		m.head[h] = i
	}
}

// find returns the longest match for the bytes at pos, or a zero length when
// no match of at least minMatch bytes exists. Candidates are visited closest
// first and only a strictly longer match replaces the best one, so equal
// lengths resolve to the smallest distance.
func (m *matcher) find(pos int) (dist, length int) {
	m.insertUpTo(pos)

	limit := min(m.maxMatch, len(m.src)-pos)
	if limit < m.minMatch {
		return 0, 0
	}

	lowest := pos - m.window
	for c := m.head[hash3(m.src[pos:])]; c >= 0 && c >= lowest; c = m.prev[c%MaxDistance] {
		if m.src[c+length] != m.src[pos+length] {
			continue
		}
		n := matchLen(m.src, c, pos, limit)
		if n > length {
			dist, length = pos-c, n
			if n == limit {
				break
			}
		}
	}

	if length < m.minMatch {
		return 0, 0
	}
	return dist, length
}

// matchLen counts equal bytes at a and b, up to limit. b is ahead of a, so
// the compared ranges may overlap.
func matchLen(src []byte, a, b, limit int) int {
	n := 0
	for n < limit && src[a+n] == src[b+n] {
		n++
	}
	return n
}
