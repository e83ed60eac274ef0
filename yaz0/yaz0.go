package yaz0

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/meigma/cube/internal/format"
)

// Format constants.
const (
	// Magic is the tag at the start of every Yaz0 stream.
	Magic = "Yaz0"

	// HeaderSize is the size of the fixed stream header in bytes.
	HeaderSize = 0x10

	// MaxDistance is the furthest a back-reference can reach.
	MaxDistance = 0x1000

	// MinMatch is the shortest back-reference the format can encode.
	MinMatch = 3

	// MaxMatch is the longest back-reference the format can encode.
	MaxMatch = 0xFF + 0x12

	// maxShortMatch is the longest match a 2-byte token can carry.
	maxShortMatch = 0x0F + 2
)

// Sentinel errors re-exported from internal/format.
var (
	// ErrMalformedHeader is returned when the magic does not match or the
	// input is shorter than the header.
	ErrMalformedHeader = format.ErrMalformedHeader

	// ErrTruncatedStream is returned when the token stream ends before the
	// declared size has been produced.
	ErrTruncatedStream = format.ErrTruncatedStream

	// ErrInvalidBackReference is returned when a back-reference reaches
	// before the start of the output.
	ErrInvalidBackReference = format.ErrInvalidBackReference

	// ErrSizeOverflow is returned when a size exceeds a configured or
	// representable limit.
	ErrSizeOverflow = format.ErrSizeOverflow
)

// Header is the fixed header of a Yaz0 stream.
type Header struct {
	// Size is the decoded size in bytes.
	Size uint32

	// Alignment is the first reserved word. Later revisions of the format
	// store the required alignment of the decoded buffer here; GameCube
	// streams leave it zero.
	Alignment uint32

	// Reserved is the second reserved word, preserved verbatim.
	Reserved uint32
}

// IsCompressed reports whether data starts with the Yaz0 magic.
func IsCompressed(data []byte) bool {
	return len(data) >= len(Magic) && bytes.Equal(data[:len(Magic)], []byte(Magic))
}

// ParseHeader reads the fixed header from the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("yaz0: %d bytes is shorter than the header: %w", len(data), ErrMalformedHeader)
	}
	if !IsCompressed(data) {
		return Header{}, fmt.Errorf("yaz0: bad magic %q: %w", data[:len(Magic)], ErrMalformedHeader)
	}
	return Header{
		Size:      binary.BigEndian.Uint32(data[4:]),
		Alignment: binary.BigEndian.Uint32(data[8:]),
		Reserved:  binary.BigEndian.Uint32(data[12:]),
	}, nil
}

// appendHeader appends the encoded form of h to dst.
func appendHeader(dst []byte, h Header) []byte {
	dst = append(dst, Magic...)
	dst = binary.BigEndian.AppendUint32(dst, h.Size)
	dst = binary.BigEndian.AppendUint32(dst, h.Alignment)
	return binary.BigEndian.AppendUint32(dst, h.Reserved)
}

// MaxCompressedLen returns the largest stream Compress can produce for an
// input of n bytes: the header, every byte as a literal and one flag byte per
// eight literals.
func MaxCompressedLen(n int) int {
	return HeaderSize + n + (n+7)/8
}
