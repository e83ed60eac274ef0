package bti

import (
	"fmt"

	"github.com/meigma/cube/internal/format"
)

// HeaderSize is the size of the fixed BTI header.
const HeaderSize = 0x20

// Errors returned by Decode.
var (
	// ErrMalformedHeader is returned for a short header or an unknown image
	// or palette format.
	ErrMalformedHeader = format.ErrMalformedHeader

	// ErrInvalidOffset is returned when image or palette data lies outside
	// the buffer.
	ErrInvalidOffset = format.ErrInvalidOffset

	// ErrSizeOverflow is returned when the image exceeds the configured
	// pixel limit.
	ErrSizeOverflow = format.ErrSizeOverflow
)

// Format is a GX texture format.
type Format uint8

// Texture formats.
const (
	FormatI4     Format = 0x0
	FormatI8     Format = 0x1
	FormatIA4    Format = 0x2
	FormatIA8    Format = 0x3
	FormatRGB565 Format = 0x4
	FormatRGB5A3 Format = 0x5
	FormatRGBA32 Format = 0x6
	FormatC4     Format = 0x8
	FormatC8     Format = 0x9
	FormatC14X2  Format = 0xA
	FormatCMPR   Format = 0xE
)

// blockInfo describes the tiling of a format: block dimensions in pixels
// and the encoded size of one block.
type blockInfo struct {
	width, height int
	size          int
}

var blocks = map[Format]blockInfo{
	FormatI4:     {8, 8, 32},
	FormatI8:     {8, 4, 32},
	FormatIA4:    {8, 4, 32},
	FormatIA8:    {4, 4, 32},
	FormatRGB565: {4, 4, 32},
	FormatRGB5A3: {4, 4, 32},
	FormatRGBA32: {4, 4, 64},
	FormatC4:     {8, 8, 32},
	FormatC8:     {8, 4, 32},
	FormatC14X2:  {4, 4, 32},
	FormatCMPR:   {8, 8, 32},
}

// String returns the conventional format name.
func (f Format) String() string {
	switch f {
	case FormatI4:
		return "I4"
	case FormatI8:
		return "I8"
	case FormatIA4:
		return "IA4"
	case FormatIA8:
		return "IA8"
	case FormatRGB565:
		return "RGB565"
	case FormatRGB5A3:
		return "RGB5A3"
	case FormatRGBA32:
		return "RGBA32"
	case FormatC4:
		return "C4"
	case FormatC8:
		return "C8"
	case FormatC14X2:
		return "C14X2"
	case FormatCMPR:
		return "CMPR"
	default:
		return fmt.Sprintf("Format(%#x)", uint8(f))
	}
}

// Paletted reports whether pixels are palette indices.
func (f Format) Paletted() bool {
	return f == FormatC4 || f == FormatC8 || f == FormatC14X2
}

// PaletteFormat is the color encoding of palette entries.
type PaletteFormat uint8

// Palette formats.
const (
	PaletteIA8    PaletteFormat = 0
	PaletteRGB565 PaletteFormat = 1
	PaletteRGB5A3 PaletteFormat = 2
)

// String returns the conventional palette format name.
func (p PaletteFormat) String() string {
	switch p {
	case PaletteIA8:
		return "IA8"
	case PaletteRGB565:
		return "RGB565"
	case PaletteRGB5A3:
		return "RGB5A3"
	default:
		return fmt.Sprintf("PaletteFormat(%d)", uint8(p))
	}
}

// WrapMode is a texture coordinate wrap mode.
type WrapMode uint8

// Wrap modes.
const (
	WrapClamp  WrapMode = 0
	WrapRepeat WrapMode = 1
	WrapMirror WrapMode = 2
)

// String returns the wrap mode name.
func (w WrapMode) String() string {
	switch w {
	case WrapClamp:
		return "clamp"
	case WrapRepeat:
		return "repeat"
	case WrapMirror:
		return "mirror"
	default:
		return fmt.Sprintf("WrapMode(%d)", uint8(w))
	}
}

// Header is the parsed BTI header. Offsets are relative to the start of
// the header.
type Header struct {
	Format        Format
	AlphaSetting  uint8
	Width         uint16
	Height        uint16
	WrapS         WrapMode
	WrapT         WrapMode
	PaletteFormat PaletteFormat
	PaletteCount  uint16
	PaletteOffset uint32
	MinFilter     uint8
	MagFilter     uint8
	MinLOD        uint8
	MaxLOD        uint8
	// MipCount is the number of stored mip levels, at least 1.
	MipCount    uint8
	LODBias     int16
	ImageOffset uint32
}

// MipSize returns the encoded size in bytes of the given mip level.
func (h Header) MipSize(level int) int {
	b := blocks[h.Format]
	if b.size == 0 {
		return 0
	}
	w, hgt := int(h.Width)>>level, int(h.Height)>>level
	return ceilDiv(w, b.width) * ceilDiv(hgt, b.height) * b.size
}

// DataSize returns the encoded size of all mip levels.
func (h Header) DataSize() int {
	var n int
	for level := range int(h.MipCount) {
		n += h.MipSize(level)
	}
	return n
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
