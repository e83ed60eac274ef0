package bti

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/meigma/cube/internal/sizing"
)

// DefaultMaxPixels is the pixel limit used by Decode when none is set.
const DefaultMaxPixels = 1 << 24

// Image is a decoded texture: its header and the pixels of mip level 0.
type Image struct {
	Header
	*image.NRGBA
}

// Option configures Decode.
type Option func(*config)

type config struct {
	maxPixels int
}

// WithMaxPixels limits width*height of decoded images.
// Set limit to 0 to disable the limit.
func WithMaxPixels(limit int) Option {
	return func(c *config) {
		c.maxPixels = limit
	}
}

var be = binary.BigEndian

// ParseHeader reads the BTI header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("bti: %d bytes is shorter than the header: %w", len(data), ErrMalformedHeader)
	}
	h := Header{
		Format:        Format(data[0x00]),
		AlphaSetting:  data[0x01],
		Width:         be.Uint16(data[0x02:]),
		Height:        be.Uint16(data[0x04:]),
		WrapS:         WrapMode(data[0x06]),
		WrapT:         WrapMode(data[0x07]),
		PaletteFormat: PaletteFormat(data[0x09]),
		PaletteCount:  be.Uint16(data[0x0A:]),
		PaletteOffset: be.Uint32(data[0x0C:]),
		MinFilter:     data[0x14],
		MagFilter:     data[0x15],
		MinLOD:        data[0x16],
		MaxLOD:        data[0x17],
		MipCount:      max(data[0x18], 1),
		LODBias:       int16(be.Uint16(data[0x1A:])), //nolint:gosec // signed field
		ImageOffset:   be.Uint32(data[0x1C:]),
	}
	if _, ok := blocks[h.Format]; !ok {
		return Header{}, fmt.Errorf("bti: unknown image format %#x: %w", uint8(h.Format), ErrMalformedHeader)
	}
	if h.Format.Paletted() && h.PaletteFormat > PaletteRGB5A3 {
		return Header{}, fmt.Errorf("bti: unknown palette format %d: %w", h.PaletteFormat, ErrMalformedHeader)
	}
	return h, nil
}

// Decode parses a BTI file and decodes its first mip level.
func Decode(data []byte, opts ...Option) (*Image, error) {
	cfg := config{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	w, ht := int(h.Width), int(h.Height)
	if cfg.maxPixels > 0 && w*ht > cfg.maxPixels {
		return nil, fmt.Errorf("bti: %dx%d image exceeds %d pixels: %w", w, ht, cfg.maxPixels, ErrSizeOverflow)
	}

	size, err := sizing.ToUint32(h.MipSize(0), ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	pixels, ok := sizing.Slice(data, h.ImageOffset, size)
	if !ok {
		return nil, fmt.Errorf("bti: image data at %#x+%#x outside %d bytes: %w", h.ImageOffset, size, len(data), ErrInvalidOffset)
	}

	var palette []color.NRGBA
	if h.Format.Paletted() {
		raw, ok := sizing.Slice(data, h.PaletteOffset, uint32(h.PaletteCount)*2)
		if !ok {
			return nil, fmt.Errorf("bti: palette at %#x outside %d bytes: %w", h.PaletteOffset, len(data), ErrInvalidOffset)
		}
		palette = make([]color.NRGBA, h.PaletteCount)
		for i := range palette {
			palette[i] = paletteColor(h.PaletteFormat, be.Uint16(raw[i*2:]))
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, ht))
	decodeBlocks(img, h.Format, pixels, palette)
	return &Image{Header: h, NRGBA: img}, nil
}

// decodeBlocks untiles src into img. Blocks are stored left to right, top
// to bottom; pixels outside the image in edge blocks are dropped.
func decodeBlocks(img *image.NRGBA, f Format, src []byte, palette []color.NRGBA) {
	b := blocks[f]
	decode := blockDecoders[f]
	buf := make([]color.NRGBA, b.width*b.height)
	w, h := img.Rect.Dx(), img.Rect.Dy()

	off := 0
	for by := 0; by < h; by += b.height {
		for bx := 0; bx < w; bx += b.width {
			decode(src[off:off+b.size], palette, buf)
			off += b.size
			for i, c := range buf {
				x, y := bx+i%b.width, by+i/b.width
				if x < w && y < h {
					img.SetNRGBA(x, y, c)
				}
			}
		}
	}
}
