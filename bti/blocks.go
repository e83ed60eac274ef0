package bti

import "image/color"

// blockDecoder decodes one encoded block into dst in row-major order.
type blockDecoder func(src []byte, palette []color.NRGBA, dst []color.NRGBA)

var blockDecoders = map[Format]blockDecoder{
	FormatI4:     decodeI4,
	FormatI8:     decodeI8,
	FormatIA4:    decodeIA4,
	FormatIA8:    decodeIA8,
	FormatRGB565: decodeRGB565,
	FormatRGB5A3: decodeRGB5A3,
	FormatRGBA32: decodeRGBA32,
	FormatC4:     decodeC4,
	FormatC8:     decodeC8,
	FormatC14X2:  decodeC14X2,
	FormatCMPR:   decodeCMPR,
}

func decodeI4(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i, v := range src {
		hi, lo := expand4(uint16(v>>4)), expand4(uint16(v&0xF))
		dst[i*2] = intensity(hi, hi)
		dst[i*2+1] = intensity(lo, lo)
	}
}

func decodeI8(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i, v := range src {
		dst[i] = intensity(v, v)
	}
}

func decodeIA4(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i, v := range src {
		dst[i] = intensity(expand4(uint16(v&0xF)), expand4(uint16(v>>4)))
	}
}

func decodeIA8(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i := range dst {
		dst[i] = ia8(be.Uint16(src[i*2:]))
	}
}

func decodeRGB565(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i := range dst {
		dst[i] = rgb565(be.Uint16(src[i*2:]))
	}
}

func decodeRGB5A3(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i := range dst {
		dst[i] = rgb5a3(be.Uint16(src[i*2:]))
	}
}

// decodeRGBA32 reads a block stored as 16 AR pairs followed by 16 GB pairs.
func decodeRGBA32(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for i := range dst {
		ar, gb := src[i*2:], src[32+i*2:]
		dst[i] = color.NRGBA{R: ar[1], G: gb[0], B: gb[1], A: ar[0]}
	}
}

// lookup returns palette[i], or transparent black past the palette end.
func lookup(palette []color.NRGBA, i int) color.NRGBA {
	if i >= len(palette) {
		return color.NRGBA{}
	}
	return palette[i]
}

func decodeC4(src []byte, palette []color.NRGBA, dst []color.NRGBA) {
	for i, v := range src {
		dst[i*2] = lookup(palette, int(v>>4))
		dst[i*2+1] = lookup(palette, int(v&0xF))
	}
}

func decodeC8(src []byte, palette []color.NRGBA, dst []color.NRGBA) {
	for i, v := range src {
		dst[i] = lookup(palette, int(v))
	}
}

func decodeC14X2(src []byte, palette []color.NRGBA, dst []color.NRGBA) {
	for i := range dst {
		dst[i] = lookup(palette, int(be.Uint16(src[i*2:])&0x3FFF))
	}
}

// decodeCMPR decodes an 8x8 block made of four 4x4 DXT1-style sub-blocks
// in the order top-left, top-right, bottom-left, bottom-right.
func decodeCMPR(src []byte, _ []color.NRGBA, dst []color.NRGBA) {
	for sub := range 4 {
		s := src[sub*8:]
		colors := cmprPalette(be.Uint16(s), be.Uint16(s[2:]))
		indices := be.Uint32(s[4:])
		ox, oy := (sub%2)*4, (sub/2)*4
		for i := range 16 {
			idx := indices >> (30 - 2*i) & 3
			dst[(oy+i/4)*8+ox+i%4] = colors[idx]
		}
	}
}
