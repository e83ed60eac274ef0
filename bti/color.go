package bti

import "image/color"

func expand3(v uint16) uint8 { return uint8(v<<5 | v<<2 | v>>1) }
func expand4(v uint16) uint8 { return uint8(v<<4 | v) }
func expand5(v uint16) uint8 { return uint8(v<<3 | v>>2) }
func expand6(v uint16) uint8 { return uint8(v<<2 | v>>4) }

func intensity(i, a uint8) color.NRGBA {
	return color.NRGBA{R: i, G: i, B: i, A: a}
}

// ia8 decodes an alpha/intensity pair, alpha in the high byte.
func ia8(c uint16) color.NRGBA {
	return intensity(uint8(c), uint8(c>>8))
}

func rgb565(c uint16) color.NRGBA {
	return color.NRGBA{
		R: expand5(c >> 11 & 0x1F),
		G: expand6(c >> 5 & 0x3F),
		B: expand5(c & 0x1F),
		A: 0xFF,
	}
}

// rgb5a3 decodes an opaque RGB555 color when the top bit is set and an
// ARGB3444 color otherwise.
func rgb5a3(c uint16) color.NRGBA {
	if c&0x8000 != 0 {
		return color.NRGBA{
			R: expand5(c >> 10 & 0x1F),
			G: expand5(c >> 5 & 0x1F),
			B: expand5(c & 0x1F),
			A: 0xFF,
		}
	}
	return color.NRGBA{
		R: expand4(c >> 8 & 0xF),
		G: expand4(c >> 4 & 0xF),
		B: expand4(c & 0xF),
		A: expand3(c >> 12 & 0x7),
	}
}

// cmprPalette derives the four colors of a CMPR sub-block. When c0 > c1
// the two middle colors are thirds; otherwise the third color is the
// midpoint and the fourth is transparent.
func cmprPalette(c0, c1 uint16) [4]color.NRGBA {
	a, b := rgb565(c0), rgb565(c1)
	mix := func(x, y uint8, wx, wy, div int) uint8 {
		return uint8((int(x)*wx + int(y)*wy) / div)
	}
	if c0 > c1 {
		return [4]color.NRGBA{a, b,
			{mix(a.R, b.R, 2, 1, 3), mix(a.G, b.G, 2, 1, 3), mix(a.B, b.B, 2, 1, 3), 0xFF},
			{mix(a.R, b.R, 1, 2, 3), mix(a.G, b.G, 1, 2, 3), mix(a.B, b.B, 1, 2, 3), 0xFF},
		}
	}
	return [4]color.NRGBA{a, b,
		{mix(a.R, b.R, 1, 1, 2), mix(a.G, b.G, 1, 1, 2), mix(a.B, b.B, 1, 1, 2), 0xFF},
		{},
	}
}

func paletteColor(f PaletteFormat, c uint16) color.NRGBA {
	switch f {
	case PaletteIA8:
		return ia8(c)
	case PaletteRGB565:
		return rgb565(c)
	default:
		return rgb5a3(c)
	}
}
