package yaz0

import "fmt"

// Decompress decodes a complete Yaz0 stream.
//
// The returned buffer has exactly the size declared in the header. Decoding
// stops once that size is reached; trailing input (commonly alignment
// padding) is ignored.
func Decompress(src []byte, opts ...DecodeOption) ([]byte, error) {
	cfg := decodeConfig{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}
	if cfg.maxSize > 0 && uint64(h.Size) > cfg.maxSize {
		return nil, fmt.Errorf("yaz0: declared size %d exceeds limit %d: %w", h.Size, cfg.maxSize, ErrSizeOverflow)
	}

	dst := make([]byte, h.Size)
	if err := decode(dst, src[HeaderSize:]); err != nil {
		return nil, err
	}
	return dst, nil
}

// decode fills dst from the token stream in src.
func decode(dst, src []byte) error {
	var (
		sp, dp int
		flags  byte
		bits   int
	)
	for dp < len(dst) {
		if bits == 0 {
			if sp >= len(src) {
				return truncated(dp, len(dst))
			}
			flags = src[sp]
			sp++
			bits = 8
		}

		if flags&0x80 != 0 {
			if sp >= len(src) {
				return truncated(dp, len(dst))
			}
			dst[dp] = src[sp]
			sp++
			dp++
		} else {
			if sp+2 > len(src) {
				return truncated(dp, len(dst))
			}
			b1, b2 := src[sp], src[sp+1]
			sp += 2

			dist := (int(b1&0x0F)<<8 | int(b2)) + 1
			n := int(b1 >> 4)
			if n == 0 {
				if sp >= len(src) {
					return truncated(dp, len(dst))
				}
				n = int(src[sp]) + 0x12
				sp++
			} else {
				n += 2
			}

			if dist > dp {
				return fmt.Errorf("yaz0: distance %d at output offset %d: %w", dist, dp, ErrInvalidBackReference)
			}
			n = min(n, len(dst)-dp)

			// Source and destination overlap whenever dist < n.
			from := dp - dist
			for i := range n {
				dst[dp+i] = dst[from+i]
			}
			dp += n
		}

		flags <<= 1
		bits--
	}
	return nil
}

func truncated(produced, want int) error {
	return fmt.Errorf("yaz0: stream ended after %d of %d bytes: %w", produced, want, ErrTruncatedStream)
}
