package format

// Align rounds n up to the next multiple of boundary.
// boundary must be a power of two.
func Align(n, boundary int) int {
	return (n + boundary - 1) &^ (boundary - 1)
}

// Pad appends zero bytes to buf until its length is a multiple of boundary.
func Pad(buf []byte, boundary int) []byte {
	for n := Align(len(buf), boundary) - len(buf); n > 0; n-- {
		buf = append(buf, 0)
	}
	return buf
}
