// Package sizing provides safe size arithmetic for the 32-bit offset and
// length fields used by GameCube formats.
package sizing

import "math"

// ToUint32 converts a non-negative int to uint32, returning overflowErr if it
// doesn't fit.
func ToUint32(n int, overflowErr error) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(n), nil
}

// ToInt converts a uint32 to int, returning overflowErr if it doesn't fit.
func ToInt(n uint32, overflowErr error) (int, error) {
	if uint64(n) > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(n), nil
}

// AddUint32 adds two uint32 values, returning (result, false) on overflow.
func AddUint32(a, b uint32) (uint32, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// InBounds reports whether [off, off+length) lies within [0, limit).
// It never overflows.
func InBounds(off, length uint32, limit int) bool {
	end, ok := AddUint32(off, length)
	if !ok {
		return false
	}
	return uint64(end) <= uint64(limit) //nolint:gosec // limit is a slice length
}

// Slice returns data[off:off+length] or ok=false when the range is out of
// bounds.
func Slice(data []byte, off, length uint32) (out []byte, ok bool) {
	if !InBounds(off, length, len(data)) {
		return nil, false
	}
	return data[off : off+length], true
}
