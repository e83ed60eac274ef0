package rarc

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// Hash returns the RARC name hash of a raw name: h = h*3 + b over every
// byte, truncated to 16 bits.
func Hash(name string) uint16 {
	var h uint16
	for i := 0; i < len(name); i++ {
		h = h*3 + uint16(name[i])
	}
	return h
}

// DecodeName converts a raw Shift-JIS name to UTF-8. Pure ASCII names are
// returned unchanged.
func DecodeName(raw string) (string, error) {
	if isASCII(raw) {
		return raw, nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().String(raw)
	if err != nil {
		return "", fmt.Errorf("decode name %q: %w", raw, err)
	}
	return out, nil
}

// EncodeName converts a UTF-8 name to raw Shift-JIS bytes. It fails for
// characters Shift-JIS cannot represent.
func EncodeName(name string) (string, error) {
	if isASCII(name) {
		return name, nil
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("encode name %q: invalid UTF-8", name)
	}
	out, err := japanese.ShiftJIS.NewEncoder().String(name)
	if err != nil {
		return "", fmt.Errorf("encode name %q: %w", name, err)
	}
	return out, nil
}

// DisplayName decodes raw for display, falling back to a quoted form when
// the bytes are not valid Shift-JIS.
func DisplayName(raw string) string {
	if s, err := DecodeName(raw); err == nil {
		return s
	}
	return fmt.Sprintf("%q", raw)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// nodeType derives the four-byte node tag for a directory that has none:
// "ROOT" for the root, otherwise the first four name bytes upper-cased and
// padded with spaces.
func nodeType(name string, root bool) [4]byte {
	if root {
		return [4]byte{'R', 'O', 'O', 'T'}
	}
	t := [4]byte{' ', ' ', ' ', ' '}
	for i := 0; i < len(t) && i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		t[i] = c
	}
	return t
}
