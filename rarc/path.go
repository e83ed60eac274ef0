package rarc

import "github.com/meigma/cube/internal/pathutil"

// NormalizePath converts a user-provided path to slash-separated form:
// "/res//timg/" becomes "res/timg" and "" or "/" become ".".
//
// Paths containing "." or ".." elements are preserved and rejected later by
// Open, Stat and Lookup.
func NormalizePath(p string) string {
	return pathutil.Normalize(p)
}
