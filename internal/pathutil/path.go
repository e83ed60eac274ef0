// Package pathutil provides helpers for slash-separated archive paths.
package pathutil

import "strings"

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Join appends name to a directory path. An empty or "." prefix yields name.
func Join(prefix, name string) string {
	if prefix == "" || prefix == "." {
		return name
	}
	return prefix + "/" + name
}

// Valid reports whether p is a slash-separated archive path. It follows
// fs.ValidPath but accepts elements that are not UTF-8, such as raw
// Shift-JIS names. NUL bytes are rejected.
func Valid(p string) bool {
	if p == "." {
		return true
	}
	for elem := range strings.SplitSeq(p, "/") {
		if elem == "" || elem == "." || elem == ".." || strings.IndexByte(elem, 0) >= 0 {
			return false
		}
	}
	return true
}

// Normalize converts a user-provided path to Valid form.
//
// Leading, trailing and repeated slashes are removed and the empty path
// becomes ".". Dot and dot-dot elements are preserved so that Valid can
// reject them.
func Normalize(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}
