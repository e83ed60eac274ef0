// Package format holds the pieces shared by every binary format in cube:
// sentinel errors, alignment helpers and progress reporting types.
package format

import "errors"

// Sentinel errors for format operations.
var (
	// ErrMalformedHeader is returned when a magic tag or a self-reported size
	// in a fixed header does not match the data.
	ErrMalformedHeader = errors.New("cube: malformed header")

	// ErrTruncatedStream is returned when compressed or archive data ends
	// before the declared size is reached.
	ErrTruncatedStream = errors.New("cube: truncated stream")

	// ErrInvalidOffset is returned when an offset or length inside the format
	// points outside the buffer or its section.
	ErrInvalidOffset = errors.New("cube: invalid offset")

	// ErrInvalidBackReference is returned when a Yaz0 back-reference points
	// before the start of the output.
	ErrInvalidBackReference = errors.New("cube: invalid back-reference")

	// ErrCyclicDirectory is returned when an archive's directory graph is not
	// a tree.
	ErrCyclicDirectory = errors.New("cube: cyclic directory")

	// ErrInvariantViolation is returned when an in-memory archive cannot be
	// serialized because the caller left it in an inconsistent state.
	ErrInvariantViolation = errors.New("cube: invariant violation")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("cube: size overflow")
)
