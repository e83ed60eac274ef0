package rarc

import "github.com/meigma/cube/internal/format"

// Errors returned by Parse and Serialize.
var (
	// ErrMalformedHeader is returned when the archive header or info block
	// is missing, has the wrong magic, or disagrees with the buffer size.
	ErrMalformedHeader = format.ErrMalformedHeader

	// ErrInvalidOffset is returned when a node, entry, name or file data
	// reference points outside the buffer or its section.
	ErrInvalidOffset = format.ErrInvalidOffset

	// ErrCyclicDirectory is returned when a directory node is reachable
	// more than once from the root.
	ErrCyclicDirectory = format.ErrCyclicDirectory

	// ErrInvariantViolation is returned by Serialize when the in-memory
	// tree is inconsistent or a value does not fit its on-disk field.
	ErrInvariantViolation = format.ErrInvariantViolation

	// ErrSizeOverflow is returned when a build or extract exceeds a limit.
	ErrSizeOverflow = format.ErrSizeOverflow
)
