package cube

import "github.com/meigma/cube/internal/format"

// Errors shared by every format. Test for them with errors.Is.
var (
	// ErrMalformedHeader is returned when a magic tag or a header field does
	// not match the data.
	ErrMalformedHeader = format.ErrMalformedHeader

	// ErrTruncatedStream is returned when data ends before the declared size
	// is reached.
	ErrTruncatedStream = format.ErrTruncatedStream

	// ErrInvalidOffset is returned when an offset points outside its buffer
	// or section.
	ErrInvalidOffset = format.ErrInvalidOffset

	// ErrInvalidBackReference is returned when a Yaz0 back-reference points
	// before the start of the output.
	ErrInvalidBackReference = format.ErrInvalidBackReference

	// ErrCyclicDirectory is returned when an archive's directories do not
	// form a tree.
	ErrCyclicDirectory = format.ErrCyclicDirectory

	// ErrInvariantViolation is returned when an in-memory archive cannot be
	// serialized.
	ErrInvariantViolation = format.ErrInvariantViolation

	// ErrSizeOverflow is returned when a size exceeds a limit.
	ErrSizeOverflow = format.ErrSizeOverflow
)
