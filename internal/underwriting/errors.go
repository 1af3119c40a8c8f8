package underwriting

import "errors"

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNonContiguous is returned when the statement periods have gaps.
	// The accompanying document carries the gap list.
	ErrNonContiguous = errors.New("statement periods are not contiguous")
)
