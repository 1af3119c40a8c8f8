package statements

import "errors"

var (
	// ErrNotFound is returned when a statement file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
