package filter

import (
	"errors"
	"fmt"
)

// ErrMalformedFilter is wrapped by every parse error
var ErrMalformedFilter = errors.New("malformed filter")

// MalformedFilterError reports where and why a filter expression failed to parse
type MalformedFilterError struct {
	Input  string
	Pos    int // byte offset into Input
	Reason string
}

// Error implements the error interface
func (e *MalformedFilterError) Error() string {
	return fmt.Sprintf("malformed filter at offset %d: %s", e.Pos, e.Reason)
}

// Unwrap returns ErrMalformedFilter
func (e *MalformedFilterError) Unwrap() error {
	return ErrMalformedFilter
}
