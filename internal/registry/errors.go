package registry

import (
	"errors"
	"fmt"
)

// ErrDataFormat marks a source row that cannot be turned into a Company.
var ErrDataFormat = errors.New("registry: data format")

// FormatError locates a malformed value in the source.
type FormatError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("registry: line %d column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

// Unwrap exposes both ErrDataFormat and the underlying cause.
func (e *FormatError) Unwrap() []error {
	return []error{ErrDataFormat, e.Err}
}
