package graph

import (
	"errors"
	"fmt"
)

// Construction errors
var (
	// ErrUnsupported indicates a construct the graph model cannot express
	ErrUnsupported = errors.New("unsupported construct")

	// ErrPatternTooLarge indicates the pattern needs too many positions
	ErrPatternTooLarge = errors.New("pattern too large")

	// ErrEmptyMatch indicates the pattern matches the empty string
	ErrEmptyMatch = errors.New("pattern matches empty buffer")

	// ErrNeverMatches indicates no input can match the pattern
	ErrNeverMatches = errors.New("pattern can never match")
)

// SyntaxError ties a construction failure to the syntax operator that
// caused it.
type SyntaxError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Op)
}

// Unwrap returns the underlying error
func (e *SyntaxError) Unwrap() error {
	return e.Err
}
