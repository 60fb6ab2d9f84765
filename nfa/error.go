// Package nfa holds the automata that Rose drives: LimEx, a bit-parallel
// Glushkov NFA with optional start-of-match tracking; LBR, a bounded
// repeat of a single class; and MPV, a set of chained repeats fed by
// other engines. All of them run through the same event Queue.
package nfa

import (
	"errors"
	"fmt"
)

// Common engine errors
var (
	// ErrPatternTooLarge indicates the graph needs more states than allowed
	ErrPatternTooLarge = errors.New("pattern too large for engine")

	// ErrInvalidConfig indicates invalid configuration was provided
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNotRepeat indicates a graph is not a pure class repeat
	ErrNotRepeat = errors.New("graph is not a bounded repeat")

	// ErrCorrupt indicates an encoded engine failed validation
	ErrCorrupt = errors.New("corrupt engine encoding")
)

// BuildError reports which engine failed to build and why.
type BuildError struct {
	Engine Kind
	Err    error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s engine: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error
func (e *BuildError) Unwrap() error {
	return e.Err
}
