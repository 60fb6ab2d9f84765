package litmatch

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity is returned when the literal count exceeds what the
	// selected engine can hold.
	ErrCapacity = errors.New("litmatch: too many literals")

	// ErrDegenerate is returned for an empty table, an empty literal or
	// an invalid and/cmp mask.
	ErrDegenerate = errors.New("litmatch: degenerate literal set")

	// ErrEngineUnavailable is returned when a forced engine cannot be
	// built and fallback is disabled.
	ErrEngineUnavailable = errors.New("litmatch: engine unavailable")
)

// BuildError describes why a table could not be built.
type BuildError struct {
	Engine  Engine
	Literal int // index of the offending literal, or -1
	Err     error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Literal >= 0 {
		return fmt.Sprintf("litmatch: %s: literal %d: %v", e.Engine, e.Literal, e.Err)
	}
	return fmt.Sprintf("litmatch: %s: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }
