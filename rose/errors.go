// Package rose ties the literal matchers and engines of a database
// together. Each literal match runs a short program that checks context,
// delays itself, triggers an engine or reports. Engines run through event
// queues and are caught up in offset order before every report, so the
// caller sees non-decreasing match offsets.
package rose

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid configuration was provided.
	ErrInvalidConfig = errors.New("invalid rose configuration")

	// ErrPatternTooLarge indicates a component needs more history or
	// engine state than the database allows.
	ErrPatternTooLarge = errors.New("pattern too large")
)

// BuildError names the component that could not be given a role.
type BuildError struct {
	Expression int
	Err        error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("expression %d: %v", e.Expression, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }
