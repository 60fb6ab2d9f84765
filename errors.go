package corescan

import (
	"errors"
	"fmt"

	"github.com/coregx/corescan/alloc"
)

// Scan and database errors.
var (
	// ErrInvalid indicates a nil or corrupt database, scratch or stream,
	// or an invalid argument.
	ErrInvalid = errors.New("corescan: invalid parameter")

	// ErrNoMem indicates that an allocator returned no memory.
	ErrNoMem = alloc.ErrNoMem

	// ErrBadAlloc indicates that an allocator returned misaligned memory.
	ErrBadAlloc = alloc.ErrBadAlloc

	// ErrScanTerminated is returned when the handler asked to stop. It is
	// not a failure.
	ErrScanTerminated = errors.New("corescan: scan terminated")

	// ErrDBVersionError indicates a database built by an incompatible
	// version.
	ErrDBVersionError = errors.New("corescan: database version mismatch")

	// ErrDBPlatformError indicates a database built for CPU features this
	// machine lacks.
	ErrDBPlatformError = errors.New("corescan: database platform mismatch")

	// ErrDBModeError indicates a scan call that does not fit the
	// database mode.
	ErrDBModeError = errors.New("corescan: database mode mismatch")

	// ErrBadAlign indicates a target buffer that is not aligned.
	ErrBadAlign = errors.New("corescan: misaligned buffer")

	// ErrScratchInUse indicates a scratch already in use by another scan.
	ErrScratchInUse = errors.New("corescan: scratch in use")

	// ErrScratchMismatch indicates a scratch not sized for the database.
	ErrScratchMismatch = errors.New("corescan: scratch not allocated for database")

	// ErrStreamInUse indicates a stream already inside another call.
	ErrStreamInUse = errors.New("corescan: stream in use")

	// ErrStreamClosed indicates use of a closed stream.
	ErrStreamClosed = errors.New("corescan: stream closed")
)

// Compile error kinds, wrapped by CompileError.
var (
	// ErrUnsupported indicates syntax or a construct that cannot be
	// compiled.
	ErrUnsupported = errors.New("unsupported pattern")

	// ErrPatternTooLarge indicates a pattern that exceeds engine limits.
	ErrPatternTooLarge = errors.New("pattern too large")

	// ErrInvalidFlags indicates unknown or conflicting pattern flags.
	ErrInvalidFlags = errors.New("invalid flags")

	// ErrEmptyMatch indicates a pattern that matches the empty buffer.
	ErrEmptyMatch = errors.New("pattern matches empty buffer")

	// ErrInvalidParam indicates invalid compile parameters: mode, extended
	// parameters or configuration.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrEngine indicates that no engine could be built for a pattern.
	ErrEngine = errors.New("engine construction failed")
)

// CompileError reports why a pattern set failed to compile.
type CompileError struct {
	// Expression is the index of the offending pattern, or -1 for errors
	// that concern the whole set.
	Expression int

	// Message describes the failure.
	Message string

	// Err is one of the compile error kinds.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Expression < 0 {
		return fmt.Sprintf("corescan: %s", e.Message)
	}
	return fmt.Sprintf("corescan: expression %d: %s", e.Expression, e.Message)
}

// Unwrap returns the error kind.
func (e *CompileError) Unwrap() error { return e.Err }

func compileErr(expr int, kind error, format string, args ...any) *CompileError {
	return &CompileError{Expression: expr, Message: fmt.Sprintf(format, args...), Err: kind}
}
