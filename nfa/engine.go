package nfa

import (
	"fmt"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/report"
)

// Kind identifies an engine implementation.
type Kind uint8

const (
	// KindLimEx is the bit-parallel Glushkov NFA.
	KindLimEx Kind = iota + 1

	// KindLBR is a bounded repeat of one class.
	KindLBR

	// KindMPV is the chained repeat aggregator.
	KindMPV
)

// String returns a human-readable representation of the engine kind.
func (k Kind) String() string {
	switch k {
	case KindLimEx:
		return "LimEx"
	case KindLBR:
		return "LBR"
	case KindMPV:
		return "MPV"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Engine is a compiled automaton driven through a Queue.
//
// An engine is immutable after construction and safe for concurrent use;
// all mutable data lives in the queue and its state bytes.
type Engine interface {
	// Kind returns the implementation kind.
	Kind() Kind

	// StateSize is the length of Queue.State.
	StateSize() int

	// StreamStateSize is the length of the compressed state kept in a
	// stream between writes.
	StreamStateSize() int

	// InitState resets q.State to the engine's initial state.
	InitState(q *Queue)

	// QueueExec consumes events and bytes up to location end, reporting
	// every match.
	QueueExec(q *Queue, end int) Status

	// QueueExecToMatch runs until the next location with matches, or to
	// end. It returns the location reached.
	QueueExecToMatch(q *Queue, end int) (int, MatchStatus)

	// ReportCurrent reports the matches at the current location.
	ReportCurrent(q *Queue) Status

	// CheckEOD reports matches that need the end of data at the current
	// location.
	CheckEOD(q *Queue) Status

	// Active reports whether q.State can still produce a match without a
	// new top. Floating engines are always active.
	Active(q *Queue) bool

	// Compress writes the stream form of q.State into dst. ref is the
	// absolute offset the stream has reached.
	Compress(dst []byte, q *Queue, ref uint64)

	// Expand rebuilds q.State from its stream form.
	Expand(q *Queue, src []byte, ref uint64)

	// Encode appends the engine to a bytecode stream.
	Encode(w *bytecode.Writer)
}

// Encode writes an engine prefixed by its kind.
func Encode(w *bytecode.Writer, e Engine) {
	w.U8(uint8(e.Kind()))
	e.Encode(w)
}

// Decode reads an engine written by Encode.
func Decode(r *bytecode.Reader) (Engine, error) {
	kind := Kind(r.U8())
	if err := r.Err(); err != nil {
		return nil, err
	}
	var (
		e   Engine
		err error
	)
	switch kind {
	case KindLimEx:
		e, err = decodeLimEx(r)
	case KindLBR:
		e, err = decodeLBR(r)
	case KindMPV:
		e, err = decodeMPV(r)
	default:
		return nil, fmt.Errorf("%w: engine kind %d", ErrCorrupt, kind)
	}
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return e, nil
}

// ReportIDs returns every report id e can raise, in no particular order.
func ReportIDs(e Engine) []report.ID {
	var ids []report.ID
	switch e := e.(type) {
	case *LimEx:
		for i := range e.reports {
			ids = append(ids, e.reports[i]...)
			ids = append(ids, e.eodReports[i]...)
		}
	case *LBR:
		ids = e.set.reportIDs(ids)
	case *MPV:
		ids = e.set.reportIDs(ids)
	}
	return ids
}
