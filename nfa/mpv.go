package nfa

import (
	"fmt"

	"github.com/coregx/corescan/bytecode"
)

// MPV aggregates the chained repeats ("puffettes") of a database. Other
// engines raise chain reports that push Top(puffette) events into its
// queue; each puffette then matches like an LBR. Tops for the same
// puffette are merged when their match windows overlap.
type MPV struct {
	set repeatSet
}

// NewMPV builds an MPV. Puffette i is addressed by top i.
func NewMPV(puffettes []Repeat) (*MPV, error) {
	if len(puffettes) == 0 {
		return nil, &BuildError{Engine: KindMPV, Err: fmt.Errorf("%w: no puffettes", ErrInvalidConfig)}
	}
	set, err := newRepeatSet(puffettes)
	if err != nil {
		return nil, &BuildError{Engine: KindMPV, Err: err}
	}
	return &MPV{set: set}, nil
}

// NumPuffettes returns the number of chained repeats.
func (m *MPV) NumPuffettes() int { return len(m.set.repeats) }

// Kind implements Engine.
func (m *MPV) Kind() Kind { return KindMPV }

// StateSize implements Engine.
func (m *MPV) StateSize() int { return m.set.size }

// StreamStateSize implements Engine.
func (m *MPV) StreamStateSize() int { return m.set.size }

// InitState implements Engine.
func (m *MPV) InitState(q *Queue) { clear(q.State[:m.set.size]) }

func (m *MPV) top(q *Queue, ev Event) { m.set.top(q, int(ev.Top), ev.Loc) }

func (m *MPV) run(q *Queue, from, to int) (int, bool) { return m.set.run(q, from, to) }

func (m *MPV) report(q *Queue) Status { return m.set.report(q) }

// QueueExec implements Engine.
func (m *MPV) QueueExec(q *Queue, end int) Status { return exec(m, q, end) }

// QueueExecToMatch implements Engine.
func (m *MPV) QueueExecToMatch(q *Queue, end int) (int, MatchStatus) {
	return execToMatch(m, q, end)
}

// ReportCurrent implements Engine.
func (m *MPV) ReportCurrent(q *Queue) Status { return m.set.report(q) }

// CheckEOD implements Engine.
func (m *MPV) CheckEOD(*Queue) Status { return Continue }

// Active implements Engine.
func (m *MPV) Active(q *Queue) bool { return m.set.active(q) }

// Compress implements Engine.
func (m *MPV) Compress(dst []byte, q *Queue, _ uint64) { copy(dst, q.State[:m.set.size]) }

// Expand implements Engine.
func (m *MPV) Expand(q *Queue, src []byte, _ uint64) { copy(q.State, src[:m.set.size]) }

// Encode implements Engine.
func (m *MPV) Encode(w *bytecode.Writer) { m.set.encode(w) }

func decodeMPV(r *bytecode.Reader) (*MPV, error) {
	set, err := decodeRepeatSet(r)
	if err != nil {
		return nil, err
	}
	if len(set.repeats) == 0 {
		return nil, fmt.Errorf("%w: mpv without puffettes", ErrCorrupt)
	}
	return &MPV{set: set}, nil
}
