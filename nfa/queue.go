package nfa

import (
	"math"

	"github.com/coregx/corescan/report"
)

// Status is returned by report callbacks and queue execution.
type Status int

const (
	// Continue keeps the engine running.
	Continue Status = iota

	// Stop ends execution at once.
	Stop
)

// MatchStatus is the outcome of QueueExecToMatch.
type MatchStatus int

const (
	// MatchNone means the engine reached the end location without a match.
	MatchNone MatchStatus = iota

	// MatchPending means the engine stopped at a location with matches;
	// ReportCurrent delivers them.
	MatchPending
)

// UnknownStart is the start offset of a match whose start lies beyond
// the SOM horizon.
const UnknownStart = math.MaxUint64

// ReportFunc receives engine matches. start is zero unless the engine
// tracks start of match. end is exclusive and absolute.
type ReportFunc func(start, end uint64, rep report.ID) Status

// EventType tags a queue event.
type EventType uint8

const (
	// EventStart positions the engine.
	EventStart EventType = iota

	// EventTop triggers the engine's start states for Event.Top.
	EventTop

	// EventEnd stops execution.
	EventEnd
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventTop:
		return "top"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// Event is one queued item. Loc is relative to Queue.Buf.
type Event struct {
	Type EventType
	Top  uint32
	Loc  int

	// Som is the start of match carried into the engine by a top.
	Som uint64
}

// Queue feeds an engine. It holds the pending events, the engine's
// working state and the buffer being scanned.
type Queue struct {
	// Buf is the data of the current scan call. Offset is the absolute
	// offset of Buf[0].
	Buf    []byte
	Offset uint64

	// State is the engine's working state, StateSize bytes.
	State []byte

	// Report receives matches.
	Report ReportFunc

	events   []Event
	cur      int
	loc      int
	capacity int

	// Reused working memory for engines.
	words   []uint64
	next    []uint64
	som     []uint64
	somNext []uint64
	pending []pendingReport
}

type pendingReport struct {
	rep   report.ID
	start uint64
}

// NewQueue returns a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity < 2 {
		capacity = 2
	}
	return &Queue{capacity: capacity, events: make([]Event, 0, capacity)}
}

// Reset clears pending events and points the queue at a new buffer. The
// engine is positioned at loc.
func (q *Queue) Reset(buf []byte, offset uint64, loc int) {
	q.Buf = buf
	q.Offset = offset
	q.events = q.events[:0]
	q.cur = 0
	q.loc = loc
	q.events = append(q.events, Event{Type: EventStart, Loc: loc})
}

// Loc returns the current location of the engine.
func (q *Queue) Loc() int { return q.loc }

// Pending returns the number of unprocessed events.
func (q *Queue) Pending() int { return len(q.events) - q.cur }

// Full reports whether another event would exceed the capacity.
func (q *Queue) Full() bool { return len(q.events)-q.cur >= q.capacity }

// Capacity returns the event capacity.
func (q *Queue) Capacity() int { return q.capacity }

// Last returns the most recently pushed unprocessed event, or nil.
func (q *Queue) Last() *Event {
	if q.cur >= len(q.events) {
		return nil
	}
	return &q.events[len(q.events)-1]
}

// PushTop queues a trigger at loc. Locations must not decrease, and an
// identical top at the same location is merged.
func (q *Queue) PushTop(top uint32, loc int, som uint64) {
	if last := q.Last(); last != nil {
		if loc < last.Loc {
			panic("nfa: queue locations must not decrease")
		}
		if last.Type == EventTop && last.Top == top && last.Loc == loc {
			last.Som = minStart(last.Som, som)
			return
		}
	}
	if loc < q.loc {
		panic("nfa: top pushed behind the engine")
	}
	q.compact()
	q.events = append(q.events, Event{Type: EventTop, Top: top, Loc: loc, Som: som})
}

// PushEnd queues an end event at loc.
func (q *Queue) PushEnd(loc int) {
	q.compact()
	q.events = append(q.events, Event{Type: EventEnd, Loc: loc})
}

// compact drops consumed events once the backing array is half used.
func (q *Queue) compact() {
	if q.cur > 0 && q.cur*2 >= cap(q.events) {
		n := copy(q.events, q.events[q.cur:])
		q.events = q.events[:n]
		q.cur = 0
	}
}

func (q *Queue) wordBuffers(n int) (cur, next []uint64) {
	if cap(q.words) < n {
		q.words = make([]uint64, n)
		q.next = make([]uint64, n)
	}
	q.words, q.next = q.words[:n], q.next[:n]
	return q.words, q.next
}

func (q *Queue) somBuffers(n int) (cur, next []uint64) {
	if cap(q.som) < n {
		q.som = make([]uint64, n)
		q.somNext = make([]uint64, n)
	}
	q.som, q.somNext = q.som[:n], q.somNext[:n]
	return q.som, q.somNext
}

// minStart returns the earlier of two starts. An unknown start lies
// beyond the horizon and is therefore the earliest.
func minStart(a, b uint64) uint64 {
	if a == UnknownStart || b == UnknownStart {
		return UnknownStart
	}
	return min(a, b)
}

// stepper is the per-engine core shared by the queue drivers.
type stepper interface {
	// top applies a trigger at the current location.
	top(q *Queue, ev Event)
	// run consumes q.Buf[from:to]. With a match it stops just after the
	// byte that produced it and returns that location and true.
	run(q *Queue, from, to int) (int, bool)
	// report delivers the matches of the current state.
	report(q *Queue) Status
}

// execToMatch advances the engine to the next match at or before end.
func execToMatch(s stepper, q *Queue, end int) (int, MatchStatus) {
	for q.cur < len(q.events) {
		ev := q.events[q.cur]
		if ev.Type == EventStart {
			q.loc = max(q.loc, ev.Loc)
			q.cur++
			continue
		}
		target := min(ev.Loc, end)
		if q.loc < target {
			loc, matched := s.run(q, q.loc, target)
			q.loc = loc
			if matched {
				return loc, MatchPending
			}
		}
		if ev.Loc > end {
			return q.loc, MatchNone
		}
		q.cur++
		switch ev.Type {
		case EventTop:
			s.top(q, ev)
		case EventEnd:
			return q.loc, MatchNone
		}
	}
	if q.loc < end {
		loc, matched := s.run(q, q.loc, end)
		q.loc = loc
		if matched {
			return loc, MatchPending
		}
	}
	return q.loc, MatchNone
}

// exec runs the engine to end, reporting every match.
func exec(s stepper, q *Queue, end int) Status {
	for {
		_, st := execToMatch(s, q, end)
		if st == MatchNone {
			return Continue
		}
		if s.report(q) == Stop {
			return Stop
		}
	}
}
