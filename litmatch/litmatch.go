// Package litmatch implements the literal table matchers that drive a scan.
//
// A Matcher finds every occurrence of a set of literal.Literal values in a
// buffer. Four engines share one contract:
//
//   - Noodle searches for a single literal with simd.Memmem.
//   - Teddy keeps up to 8 (slim) or 16 (fat) buckets of literals and finds
//     candidate end positions with nibble lookup masks over the final
//     fingerprint bytes, one vector width of positions at a time.
//   - FDR runs a bucketed shift-or over a 64-bit state and confirms
//     candidates against murmur3-hashed per-bucket tables. It scales to
//     tens of thousands of literals.
//   - Naive checks every literal at every position. It is the reference
//     the other engines are tested against.
//
// Whatever the engine, matches are reported in canonical order: ascending
// end offset, and for equal ends ascending build index. Group masking,
// consecutive-duplicate suppression (noruns) and the and/cmp constraints
// are applied identically, so engines are interchangeable.
//
// Streaming scans pass the tail of the previous block as History. A match
// whose bytes straddle History and Buf is reported exactly once, by the
// call whose Buf holds its last byte.
package litmatch

import (
	"slices"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/corescan/literal"
)

// Status is returned by callbacks and scans.
type Status int

const (
	// Continue asks the matcher to keep going.
	Continue Status = iota

	// Stop ends the scan immediately.
	Stop
)

// Callback receives a match of the literal with the given id. end is the
// inclusive index of the match's last byte in Buf; start may be negative,
// meaning the match began in History.
type Callback func(start, end int, id uint32) Status

// Scan describes one call into a matcher.
type Scan struct {
	// Buf is the data to scan.
	Buf []byte

	// History holds bytes logically preceding Buf.
	History []byte

	// Start is the first end position in Buf that may be reported.
	Start int

	// Groups enables literals whose group mask overlaps it.
	Groups uint64

	// Callback receives every match.
	Callback Callback

	// Tmp is an optional buffer the matcher may use to join History with
	// the head of Buf, avoiding an allocation per streaming call.
	Tmp []byte
}

// Engine identifies a matcher implementation.
type Engine uint8

// Engine kinds. EngineAuto lets Build choose.
const (
	EngineAuto Engine = iota
	EngineNoodle
	EngineTeddySlim
	EngineTeddyFat
	EngineFDR
	EngineNaive
)

func (e Engine) String() string {
	switch e {
	case EngineAuto:
		return "auto"
	case EngineNoodle:
		return "noodle"
	case EngineTeddySlim:
		return "teddy-slim"
	case EngineTeddyFat:
		return "teddy-fat"
	case EngineFDR:
		return "fdr"
	case EngineNaive:
		return "naive"
	}
	return "unknown"
}

// engine is the per-implementation search. scan reports every confirmed
// match ending in [from, len(buf)) in canonical order and stops as soon as
// emit returns false. Bytes before from may be read for warm-up and
// confirmation.
type engine interface {
	kind() Engine
	scan(buf []byte, from int, emit func(end, lit int) bool)
}

// Matcher is an immutable literal table. It is safe for concurrent use.
type Matcher struct {
	lits      []literal.Literal
	eng       engine
	maxExtent int
	minLen    int
	reject    *ahocorasick.Automaton
}

// Engine returns the engine kind the matcher runs.
func (m *Matcher) Engine() Engine { return m.eng.kind() }

// Len returns the number of literals.
func (m *Matcher) Len() int { return len(m.lits) }

// Literals returns the literals in build order. The slice must not be
// modified.
func (m *Matcher) Literals() []literal.Literal { return m.lits }

// MaxExtent returns the longest window any literal inspects. A streaming
// caller must keep MaxExtent-1 bytes of history to see matches that
// straddle a block boundary.
func (m *Matcher) MaxExtent() int { return m.maxExtent }

// MinLen returns the length of the shortest literal.
func (m *Matcher) MinLen() int { return m.minLen }

// Scan runs the matcher and returns Stop if the callback stopped it.
func (m *Matcher) Scan(sc Scan) Status {
	if sc.Start < 0 {
		sc.Start = 0
	}
	if sc.Start >= len(sc.Buf) {
		return Continue
	}
	if m.reject != nil && len(sc.History) == 0 && sc.Start == 0 && !m.reject.IsMatch(sc.Buf) {
		return Continue
	}
	r := run{m: m, sc: &sc, lastID: -1}

	from := sc.Start
	h := min(len(sc.History), m.maxExtent-1)
	b := min(len(sc.Buf), m.maxExtent-1)
	if h > 0 && from < b {
		// Ends in [from, b) may need bytes from history: scan them over a
		// joined window of history tail and buffer head.
		j := append(sc.Tmp[:0], sc.History[len(sc.History)-h:]...)
		j = append(j, sc.Buf[:b]...)
		r.shift = h
		m.eng.scan(j, h+from, r.emit)
		if r.stopped {
			return Stop
		}
		from = b
		r.shift = 0
	}
	m.eng.scan(sc.Buf, from, r.emit)
	if r.stopped {
		return Stop
	}
	return Continue
}

// run carries the per-call filtering state shared by every engine.
type run struct {
	m       *Matcher
	sc      *Scan
	shift   int
	lastID  int64
	stopped bool
}

func (r *run) emit(end, idx int) bool {
	l := &r.m.lits[idx]
	if l.Groups&r.sc.Groups == 0 {
		return true
	}
	if l.NoRuns && r.lastID == int64(l.ID) {
		return true
	}
	r.lastID = int64(l.ID)
	e := end - r.shift
	if r.sc.Callback(e-l.Len()+1, e, l.ID) == Stop {
		r.stopped = true
		return false
	}
	return true
}

// confirmAt appends to out the indices in cands whose literal matches at
// end, then sorts them into build order.
func confirmAt(lits []literal.Literal, buf []byte, end int, cands []int32, out []int) []int {
	for _, c := range cands {
		if lits[c].Matches(buf[:end+1]) {
			out = append(out, int(c))
		}
	}
	return out
}

// emitSorted reports the confirmed indices for one end position.
func emitSorted(end int, idx []int, emit func(end, lit int) bool) bool {
	if len(idx) > 1 {
		slices.Sort(idx)
		idx = slices.Compact(idx)
	}
	for _, i := range idx {
		if !emit(end, i) {
			return false
		}
	}
	return true
}
