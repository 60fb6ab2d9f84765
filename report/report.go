// Package report defines what a match means to the outside world.
//
// Engines and literal programs never talk about pattern ids directly. They
// raise a report ID, and the report table says what to do: deliver an
// external match for a pattern (subject to offset and length bounds and
// single-match exhaustion), or feed a top into a chained repeat engine.
package report

import (
	"fmt"
	"math"
	"sort"
)

// ID indexes the report table.
type ID uint32

// NoEkey marks a report that never exhausts.
const NoEkey = math.MaxUint32

// NoDkey marks a report that is not deduplicated.
const NoDkey = math.MaxUint32

// Unbounded is the MaxOffset of a report with no upper bound.
const Unbounded = math.MaxUint64

// Type distinguishes external reports from chain reports.
type Type uint8

const (
	// External delivers a match to the caller.
	External Type = iota

	// Chain pushes a top into a chained repeat engine.
	Chain
)

func (t Type) String() string {
	if t == Chain {
		return "chain"
	}
	return "external"
}

// Report is one entry of the report table.
type Report struct {
	Type Type

	// Onmatch is the caller's pattern id for external reports, or the
	// chained puffette index for chain reports.
	Onmatch uint32

	// Ekey is the exhaustion key, or NoEkey.
	Ekey uint32

	// Dkey is the deduplication key, or NoDkey. Assigned by the manager.
	Dkey uint32

	// MinOffset and MaxOffset bound the end offset of a reported match.
	MinOffset uint64
	MaxOffset uint64

	// MinLength bounds the match length; enforcing it needs start of
	// match tracking.
	MinLength uint64

	// SOM asks for the leftmost start offset.
	SOM bool

	// Queue and Top address the chained engine for chain reports.
	Queue uint32
	Top   uint32
}

// HasBounds reports whether the report carries offset or length bounds.
func (r Report) HasBounds() bool {
	return r.MinOffset > 0 || r.MaxOffset != Unbounded || r.MinLength > 0
}

// InBounds reports whether a match at end offset end (exclusive) with the
// given start passes the report's bounds. start is ignored unless
// MinLength is set.
func (r Report) InBounds(start, end uint64) bool {
	if end < r.MinOffset || end > r.MaxOffset {
		return false
	}
	if r.MinLength > 0 && end-start < r.MinLength {
		return false
	}
	return true
}

// IsSimpleExhaustible reports whether the report exhausts after its first
// delivery.
func (r Report) IsSimpleExhaustible() bool {
	return r.Type == External && r.Ekey != NoEkey
}

func (r Report) String() string {
	s := fmt.Sprintf("%s:%d", r.Type, r.Onmatch)
	if r.Ekey != NoEkey {
		s += fmt.Sprintf(" ekey=%d", r.Ekey)
	}
	if r.HasBounds() {
		s += fmt.Sprintf(" [%d,%d] len>=%d", r.MinOffset, r.MaxOffset, r.MinLength)
	}
	if r.SOM {
		s += " som"
	}
	return s
}

// NewExternal returns an unbounded external report for a pattern.
func NewExternal(onmatch uint32) Report {
	return Report{Type: External, Onmatch: onmatch, Ekey: NoEkey, Dkey: NoDkey, MaxOffset: Unbounded}
}

// NewChain returns a chain report that pushes top into the chained
// engine's puffette.
func NewChain(puffette, top uint32) Report {
	return Report{Type: Chain, Onmatch: puffette, Ekey: NoEkey, Dkey: NoDkey, MaxOffset: Unbounded, Queue: 0, Top: top}
}

// Manager interns reports and hands out exhaustion and dedupe keys.
type Manager struct {
	reports []Report
	index   map[Report]ID
	ekeys   map[uint32]uint32 // pattern id -> ekey
	dkeys   map[uint32]uint32 // pattern id -> dkey
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		index: make(map[Report]ID),
		ekeys: make(map[uint32]uint32),
		dkeys: make(map[uint32]uint32),
	}
}

// Intern returns the id of r, adding it if needed. External reports get a
// dedupe key shared by every report of the same pattern.
func (m *Manager) Intern(r Report) ID {
	if r.Type == External {
		r.Dkey = m.dkey(r.Onmatch)
	}
	if id, ok := m.index[r]; ok {
		return id
	}
	id := ID(len(m.reports))
	m.reports = append(m.reports, r)
	m.index[r] = id
	return id
}

// Ekey returns the exhaustion key for a single-match pattern.
func (m *Manager) Ekey(pattern uint32) uint32 {
	if k, ok := m.ekeys[pattern]; ok {
		return k
	}
	k := uint32(len(m.ekeys))
	m.ekeys[pattern] = k
	return k
}

func (m *Manager) dkey(pattern uint32) uint32 {
	if k, ok := m.dkeys[pattern]; ok {
		return k
	}
	k := uint32(len(m.dkeys))
	m.dkeys[pattern] = k
	return k
}

// Get returns the report with the given id.
func (m *Manager) Get(id ID) Report { return m.reports[id] }

// Reports returns the table in id order.
func (m *Manager) Reports() []Report { return m.reports }

// NumEkeys returns the number of exhaustion keys handed out.
func (m *Manager) NumEkeys() int { return len(m.ekeys) }

// NumDkeys returns the number of dedupe keys handed out.
func (m *Manager) NumDkeys() int { return len(m.dkeys) }

// IsSimpleExhaustible reports whether id exhausts after one delivery.
func (m *Manager) IsSimpleExhaustible(id ID) bool { return m.reports[id].IsSimpleExhaustible() }

// HasBounds reports whether id carries offset or length bounds.
func (m *Manager) HasBounds(id ID) bool { return m.reports[id].HasBounds() }

// AllExhaustible reports whether every external report in the table has
// an ekey, so that the scan can stop once all ekeys have fired.
func (m *Manager) AllExhaustible() bool {
	found := false
	for _, r := range m.reports {
		if r.Type != External {
			continue
		}
		if r.Ekey == NoEkey {
			return false
		}
		found = true
	}
	return found
}

// Set is a sorted, duplicate-free set of report ids.
type Set []ID

// Insert adds id, keeping the set sorted.
func (s Set) Insert(id ID) Set {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	if i < len(s) && s[i] == id {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = id
	return s
}

// Contains reports whether id is in the set.
func (s Set) Contains(id ID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Union returns the union of two sets.
func (s Set) Union(o Set) Set {
	out := append(Set(nil), s...)
	for _, id := range o {
		out = out.Insert(id)
	}
	return out
}

// Equal reports whether two sets hold the same ids.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}
