package nfa

import (
	"encoding/binary"
	"fmt"
	"math"
)

// RepeatInf is the Max of an unbounded repeat.
const RepeatInf = math.MaxUint32

// maxRingRepeat is the largest bounded Max kept as a ring of tops.
const maxRingRepeat = 256

// RepeatType selects how the tops of a repeat are remembered.
type RepeatType uint8

const (
	// RepeatFirst keeps only the earliest top; used for unbounded
	// repeats, where later tops never match anything the first misses.
	RepeatFirst RepeatType = iota

	// RepeatRing keeps a bitmap of tops over the last Max+1 offsets.
	RepeatRing

	// RepeatRange keeps a sorted list of tops, dropping any top whose
	// match window is covered by its neighbours.
	RepeatRange
)

func (t RepeatType) String() string {
	switch t {
	case RepeatFirst:
		return "first"
	case RepeatRing:
		return "ring"
	case RepeatRange:
		return "range"
	}
	return fmt.Sprintf("repeat(%d)", t)
}

// RepeatInfo describes a repeat {Min,Max} and the packed state its
// control keeps. All offsets in the state are absolute.
type RepeatInfo struct {
	Type     RepeatType
	Min      uint32
	Max      uint32
	Capacity int // tops held by a RepeatRange
	Size     int // state bytes
}

// NewRepeatInfo picks the control for {min,max}. min must be at least 1.
func NewRepeatInfo(min, max uint32) (RepeatInfo, error) {
	if min == 0 || max < min {
		return RepeatInfo{}, fmt.Errorf("%w: repeat {%d,%d}", ErrInvalidConfig, min, max)
	}
	ri := RepeatInfo{Min: min, Max: max}
	switch {
	case max == RepeatInf:
		ri.Type = RepeatFirst
		ri.Size = 16
	case max <= maxRingRepeat:
		ri.Type = RepeatRing
		ri.Size = 16 + ringWords(max)*8
	default:
		ri.Type = RepeatRange
		gap := uint64(max-min) + 1
		ri.Capacity = 2*int(uint64(max)/gap+2) + 2
		ri.Size = 8 + ri.Capacity*8
	}
	return ri, nil
}

func ringWords(max uint32) int { return (int(max) + 1 + 63) / 64 }

// repeatState is a view of one control's bytes.
type repeatState struct {
	info *RepeatInfo
	b    []byte
}

func (rs repeatState) u64(i int) uint64    { return binary.LittleEndian.Uint64(rs.b[i*8:]) }
func (rs repeatState) put(i int, v uint64) { binary.LittleEndian.PutUint64(rs.b[i*8:], v) }

func (rs repeatState) clear() { clear(rs.b[:rs.info.Size]) }

// empty reports whether no top is held. Word 0 is the count of tops for
// every control.
func (rs repeatState) empty() bool { return rs.u64(0) == 0 }

// add records a top whose first repeat byte is at offset t. Tops arrive
// in non-decreasing order.
func (rs repeatState) add(t uint64) {
	ri := rs.info
	switch ri.Type {
	case RepeatFirst:
		if rs.empty() {
			rs.put(0, 1)
			rs.put(1, t)
		}
	case RepeatRing:
		nw := ringWords(ri.Max)
		if rs.empty() || t-rs.u64(1) > uint64(ri.Max) {
			for w := 0; w < nw; w++ {
				rs.put(2+w, 0)
			}
			rs.put(0, 1)
		} else if shift := t - rs.u64(1); shift > 0 {
			rs.shiftRing(int(shift))
		}
		rs.put(1, t)
		rs.put(2, rs.u64(2)|1)
	case RepeatRange:
		n := int(rs.u64(0))
		// Drop tops that can no longer match at or after t.
		drop := 0
		for drop < n && rs.u64(1+drop)+uint64(ri.Max) < t {
			drop++
		}
		if drop > 0 {
			copy(rs.b[8:], rs.b[8+drop*8:8+n*8])
			n -= drop
		}
		if n > 0 && rs.u64(n) == t {
			rs.put(0, uint64(n))
			return
		}
		if n == ri.Capacity {
			panic("nfa: repeat range overflow")
		}
		rs.put(1+n, t)
		n++
		gap := uint64(ri.Max-ri.Min) + 1
		for n >= 3 && rs.u64(n)-rs.u64(n-2) <= gap {
			rs.put(n-1, rs.u64(n))
			n--
		}
		rs.put(0, uint64(n))
	}
}

// shiftRing ages every ring entry by shift offsets. Bit d of the bitmap is
// the top at lastTop-d; bits past Max fall off.
func (rs repeatState) shiftRing(shift int) {
	nw := ringWords(rs.info.Max)
	ws, bs := shift/64, shift%64
	for w := nw - 1; w >= 0; w-- {
		var v uint64
		if src := w - ws; src >= 0 {
			v = rs.u64(2+src) << bs
			if bs > 0 && src-1 >= 0 {
				v |= rs.u64(2+src-1) >> (64 - bs)
			}
		}
		rs.put(2+w, v)
	}
	if extra := (int(rs.info.Max) + 1) % 64; extra != 0 {
		rs.put(2+nw-1, rs.u64(2+nw-1)&(1<<extra-1))
	}
}

// each calls fn with every held top, oldest first, until fn returns false.
func (rs repeatState) each(fn func(t uint64) bool) {
	ri := rs.info
	switch ri.Type {
	case RepeatFirst:
		if !rs.empty() {
			fn(rs.u64(1))
		}
	case RepeatRing:
		if rs.empty() {
			return
		}
		last := rs.u64(1)
		for d := int(ri.Max); d >= 0; d-- {
			if rs.u64(2+d/64)&(1<<(d%64)) != 0 && uint64(d) <= last {
				if !fn(last - uint64(d)) {
					return
				}
			}
		}
	case RepeatRange:
		n := int(rs.u64(0))
		for i := 0; i < n; i++ {
			if !fn(rs.u64(1 + i)) {
				return
			}
		}
	}
}

// nextMatch returns the first end offset e >= lo at which some top
// matches: t+Min <= e <= t+Max.
func (rs repeatState) nextMatch(lo uint64) (uint64, bool) {
	best, found := uint64(0), false
	rs.each(func(t uint64) bool {
		e := max(lo, t+uint64(rs.info.Min))
		if rs.info.Max != RepeatInf && e > t+uint64(rs.info.Max) {
			return true
		}
		if !found || e < best {
			best, found = e, true
		}
		return true
	})
	return best, found
}

// matchesAt reports whether some top matches at end offset e.
func (rs repeatState) matchesAt(e uint64) bool {
	hit := false
	rs.each(func(t uint64) bool {
		if e >= t+uint64(rs.info.Min) && (rs.info.Max == RepeatInf || e <= t+uint64(rs.info.Max)) {
			hit = true
			return false
		}
		return true
	})
	return hit
}
