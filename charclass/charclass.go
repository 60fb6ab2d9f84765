// Package charclass implements 256-bit byte reachability sets.
//
// A Set records which input bytes a graph vertex or automaton state can
// consume. The representation is four uint64 words, so every set operation
// is a handful of word operations and sets can be used as map keys.
package charclass

import (
	"fmt"
	"math/bits"
	"strings"
)

// Set is a set of byte values.
type Set [4]uint64

// All returns the set containing every byte.
func All() Set { return Set{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)} }

// Of returns the set containing exactly the given bytes.
func Of(bs ...byte) Set {
	var s Set
	for _, b := range bs {
		s.Set(b)
	}
	return s
}

// Range returns the set [lo, hi].
func Range(lo, hi byte) Set {
	var s Set
	s.SetRange(lo, hi)
	return s
}

// Set adds b.
func (s *Set) Set(b byte) { s[b>>6] |= 1 << (b & 63) }

// Clear removes b.
func (s *Set) Clear(b byte) { s[b>>6] &^= 1 << (b & 63) }

// Test reports whether b is a member.
func (s Set) Test(b byte) bool { return s[b>>6]&(1<<(b&63)) != 0 }

// SetRange adds every byte in [lo, hi].
func (s *Set) SetRange(lo, hi byte) {
	for c := int(lo); c <= int(hi); c++ {
		s.Set(byte(c))
	}
}

// AddCaseless adds the other ASCII case of every letter already present.
func (s *Set) AddCaseless() {
	for c := 'a'; c <= 'z'; c++ {
		lower, upper := byte(c), byte(c-32)
		if s.Test(lower) || s.Test(upper) {
			s.Set(lower)
			s.Set(upper)
		}
	}
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set {
	return Set{s[0] | o[0], s[1] | o[1], s[2] | o[2], s[3] | o[3]}
}

// Intersect returns s ∩ o.
func (s Set) Intersect(o Set) Set {
	return Set{s[0] & o[0], s[1] & o[1], s[2] & o[2], s[3] & o[3]}
}

// Subtract returns s \ o.
func (s Set) Subtract(o Set) Set {
	return Set{s[0] &^ o[0], s[1] &^ o[1], s[2] &^ o[2], s[3] &^ o[3]}
}

// Negate returns the complement of s.
func (s Set) Negate() Set {
	return Set{^s[0], ^s[1], ^s[2], ^s[3]}
}

// IsSubsetOf reports whether every member of s is in o.
func (s Set) IsSubsetOf(o Set) bool {
	return s[0]&^o[0] == 0 && s[1]&^o[1] == 0 && s[2]&^o[2] == 0 && s[3]&^o[3] == 0
}

// Overlaps reports whether s and o share a member.
func (s Set) Overlaps(o Set) bool {
	return s[0]&o[0] != 0 || s[1]&o[1] != 0 || s[2]&o[2] != 0 || s[3]&o[3] != 0
}

// Count returns the number of members.
func (s Set) Count() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1]) +
		bits.OnesCount64(s[2]) + bits.OnesCount64(s[3])
}

// IsEmpty reports whether s has no members.
func (s Set) IsEmpty() bool { return s[0]|s[1]|s[2]|s[3] == 0 }

// IsAll reports whether s contains every byte.
func (s Set) IsAll() bool { return s == All() }

// First returns the smallest member, or -1 for the empty set.
func (s Set) First() int { return s.Next(-1) }

// Next returns the smallest member greater than prev, or -1.
func (s Set) Next(prev int) int {
	c := prev + 1
	for c < 256 {
		w := s[c>>6] >> (uint(c) & 63)
		if w != 0 {
			return c + bits.TrailingZeros64(w)
		}
		c = (c | 63) + 1
	}
	return -1
}

// ForEach calls fn for every member in ascending order.
func (s Set) ForEach(fn func(b byte)) {
	for c := s.First(); c >= 0; c = s.Next(c) {
		fn(byte(c))
	}
}

// Bytes returns the members in ascending order.
func (s Set) Bytes() []byte {
	out := make([]byte, 0, s.Count())
	s.ForEach(func(b byte) { out = append(out, b) })
	return out
}

// Table expands s into a membership table for the simd class scanners.
func (s Set) Table() *[256]bool {
	var t [256]bool
	s.ForEach(func(b byte) { t[b] = true })
	return &t
}

// IsCaselessChar reports whether s is exactly the two cases of one ASCII
// letter.
func (s Set) IsCaselessChar() bool {
	if s.Count() != 2 {
		return false
	}
	a := byte(s.First())
	b := byte(s.Next(int(a)))
	return a >= 'A' && a <= 'Z' && b == a+32
}

// Literal reports whether s can be matched as one literal byte: either a
// single byte, or a letter in both cases. It returns the lower-case byte
// and whether the match is caseless.
func (s Set) Literal() (b byte, nocase, ok bool) {
	switch {
	case s.Count() == 1:
		return byte(s.First()), false, true
	case s.IsCaselessChar():
		return byte(s.First()) + 32, true, true
	}
	return 0, false, false
}

// String renders s as a bracketed class, compressing runs.
func (s Set) String() string {
	if s.IsAll() {
		return "[\\x00-\\xff]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for c := s.First(); c >= 0; {
		end := c
		for end < 255 && s.Test(byte(end+1)) {
			end++
		}
		sb.WriteString(printable(byte(c)))
		if end > c {
			if end > c+1 {
				sb.WriteByte('-')
			}
			sb.WriteString(printable(byte(end)))
		}
		c = s.Next(end)
	}
	sb.WriteByte(']')
	return sb.String()
}

func printable(b byte) string {
	if b > ' ' && b < 0x7f && b != '-' && b != '\\' && b != ']' && b != '[' {
		return string(rune(b))
	}
	return fmt.Sprintf("\\x%02x", b)
}
