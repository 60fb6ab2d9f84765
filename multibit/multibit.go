// Package multibit implements sparse bit trackers that live in
// caller-provided byte slices.
//
// A Multibit is a hierarchical bitmap. The bottom level holds one bit per
// key; every level above holds one bit per non-empty word of the level
// below. Iteration walks the summary levels and so costs time proportional
// to the number of set keys times the depth rather than to the key range.
// Because all state lives in the byte slice, a multibit inside stream state
// is copied, saved and restored as plain bytes.
//
// A Fatbit is the flat variant with the same API, for small dense rows
// that are cleared often.
package multibit

import (
	"encoding/binary"
	"math/bits"
)

const wordBits = 64

// Layout describes the level structure of a multibit over a key range. It
// is computed once at compile time and shared by every instance.
type Layout struct {
	total  int
	levels []level // levels[0] is the root
}

type level struct {
	off   int // word offset into the buffer
	words int
	bits  int // meaningful bits at this level
}

// NewLayout builds the layout for keys in [0, total).
func NewLayout(total int) Layout {
	if total < 0 {
		panic("multibit: negative key range")
	}
	var rev []level
	n := total
	for {
		words := (n + wordBits - 1) / wordBits
		if words == 0 {
			words = 1
		}
		rev = append(rev, level{words: words, bits: n})
		if words == 1 {
			break
		}
		n = words
	}
	l := Layout{total: total, levels: make([]level, len(rev))}
	off := 0
	for i := range rev {
		lv := rev[len(rev)-1-i]
		lv.off = off
		off += lv.words
		l.levels[i] = lv
	}
	return l
}

// Total returns the key range.
func (l Layout) Total() int { return l.total }

// Depth returns the number of levels.
func (l Layout) Depth() int { return len(l.levels) }

// Size returns the number of bytes a multibit with this layout occupies.
func (l Layout) Size() int {
	last := l.levels[len(l.levels)-1]
	return (last.off + last.words) * 8
}

// Size returns the number of bytes needed to track keys in [0, total).
func Size(total int) int { return NewLayout(total).Size() }

// Multibit is a view of a hierarchical bitmap stored in a byte slice. The
// zero-filled slice is the empty set.
type Multibit struct {
	buf    []byte
	layout *Layout
	reads  *int // counts word reads in tests
}

// On binds the layout to buf, which must hold at least l.Size() bytes.
func (l *Layout) On(buf []byte) Multibit {
	if len(buf) < l.Size() {
		panic("multibit: buffer smaller than layout")
	}
	return Multibit{buf: buf[:l.Size()], layout: l}
}

func (m Multibit) word(lv, i int) uint64 {
	if m.reads != nil {
		*m.reads++
	}
	o := (m.layout.levels[lv].off + i) * 8
	return binary.LittleEndian.Uint64(m.buf[o:])
}

func (m Multibit) put(lv, i int, w uint64) {
	o := (m.layout.levels[lv].off + i) * 8
	binary.LittleEndian.PutUint64(m.buf[o:], w)
}

func (m Multibit) bottom() int { return len(m.layout.levels) - 1 }

// Set sets key i and reports whether it was already set.
func (m Multibit) Set(i int) bool {
	m.check(i)
	idx := i
	for lv := m.bottom(); lv >= 0; lv-- {
		wi, bit := idx/wordBits, uint64(1)<<(idx%wordBits)
		w := m.word(lv, wi)
		if w&bit != 0 {
			return lv == m.bottom()
		}
		m.put(lv, wi, w|bit)
		if w != 0 {
			// The parent already records this word as non-empty.
			return false
		}
		idx = wi
	}
	return false
}

// Unset clears key i.
func (m Multibit) Unset(i int) {
	m.check(i)
	idx := i
	for lv := m.bottom(); lv >= 0; lv-- {
		wi, bit := idx/wordBits, uint64(1)<<(idx%wordBits)
		w := m.word(lv, wi)
		if w&bit == 0 {
			return
		}
		w &^= bit
		m.put(lv, wi, w)
		if w != 0 {
			return
		}
		idx = wi
	}
}

// IsSet reports whether key i is set.
func (m Multibit) IsSet(i int) bool {
	m.check(i)
	return m.word(m.bottom(), i/wordBits)&(1<<(i%wordBits)) != 0
}

// Any reports whether any key is set.
func (m Multibit) Any() bool { return m.word(0, 0) != 0 }

// Clear unsets every key, touching only non-empty words.
func (m Multibit) Clear() {
	m.eachWord(0, 0, func(lv, wi int, _ uint64) { m.put(lv, wi, 0) })
}

// Count returns the number of set keys.
func (m Multibit) Count() int {
	n := 0
	b := m.bottom()
	m.eachWord(0, 0, func(lv, _ int, w uint64) {
		if lv == b {
			n += bits.OnesCount64(w)
		}
	})
	return n
}

// eachWord calls fn on every non-empty word in the subtree rooted at word
// wi of level lv, children before parents.
func (m Multibit) eachWord(lv, wi int, fn func(lv, wi int, w uint64)) {
	w := m.word(lv, wi)
	if w == 0 {
		return
	}
	if lv < m.bottom() {
		for rest := w; rest != 0; rest &= rest - 1 {
			m.eachWord(lv+1, wi*wordBits+bits.TrailingZeros64(rest), fn)
		}
	}
	fn(lv, wi, w)
}

// Iterate returns the smallest set key greater than prev, or -1 when there
// is none. Pass prev = -1 to start.
func (m Multibit) Iterate(prev int) int {
	idx := prev + 1
	if idx <= 0 {
		idx = 0
	}
	if idx >= m.layout.total {
		return -1
	}
	lv := m.bottom()
	for {
		if idx >= m.layout.levels[lv].bits {
			return -1
		}
		wi := idx / wordBits
		w := m.word(lv, wi) & (^uint64(0) << (idx % wordBits))
		if w != 0 {
			idx = wi*wordBits + bits.TrailingZeros64(w)
			break
		}
		if lv == 0 {
			return -1
		}
		idx = wi + 1
		lv--
	}
	for ; lv < m.bottom(); lv++ {
		idx = idx*wordBits + bits.TrailingZeros64(m.word(lv+1, idx))
	}
	return idx
}

func (m Multibit) check(i int) {
	if i < 0 || i >= m.layout.total {
		panic("multibit: key out of range")
	}
}
