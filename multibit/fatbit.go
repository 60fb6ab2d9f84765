package multibit

import (
	"encoding/binary"
	"math/bits"
)

// FatbitSize returns the bytes a fatbit over [0, total) occupies.
func FatbitSize(total int) int { return (total + wordBits - 1) / wordBits * 8 }

// Fatbit is a flat bitmap stored in a byte slice.
type Fatbit struct {
	buf   []byte
	total int
}

// NewFatbit binds a fatbit over [0, total) to buf.
func NewFatbit(buf []byte, total int) Fatbit {
	n := FatbitSize(total)
	if len(buf) < n {
		panic("multibit: buffer smaller than fatbit")
	}
	return Fatbit{buf: buf[:n], total: total}
}

func (f Fatbit) word(i int) uint64 { return binary.LittleEndian.Uint64(f.buf[i*8:]) }

func (f Fatbit) check(i int) {
	if i < 0 || i >= f.total {
		panic("multibit: fatbit key out of range")
	}
}

// Set sets key i and reports whether it was already set.
func (f Fatbit) Set(i int) bool {
	f.check(i)
	w := f.word(i / wordBits)
	bit := uint64(1) << (i % wordBits)
	binary.LittleEndian.PutUint64(f.buf[i/wordBits*8:], w|bit)
	return w&bit != 0
}

// Unset clears key i.
func (f Fatbit) Unset(i int) {
	f.check(i)
	w := f.word(i / wordBits)
	binary.LittleEndian.PutUint64(f.buf[i/wordBits*8:], w&^(1<<(i%wordBits)))
}

// IsSet reports whether key i is set.
func (f Fatbit) IsSet(i int) bool {
	f.check(i)
	return f.word(i/wordBits)&(1<<(i%wordBits)) != 0
}

// Clear unsets every key.
func (f Fatbit) Clear() { clear(f.buf) }

// Any reports whether any key is set.
func (f Fatbit) Any() bool {
	for i := 0; i < len(f.buf)/8; i++ {
		if f.word(i) != 0 {
			return true
		}
	}
	return false
}

// Count returns the number of set keys.
func (f Fatbit) Count() int {
	n := 0
	for i := 0; i < len(f.buf)/8; i++ {
		n += bits.OnesCount64(f.word(i))
	}
	return n
}

// Iterate returns the smallest set key greater than prev, or -1.
func (f Fatbit) Iterate(prev int) int {
	idx := prev + 1
	if idx < 0 {
		idx = 0
	}
	for wi := idx / wordBits; wi < len(f.buf)/8; wi++ {
		w := f.word(wi)
		if wi == idx/wordBits {
			w &= ^uint64(0) << (idx % wordBits)
		}
		if w != 0 {
			k := wi*wordBits + bits.TrailingZeros64(w)
			if k >= f.total {
				return -1
			}
			return k
		}
	}
	return -1
}
