// Package simd provides the byte-scanning primitives behind the literal
// matchers and the automaton accelerators.
//
// Everything here is written in SIMD-within-a-register style: bytes are read
// eight at a time into a uint64 and tested with carry-free bit tricks. The
// same code runs on every architecture, so database bytecode never depends
// on which scanner a host would have picked. Vector width only influences
// block sizes chosen at compile time (see litmatch).
//
// The accelerator families mirror the classic names:
//   - Vermicelli: Memchr, Memchr2, Memchr3 and the negated MemchrNot
//   - Double vermicelli: MemchrPair, a two-byte pair at a fixed distance
//   - Shufti: nibble-mask class search (Shufti)
//   - Truffle: full 256-bit table class search (Truffle)
package simd

import (
	"encoding/binary"
	"math/bits"
)

const (
	lo8 = uint64(0x0101010101010101)
	hi8 = uint64(0x8080808080808080)
)

// broadcast replicates b into every byte of a uint64.
func broadcast(b byte) uint64 {
	return uint64(b) * lo8
}

// zeroBytes returns a word with the high bit set in every byte lane of x
// that is zero. Lanes above the first zero lane may be reported falsely
// because of borrow propagation, so callers only trust the lowest set lane.
func zeroBytes(x uint64) uint64 {
	return (x - lo8) & ^x & hi8
}

// exactZeroBytes is like zeroBytes but exact in every lane. It costs one
// more operation and is used where every lane matters: pair search and
// the negated scans.
func exactZeroBytes(x uint64) uint64 {
	// Clear the high bit, add 0x7f to every lane: a lane overflows into
	// its high bit unless it was zero. Or-ing x back in catches lanes whose
	// own high bit was set.
	y := (x&^hi8 + ^hi8) | x
	return ^y & hi8
}

// firstLane returns the index of the lowest lane whose high bit is set in m.
func firstLane(m uint64) int {
	return bits.TrailingZeros64(m) >> 3
}

// lastLane returns the index of the highest lane whose high bit is set in m.
func lastLane(m uint64) int {
	return (63 - bits.LeadingZeros64(m)) >> 3
}

func load64(b []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(b[i:])
}
