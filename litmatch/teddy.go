package litmatch

import (
	"math/bits"
	"slices"

	"github.com/coregx/corescan/literal"
)

// teddy is the nibble-mask bucket engine.
//
// Every literal is assigned to a bucket. For each of the fp fingerprint
// positions, counted back from the literal's last byte, two 16-entry
// tables map the low and high nibble of an input byte to the set of
// buckets holding a literal that accepts that byte there. ANDing the
// lookups over the fp bytes ending at a position yields the buckets that
// may have a literal ending there; those literals are then confirmed.
//
// Slim Teddy keeps 8 buckets in a byte per lane, fat Teddy 16 in a
// uint16. Positions are processed in blocks of width lanes: the masks for
// a whole block are computed before any candidate is examined, the way
// the vector implementation produces them with one shuffle per nibble.
type teddy struct {
	lits    []literal.Literal
	fat     bool
	fp      int
	width   int
	lo      [MaxFingerprint][16]uint16
	hi      [MaxFingerprint][16]uint16
	buckets [][]int32
}

func newTeddy(seq *literal.Seq, fat bool, fp, width int) *teddy {
	nb := SlimBuckets
	if fat {
		nb = FatBuckets
	}
	t := &teddy{lits: seq.Literals(), fat: fat, fp: fp, width: width}
	t.buckets = assignBuckets(seq, nb)
	for b, members := range t.buckets {
		bit := uint16(1) << b
		for _, idx := range members {
			l := &t.lits[idx]
			tail := l.Bytes[l.Len()-fp:]
			for k, c := range tail {
				t.set(k, c, bit)
				if l.Nocase && literal.IsAlpha(c) {
					t.set(k, c^0x20, bit)
				}
			}
		}
	}
	return t
}

func (t *teddy) set(k int, c byte, bit uint16) {
	t.lo[k][c&0xf] |= bit
	t.hi[k][c>>4] |= bit
}

func (t *teddy) kind() Engine {
	if t.fat {
		return EngineTeddyFat
	}
	return EngineTeddySlim
}

// assignBuckets spreads literals over nb buckets in length order, so that
// short literals, which are the most likely to produce false positives,
// share buckets with each other rather than with long ones. Each bucket
// lists its literals in build order.
func assignBuckets(seq *literal.Seq, nb int) [][]int32 {
	order := seq.ByLength()
	n := len(order)
	if n < nb {
		nb = n
	}
	buckets := make([][]int32, nb)
	for rank, idx := range order {
		b := rank * nb / n
		buckets[b] = append(buckets[b], int32(idx))
	}
	for _, b := range buckets {
		slices.Sort(b)
	}
	return buckets
}

func (t *teddy) scan(buf []byte, from int, emit func(end, lit int) bool) {
	var (
		lanes [64]uint16
		cands []int32
		found []int
	)
	begin := max(from, t.fp-1)
	for base := begin; base < len(buf); base += t.width {
		n := min(t.width, len(buf)-base)
		block := lanes[:n]
		for i := range block {
			block[i] = 0xffff
		}
		for k := 0; k < t.fp; k++ {
			off := base - t.fp + 1 + k
			lo, hi := &t.lo[k], &t.hi[k]
			for i := range block {
				c := buf[off+i]
				block[i] &= lo[c&0xf] & hi[c>>4]
			}
		}
		var any uint16
		for _, m := range block {
			any |= m
		}
		if any == 0 {
			continue
		}
		for i, m := range block {
			if m == 0 {
				continue
			}
			end := base + i
			cands = cands[:0]
			for ; m != 0; m &= m - 1 {
				cands = append(cands, t.buckets[bits.TrailingZeros16(m)]...)
			}
			found = confirmAt(t.lits, buf, end, cands, found[:0])
			if !emitSorted(end, found, emit) {
				return
			}
		}
	}
}
