package litmatch

import (
	"math/bits"

	"github.com/coregx/corescan/literal"
)

const (
	fdrBuckets = 8
	fdrWindow  = 8
)

// fdr is the bucketed shift-or engine.
//
// The state is 64 bits: eight byte lanes, one per window position, each
// holding one bit per bucket. reach[c] has bit (j*8 + k) set when byte c
// is not acceptable for any literal of bucket k at distance 7-j from the
// window end. Each input byte shifts the state up by one lane and ORs in
// its reach, so after the byte at position e the top lane has bit k clear
// exactly when every byte of the final window fits bucket k. Literals
// shorter than the window leave the earlier lanes clear, and the state
// starts at zero, so the top lane never rejects a short literal early.
type fdr struct {
	lits  []literal.Literal
	reach [256]uint64
	conf  [fdrBuckets]confirmTable
}

func newFDR(seq *literal.Seq) *fdr {
	e := &fdr{lits: seq.Literals()}
	buckets := assignBuckets(seq, fdrBuckets)

	// accept[k][t] is the set of bytes some literal of bucket k accepts at
	// distance t from its end.
	var accept [fdrBuckets][fdrWindow][256]bool
	for k, members := range buckets {
		for _, idx := range members {
			l := &e.lits[idx]
			n := l.Len()
			for t := 0; t < fdrWindow; t++ {
				if t >= n {
					for c := range accept[k][t] {
						accept[k][t][c] = true
					}
					continue
				}
				c := l.Bytes[n-1-t]
				accept[k][t][c] = true
				if l.Nocase && literal.IsAlpha(c) {
					accept[k][t][c^0x20] = true
				}
			}
		}
	}
	for c := 0; c < 256; c++ {
		var r uint64
		for k := 0; k < fdrBuckets; k++ {
			for t := 0; t < fdrWindow; t++ {
				if !accept[k][t][c] {
					r |= 1 << uint((fdrWindow-1-t)*8+k)
				}
			}
		}
		e.reach[c] = r
	}
	for k, members := range buckets {
		e.conf[k] = buildConfirm(e.lits, members)
	}
	return e
}

func (*fdr) kind() Engine { return EngineFDR }

func (e *fdr) scan(buf []byte, from int, emit func(end, lit int) bool) {
	var (
		cands []int32
		found []int
	)
	var s uint64
	for i := max(0, from-(fdrWindow-1)); i < len(buf); i++ {
		s = s<<8 | e.reach[buf[i]]
		if i < from {
			continue
		}
		top := ^(s >> 56) & 0xff
		if top == 0 {
			continue
		}
		cands = cands[:0]
		for ; top != 0; top &= top - 1 {
			k := bits.TrailingZeros64(top)
			cands = e.conf[k].lookup(buf, i, cands)
		}
		if len(cands) == 0 {
			continue
		}
		found = confirmAt(e.lits, buf, i, cands, found[:0])
		if !emitSorted(i, found, emit) {
			return
		}
	}
}
