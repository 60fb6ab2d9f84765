package litmatch

import (
	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/literal"
)

// Encode appends the matcher's tables to w.
func (m *Matcher) Encode(w *bytecode.Writer) {
	w.U8(uint8(m.eng.kind()))
	w.Bool(m.reject != nil)
	w.Int(len(m.lits))
	for _, l := range m.lits {
		w.Blob(l.Bytes)
		w.U32(l.ID)
		w.Bool(l.Nocase)
		w.Bool(l.NoRuns)
		w.U64(l.Groups)
		w.Blob(l.Msk)
		w.Blob(l.Cmp)
	}
	switch e := m.eng.(type) {
	case *teddy:
		w.Int(e.fp)
		w.Int(e.width)
		for k := 0; k < e.fp; k++ {
			for n := 0; n < 16; n++ {
				w.U16(e.lo[k][n])
				w.U16(e.hi[k][n])
			}
		}
		encodeBuckets(w, e.buckets)
	case *fdr:
		for _, r := range e.reach {
			w.U64(r)
		}
		for _, ct := range e.conf {
			w.Int(ct.keyLen)
			w.Bool(ct.fold)
			w.U8(uint8(ct.bits))
			encodeInt32s(w, ct.heads)
			encodeInt32s(w, ct.chain)
		}
	}
	w.Pad(bytecode.Align)
}

// Decode reads a matcher written by Encode.
func Decode(r *bytecode.Reader) (*Matcher, error) {
	kind := Engine(r.U8())
	hasReject := r.Bool()
	n := r.Count(MaxFDRLiterals)
	lits := make([]literal.Literal, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		l := literal.Literal{
			Bytes:  r.Blob(),
			ID:     r.U32(),
			Nocase: r.Bool(),
			NoRuns: r.Bool(),
			Groups: r.U64(),
			Msk:    r.Blob(),
			Cmp:    r.Blob(),
		}
		if r.Err() == nil {
			if err := l.Validate(); err != nil {
				r.Fail("literal %d: %v", i, err)
			}
		}
		lits = append(lits, l)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		r.Fail("empty literal table")
		return nil, r.Err()
	}
	st := literal.NewSeq(lits...).Stats()
	m := &Matcher{lits: lits, maxExtent: st.MaxExtent, minLen: st.MinLen}
	switch kind {
	case EngineNoodle:
		if n != 1 {
			r.Fail("noodle with %d literals", n)
		}
		m.eng = newNoodle(lits)
	case EngineTeddySlim, EngineTeddyFat:
		t := &teddy{lits: lits, fat: kind == EngineTeddyFat}
		t.fp = r.Int()
		t.width = r.Int()
		if t.fp < 1 || t.fp > MaxFingerprint || t.fp > st.MinLen || t.width < 1 || t.width > 64 {
			r.Fail("teddy fingerprint %d width %d", t.fp, t.width)
			return nil, r.Err()
		}
		for k := 0; k < t.fp; k++ {
			for i := 0; i < 16; i++ {
				t.lo[k][i] = r.U16()
				t.hi[k][i] = r.U16()
			}
		}
		nb := SlimBuckets
		if t.fat {
			nb = FatBuckets
		}
		t.buckets = decodeBuckets(r, nb, n)
		if r.Err() == nil && !t.masksValid() {
			r.Fail("teddy masks name missing buckets")
		}
		m.eng = t
	case EngineFDR:
		e := &fdr{lits: lits}
		for c := range e.reach {
			e.reach[c] = r.U64()
		}
		for k := range e.conf {
			ct := &e.conf[k]
			ct.keyLen = r.Int()
			ct.fold = r.Bool()
			ct.bits = uint(r.U8())
			ct.heads = decodeInt32s(r, 1<<20)
			ct.chain = decodeInt32s(r, n)
			if r.Err() == nil && !ct.valid(n, st.MinLen) {
				r.Fail("fdr confirm table %d", k)
			}
		}
		m.eng = e
	case EngineNaive:
		m.eng = naive{lits: lits}
	default:
		r.Fail("unknown engine %d", kind)
	}
	r.Pad(bytecode.Align)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if hasReject {
		m.reject = buildReject(lits)
	}
	return m, nil
}

func (t *teddy) masksValid() bool {
	allowed := uint16(1)<<len(t.buckets) - 1
	for k := 0; k < t.fp; k++ {
		for i := 0; i < 16; i++ {
			if (t.lo[k][i]|t.hi[k][i])&^allowed != 0 {
				return false
			}
		}
	}
	return true
}

func (ct *confirmTable) valid(nlits, minLen int) bool {
	if ct.keyLen == 0 {
		return len(ct.heads) == 0 && len(ct.chain) == 0
	}
	if ct.keyLen > fdrWindow || ct.bits > 20 || len(ct.heads) != 1<<ct.bits+1 {
		return false
	}
	prev := int32(0)
	for _, h := range ct.heads {
		if h < prev || int(h) > len(ct.chain) {
			return false
		}
		prev = h
	}
	for _, c := range ct.chain {
		if c < 0 || int(c) >= nlits {
			return false
		}
	}
	return ct.heads[len(ct.heads)-1] == int32(len(ct.chain))
}

func encodeInt32s(w *bytecode.Writer, s []int32) {
	w.Int(len(s))
	for _, v := range s {
		w.I32(v)
	}
}

func decodeInt32s(r *bytecode.Reader, max int) []int32 {
	n := r.Count(max)
	if n == 0 {
		return nil
	}
	s := make([]int32, n)
	for i := range s {
		s[i] = r.I32()
	}
	return s
}

func encodeBuckets(w *bytecode.Writer, buckets [][]int32) {
	w.Int(len(buckets))
	for _, b := range buckets {
		encodeInt32s(w, b)
	}
}

func decodeBuckets(r *bytecode.Reader, maxBuckets, nlits int) [][]int32 {
	nb := r.Count(maxBuckets)
	buckets := make([][]int32, nb)
	for i := range buckets {
		buckets[i] = decodeInt32s(r, nlits)
		for _, c := range buckets[i] {
			if c < 0 || int(c) >= nlits {
				r.Fail("bucket member %d out of range", c)
			}
		}
	}
	return buckets
}
