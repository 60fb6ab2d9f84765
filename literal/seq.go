package literal

import (
	"bytes"
	"sort"
)

// Seq is an ordered collection of literals handed to a matcher build.
// Order matters: matchers report literals ending at the same position in
// sequence order.
type Seq struct {
	lits []Literal
}

// NewSeq returns a sequence over lits. The slice is retained.
func NewSeq(lits ...Literal) *Seq {
	return &Seq{lits: lits}
}

// Len returns the number of literals.
func (s *Seq) Len() int { return len(s.lits) }

// Get returns the i'th literal.
func (s *Seq) Get(i int) Literal { return s.lits[i] }

// Literals returns the backing slice.
func (s *Seq) Literals() []Literal { return s.lits }

// Stats summarises the sequence for engine selection.
type Stats struct {
	Count      int
	MinLen     int
	MaxLen     int
	MaxExtent  int
	AnyNocase  bool
	AnyMask    bool
	AnyNoRuns  bool
	TotalBytes int
}

// Stats computes the summary in one pass.
func (s *Seq) Stats() Stats {
	st := Stats{Count: len(s.lits)}
	for i, l := range s.lits {
		n := l.Len()
		if i == 0 || n < st.MinLen {
			st.MinLen = n
		}
		if n > st.MaxLen {
			st.MaxLen = n
		}
		if e := l.Extent(); e > st.MaxExtent {
			st.MaxExtent = e
		}
		st.AnyNocase = st.AnyNocase || l.Nocase
		st.AnyMask = st.AnyMask || len(l.Msk) > 0
		st.AnyNoRuns = st.AnyNoRuns || l.NoRuns
		st.TotalBytes += n
	}
	return st
}

// Dedup drops literals that are exact duplicates of an earlier one (same
// bytes, flags, groups, mask and id), keeping first-seen order.
func (s *Seq) Dedup() {
	seen := make(map[string]struct{}, len(s.lits))
	out := s.lits[:0]
	for _, l := range s.lits {
		k := key(l)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	s.lits = out
}

func key(l Literal) string {
	var b bytes.Buffer
	b.Write(l.Bytes)
	b.WriteByte(0)
	if l.Nocase {
		b.WriteByte('i')
	}
	if l.NoRuns {
		b.WriteByte('r')
	}
	b.WriteByte(0)
	b.Write(l.Msk)
	b.WriteByte(0)
	b.Write(l.Cmp)
	var tail [12]byte
	for i := 0; i < 8; i++ {
		tail[i] = byte(l.Groups >> (8 * i))
	}
	for i := 0; i < 4; i++ {
		tail[8+i] = byte(l.ID >> (8 * i))
	}
	b.Write(tail[:])
	return b.String()
}

// ByLength returns literal indices ordered by ascending length, ties kept
// in sequence order. Bucketed engines use it to keep short literals, which
// produce the most false positives, together.
func (s *Seq) ByLength() []int {
	idx := make([]int, len(s.lits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.lits[idx[a]].Len() < s.lits[idx[b]].Len()
	})
	return idx
}

// LongestCommonSuffix returns the longest byte string every literal ends
// with, comparing caseless literals in folded form.
func (s *Seq) LongestCommonSuffix() []byte {
	if len(s.lits) == 0 {
		return nil
	}
	suf := s.lits[0].Bytes
	for _, l := range s.lits[1:] {
		n := 0
		for n < len(suf) && n < len(l.Bytes) && suf[len(suf)-1-n] == l.Bytes[len(l.Bytes)-1-n] {
			n++
		}
		suf = suf[len(suf)-n:]
		if n == 0 {
			break
		}
	}
	return append([]byte(nil), suf...)
}
