package litmatch

import (
	"github.com/coregx/corescan/literal"
	"github.com/coregx/corescan/simd"
)

// noodle finds a single literal with a rare-byte anchored memmem.
type noodle struct {
	lit literal.Literal
}

func newNoodle(lits []literal.Literal) *noodle { return &noodle{lit: lits[0]} }

func (*noodle) kind() Engine { return EngineNoodle }

func (n *noodle) scan(buf []byte, from int, emit func(end, lit int) bool) {
	l := &n.lit
	size := l.Len()
	pos := max(0, from-size+1)
	for pos+size <= len(buf) {
		var i int
		if l.Nocase {
			i = simd.MemmemFold(buf[pos:], l.Bytes)
		} else {
			i = simd.Memmem(buf[pos:], l.Bytes)
		}
		if i < 0 {
			return
		}
		start := pos + i
		end := start + size - 1
		if l.MaskMatches(buf[:end+1]) && !emit(end, 0) {
			return
		}
		pos = start + 1
	}
}
