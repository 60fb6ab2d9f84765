package litmatch

import "github.com/coregx/corescan/literal"

// naive checks every literal at every end position.
type naive struct {
	lits []literal.Literal
}

func (naive) kind() Engine { return EngineNaive }

func (n naive) scan(buf []byte, from int, emit func(end, lit int) bool) {
	for e := from; e < len(buf); e++ {
		for i := range n.lits {
			if n.lits[i].Matches(buf[:e+1]) && !emit(e, i) {
				return
			}
		}
	}
}
