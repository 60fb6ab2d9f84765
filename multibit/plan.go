package multibit

import (
	"math/bits"
	"sort"
)

// IterNode is one node of a sparse iterator. Mask selects the bits of
// interest in the corresponding multibit word. For an interior node Val is
// the index of the node serving the first selected child; for a bottom
// node it is the rank of the first selected key.
type IterNode struct {
	Mask uint64
	Val  uint32
}

// SparseIter walks only a fixed set of keys of interest, in key order,
// following a plan computed at compile time.
type SparseIter struct {
	layout Layout
	keys   []int
	levels [][]IterNode // levels[0] holds the root node
}

// BuildSparseIter plans an iterator over keys, which must lie in
// [0, total). Duplicates are ignored.
func BuildSparseIter(keys []int, total int) SparseIter {
	lay := NewLayout(total)
	ks := uniqueSorted(keys)
	for _, k := range ks {
		if k < 0 || k >= total {
			panic("multibit: sparse iterator key out of range")
		}
	}
	it := SparseIter{layout: lay, keys: ks, levels: make([][]IterNode, lay.Depth())}

	// Word indices touched at each level, from the bottom up.
	cur := ks
	for lv := lay.Depth() - 1; lv >= 0; lv-- {
		var nodes []IterNode
		var words []int
		for _, k := range cur {
			wi := k / wordBits
			if len(words) == 0 || words[len(words)-1] != wi {
				words = append(words, wi)
				nodes = append(nodes, IterNode{})
			}
			nodes[len(nodes)-1].Mask |= 1 << (k % wordBits)
		}
		if len(nodes) == 0 {
			nodes = []IterNode{{}}
		}
		it.levels[lv] = nodes
		cur = words
	}
	// Val fields: children are laid out in key order, so the first child
	// of a node follows the children of all earlier nodes.
	for lv := range it.levels {
		next := uint32(0)
		for i := range it.levels[lv] {
			it.levels[lv][i].Val = next
			next += uint32(bits.OnesCount64(it.levels[lv][i].Mask))
		}
	}
	return it
}

// Keys returns the planned keys in order.
func (it *SparseIter) Keys() []int { return it.keys }

// Begin returns the first planned key set in m and its rank among the
// planned keys, or (-1, -1).
func (it *SparseIter) Begin(m Multibit) (key, rank int) { return it.Next(m, -1) }

// Next returns the first planned key greater than prev that is set in m.
func (it *SparseIter) Next(m Multibit, prev int) (key, rank int) {
	if len(it.keys) == 0 {
		return -1, -1
	}
	return it.visit(m, 0, 0, 0, prev)
}

// span returns how many keys one bit at level lv covers.
func (it *SparseIter) span(lv int) int {
	s := 1
	for i := lv; i < it.layout.Depth()-1; i++ {
		s *= wordBits
	}
	return s
}

func (it *SparseIter) visit(m Multibit, lv, node, wi, prev int) (int, int) {
	n := it.levels[lv][node]
	w := m.word(lv, wi) & n.Mask
	span := it.span(lv)
	for rest := w; rest != 0; rest &= rest - 1 {
		b := bits.TrailingZeros64(rest)
		child := wi*wordBits + b
		if (child+1)*span-1 <= prev {
			continue
		}
		below := bits.OnesCount64(n.Mask & (uint64(1)<<b - 1))
		if lv == it.layout.Depth()-1 {
			return child, int(n.Val) + below
		}
		if k, r := it.visit(m, lv+1, int(n.Val)+below, child, prev); k >= 0 {
			return k, r
		}
	}
	return -1, -1
}

// Unset clears every planned key in m.
func (it *SparseIter) Unset(m Multibit) {
	for _, k := range it.keys {
		m.Unset(k)
	}
}

// Plan is a precomputed image of a multibit: Apply overwrites the bitmap
// with it.
type Plan struct {
	layout Layout
	words  []planWord
}

type planWord struct {
	level, index int
	value        uint64
}

// BuildInitRangePlan plans a bitmap with exactly the keys in [begin, end)
// set.
func BuildInitRangePlan(total, begin, end int) Plan {
	if begin < 0 || end > total || begin > end {
		panic("multibit: invalid init range")
	}
	keys := make([]int, 0, end-begin)
	for k := begin; k < end; k++ {
		keys = append(keys, k)
	}
	return BuildClearPlan(total, keys)
}

// BuildClearPlan plans a bitmap with exactly keys set.
func BuildClearPlan(total int, keys []int) Plan {
	lay := NewLayout(total)
	scratch := make([]byte, lay.Size())
	m := lay.On(scratch)
	for _, k := range keys {
		m.Set(k)
	}
	p := Plan{layout: lay}
	for lv := range lay.levels {
		for wi := 0; wi < lay.levels[lv].words; wi++ {
			if w := m.word(lv, wi); w != 0 {
				p.words = append(p.words, planWord{lv, wi, w})
			}
		}
	}
	return p
}

// Apply writes the planned image into m.
func (p *Plan) Apply(m Multibit) {
	clear(m.buf)
	for _, pw := range p.words {
		m.put(pw.level, pw.index, pw.value)
	}
}

func uniqueSorted(keys []int) []int {
	ks := append([]int(nil), keys...)
	sort.Ints(ks)
	out := ks[:0]
	for i, k := range ks {
		if i == 0 || k != ks[i-1] {
			out = append(out, k)
		}
	}
	return out
}
