package rose

import (
	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/literal"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// MaxLiteralLen bounds the chains considered for literal roles. Lookaround
// offsets are stored in a signed byte.
const MaxLiteralLen = 128

const maxChainLen = MaxLiteralLen

// chain is a component that is one fixed path from a start to an accept.
type chain struct {
	reach    []charclass.Set
	anchored bool
	eod      bool
	reports  report.Set
}

// entry returns the single vertex entered from the starts and whether
// that entry is anchored. ok is false for several entries or any entry
// carrying tops.
func entry(h *graph.Holder) (v graph.VertexID, anchored, ok bool) {
	v = graph.NoVertex
	for _, e := range h.OutEdges(graph.Start) {
		w := h.Target(e)
		if w == graph.StartDs {
			continue
		}
		if len(h.EdgeProps(e).Tops) > 0 || v != graph.NoVertex || graph.IsSpecial(w) {
			return graph.NoVertex, false, false
		}
		v, anchored = w, true
	}
	for _, w := range h.Succs(graph.StartDs) {
		if w == graph.StartDs {
			continue
		}
		if v != graph.NoVertex || graph.IsSpecial(w) {
			return graph.NoVertex, false, false
		}
		v = w
	}
	return v, anchored, v != graph.NoVertex
}

// next returns the only ordinary successor of v and which accepts v
// leads to. ok is false if v has a self-loop or several successors.
func next(h *graph.Holder, v graph.VertexID) (w graph.VertexID, accept, acceptEod, ok bool) {
	w = graph.NoVertex
	for _, s := range h.Succs(v) {
		switch s {
		case graph.Accept:
			accept = true
		case graph.AcceptEod:
			acceptEod = true
		default:
			if s == v || w != graph.NoVertex || graph.IsSpecial(s) {
				return graph.NoVertex, false, false, false
			}
			w = s
		}
	}
	return w, accept, acceptEod, true
}

// asChain recognises a fixed-width chain.
func asChain(h *graph.Holder) (chain, bool) {
	v, anchored, ok := entry(h)
	if !ok {
		return chain{}, false
	}
	c := chain{anchored: anchored}
	for len(c.reach) < maxChainLen {
		p := h.Props(v)
		if h.InDegree(v) != 1 || p.Assert != 0 {
			return chain{}, false
		}
		c.reach = append(c.reach, p.Reach)
		w, accept, acceptEod, ok := next(h, v)
		if !ok {
			return chain{}, false
		}
		if accept || acceptEod {
			if w != graph.NoVertex || len(p.Reports) == 0 {
				return chain{}, false
			}
			c.reports = p.Reports
			c.eod = !accept
			return c, true
		}
		if w == graph.NoVertex || len(p.Reports) > 0 {
			return chain{}, false
		}
		v = w
	}
	return chain{}, false
}

// literalRun returns the longest run [i, j) of literal-able positions.
// Among runs of equal length the later one wins, since it needs less
// delay. With suffixOnly the run must end at the last position.
func literalRun(reach []charclass.Set, suffixOnly bool) (i, j int) {
	bi, bj := 0, 0
	start := -1
	for k := 0; k <= len(reach); k++ {
		lit := false
		if k < len(reach) {
			_, _, lit = reach[k].Literal()
		}
		switch {
		case lit && start < 0:
			start = k
		case !lit && start >= 0:
			if k-start >= bj-bi {
				bi, bj = start, k
			}
			start = -1
		}
	}
	if suffixOnly {
		n := len(reach)
		if bj != n {
			// The run ending at the last position, if any.
			bi, bj = n, n
			for bi > 0 {
				if _, _, lit := reach[bi-1].Literal(); !lit {
					break
				}
				bi--
			}
		}
	}
	return bi, bj
}

// literalParts builds the literal for reach[i:j], all literal-able, and
// returns the lookaround entries needed for exact-case letters the
// literal cannot check itself. Entry offsets are relative to the literal
// end.
func literalParts(reach []charclass.Set, i, j int, id uint32, groups uint64) (literal.Literal, []nfa.LookEntry, error) {
	n := j - i
	bs := make([]byte, n)
	nocase := make([]bool, n)
	anyNocase, exactLetter := false, false
	for k := range bs {
		b, nc, _ := reach[i+k].Literal()
		bs[k], nocase[k] = b, nc
		anyNocase = anyNocase || nc
		exactLetter = exactLetter || (!nc && isLetter(b))
	}
	opts := []literal.Option{literal.Groups(groups)}
	var look []nfa.LookEntry
	if anyNocase {
		opts = append(opts, literal.Nocase())
	}
	if anyNocase && exactLetter {
		m := min(n, literal.MaxMaskLen)
		msk := make([]byte, m)
		cmp := make([]byte, m)
		for k := 0; k < n; k++ {
			b := bs[k]
			if w := k - (n - m); w >= 0 {
				if nocase[k] {
					msk[w], cmp[w] = 0xdf, b&0xdf
				} else {
					msk[w], cmp[w] = 0xff, b
				}
				continue
			}
			if !nocase[k] && isLetter(b) {
				look = append(look, nfa.LookEntry{Offset: int8(k - n), Reach: charclass.Of(b)})
			}
		}
		opts = append(opts, literal.Mask(msk, cmp))
	}
	lit, err := literal.New(bs, id, opts...)
	return lit, look, err
}

func isLetter(b byte) bool { return (b|0x20) >= 'a' && (b|0x20) <= 'z' }

// lookaround returns entries for the positions of reach outside [i, j),
// relative to an end just after position end-1. Wildcard positions need
// no check.
func lookaround(reach []charclass.Set, i, j, end int) []nfa.LookEntry {
	var look []nfa.LookEntry
	for k, cr := range reach {
		if (k >= i && k < j) || cr.IsAll() {
			continue
		}
		look = append(look, nfa.LookEntry{Offset: int8(k - end), Reach: cr})
	}
	return look
}

// literalPrefix finds a literal chain v1..vk entered from StartDs whose
// remaining vertices form a suffix graph. It returns the prefix reach,
// the prefix vertices and the vertices after it.
func literalPrefix(h *graph.Holder) (reach []charclass.Set, prefix, rest []graph.VertexID, ok bool) {
	v, anchored, ok := entry(h)
	if !ok || anchored {
		return nil, nil, nil, false
	}
	var verts []graph.VertexID
	for len(verts) < maxChainLen {
		p := h.Props(v)
		if h.InDegree(v) != 1 || p.Assert != 0 || len(p.Reports) > 0 {
			break
		}
		w, accept, acceptEod, ok := next(h, v)
		if !ok || accept || acceptEod {
			// v still heads the suffix.
			verts = append(verts, v)
			break
		}
		verts = append(verts, v)
		v = w
	}
	// The literal must end at the last prefix vertex, and that vertex
	// must hand over to a non-empty suffix without accepting.
	for k := len(verts); k >= 1; k-- {
		last := verts[k-1]
		if _, _, lit := h.Props(last).Reach.Literal(); !lit {
			continue
		}
		if !handsOver(h, last) {
			continue
		}
		prefix = verts[:k]
		break
	}
	if prefix == nil {
		return nil, nil, nil, false
	}
	in := make(map[graph.VertexID]bool, len(prefix))
	for _, u := range prefix {
		in[u] = true
		reach = append(reach, h.Props(u).Reach)
	}
	for _, u := range h.Vertices() {
		if graph.IsSpecial(u) || in[u] {
			continue
		}
		for _, p := range h.Preds(u) {
			if graph.IsAnyStart(p) || (in[p] && p != prefix[len(prefix)-1]) {
				return nil, nil, nil, false
			}
		}
		rest = append(rest, u)
	}
	return reach, prefix, rest, len(rest) > 0
}

func handsOver(h *graph.Holder, v graph.VertexID) bool {
	n := 0
	for _, s := range h.Succs(v) {
		if graph.IsSpecial(s) || s == v {
			return false
		}
		n++
	}
	return n > 0 && len(h.Props(v).Reports) == 0
}

// suffixGraph copies the vertices of rest into a graph entered by top 0
// at the successors of last.
func suffixGraph(h *graph.Holder, last graph.VertexID, rest []graph.VertexID) *graph.Holder {
	out, vmap := h.FillHolder(rest)
	for _, s := range h.Succs(last) {
		e, _ := out.AddEdge(graph.Start, vmap[s])
		out.EdgeProps(e).Tops = []uint32{0}
	}
	return out
}

// repeatTail describes a component ending in a class repeat u1..um, with
// a loop on um when the repeat is unbounded.
type repeatTail struct {
	reach    charclass.Set
	min      uint32
	max      uint32
	report   report.ID
	tail     map[graph.VertexID]bool
	entering []graph.VertexID // predecessors of u1
}

// asRepeatTail recognises a prefix followed by a class repeat, where um
// is the only vertex that accepts.
func asRepeatTail(h *graph.Holder) (repeatTail, bool) {
	um := graph.NoVertex
	for _, p := range h.Preds(graph.Accept) {
		if um != graph.NoVertex {
			return repeatTail{}, false
		}
		um = p
	}
	if um == graph.NoVertex || graph.IsSpecial(um) || len(h.Preds(graph.AcceptEod)) > 1 {
		// Accept itself always feeds AcceptEod.
		return repeatTail{}, false
	}
	p := h.Props(um)
	if len(p.Reports) != 1 || p.Assert != 0 {
		return repeatTail{}, false
	}
	rt := repeatTail{reach: p.Reach, report: p.Reports[0], tail: map[graph.VertexID]bool{um: true}}
	loop := h.HasEdge(um, um)
	for _, s := range h.Succs(um) {
		if s != um && s != graph.Accept {
			return repeatTail{}, false
		}
	}
	head := um
	for {
		var preds []graph.VertexID
		for _, q := range h.Preds(head) {
			if q == um && head == um {
				continue
			}
			preds = append(preds, q)
		}
		if len(preds) != 1 {
			rt.entering = preds
			break
		}
		q := preds[0]
		qp := h.Props(q)
		if graph.IsSpecial(q) || qp.Reach != rt.reach || qp.Assert != 0 || len(qp.Reports) > 0 || h.OutDegree(q) != 1 || rt.tail[q] {
			rt.entering = preds
			break
		}
		rt.tail[q] = true
		head = q
	}
	for _, q := range rt.entering {
		if graph.IsSpecial(q) || rt.tail[q] {
			return repeatTail{}, false
		}
	}
	rt.min = uint32(len(rt.tail))
	rt.max = rt.min
	if loop {
		rt.max = nfa.RepeatInf
	}
	return rt, len(rt.entering) > 0
}
