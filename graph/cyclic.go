package graph

import (
	"slices"

	"github.com/coregx/corescan/charclass"
)

// RemoveCyclicPathRedundancy removes edges that only offer another way
// into a self-looping vertex's territory. Given a cyclic vertex v and a
// predecessor u, an edge u->w is redundant when every path from w stays
// within reach(v) until it meets a common successor of u and v: v's loop
// already covers whatever that path consumes. The pass runs forwards,
// then on the reversed graph. It reports whether any edge was removed.
func (h *Holder) RemoveCyclicPathRedundancy() bool {
	forward := cyclicPathRedundancyPass(Direct{h})
	if forward {
		h.pruneRenumber()
	}
	reverse := cyclicPathRedundancyPass(Reversed{h})
	if reverse {
		h.pruneRenumber()
	}
	return forward || reverse
}

func cyclicPathRedundancyPass(g View) bool {
	h := g.Holder()
	changed := false
	for _, v := range g.Vertices() {
		if IsSpecial(v) || !h.Alive(v) || !h.HasEdge(v, v) {
			continue
		}
		if removeCyclicPathRedundancy(g, v) {
			changed = true
		}
	}
	return changed
}

func removeCyclicPathRedundancy(g View, v VertexID) bool {
	h := g.Holder()
	reach := h.Props(v).Reach
	succV := make(map[VertexID]bool)
	for _, w := range succs(g, v) {
		succV[w] = true
	}

	changed := false
	for _, u := range preds(g, v) {
		if u == v || IsAnyAccept(u) {
			continue
		}
		s := make(map[VertexID]bool)
		for _, b := range succs(g, u) {
			if succV[b] {
				s[b] = true
			}
		}
		for _, e := range slices.Clone(g.OutEdges(u)) {
			w := g.Target(e)
			if IsSpecial(w) || s[w] {
				continue
			}
			if !h.Props(w).Reach.IsSubsetOf(reach) {
				continue
			}
			if searchForward(g, reach, s, w) {
				h.RemoveEdge(e)
				changed = true
			}
		}
	}
	return changed
}

// searchForward explores from w without expanding past vertices in stop.
// It fails on reaching a special vertex, a vertex with assertions, or a
// vertex whose reach escapes reach. Stop vertices are checked too.
func searchForward(g View, reach charclass.Set, stop map[VertexID]bool, w VertexID) bool {
	h := g.Holder()
	ok := func(x VertexID) bool {
		if IsSpecial(x) {
			return false
		}
		p := h.Props(x)
		return p.Assert == 0 && p.Reach.IsSubsetOf(reach)
	}
	seen := map[VertexID]bool{w: true}
	stack := []VertexID{w}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !ok(x) {
			return false
		}
		if stop[x] {
			continue
		}
		for _, y := range succs(g, x) {
			if !seen[y] {
				seen[y] = true
				stack = append(stack, y)
			}
		}
	}
	return true
}
