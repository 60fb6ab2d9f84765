package graph

import (
	"slices"

	"github.com/coregx/corescan/report"
)

// IsAnyStart reports whether v is Start or StartDs.
func IsAnyStart(v VertexID) bool { return v == Start || v == StartDs }

// IsAnyAccept reports whether v is Accept or AcceptEod.
func IsAnyAccept(v VertexID) bool { return v == Accept || v == AcceptEod }

// IsSpecial reports whether v is one of the four specials.
func IsSpecial(v VertexID) bool { return v >= 0 && v < NumSpecials }

// IsMatchVertex reports whether v has an edge to Accept or AcceptEod.
func (h *Holder) IsMatchVertex(v VertexID) bool {
	if IsAnyAccept(v) {
		return false
	}
	return h.HasEdge(v, Accept) || h.HasEdge(v, AcceptEod)
}

// Clone returns a deep copy of h, densely renumbered. The second result
// maps vertices of h to vertices of the copy.
func (h *Holder) Clone() (*Holder, map[VertexID]VertexID) {
	out := &Holder{}
	vmap := make(map[VertexID]VertexID, h.nverts)
	for _, v := range h.Vertices() {
		p := h.verts[v].props
		p.Reports = slices.Clone(p.Reports)
		vmap[v] = out.AddVertex(p)
	}
	for _, e := range h.Edges() {
		ne, _ := out.AddEdge(vmap[h.Source(e)], vmap[h.Target(e)])
		p := h.edges[e].props
		p.Tops = slices.Clone(p.Tops)
		out.edges[ne].props = p
	}
	return out, vmap
}

// FillHolder copies the vertices in keep, plus the specials, and every
// edge between them into a new holder. The returned map translates
// vertices of h to the new holder.
func (h *Holder) FillHolder(keep []VertexID) (*Holder, map[VertexID]VertexID) {
	out := New()
	vmap := map[VertexID]VertexID{Start: Start, StartDs: StartDs, Accept: Accept, AcceptEod: AcceptEod}
	for _, v := range keep {
		if IsSpecial(v) {
			continue
		}
		p := h.verts[v].props
		p.Reports = slices.Clone(p.Reports)
		vmap[v] = out.AddVertex(p)
	}
	for _, e := range h.Edges() {
		u, okU := vmap[h.Source(e)]
		v, okV := vmap[h.Target(e)]
		if !okU || !okV {
			continue
		}
		ne, _ := out.AddEdge(u, v)
		p := h.edges[e].props
		p.Tops = slices.Clone(p.Tops)
		out.edges[ne].props = p
	}
	return out, vmap
}

// HasReachableCycle reports whether a cycle other than the StartDs
// self-loop is reachable from src.
func (h *Holder) HasReachableCycle(src VertexID) bool {
	const (
		white = iota
		grey
		black
	)
	color := make([]uint8, h.IndexBound())
	type frame struct {
		v VertexID
		i int
	}
	color[h.Index(src)] = grey
	stack := []frame{{v: src}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		out := h.OutEdges(top.v)
		if top.i == len(out) {
			color[h.Index(top.v)] = black
			stack = stack[:len(stack)-1]
			continue
		}
		e := out[top.i]
		top.i++
		w := h.Target(e)
		if w == StartDs && top.v == StartDs {
			continue
		}
		switch color[h.Index(w)] {
		case grey:
			return true
		case white:
			color[h.Index(w)] = grey
			stack = append(stack, frame{v: w})
		}
	}
	return false
}

// IsAcyclic reports whether h has no cycles apart from the StartDs loop.
func (h *Holder) IsAcyclic() bool {
	return !h.HasReachableCycle(Start)
}

// IsVacuous reports whether a start vertex connects straight to an
// accept, so the graph matches the empty string.
func (h *Holder) IsVacuous() bool {
	for _, s := range []VertexID{Start, StartDs} {
		if h.HasEdge(s, Accept) || h.HasEdge(s, AcceptEod) {
			return true
		}
	}
	return false
}

// IsAnchored reports whether nothing hangs off StartDs except its loop,
// so every match must begin at offset zero.
func (h *Holder) IsAnchored() bool {
	for _, w := range h.Succs(StartDs) {
		if w != StartDs {
			return false
		}
	}
	return true
}

// ClearReports empties the report sets of every vertex that is not a
// predecessor of an accept.
func (h *Holder) ClearReports() {
	for _, v := range h.Vertices() {
		if !h.IsMatchVertex(v) {
			h.verts[v].props.Reports = nil
		}
	}
}

// AllMatchStatesHaveReports reports whether every accept predecessor
// carries at least one report, and no other vertex carries any.
func (h *Holder) AllMatchStatesHaveReports() bool {
	for _, v := range h.Vertices() {
		if IsAnyAccept(v) {
			continue
		}
		match := h.IsMatchVertex(v)
		if match && len(h.verts[v].props.Reports) == 0 {
			return false
		}
		if !match && len(h.verts[v].props.Reports) != 0 {
			return false
		}
	}
	return true
}

// HasCorrectlyNumberedVertices reports whether vertex indices are dense.
func (h *Holder) HasCorrectlyNumberedVertices() bool {
	seen := make([]bool, h.nverts)
	for _, v := range h.Vertices() {
		i := h.Index(v)
		if i >= h.nverts || seen[i] {
			return false
		}
		seen[i] = true
	}
	return h.nextIndex == h.nverts
}

// HasCorrectlyNumberedEdges reports whether edge indices are dense.
func (h *Holder) HasCorrectlyNumberedEdges() bool {
	seen := make([]bool, h.nedges)
	for _, e := range h.Edges() {
		i := h.EdgeIndex(e)
		if i >= h.nedges || seen[i] {
			return false
		}
		seen[i] = true
	}
	return h.nextEdge == h.nedges
}

// AllReports returns the union of the reports on accept predecessors.
func (h *Holder) AllReports() report.Set {
	var out report.Set
	for _, a := range []VertexID{Accept, AcceptEod} {
		for _, v := range h.Preds(a) {
			if IsAnyAccept(v) {
				continue
			}
			out = out.Union(h.verts[v].props.Reports)
		}
	}
	return out
}

// Tops returns the sorted set of tops on Start out-edges.
func (h *Holder) Tops() []uint32 {
	var out []uint32
	for _, e := range h.OutEdges(Start) {
		out = append(out, h.edges[e].props.Tops...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func hasTop(tops []uint32, top uint32) bool {
	_, ok := slices.BinarySearch(tops, top)
	return ok
}
