package graph

import (
	"slices"

	"github.com/coregx/corescan/report"
)

// PruneUnreachable removes every vertex that cannot reach AcceptEod and
// renumbers the graph.
func (h *Holder) PruneUnreachable() {
	var dead []VertexID
	if h.InDegree(Accept) == 0 && h.InDegree(AcceptEod) == 1 && h.HasEdge(Accept, AcceptEod) {
		// Nothing reaches the accepts, so every ordinary vertex is dead.
		for _, v := range h.Vertices() {
			if !IsSpecial(v) {
				dead = append(dead, v)
			}
		}
	} else {
		seen := reachFrom(Reversed{h}, []VertexID{AcceptEod}, nil)
		for _, v := range h.Vertices() {
			if !IsSpecial(v) && !seen[h.Index(v)] {
				dead = append(dead, v)
			}
		}
	}
	if len(dead) == 0 {
		return
	}
	h.RemoveVertices(dead)
	h.Renumber()
	h.RenumberEdges()
}

// PruneUseless removes vertices that are unreachable from Start or that
// cannot reach AcceptEod. It reports whether anything was removed. With
// renumber set the graph is renumbered after a removal.
func (h *Holder) PruneUseless(renumber bool) bool {
	removed := h.pruneNotReached(Direct{h}, Start)
	removed = h.pruneNotReached(Reversed{h}, AcceptEod) || removed
	if removed && renumber {
		h.Renumber()
		h.RenumberEdges()
	}
	return removed
}

// pruneRenumber follows a pass's own removals: it prunes what became
// useless and renumbers densely whether or not anything more went.
func (h *Holder) pruneRenumber() {
	if !h.PruneUseless(true) {
		h.Renumber()
		h.RenumberEdges()
	}
}

func (h *Holder) pruneNotReached(g View, root VertexID) bool {
	seen := reachFrom(g, []VertexID{root}, nil)
	var dead []VertexID
	for _, v := range h.Vertices() {
		if !IsSpecial(v) && !seen[h.Index(v)] {
			dead = append(dead, v)
		}
	}
	h.RemoveVertices(dead)
	return len(dead) > 0
}

// PruneEmptyVertices removes vertices whose reach is empty, then any
// vertices left useless.
func (h *Holder) PruneEmptyVertices() {
	var dead []VertexID
	for _, v := range h.Vertices() {
		if !IsSpecial(v) && h.verts[v].props.Reach.IsEmpty() {
			dead = append(dead, v)
		}
	}
	if len(dead) == 0 {
		return
	}
	h.RemoveVertices(dead)
	h.pruneRenumber()
}

// PruneHighlanderAccepts drops every path that continues past a match
// when all reports fire at most once. A predecessor of Accept keeps only
// its accept edges, because once it has reported nothing further can.
func (h *Holder) PruneHighlanderAccepts(rm *report.Manager) bool {
	for _, id := range h.AllReports() {
		r := rm.Get(id)
		if r.Ekey == report.NoEkey || r.HasBounds() || r.Type != report.External {
			return false
		}
	}
	var dead []EdgeID
	for _, u := range h.Preds(Accept) {
		if IsSpecial(u) {
			continue
		}
		for _, e := range h.OutEdges(u) {
			if !IsAnyAccept(h.Target(e)) {
				dead = append(dead, e)
			}
		}
	}
	if len(dead) == 0 {
		return false
	}
	for _, e := range dead {
		h.RemoveEdge(e)
	}
	h.pruneRenumber()
	return true
}

// PruneHighlanderDominated removes simple-exhaustible reports from
// vertices dominated by another vertex that already raises the same
// report at Accept, and removes self-loops on reporters that can only go
// on to report.
func (h *Holder) PruneHighlanderDominated(rm *report.Manager) bool {
	var reporters []VertexID
	for _, a := range []VertexID{Accept, AcceptEod} {
		for _, v := range h.Preds(a) {
			if IsAnyAccept(v) {
				continue
			}
			for _, id := range h.verts[v].props.Reports {
				if rm.IsSimpleExhaustible(id) {
					reporters = append(reporters, v)
					break
				}
			}
		}
	}
	if len(reporters) == 0 {
		return false
	}
	slices.SortFunc(reporters, func(a, b VertexID) int { return h.Index(a) - h.Index(b) })
	reporters = slices.Compact(reporters)

	idom := Dominators(h)
	modified := false
	for _, v := range reporters {
		var dominated report.Set
		for _, id := range h.verts[v].props.Reports {
			if rm.IsSimpleExhaustible(id) && h.dominatedByReporter(idom, v, id) {
				dominated = dominated.Insert(id)
			}
		}
		if len(dominated) == 0 {
			continue
		}
		p := &h.verts[v].props
		p.Reports = slices.DeleteFunc(p.Reports, dominated.Contains)
		if len(p.Reports) == 0 {
			h.RemoveEdgeBetween(v, Accept)
			h.RemoveEdgeBetween(v, AcceptEod)
		}
		modified = true
	}

	for _, v := range reporters {
		if !h.HasEdge(v, v) || !h.HasEdge(v, Accept) || h.OutDegree(v) != 2 {
			continue
		}
		all := len(h.verts[v].props.Reports) > 0
		for _, id := range h.verts[v].props.Reports {
			if !rm.IsSimpleExhaustible(id) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		h.RemoveEdgeBetween(v, v)
		modified = true
	}

	if !modified {
		return false
	}
	h.pruneRenumber()
	return true
}

// dominatedByReporter walks the dominator chain above v looking for a
// vertex that reports id at Accept. Reporters reaching only AcceptEod do
// not count.
func (h *Holder) dominatedByReporter(idom []VertexID, v VertexID, id report.ID) bool {
	for {
		u := idom[h.Index(v)]
		if u == NoVertex {
			return false
		}
		if h.HasEdge(u, Accept) && h.verts[u].props.Reports.Contains(id) {
			return true
		}
		v = u
	}
}

// PruneReport removes report id from the graph, dropping the accept
// edges of vertices left without reports and anything that becomes
// unreachable.
func (h *Holder) PruneReport(id report.ID) {
	h.pruneAcceptReports(func(rs report.Set) report.Set {
		return slices.DeleteFunc(rs, func(x report.ID) bool { return x == id })
	})
}

// PruneAllOtherReports keeps only report id.
func (h *Holder) PruneAllOtherReports(id report.ID) {
	h.pruneAcceptReports(func(rs report.Set) report.Set {
		if rs.Contains(id) {
			return append(rs[:0], id)
		}
		return rs[:0]
	})
}

func (h *Holder) pruneAcceptReports(edit func(report.Set) report.Set) {
	var dead []EdgeID
	for _, a := range []VertexID{Accept, AcceptEod} {
		for _, e := range h.InEdges(a) {
			u := h.Source(e)
			if u == Accept {
				continue
			}
			p := &h.verts[u].props
			p.Reports = edit(p.Reports)
			if len(p.Reports) == 0 {
				dead = append(dead, e)
			}
		}
	}
	for _, e := range dead {
		h.RemoveEdge(e)
	}
	h.PruneUnreachable()
	h.Renumber()
	h.RenumberEdges()
}
