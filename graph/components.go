package graph

import (
	"errors"
	"slices"
)

// ComponentConfig controls how CalcComponents splits a graph.
type ComponentConfig struct {
	// HeadShellDepth is the largest head distance from the starts that
	// places a vertex in the head shell, which every component keeps.
	HeadShellDepth uint32

	// TailShellDepth is HeadShellDepth for the distance to the accepts.
	TailShellDepth uint32

	// Split enables splitting. When false, CalcComponents returns a
	// single copy of its input.
	Split bool
}

// DefaultComponentConfig returns the default split settings.
func DefaultComponentConfig() ComponentConfig {
	return ComponentConfig{HeadShellDepth: 3, TailShellDepth: 3, Split: true}
}

// Validate checks the configuration.
func (c ComponentConfig) Validate() error {
	if c.HeadShellDepth > 64 || c.TailShellDepth > 64 {
		return errors.New("graph: shell depth must be at most 64")
	}
	return nil
}

// IsAlternationOfClasses reports whether every ordinary vertex is fed only
// by the starts and feeds only the accepts.
func (h *Holder) IsAlternationOfClasses() bool {
	for _, v := range h.Vertices() {
		if IsSpecial(v) {
			continue
		}
		for _, u := range h.Preds(v) {
			if !IsAnyStart(u) {
				return false
			}
		}
		for _, w := range h.Succs(v) {
			if !IsAnyAccept(w) {
				return false
			}
		}
	}
	return true
}

// CalcComponents splits h into independent graphs whose union accepts the
// same language with the same reports. Vertices near the starts and near
// the accepts (the shells) appear in every component; the middle is split
// into connected components.
func CalcComponents(h *Holder, cfg ComponentConfig) []*Holder {
	if !cfg.Split || h.IsAlternationOfClasses() {
		c, _ := h.Clone()
		return []*Holder{c}
	}
	comps, shell := splitIntoComponents(h, Depth(cfg.HeadShellDepth), Depth(cfg.TailShellDepth))
	if shell {
		last := comps[len(comps)-1]
		comps = comps[:len(comps)-1]
		rest, _ := splitIntoComponents(last, 0, 0)
		comps = append(comps, rest...)
	}
	return comps
}

// maxDistFromStart is one more than the longest anchored or floating
// distance to any predecessor of v other than v itself.
func maxDistFromStart(h *Holder, depths []VertexDepths, v VertexID) Depth {
	var m Depth
	for _, u := range h.Preds(v) {
		if u == v {
			continue
		}
		d := depths[h.Index(u)]
		if d.FromStart.Max.IsReachable() {
			m = max(m, d.FromStart.Max)
		}
		if d.FromStartDs.Max.IsReachable() {
			m = max(m, d.FromStartDs.Max)
		}
	}
	return m.Add(1)
}

func maxDistToAccept(h *Holder, depths []VertexDepths, v VertexID) Depth {
	var m Depth
	for _, w := range h.Succs(v) {
		if w == v {
			continue
		}
		d := depths[h.Index(w)]
		if d.ToAccept.Max.IsReachable() {
			m = max(m, d.ToAccept.Max)
		}
		if d.ToAcceptEod.Max.IsReachable() {
			m = max(m, d.ToAcceptEod.Max)
		}
	}
	return m.Add(1)
}

// splitIntoComponents returns the components of h. The bool reports that
// the last component is a shell component that may split further.
func splitIntoComponents(h *Holder, headDepth, tailDepth Depth) ([]*Holder, bool) {
	depths := CalcDepths(h)
	head := make(map[VertexID]bool)
	tail := make(map[VertexID]bool)
	for _, v := range h.Vertices() {
		if IsSpecial(v) {
			continue
		}
		if maxDistFromStart(h, depths, v) <= headDepth {
			head[v] = true
		} else if maxDistToAccept(h, depths, v) <= tailDepth {
			tail[v] = true
		}
	}

	if len(head)+len(tail)+NumSpecials >= h.NumVertices() {
		c, _ := h.Clone()
		return []*Holder{c}, true
	}

	var shellEdges []EdgeID
	for _, e := range h.Edges() {
		u, v := h.Source(e), h.Target(e)
		if v == StartDs && IsAnyStart(u) {
			continue
		}
		if u == Accept && v == AcceptEod {
			continue
		}
		if (IsSpecial(u) || head[u]) && (IsSpecial(v) || tail[v]) {
			shellEdges = append(shellEdges, e)
		}
	}

	comp := undirectedComponents(h, func(v VertexID) bool {
		return !IsSpecial(v) && !head[v] && !tail[v]
	})

	byIndex := func(vs []VertexID) {
		slices.SortFunc(vs, func(a, b VertexID) int { return h.Index(a) - h.Index(b) })
	}
	var shellVerts []VertexID
	for _, v := range h.Vertices() {
		if head[v] || tail[v] {
			shellVerts = append(shellVerts, v)
		}
	}

	if len(comp) == 1 && len(shellEdges) == 0 {
		c, _ := h.Clone()
		return []*Holder{c}, false
	}

	var out []*Holder
	for _, vs := range comp {
		vs = append(vs, shellVerts...)
		byIndex(vs)
		gc, vmap := h.FillHolder(vs)
		for _, e := range shellEdges {
			gc.RemoveEdgeBetween(vmap[h.Source(e)], vmap[h.Target(e)])
		}
		gc.PruneUseless(true)
		gc.RenumberEdges()
		out = append(out, gc)
	}

	if len(shellEdges) == 0 {
		return out, false
	}
	gc, _ := h.FillHolder(slices.Clone(shellVerts))
	gc.PruneUseless(true)
	return append(out, gc), true
}

// undirectedComponents groups the vertices selected by in into connected
// components, ignoring edge direction. Components are ordered by their
// lowest vertex index, and each lists its vertices in index order.
func undirectedComponents(h *Holder, in func(VertexID) bool) [][]VertexID {
	comp := make([]int, h.IndexBound())
	for i := range comp {
		comp[i] = -1
	}
	var out [][]VertexID
	for _, root := range h.Vertices() {
		if !in(root) || comp[h.Index(root)] >= 0 {
			continue
		}
		id := len(out)
		members := []VertexID{root}
		comp[h.Index(root)] = id
		for i := 0; i < len(members); i++ {
			v := members[i]
			for _, w := range append(h.Succs(v), h.Preds(v)...) {
				if in(w) && comp[h.Index(w)] < 0 {
					comp[h.Index(w)] = id
					members = append(members, w)
				}
			}
		}
		slices.SortFunc(members, func(a, b VertexID) int { return h.Index(a) - h.Index(b) })
		out = append(out, members)
	}
	return out
}
