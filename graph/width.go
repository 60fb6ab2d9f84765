package graph

// NoTop selects the width over all start edges.
const NoTop = ^uint32(0)

// edgeFilter hides start-to-start and accept-to-accept edges. With a top
// selected it also hides Start edges lacking that top and every StartDs
// edge, since a triggered engine only starts where the top says.
type edgeFilter struct {
	h   *Holder
	top uint32
}

func (f edgeFilter) keep(e EdgeID) bool {
	u, v := f.h.Source(e), f.h.Target(e)
	if (IsAnyStart(u) && IsAnyStart(v)) || (IsAnyAccept(u) && IsAnyAccept(v)) {
		return false
	}
	if f.top != NoTop {
		if u == Start && !hasTop(f.h.EdgeProps(e).Tops, f.top) {
			return false
		}
		if u == StartDs {
			return false
		}
	}
	return true
}

// isLeaf reports whether v has no successors other than itself.
func (h *Holder) isLeaf(v VertexID) bool {
	for _, w := range h.Succs(v) {
		if w != v {
			return false
		}
	}
	return true
}

// FindMinWidth returns the length of the shortest match of h. With top
// set to anything but NoTop only paths starting on that top count.
func FindMinWidth(h *Holder, top uint32) Depth {
	f := edgeFilter{h: h, top: top}
	s, ds := minWidthFrom(h, f, Start), minWidthFrom(h, f, StartDs)
	switch {
	case !s.IsReachable():
		return ds
	case !ds.IsReachable():
		return s
	}
	return min(s, ds)
}

// FindMaxWidth returns the length of the longest match of h, or Infinity
// when matches are unbounded.
func FindMaxWidth(h *Holder, top uint32) Depth {
	f := edgeFilter{h: h, top: top}
	s, ds := maxWidthFrom(h, f, Start), maxWidthFrom(h, f, StartDs)
	switch {
	case !s.IsReachable():
		return ds
	case !ds.IsReachable():
		return s
	}
	return max(s, ds)
}

func minWidthFrom(h *Holder, f edgeFilter, src VertexID) Depth {
	if h.isLeaf(src) {
		return Unreachable
	}
	dist := make([]Depth, h.IndexBound())
	for i := range dist {
		dist[i] = Unreachable
	}
	dist[h.Index(src)] = 0
	queue := []VertexID{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range h.OutEdges(v) {
			if !f.keep(e) {
				continue
			}
			w := h.Target(e)
			if dist[h.Index(w)] == Unreachable {
				dist[h.Index(w)] = dist[h.Index(v)] + 1
				queue = append(queue, w)
			}
		}
	}
	d := min(dist[h.Index(Accept)], dist[h.Index(AcceptEod)])
	if !d.IsReachable() {
		return d
	}
	return d - 1
}

func maxWidthFrom(h *Holder, f edgeFilter, src VertexID) Depth {
	if h.isLeaf(src) {
		return Unreachable
	}
	if h.HasReachableCycle(src) {
		return Infinity
	}

	// Longest paths over the filtered DAG, in topological order of the
	// part reachable from src.
	bound := h.IndexBound()
	seen := make([]bool, bound)
	var order []VertexID
	type frame struct {
		v VertexID
		i int
	}
	seen[h.Index(src)] = true
	stack := []frame{{v: src}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		out := h.OutEdges(top.v)
		if top.i == len(out) {
			order = append(order, top.v)
			stack = stack[:len(stack)-1]
			continue
		}
		e := out[top.i]
		top.i++
		if !f.keep(e) {
			continue
		}
		w := h.Target(e)
		if w == top.v || seen[h.Index(w)] {
			continue
		}
		seen[h.Index(w)] = true
		stack = append(stack, frame{v: w})
	}

	longest := make([]int, bound)
	for i := range longest {
		longest[i] = -1
	}
	longest[h.Index(src)] = 0
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		lv := longest[h.Index(v)]
		if lv < 0 {
			continue
		}
		for _, e := range h.OutEdges(v) {
			if !f.keep(e) || h.Target(e) == v {
				continue
			}
			w := h.Index(h.Target(e))
			if lv+1 > longest[w] {
				longest[w] = lv + 1
			}
		}
	}

	a, eod := longest[h.Index(Accept)], longest[h.Index(AcceptEod)]
	d := max(a, eod)
	if d < 0 {
		if minWidthFrom(h, f, src).IsReachable() {
			return Infinity
		}
		return Unreachable
	}
	return Depth(d - 1)
}
