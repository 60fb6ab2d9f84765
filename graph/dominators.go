package graph

// Dominators returns the immediate dominator of every vertex, indexed by
// vertex index, for paths from Start. The root and vertices unreachable
// from it map to NoVertex.
func Dominators(h *Holder) []VertexID {
	return immediateDominators(Direct{h}, Start)
}

// immediateDominators is the Lengauer-Tarjan algorithm with path
// compression. Vertices are handled in DFS preorder numbers 1..n; 0 means
// unvisited.
func immediateDominators(g View, root VertexID) []VertexID {
	h := g.Holder()
	bound := h.IndexBound()
	num := make([]int, bound)
	vertex := []VertexID{NoVertex} // preorder number -> vertex
	parent := []int{0}

	// Iterative DFS assigning preorder numbers.
	type frame struct {
		v VertexID
		i int
	}
	num[h.Index(root)] = 1
	vertex = append(vertex, root)
	parent = append(parent, 0)
	stack := []frame{{v: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		out := g.OutEdges(top.v)
		if top.i == len(out) {
			stack = stack[:len(stack)-1]
			continue
		}
		w := g.Target(out[top.i])
		top.i++
		if num[h.Index(w)] != 0 {
			continue
		}
		num[h.Index(w)] = len(vertex)
		parent = append(parent, num[h.Index(top.v)])
		vertex = append(vertex, w)
		stack = append(stack, frame{v: w})
	}

	n := len(vertex) - 1
	semi := make([]int, n+1)
	idom := make([]int, n+1)
	ancestor := make([]int, n+1)
	label := make([]int, n+1)
	bucket := make([][]int, n+1)
	for i := 1; i <= n; i++ {
		semi[i] = i
		label[i] = i
	}

	compress := func(v int) {
		// Collect the ancestor chain, then compress from the top down.
		var chain []int
		for ancestor[ancestor[v]] != 0 {
			chain = append(chain, v)
			v = ancestor[v]
		}
		for i := len(chain) - 1; i >= 0; i-- {
			c := chain[i]
			a := ancestor[c]
			if semi[label[a]] < semi[label[c]] {
				label[c] = label[a]
			}
			ancestor[c] = ancestor[a]
		}
	}
	eval := func(v int) int {
		if ancestor[v] == 0 {
			return v
		}
		compress(v)
		return label[v]
	}

	for w := n; w >= 2; w-- {
		for _, e := range g.InEdges(vertex[w]) {
			v := num[h.Index(g.Source(e))]
			if v == 0 {
				continue
			}
			if u := eval(v); semi[u] < semi[w] {
				semi[w] = semi[u]
			}
		}
		bucket[semi[w]] = append(bucket[semi[w]], w)
		p := parent[w]
		ancestor[w] = p
		for _, v := range bucket[p] {
			if u := eval(v); semi[u] < semi[v] {
				idom[v] = u
			} else {
				idom[v] = p
			}
		}
		bucket[p] = nil
	}
	for w := 2; w <= n; w++ {
		if idom[w] != semi[w] {
			idom[w] = idom[idom[w]]
		}
	}

	out := make([]VertexID, bound)
	for i := range out {
		out[i] = NoVertex
	}
	for w := 2; w <= n; w++ {
		out[h.Index(vertex[w])] = vertex[idom[w]]
	}
	return out
}

// Dominates reports whether u dominates v under idom. Every vertex
// dominates itself.
func Dominates(h *Holder, idom []VertexID, u, v VertexID) bool {
	for v != NoVertex {
		if v == u {
			return true
		}
		v = idom[h.Index(v)]
	}
	return false
}
