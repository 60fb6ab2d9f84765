package graph

// View is a read-only direction over a Holder. Passes that run both
// forwards and backwards are written once against a View.
type View interface {
	Holder() *Holder
	Vertices() []VertexID
	OutEdges(v VertexID) []EdgeID
	InEdges(v VertexID) []EdgeID
	Source(e EdgeID) VertexID
	Target(e EdgeID) VertexID
}

// Direct views a holder in its natural direction.
type Direct struct{ H *Holder }

// Reversed views a holder with every edge flipped.
type Reversed struct{ H *Holder }

func (d Direct) Holder() *Holder                { return d.H }
func (d Direct) Vertices() []VertexID           { return d.H.Vertices() }
func (d Direct) OutEdges(v VertexID) []EdgeID   { return d.H.OutEdges(v) }
func (d Direct) InEdges(v VertexID) []EdgeID    { return d.H.InEdges(v) }
func (d Direct) Source(e EdgeID) VertexID       { return d.H.Source(e) }
func (d Direct) Target(e EdgeID) VertexID       { return d.H.Target(e) }
func (r Reversed) Holder() *Holder              { return r.H }
func (r Reversed) Vertices() []VertexID         { return r.H.Vertices() }
func (r Reversed) OutEdges(v VertexID) []EdgeID { return r.H.InEdges(v) }
func (r Reversed) InEdges(v VertexID) []EdgeID  { return r.H.OutEdges(v) }
func (r Reversed) Source(e EdgeID) VertexID     { return r.H.Target(e) }
func (r Reversed) Target(e EdgeID) VertexID     { return r.H.Source(e) }

// succs returns the out-neighbours of v under g.
func succs(g View, v VertexID) []VertexID {
	es := g.OutEdges(v)
	out := make([]VertexID, 0, len(es))
	for _, e := range es {
		out = append(out, g.Target(e))
	}
	return out
}

// preds returns the in-neighbours of v under g.
func preds(g View, v VertexID) []VertexID {
	es := g.InEdges(v)
	out := make([]VertexID, 0, len(es))
	for _, e := range es {
		out = append(out, g.Source(e))
	}
	return out
}

// reachFrom marks every vertex reachable from the roots under g, indexed
// by vertex index. skip, if non-nil, reports edges that are not followed.
func reachFrom(g View, roots []VertexID, skip func(EdgeID) bool) []bool {
	h := g.Holder()
	seen := make([]bool, h.IndexBound())
	stack := make([]VertexID, 0, len(roots))
	for _, r := range roots {
		if !seen[h.Index(r)] {
			seen[h.Index(r)] = true
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.OutEdges(v) {
			if skip != nil && skip(e) {
				continue
			}
			w := g.Target(e)
			if !seen[h.Index(w)] {
				seen[h.Index(w)] = true
				stack = append(stack, w)
			}
		}
	}
	return seen
}
