// Package graph holds pattern graphs and the passes that reduce them.
//
// A Holder is a directed graph of character-reach vertices with four
// special vertices: Start (offset zero only), StartDs (the floating start,
// which loops on itself), Accept and AcceptEod (match at end of data).
// Vertices and edges live in an arena: a VertexID or EdgeID stays valid
// until the element is removed, independently of the dense Index that
// algorithms use for their per-vertex arrays. Renumber and RenumberEdges
// restore dense numbering after removals; every pass in this package ends
// with the graph densely numbered.
package graph

import (
	"fmt"
	"slices"

	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/report"
)

// VertexID is a stable handle to a vertex.
type VertexID int32

// EdgeID is a stable handle to an edge.
type EdgeID int32

// NoVertex is the absent vertex.
const NoVertex VertexID = -1

// The special vertices. They are created first and always keep the
// indices 0 to 3.
const (
	Start VertexID = iota
	StartDs
	Accept
	AcceptEod

	NumSpecials = 4
)

// AssertFlags are zero-width conditions attached to vertices or edges.
// Vertices carrying them are left alone by the reach-based passes.
type AssertFlags uint8

const (
	// AssertWordBoundary requires a word boundary before the vertex.
	AssertWordBoundary AssertFlags = 1 << iota

	// AssertNotWordBoundary requires a non-boundary before the vertex.
	AssertNotWordBoundary
)

// VertexProps are the properties of a vertex.
type VertexProps struct {
	Reach   charclass.Set
	Reports report.Set
	Assert  AssertFlags
}

// EdgeProps are the properties of an edge.
type EdgeProps struct {
	// Tops selects which triggers enable a Start out-edge in a graph run
	// as a triggered engine.
	Tops   []uint32
	Assert AssertFlags
}

type vertex struct {
	alive bool
	index int
	props VertexProps
	out   []EdgeID
	in    []EdgeID
}

type edge struct {
	alive    bool
	index    int
	src, dst VertexID
	props    EdgeProps
}

// Holder is a pattern graph.
type Holder struct {
	verts     []vertex
	edges     []edge
	nverts    int
	nedges    int
	nextIndex int
	nextEdge  int
}

// New returns a holder containing only the specials and their fixed
// edges: Start to StartDs, the StartDs self-loop and Accept to AcceptEod.
func New() *Holder {
	h := &Holder{}
	for i := 0; i < NumSpecials; i++ {
		h.AddVertex(VertexProps{Reach: charclass.All()})
	}
	h.AddEdge(Start, StartDs)
	h.AddEdge(StartDs, StartDs)
	h.AddEdge(Accept, AcceptEod)
	return h
}

// AddVertex adds a vertex and returns its handle.
func (h *Holder) AddVertex(p VertexProps) VertexID {
	id := VertexID(len(h.verts))
	h.verts = append(h.verts, vertex{alive: true, index: h.nextIndex, props: p})
	h.nextIndex++
	h.nverts++
	return id
}

// AddEdge adds the edge u->v, or returns the existing one. The bool is
// true if a new edge was created.
func (h *Holder) AddEdge(u, v VertexID) (EdgeID, bool) {
	if e, ok := h.Edge(u, v); ok {
		return e, false
	}
	h.checkVertex(u)
	h.checkVertex(v)
	id := EdgeID(len(h.edges))
	h.edges = append(h.edges, edge{alive: true, index: h.nextEdge, src: u, dst: v})
	h.nextEdge++
	h.nedges++
	h.verts[u].out = append(h.verts[u].out, id)
	h.verts[v].in = append(h.verts[v].in, id)
	return id, true
}

// Edge returns the edge u->v if it exists.
func (h *Holder) Edge(u, v VertexID) (EdgeID, bool) {
	h.checkVertex(u)
	for _, e := range h.verts[u].out {
		if h.edges[e].dst == v {
			return e, true
		}
	}
	return -1, false
}

// HasEdge reports whether u->v exists.
func (h *Holder) HasEdge(u, v VertexID) bool {
	_, ok := h.Edge(u, v)
	return ok
}

// RemoveEdge deletes an edge.
func (h *Holder) RemoveEdge(e EdgeID) {
	ed := &h.edges[e]
	if !ed.alive {
		panic(fmt.Sprintf("graph: edge %d already removed", e))
	}
	ed.alive = false
	h.nedges--
	src, dst := &h.verts[ed.src], &h.verts[ed.dst]
	src.out = slices.DeleteFunc(src.out, func(x EdgeID) bool { return x == e })
	dst.in = slices.DeleteFunc(dst.in, func(x EdgeID) bool { return x == e })
}

// RemoveEdgeBetween deletes u->v if present.
func (h *Holder) RemoveEdgeBetween(u, v VertexID) bool {
	if e, ok := h.Edge(u, v); ok {
		h.RemoveEdge(e)
		return true
	}
	return false
}

// RemoveVertex deletes a non-special vertex and its edges.
func (h *Holder) RemoveVertex(v VertexID) {
	h.checkVertex(v)
	if IsSpecial(v) {
		panic(fmt.Sprintf("graph: cannot remove special vertex %d", v))
	}
	for len(h.verts[v].out) > 0 {
		h.RemoveEdge(h.verts[v].out[0])
	}
	for len(h.verts[v].in) > 0 {
		h.RemoveEdge(h.verts[v].in[0])
	}
	h.verts[v].alive = false
	h.nverts--
}

// RemoveVertices deletes every vertex in vs.
func (h *Holder) RemoveVertices(vs []VertexID) {
	for _, v := range vs {
		h.RemoveVertex(v)
	}
}

func (h *Holder) checkVertex(v VertexID) {
	if v < 0 || int(v) >= len(h.verts) || !h.verts[v].alive {
		panic(fmt.Sprintf("graph: invalid vertex %d", v))
	}
}

// Alive reports whether v is a live vertex.
func (h *Holder) Alive(v VertexID) bool {
	return v >= 0 && int(v) < len(h.verts) && h.verts[v].alive
}

// Props returns the mutable properties of v.
func (h *Holder) Props(v VertexID) *VertexProps {
	h.checkVertex(v)
	return &h.verts[v].props
}

// EdgeProps returns the mutable properties of e.
func (h *Holder) EdgeProps(e EdgeID) *EdgeProps { return &h.edges[e].props }

// Source returns the tail of e.
func (h *Holder) Source(e EdgeID) VertexID { return h.edges[e].src }

// Target returns the head of e.
func (h *Holder) Target(e EdgeID) VertexID { return h.edges[e].dst }

// OutEdges returns the out-edges of v. The slice must not be modified and
// is invalidated by edge removal.
func (h *Holder) OutEdges(v VertexID) []EdgeID { return h.verts[v].out }

// InEdges returns the in-edges of v, with the same caveats as OutEdges.
func (h *Holder) InEdges(v VertexID) []EdgeID { return h.verts[v].in }

// Succs returns the successors of v in edge order.
func (h *Holder) Succs(v VertexID) []VertexID {
	out := make([]VertexID, 0, len(h.verts[v].out))
	for _, e := range h.verts[v].out {
		out = append(out, h.edges[e].dst)
	}
	return out
}

// Preds returns the predecessors of v in edge order.
func (h *Holder) Preds(v VertexID) []VertexID {
	out := make([]VertexID, 0, len(h.verts[v].in))
	for _, e := range h.verts[v].in {
		out = append(out, h.edges[e].src)
	}
	return out
}

// InDegree returns the number of in-edges of v.
func (h *Holder) InDegree(v VertexID) int { return len(h.verts[v].in) }

// OutDegree returns the number of out-edges of v.
func (h *Holder) OutDegree(v VertexID) int { return len(h.verts[v].out) }

// Vertices returns the live vertices in index order.
func (h *Holder) Vertices() []VertexID {
	out := make([]VertexID, 0, h.nverts)
	for i := range h.verts {
		if h.verts[i].alive {
			out = append(out, VertexID(i))
		}
	}
	return out
}

// Edges returns the live edges in index order.
func (h *Holder) Edges() []EdgeID {
	out := make([]EdgeID, 0, h.nedges)
	for i := range h.edges {
		if h.edges[i].alive {
			out = append(out, EdgeID(i))
		}
	}
	return out
}

// NumVertices returns the number of live vertices, specials included.
func (h *Holder) NumVertices() int { return h.nverts }

// NumEdges returns the number of live edges.
func (h *Holder) NumEdges() int { return h.nedges }

// Index returns the dense index of v.
func (h *Holder) Index(v VertexID) int { return h.verts[v].index }

// EdgeIndex returns the dense index of e.
func (h *Holder) EdgeIndex(e EdgeID) int { return h.edges[e].index }

// IndexBound returns one more than the largest vertex index in use, the
// size of a per-vertex array indexed by Index.
func (h *Holder) IndexBound() int { return h.nextIndex }

// EdgeIndexBound is IndexBound for edges.
func (h *Holder) EdgeIndexBound() int { return h.nextEdge }

// Renumber assigns dense vertex indices. Specials keep 0 to 3; other
// vertices follow in arena order.
func (h *Holder) Renumber() {
	n := 0
	for i := range h.verts {
		if h.verts[i].alive {
			h.verts[i].index = n
			n++
		}
	}
	h.nextIndex = n
}

// RenumberEdges assigns dense edge indices in arena order.
func (h *Holder) RenumberEdges() {
	n := 0
	for i := range h.edges {
		if h.edges[i].alive {
			h.edges[i].index = n
			n++
		}
	}
	h.nextEdge = n
}

// ByIndex returns the vertex with dense index i. It requires a densely
// numbered graph.
func (h *Holder) ByIndex(i int) VertexID {
	for id := range h.verts {
		if h.verts[id].alive && h.verts[id].index == i {
			return VertexID(id)
		}
	}
	return NoVertex
}
