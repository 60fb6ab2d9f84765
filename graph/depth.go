package graph

import (
	"math"
	"strconv"
)

// Depth is a distance in bytes or edges. Besides finite values it has two
// sentinels: Infinity (reachable through a cycle) and Unreachable, which
// orders after everything.
type Depth uint32

const (
	// Infinity is an unbounded distance.
	Infinity Depth = math.MaxUint32 - 1

	// Unreachable marks the absence of any path.
	Unreachable Depth = math.MaxUint32

	maxFinite = Infinity - 1
)

// IsFinite reports whether d is an ordinary distance.
func (d Depth) IsFinite() bool { return d <= maxFinite }

// IsInfinite reports whether d is Infinity.
func (d Depth) IsInfinite() bool { return d == Infinity }

// IsReachable reports whether d is not Unreachable.
func (d Depth) IsReachable() bool { return d != Unreachable }

// Add returns d+n, saturating at Infinity. The sentinels are fixed points.
func (d Depth) Add(n uint32) Depth {
	if !d.IsFinite() {
		return d
	}
	if uint64(d)+uint64(n) > uint64(maxFinite) {
		return Infinity
	}
	return d + Depth(n)
}

// Sub returns d-n for finite d. It panics on underflow.
func (d Depth) Sub(n uint32) Depth {
	if !d.IsFinite() {
		return d
	}
	if uint32(d) < n {
		panic("graph: depth underflow")
	}
	return d - Depth(n)
}

func (d Depth) String() string {
	switch d {
	case Infinity:
		return "inf"
	case Unreachable:
		return "unr"
	}
	return strconv.FormatUint(uint64(d), 10)
}

// DepthMinMax is a [Min, Max] distance range.
type DepthMinMax struct {
	Min, Max Depth
}

func (r DepthMinMax) String() string { return "[" + r.Min.String() + "," + r.Max.String() + "]" }

var unreachableRange = DepthMinMax{Unreachable, Unreachable}

// VertexDepths are the distances of one vertex from the starts and to the
// accepts, counted in edges.
type VertexDepths struct {
	FromStart   DepthMinMax // anchored paths, through Start only
	FromStartDs DepthMinMax // floating paths from StartDs
	ToAccept    DepthMinMax
	ToAcceptEod DepthMinMax
}

// CalcDepths computes the depths of every vertex, indexed by vertex index.
// A maximum is Infinity when some path to the vertex passes a cycle.
func CalcDepths(h *Holder) []VertexDepths {
	fromStart := distances(Direct{h}, Start, StartDs)
	fromStartDs := distances(Direct{h}, StartDs, Start)
	toAccept := distances(Reversed{h}, Accept, AcceptEod)
	toAcceptEod := distances(Reversed{h}, AcceptEod, Accept)
	out := make([]VertexDepths, h.IndexBound())
	for _, v := range h.Vertices() {
		i := h.Index(v)
		out[i] = VertexDepths{fromStart[i], fromStartDs[i], toAccept[i], toAcceptEod[i]}
	}
	return out
}

// distances returns min and max edge counts from src to every vertex
// under g, treating banned as absent and ignoring self-loops on src.
func distances(g View, src, banned VertexID) []DepthMinMax {
	h := g.Holder()
	bound := h.IndexBound()
	out := make([]DepthMinMax, bound)
	for i := range out {
		out[i] = unreachableRange
	}
	follow := func(e EdgeID) bool {
		s, t := g.Source(e), g.Target(e)
		return s != banned && t != banned && !(s == src && t == src)
	}

	// Minimum via BFS.
	out[h.Index(src)].Min = 0
	queue := []VertexID{src}
	var reached []VertexID
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		reached = append(reached, v)
		for _, e := range g.OutEdges(v) {
			if !follow(e) {
				continue
			}
			w := g.Target(e)
			if out[h.Index(w)].Min == Unreachable {
				out[h.Index(w)].Min = out[h.Index(v)].Min.Add(1)
				queue = append(queue, w)
			}
		}
	}

	// Maximum via Kahn's algorithm over the reached subgraph. Whatever
	// never drains is on or after a cycle.
	indeg := make([]int, bound)
	for _, v := range reached {
		for _, e := range g.OutEdges(v) {
			if follow(e) {
				indeg[h.Index(g.Target(e))]++
			}
		}
	}
	out[h.Index(src)].Max = 0
	ready := []VertexID{}
	if indeg[h.Index(src)] == 0 {
		ready = append(ready, src)
	}
	drained := make([]bool, bound)
	for len(ready) > 0 {
		v := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		drained[h.Index(v)] = true
		for _, e := range g.OutEdges(v) {
			if !follow(e) {
				continue
			}
			w := g.Target(e)
			wi := h.Index(w)
			if m := out[h.Index(v)].Max.Add(1); out[wi].Max == Unreachable || m > out[wi].Max {
				out[wi].Max = m
			}
			indeg[wi]--
			if indeg[wi] == 0 {
				ready = append(ready, w)
			}
		}
	}
	for _, v := range reached {
		if !drained[h.Index(v)] {
			out[h.Index(v)].Max = Infinity
		}
	}
	return out
}
