package graph

import (
	"testing"

	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/report"
)

// chain adds a chain of single-byte vertices after from and returns the
// last one.
func chain(h *Holder, from VertexID, s string) VertexID {
	v := from
	for i := 0; i < len(s); i++ {
		w := h.AddVertex(VertexProps{Reach: charclass.Of(s[i])})
		h.AddEdge(v, w)
		v = w
	}
	return v
}

func TestPruneUselessIdempotent(t *testing.T) {
	exprs := []string{"abc", "a(b|c)*d", "^foo|bar$", "x[a-z]{2,4}y", "(ab|cd)+e"}
	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			h := mustBuild(t, expr, 0)
			// Dead weight: an island and a dead end.
			island := h.AddVertex(VertexProps{Reach: charclass.Of('z')})
			h.AddEdge(island, Accept)
			dead := h.AddVertex(VertexProps{Reach: charclass.Of('q')})
			h.AddEdge(StartDs, dead)

			if !h.PruneUseless(true) {
				t.Fatalf("first PruneUseless removed nothing")
			}
			if h.Alive(island) || h.Alive(dead) {
				t.Errorf("useless vertices survived")
			}
			checkInvariants(t, h)
			nv, ne := h.NumVertices(), h.NumEdges()
			if h.PruneUseless(true) {
				t.Errorf("second PruneUseless changed the graph")
			}
			if h.NumVertices() != nv || h.NumEdges() != ne {
				t.Errorf("second PruneUseless changed counts")
			}
		})
	}
}

func TestPassesOnSentinelGraph(t *testing.T) {
	rm := report.NewManager()
	passes := map[string]func(h *Holder){
		"PruneUnreachable":         func(h *Holder) { h.PruneUnreachable() },
		"PruneUseless":             func(h *Holder) { h.PruneUseless(true) },
		"PruneEmptyVertices":       func(h *Holder) { h.PruneEmptyVertices() },
		"PruneHighlanderAccepts":   func(h *Holder) { h.PruneHighlanderAccepts(rm) },
		"PruneHighlanderDominated": func(h *Holder) { h.PruneHighlanderDominated(rm) },
		"RemoveCyclicPath":         func(h *Holder) { h.RemoveCyclicPathRedundancy() },
		"PruneReport":              func(h *Holder) { h.PruneReport(0) },
		"ReduceGraph":              func(h *Holder) { ReduceGraph(h, rm, ReduceOptions{Highlander: true}) },
	}
	for name, pass := range passes {
		t.Run(name, func(t *testing.T) {
			h := New()
			pass(h)
			if h.NumVertices() != NumSpecials || h.NumEdges() != 3 {
				t.Errorf("sentinel graph changed: %d vertices, %d edges", h.NumVertices(), h.NumEdges())
			}
			checkInvariants(t, h)
		})
	}
}

func TestPruneUnreachable(t *testing.T) {
	h := New()
	live := chain(h, StartDs, "ab")
	h.AddEdge(live, Accept)
	h.Props(live).Reports = report.Set{0}
	chain(h, StartDs, "xyz") // never reaches an accept
	h.PruneUnreachable()
	if got := h.NumVertices() - NumSpecials; got != 2 {
		t.Errorf("vertices = %d, want 2", got)
	}
	checkInvariants(t, h)

	// Trivial case: nothing feeds the accepts at all.
	h = New()
	chain(h, StartDs, "abc")
	h.PruneUnreachable()
	if h.NumVertices() != NumSpecials {
		t.Errorf("trivial case kept %d ordinary vertices", h.NumVertices()-NumSpecials)
	}
}

func TestPruneEmptyVertices(t *testing.T) {
	h := New()
	a := h.AddVertex(VertexProps{Reach: charclass.Of('a'), Reports: report.Set{0}})
	empty := h.AddVertex(VertexProps{Reports: report.Set{0}})
	h.AddEdge(StartDs, a)
	h.AddEdge(StartDs, empty)
	h.AddEdge(a, Accept)
	h.AddEdge(empty, Accept)
	h.PruneEmptyVertices()
	if h.NumVertices() != NumSpecials+1 {
		t.Errorf("vertices = %d, want %d", h.NumVertices(), NumSpecials+1)
	}
	checkInvariants(t, h)
}

func singleMatchManager(t *testing.T) (*report.Manager, report.ID) {
	t.Helper()
	rm := report.NewManager()
	r := report.NewExternal(7)
	r.Ekey = rm.Ekey(7)
	return rm, rm.Intern(r)
}

func TestPruneHighlanderAccepts(t *testing.T) {
	rm, id := singleMatchManager(t)
	h := mustBuild(t, "ab+", 0)
	for _, v := range h.Vertices() {
		if h.IsMatchVertex(v) {
			h.Props(v).Reports = report.Set{id}
		}
	}
	if !h.PruneHighlanderAccepts(rm) {
		t.Fatalf("PruneHighlanderAccepts made no change")
	}
	if !h.IsAcyclic() {
		t.Errorf("self-loop on the reporter should be gone")
	}
	checkInvariants(t, h)

	// Not applicable without ekeys.
	plain := report.NewManager()
	pid := plain.Intern(report.NewExternal(1))
	h = mustBuild(t, "ab+", 0)
	for _, v := range h.Vertices() {
		if h.IsMatchVertex(v) {
			h.Props(v).Reports = report.Set{pid}
		}
	}
	if h.PruneHighlanderAccepts(plain) {
		t.Errorf("pass must not fire for repeatable reports")
	}
}

func TestPruneHighlanderDominated(t *testing.T) {
	rm, id := singleMatchManager(t)

	// StartDs -> a -> b, where both a and b report: b is dominated by a.
	h := New()
	a := chain(h, StartDs, "a")
	b := chain(h, a, "b")
	for _, v := range []VertexID{a, b} {
		h.AddEdge(v, Accept)
		h.Props(v).Reports = report.Set{id}
	}
	if !h.PruneHighlanderDominated(rm) {
		t.Fatalf("PruneHighlanderDominated made no change")
	}
	if h.Alive(b) {
		t.Errorf("dominated reporter survived")
	}
	checkInvariants(t, h)

	// A reporter that only loops and reports loses its loop.
	h = New()
	x := chain(h, StartDs, "x")
	h.AddEdge(x, x)
	h.AddEdge(x, Accept)
	h.Props(x).Reports = report.Set{id}
	if !h.PruneHighlanderDominated(rm) {
		t.Fatalf("self-loop removal made no change")
	}
	if h.HasEdge(x, x) {
		t.Errorf("self-loop survived")
	}
}

func TestPruneReport(t *testing.T) {
	build := func() *Holder {
		h := New()
		a := chain(h, StartDs, "ab")
		h.AddEdge(a, Accept)
		h.Props(a).Reports = report.Set{0}
		c := chain(h, StartDs, "cd")
		h.AddEdge(c, Accept)
		h.AddEdge(c, AcceptEod)
		h.Props(c).Reports = report.Set{1}
		both := chain(h, StartDs, "e")
		h.AddEdge(both, Accept)
		h.Props(both).Reports = report.Set{0, 1}
		return h
	}

	h := build()
	h.PruneReport(1)
	if got := h.AllReports(); !got.Equal(report.Set{0}) {
		t.Errorf("after PruneReport(1): reports %v, want [0]", got)
	}
	if got := h.NumVertices() - NumSpecials; got != 3 {
		t.Errorf("after PruneReport(1): %d vertices, want 3", got)
	}
	checkInvariants(t, h)

	h = build()
	h.PruneAllOtherReports(1)
	if got := h.AllReports(); !got.Equal(report.Set{1}) {
		t.Errorf("after PruneAllOtherReports(1): reports %v, want [1]", got)
	}
	if got := h.NumVertices() - NumSpecials; got != 3 {
		t.Errorf("after PruneAllOtherReports(1): %d vertices, want 3", got)
	}
	checkInvariants(t, h)
}

func TestDominators(t *testing.T) {
	// Diamond: StartDs -> a -> {b, c} -> d -> Accept.
	h := New()
	a := chain(h, StartDs, "a")
	b := chain(h, a, "b")
	c := chain(h, a, "c")
	d := h.AddVertex(VertexProps{Reach: charclass.Of('d')})
	h.AddEdge(b, d)
	h.AddEdge(c, d)
	h.AddEdge(d, Accept)

	idom := Dominators(h)
	want := map[VertexID]VertexID{StartDs: Start, a: StartDs, b: a, c: a, d: a, Accept: d, AcceptEod: Accept}
	for v, w := range want {
		if got := idom[h.Index(v)]; got != w {
			t.Errorf("idom(%d) = %d, want %d", v, got, w)
		}
	}
	if idom[h.Index(Start)] != NoVertex {
		t.Errorf("root has an idom")
	}
	if !Dominates(h, idom, a, d) || Dominates(h, idom, b, d) {
		t.Errorf("Dominates wrong on diamond")
	}
}

func TestRemoveCyclicPathRedundancy(t *testing.T) {
	// u -> v(loop on [ab]) -> x and u -> w([a]) -> x: the path through w
	// is covered by v's loop.
	h := New()
	u := chain(h, StartDs, "u")
	v := h.AddVertex(VertexProps{Reach: charclass.Of('a', 'b')})
	w := h.AddVertex(VertexProps{Reach: charclass.Of('a')})
	x := h.AddVertex(VertexProps{Reach: charclass.Of('b'), Reports: report.Set{0}})
	h.AddEdge(u, v)
	h.AddEdge(v, v)
	h.AddEdge(v, x)
	h.AddEdge(u, w)
	h.AddEdge(w, x)
	h.AddEdge(u, x)
	h.AddEdge(x, Accept)

	if !h.RemoveCyclicPathRedundancy() {
		t.Fatalf("no redundancy found")
	}
	if h.Alive(w) {
		t.Errorf("redundant vertex survived")
	}
	checkInvariants(t, h)
	if h.RemoveCyclicPathRedundancy() {
		t.Errorf("second run changed the graph")
	}

	// With w's reach outside v's loop nothing is redundant.
	h = New()
	u = chain(h, StartDs, "u")
	v = h.AddVertex(VertexProps{Reach: charclass.Of('a')})
	w = h.AddVertex(VertexProps{Reach: charclass.Of('c')})
	x = h.AddVertex(VertexProps{Reach: charclass.Of('x'), Reports: report.Set{0}})
	h.AddEdge(u, v)
	h.AddEdge(v, v)
	h.AddEdge(v, x)
	h.AddEdge(u, w)
	h.AddEdge(w, x)
	h.AddEdge(u, x)
	h.AddEdge(x, Accept)
	if h.RemoveCyclicPathRedundancy() {
		t.Errorf("removed a needed edge")
	}
}

func TestCalcComponents(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		comps int
	}{
		{"single class", "[ab]", 1},
		{"alternation of classes", "a|b|c", 1},
		{"chain", "abcdefgh", 1},
		{"short alternation", "ab|cd", 2},
		{"long alternation", "abcdefgh|ijklmnop", 2},
		{"three branches", "abc|def|ghi", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mustBuild(t, tt.expr, 0)
			comps := CalcComponents(h, DefaultComponentConfig())
			if len(comps) != tt.comps {
				t.Fatalf("got %d components, want %d", len(comps), tt.comps)
			}
			total := 0
			for _, c := range comps {
				checkInvariants(t, c)
				if c.NumVertices() <= NumSpecials {
					t.Errorf("empty component")
				}
				total += c.NumVertices() - NumSpecials
			}
			if total != h.NumVertices()-NumSpecials {
				t.Errorf("components hold %d vertices, graph has %d", total, h.NumVertices()-NumSpecials)
			}
		})
	}

	h := mustBuild(t, "ab|cd", 0)
	if got := CalcComponents(h, ComponentConfig{}); len(got) != 1 {
		t.Errorf("split disabled: %d components", len(got))
	}
}

func TestReduceGraph(t *testing.T) {
	rm, id := singleMatchManager(t)
	h := mustBuild(t, "ab[ab]*c|ab[ab]*ac", 0)
	for _, v := range h.Vertices() {
		if h.IsMatchVertex(v) {
			h.Props(v).Reports = report.Set{id}
		}
	}
	before := h.NumVertices()
	ReduceGraph(h, rm, ReduceOptions{Highlander: true})
	checkInvariants(t, h)
	if h.NumVertices() > before {
		t.Errorf("ReduceGraph grew the graph")
	}
	if FindMinWidth(h, NoTop) != 3 {
		t.Errorf("min width = %v, want 3", FindMinWidth(h, NoTop))
	}
}

func TestCloneAndFill(t *testing.T) {
	h := mustBuild(t, "ab|cd", 0)
	c, vmap := h.Clone()
	if c.NumVertices() != h.NumVertices() || c.NumEdges() != h.NumEdges() {
		t.Fatalf("clone size differs")
	}
	for v, cv := range vmap {
		if h.Props(v).Reach != c.Props(cv).Reach {
			t.Errorf("clone reach differs for %d", v)
		}
	}
	c.Props(vmap[h.Vertices()[NumSpecials]]).Reports = report.Set{99}
	if h.Props(h.Vertices()[NumSpecials]).Reports.Contains(99) {
		t.Errorf("clone shares report storage")
	}

	var keep []VertexID
	for _, v := range h.Vertices() {
		if lit, _, ok := h.Props(v).Reach.Literal(); ok && !IsSpecial(v) && (lit == 'a' || lit == 'b') {
			keep = append(keep, v)
		}
	}
	f, _ := h.FillHolder(keep)
	if f.NumVertices() != NumSpecials+2 {
		t.Errorf("FillHolder kept %d vertices, want %d", f.NumVertices(), NumSpecials+2)
	}
	checkInvariants(t, f)
}
