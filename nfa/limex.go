package nfa

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/report"
)

// LimEx is a Glushkov NFA executed as a state bitset.
//
// States are the non-special vertices of the source graph. After each
// byte the set holds the states whose position just matched that byte:
//
//	next = (succ(S) | entries) & reach[class(c)]
//
// where succ is computed with a shift for states whose successor is the
// next state, a loop mask for self loops, and explicit lists for the
// remaining edges.
type LimEx struct {
	nstates int
	nwords  int

	classes charclass.ByteClasses
	reach   []uint64 // class-major, nwords per class

	shift []uint64
	loop  []uint64
	exc   []uint64
	extra [][]uint32 // successors not covered by shift or loop
	succs [][]uint32

	floatInit []uint64
	anchInit  []uint64
	topIDs    []uint32
	topInit   []uint64 // nwords per top, in topIDs order

	accept     []uint64
	acceptEod  []uint64
	reports    [][]report.ID
	eodReports [][]report.ID

	som      bool
	somWidth int

	accel       bool
	idleAccel   AccelScheme
	cyclicAccel []int32 // per state, index into accels or -1
	accels      []AccelScheme
}

// CompileLimEx builds a LimEx from a reduced graph. Start out-edges
// carrying tops become per-top entries, the others are anchored entries,
// and StartDs out-edges are floating entries. With som set the engine
// tracks the leftmost start of every state.
func CompileLimEx(h *graph.Holder, cfg Config, som bool) (*LimEx, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &BuildError{Engine: KindLimEx, Err: err}
	}
	var verts []graph.VertexID
	for _, v := range h.Vertices() {
		if !graph.IsSpecial(v) {
			verts = append(verts, v)
		}
	}
	slices.SortFunc(verts, func(a, b graph.VertexID) int { return cmp.Compare(h.Index(a), h.Index(b)) })
	if len(verts) == 0 {
		return nil, &BuildError{Engine: KindLimEx, Err: fmt.Errorf("%w: graph has no states", ErrInvalidConfig)}
	}
	if len(verts) > cfg.MaxStates {
		return nil, &BuildError{Engine: KindLimEx, Err: fmt.Errorf("%w: %d states, limit %d", ErrPatternTooLarge, len(verts), cfg.MaxStates)}
	}

	n := len(verts)
	nw := (n + 63) / 64
	state := make(map[graph.VertexID]int, n)
	for i, v := range verts {
		state[v] = i
	}

	var cb charclass.Builder
	for _, v := range verts {
		cb.Add(h.Props(v).Reach)
	}
	l := &LimEx{
		nstates:    n,
		nwords:     nw,
		classes:    cb.Build(),
		shift:      make([]uint64, nw),
		loop:       make([]uint64, nw),
		exc:        make([]uint64, nw),
		extra:      make([][]uint32, n),
		succs:      make([][]uint32, n),
		floatInit:  make([]uint64, nw),
		anchInit:   make([]uint64, nw),
		accept:     make([]uint64, nw),
		acceptEod:  make([]uint64, nw),
		reports:    make([][]report.ID, n),
		eodReports: make([][]report.ID, n),
		som:        som,
		somWidth:   cfg.SomHorizon,
		accel:      cfg.Accel,
	}
	if l.somWidth == 0 {
		l.somWidth = 8
	}

	reps := l.classes.Representatives()
	l.reach = make([]uint64, len(reps)*nw)
	for i, v := range verts {
		r := h.Props(v).Reach
		for c, b := range reps {
			if r.Test(b) {
				setBit(l.reach[c*nw:], i)
			}
		}
	}

	for i, v := range verts {
		for _, w := range h.Succs(v) {
			switch w {
			case graph.Accept:
				setBit(l.accept, i)
				l.reports[i] = slices.Clone(h.Props(v).Reports)
				continue
			case graph.AcceptEod:
				setBit(l.acceptEod, i)
				l.eodReports[i] = slices.Clone(h.Props(v).Reports)
				continue
			}
			if graph.IsSpecial(w) {
				continue
			}
			j := state[w]
			l.succs[i] = append(l.succs[i], uint32(j))
			switch j {
			case i:
				setBit(l.loop, i)
			case i + 1:
				setBit(l.shift, i)
			default:
				l.extra[i] = append(l.extra[i], uint32(j))
				setBit(l.exc, i)
			}
		}
		slices.Sort(l.succs[i])
	}

	topMasks := make(map[uint32][]uint64)
	for _, e := range h.OutEdges(graph.Start) {
		w := h.Target(e)
		if graph.IsSpecial(w) {
			continue
		}
		tops := h.EdgeProps(e).Tops
		if len(tops) == 0 {
			setBit(l.anchInit, state[w])
			continue
		}
		for _, t := range tops {
			m, ok := topMasks[t]
			if !ok {
				m = make([]uint64, nw)
				topMasks[t] = m
			}
			setBit(m, state[w])
		}
	}
	for _, e := range h.OutEdges(graph.StartDs) {
		if w := h.Target(e); !graph.IsSpecial(w) {
			setBit(l.floatInit, state[w])
		}
	}
	for t := range topMasks {
		l.topIDs = append(l.topIDs, t)
	}
	slices.Sort(l.topIDs)
	for _, t := range l.topIDs {
		l.topInit = append(l.topInit, topMasks[t]...)
	}

	l.buildAccel(verts, h)
	return l, nil
}

func (l *LimEx) stateReach(i int) charclass.Set {
	var s charclass.Set
	nw := l.nwords
	for b := 0; b < 256; b++ {
		c := int(l.classes.Get(byte(b)))
		if testBit(l.reach[c*nw:], i) {
			s.Set(byte(b))
		}
	}
	return s
}

func (l *LimEx) buildAccel(verts []graph.VertexID, h *graph.Holder) {
	l.cyclicAccel = make([]int32, l.nstates)
	for i := range l.cyclicAccel {
		l.cyclicAccel[i] = -1
	}
	if !l.accel {
		l.idleAccel = AccelScheme{Kind: AccelNone}
		return
	}

	var floatReach charclass.Set
	var floats []int
	forEachBit(l.floatInit, func(i int) {
		floats = append(floats, i)
		floatReach = floatReach.Union(h.Props(verts[i]).Reach)
	})
	l.idleAccel = BuildAccel(floatReach)
	if len(floats) == 1 {
		e := floats[0]
		first, _, ok1 := literalByte(h.Props(verts[e]).Reach)
		if ok1 && !l.matches(e) && len(l.succs[e]) == 1 && int(l.succs[e][0]) != e {
			f := int(l.succs[e][0])
			if second, _, ok2 := literalByte(h.Props(verts[f]).Reach); ok2 {
				l.idleAccel = BuildDoubleAccel(first, second, 1)
			}
		}
	}

	for i := range verts {
		if !testBit(l.loop, i) || l.matches(i) {
			continue
		}
		stops := h.Props(verts[i]).Reach.Negate().Union(floatReach)
		for _, j := range l.succs[i] {
			if int(j) != i {
				stops = stops.Union(h.Props(verts[j]).Reach)
			}
		}
		a := BuildAccel(stops)
		if a.Kind == AccelNone {
			continue
		}
		l.cyclicAccel[i] = int32(len(l.accels))
		l.accels = append(l.accels, a)
	}
}

// literalByte returns the byte of a single-byte class.
func literalByte(s charclass.Set) (byte, bool, bool) {
	if s.Count() != 1 {
		return 0, false, false
	}
	return byte(s.First()), false, true
}

func (l *LimEx) matches(i int) bool {
	return testBit(l.accept, i) || testBit(l.acceptEod, i)
}

// Kind implements Engine.
func (l *LimEx) Kind() Kind { return KindLimEx }

// NumStates returns the number of NFA states.
func (l *LimEx) NumStates() int { return l.nstates }

// HasSOM reports whether the engine tracks start of match.
func (l *LimEx) HasSOM() bool { return l.som }

// Tops returns the trigger ids the engine responds to.
func (l *LimEx) Tops() []uint32 { return l.topIDs }

// Floating reports whether the engine has entries applied at every byte.
func (l *LimEx) Floating() bool { return anyBit(l.floatInit) }

// Anchored reports whether the engine has entries applied at offset 0.
func (l *LimEx) Anchored() bool { return anyBit(l.anchInit) }

// IdleAccel returns the scheme used while no state is active.
func (l *LimEx) IdleAccel() AccelScheme { return l.idleAccel }

// Encode implements Engine.
func (l *LimEx) Encode(w *bytecode.Writer) {
	w.Int(l.nstates)
	w.Bool(l.som)
	w.U8(uint8(l.somWidth))
	w.Bool(l.accel)
	t := l.classes.Table()
	w.Raw(t[:])
	writeWords(w, l.reach)
	writeWords(w, l.shift)
	writeWords(w, l.loop)
	writeWords(w, l.exc)
	writeWords(w, l.floatInit)
	writeWords(w, l.anchInit)
	writeWords(w, l.accept)
	writeWords(w, l.acceptEod)
	w.Int(len(l.topIDs))
	for _, id := range l.topIDs {
		w.U32(id)
	}
	writeWords(w, l.topInit)
	for i := 0; i < l.nstates; i++ {
		writeU32s(w, l.succs[i])
		writeU32s(w, l.extra[i])
		writeReports(w, l.reports[i])
		writeReports(w, l.eodReports[i])
		w.I32(l.cyclicAccel[i])
	}
	l.idleAccel.encode(w)
	w.Int(len(l.accels))
	for i := range l.accels {
		l.accels[i].encode(w)
	}
}

func decodeLimEx(r *bytecode.Reader) (*LimEx, error) {
	l := &LimEx{}
	l.nstates = r.Count(1 << 16)
	if r.Err() == nil && l.nstates == 0 {
		r.Fail("limex without states")
	}
	l.nwords = (l.nstates + 63) / 64
	l.som = r.Bool()
	l.somWidth = int(r.U8())
	switch l.somWidth {
	case SomHorizonSmall, SomHorizonMedium, SomHorizonLarge:
	default:
		r.Fail("som width %d", l.somWidth)
	}
	l.accel = r.Bool()
	var t [256]byte
	copy(t[:], r.Raw(256))
	l.classes = charclass.FromTable(t)
	nw := l.nwords
	l.reach = readWords(r, l.classes.Len()*nw)
	l.shift = readWords(r, nw)
	l.loop = readWords(r, nw)
	l.exc = readWords(r, nw)
	l.floatInit = readWords(r, nw)
	l.anchInit = readWords(r, nw)
	l.accept = readWords(r, nw)
	l.acceptEod = readWords(r, nw)
	ntops := r.Count(1 << 16)
	for i := 0; i < ntops && r.Err() == nil; i++ {
		l.topIDs = append(l.topIDs, r.U32())
	}
	l.topInit = readWords(r, ntops*nw)
	if r.Err() != nil {
		return nil, r.Err()
	}
	l.succs = make([][]uint32, l.nstates)
	l.extra = make([][]uint32, l.nstates)
	l.reports = make([][]report.ID, l.nstates)
	l.eodReports = make([][]report.ID, l.nstates)
	l.cyclicAccel = make([]int32, l.nstates)
	for i := 0; i < l.nstates && r.Err() == nil; i++ {
		l.succs[i] = readU32s(r, l.nstates)
		l.extra[i] = readU32s(r, l.nstates)
		l.reports[i] = readReports(r)
		l.eodReports[i] = readReports(r)
		l.cyclicAccel[i] = r.I32()
	}
	l.idleAccel = decodeAccel(r)
	nacc := r.Count(l.nstates)
	for i := 0; i < nacc && r.Err() == nil; i++ {
		l.accels = append(l.accels, decodeAccel(r))
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	for i := 0; i < l.nstates; i++ {
		for _, j := range l.succs[i] {
			if int(j) >= l.nstates {
				r.Fail("successor %d out of range", j)
			}
		}
		for _, j := range l.extra[i] {
			if int(j) >= l.nstates {
				r.Fail("successor %d out of range", j)
			}
		}
		if c := l.cyclicAccel[i]; c < -1 || int(c) >= len(l.accels) {
			r.Fail("accel index %d out of range", c)
		}
	}
	return l, r.Err()
}

func writeWords(w *bytecode.Writer, ws []uint64) {
	for _, x := range ws {
		w.U64(x)
	}
}

func readWords(r *bytecode.Reader, n int) []uint64 {
	if n > r.Remaining()/8 {
		r.Fail("%d words past end", n)
		return nil
	}
	ws := make([]uint64, n)
	for i := range ws {
		ws[i] = r.U64()
	}
	return ws
}

func writeU32s(w *bytecode.Writer, s []uint32) {
	w.Int(len(s))
	for _, x := range s {
		w.U32(x)
	}
}

func readU32s(r *bytecode.Reader, max int) []uint32 {
	n := r.Count(max)
	if n == 0 {
		return nil
	}
	s := make([]uint32, n)
	for i := range s {
		s[i] = r.U32()
	}
	return s
}

func writeReports(w *bytecode.Writer, s []report.ID) {
	w.Int(len(s))
	for _, x := range s {
		w.U32(uint32(x))
	}
}

func readReports(r *bytecode.Reader) []report.ID {
	n := r.Count(1 << 20)
	if n == 0 {
		return nil
	}
	s := make([]report.ID, n)
	for i := range s {
		s[i] = report.ID(r.U32())
	}
	return s
}

func setBit(ws []uint64, i int)       { ws[i>>6] |= 1 << (i & 63) }
func testBit(ws []uint64, i int) bool { return ws[i>>6]&(1<<(i&63)) != 0 }

func anyBit(ws []uint64) bool {
	for _, w := range ws {
		if w != 0 {
			return true
		}
	}
	return false
}

func forEachBit(ws []uint64, fn func(i int)) {
	for wi, w := range ws {
		for w != 0 {
			fn(wi*64 + bits.TrailingZeros64(w))
			w &= w - 1
		}
	}
}
