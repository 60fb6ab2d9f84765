package nfa

import (
	"fmt"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/report"
	"github.com/coregx/corescan/simd"
)

// LBRModel names the escape search of a repeat: the search for the
// first byte outside the repeated class.
type LBRModel uint8

const (
	// LBRDot repeats any byte and never escapes.
	LBRDot LBRModel = iota

	// LBRVerm escapes on one byte.
	LBRVerm

	// LBRNVerm repeats one byte and escapes on any other.
	LBRNVerm

	// LBRShuf escapes on a class packed into nibble buckets.
	LBRShuf

	// LBRTruf escapes on an arbitrary class.
	LBRTruf
)

func (m LBRModel) String() string {
	switch m {
	case LBRDot:
		return "dot"
	case LBRVerm:
		return "verm"
	case LBRNVerm:
		return "nverm"
	case LBRShuf:
		return "shuf"
	case LBRTruf:
		return "truf"
	}
	return fmt.Sprintf("model(%d)", m)
}

// Repeat is one class repeat c{Min,Max} raising Report.
type Repeat struct {
	Reach  charclass.Set
	Min    uint32
	Max    uint32
	Report report.ID
}

type repeatEngine struct {
	reach  charclass.Set
	info   RepeatInfo
	model  LBRModel
	escape AccelScheme
	nbyte  byte // the repeated byte of an NVerm repeat
	report report.ID
	offset int // of this control in the state
}

func newRepeatEngine(r Repeat, offset int) (repeatEngine, error) {
	info, err := NewRepeatInfo(r.Min, r.Max)
	if err != nil {
		return repeatEngine{}, err
	}
	if r.Reach.IsEmpty() {
		return repeatEngine{}, fmt.Errorf("%w: empty repeat class", ErrNotRepeat)
	}
	re := repeatEngine{reach: r.Reach, info: info, report: r.Report, offset: offset}
	re.model, re.escape, re.nbyte = escapeModel(r.Reach)
	return re, nil
}

func escapeModel(reach charclass.Set) (LBRModel, AccelScheme, byte) {
	esc := reach.Negate()
	switch {
	case reach.IsAll():
		return LBRDot, AccelScheme{Kind: AccelNone}, 0
	case reach.Count() == 1:
		return LBRNVerm, AccelScheme{Kind: AccelNone}, byte(reach.First())
	case esc.Count() == 1:
		return LBRVerm, AccelScheme{Kind: AccelVerm, Bytes: [3]byte{byte(esc.First())}}, 0
	}
	table := esc.Table()
	if sh, ok := simd.BuildShufti(table); ok {
		return LBRShuf, AccelScheme{Kind: AccelShufti, Shufti: sh}, 0
	}
	return LBRTruf, AccelScheme{Kind: AccelTruffle, Truffle: simd.BuildTruffle(table)}, 0
}

// findEscape returns the first index in buf[from:to] holding a byte
// outside the class, or to.
func (re *repeatEngine) findEscape(buf []byte, from, to int) int {
	switch re.model {
	case LBRDot:
		return to
	case LBRNVerm:
		if i := simd.MemchrNot(buf[from:to], re.nbyte); i >= 0 {
			return from + i
		}
		return to
	}
	return re.escape.Scan(buf[:to], from)
}

func (re *repeatEngine) state(q *Queue) repeatState {
	return repeatState{info: &re.info, b: q.State[re.offset : re.offset+re.info.Size]}
}

// peek looks for the first match of this repeat in (from, to] without
// changing state. esc is the first escape index, to when none.
func (re *repeatEngine) peek(q *Queue, from, to int) (e int, ok bool, esc int) {
	rs := re.state(q)
	if rs.empty() {
		return 0, false, to
	}
	esc = re.findEscape(q.Buf, from, to)
	abs, ok := rs.nextMatch(q.Offset + uint64(from) + 1)
	if ok && abs <= q.Offset+uint64(esc) {
		return int(abs - q.Offset), true, esc
	}
	return 0, false, esc
}

// repeatSet drives any number of repeats through one queue.
type repeatSet struct {
	repeats []repeatEngine
	size    int
}

func newRepeatSet(rs []Repeat) (repeatSet, error) {
	var set repeatSet
	for _, r := range rs {
		re, err := newRepeatEngine(r, set.size)
		if err != nil {
			return repeatSet{}, err
		}
		set.repeats = append(set.repeats, re)
		set.size += re.info.Size
	}
	return set, nil
}

func (s *repeatSet) top(q *Queue, idx int, loc int) {
	if idx < 0 || idx >= len(s.repeats) {
		return
	}
	s.repeats[idx].state(q).add(q.Offset + uint64(loc))
}

func (s *repeatSet) reportIDs(dst []report.ID) []report.ID {
	for i := range s.repeats {
		dst = append(dst, s.repeats[i].report)
	}
	return dst
}

func (s *repeatSet) run(q *Queue, from, to int) (int, bool) {
	best := -1
	var escs [8]int
	esc := escs[:0]
	for i := range s.repeats {
		e, ok, x := s.repeats[i].peek(q, from, to)
		esc = append(esc, x)
		if ok && (best < 0 || e < best) {
			best = e
		}
	}
	limit := to
	if best >= 0 {
		limit = best
	}
	for i := range s.repeats {
		// Tops die at an escape before the stopping point; no new top
		// can arrive before to.
		if esc[i] < to && esc[i] < limit {
			s.repeats[i].state(q).clear()
		}
	}
	if best >= 0 {
		return best, true
	}
	return to, false
}

func (s *repeatSet) report(q *Queue) Status {
	end := q.Offset + uint64(q.loc)
	var last report.ID
	sent := false
	for i := range s.repeats {
		re := &s.repeats[i]
		if !re.state(q).matchesAt(end) {
			continue
		}
		if sent && re.report == last {
			continue
		}
		if q.Report(0, end, re.report) == Stop {
			return Stop
		}
		last, sent = re.report, true
	}
	return Continue
}

func (s *repeatSet) active(q *Queue) bool {
	for i := range s.repeats {
		if !s.repeats[i].state(q).empty() {
			return true
		}
	}
	return false
}

func (s *repeatSet) encode(w *bytecode.Writer) {
	w.Int(len(s.repeats))
	for _, re := range s.repeats {
		for _, x := range re.reach {
			w.U64(x)
		}
		w.U32(re.info.Min)
		w.U32(re.info.Max)
		w.U32(uint32(re.report))
	}
}

func decodeRepeatSet(r *bytecode.Reader) (repeatSet, error) {
	n := r.Count(1 << 16)
	rs := make([]Repeat, n)
	for i := range rs {
		for j := range rs[i].Reach {
			rs[i].Reach[j] = r.U64()
		}
		rs[i].Min = r.U32()
		rs[i].Max = r.U32()
		rs[i].Report = report.ID(r.U32())
	}
	if err := r.Err(); err != nil {
		return repeatSet{}, err
	}
	set, err := newRepeatSet(rs)
	if err != nil {
		return repeatSet{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return set, nil
}

// LBR runs a single bounded repeat triggered by tops. A top at location
// L makes byte L the first byte of a repetition.
type LBR struct {
	set repeatSet
}

// NewLBR builds an LBR for one repeat.
func NewLBR(r Repeat) (*LBR, error) {
	set, err := newRepeatSet([]Repeat{r})
	if err != nil {
		return nil, &BuildError{Engine: KindLBR, Err: err}
	}
	return &LBR{set: set}, nil
}

// CompileLBR builds an LBR from a suffix graph that is a pure class
// repeat entered from Start.
func CompileLBR(h *graph.Holder) (*LBR, error) {
	r, ok := AnalyzeRepeat(h)
	if !ok {
		return nil, &BuildError{Engine: KindLBR, Err: ErrNotRepeat}
	}
	return NewLBR(r)
}

// Model returns the escape model.
func (l *LBR) Model() LBRModel { return l.set.repeats[0].model }

// Info returns the repeat control description.
func (l *LBR) Info() RepeatInfo { return l.set.repeats[0].info }

// Kind implements Engine.
func (l *LBR) Kind() Kind { return KindLBR }

// StateSize implements Engine.
func (l *LBR) StateSize() int { return l.set.size }

// StreamStateSize implements Engine.
func (l *LBR) StreamStateSize() int { return l.set.size }

// InitState implements Engine.
func (l *LBR) InitState(q *Queue) { clear(q.State[:l.set.size]) }

func (l *LBR) top(q *Queue, ev Event) { l.set.top(q, 0, ev.Loc) }

func (l *LBR) run(q *Queue, from, to int) (int, bool) { return l.set.run(q, from, to) }

func (l *LBR) report(q *Queue) Status { return l.set.report(q) }

// QueueExec implements Engine.
func (l *LBR) QueueExec(q *Queue, end int) Status { return exec(l, q, end) }

// QueueExecToMatch implements Engine.
func (l *LBR) QueueExecToMatch(q *Queue, end int) (int, MatchStatus) {
	return execToMatch(l, q, end)
}

// ReportCurrent implements Engine.
func (l *LBR) ReportCurrent(q *Queue) Status { return l.set.report(q) }

// CheckEOD implements Engine. Repeats have no end-of-data accepts.
func (l *LBR) CheckEOD(*Queue) Status { return Continue }

// Active implements Engine.
func (l *LBR) Active(q *Queue) bool { return l.set.active(q) }

// Compress implements Engine.
func (l *LBR) Compress(dst []byte, q *Queue, _ uint64) { copy(dst, q.State[:l.set.size]) }

// Expand implements Engine.
func (l *LBR) Expand(q *Queue, src []byte, _ uint64) { copy(q.State, src[:l.set.size]) }

// Encode implements Engine.
func (l *LBR) Encode(w *bytecode.Writer) { l.set.encode(w) }

func decodeLBR(r *bytecode.Reader) (*LBR, error) {
	set, err := decodeRepeatSet(r)
	if err != nil {
		return nil, err
	}
	if len(set.repeats) != 1 {
		return nil, fmt.Errorf("%w: lbr with %d repeats", ErrCorrupt, len(set.repeats))
	}
	return &LBR{set: set}, nil
}

// maxRepeatProbe bounds the unary simulation in AnalyzeRepeat.
const maxRepeatProbe = 4096

// AnalyzeRepeat recognises a graph whose language is c{min,max} for one
// class c, entered only through tops on Start and raising one report.
// Every state must carry the same class, so the graph is a unary
// automaton; it is run one length at a time until the set of live states
// empties or repeats, which decides the accepted lengths exactly.
func AnalyzeRepeat(h *graph.Holder) (Repeat, bool) {
	var r Repeat
	var verts []graph.VertexID
	for _, v := range h.Vertices() {
		if !graph.IsSpecial(v) {
			verts = append(verts, v)
		}
	}
	if len(verts) == 0 || len(h.Succs(graph.StartDs)) > 1 {
		return r, false
	}
	idx := make(map[graph.VertexID]int, len(verts))
	for i, v := range verts {
		idx[v] = i
	}
	reach := h.Props(verts[0]).Reach
	var reports report.Set
	accepting := make([]bool, len(verts))
	for i, v := range verts {
		p := h.Props(v)
		if p.Reach != reach || p.Assert != 0 {
			return r, false
		}
		for _, w := range h.Succs(v) {
			switch w {
			case graph.AcceptEod:
				return r, false
			case graph.Accept:
				accepting[i] = true
				if reports == nil {
					reports = p.Reports
				} else if !reports.Equal(p.Reports) {
					return r, false
				}
			}
		}
	}
	if len(reports) != 1 {
		return r, false
	}

	cur := make([]bool, len(verts))
	for _, e := range h.OutEdges(graph.Start) {
		w := h.Target(e)
		if graph.IsSpecial(w) {
			continue
		}
		if len(h.EdgeProps(e).Tops) == 0 {
			return r, false
		}
		cur[idx[w]] = true
	}

	seen := make(map[string]int)
	lengths := []bool{false} // lengths[n]: a match of n bytes exists
	cycleFrom := -1
	for n := 1; ; n++ {
		key := string(boolKey(cur))
		if k, ok := seen[key]; ok {
			cycleFrom = k
			break
		}
		if n > maxRepeatProbe {
			return r, false
		}
		seen[key] = n
		acc, live := false, false
		next := make([]bool, len(verts))
		for i, on := range cur {
			if !on {
				continue
			}
			live = true
			acc = acc || accepting[i]
			for _, w := range h.Succs(verts[i]) {
				if !graph.IsSpecial(w) {
					next[idx[w]] = true
				}
			}
		}
		if !live {
			break
		}
		lengths = append(lengths, acc)
		cur = next
	}

	lo, hi := -1, -1
	for n, acc := range lengths {
		if acc {
			if lo < 0 {
				lo = n
			}
			hi = n
		}
	}
	if lo < 1 {
		return r, false
	}
	for n := lo; n <= hi; n++ {
		if !lengths[n] {
			return r, false
		}
	}
	r.Reach, r.Report, r.Min = reach, reports[0], uint32(lo)
	switch {
	case cycleFrom < 0:
		r.Max = uint32(hi)
	case hi == len(lengths)-1 && cycleFrom >= lo:
		r.Max = RepeatInf
	default:
		return r, false
	}
	return r, true
}

func boolKey(bs []bool) []byte {
	k := make([]byte, len(bs))
	for i, b := range bs {
		if b {
			k[i] = 1
		}
	}
	return k
}
