package rose

import (
	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/litmatch"
	"github.com/coregx/corescan/multibit"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// Role is the way a component is run.
type Role uint8

// Role kinds, in the order the builder tries them.
const (
	// RoleLiteral is a fixed-width chain found by a literal table and
	// confirmed by its program.
	RoleLiteral Role = iota

	// RoleSuffix is a literal prefix that triggers a suffix engine.
	RoleSuffix

	// RoleChain is an engine prefix chained into an MPV repeat.
	RoleChain

	// RoleOutfix is an engine over the whole input.
	RoleOutfix
)

func (r Role) String() string {
	switch r {
	case RoleLiteral:
		return "literal"
	case RoleSuffix:
		return "suffix"
	case RoleChain:
		return "chain"
	case RoleOutfix:
		return "outfix"
	}
	return "unknown"
}

// QueueKind says how an engine queue is fed.
type QueueKind uint8

const (
	// QueueMPV is the chained repeat aggregator, always queue 0.
	QueueMPV QueueKind = iota + 1

	// QueueOutfix runs from the start of the data.
	QueueOutfix

	// QueueSuffix is idle until a program triggers it.
	QueueSuffix
)

// table is a literal matcher with one program per literal.
type table struct {
	matcher  *litmatch.Matcher
	programs []Program
}

func (t *table) empty() bool { return t.matcher == nil }

type queueInfo struct {
	engine nfa.Engine
	kind   QueueKind
}

// Rose is a compiled database runtime. It is immutable and safe for
// concurrent use; per-scan state lives in a Scratch and per-stream state
// in a caller-owned byte slice.
type Rose struct {
	floating table
	anchored table
	eod      table
	delayed  []Program
	looks    [][]nfa.LookEntry
	queues   []queueInfo

	reports        []report.Report
	numEkeys       int
	numDkeys       int
	ekeyGroups     []uint64
	initialGroups  uint64
	allExhaustible bool

	floatingMin    uint64
	anchoredRegion int
	historyLen     int
	queueCapacity  int
	somHorizon     int

	roles []Role

	lay         layout
	activeKeys  multibit.Layout
	ekeyLayout  multibit.Layout
	maxStateLen int
}

// Roles returns the role given to each component, in build order.
func (r *Rose) Roles() []Role { return r.roles }

// NumQueues returns the number of engine queues.
func (r *Rose) NumQueues() int { return len(r.queues) }

// Queue returns the engine and kind of queue i.
func (r *Rose) Queue(i int) (nfa.Engine, QueueKind) { return r.queues[i].engine, r.queues[i].kind }

// HistoryLen returns the number of history bytes a stream keeps.
func (r *Rose) HistoryLen() int { return r.historyLen }

// Reports returns the report table.
func (r *Rose) Reports() []report.Report { return r.reports }

// FloatingMatcher returns the floating literal table, or nil.
func (r *Rose) FloatingMatcher() *litmatch.Matcher { return r.floating.matcher }

// AnchoredMatcher returns the anchored literal table, or nil.
func (r *Rose) AnchoredMatcher() *litmatch.Matcher { return r.anchored.matcher }

// EODMatcher returns the end-of-data literal table, or nil.
func (r *Rose) EODMatcher() *litmatch.Matcher { return r.eod.matcher }

// FloatingMinOffset returns the smallest end offset a floating literal
// can match at.
func (r *Rose) FloatingMinOffset() uint64 { return r.floatingMin }

func (r *Rose) hasMPV() bool { return len(r.queues) > 0 && r.queues[0].kind == QueueMPV }

// Encode appends the database runtime to w.
func (r *Rose) Encode(w *bytecode.Writer) {
	w.U64(r.floatingMin)
	w.Int(r.anchoredRegion)
	w.Int(r.historyLen)
	w.Int(r.queueCapacity)
	w.Int(r.somHorizon)
	w.U64(r.initialGroups)
	w.Bool(r.allExhaustible)
	w.Int(r.numEkeys)
	w.Int(r.numDkeys)
	for _, g := range r.ekeyGroups {
		w.U64(g)
	}

	w.Int(len(r.reports))
	for _, rep := range r.reports {
		encodeReport(w, rep)
	}
	encodeLookTable(w, r.looks)
	w.Int(len(r.queues))
	for _, q := range r.queues {
		w.U8(uint8(q.kind))
		nfa.Encode(w, q.engine)
	}
	for _, t := range []*table{&r.floating, &r.anchored, &r.eod} {
		encodeTable(w, t)
	}
	w.Int(len(r.delayed))
	for _, p := range r.delayed {
		encodeProgram(w, p)
	}
	w.Int(len(r.roles))
	for _, role := range r.roles {
		w.U8(uint8(role))
	}
}

func encodeTable(w *bytecode.Writer, t *table) {
	w.Bool(t.matcher != nil)
	if t.matcher == nil {
		return
	}
	t.matcher.Encode(w)
	for _, p := range t.programs {
		encodeProgram(w, p)
	}
}

func encodeReport(w *bytecode.Writer, rep report.Report) {
	w.U8(uint8(rep.Type))
	w.U32(rep.Onmatch)
	w.U32(rep.Ekey)
	w.U32(rep.Dkey)
	w.U64(rep.MinOffset)
	w.U64(rep.MaxOffset)
	w.U64(rep.MinLength)
	w.Bool(rep.SOM)
	w.U32(rep.Queue)
	w.U32(rep.Top)
}

func decodeReport(r *bytecode.Reader) report.Report {
	return report.Report{
		Type:      report.Type(r.U8()),
		Onmatch:   r.U32(),
		Ekey:      r.U32(),
		Dkey:      r.U32(),
		MinOffset: r.U64(),
		MaxOffset: r.U64(),
		MinLength: r.U64(),
		SOM:       r.Bool(),
		Queue:     r.U32(),
		Top:       r.U32(),
	}
}

// Decode reads a runtime written by Encode.
func Decode(rd *bytecode.Reader) (*Rose, error) {
	r := &Rose{}
	r.floatingMin = rd.U64()
	r.anchoredRegion = rd.Int()
	r.historyLen = rd.Int()
	r.queueCapacity = rd.Int()
	r.somHorizon = rd.Int()
	r.initialGroups = rd.U64()
	r.allExhaustible = rd.Bool()
	r.numEkeys = rd.Count(1 << 24)
	r.numDkeys = rd.Count(1 << 24)
	if r.anchoredRegion > 64 || r.historyLen > 1<<16 || r.queueCapacity < 2 || r.queueCapacity > 1<<16 {
		rd.Fail("bad runtime parameters")
	}
	r.ekeyGroups = make([]uint64, r.numEkeys)
	for i := range r.ekeyGroups {
		r.ekeyGroups[i] = rd.U64()
	}

	r.reports = make([]report.Report, rd.Count(1<<24))
	for i := range r.reports {
		rep := decodeReport(rd)
		switch {
		case rep.Type == report.External && int(rep.Dkey) >= r.numDkeys:
			rd.Fail("report %d dkey %d out of range", i, rep.Dkey)
		case rep.Type == report.External && rep.Ekey != report.NoEkey && int(rep.Ekey) >= r.numEkeys:
			rd.Fail("report %d ekey %d out of range", i, rep.Ekey)
		case rep.Type != report.External && rep.Type != report.Chain:
			rd.Fail("report %d has type %d", i, rep.Type)
		}
		r.reports[i] = rep
	}
	r.looks = decodeLookTable(rd)

	nq := rd.Count(1 << 16)
	r.queues = make([]queueInfo, nq)
	for i := range r.queues {
		kind := QueueKind(rd.U8())
		if kind < QueueMPV || kind > QueueSuffix || (kind == QueueMPV && i != 0) {
			rd.Fail("queue %d has kind %d", i, kind)
		}
		if rd.Err() != nil {
			return nil, rd.Err()
		}
		e, err := nfa.Decode(rd)
		if err != nil {
			return nil, err
		}
		r.queues[i] = queueInfo{engine: e, kind: kind}
	}
	for i, q := range r.queues {
		if (q.kind == QueueMPV) != (q.engine.Kind() == nfa.KindMPV) {
			rd.Fail("queue %d kind does not match engine %s", i, q.engine.Kind())
		}
		for _, id := range nfa.ReportIDs(q.engine) {
			if int(id) >= len(r.reports) {
				rd.Fail("queue %d raises report %d out of range", i, id)
			}
		}
	}
	for i, rep := range r.reports {
		if rep.Type == report.Chain && (rep.Queue != 0 || !r.hasMPV()) {
			rd.Fail("chain report %d names queue %d", i, rep.Queue)
		}
	}

	lim := limits{reports: len(r.reports), ekeys: r.numEkeys, looks: len(r.looks), queues: nq}
	// The delayed programs follow the tables, so their count is only known
	// after the tables are read; PushDelayed operands are checked below.
	lim.delayed = 1 << 20
	for _, t := range []*table{&r.floating, &r.anchored, &r.eod} {
		if err := decodeTable(rd, t, lim); err != nil {
			return nil, err
		}
	}
	nd := rd.Count(1 << 20)
	r.delayed = make([]Program, nd)
	lim.delayed = 0
	for i := range r.delayed {
		r.delayed[i] = decodeProgram(rd, lim)
	}
	for _, t := range []*table{&r.floating, &r.anchored, &r.eod} {
		for _, p := range t.programs {
			for _, in := range p {
				if in.Op == OpPushDelayed && int(in.Index) >= nd {
					rd.Fail("delayed literal %d out of range", in.Index)
				}
			}
		}
	}
	r.roles = make([]Role, rd.Count(1<<24))
	for i := range r.roles {
		r.roles[i] = Role(rd.U8())
		if r.roles[i] > RoleOutfix {
			rd.Fail("role %d out of range", r.roles[i])
		}
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	r.finish()
	return r, nil
}

func decodeTable(rd *bytecode.Reader, t *table, lim limits) error {
	if !rd.Bool() {
		return rd.Err()
	}
	m, err := litmatch.Decode(rd)
	if err != nil {
		return err
	}
	for _, l := range m.Literals() {
		if int(l.ID) >= m.Len() {
			rd.Fail("literal id %d out of range", l.ID)
		}
	}
	t.matcher = m
	t.programs = make([]Program, m.Len())
	for i := range t.programs {
		t.programs[i] = decodeProgram(rd, lim)
	}
	return rd.Err()
}

// finish derives the runtime layouts shared by build and decode.
func (r *Rose) finish() {
	r.activeKeys = multibit.NewLayout(len(r.queues))
	r.ekeyLayout = multibit.NewLayout(r.numEkeys)
	r.lay = r.computeLayout()
	for _, q := range r.queues {
		r.maxStateLen = max(r.maxStateLen, q.engine.StateSize())
	}
}
