package rose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/literal"
	"github.com/coregx/corescan/litmatch"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// sharedGroup is the literal group of every pattern that cannot be
// squashed on its own.
const sharedGroup = uint64(1) << 63

// Component is one reduced component of a pattern.
type Component struct {
	Graph *graph.Holder

	// Expression is the index of the pattern the component came from.
	Expression int

	// Literal marks a component built from a pure literal. It must get a
	// literal role; if it cannot, the build fails.
	Literal bool
}

// BuildOptions collects the settings Build needs.
type BuildOptions struct {
	Config  Config
	NFA     nfa.Config
	Literal litmatch.Config

	// Streaming is set for databases whose scans resume across writes,
	// which need history.
	Streaming bool

	// Logger receives role and table decisions at Debug level. Nil
	// discards them.
	Logger *slog.Logger
}

type litEntry struct {
	lit  literal.Literal
	prog Program
}

type builder struct {
	opts BuildOptions
	rm   *report.Manager
	log  *slog.Logger

	floating, anchored, eod []litEntry

	delayed   []Program
	looks     [][]nfa.LookEntry
	puffettes []nfa.Repeat
	engines   []queueInfo
	roles     []Role
	history   int
}

// Build assigns every component a role and assembles the runtime.
func Build(comps []Component, rm *report.Manager, opts BuildOptions) (*Rose, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := opts.NFA.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Literal.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	b := &builder{opts: opts, rm: rm, log: opts.Logger}
	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for i, c := range comps {
		role, err := b.add(c)
		if err != nil {
			return nil, &BuildError{Expression: c.Expression, Err: err}
		}
		b.roles = append(b.roles, role)
		if b.log.Enabled(context.Background(), slog.LevelDebug) {
			b.log.Debug("component role",
				slog.Int("component", i),
				slog.Int("expression", c.Expression),
				slog.String("role", role.String()))
		}
	}
	return b.finish()
}

func (b *builder) add(c Component) (Role, error) {
	h := c.Graph
	reps := h.AllReports()
	if len(reps) == 0 {
		return 0, fmt.Errorf("%w: component has no reports", ErrInvalidConfig)
	}
	som := b.needSOM(reps)
	if ch, ok := asChain(h); ok {
		done, err := b.addLiteral(ch, c.Literal)
		if err != nil || done {
			return RoleLiteral, err
		}
	}
	if c.Literal {
		return 0, fmt.Errorf("%w: literal cannot be matched by a literal table", ErrPatternTooLarge)
	}
	if !som {
		if done, err := b.addSuffix(h, reps); err != nil || done {
			return RoleSuffix, err
		}
		if done, err := b.addChain(h); err != nil || done {
			return RoleChain, err
		}
	}
	e, err := nfa.CompileLimEx(h, b.opts.NFA, som)
	if err != nil {
		return 0, err
	}
	b.engines = append(b.engines, queueInfo{engine: e, kind: QueueOutfix})
	return RoleOutfix, nil
}

func (b *builder) needSOM(reps report.Set) bool {
	for _, id := range reps {
		r := b.rm.Get(id)
		if r.SOM || r.MinLength > 0 {
			return true
		}
	}
	return false
}

// groups returns the literal groups of a component's reports and the
// subset that may be squashed once they are exhausted.
func (b *builder) groups(reps report.Set) (groups, squash uint64) {
	for _, id := range reps {
		r := b.rm.Get(id)
		if r.Ekey != report.NoEkey && r.Ekey < 63 {
			groups |= 1 << r.Ekey
			squash |= 1 << r.Ekey
			continue
		}
		groups |= sharedGroup
	}
	if groups&sharedGroup != 0 {
		// A squash must not disable literals another report still needs.
		squash = 0
	}
	return groups, squash
}

// guard returns the checks that open every literal program.
func (b *builder) guard(reps report.Set, groups, squash uint64) Program {
	var p Program
	if squash != 0 {
		p = append(p, Instr{Op: OpCheckGroups, Groups: groups})
	}
	for _, id := range reps {
		if r := b.rm.Get(id); r.Ekey != report.NoEkey {
			p = append(p, Instr{Op: OpCheckExhausted, Ekey: r.Ekey})
		}
	}
	return p
}

func (b *builder) addLook(look []nfa.LookEntry) uint32 {
	for i, l := range b.looks {
		if slices.Equal(l, look) {
			return uint32(i)
		}
	}
	b.looks = append(b.looks, look)
	return uint32(len(b.looks) - 1)
}

func lookbehind(look []nfa.LookEntry) int {
	n := 0
	for _, le := range look {
		n = max(n, -int(le.Offset))
	}
	return n
}

// fits checks a history requirement. Block databases keep no history.
func (b *builder) fits(need int) bool {
	return !b.opts.Streaming || need <= b.opts.Config.MaxHistory
}

func (b *builder) noteHistory(need int) {
	if b.opts.Streaming {
		b.history = max(b.history, need)
	}
}

func (b *builder) addLiteral(c chain, pure bool) (bool, error) {
	cfg := b.opts.Config
	n := len(c.reach)
	target := &b.floating
	anchoredTable := c.anchored && n <= cfg.AnchoredRegion
	var i, j int
	switch {
	case c.eod:
		target = &b.eod
		i, j = literalRun(c.reach, true)
	case anchoredTable:
		i, j = literalRun(c.reach, true)
		if i < j {
			target = &b.anchored
			break
		}
		i, j = literalRun(c.reach, false)
	default:
		i, j = literalRun(c.reach, false)
	}
	if i == j {
		return false, nil
	}
	d := n - j
	if d > cfg.MaxDelay {
		return false, nil
	}
	groups, squash := b.groups(c.reports)
	id := uint32(len(*target))
	lit, look, err := literalParts(c.reach, i, j, id, groups)
	if err != nil {
		return false, err
	}
	for k := range look {
		look[k].Offset -= int8(d)
	}
	look = append(look, lookaround(c.reach, i, j, n)...)

	need := max(lit.Extent()-1, lookbehind(look), d)
	if c.eod {
		need = max(need, n)
	}
	if !b.fits(need) {
		if pure {
			return false, fmt.Errorf("%w: literal of %d bytes needs more than %d bytes of history", ErrPatternTooLarge, n, cfg.MaxHistory)
		}
		return false, nil
	}
	b.noteHistory(need)

	som := b.needSOM(c.reports)
	head := b.guard(c.reports, groups, squash)
	body := slices.Clone(head)
	if c.anchored {
		body = append(body, Instr{Op: OpCheckBounds, Min: uint64(n), Max: uint64(n)})
	}
	if c.eod {
		body = append(body, Instr{Op: OpCheckOnlyEOD})
	}
	if len(look) > 0 {
		body = append(body, Instr{Op: OpCheckLookaround, Look: b.addLook(look)})
	}
	body = append(body, Instr{Op: OpCatchUp})
	for _, id := range c.reports {
		if som {
			body = append(body, Instr{Op: OpReportSOM, Report: id, Width: uint32(n)})
		} else {
			body = append(body, Instr{Op: OpReport, Report: id})
		}
	}
	for _, id := range c.reports {
		if r := b.rm.Get(id); r.Ekey != report.NoEkey {
			body = append(body, Instr{Op: OpSetExhaust, Ekey: r.Ekey})
		}
	}
	if squash != 0 {
		body = append(body, Instr{Op: OpSquashGroups, Groups: squash})
	}
	body = append(body, Instr{Op: OpEnd})

	prog := body
	if d > 0 {
		b.delayed = append(b.delayed, body)
		prog = append(head, Instr{Op: OpPushDelayed, Delay: uint8(d), Index: uint32(len(b.delayed) - 1)}, Instr{Op: OpEnd})
	}
	*target = append(*target, litEntry{lit: lit, prog: prog})
	return true, nil
}

func (b *builder) addSuffix(h *graph.Holder, reps report.Set) (bool, error) {
	reach, prefix, rest, ok := literalPrefix(h)
	if !ok {
		return false, nil
	}
	i, j := literalRun(reach, true)
	if i == j {
		return false, nil
	}
	groups, squash := b.groups(reps)
	id := uint32(len(b.floating))
	lit, look, err := literalParts(reach, i, j, id, groups)
	if err != nil {
		return false, err
	}
	look = append(look, lookaround(reach, i, j, len(reach))...)
	need := max(lit.Extent()-1, lookbehind(look))
	if !b.fits(need) {
		return false, nil
	}

	sg := suffixGraph(h, prefix[len(prefix)-1], rest)
	var e nfa.Engine
	if lbr, err := nfa.CompileLBR(sg); err == nil {
		e = lbr
	} else {
		e, err = nfa.CompileLimEx(sg, b.opts.NFA, false)
		if err != nil {
			return false, err
		}
	}
	b.noteHistory(need)
	queue := uint32(len(b.engines))
	b.engines = append(b.engines, queueInfo{engine: e, kind: QueueSuffix})

	prog := b.guard(reps, groups, squash)
	if len(look) > 0 {
		prog = append(prog, Instr{Op: OpCheckLookaround, Look: b.addLook(look)})
	}
	prog = append(prog, Instr{Op: OpTriggerSuffix, Queue: queue, Top: 0}, Instr{Op: OpEnd})
	b.floating = append(b.floating, litEntry{lit: lit, prog: prog})
	return true, nil
}

func (b *builder) addChain(h *graph.Holder) (bool, error) {
	rt, ok := asRepeatTail(h)
	if !ok || rt.min < uint32(b.opts.Config.ChainThreshold) {
		return false, nil
	}
	var keep []graph.VertexID
	for _, v := range h.Vertices() {
		if !graph.IsSpecial(v) && !rt.tail[v] {
			keep = append(keep, v)
		}
	}
	pg, vmap := h.FillHolder(keep)
	puff := uint32(len(b.puffettes))
	chainRep := b.rm.Intern(report.NewChain(puff, puff))
	for _, u := range rt.entering {
		pu := vmap[u]
		pg.AddEdge(pu, graph.Accept)
		pg.Props(pu).Reports = report.Set{chainRep}
	}
	e, err := nfa.CompileLimEx(pg, b.opts.NFA, false)
	if err != nil {
		return false, err
	}
	b.puffettes = append(b.puffettes, nfa.Repeat{Reach: rt.reach, Min: rt.min, Max: rt.max, Report: rt.report})
	b.engines = append(b.engines, queueInfo{engine: e, kind: QueueOutfix})
	return true, nil
}

func (b *builder) buildTable(name string, ents []litEntry) (table, error) {
	if len(ents) == 0 {
		return table{}, nil
	}
	lits := make([]literal.Literal, len(ents))
	progs := make([]Program, len(ents))
	for i, e := range ents {
		lits[i], progs[i] = e.lit, e.prog
	}
	m, err := litmatch.Build(lits, b.opts.Literal)
	if err != nil {
		return table{}, err
	}
	b.log.Debug("literal table",
		slog.String("table", name),
		slog.Int("literals", m.Len()),
		slog.String("engine", m.Engine().String()))
	return table{matcher: m, programs: progs}, nil
}

func (b *builder) finish() (*Rose, error) {
	cfg := b.opts.Config
	r := &Rose{
		delayed:        b.delayed,
		looks:          b.looks,
		anchoredRegion: cfg.AnchoredRegion,
		historyLen:     min(b.history, cfg.MaxHistory),
		queueCapacity:  cfg.QueueCapacity,
		somHorizon:     b.opts.NFA.SomHorizon,
		roles:          b.roles,
		initialGroups:  ^uint64(0),
		floatingMin:    math.MaxUint64,
	}
	if len(b.puffettes) > 0 {
		mpv, err := nfa.NewMPV(b.puffettes)
		if err != nil {
			return nil, err
		}
		r.queues = append(r.queues, queueInfo{engine: mpv, kind: QueueMPV})
		for k := range b.floating {
			for x := range b.floating[k].prog {
				if in := &b.floating[k].prog[x]; in.Op == OpTriggerSuffix {
					in.Queue++
				}
			}
		}
	}
	r.queues = append(r.queues, b.engines...)

	var err error
	if r.floating, err = b.buildTable("floating", b.floating); err != nil {
		return nil, err
	}
	if r.anchored, err = b.buildTable("anchored", b.anchored); err != nil {
		return nil, err
	}
	if r.eod, err = b.buildTable("eod", b.eod); err != nil {
		return nil, err
	}
	for _, e := range b.floating {
		r.floatingMin = min(r.floatingMin, uint64(e.lit.Len()))
	}

	r.reports = slices.Clone(b.rm.Reports())
	r.numEkeys = b.rm.NumEkeys()
	r.numDkeys = b.rm.NumDkeys()
	r.allExhaustible = b.rm.AllExhaustible()
	r.ekeyGroups = make([]uint64, r.numEkeys)
	for k := range r.ekeyGroups {
		if k < 63 {
			r.ekeyGroups[k] = 1 << k
		}
	}
	r.finish()
	b.log.Debug("rose runtime",
		slog.Int("queues", len(r.queues)),
		slog.Int("delayed", len(r.delayed)),
		slog.Int("history", r.historyLen),
		slog.Int("stream_state", r.lay.size))
	return r, nil
}
