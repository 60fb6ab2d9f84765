package corescan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
	"github.com/coregx/corescan/rose"
)

// Version of the database format written by this package.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

var formatVersion = bytecode.MakeVersion(VersionMajor, VersionMinor, VersionPatch)

// Compile builds a database from patterns for the given mode.
//
// Errors are *CompileError values naming the failing pattern.
func Compile(patterns []Pattern, mode Mode, opts ...Option) (*Database, error) {
	c, err := newCompiler(len(patterns), mode, opts)
	if err != nil {
		return nil, err
	}
	for i, p := range patterns {
		if err := c.addPattern(i, p); err != nil {
			return nil, err
		}
	}
	return c.build()
}

// CompileLiterals builds a database of pure literals. No regex syntax is
// interpreted, so the data may hold any bytes. DotAll is meaningless for
// literals and is ignored.
func CompileLiterals(lits []Literal, mode Mode, opts ...Option) (*Database, error) {
	c, err := newCompiler(len(lits), mode, opts)
	if err != nil {
		return nil, err
	}
	for i, l := range lits {
		if err := c.addLiteral(i, l); err != nil {
			return nil, err
		}
	}
	return c.build()
}

type compiler struct {
	mode     Mode
	opts     options
	cfg      Config
	platform Platform
	log      *slog.Logger
	rm       *report.Manager
	comps    []rose.Component
}

func newCompiler(n int, mode Mode, opts []Option) (*compiler, error) {
	o := newOptions(opts)
	if n == 0 {
		return nil, compileErr(-1, ErrInvalidParam, "no patterns")
	}
	if err := mode.validate(); err != nil {
		return nil, compileErr(-1, ErrInvalidParam, "%v", err)
	}
	c := &compiler{mode: mode, opts: o, cfg: DefaultConfig(), log: o.logger, rm: report.NewManager()}
	if o.config != nil {
		c.cfg = *o.config
	}
	c.platform = PopulatePlatform()
	if o.platform != nil {
		c.platform = *o.platform
	}
	if err := c.platform.Validate(); err != nil {
		return nil, compileErr(-1, ErrInvalidParam, "platform: %v", err)
	}
	c.cfg.Literal.VectorWidth = c.platform.VectorWidth
	c.cfg.NFA.SomHorizon = mode.somHorizon()
	if err := c.cfg.Validate(); err != nil {
		return nil, compileErr(-1, ErrInvalidParam, "%v", err)
	}
	return c, nil
}

// newReport checks the flags and extended parameters of pattern i and
// interns its report.
func (c *compiler) newReport(i int, id uint32, flags Flag, ext *ExtParams) (report.ID, error) {
	if flags&^flagMask != 0 {
		return 0, compileErr(i, ErrInvalidFlags, "unknown flags %#x", uint32(flags&^flagMask))
	}
	if flags&SingleMatch != 0 && flags&SomLeftMost != 0 {
		return 0, compileErr(i, ErrInvalidFlags, "SingleMatch and SomLeftMost cannot be combined")
	}
	rep := report.NewExternal(id)
	if flags&SomLeftMost != 0 {
		if c.mode.scan() == ModeStream && c.mode&horizonModes == 0 {
			return 0, compileErr(i, ErrInvalidParam, "SomLeftMost in stream mode needs a SOM horizon")
		}
		rep.SOM = true
	}
	if flags&SingleMatch != 0 {
		rep.Ekey = c.rm.Ekey(id)
	}
	if ext != nil {
		if ext.MaxOffset != 0 && ext.MinOffset > ext.MaxOffset {
			return 0, compileErr(i, ErrInvalidParam, "min offset %d exceeds max offset %d", ext.MinOffset, ext.MaxOffset)
		}
		if ext.MaxOffset != 0 && ext.MinLength > ext.MaxOffset {
			return 0, compileErr(i, ErrInvalidParam, "min length %d exceeds max offset %d", ext.MinLength, ext.MaxOffset)
		}
		if ext.MinLength > 0 && c.mode.scan() == ModeStream && c.mode&horizonModes == 0 {
			return 0, compileErr(i, ErrInvalidParam, "min length in stream mode needs a SOM horizon")
		}
		rep.MinOffset = ext.MinOffset
		if ext.MaxOffset != 0 {
			rep.MaxOffset = ext.MaxOffset
		}
		rep.MinLength = ext.MinLength
	}
	return c.rm.Intern(rep), nil
}

func (c *compiler) addPattern(i int, p Pattern) error {
	rep, err := c.newReport(i, p.ID, p.Flags, p.Ext)
	if err != nil {
		return err
	}
	var gf graph.Flags
	if p.Flags&Caseless != 0 {
		gf |= graph.Caseless
	}
	if p.Flags&DotAll != 0 {
		gf |= graph.DotAll
	}
	re, err := graph.Parse(p.Expression, gf)
	if err != nil {
		return compileErr(i, ErrUnsupported, "%v", err)
	}
	h, err := graph.FromSyntax(re, rep, gf)
	if err != nil {
		return graphErr(i, err)
	}
	return c.addGraph(i, h, rep, false)
}

func (c *compiler) addLiteral(i int, l Literal) error {
	if len(l.Data) == 0 {
		return compileErr(i, ErrEmptyMatch, "empty literal")
	}
	if len(l.Data) > graph.MaxVertices {
		return compileErr(i, ErrPatternTooLarge, "literal of %d bytes", len(l.Data))
	}
	rep, err := c.newReport(i, l.ID, l.Flags&^DotAll, l.Ext)
	if err != nil {
		return err
	}
	h := graph.New()
	prev := graph.StartDs
	for _, b := range l.Data {
		cr := charclass.Of(b)
		if l.Flags&Caseless != 0 {
			cr.AddCaseless()
		}
		v := h.AddVertex(graph.VertexProps{Reach: cr})
		h.AddEdge(prev, v)
		prev = v
	}
	h.AddEdge(prev, graph.Accept)
	h.Props(prev).Reports = report.Set{rep}
	return c.addGraph(i, h, rep, len(l.Data) <= rose.MaxLiteralLen)
}

func graphErr(i int, err error) error {
	switch {
	case errors.Is(err, graph.ErrEmptyMatch):
		return compileErr(i, ErrEmptyMatch, "pattern matches empty buffer")
	case errors.Is(err, graph.ErrPatternTooLarge):
		return compileErr(i, ErrPatternTooLarge, "%v", err)
	case errors.Is(err, graph.ErrNeverMatches):
		return compileErr(i, ErrUnsupported, "pattern can never match")
	}
	return compileErr(i, ErrUnsupported, "%v", err)
}

func (c *compiler) addGraph(i int, h *graph.Holder, rep report.ID, literal bool) error {
	r := c.rm.Get(rep)
	graph.ReduceGraph(h, c.rm, graph.ReduceOptions{
		Logger:     c.log,
		Highlander: r.IsSimpleExhaustible() && !r.HasBounds() && !r.SOM,
	})
	if h.IsVacuous() {
		return compileErr(i, ErrEmptyMatch, "pattern matches empty buffer")
	}
	if r.HasBounds() && !satisfiable(h, r) {
		return compileErr(i, ErrUnsupported, "pattern can never match within its extended parameters")
	}
	parts := []*graph.Holder{h}
	if !literal {
		parts = graph.CalcComponents(h, c.cfg.Components)
	}
	for _, g := range parts {
		c.comps = append(c.comps, rose.Component{Graph: g, Expression: i, Literal: literal})
	}
	c.log.Debug("pattern components",
		slog.Int("expression", i),
		slog.Int("vertices", h.NumVertices()),
		slog.Int("components", len(parts)))
	return nil
}

// satisfiable reports whether some match of h can fit the offset and
// length bounds of r.
func satisfiable(h *graph.Holder, r report.Report) bool {
	maxw := graph.FindMaxWidth(h, graph.NoTop)
	if r.MinLength > 0 && maxw.IsFinite() && uint64(maxw) < r.MinLength {
		return false
	}
	minw := graph.FindMinWidth(h, graph.NoTop)
	return r.MaxOffset == report.Unbounded || !minw.IsFinite() || uint64(minw) <= r.MaxOffset
}

func (c *compiler) build() (*Database, error) {
	rt, err := rose.Build(c.comps, c.rm, rose.BuildOptions{
		Config:    c.cfg.Rose,
		NFA:       c.cfg.NFA,
		Literal:   c.cfg.Literal,
		Streaming: c.mode.scan() != ModeBlock,
		Logger:    c.log,
	})
	if err != nil {
		return nil, buildErr(err)
	}

	w := bytecode.NewWriter(4096)
	encodeBody(w, rt)
	body := w.Bytes()
	hdr := bytecode.Header{
		Magic:    bytecode.Magic,
		Version:  formatVersion,
		Length:   uint64(bytecode.HeaderSize + len(body)),
		Mode:     uint32(c.mode),
		Platform: uint64(c.platform.required()),
		Checksum: bytecode.Checksum(body),
		Offset:   bytecode.HeaderSize,
		Size:     uint64(len(body)),
	}
	if c.log.Enabled(context.Background(), slog.LevelDebug) {
		c.log.Debug("database built",
			slog.String("mode", c.mode.String()),
			slog.Int("bytecode", len(body)),
			slog.Int("stream_state", rt.StreamStateSize()),
			slog.Int("scratch", rt.ScratchSize()))
	}

	ac := c.opts.allocator()
	blob, err := ac.Database.Get(int(hdr.Length))
	if err != nil {
		return nil, err
	}
	hdr.Append(blob[:0])
	copy(blob[bytecode.HeaderSize:], body)
	return newDatabase(blob, hdr, rt, ac, c.opts)
}

// buildErr maps a runtime build failure onto the compile error kinds.
// Literal table and engine failures are ErrEngine.
func buildErr(err error) error {
	expr := -1
	var be *rose.BuildError
	if errors.As(err, &be) {
		expr = be.Expression
	}
	switch {
	case errors.Is(err, rose.ErrPatternTooLarge), errors.Is(err, nfa.ErrPatternTooLarge):
		return compileErr(expr, ErrPatternTooLarge, "%v", unwrapBuild(err))
	case errors.Is(err, rose.ErrInvalidConfig), errors.Is(err, nfa.ErrInvalidConfig):
		return compileErr(expr, ErrInvalidParam, "%v", unwrapBuild(err))
	}
	return compileErr(expr, ErrEngine, "%v", unwrapBuild(err))
}

func unwrapBuild(err error) error {
	var be *rose.BuildError
	if errors.As(err, &be) {
		return be.Err
	}
	return err
}

// Bytecode sections.
const (
	sectionRose uint32 = 1
)

// encodeBody writes the section table and the sections.
func encodeBody(w *bytecode.Writer, rt *rose.Rose) {
	w.U32(1)
	w.U32(sectionRose)
	at := w.Reserve32()
	w.Pad(bytecode.Align)
	start := w.Len()
	rt.Encode(w)
	w.Patch32(at, uint32(w.Len()-start))
	w.Pad(bytecode.Align)
}

func decodeBody(body []byte) (*rose.Rose, error) {
	rd := bytecode.NewReader(body)
	n := rd.Count(16)
	var rt *rose.Rose
	for range n {
		kind, size := rd.U32(), rd.Int()
		rd.Pad(bytecode.Align)
		if err := rd.Err(); err != nil {
			return nil, err
		}
		sec := rd.Raw(size)
		if sec == nil && size > 0 {
			return nil, rd.Err()
		}
		switch kind {
		case sectionRose:
			srd := bytecode.NewReader(sec)
			var err error
			if rt, err = rose.Decode(srd); err != nil {
				return nil, err
			}
			if srd.Remaining() != 0 {
				return nil, fmt.Errorf("%w: %d trailing bytes in rose section", bytecode.ErrCorrupt, srd.Remaining())
			}
		default:
			return nil, fmt.Errorf("%w: unknown section %d", bytecode.ErrCorrupt, kind)
		}
		rd.Pad(bytecode.Align)
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, fmt.Errorf("%w: no rose section", bytecode.ErrCorrupt)
	}
	return rt, nil
}
