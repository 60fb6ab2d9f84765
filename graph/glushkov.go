package graph

import (
	"regexp/syntax"
	"slices"
	"unicode"

	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/report"
)

// MaxVertices bounds the positions of a single pattern graph.
const MaxVertices = 4096

// Flags modify how a pattern is read.
type Flags uint8

const (
	// Caseless matches letters in either case.
	Caseless Flags = 1 << iota

	// DotAll lets '.' match a newline.
	DotAll
)

// Parse parses expr with the flags applied. Anchors always refer to the
// whole buffer: '^' is the beginning and '$' the end of data.
func Parse(expr string, flags Flags) (*syntax.Regexp, error) {
	sf := syntax.Perl
	if flags&Caseless != 0 {
		sf |= syntax.FoldCase
	}
	if flags&DotAll != 0 {
		sf |= syntax.DotNL
	}
	re, err := syntax.Parse(expr, sf)
	if err != nil {
		return nil, err
	}
	return re.Simplify(), nil
}

// elemKind tells real positions from the zero-width anchor markers,
// which take part in the construction but never become vertices.
type elemKind uint8

const (
	elemReal elemKind = iota
	elemBegin
	elemEnd
)

// frag is the Glushkov summary of a subexpression.
type frag struct {
	first    []int
	last     []int
	nullable bool
}

type glushkov struct {
	kind   []elemKind
	reach  []charclass.Set
	follow map[int][]int
	nreal  int
}

func (b *glushkov) element(k elemKind, cr charclass.Set) (frag, error) {
	if k == elemReal {
		if b.nreal >= MaxVertices {
			return frag{}, ErrPatternTooLarge
		}
		b.nreal++
	}
	p := len(b.kind)
	b.kind = append(b.kind, k)
	b.reach = append(b.reach, cr)
	return frag{first: []int{p}, last: []int{p}}, nil
}

func (b *glushkov) position(cr charclass.Set) (frag, error) {
	return b.element(elemReal, cr)
}

func (b *glushkov) link(from, to []int) {
	for _, f := range from {
		for _, t := range to {
			if !slices.Contains(b.follow[f], t) {
				b.follow[f] = append(b.follow[f], t)
			}
		}
	}
}

func union(a, b []int) []int {
	out := slices.Clone(a)
	for _, x := range b {
		if !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	return out
}

func unsupported(op string) error {
	return &SyntaxError{Op: op, Err: ErrUnsupported}
}

// FromSyntax builds the position graph of re. Every vertex that can end a
// match reports rep. Runes up to 0xFF stand for single bytes.
func FromSyntax(re *syntax.Regexp, rep report.ID, flags Flags) (*Holder, error) {
	b := &glushkov{follow: make(map[int][]int)}
	root, err := b.build(re, flags)
	if err != nil {
		return nil, err
	}
	if root.nullable {
		return nil, ErrEmptyMatch
	}

	h := New()
	verts := make([]VertexID, len(b.kind))
	for i, k := range b.kind {
		verts[i] = NoVertex
		if k == elemReal {
			verts[i] = h.AddVertex(VertexProps{Reach: b.reach[i]})
		}
	}

	// Markers collapse into the specials. A begin marker counts only when
	// reached from the pattern start through other begin markers, and an
	// end marker only when it leads to the pattern end through other end
	// markers. Anything else around a marker can never match.
	isLast := make(map[int]bool, len(root.last))
	for _, l := range root.last {
		isLast[l] = true
	}
	endDone := make(map[int]bool)
	var reachesEnd func(m int) bool
	reachesEnd = func(m int) bool {
		if isLast[m] {
			return true
		}
		if endDone[m] {
			return false
		}
		endDone[m] = true
		for _, q := range b.follow[m] {
			if b.kind[q] == elemEnd && reachesEnd(q) {
				return true
			}
		}
		return false
	}

	empty := false
	beginSeen := make(map[int]bool)
	var begins []int
	for _, f := range root.first {
		switch b.kind[f] {
		case elemReal:
			h.AddEdge(StartDs, verts[f])
		case elemBegin:
			if !beginSeen[f] {
				beginSeen[f] = true
				begins = append(begins, f)
			}
		case elemEnd:
			empty = empty || reachesEnd(f)
		}
	}
	for i := 0; i < len(begins); i++ {
		m := begins[i]
		empty = empty || isLast[m]
		for _, q := range b.follow[m] {
			switch b.kind[q] {
			case elemReal:
				h.AddEdge(Start, verts[q])
			case elemBegin:
				if !beginSeen[q] {
					beginSeen[q] = true
					begins = append(begins, q)
				}
			case elemEnd:
				empty = empty || reachesEnd(q)
			}
		}
	}
	if empty {
		return nil, ErrEmptyMatch
	}

	for p, k := range b.kind {
		if k != elemReal {
			continue
		}
		for _, q := range b.follow[p] {
			switch b.kind[q] {
			case elemReal:
				h.AddEdge(verts[p], verts[q])
			case elemEnd:
				if reachesEnd(q) {
					h.AddEdge(verts[p], AcceptEod)
				}
			}
		}
		if isLast[p] {
			h.AddEdge(verts[p], Accept)
		}
	}

	for _, v := range h.Vertices() {
		if h.IsMatchVertex(v) {
			h.Props(v).Reports = report.Set{rep}
		}
	}
	h.PruneUseless(true)
	if h.NumVertices() == NumSpecials {
		return nil, ErrNeverMatches
	}
	return h, nil
}

func (b *glushkov) build(re *syntax.Regexp, flags Flags) (frag, error) {
	switch re.Op {
	case syntax.OpNoMatch:
		return frag{}, nil
	case syntax.OpEmptyMatch:
		return frag{nullable: true}, nil
	case syntax.OpLiteral:
		return b.buildLiteral(re)
	case syntax.OpCharClass:
		return b.position(classReach(re.Rune))
	case syntax.OpAnyChar:
		return b.position(charclass.All())
	case syntax.OpAnyCharNotNL:
		cr := charclass.All()
		cr.Clear('\n')
		return b.position(cr)
	case syntax.OpBeginText:
		return b.element(elemBegin, charclass.Set{})
	case syntax.OpEndText:
		return b.element(elemEnd, charclass.Set{})
	case syntax.OpBeginLine, syntax.OpEndLine:
		return frag{}, unsupported("multi-line anchor")
	case syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return frag{}, unsupported("word boundary")
	case syntax.OpCapture:
		return b.build(re.Sub[0], flags)
	case syntax.OpConcat:
		return b.buildConcat(re.Sub, flags)
	case syntax.OpAlternate:
		out := frag{}
		for _, sub := range re.Sub {
			f, err := b.build(sub, flags)
			if err != nil {
				return frag{}, err
			}
			out.first = union(out.first, f.first)
			out.last = union(out.last, f.last)
			out.nullable = out.nullable || f.nullable
		}
		return out, nil
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		f, err := b.build(re.Sub[0], flags)
		if err != nil {
			return frag{}, err
		}
		if re.Op != syntax.OpQuest {
			b.link(f.last, f.first)
		}
		if re.Op != syntax.OpPlus {
			f.nullable = true
		}
		return f, nil
	case syntax.OpRepeat:
		return b.buildRepeat(re, flags)
	}
	return frag{}, unsupported(re.Op.String())
}

func (b *glushkov) buildConcat(subs []*syntax.Regexp, flags Flags) (frag, error) {
	out := frag{nullable: true}
	for _, sub := range subs {
		f, err := b.build(sub, flags)
		if err != nil {
			return frag{}, err
		}
		out = b.concat(out, f)
	}
	return out, nil
}

func (b *glushkov) concat(a, c frag) frag {
	b.link(a.last, c.first)
	out := frag{nullable: a.nullable && c.nullable}
	out.first = a.first
	if a.nullable {
		out.first = union(a.first, c.first)
	}
	out.last = c.last
	if c.nullable {
		out.last = union(c.last, a.last)
	}
	return out
}

// buildRepeat expands x{n,m} into n copies followed by m-n optional
// copies, or a trailing star when m is unbounded.
func (b *glushkov) buildRepeat(re *syntax.Regexp, flags Flags) (frag, error) {
	out := frag{nullable: true}
	for i := 0; i < re.Min; i++ {
		f, err := b.build(re.Sub[0], flags)
		if err != nil {
			return frag{}, err
		}
		out = b.concat(out, f)
	}
	if re.Max < 0 {
		f, err := b.build(re.Sub[0], flags)
		if err != nil {
			return frag{}, err
		}
		b.link(f.last, f.first)
		f.nullable = true
		return b.concat(out, f), nil
	}
	for i := re.Min; i < re.Max; i++ {
		f, err := b.build(re.Sub[0], flags)
		if err != nil {
			return frag{}, err
		}
		f.nullable = true
		out = b.concat(out, f)
	}
	return out, nil
}

func (b *glushkov) buildLiteral(re *syntax.Regexp) (frag, error) {
	out := frag{nullable: true}
	for _, r := range re.Rune {
		if r > 0xFF {
			return frag{}, unsupported("rune above 0xFF")
		}
		cr := charclass.Of(byte(r))
		if re.Flags&syntax.FoldCase != 0 {
			for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
				if f <= 0xFF {
					cr.Set(byte(f))
				}
			}
		}
		f, err := b.position(cr)
		if err != nil {
			return frag{}, err
		}
		out = b.concat(out, f)
	}
	return out, nil
}

// classReach clips rune ranges to the byte range.
func classReach(ranges []rune) charclass.Set {
	var cr charclass.Set
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if lo > 0xFF {
			continue
		}
		hi = min(hi, 0xFF)
		cr.SetRange(byte(lo), byte(hi))
	}
	return cr
}
