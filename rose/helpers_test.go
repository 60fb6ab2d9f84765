package rose

import (
	"fmt"
	"regexp"
	"slices"
	"testing"

	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/litmatch"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

type hit struct {
	id       uint32
	from, to uint64
}

func (h hit) String() string { return fmt.Sprintf("(%d,%d,%d)", h.id, h.from, h.to) }

// pat is one test pattern. The pattern id is its index.
type pat struct {
	expr   string
	som    bool
	single bool
}

func testOptions(streaming bool) BuildOptions {
	return BuildOptions{
		Config:    DefaultConfig(),
		NFA:       nfa.DefaultConfig(),
		Literal:   litmatch.DefaultConfig(),
		Streaming: streaming,
	}
}

func compile(t *testing.T, streaming bool, pats ...pat) *Rose {
	t.Helper()
	r, err := compileOpts(testOptions(streaming), pats...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func compileOpts(opts BuildOptions, pats ...pat) (*Rose, error) {
	rm := report.NewManager()
	comps := make([]Component, 0, len(pats))
	for i, p := range pats {
		rep := report.NewExternal(uint32(i))
		rep.SOM = p.som
		if p.single {
			rep.Ekey = rm.Ekey(uint32(i))
		}
		id := rm.Intern(rep)
		re, err := graph.Parse(p.expr, 0)
		if err != nil {
			return nil, err
		}
		h, err := graph.FromSyntax(re, id, 0)
		if err != nil {
			return nil, err
		}
		comps = append(comps, Component{Graph: h, Expression: i})
	}
	return Build(comps, rm, opts)
}

func newScratch(r *Rose) *Scratch {
	return NewScratch(r, make([]byte, r.ScratchSize()))
}

func collect(got *[]hit, stopAfter int) MatchFunc {
	return func(id uint32, from, to uint64) bool {
		*got = append(*got, hit{id, from, to})
		return stopAfter <= 0 || len(*got) < stopAfter
	}
}

func blockHits(r *Rose, data []byte) []hit {
	var got []hit
	newScratch(r).ScanBlock(data, collect(&got, 0))
	return got
}

// streamHits writes data in pieces split at cuts.
func streamHits(r *Rose, data []byte, cuts ...int) []hit {
	var got []hit
	s := newScratch(r)
	state := make([]byte, r.StreamStateSize())
	r.InitStream(state)
	prev := 0
	for _, c := range append(cuts, len(data)) {
		s.StreamWrite(state, data[prev:c], collect(&got, 0))
		prev = c
	}
	s.StreamClose(state, collect(&got, 0))
	return got
}

// oracle lists every (pattern, end) pair where some substring ending
// there matches, using regexp on each candidate substring.
func oracle(t *testing.T, data []byte, exprs ...string) []hit {
	t.Helper()
	var want []hit
	for id, expr := range exprs {
		re := regexp.MustCompile(`^(?:` + expr + `)$`)
		for end := 1; end <= len(data); end++ {
			for start := 0; start < end; start++ {
				if re.Match(data[start:end]) {
					want = append(want, hit{uint32(id), 0, uint64(end)})
					break
				}
			}
		}
	}
	return sortHits(want)
}

func sortHits(hs []hit) []hit {
	hs = slices.Clone(hs)
	slices.SortFunc(hs, func(a, b hit) int {
		if a.to != b.to {
			return int(a.to) - int(b.to)
		}
		return int(a.id) - int(b.id)
	})
	return hs
}

func ordered(hs []hit) bool {
	for i := 1; i < len(hs); i++ {
		if hs[i].to < hs[i-1].to {
			return false
		}
	}
	return true
}
