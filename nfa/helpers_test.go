package nfa

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"testing"

	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/report"
)

type match struct {
	start, end uint64
	rep        report.ID
}

func (m match) String() string { return fmt.Sprintf("{%d,%d,%d}", m.start, m.end, m.rep) }

func compileExpr(t *testing.T, expr string, flags graph.Flags, cfg Config, som bool) *LimEx {
	t.Helper()
	re, err := graph.Parse(expr, flags)
	if err != nil {
		t.Fatalf("Parse(%q): %v", expr, err)
	}
	h, err := graph.FromSyntax(re, 0, flags)
	if err != nil {
		t.Fatalf("FromSyntax(%q): %v", expr, err)
	}
	l, err := CompileLimEx(h, cfg, som)
	if err != nil {
		t.Fatalf("CompileLimEx(%q): %v", expr, err)
	}
	return l
}

func newTestQueue(e Engine, got *[]match) *Queue {
	q := NewQueue(16)
	q.State = make([]byte, e.StateSize())
	q.Report = func(start, end uint64, rep report.ID) Status {
		*got = append(*got, match{start, end, rep})
		return Continue
	}
	e.InitState(q)
	return q
}

// scanBlock runs e over data in one piece and checks end-of-data accepts.
func scanBlock(e Engine, data []byte) []match {
	var got []match
	q := newTestQueue(e, &got)
	q.Reset(data, 0, 0)
	q.PushEnd(len(data))
	e.QueueExec(q, len(data))
	e.CheckEOD(q)
	return got
}

// scanChunks runs e over data split at the given cut points, moving the
// state through its compressed stream form between chunks.
func scanChunks(e Engine, data []byte, cuts []int) []match {
	var got []match
	q := newTestQueue(e, &got)
	stream := make([]byte, e.StreamStateSize())
	e.Compress(stream, q, 0)
	prev := 0
	bounds := append(slices.Clone(cuts), len(data))
	for _, cut := range bounds {
		chunk := data[prev:cut]
		e.Expand(q, stream, uint64(prev))
		q.Reset(chunk, uint64(prev), 0)
		q.PushEnd(len(chunk))
		e.QueueExec(q, len(chunk))
		e.Compress(stream, q, uint64(cut))
		prev = cut
	}
	e.Expand(q, stream, uint64(len(data)))
	q.Reset(nil, uint64(len(data)), 0)
	e.CheckEOD(q)
	return got
}

// bruteForce returns, for each end offset, the match with the leftmost
// start of an unanchored expression.
func bruteForce(expr string, data []byte, som bool) []match {
	re := regexp.MustCompile(`^(?s:` + expr + `)$`)
	var out []match
	for e := 1; e <= len(data); e++ {
		for s := 0; s < e; s++ {
			if re.Match(data[s:e]) {
				m := match{end: uint64(e)}
				if som {
					m.start = uint64(s)
				}
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func randomInput(r *rand.Rand, alphabet string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.IntN(len(alphabet))]
	}
	return b
}

func sameMatches(t *testing.T, what string, got, want []match) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s:\n got %v\nwant %v", what, got, want)
	}
}
