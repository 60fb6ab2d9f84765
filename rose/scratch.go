package rose

import (
	"github.com/coregx/corescan/multibit"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// Scratch is the per-scan working memory of one Rose. It must not be
// used by two scans at once.
type Scratch struct {
	r      *Rose
	queues []*nfa.Queue

	anchLog    []byte
	anchRow    int
	dedupe     [2][]byte
	somPending []byte
	somStart   []uint64
	somRep     []report.ID
	block      []byte
	tmp        []byte

	heap catchHeap
	sc   scan
}

func (r *Rose) numAnchored() int {
	if r.anchored.matcher == nil {
		return 0
	}
	return r.anchored.matcher.Len()
}

func (r *Rose) maxExtent() int {
	n := 0
	for _, t := range []*table{&r.floating, &r.anchored, &r.eod} {
		if t.matcher != nil {
			n = max(n, t.matcher.MaxExtent())
		}
	}
	return n
}

// ScratchSize returns the arena size NewScratch needs.
func (r *Rose) ScratchSize() int {
	n := r.anchoredRegion * multibit.FatbitSize(r.numAnchored())
	n += 3 * multibit.FatbitSize(r.numDkeys)
	n += align8(r.lay.size)
	for _, q := range r.queues {
		n += align8(q.engine.StateSize())
	}
	n += align8(2 * r.maxExtent())
	return n
}

// NewScratch carves a scratch for r out of mem, which must hold at least
// r.ScratchSize() bytes.
func NewScratch(r *Rose, mem []byte) *Scratch {
	if len(mem) < r.ScratchSize() {
		panic("rose: scratch arena too small")
	}
	s := &Scratch{r: r}
	take := func(n int) []byte {
		b := mem[:n:n]
		mem = mem[align8(n):]
		return b
	}
	s.anchRow = multibit.FatbitSize(r.numAnchored())
	s.anchLog = take(r.anchoredRegion * s.anchRow)
	row := multibit.FatbitSize(r.numDkeys)
	s.dedupe[0] = take(row)
	s.dedupe[1] = take(row)
	s.somPending = take(row)
	s.block = take(r.lay.size)
	s.queues = make([]*nfa.Queue, len(r.queues))
	for i, q := range r.queues {
		s.queues[i] = nfa.NewQueue(r.queueCapacity)
		s.queues[i].State = take(q.engine.StateSize())
	}
	s.tmp = take(2 * r.maxExtent())[:0]
	s.somStart = make([]uint64, r.numDkeys)
	s.somRep = make([]report.ID, r.numDkeys)
	s.heap = make(catchHeap, 0, len(r.queues))
	s.bind()
	return s
}

// Rose returns the runtime the scratch was sized for.
func (s *Scratch) Rose() *Rose { return s.r }
