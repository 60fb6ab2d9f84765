package rose

import (
	"container/heap"

	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// catchEntry is an engine waiting to report at loc.
type catchEntry struct {
	loc   int
	queue int
}

// catchHeap orders pending engine matches by location, then queue.
type catchHeap []catchEntry

func (h catchHeap) Len() int { return len(h) }
func (h catchHeap) Less(i, j int) bool {
	if h[i].loc != h[j].loc {
		return h[i].loc < h[j].loc
	}
	return h[i].queue < h[j].queue
}
func (h catchHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *catchHeap) Push(x any)   { *h = append(*h, x.(catchEntry)) }
func (h *catchHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

// catchUpTo runs every active engine up to end, delivering their matches
// in offset order. The chained repeat engine is brought up to each
// location before any other engine reports there.
func (sc *scan) catchUpTo(end uint64) {
	r := sc.r
	if len(r.queues) == 0 {
		return
	}
	loc := int(end - sc.base)
	h := &sc.s.heap
	*h = (*h)[:0]
	for i := sc.active.Iterate(-1); i >= 0; i = sc.active.Iterate(i) {
		if r.queues[i].kind == QueueMPV {
			continue
		}
		if l, st := r.queues[i].engine.QueueExecToMatch(sc.s.queues[i], loc); st == nfa.MatchPending {
			heap.Push(h, catchEntry{loc: l, queue: i})
		}
	}
	for h.Len() > 0 {
		e := heap.Pop(h).(catchEntry)
		sc.catchUpMPV(e.loc)
		if sc.stopped() {
			return
		}
		eng, q := r.queues[e.queue].engine, sc.s.queues[e.queue]
		if eng.ReportCurrent(q) == nfa.Stop || sc.stopped() {
			return
		}
		if l, st := eng.QueueExecToMatch(q, loc); st == nfa.MatchPending {
			heap.Push(h, catchEntry{loc: l, queue: e.queue})
		}
	}
	sc.catchUpMPV(loc)
	if sc.stopped() {
		return
	}
	for i := sc.active.Iterate(-1); i >= 0; i = sc.active.Iterate(i) {
		if qi := r.queues[i]; qi.kind != QueueOutfix && !qi.engine.Active(sc.s.queues[i]) {
			sc.active.Unset(i)
		}
	}
}

// catchUpMPV delivers the chained repeat matches up to loc.
func (sc *scan) catchUpMPV(loc int) {
	if !sc.r.hasMPV() || !sc.active.IsSet(0) {
		return
	}
	eng, q := sc.r.queues[0].engine, sc.s.queues[0]
	for {
		if _, st := eng.QueueExecToMatch(q, loc); st == nfa.MatchNone {
			return
		}
		if eng.ReportCurrent(q) == nfa.Stop || sc.stopped() {
			return
		}
	}
}

// engineReport is the report callback of every queue.
func (sc *scan) engineReport(start, end uint64, id report.ID) nfa.Status {
	rep := &sc.r.reports[id]
	if rep.Type == report.Chain {
		sc.pushChain(rep, end)
	} else {
		sc.deliver(id, start, end)
	}
	if sc.stopped() {
		return nfa.Stop
	}
	return nfa.Continue
}

// pushChain starts a chained repeat at end. A full queue is drained
// first; the chained engine is already caught up to end.
func (sc *scan) pushChain(rep *report.Report, end uint64) {
	q := sc.s.queues[rep.Queue]
	loc := int(end - q.Offset)
	sc.active.Set(int(rep.Queue))
	if q.Full() {
		sc.catchUpMPV(loc)
		if sc.stopped() {
			return
		}
	}
	q.PushTop(rep.Top, loc, end)
}

// trigger pushes a top into a suffix queue, activating it.
func (sc *scan) trigger(queue, top uint32, end uint64) {
	q := sc.s.queues[queue]
	sc.active.Set(int(queue))
	if q.Full() {
		sc.catchUpTo(end)
		if sc.stopped() {
			return
		}
		// The catch-up may have retired the queue along with its events.
		sc.active.Set(int(queue))
	}
	q.PushTop(top, int(end-sc.base), end)
}
