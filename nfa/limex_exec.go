package nfa

import (
	"cmp"
	"encoding/binary"
	"math"
	"math/bits"
	"slices"

	"github.com/coregx/corescan/report"
)

// Working state layout:
//
//	[S: nwords u64][pending tops: nwords u64][pending som u64][som: nstates u64]
//
// The som section is present only for engines that track start of match.

func (l *LimEx) pendingOff() int    { return l.nwords * 8 }
func (l *LimEx) pendingSomOff() int { return l.nwords * 16 }
func (l *LimEx) somOff() int        { return l.nwords*16 + 8 }

// StateSize implements Engine.
func (l *LimEx) StateSize() int {
	n := l.somOff()
	if l.som {
		n += l.nstates * 8
	}
	return n
}

// StreamStateSize implements Engine.
func (l *LimEx) StreamStateSize() int {
	n := l.nwords*16 + l.somWidth
	if l.som {
		n += l.nstates * l.somWidth
	}
	return n
}

// InitState implements Engine.
func (l *LimEx) InitState(q *Queue) {
	clear(q.State[:l.StateSize()])
}

func (l *LimEx) load(q *Queue) (cur, next, pend []uint64) {
	cur, next = q.wordBuffers(l.nwords * 2)
	pend = cur[l.nwords:]
	cur = cur[:l.nwords]
	next = next[:l.nwords]
	for i := range cur {
		cur[i] = binary.LittleEndian.Uint64(q.State[i*8:])
		pend[i] = binary.LittleEndian.Uint64(q.State[l.pendingOff()+i*8:])
	}
	return cur, next, pend
}

func (l *LimEx) store(q *Queue, cur, pend []uint64) {
	for i := range cur {
		binary.LittleEndian.PutUint64(q.State[i*8:], cur[i])
		binary.LittleEndian.PutUint64(q.State[l.pendingOff()+i*8:], pend[i])
	}
}

func (l *LimEx) somAt(q *Queue, i int) uint64 {
	return binary.LittleEndian.Uint64(q.State[l.somOff()+i*8:])
}

func (l *LimEx) setSom(q *Queue, i int, v uint64) {
	binary.LittleEndian.PutUint64(q.State[l.somOff()+i*8:], v)
}

func (l *LimEx) top(q *Queue, ev Event) {
	i, ok := slices.BinarySearch(l.topIDs, ev.Top)
	if !ok {
		return
	}
	nw := l.nwords
	m := l.topInit[i*nw : (i+1)*nw]
	off := l.pendingOff()
	wasPending := false
	for w := 0; w < nw; w++ {
		p := binary.LittleEndian.Uint64(q.State[off+w*8:])
		wasPending = wasPending || p != 0
		binary.LittleEndian.PutUint64(q.State[off+w*8:], p|m[w])
	}
	som := ev.Som
	if wasPending {
		som = minStart(som, binary.LittleEndian.Uint64(q.State[l.pendingSomOff():]))
	}
	binary.LittleEndian.PutUint64(q.State[l.pendingSomOff():], som)
}

// run consumes q.Buf[from:to], stopping after the first byte that leaves
// an accepting state on.
func (l *LimEx) run(q *Queue, from, to int) (int, bool) {
	cur, next, pend := l.load(q)
	var som, somNext []uint64
	if l.som {
		som, somNext = q.somBuffers(l.nstates)
		for i := range som {
			som[i] = l.somAt(q, i)
		}
	}
	pendSom := binary.LittleEndian.Uint64(q.State[l.pendingSomOff():])
	buf := q.Buf[:to]

	i := from
	matched := false
	for i < to {
		abs := q.Offset + uint64(i)
		if l.accel && abs != 0 {
			if j := l.skip(cur, pend, buf, i); j > i {
				i = j
				continue
			}
		}
		if l.som {
			l.stepSom(cur, next, pend, som, somNext, buf[i], abs, pendSom)
			som, somNext = somNext, som
		} else {
			l.step(cur, next, pend, buf[i], abs)
		}
		cur, next = next, cur
		clear(pend)
		i++
		if intersects(cur, l.accept) {
			matched = true
			break
		}
	}

	l.store(q, cur, pend)
	if l.som {
		for s := 0; s < l.nstates; s++ {
			l.setSom(q, s, som[s])
		}
	}
	return i, matched
}

// skip returns the position of the next byte that may change a state
// the accel schemes cover, or i when no scheme applies.
func (l *LimEx) skip(cur, pend []uint64, buf []byte, i int) int {
	if anyBit(pend) {
		return i
	}
	single := -1
	for w, x := range cur {
		if x == 0 {
			continue
		}
		if single >= 0 || x&(x-1) != 0 {
			return i
		}
		single = w*64 + bits.TrailingZeros64(x)
	}
	if single < 0 {
		return l.idleAccel.Scan(buf, i)
	}
	a := l.cyclicAccel[single]
	if a < 0 {
		return i
	}
	return l.accels[a].Scan(buf, i)
}

func (l *LimEx) step(cur, next, pend []uint64, c byte, abs uint64) {
	nw := l.nwords
	var carry uint64
	for w := 0; w < nw; w++ {
		s := cur[w]
		sh := s & l.shift[w]
		next[w] = sh<<1 | carry | s&l.loop[w] | l.floatInit[w] | pend[w]
		carry = sh >> 63
	}
	if abs == 0 {
		for w := 0; w < nw; w++ {
			next[w] |= l.anchInit[w]
		}
	}
	for w := 0; w < nw; w++ {
		x := cur[w] & l.exc[w]
		for x != 0 {
			u := w*64 + bits.TrailingZeros64(x)
			x &= x - 1
			for _, v := range l.extra[u] {
				next[v>>6] |= 1 << (v & 63)
			}
		}
	}
	r := l.reach[int(l.classes.Get(c))*nw:]
	for w := 0; w < nw; w++ {
		next[w] &= r[w]
	}
}

// stepSom is step with leftmost start propagation: every state entered
// takes the minimum start over the predecessors and entries that reach it.
func (l *LimEx) stepSom(cur, next, pend, som, somNext []uint64, c byte, abs, pendSom uint64) {
	nw := l.nwords
	clear(next)
	r := l.reach[int(l.classes.Get(c))*nw:]
	enter := func(v int, start uint64) {
		if !testBit(r, v) {
			return
		}
		if testBit(next, v) {
			somNext[v] = minStart(somNext[v], start)
			return
		}
		setBit(next, v)
		somNext[v] = start
	}
	forEachBit(cur, func(u int) {
		for _, v := range l.succs[u] {
			enter(int(v), som[u])
		}
	})
	forEachBit(l.floatInit, func(v int) { enter(v, abs) })
	forEachBit(pend, func(v int) { enter(v, pendSom) })
	if abs == 0 {
		forEachBit(l.anchInit, func(v int) { enter(v, 0) })
	}
}

func intersects(a, b []uint64) bool {
	for i := range a {
		if a[i]&b[i] != 0 {
			return true
		}
	}
	return false
}

func (l *LimEx) report(q *Queue) Status {
	return l.deliver(q, l.accept, l.reports)
}

func (l *LimEx) deliver(q *Queue, mask []uint64, reports [][]report.ID) Status {
	cur, _, _ := l.load(q)
	end := q.Offset + uint64(q.loc)
	q.pending = q.pending[:0]
	for w := range cur {
		x := cur[w] & mask[w]
		for x != 0 {
			u := w*64 + bits.TrailingZeros64(x)
			x &= x - 1
			var start uint64
			if l.som {
				start = l.somAt(q, u)
			}
			for _, rep := range reports[u] {
				q.pending = addPending(q.pending, rep, start)
			}
		}
	}
	slices.SortFunc(q.pending, func(a, b pendingReport) int { return cmp.Compare(a.rep, b.rep) })
	for _, p := range q.pending {
		if q.Report(p.start, end, p.rep) == Stop {
			return Stop
		}
	}
	return Continue
}

func addPending(ps []pendingReport, rep report.ID, start uint64) []pendingReport {
	for i := range ps {
		if ps[i].rep == rep {
			ps[i].start = minStart(ps[i].start, start)
			return ps
		}
	}
	return append(ps, pendingReport{rep: rep, start: start})
}

// QueueExec implements Engine.
func (l *LimEx) QueueExec(q *Queue, end int) Status { return exec(l, q, end) }

// QueueExecToMatch implements Engine.
func (l *LimEx) QueueExecToMatch(q *Queue, end int) (int, MatchStatus) {
	return execToMatch(l, q, end)
}

// ReportCurrent implements Engine.
func (l *LimEx) ReportCurrent(q *Queue) Status { return l.report(q) }

// CheckEOD implements Engine.
func (l *LimEx) CheckEOD(q *Queue) Status {
	return l.deliver(q, l.acceptEod, l.eodReports)
}

// Active implements Engine.
func (l *LimEx) Active(q *Queue) bool {
	return l.Floating() || anyBit64(q.State[:l.nwords*16])
}

func anyBit64(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return true
		}
	}
	return false
}

// Compress implements Engine. Start offsets are stored as distances back
// from ref in somWidth bytes; distances that do not fit saturate and
// expand to UnknownStart.
func (l *LimEx) Compress(dst []byte, q *Queue, ref uint64) {
	n := l.nwords * 16
	copy(dst, q.State[:n])
	putDist(dst[n:], l.somWidth, binary.LittleEndian.Uint64(q.State[l.pendingSomOff():]), ref)
	if !l.som {
		return
	}
	off := n + l.somWidth
	for i := 0; i < l.nstates; i++ {
		putDist(dst[off+i*l.somWidth:], l.somWidth, l.somAt(q, i), ref)
	}
}

// Expand implements Engine.
func (l *LimEx) Expand(q *Queue, src []byte, ref uint64) {
	n := l.nwords * 16
	copy(q.State, src[:n])
	binary.LittleEndian.PutUint64(q.State[l.pendingSomOff():], getDist(src[n:], l.somWidth, ref))
	if !l.som {
		return
	}
	off := n + l.somWidth
	for i := 0; i < l.nstates; i++ {
		l.setSom(q, i, getDist(src[off+i*l.somWidth:], l.somWidth, ref))
	}
}

func saturated(width int) uint64 {
	if width >= 8 {
		return math.MaxUint64
	}
	return 1<<(uint(width)*8) - 1
}

func putDist(dst []byte, width int, som, ref uint64) {
	sat := saturated(width)
	d := sat
	if som != UnknownStart && som <= ref && ref-som < sat {
		d = ref - som
	}
	for i := 0; i < width; i++ {
		dst[i] = byte(d >> (8 * i))
	}
}

func getDist(src []byte, width int, ref uint64) uint64 {
	var d uint64
	for i := 0; i < width; i++ {
		d |= uint64(src[i]) << (8 * i)
	}
	if d == saturated(width) || d > ref {
		return UnknownStart
	}
	return ref - d
}
