package rose

import (
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// runProgram interprets a literal program for a match ending at end.
func (sc *scan) runProgram(p Program, end uint64) {
	for _, in := range p {
		switch in.Op {
		case OpEnd:
			return
		case OpCheckGroups:
			if sc.groups&in.Groups == 0 {
				return
			}
		case OpCheckExhausted:
			if sc.ekeys.IsSet(int(in.Ekey)) {
				return
			}
		case OpCheckBounds:
			if end < in.Min || end > in.Max {
				return
			}
		case OpCheckOnlyEOD:
			if !sc.inEOD || end != sc.eod {
				return
			}
		case OpCheckLookaround:
			if !nfa.CheckLookaround(sc.r.looks[in.Look], sc.hist, sc.buf, int(end-sc.base)) {
				return
			}
		case OpPushDelayed:
			sc.pushDelayed(in.Index, in.Delay, end)
		case OpCatchUp:
			sc.catchUpTo(end)
		case OpTriggerSuffix:
			sc.trigger(in.Queue, in.Top, end)
		case OpReport:
			if !sc.deliver(in.Report, 0, end) {
				return
			}
		case OpReportSOM:
			if !sc.deliver(in.Report, end-uint64(in.Width), end) {
				return
			}
		case OpSetExhaust:
			sc.exhaust(in.Ekey)
		case OpSquashGroups:
			sc.groups &^= in.Groups
		}
		if sc.stopped() {
			return
		}
	}
}

// deliver passes an external report through exhaustion, bounds and
// dedupe to the caller. It returns false when the report was suppressed
// by its exhaustion key or bounds.
func (sc *scan) deliver(id report.ID, start, end uint64) bool {
	if sc.stopped() {
		return false
	}
	rep := &sc.r.reports[id]
	if rep.Ekey != report.NoEkey && sc.ekeys.IsSet(int(rep.Ekey)) {
		return false
	}
	if end < rep.MinOffset || end > rep.MaxOffset {
		return false
	}
	if rep.MinLength > 0 && start != nfa.UnknownStart && end-start < rep.MinLength {
		return false
	}
	if end != sc.cro {
		sc.advance(end)
		if sc.stopped() {
			return false
		}
	}
	dk := int(rep.Dkey)
	log := sc.dedupe[end&1]
	switch {
	case rep.SOM:
		if log.IsSet(dk) {
			return true
		}
		if sc.somPending.Set(dk) {
			sc.s.somStart[dk] = minStart(sc.s.somStart[dk], start)
		} else {
			sc.s.somStart[dk], sc.s.somRep[dk] = start, id
		}
		sc.somAny = true
	case log.Set(dk):
		return true
	default:
		if !sc.cb(rep.Onmatch, 0, end) {
			sc.status |= StatusTerminated
		}
	}
	if rep.Ekey != report.NoEkey {
		sc.exhaust(rep.Ekey)
	}
	return true
}

func minStart(a, b uint64) uint64 {
	if a == nfa.UnknownStart || b == nfa.UnknownStart {
		return nfa.UnknownStart
	}
	return min(a, b)
}

// advance moves the dedupe window to end, flushing held start-of-match
// reports for the previous offset.
func (sc *scan) advance(end uint64) {
	sc.flushSom()
	if sc.cro == noReportOffset || end > sc.cro+1 {
		sc.dedupe[0].Clear()
		sc.dedupe[1].Clear()
	} else {
		sc.dedupe[end&1].Clear()
	}
	sc.cro = end
}

// flushSom delivers the held start-of-match reports at the current
// report offset, one per dedupe key with its leftmost start.
func (sc *scan) flushSom() {
	if !sc.somAny {
		return
	}
	sc.somAny = false
	log := sc.dedupe[sc.cro&1]
	for dk := sc.somPending.Iterate(-1); dk >= 0; dk = sc.somPending.Iterate(dk) {
		if sc.status&StatusTerminated != 0 {
			break
		}
		log.Set(dk)
		rep := &sc.r.reports[sc.s.somRep[dk]]
		if !sc.cb(rep.Onmatch, sc.s.somStart[dk], sc.cro) {
			sc.status |= StatusTerminated
		}
	}
	sc.somPending.Clear()
}

// exhaust marks an exhaustion key fired and drops its literal groups.
func (sc *scan) exhaust(ekey uint32) {
	if sc.ekeys.Set(int(ekey)) {
		return
	}
	sc.groups &^= sc.r.ekeyGroups[ekey]
	if sc.r.allExhaustible && sc.ekeys.Count() == sc.r.numEkeys {
		sc.status |= StatusExhausted
	}
}
