package rose

import (
	"encoding/binary"

	"github.com/coregx/corescan/litmatch"
	"github.com/coregx/corescan/multibit"
	"github.com/coregx/corescan/nfa"
)

// MatchFunc receives a match of pattern id ending at offset to
// (exclusive). from is the start offset for patterns that track it and
// zero otherwise. Returning false stops the scan.
type MatchFunc func(id uint32, from, to uint64) bool

// scan is the working context of one call into the runtime.
type scan struct {
	r     *Rose
	s     *Scratch
	state []byte
	cb    MatchFunc

	buf  []byte
	hist []byte
	base uint64 // absolute offset of buf[0]

	status       uint8
	groups       uint64
	offset       uint64 // bytes consumed by the stream
	lastEnd      uint64
	delayLastEnd uint64
	filled       uint32
	alLogSum     uint64
	cro          uint64 // current report offset

	inEOD bool
	eod   uint64

	ekeys      multibit.Multibit
	active     multibit.Multibit
	dedupe     [2]multibit.Fatbit
	somPending multibit.Fatbit
	somAny     bool

	floatCB, anchCB, eodCB litmatch.Callback
}

func (sc *scan) stopped() bool { return sc.status&canStop != 0 }

func (sc *scan) litStatus() litmatch.Status {
	if sc.stopped() {
		return litmatch.Stop
	}
	return litmatch.Continue
}

func (s *Scratch) bind() {
	sc := &s.sc
	sc.r, sc.s = s.r, s
	sc.floatCB = sc.floatingMatch
	sc.anchCB = sc.anchoredMatch
	sc.eodCB = sc.eodMatch
	for _, q := range s.queues {
		q.Report = sc.engineReport
	}
}

// ScanBlock scans buf as a complete unit and returns the final status.
func (s *Scratch) ScanBlock(buf []byte, cb MatchFunc) uint8 {
	s.r.InitStream(s.block)
	return s.run(s.block, [][]byte{buf}, true, cb)
}

// ScanVector scans bufs as one logical buffer.
func (s *Scratch) ScanVector(bufs [][]byte, cb MatchFunc) uint8 {
	s.r.InitStream(s.block)
	return s.run(s.block, bufs, true, cb)
}

// StreamWrite scans the next buf of a stream.
func (s *Scratch) StreamWrite(state, buf []byte, cb MatchFunc) uint8 {
	return s.run(state, [][]byte{buf}, false, cb)
}

// StreamClose runs end-of-data processing for a stream.
func (s *Scratch) StreamClose(state []byte, cb MatchFunc) uint8 {
	return s.run(state, nil, true, cb)
}

func (s *Scratch) run(state []byte, bufs [][]byte, eod bool, cb MatchFunc) uint8 {
	sc := &s.sc
	sc.load(state, cb)
	if !sc.stopped() {
		sc.expandEngines()
		for _, b := range bufs {
			sc.write(b)
			if sc.stopped() {
				break
			}
		}
		if eod && !sc.stopped() {
			sc.processEOD()
		}
		sc.flushSom()
		sc.compressEngines()
	}
	sc.store()
	sc.cb = nil
	return sc.status
}

func (sc *scan) load(state []byte, cb MatchFunc) {
	r := sc.r
	sc.state = state[:r.lay.size]
	sc.cb = cb
	sc.status = state[offStatus]
	sc.groups = binary.LittleEndian.Uint64(state[offGroups:])
	sc.offset = binary.LittleEndian.Uint64(state[offStreamOffset:])
	sc.lastEnd = binary.LittleEndian.Uint64(state[offLastEnd:])
	sc.delayLastEnd = binary.LittleEndian.Uint64(state[offDelayLastEnd:])
	sc.filled = binary.LittleEndian.Uint32(state[offFilled:])
	if sc.status&StatusDelayDirty == 0 {
		sc.filled = 0
	}
	sc.cro = binary.LittleEndian.Uint64(state[offReportOffset:])
	sc.alLogSum = 0
	sc.inEOD = false

	sc.ekeys = r.ekeyLayout.On(state[r.lay.ekeys:])
	sc.active = r.activeKeys.On(state[r.lay.active:])
	for i := range sc.dedupe {
		sc.dedupe[i] = multibit.NewFatbit(sc.s.dedupe[i], r.numDkeys)
		sc.dedupe[i].Clear()
	}
	if sc.cro != noReportOffset {
		row := multibit.FatbitSize(r.numDkeys)
		copy(sc.s.dedupe[sc.cro&1], state[r.lay.dedupe:r.lay.dedupe+row])
	}
	sc.somPending = multibit.NewFatbit(sc.s.somPending, r.numDkeys)
	sc.somPending.Clear()
	sc.somAny = false
}

func (sc *scan) store() {
	r, state := sc.r, sc.state
	if sc.filled != 0 {
		sc.status |= StatusDelayDirty
	} else {
		sc.status &^= StatusDelayDirty
	}
	state[offStatus] = sc.status
	binary.LittleEndian.PutUint64(state[offGroups:], sc.groups)
	binary.LittleEndian.PutUint64(state[offStreamOffset:], sc.offset)
	binary.LittleEndian.PutUint64(state[offLastEnd:], sc.lastEnd)
	binary.LittleEndian.PutUint64(state[offDelayLastEnd:], sc.delayLastEnd)
	binary.LittleEndian.PutUint32(state[offFilled:], sc.filled)
	binary.LittleEndian.PutUint64(state[offReportOffset:], sc.cro)
	if sc.cro != noReportOffset {
		row := multibit.FatbitSize(r.numDkeys)
		copy(state[r.lay.dedupe:r.lay.dedupe+row], sc.s.dedupe[sc.cro&1])
	}
}

func (sc *scan) expandEngines() {
	for i, qi := range sc.r.queues {
		qi.engine.Expand(sc.s.queues[i], sc.state[sc.r.lay.engines[i]:], sc.offset)
	}
}

func (sc *scan) compressEngines() {
	for i, qi := range sc.r.queues {
		qi.engine.Compress(sc.state[sc.r.lay.engines[i]:], sc.s.queues[i], sc.offset)
	}
}

// write scans one buffer: anchored table, floating table, then the
// leftover delayed and anchored literals and a catch-up to its end.
func (sc *scan) write(buf []byte) {
	r := sc.r
	sc.buf, sc.base = buf, sc.offset
	sc.hist = r.history(sc.state)
	for _, q := range sc.s.queues {
		q.Reset(buf, sc.base, 0)
	}
	end := sc.base + uint64(len(buf))
	if !r.anchored.empty() && sc.base < uint64(r.anchoredRegion) {
		lim := min(uint64(len(buf)), uint64(r.anchoredRegion)-sc.base)
		r.anchored.matcher.Scan(litmatch.Scan{
			Buf:      buf[:lim],
			History:  sc.hist,
			Groups:   sc.groups,
			Callback: sc.anchCB,
			Tmp:      sc.s.tmp,
		})
	}
	if !sc.stopped() && !r.floating.empty() {
		r.floating.matcher.Scan(litmatch.Scan{
			Buf:      buf,
			History:  sc.hist,
			Groups:   sc.groups,
			Callback: sc.floatCB,
			Tmp:      sc.s.tmp,
		})
	}
	if !sc.stopped() {
		sc.flushQueued(end)
	}
	if !sc.stopped() {
		sc.catchUpTo(end)
	}
	sc.flushSom()
	r.pushHistory(sc.state, buf)
	sc.offset = end
}

func (sc *scan) floatingMatch(_, end int, id uint32) litmatch.Status {
	if sc.stopped() {
		return litmatch.Stop
	}
	realEnd := sc.base + uint64(end) + 1
	sc.flushQueued(realEnd)
	if realEnd >= sc.r.floatingMin {
		sc.lastEnd = realEnd
	}
	if sc.stopped() {
		return litmatch.Stop
	}
	sc.runProgram(sc.r.floating.programs[id], realEnd)
	return sc.litStatus()
}

func (sc *scan) anchoredMatch(_, end int, id uint32) litmatch.Status {
	if sc.stopped() {
		return litmatch.Stop
	}
	realEnd := sc.base + uint64(end) + 1
	if realEnd > sc.r.floatingMin {
		sc.recordAnchored(id, realEnd)
		return litmatch.Continue
	}
	sc.lastEnd = realEnd
	sc.runProgram(sc.r.anchored.programs[id], realEnd)
	return sc.litStatus()
}

func (sc *scan) eodMatch(_, end int, id uint32) litmatch.Status {
	if sc.stopped() {
		return litmatch.Stop
	}
	sc.runProgram(sc.r.eod.programs[id], sc.base+uint64(end)+1)
	return sc.litStatus()
}

// processEOD delivers the matches that need the end of the data: engine
// accepts at end of data and the EOD literal table.
func (sc *scan) processEOD() {
	r := sc.r
	data := sc.buf
	if r.historyLen > 0 || len(sc.buf) == 0 {
		data = r.history(sc.state)
	}
	sc.inEOD, sc.eod = true, sc.offset
	sc.buf, sc.hist, sc.base = data, nil, sc.offset-uint64(len(data))
	sc.flushQueued(sc.eod)
	if sc.stopped() {
		return
	}
	for _, q := range sc.s.queues {
		q.Reset(data, sc.base, len(data))
	}
	for i, qi := range r.queues {
		if qi.kind == QueueMPV || !sc.active.IsSet(i) {
			continue
		}
		if qi.engine.CheckEOD(sc.s.queues[i]) == nfa.Stop || sc.stopped() {
			return
		}
	}
	if !r.eod.empty() && len(data) > 0 {
		r.eod.matcher.Scan(litmatch.Scan{
			Buf:      data,
			Start:    len(data) - 1,
			Groups:   sc.groups,
			Callback: sc.eodCB,
		})
	}
}
