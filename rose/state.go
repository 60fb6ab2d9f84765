package rose

import (
	"encoding/binary"

	"github.com/coregx/corescan/multibit"
)

// Status bits kept in stream state.
const (
	StatusTerminated uint8 = 1 << iota
	StatusExhausted
	StatusDelayDirty
)

// canStop is the set of status bits after which no further match can be
// delivered.
const canStop = StatusTerminated | StatusExhausted

// Stream state header fields.
const (
	offStatus       = 0
	offGroups       = 8
	offStreamOffset = 16
	offLastEnd      = 24
	offDelayLastEnd = 32
	offFilled       = 40
	offHistLen      = 44
	offReportOffset = 48
	headerSize      = 64
)

// noReportOffset marks a dedupe tail with no deliveries yet.
const noReportOffset = ^uint64(0)

// layout places the sections of the stream state.
type layout struct {
	history  int
	delay    int
	delayRow int
	active   int
	ekeys    int
	dedupe   int
	engines  []int
	size     int
}

func align8(n int) int { return (n + 7) &^ 7 }

func (r *Rose) computeLayout() layout {
	l := layout{history: headerSize}
	off := headerSize + align8(r.historyLen)
	l.delay = off
	l.delayRow = multibit.FatbitSize(len(r.delayed))
	off += DelaySlotCount * l.delayRow
	l.active = off
	off += r.activeKeys.Size()
	l.ekeys = off
	off += r.ekeyLayout.Size()
	l.dedupe = off
	off += multibit.FatbitSize(r.numDkeys)
	l.engines = make([]int, len(r.queues))
	for i, q := range r.queues {
		l.engines[i] = off
		off += align8(q.engine.StreamStateSize())
	}
	l.size = off
	return l
}

// StreamStateSize returns the size of the state a stream keeps between
// writes.
func (r *Rose) StreamStateSize() int { return r.lay.size }

// InitStream prepares state for a new stream at offset zero.
func (r *Rose) InitStream(state []byte) {
	state = state[:r.lay.size]
	clear(state)
	binary.LittleEndian.PutUint64(state[offGroups:], r.initialGroups)
	binary.LittleEndian.PutUint64(state[offReportOffset:], noReportOffset)
	ekeys := r.ekeyLayout.On(state[r.lay.ekeys:])
	ekeys.Clear()
	active := r.activeKeys.On(state[r.lay.active:])
	for i, q := range r.queues {
		if q.kind == QueueOutfix {
			active.Set(i)
		}
	}
}

// StreamStatus returns the status bits of a stream.
func StreamStatus(state []byte) uint8 { return state[offStatus] }

// StreamOffset returns the number of bytes a stream has consumed.
func StreamOffset(state []byte) uint64 {
	return binary.LittleEndian.Uint64(state[offStreamOffset:])
}

// history returns the stored history bytes, oldest first.
func (r *Rose) history(state []byte) []byte {
	n := int(binary.LittleEndian.Uint32(state[offHistLen:]))
	return state[r.lay.history : r.lay.history+n]
}

// pushHistory appends buf to the stored history, keeping the newest
// historyLen bytes.
func (r *Rose) pushHistory(state, buf []byte) {
	h := r.historyLen
	if h == 0 {
		return
	}
	area := state[r.lay.history : r.lay.history+h]
	n := int(binary.LittleEndian.Uint32(state[offHistLen:]))
	if len(buf) >= h {
		copy(area, buf[len(buf)-h:])
		n = h
	} else {
		keep := min(n, h-len(buf))
		copy(area, area[n-keep:n])
		copy(area[keep:], buf)
		n = keep + len(buf)
	}
	binary.LittleEndian.PutUint32(state[offHistLen:], uint32(n))
}
