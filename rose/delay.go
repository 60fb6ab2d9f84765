package rose

import (
	"math/bits"

	"github.com/coregx/corescan/multibit"
)

const delayMask = DelaySlotCount - 1

// lowMask returns the slots at index i and below.
func lowMask(i uint64) uint64 { return 1<<(i+1) - 1 }

func (sc *scan) delayRow(slot int) multibit.Fatbit {
	off := sc.r.lay.delay + slot*sc.r.lay.delayRow
	return multibit.NewFatbit(sc.state[off:off+sc.r.lay.delayRow], len(sc.r.delayed))
}

// pushDelayed queues delayed literal idx to run delay bytes after end.
func (sc *scan) pushDelayed(idx uint32, delay uint8, end uint64) {
	slot := int((end + uint64(delay)) & delayMask)
	row := sc.delayRow(slot)
	if sc.filled&(1<<slot) == 0 {
		row.Clear()
		sc.filled |= 1 << slot
	}
	row.Set(int(idx))
}

// flushQueued plays every delayed literal and logged anchored literal
// due at or before currEnd, in offset order.
func (sc *scan) flushQueued(currEnd uint64) {
	lastEnd := sc.delayLastEnd
	if currEnd <= lastEnd {
		return
	}
	if sc.filled == 0 && sc.alLogSum == 0 {
		sc.delayLastEnd = currEnd
		return
	}
	it := sc.anchoredBegin()
	if sc.filled != 0 {
		lastIndex := lastEnd & delayMask
		currIndex := currEnd & delayMask
		filled := uint64(sc.filled)
		var victims uint64
		if (lastEnd | delayMask) < currEnd {
			firstHalf := filled &^ lowMask(lastIndex)
			filled &= lowMask(lastIndex)
			secondHalf := filled
			if currEnd > lastEnd+DelaySlotCount {
				secondHalf &= lowMask(lastIndex)
			} else {
				secondHalf &= lowMask(currIndex)
			}
			filled &^= secondHalf
			victims = firstHalf | secondHalf<<DelaySlotCount
		} else {
			victims = filled &^ lowMask(lastIndex)
			victims &= lowMask(currIndex)
			filled &^= victims
		}
		sc.filled = uint32(filled)
		sc.playVictims(&it, lastEnd, victims)
		if sc.stopped() {
			return
		}
	}
	sc.flushAnchored(&it, currEnd)
	sc.delayLastEnd = currEnd
}

func (sc *scan) playVictims(it *int, lastEnd, victims uint64) {
	for victims != 0 {
		vic := uint64(bits.TrailingZeros64(victims))
		victims &= victims - 1
		vicOffset := vic + lastEnd&^delayMask
		sc.flushAnchored(it, vicOffset)
		if sc.stopped() {
			return
		}
		sc.playDelaySlot(int(vic%DelaySlotCount), vicOffset)
		if sc.stopped() {
			return
		}
	}
}

func (sc *scan) playDelaySlot(slot int, offset uint64) {
	if offset < sc.r.floatingMin {
		return
	}
	sc.lastEnd = offset
	row := sc.delayRow(slot)
	for id := row.Iterate(-1); id >= 0; id = row.Iterate(id) {
		sc.runProgram(sc.r.delayed[id], offset)
		if sc.stopped() {
			return
		}
	}
}

func (sc *scan) anchRow(i int) multibit.Fatbit {
	n := sc.s.anchRow
	return multibit.NewFatbit(sc.s.anchLog[i*n:(i+1)*n], sc.r.numAnchored())
}

// recordAnchored logs an anchored literal match to be replayed when the
// floating matches reach its offset.
func (sc *scan) recordAnchored(id uint32, end uint64) {
	i := int(end - 1)
	row := sc.anchRow(i)
	if sc.alLogSum&(1<<i) == 0 {
		row.Clear()
		sc.alLogSum |= 1 << i
	}
	row.Set(int(id))
}

// next64 returns the lowest set bit of x above prev, or -1.
func next64(x uint64, prev int) int {
	if prev >= 63 {
		return -1
	}
	if prev >= 0 {
		x &= ^uint64(0) << uint(prev+1)
	}
	if x == 0 {
		return -1
	}
	return bits.TrailingZeros64(x)
}

func (sc *scan) anchoredBegin() int {
	if sc.lastEnd >= uint64(sc.r.anchoredRegion) {
		return -1
	}
	return next64(sc.alLogSum, int(sc.lastEnd)-1)
}

// flushAnchored replays logged anchored rows ending at or before to.
func (sc *scan) flushAnchored(it *int, to uint64) {
	for ; *it >= 0 && uint64(*it) < to; *it = next64(sc.alLogSum, *it) {
		curr := uint64(*it + 1)
		sc.lastEnd = curr
		row := sc.anchRow(*it)
		for id := row.Iterate(-1); id >= 0; id = row.Iterate(id) {
			old := sc.groups
			sc.runProgram(sc.r.anchored.programs[id], curr)
			sc.groups &= old
			if sc.stopped() {
				return
			}
		}
		sc.alLogSum &^= 1 << uint(*it)
	}
}
