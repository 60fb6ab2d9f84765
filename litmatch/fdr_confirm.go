package litmatch

import (
	"math/bits"

	"github.com/spaolacci/murmur3"

	"github.com/coregx/corescan/literal"
)

// confirmTable maps a hash of the final keyLen bytes before a candidate
// end to the literals of one bucket that end with those bytes. A hit is
// still verified in full; the table only narrows the bucket down.
type confirmTable struct {
	keyLen int // 0 for an empty bucket
	fold   bool
	bits   uint
	heads  []int32 // len 1<<bits + 1; slot s spans chain[heads[s]:heads[s+1]]
	chain  []int32
}

func buildConfirm(lits []literal.Literal, members []int32) confirmTable {
	if len(members) == 0 {
		return confirmTable{}
	}
	ct := confirmTable{keyLen: fdrWindow}
	for _, idx := range members {
		l := &lits[idx]
		ct.keyLen = min(ct.keyLen, l.Len())
		ct.fold = ct.fold || l.Nocase
	}
	ct.bits = uint(bits.Len(uint(len(members)*2 - 1)))
	nslots := 1 << ct.bits
	slots := make([][]int32, nslots)
	var key [fdrWindow]byte
	for _, idx := range members {
		l := &lits[idx]
		s := ct.slot(l.Bytes[l.Len()-ct.keyLen:], key[:])
		slots[s] = append(slots[s], idx)
	}
	ct.heads = make([]int32, nslots+1)
	for s, members := range slots {
		ct.chain = append(ct.chain, members...)
		ct.heads[s+1] = int32(len(ct.chain))
	}
	return ct
}

// slot hashes the key bytes, folding them first when the bucket holds a
// caseless literal. tmp must hold keyLen bytes.
func (ct *confirmTable) slot(b []byte, tmp []byte) int {
	if ct.fold {
		tmp = tmp[:len(b)]
		for i, c := range b {
			tmp[i] = literal.ToLower(c)
		}
		b = tmp
	}
	return int(murmur3.Sum32(b) & (1<<ct.bits - 1))
}

// lookup appends the literals that may end at end.
func (ct *confirmTable) lookup(buf []byte, end int, out []int32) []int32 {
	if ct.keyLen == 0 || end+1 < ct.keyLen {
		return out
	}
	var tmp [fdrWindow]byte
	s := ct.slot(buf[end+1-ct.keyLen:end+1], tmp[:])
	return append(out, ct.chain[ct.heads[s]:ct.heads[s+1]]...)
}
