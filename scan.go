package corescan

import (
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/rose"
)

// Action is the handler's verdict on whether scanning goes on.
type Action int

const (
	// Continue asks for further matches.
	Continue Action = iota

	// Stop terminates the scan; the call returns ErrScanTerminated.
	Stop
)

// UnknownStart is passed as from when the start of a SomLeftMost match
// lies beyond the stream horizon.
const UnknownStart = nfa.UnknownStart

// Handler receives matches. from is the start offset for SomLeftMost
// patterns and 0 otherwise; to is the exclusive end offset. Offsets in
// streams count from the start of the stream.
type Handler func(id uint32, from, to uint64, ctx any) Action

// sink adapts a Handler to the runtime and counts deliveries.
type sink struct {
	h   Handler
	ctx any
	n   int
}

func (k *sink) match(id uint32, from, to uint64) bool {
	k.n++
	if k.h == nil {
		return true
	}
	return k.h(id, from, to, k.ctx) == Continue
}

// Scan scans data with a block mode database.
func (db *Database) Scan(data []byte, s *Scratch, h Handler, ctx any) error {
	if err := db.check(ModeBlock); err != nil {
		return err
	}
	rs, err := s.acquire(db)
	if err != nil {
		return err
	}
	defer s.release()
	k := sink{h: h, ctx: ctx}
	st := rs.ScanBlock(data, k.match)
	return db.finish(ModeBlock, len(data), k.n, st)
}

// ScanVector scans bufs as one logical buffer with a vectored database.
// Match offsets count across the buffers.
func (db *Database) ScanVector(bufs [][]byte, s *Scratch, h Handler, ctx any) error {
	if err := db.check(ModeVectored); err != nil {
		return err
	}
	rs, err := s.acquire(db)
	if err != nil {
		return err
	}
	defer s.release()
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	k := sink{h: h, ctx: ctx}
	st := rs.ScanVector(bufs, k.match)
	return db.finish(ModeVectored, n, k.n, st)
}

func (db *Database) finish(mode Mode, bytes, matches int, st uint8) error {
	term := st&rose.StatusTerminated != 0
	db.rec.Scan(mode.modeName(), bytes, matches, term)
	if term {
		return ErrScanTerminated
	}
	return nil
}
