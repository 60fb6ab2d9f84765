package corescan

import (
	"github.com/coregx/corescan/alloc"
	"github.com/coregx/corescan/rose"
)

const scratchMagic = 0x544f4259

// Scratch is per-scan working memory. One scratch serves one scan at a
// time; allocate one per goroutine, or Clone a prototype.
//
// A scratch may be grown to serve several databases.
type Scratch struct {
	magic uint32
	inUse atomicFlag
	mem   alloc.Funcs
	slots []scratchSlot
}

type scratchSlot struct {
	db  uint64
	rt  *rose.Rose
	buf []byte
	rs  *rose.Scratch
}

// AllocScratch allocates a scratch sized for db, using the scratch
// allocator of opts.
func AllocScratch(db *Database, opts ...Option) (*Scratch, error) {
	if db == nil || db.freed.Load() {
		return nil, ErrInvalid
	}
	s := &Scratch{magic: scratchMagic, mem: newOptions(opts).allocator().Scratch}
	if err := s.Grow(db); err != nil {
		return nil, err
	}
	return s, nil
}

// Grow makes s serve db as well as the databases it already serves.
func (s *Scratch) Grow(db *Database) error {
	if s == nil || s.magic != scratchMagic || db == nil || db.freed.Load() {
		return ErrInvalid
	}
	if !s.inUse.take() {
		return ErrScratchInUse
	}
	defer s.inUse.drop()
	if s.slot(db) != nil {
		return nil
	}
	sl, err := newSlot(s.mem, db.id, db.rt, nil)
	if err != nil {
		return err
	}
	s.slots = append(s.slots, sl)
	return nil
}

func newSlot(f alloc.Funcs, id uint64, rt *rose.Rose, g *alloc.Group) (scratchSlot, error) {
	var buf []byte
	var err error
	if g != nil {
		buf, err = g.Get(f, rt.ScratchSize())
	} else {
		buf, err = f.Get(rt.ScratchSize())
	}
	if err != nil {
		return scratchSlot{}, err
	}
	return scratchSlot{db: id, rt: rt, buf: buf, rs: rose.NewScratch(rt, buf)}, nil
}

// Clone returns a new scratch serving the same databases as s.
func (s *Scratch) Clone() (*Scratch, error) {
	if s == nil || s.magic != scratchMagic {
		return nil, ErrInvalid
	}
	if !s.inUse.take() {
		return nil, ErrScratchInUse
	}
	defer s.inUse.drop()
	c := &Scratch{magic: scratchMagic, mem: s.mem, slots: make([]scratchSlot, 0, len(s.slots))}
	var g alloc.Group
	for _, sl := range s.slots {
		n, err := newSlot(s.mem, sl.db, sl.rt, &g)
		if err != nil {
			return nil, err
		}
		c.slots = append(c.slots, n)
	}
	g.Keep()
	return c, nil
}

// Size returns the bytes held by s.
func (s *Scratch) Size() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, sl := range s.slots {
		n += len(sl.buf)
	}
	return n
}

// Free releases the memory of s. A scratch in use cannot be freed.
func (s *Scratch) Free() error {
	if s == nil || s.magic != scratchMagic {
		return ErrInvalid
	}
	if !s.inUse.take() {
		return ErrScratchInUse
	}
	for _, sl := range s.slots {
		s.mem.Put(sl.buf)
	}
	s.slots = nil
	s.magic = 0
	return nil
}

func (s *Scratch) slot(db *Database) *scratchSlot {
	for i := range s.slots {
		if s.slots[i].db == db.id {
			return &s.slots[i]
		}
	}
	return nil
}

// acquire marks s in use for a scan of db.
func (s *Scratch) acquire(db *Database) (*rose.Scratch, error) {
	if s == nil || s.magic != scratchMagic {
		return nil, ErrInvalid
	}
	sl := s.slot(db)
	if sl == nil {
		return nil, ErrScratchMismatch
	}
	if !s.inUse.take() {
		return nil, ErrScratchInUse
	}
	return sl.rs, nil
}

func (s *Scratch) release() { s.inUse.drop() }
