package corescan

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/coregx/corescan/alloc"
)

func TestScratchMismatch(t *testing.T) {
	a := mustCompile(t, ModeBlock, "1:/abc/")
	b := mustCompile(t, ModeBlock, "2:/x[0-9]+/")
	s := mustScratch(t, a)
	if err := b.Scan([]byte("x1"), s, nil, nil); !errors.Is(err, ErrScratchMismatch) {
		t.Fatalf("Scan with foreign scratch: %v, want ErrScratchMismatch", err)
	}
	before := s.Size()
	if err := s.Grow(b); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if s.Size() < before {
		t.Errorf("Size shrank from %d to %d", before, s.Size())
	}
	if err := s.Grow(b); err != nil {
		t.Errorf("second Grow: %v", err)
	}
	if got := scanBlock(t, b, s, "x12"); !slices.Equal(got, []hit{{2, 0, 2}, {2, 0, 3}}) {
		t.Errorf("matches after Grow = %v", got)
	}
	if got := scanBlock(t, a, s, "abc"); !slices.Equal(got, []hit{{1, 0, 3}}) {
		t.Errorf("first database after Grow = %v", got)
	}
}

func TestScratchInUse(t *testing.T) {
	db := mustCompile(t, ModeBlock, "1:/a/")
	s := mustScratch(t, db)
	var inner error
	err := db.Scan([]byte("a"), s, func(uint32, uint64, uint64, any) Action {
		inner = db.Scan([]byte("a"), s, nil, nil)
		return Continue
	}, nil)
	if err != nil {
		t.Fatalf("outer Scan: %v", err)
	}
	if !errors.Is(inner, ErrScratchInUse) {
		t.Errorf("reentrant Scan: %v, want ErrScratchInUse", inner)
	}
	if err := db.Scan([]byte("a"), s, nil, nil); err != nil {
		t.Errorf("Scan after release: %v", err)
	}
}

func TestScratchClone(t *testing.T) {
	db := mustCompile(t, ModeBlock, "1:/ab+c/", "2:/[0-9]{2}/")
	proto := mustScratch(t, db)
	const data = "abbbc 123 ac abc"
	want := scanBlock(t, db, proto, data)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	res := make([][]hit, 4)
	for i := range 4 {
		s, err := proto.Clone()
		if err != nil {
			t.Fatalf("Clone: %v", err)
		}
		if s.Size() != proto.Size() {
			t.Errorf("clone Size = %d, want %d", s.Size(), proto.Size())
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = db.Scan([]byte(data), s, collect(&res[i]), nil)
		}()
	}
	wg.Wait()
	for i := range 4 {
		if errs[i] != nil {
			t.Errorf("clone %d: %v", i, errs[i])
		}
		if !slices.Equal(res[i], want) {
			t.Errorf("clone %d: matches = %v, want %v", i, res[i], want)
		}
	}
}

func TestScratchFree(t *testing.T) {
	db := mustCompile(t, ModeBlock, "1:/a/")
	s := mustScratch(t, db)
	if err := s.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := db.Scan([]byte("a"), s, nil, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("Scan with freed scratch: %v", err)
	}
	if err := s.Free(); !errors.Is(err, ErrInvalid) {
		t.Errorf("second Free: %v", err)
	}
	if err := db.Scan([]byte("a"), nil, nil, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("Scan with nil scratch: %v", err)
	}
}

// countingFuncs allocates from the heap and tracks live allocations.
type countingFuncs struct {
	mu    sync.Mutex
	live  int
	calls int
	fail  bool
	skew  bool
}

func (c *countingFuncs) funcs() alloc.Funcs {
	return alloc.Funcs{
		Alloc: func(n int) []byte {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.calls++
			if c.fail {
				return nil
			}
			c.live++
			b := make([]byte, n+alloc.Alignment+1)
			if c.skew {
				return b[1 : n+1]
			}
			return b[:n]
		},
		Free: func([]byte) {
			c.mu.Lock()
			c.live--
			c.mu.Unlock()
		},
	}
}

func TestScratchAllocator(t *testing.T) {
	db := mustCompile(t, ModeBlock, "1:/abc/", "2:/x+y/")

	bad := &countingFuncs{fail: true}
	if _, err := AllocScratch(db, WithAllocator(alloc.Context{Scratch: bad.funcs()})); !errors.Is(err, ErrNoMem) {
		t.Errorf("failing allocator: %v, want ErrNoMem", err)
	}

	skew := &countingFuncs{skew: true}
	if _, err := AllocScratch(db, WithAllocator(alloc.Context{Scratch: skew.funcs()})); !errors.Is(err, ErrBadAlloc) {
		t.Errorf("misaligned allocator: %v, want ErrBadAlloc", err)
	}
	if skew.live != 0 {
		t.Errorf("misaligned allocations leaked: %d", skew.live)
	}

	good := &countingFuncs{}
	s, err := AllocScratch(db, WithAllocator(alloc.Context{Scratch: good.funcs()}))
	if err != nil {
		t.Fatalf("AllocScratch: %v", err)
	}
	c, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if good.live != 2 {
		t.Errorf("live allocations = %d, want 2", good.live)
	}
	_ = c.Free()
	_ = s.Free()
	if good.live != 0 {
		t.Errorf("live allocations after Free = %d, want 0", good.live)
	}
}

func TestDatabaseAllocator(t *testing.T) {
	dbm := &countingFuncs{}
	misc := &countingFuncs{}
	ac := alloc.Context{Database: dbm.funcs(), Misc: misc.funcs()}
	db, err := Compile(parsePatterns(t, "1:/abc/"), ModeBlock, WithAllocator(ac))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	blob, err := db.Serialize(WithAllocator(ac))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if misc.calls != 1 {
		t.Errorf("misc allocations = %d, want 1", misc.calls)
	}
	again, err := Deserialize(blob, WithAllocator(ac))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if dbm.live != 2 {
		t.Errorf("live database allocations = %d, want 2", dbm.live)
	}
	_ = db.Free()
	_ = again.Free()
	if dbm.live != 0 {
		t.Errorf("live database allocations after Free = %d, want 0", dbm.live)
	}

	failing := &countingFuncs{fail: true}
	if _, err := Compile(parsePatterns(t, "1:/abc/"), ModeBlock,
		WithAllocator(alloc.Context{Database: failing.funcs()})); !errors.Is(err, ErrNoMem) {
		t.Errorf("failing database allocator: %v, want ErrNoMem", err)
	}
}

func TestDefaultAllocator(t *testing.T) {
	c := &countingFuncs{}
	alloc.SetDefault(alloc.Context{Scratch: c.funcs()})
	defer alloc.Reset()
	db := mustCompile(t, ModeBlock, "1:/abc/")
	s := mustScratch(t, db)
	if c.calls != 1 {
		t.Errorf("default scratch allocations = %d, want 1", c.calls)
	}
	_ = s.Free()
}
