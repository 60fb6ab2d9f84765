// Package alloc provides the allocator context used for database,
// scratch, stream and miscellaneous allocations.
//
// Every field of a Context is an independent Funcs pair. A pair left
// unset uses the process default, and an unset process default uses the
// Go heap.
package alloc

import (
	"errors"
	"sync"
	"unsafe"
)

// Alignment is the alignment every allocation must meet.
const Alignment = 8

var (
	// ErrNoMem indicates that an allocator returned no memory.
	ErrNoMem = errors.New("alloc: allocator returned no memory")

	// ErrBadAlloc indicates that an allocator returned misaligned memory.
	ErrBadAlloc = errors.New("alloc: allocator returned misaligned memory")
)

// Funcs is an allocate/free pair. Alloc returns a slice of at least size
// bytes or nil. Free releases a slice Alloc returned.
type Funcs struct {
	Alloc func(size int) []byte
	Free  func(b []byte)
}

// IsSet reports whether f has an allocate function.
func (f Funcs) IsSet() bool { return f.Alloc != nil }

// Get allocates n bytes with f, falling back to the Go heap when f is
// unset.
func (f Funcs) Get(n int) ([]byte, error) {
	if f.Alloc == nil {
		return make([]byte, n, max(n, Alignment)), nil
	}
	b := f.Alloc(n)
	if b == nil || len(b) < n {
		return nil, ErrNoMem
	}
	if !Aligned(b) {
		f.Put(b)
		return nil, ErrBadAlloc
	}
	return b[:n], nil
}

// Put releases b through f. It is a no-op for the Go heap.
func (f Funcs) Put(b []byte) {
	if f.Free != nil && b != nil {
		f.Free(b)
	}
}

// Aligned reports whether b starts on an Alignment boundary. Empty
// slices are aligned.
func Aligned(b []byte) bool {
	if cap(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%Alignment == 0
}

// Context holds an allocator for each kind of allocation.
type Context struct {
	Misc     Funcs
	Database Funcs
	Scratch  Funcs
	Stream   Funcs
}

// Merge returns c with every unset pair taken from def.
func (c Context) Merge(def Context) Context {
	pick := func(f, d Funcs) Funcs {
		if f.IsSet() {
			return f
		}
		return d
	}
	return Context{
		Misc:     pick(c.Misc, def.Misc),
		Database: pick(c.Database, def.Database),
		Scratch:  pick(c.Scratch, def.Scratch),
		Stream:   pick(c.Stream, def.Stream),
	}
}

var (
	mu  sync.Mutex
	def Context
)

// Default returns the process default context.
func Default() Context {
	mu.Lock()
	defer mu.Unlock()
	return def
}

// SetDefault replaces the process default context. Operations already
// holding a resolved context keep it.
func SetDefault(c Context) {
	mu.Lock()
	def = c
	mu.Unlock()
}

// Reset restores the Go heap as the process default.
func Reset() { SetDefault(Context{}) }

// Resolve returns c merged over the process default. A nil c is the
// process default.
func Resolve(c *Context) Context {
	d := Default()
	if c == nil {
		return d
	}
	return c.Merge(d)
}

type held struct {
	f Funcs
	b []byte
}

// Group tracks the allocations of one operation so that a failure part
// way through releases the earlier ones.
type Group struct {
	held []held
}

// Get allocates n bytes with f. On failure every allocation already made
// through g is released.
func (g *Group) Get(f Funcs, n int) ([]byte, error) {
	b, err := f.Get(n)
	if err != nil {
		g.Release()
		return nil, err
	}
	g.held = append(g.held, held{f, b})
	return b, nil
}

// Release frees every allocation of g, newest first.
func (g *Group) Release() {
	for i := len(g.held) - 1; i >= 0; i-- {
		g.held[i].f.Put(g.held[i].b)
	}
	g.held = nil
}

// Keep forgets the allocations of g; their owner now frees them.
func (g *Group) Keep() { g.held = nil }
