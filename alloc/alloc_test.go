package alloc

import (
	"errors"
	"testing"
)

// counting is an allocator that records its calls.
type counting struct {
	allocs, frees int
	fail          bool
	shift         int
}

func (c *counting) funcs() Funcs {
	return Funcs{
		Alloc: func(n int) []byte {
			c.allocs++
			if c.fail {
				return nil
			}
			b := make([]byte, n+16)
			return b[c.shift : c.shift+n]
		},
		Free: func([]byte) { c.frees++ },
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		a       counting
		wantErr error
		frees   int
	}{
		{name: "ok"},
		{name: "nil", a: counting{fail: true}, wantErr: ErrNoMem},
		{name: "misaligned", a: counting{shift: 1}, wantErr: ErrBadAlloc, frees: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.a.funcs().Get(32)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Get error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && len(b) != 32 {
				t.Errorf("len = %d, want 32", len(b))
			}
			if tt.a.frees != tt.frees {
				t.Errorf("frees = %d, want %d", tt.a.frees, tt.frees)
			}
		})
	}
}

func TestHeapDefault(t *testing.T) {
	b, err := Funcs{}.Get(24)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(b) != 24 || !Aligned(b) {
		t.Errorf("heap slice len %d aligned %v", len(b), Aligned(b))
	}
	Funcs{}.Put(b)
}

func TestGroupReleasesSiblings(t *testing.T) {
	good := &counting{}
	bad := &counting{fail: true}
	var g Group
	if _, err := g.Get(good.funcs(), 8); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if _, err := g.Get(good.funcs(), 16); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if _, err := g.Get(bad.funcs(), 8); !errors.Is(err, ErrNoMem) {
		t.Fatalf("third Get error = %v, want ErrNoMem", err)
	}
	if good.frees != 2 {
		t.Errorf("sibling frees = %d, want 2", good.frees)
	}

	g = Group{}
	if _, err := g.Get(good.funcs(), 8); err != nil {
		t.Fatalf("Get: %v", err)
	}
	g.Keep()
	g.Release()
	if good.frees != 2 {
		t.Errorf("Release after Keep freed: frees = %d", good.frees)
	}
}

func TestDefaultLifecycle(t *testing.T) {
	t.Cleanup(Reset)
	misc := &counting{}
	scratch := &counting{}
	SetDefault(Context{Misc: misc.funcs()})

	ctx := Resolve(&Context{Scratch: scratch.funcs()})
	if _, err := ctx.Misc.Get(8); err != nil {
		t.Fatalf("misc Get: %v", err)
	}
	if _, err := ctx.Scratch.Get(8); err != nil {
		t.Fatalf("scratch Get: %v", err)
	}
	if _, err := ctx.Stream.Get(8); err != nil {
		t.Fatalf("stream Get: %v", err)
	}
	if misc.allocs != 1 || scratch.allocs != 1 {
		t.Errorf("allocs misc=%d scratch=%d, want 1 and 1", misc.allocs, scratch.allocs)
	}

	Reset()
	if Default().Misc.IsSet() {
		t.Error("Reset left a misc allocator")
	}
	if Resolve(nil).Misc.IsSet() {
		t.Error("Resolve(nil) after Reset has a misc allocator")
	}
}
