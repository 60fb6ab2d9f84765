package simd

import (
	"bytes"
	"fmt"
	"testing"
)

// corpus returns inputs long enough to exercise both the word loop and the
// byte tail at every alignment.
func corpus() [][]byte {
	base := []byte("the quick brown fox jumps over the lazy dog 0123456789 \x00\xff\x80")
	var out [][]byte
	for n := 0; n <= len(base); n += 3 {
		out = append(out, base[:n])
	}
	for off := 0; off < 9; off++ {
		out = append(out, base[off:])
	}
	return out
}

func naiveIndex(h []byte, pred func(b byte) bool) int {
	for i, b := range h {
		if pred(b) {
			return i
		}
	}
	return -1
}

func TestMemchrFamily(t *testing.T) {
	needles := []byte("tqz0 \x00\xff\x80x")
	for _, h := range corpus() {
		for _, n := range needles {
			if got, want := Memchr(h, n), bytes.IndexByte(h, n); got != want {
				t.Errorf("Memchr(%q, %q) = %d, want %d", h, n, got, want)
			}
			if got, want := Memrchr(h, n), bytes.LastIndexByte(h, n); got != want {
				t.Errorf("Memrchr(%q, %q) = %d, want %d", h, n, got, want)
			}
			if got, want := MemchrNot(h, n), naiveIndex(h, func(b byte) bool { return b != n }); got != want {
				t.Errorf("MemchrNot(%q, %q) = %d, want %d", h, n, got, want)
			}
			for _, m := range needles {
				want := naiveIndex(h, func(b byte) bool { return b == n || b == m })
				if got := Memchr2(h, n, m); got != want {
					t.Errorf("Memchr2(%q, %q, %q) = %d, want %d", h, n, m, got, want)
				}
				want3 := naiveIndex(h, func(b byte) bool { return b == n || b == m || b == 'o' })
				if got := Memchr3(h, n, m, 'o'); got != want3 {
					t.Errorf("Memchr3(%q) = %d, want %d", h, got, want3)
				}
			}
		}
	}
}

func TestMemchrNotRuns(t *testing.T) {
	tests := []struct {
		h    string
		c    byte
		want int
	}{
		{"", 'a', -1},
		{"aaaa", 'a', -1},
		{"aaaaaaaaaaaaaaaab", 'a', 16},
		{"aaaaaaaXaaaaaaaa", 'a', 7},
		{"\x80\x80\x80\x80\x80\x80\x80\x80\x00", 0x80, 8},
	}
	for _, tt := range tests {
		if got := MemchrNot([]byte(tt.h), tt.c); got != tt.want {
			t.Errorf("MemchrNot(%q, %q) = %d, want %d", tt.h, tt.c, got, tt.want)
		}
	}
}

func TestMemchrPair(t *testing.T) {
	for _, h := range corpus() {
		for dist := 1; dist < 4; dist++ {
			for _, p := range [][2]byte{{'t', 'e'}, {'o', 'x'}, {'o', ' '}, {'\x00', '\x80'}, {'z', 'q'}} {
				want := -1
				for i := 0; i+dist < len(h); i++ {
					if h[i] == p[0] && h[i+dist] == p[1] {
						want = i
						break
					}
				}
				if got := MemchrPair(h, p[0], p[1], dist); got != want {
					t.Errorf("MemchrPair(%q, %q, %q, %d) = %d, want %d", h, p[0], p[1], dist, got, want)
				}
			}
		}
	}
	if MemchrPair([]byte("ab"), 'a', 'b', 0) != -1 {
		t.Error("non-positive distance must not match")
	}
}

func TestShuftiAndTruffle(t *testing.T) {
	classes := []struct {
		name string
		in   func(b byte) bool
	}{
		{"digits", func(b byte) bool { return b >= '0' && b <= '9' }},
		{"vowels", func(b byte) bool { return bytes.IndexByte([]byte("aeiouAEIOU"), b) >= 0 }},
		{"high", func(b byte) bool { return b >= 0x80 }},
		{"sparse", func(b byte) bool { return b%17 == 3 }},
		{"word", func(b byte) bool {
			return b == '_' || (b >= '0' && b <= '9') || (b|0x20 >= 'a' && b|0x20 <= 'z')
		}},
	}
	for _, c := range classes {
		var table [256]bool
		for b := 0; b < 256; b++ {
			table[b] = c.in(byte(b))
		}
		tr := BuildTruffle(&table)
		sh, ok := BuildShufti(&table)
		for b := 0; b < 256; b++ {
			if tr.Contains(byte(b)) != table[b] {
				t.Fatalf("%s: truffle disagrees at %#x", c.name, b)
			}
			if ok && sh.Contains(byte(b)) != table[b] {
				t.Fatalf("%s: shufti disagrees at %#x", c.name, b)
			}
		}
		for _, h := range corpus() {
			want := MemchrInTable(h, &table)
			if got := tr.Find(h); got != want {
				t.Errorf("%s: Truffle.Find(%q) = %d, want %d", c.name, h, got, want)
			}
			if ok {
				if got := sh.Find(h); got != want {
					t.Errorf("%s: Shufti.Find(%q) = %d, want %d", c.name, h, got, want)
				}
			}
		}
	}
}

func TestShuftiCapacity(t *testing.T) {
	// Sixteen distinct low-nibble columns need sixteen buckets.
	var table [256]bool
	for hi := 0; hi < 16; hi++ {
		table[hi<<4|hi] = true
	}
	if _, ok := BuildShufti(&table); ok {
		t.Error("diagonal class should not fit in eight shufti buckets")
	}
}

func TestMemmem(t *testing.T) {
	tests := []struct {
		h, n string
	}{
		{"hello world", "world"},
		{"hello world", "xyz"},
		{"aaaaaabaaaa", "aab"},
		{"", ""},
		{"abc", ""},
		{"ab", "abc"},
		{"zzzzqzzzzq", "zq"},
		{"the lazy dog", "g"},
	}
	for _, tt := range tests {
		if got, want := Memmem([]byte(tt.h), []byte(tt.n)), bytes.Index([]byte(tt.h), []byte(tt.n)); got != want {
			t.Errorf("Memmem(%q, %q) = %d, want %d", tt.h, tt.n, got, want)
		}
	}
}

func TestMemmemFold(t *testing.T) {
	tests := []struct {
		h, n string
		want int
	}{
		{"Hello World", "world", 6},
		{"HELLO", "hello", 0},
		{"xaBcAbC", "abc", 1},
		{"\xc3\xa9", "\xc3\x89", -1},
		{"abc", "abcd", -1},
	}
	for _, tt := range tests {
		if got := MemmemFold([]byte(tt.h), []byte(tt.n)); got != tt.want {
			t.Errorf("MemmemFold(%q, %q) = %d, want %d", tt.h, tt.n, got, tt.want)
		}
	}
}

func TestRareIndex(t *testing.T) {
	if RareIndex(nil, false) != -1 {
		t.Error("empty needle")
	}
	// 'z' ranks far below 'e' and 't'.
	if got := RareIndex([]byte("tez"), false); got != 2 {
		t.Errorf("RareIndex(tez) = %d, want 2", got)
	}
	if got := RareIndex([]byte("Qe"), false); got != 0 {
		t.Errorf("RareIndex(Qe) = %d, want 0", got)
	}
}

func ExampleMemmem() {
	fmt.Println(Memmem([]byte("find the needle here"), []byte("needle")))
	// Output: 9
}
