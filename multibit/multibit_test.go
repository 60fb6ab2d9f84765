package multibit

import (
	"math/rand"
	"testing"
)

func newMultibit(total int) Multibit {
	l := NewLayout(total)
	return l.On(make([]byte, l.Size()))
}

func collect(m Multibit) []int {
	var out []int
	for k := m.Iterate(-1); k >= 0; k = m.Iterate(k) {
		out = append(out, k)
	}
	return out
}

func TestLayoutSizes(t *testing.T) {
	tests := []struct {
		total, depth, size int
	}{
		{0, 1, 8},
		{1, 1, 8},
		{64, 1, 8},
		{65, 2, 8 + 16},
		{4096, 2, 8 + 512},
		{4097, 3, 8 + 16 + 520},
	}
	for _, tt := range tests {
		l := NewLayout(tt.total)
		if l.Depth() != tt.depth || l.Size() != tt.size {
			t.Errorf("NewLayout(%d): depth %d size %d, want %d %d", tt.total, l.Depth(), l.Size(), tt.depth, tt.size)
		}
	}
}

func TestSetUnsetIterate(t *testing.T) {
	for _, total := range []int{1, 63, 64, 65, 200, 4096, 5000, 300000} {
		m := newMultibit(total)
		ref := make(map[int]bool)
		r := rand.New(rand.NewSource(int64(total)))
		for i := 0; i < 500; i++ {
			k := r.Intn(total)
			if r.Intn(3) == 0 {
				m.Unset(k)
				delete(ref, k)
				continue
			}
			if was := m.Set(k); was != ref[k] {
				t.Fatalf("total %d: Set(%d) = %v, want %v", total, k, was, ref[k])
			}
			ref[k] = true
		}
		got := collect(m)
		if len(got) != len(ref) || m.Count() != len(ref) {
			t.Fatalf("total %d: iterated %d keys, counted %d, want %d", total, len(got), m.Count(), len(ref))
		}
		for i, k := range got {
			if !ref[k] || !m.IsSet(k) {
				t.Errorf("total %d: unexpected key %d", total, k)
			}
			if i > 0 && got[i-1] >= k {
				t.Errorf("total %d: keys out of order", total)
			}
		}
		if m.Any() != (len(ref) > 0) {
			t.Errorf("total %d: Any mismatch", total)
		}
		m.Clear()
		if m.Any() || m.Iterate(-1) != -1 {
			t.Errorf("total %d: not empty after Clear", total)
		}
	}
}

func TestIterateRestart(t *testing.T) {
	m := newMultibit(10000)
	m.Set(0)
	m.Set(63)
	m.Set(64)
	m.Set(9999)
	tests := []struct{ prev, want int }{
		{-1, 0}, {0, 63}, {63, 64}, {64, 9999}, {9999, -1}, {5000, 9999}, {20000, -1},
	}
	for _, tt := range tests {
		if got := m.Iterate(tt.prev); got != tt.want {
			t.Errorf("Iterate(%d) = %d, want %d", tt.prev, got, tt.want)
		}
	}
}

func TestIterateSubLinear(t *testing.T) {
	const total = 1 << 18
	m := newMultibit(total)
	m.Set(5)
	m.Set(total - 1)
	reads := 0
	m.reads = &reads
	if got := collect(m); len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	// Three levels: each found key costs a few reads per level.
	if reads > 40 {
		t.Errorf("iterating 2 keys over %d read %d words", total, reads)
	}
	reads = 0
	m.Clear()
	if reads > 20 {
		t.Errorf("clearing 2 keys read %d words", reads)
	}
}

func TestSparseIter(t *testing.T) {
	const total = 70000
	keys := []int{3, 64, 4095, 4096, 65000, 3}
	it := BuildSparseIter(keys, total)
	m := newMultibit(total)
	for _, k := range []int{1, 3, 4096, 65000, 69999} {
		m.Set(k)
	}
	type kr struct{ key, rank int }
	var got []kr
	for k, r := it.Begin(m); k >= 0; k, r = it.Next(m, k) {
		got = append(got, kr{k, r})
	}
	want := []kr{{3, 0}, {4096, 3}, {65000, 4}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %v, want %v", i, got[i], want[i])
		}
	}
	it.Unset(m)
	if gotKeys := collect(m); len(gotKeys) != 2 || gotKeys[0] != 1 || gotKeys[1] != 69999 {
		t.Errorf("after Unset keys = %v, want [1 69999]", gotKeys)
	}
}

func TestPlans(t *testing.T) {
	const total = 5000
	m := newMultibit(total)
	m.Set(17)
	p := BuildInitRangePlan(total, 60, 200)
	p.Apply(m)
	got := collect(m)
	if len(got) != 140 || got[0] != 60 || got[len(got)-1] != 199 {
		t.Errorf("init range gave %d keys [%v..]", len(got), got[:1])
	}
	c := BuildClearPlan(total, []int{4999, 2})
	c.Apply(m)
	if got := collect(m); len(got) != 2 || got[0] != 2 || got[1] != 4999 {
		t.Errorf("clear plan gave %v", got)
	}
}

func TestFatbit(t *testing.T) {
	f := NewFatbit(make([]byte, FatbitSize(130)), 130)
	if f.Set(129) || !f.Set(129) {
		t.Error("Set should report prior state")
	}
	f.Set(0)
	f.Set(64)
	if f.Count() != 3 || !f.Any() {
		t.Errorf("Count = %d", f.Count())
	}
	var got []int
	for k := f.Iterate(-1); k >= 0; k = f.Iterate(k) {
		got = append(got, k)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 64 || got[2] != 129 {
		t.Errorf("iterate = %v", got)
	}
	f.Unset(64)
	if f.IsSet(64) {
		t.Error("64 still set")
	}
	f.Clear()
	if f.Any() {
		t.Error("not empty after Clear")
	}
}
