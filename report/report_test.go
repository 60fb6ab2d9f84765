package report

import "testing"

func TestManagerIntern(t *testing.T) {
	m := NewManager()
	a := m.Intern(NewExternal(7))
	b := m.Intern(NewExternal(7))
	if a != b {
		t.Errorf("identical reports interned to %d and %d", a, b)
	}
	bounded := NewExternal(7)
	bounded.MinOffset = 10
	c := m.Intern(bounded)
	if c == a {
		t.Error("bounded report shares an id with the unbounded one")
	}
	if m.Get(a).Dkey != m.Get(c).Dkey {
		t.Error("reports of one pattern should share a dkey")
	}
	d := m.Intern(NewExternal(8))
	if m.Get(d).Dkey == m.Get(a).Dkey {
		t.Error("different patterns share a dkey")
	}
	ch := m.Intern(NewChain(0, 3))
	if m.Get(ch).Dkey != NoDkey {
		t.Error("chain reports are not deduplicated")
	}
	if m.NumDkeys() != 2 {
		t.Errorf("NumDkeys = %d, want 2", m.NumDkeys())
	}
}

func TestExhaustion(t *testing.T) {
	m := NewManager()
	r := NewExternal(1)
	r.Ekey = m.Ekey(1)
	id := m.Intern(r)
	if !m.IsSimpleExhaustible(id) || !m.AllExhaustible() {
		t.Error("single-match report should be exhaustible")
	}
	if m.Ekey(1) != r.Ekey {
		t.Error("Ekey not stable per pattern")
	}
	m.Intern(NewExternal(2))
	if m.AllExhaustible() {
		t.Error("table with an unbounded multi-match report reported exhaustible")
	}
}

func TestBounds(t *testing.T) {
	r := NewExternal(0)
	if r.HasBounds() || !r.InBounds(0, 1<<40) {
		t.Error("default report has bounds")
	}
	r.MinOffset, r.MaxOffset, r.MinLength = 10, 15, 4
	tests := []struct {
		start, end uint64
		want       bool
	}{
		{0, 10, true},
		{0, 9, false},
		{0, 16, false},
		{8, 12, true},
		{9, 12, false},
	}
	for _, tt := range tests {
		if got := r.InBounds(tt.start, tt.end); got != tt.want {
			t.Errorf("InBounds(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestSet(t *testing.T) {
	var s Set
	for _, id := range []ID{5, 1, 3, 5, 1} {
		s = s.Insert(id)
	}
	if !s.Equal(Set{1, 3, 5}) {
		t.Errorf("set = %v", s)
	}
	if !s.Contains(3) || s.Contains(2) {
		t.Error("Contains wrong")
	}
	if u := s.Union(Set{2, 5}); !u.Equal(Set{1, 2, 3, 5}) {
		t.Errorf("Union = %v", u)
	}
}
