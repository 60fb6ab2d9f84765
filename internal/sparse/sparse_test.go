package sparse

import "testing"

func TestSet_Basic(t *testing.T) {
	s := New(100)
	if !s.IsEmpty() {
		t.Error("new set should be empty")
	}
	if s.Contains(0) {
		t.Error("empty set should not contain 0")
	}
	if !s.Insert(5) {
		t.Error("first insert should return true")
	}
	if s.Insert(5) {
		t.Error("duplicate insert should return false")
	}
	if !s.Contains(5) {
		t.Error("set should contain 5")
	}
	s.Insert(10)
	s.Insert(3)
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	s.Clear()
	if !s.IsEmpty() || s.Contains(5) {
		t.Error("cleared set should be empty")
	}
}

func TestSet_OutOfRange(t *testing.T) {
	s := New(4)
	for _, v := range []int{-1, 4, 1000} {
		if s.Contains(v) {
			t.Errorf("Contains(%d) = true for out-of-range value", v)
		}
	}
}

func TestSet_InsertionOrderAndWorklist(t *testing.T) {
	s := New(16)
	s.Insert(7)
	var seen []int
	// Breadth-first style walk: inserting during Each extends the walk.
	s.Each(func(v int) {
		seen = append(seen, v)
		if v > 1 {
			s.Insert(v / 2)
		}
	})
	want := []int{7, 3, 1}
	if len(seen) != len(want) {
		t.Fatalf("walk = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("walk[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestSet_Remove(t *testing.T) {
	s := New(10)
	for _, v := range []int{1, 2, 3, 4} {
		s.Insert(v)
	}
	s.Remove(2)
	s.Remove(9) // absent
	if s.Contains(2) {
		t.Error("2 should be removed")
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	for _, v := range []int{1, 3, 4} {
		if !s.Contains(v) {
			t.Errorf("%d should remain", v)
		}
	}
}

func TestSet_Resize(t *testing.T) {
	s := New(4)
	s.Insert(3)
	s.Resize(64)
	if s.Cap() != 64 || !s.IsEmpty() {
		t.Fatalf("Resize: cap=%d len=%d", s.Cap(), s.Len())
	}
	if !s.Insert(63) {
		t.Error("insert after resize failed")
	}
	s.Resize(2)
	if s.Cap() != 2 || s.Contains(63) {
		t.Error("shrinking resize should drop members")
	}
}
