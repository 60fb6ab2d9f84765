// Package sparse provides a sparse set over dense integer indices.
//
// Graph passes use it for visited sets and work queues: insertion, removal
// and membership are O(1), clearing is O(1), and iteration touches only the
// members rather than the whole index space. Insertion order is preserved
// until the first Remove, which lets a set double as a FIFO worklist.
package sparse

// Set is a set of ints drawn from [0, capacity).
type Set struct {
	sparse []int32 // value -> position in dense
	dense  []int32 // members in insertion order
}

// New returns an empty set able to hold values in [0, capacity).
func New(capacity int) *Set {
	return &Set{
		sparse: make([]int32, capacity),
		dense:  make([]int32, 0, capacity),
	}
}

// Cap returns the exclusive upper bound on values.
func (s *Set) Cap() int { return len(s.sparse) }

// Resize discards the contents and changes the capacity.
func (s *Set) Resize(capacity int) {
	if capacity <= cap(s.sparse) {
		s.sparse = s.sparse[:capacity]
	} else {
		s.sparse = make([]int32, capacity)
		s.dense = make([]int32, 0, capacity)
	}
	s.dense = s.dense[:0]
}

// Insert adds v and reports whether it was newly added.
func (s *Set) Insert(v int) bool {
	if s.Contains(v) {
		return false
	}
	s.sparse[v] = int32(len(s.dense))   //nolint:gosec // bounded by capacity
	s.dense = append(s.dense, int32(v)) //nolint:gosec // bounded by capacity
	return true
}

// Contains reports whether v is a member. Out-of-range values are never
// members.
func (s *Set) Contains(v int) bool {
	if v < 0 || v >= len(s.sparse) {
		return false
	}
	i := s.sparse[v]
	return int(i) < len(s.dense) && int(s.dense[i]) == v
}

// Remove deletes v if present. It moves the last member into v's slot, so
// it does not preserve insertion order.
func (s *Set) Remove(v int) {
	if !s.Contains(v) {
		return
	}
	i := s.sparse[v]
	last := s.dense[len(s.dense)-1]
	s.dense[i] = last
	s.sparse[last] = i
	s.dense = s.dense[:len(s.dense)-1]
}

// Clear empties the set in constant time.
func (s *Set) Clear() { s.dense = s.dense[:0] }

// Len returns the number of members.
func (s *Set) Len() int { return len(s.dense) }

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool { return len(s.dense) == 0 }

// At returns the i'th member in dense order.
func (s *Set) At(i int) int { return int(s.dense[i]) }

// Each calls fn for every member in dense order. Members inserted during
// the walk are visited too, which is what breadth-first passes rely on.
func (s *Set) Each(fn func(v int)) {
	for i := 0; i < len(s.dense); i++ {
		fn(int(s.dense[i]))
	}
}
