package simd

// MemchrInTable returns the index of the first byte b with table[b] set,
// or -1.
func MemchrInTable(haystack []byte, table *[256]bool) int {
	for i, b := range haystack {
		if table[b] {
			return i
		}
	}
	return -1
}

// MemchrNotInTable returns the index of the first byte b with table[b]
// clear, or -1.
func MemchrNotInTable(haystack []byte, table *[256]bool) int {
	for i, b := range haystack {
		if !table[b] {
			return i
		}
	}
	return -1
}

// Shufti is a nibble-mask class matcher. A byte b belongs to the class
// when Lo[b&0xf] & Hi[b>>4] is non-zero. Each bit of the masks is a
// bucket: a bucket holds one "high nibble set x low nibble set" rectangle,
// and up to eight rectangles can be unioned.
type Shufti struct {
	Lo [16]uint8
	Hi [16]uint8
}

// BuildShufti tries to represent the 256-entry membership table with at
// most eight nibble rectangles. It groups all bytes that share an
// identical low-nibble column into one bucket. It returns false when more
// than eight buckets would be needed.
func BuildShufti(table *[256]bool) (Shufti, bool) {
	var s Shufti
	// For every high nibble, which low nibbles are members.
	var rows [16]uint16
	for b := 0; b < 256; b++ {
		if table[b] {
			rows[b>>4] |= 1 << (b & 0xf)
		}
	}
	var buckets []uint16
	for hi := 0; hi < 16; hi++ {
		if rows[hi] == 0 {
			continue
		}
		idx := -1
		for i, r := range buckets {
			if r == rows[hi] {
				idx = i
				break
			}
		}
		if idx < 0 {
			if len(buckets) == 8 {
				return Shufti{}, false
			}
			idx = len(buckets)
			buckets = append(buckets, rows[hi])
		}
		s.Hi[hi] |= 1 << idx
	}
	for i, r := range buckets {
		for lo := 0; lo < 16; lo++ {
			if r&(1<<lo) != 0 {
				s.Lo[lo] |= 1 << i
			}
		}
	}
	return s, true
}

// Contains reports whether b is in the class.
func (s *Shufti) Contains(b byte) bool {
	return s.Lo[b&0xf]&s.Hi[b>>4] != 0
}

// Find returns the index of the first byte in the class, or -1.
func (s *Shufti) Find(haystack []byte) int {
	for i, b := range haystack {
		if s.Lo[b&0xf]&s.Hi[b>>4] != 0 {
			return i
		}
	}
	return -1
}

// Truffle is a full 256-bit class matcher, used when a class cannot be
// packed into Shufti buckets.
type Truffle struct {
	Bits [4]uint64
}

// BuildTruffle packs a membership table.
func BuildTruffle(table *[256]bool) Truffle {
	var t Truffle
	for b := 0; b < 256; b++ {
		if table[b] {
			t.Bits[b>>6] |= 1 << (b & 63)
		}
	}
	return t
}

// Contains reports whether b is in the class.
func (t *Truffle) Contains(b byte) bool {
	return t.Bits[b>>6]&(1<<(b&63)) != 0
}

// Find returns the index of the first byte in the class, or -1.
func (t *Truffle) Find(haystack []byte) int {
	for i, b := range haystack {
		if t.Bits[b>>6]&(1<<(b&63)) != 0 {
			return i
		}
	}
	return -1
}
