package simd

import "bytes"

// Memmem returns the index of the first occurrence of needle in haystack,
// or -1. An empty needle matches at 0.
//
// The search anchors on the rarest needle byte (see ByteFrequencies),
// scans for it with Memchr and verifies the surrounding window. This keeps
// the number of verifications low on typical input, where the first byte
// of a needle is often a very common letter.
func Memmem(haystack, needle []byte) int {
	m := len(needle)
	switch {
	case m == 0:
		return 0
	case m > len(haystack):
		return -1
	case m == 1:
		return Memchr(haystack, needle[0])
	}
	rare := RareIndex(needle, false)
	b := needle[rare]
	// Candidate anchors live in [rare, len-m+rare].
	from := rare
	last := len(haystack) - m + rare
	for from <= last {
		p := Memchr(haystack[from:last+1], b)
		if p < 0 {
			return -1
		}
		p += from
		start := p - rare
		if bytes.Equal(haystack[start:start+m], needle) {
			return start
		}
		from = p + 1
	}
	return -1
}

// MemmemFold is Memmem with ASCII case folding on both sides.
func MemmemFold(haystack, needle []byte) int {
	m := len(needle)
	switch {
	case m == 0:
		return 0
	case m > len(haystack):
		return -1
	}
	rare := RareIndex(needle, true)
	b := needle[rare]
	o := otherCase(b)
	from := rare
	last := len(haystack) - m + rare
	for from <= last {
		p := Memchr2(haystack[from:last+1], b, o)
		if p < 0 {
			return -1
		}
		p += from
		start := p - rare
		if asciiFoldEqual(haystack[start:start+m], needle) {
			return start
		}
		from = p + 1
	}
	return -1
}

// asciiFoldEqual compares with ASCII-only case folding. bytes.EqualFold
// would also fold UTF-8 sequences, which is wider than byte semantics.
func asciiFoldEqual(a, b []byte) bool {
	for i := range a {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		if otherCase(x) != y {
			return false
		}
	}
	return true
}
