package simd

// Memchr returns the index of the first needle in haystack, or -1.
func Memchr(haystack []byte, needle byte) int {
	n := len(haystack)
	i := 0
	if n >= 8 {
		mask := broadcast(needle)
		for ; i+8 <= n; i += 8 {
			if z := zeroBytes(load64(haystack, i) ^ mask); z != 0 {
				return i + firstLane(z)
			}
		}
	}
	for ; i < n; i++ {
		if haystack[i] == needle {
			return i
		}
	}
	return -1
}

// Memchr2 returns the index of the first byte equal to a or b, or -1.
func Memchr2(haystack []byte, a, b byte) int {
	n := len(haystack)
	i := 0
	if n >= 8 {
		ma, mb := broadcast(a), broadcast(b)
		for ; i+8 <= n; i += 8 {
			w := load64(haystack, i)
			if z := zeroBytes(w^ma) | zeroBytes(w^mb); z != 0 {
				// Each term is only trustworthy up to its own first lane,
				// and the lowest lane of the union is the minimum of the two.
				return i + firstLane(z)
			}
		}
	}
	for ; i < n; i++ {
		if c := haystack[i]; c == a || c == b {
			return i
		}
	}
	return -1
}

// Memchr3 returns the index of the first byte equal to a, b or c, or -1.
func Memchr3(haystack []byte, a, b, c byte) int {
	n := len(haystack)
	i := 0
	if n >= 8 {
		ma, mb, mc := broadcast(a), broadcast(b), broadcast(c)
		for ; i+8 <= n; i += 8 {
			w := load64(haystack, i)
			if z := zeroBytes(w^ma) | zeroBytes(w^mb) | zeroBytes(w^mc); z != 0 {
				return i + firstLane(z)
			}
		}
	}
	for ; i < n; i++ {
		if x := haystack[i]; x == a || x == b || x == c {
			return i
		}
	}
	return -1
}

// MemchrNot returns the index of the first byte that is not needle, or -1.
// This is the negated vermicelli used when a repeat's class is a single
// byte and everything else escapes it.
func MemchrNot(haystack []byte, needle byte) int {
	n := len(haystack)
	i := 0
	if n >= 8 {
		mask := broadcast(needle)
		for ; i+8 <= n; i += 8 {
			if nz := ^exactZeroBytes(load64(haystack, i)^mask) & hi8; nz != 0 {
				return i + firstLane(nz)
			}
		}
	}
	for ; i < n; i++ {
		if haystack[i] != needle {
			return i
		}
	}
	return -1
}

// Memrchr returns the index of the last needle in haystack, or -1.
func Memrchr(haystack []byte, needle byte) int {
	i := len(haystack)
	if i >= 8 {
		mask := broadcast(needle)
		for ; i >= 8; i -= 8 {
			if z := exactZeroBytes(load64(haystack, i-8) ^ mask); z != 0 {
				return i - 8 + lastLane(z)
			}
		}
	}
	for i--; i >= 0; i-- {
		if haystack[i] == needle {
			return i
		}
	}
	return -1
}

// MemchrPair returns the first index i such that haystack[i] == first and
// haystack[i+dist] == second, or -1. dist must be positive.
func MemchrPair(haystack []byte, first, second byte, dist int) int {
	n := len(haystack)
	if dist <= 0 || n <= dist {
		return -1
	}
	i := 0
	if n >= 8+dist {
		m1, m2 := broadcast(first), broadcast(second)
		for ; i+8+dist <= n; i += 8 {
			z := exactZeroBytes(load64(haystack, i)^m1) & exactZeroBytes(load64(haystack, i+dist)^m2)
			if z != 0 {
				return i + firstLane(z)
			}
		}
	}
	for ; i+dist < n; i++ {
		if haystack[i] == first && haystack[i+dist] == second {
			return i
		}
	}
	return -1
}
