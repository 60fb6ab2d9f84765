// Package conv provides checked integer conversions used when sizing
// compiled structures and packing them into the bytecode format.
//
// The conversions panic on overflow. Every caller has already bounded its
// input against a compile-time limit, so an overflow here is a programming
// error rather than a user-facing condition.
package conv

import "math"

// IntToUint32 converts n to uint32, panicking if it does not fit.
func IntToUint32(n int) uint32 {
	// Compare as uint so the check is also correct where int is 32 bits.
	if n < 0 || uint(n) > math.MaxUint32 {
		panic("conv: int value out of uint32 range")
	}
	return uint32(n)
}

// IntToUint16 converts n to uint16, panicking if it does not fit.
func IntToUint16(n int) uint16 {
	if n < 0 || n > math.MaxUint16 {
		panic("conv: int value out of uint16 range")
	}
	return uint16(n)
}

// IntToUint8 converts n to uint8, panicking if it does not fit.
func IntToUint8(n int) uint8 {
	if n < 0 || n > math.MaxUint8 {
		panic("conv: int value out of uint8 range")
	}
	return uint8(n)
}

// IntToInt8 converts n to int8, panicking if it does not fit.
func IntToInt8(n int) int8 {
	if n < math.MinInt8 || n > math.MaxInt8 {
		panic("conv: int value out of int8 range")
	}
	return int8(n)
}

// Uint64ToInt converts n to int, panicking if it does not fit.
func Uint64ToInt(n uint64) int {
	if n > math.MaxInt {
		panic("conv: uint64 value out of int range")
	}
	return int(n)
}

// AlignUp rounds n up to the next multiple of align, which must be a power
// of two.
func AlignUp(n, align int) int {
	if align <= 0 || align&(align-1) != 0 {
		panic("conv: alignment must be a power of two")
	}
	return (n + align - 1) &^ (align - 1)
}
