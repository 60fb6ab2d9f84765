package nfa

import (
	"fmt"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/charclass"
	"github.com/coregx/corescan/simd"
)

// AccelKind selects the search an AccelScheme runs.
type AccelKind uint8

const (
	// AccelNone disables acceleration.
	AccelNone AccelKind = iota

	// AccelVerm searches for one byte.
	AccelVerm

	// AccelVermNocase searches for one letter in either case.
	AccelVermNocase

	// AccelDVerm searches for a byte pair at a fixed distance.
	AccelDVerm

	// AccelMemchr2 searches for either of two bytes.
	AccelMemchr2

	// AccelMemchr3 searches for any of three bytes.
	AccelMemchr3

	// AccelShufti searches with nibble bucket masks.
	AccelShufti

	// AccelTruffle searches with a full 256-bit table.
	AccelTruffle
)

func (k AccelKind) String() string {
	switch k {
	case AccelNone:
		return "none"
	case AccelVerm:
		return "verm"
	case AccelVermNocase:
		return "verm-nocase"
	case AccelDVerm:
		return "dverm"
	case AccelMemchr2:
		return "memchr2"
	case AccelMemchr3:
		return "memchr3"
	case AccelShufti:
		return "shufti"
	case AccelTruffle:
		return "truffle"
	}
	return fmt.Sprintf("accel(%d)", k)
}

// maxTruffleStops is the largest stop set worth a search. Beyond it
// nearly every byte stops the scan anyway.
const maxTruffleStops = 240

// AccelScheme skips bytes that cannot change an engine's state.
type AccelScheme struct {
	Kind    AccelKind
	Bytes   [3]byte
	Dist    int
	Shufti  simd.Shufti
	Truffle simd.Truffle
}

// BuildAccel returns the cheapest scheme that stops on every byte of
// stops. An empty stop set yields a scheme that skips everything.
func BuildAccel(stops charclass.Set) AccelScheme {
	n := stops.Count()
	switch {
	case n == 0:
		return AccelScheme{Kind: AccelTruffle}
	case n == 1:
		return AccelScheme{Kind: AccelVerm, Bytes: [3]byte{byte(stops.First())}}
	case n == 2 && stops.IsCaselessChar():
		return AccelScheme{Kind: AccelVermNocase, Bytes: [3]byte{byte(stops.First()) | 0x20}}
	case n == 2:
		bs := stops.Bytes()
		return AccelScheme{Kind: AccelMemchr2, Bytes: [3]byte{bs[0], bs[1]}}
	case n == 3:
		bs := stops.Bytes()
		return AccelScheme{Kind: AccelMemchr3, Bytes: [3]byte{bs[0], bs[1], bs[2]}}
	}
	if n > maxTruffleStops {
		return AccelScheme{Kind: AccelNone}
	}
	table := stops.Table()
	if sh, ok := simd.BuildShufti(table); ok {
		return AccelScheme{Kind: AccelShufti, Shufti: sh}
	}
	return AccelScheme{Kind: AccelTruffle, Truffle: simd.BuildTruffle(table)}
}

// BuildDoubleAccel returns a scheme that stops where first is followed,
// dist bytes later, by second.
func BuildDoubleAccel(first, second byte, dist int) AccelScheme {
	return AccelScheme{Kind: AccelDVerm, Bytes: [3]byte{first, second}, Dist: dist}
}

// Scan returns the first index at or after from that may change state,
// or len(buf).
func (a *AccelScheme) Scan(buf []byte, from int) int {
	if from >= len(buf) {
		return len(buf)
	}
	h := buf[from:]
	i := -1
	switch a.Kind {
	case AccelNone:
		return from
	case AccelVerm:
		i = simd.Memchr(h, a.Bytes[0])
	case AccelVermNocase:
		i = simd.Memchr2(h, a.Bytes[0], a.Bytes[0]&^0x20)
	case AccelMemchr2:
		i = simd.Memchr2(h, a.Bytes[0], a.Bytes[1])
	case AccelMemchr3:
		i = simd.Memchr3(h, a.Bytes[0], a.Bytes[1], a.Bytes[2])
	case AccelShufti:
		i = a.Shufti.Find(h)
	case AccelTruffle:
		i = a.Truffle.Find(h)
	case AccelDVerm:
		i = simd.MemchrPair(h, a.Bytes[0], a.Bytes[1], a.Dist)
		if i < 0 {
			// A pair may straddle the end of the buffer.
			tail := max(0, len(h)-a.Dist)
			if j := simd.Memchr(h[tail:], a.Bytes[0]); j >= 0 {
				i = tail + j
			}
		}
	}
	if i < 0 {
		return len(buf)
	}
	return from + i
}

func (a *AccelScheme) encode(w *bytecode.Writer) {
	w.U8(uint8(a.Kind))
	w.Raw(a.Bytes[:])
	w.U32(uint32(a.Dist))
	w.Raw(a.Shufti.Lo[:])
	w.Raw(a.Shufti.Hi[:])
	for _, b := range a.Truffle.Bits {
		w.U64(b)
	}
}

func decodeAccel(r *bytecode.Reader) AccelScheme {
	var a AccelScheme
	a.Kind = AccelKind(r.U8())
	if a.Kind > AccelTruffle {
		r.Fail("accel kind %d", a.Kind)
	}
	copy(a.Bytes[:], r.Raw(3))
	a.Dist = r.Int()
	if a.Kind == AccelDVerm && (a.Dist < 1 || a.Dist > 8) {
		r.Fail("accel distance %d", a.Dist)
	}
	copy(a.Shufti.Lo[:], r.Raw(16))
	copy(a.Shufti.Hi[:], r.Raw(16))
	for i := range a.Truffle.Bits {
		a.Truffle.Bits[i] = r.U64()
	}
	return a
}
