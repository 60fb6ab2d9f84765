// Package literal defines the fixed strings fed to the literal matchers.
//
// A Literal is an immutable value: a byte string plus the flags that shape
// how a match is confirmed. Besides the bytes themselves a match can be
// constrained by a supplementary and/cmp pair over the final bytes ending
// at the match, which lets a case-insensitive table entry carry a few
// case-sensitive positions, or check bytes in front of the literal without
// a separate verification step.
package literal

import (
	"errors"
	"fmt"
)

// MaxMaskLen is the longest supplementary and/cmp constraint a literal may
// carry.
const MaxMaskLen = 8

// AllGroups is the group mask that enables every group.
const AllGroups = ^uint64(0)

var (
	// ErrEmpty is returned for a literal with no bytes.
	ErrEmpty = errors.New("literal: empty string")

	// ErrMask is returned for a malformed and/cmp constraint.
	ErrMask = errors.New("literal: invalid and/cmp mask")
)

// Literal is a fixed string to match, tagged with a caller-visible id.
//
// Literals are built with New and never modified afterwards; the slices
// are owned by the value.
type Literal struct {
	// Bytes is the string to match. For a caseless literal it is stored
	// folded to lower case.
	Bytes []byte

	// ID is reported with every match. Several literals may share an id.
	ID uint32

	// Nocase makes ASCII letters match in either case.
	Nocase bool

	// NoRuns suppresses a match whose id equals the id of the previous
	// match reported in the same scan call.
	NoRuns bool

	// Groups is the set of group bits that enable this literal. A scan
	// reports the literal only when its group mask shares a bit with
	// Groups. New turns a zero mask into AllGroups.
	Groups uint64

	// Msk and Cmp are parallel slices constraining the final len(Msk)
	// bytes ending at the match end: byte & Msk[i] == Cmp[i]. When the
	// mask is longer than the literal it reaches into the preceding bytes.
	Msk []byte
	Cmp []byte
}

// Option customizes a literal built with New.
type Option func(*Literal)

// Nocase makes the literal case-insensitive.
func Nocase() Option { return func(l *Literal) { l.Nocase = true } }

// NoRuns enables consecutive-duplicate suppression.
func NoRuns() Option { return func(l *Literal) { l.NoRuns = true } }

// Groups sets the literal's group mask.
func Groups(g uint64) Option { return func(l *Literal) { l.Groups = g } }

// Mask sets the supplementary and/cmp constraint.
func Mask(msk, cmp []byte) Option {
	return func(l *Literal) {
		l.Msk = append([]byte(nil), msk...)
		l.Cmp = append([]byte(nil), cmp...)
	}
}

// New builds and validates a literal.
func New(s []byte, id uint32, opts ...Option) (Literal, error) {
	l := Literal{
		Bytes:  append([]byte(nil), s...),
		ID:     id,
		Groups: AllGroups,
	}
	for _, opt := range opts {
		opt(&l)
	}
	if l.Groups == 0 {
		l.Groups = AllGroups
	}
	if l.Nocase {
		Fold(l.Bytes)
	}
	if err := l.Validate(); err != nil {
		return Literal{}, err
	}
	return l, nil
}

// MustNew is New that panics on error, for tables of known-good literals.
func MustNew(s string, id uint32, opts ...Option) Literal {
	l, err := New([]byte(s), id, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Len returns the length of the literal string.
func (l Literal) Len() int { return len(l.Bytes) }

// Extent returns how many bytes ending at a match the literal inspects:
// the longer of the string and its mask.
func (l Literal) Extent() int {
	if len(l.Msk) > len(l.Bytes) {
		return len(l.Msk)
	}
	return len(l.Bytes)
}

// Validate checks the and/cmp constraint. The mask must be at most
// MaxMaskLen bytes, the same length as Cmp, never require a bit it masks
// out, and agree with every literal byte it overlaps.
func (l Literal) Validate() error {
	if len(l.Bytes) == 0 {
		return ErrEmpty
	}
	if len(l.Msk) != len(l.Cmp) {
		return fmt.Errorf("%w: %d mask bytes but %d cmp bytes", ErrMask, len(l.Msk), len(l.Cmp))
	}
	if len(l.Msk) > MaxMaskLen {
		return fmt.Errorf("%w: mask of %d bytes exceeds %d", ErrMask, len(l.Msk), MaxMaskLen)
	}
	for i := range l.Msk {
		if l.Cmp[i]&^l.Msk[i] != 0 {
			return fmt.Errorf("%w: cmp byte %d sets bits outside its mask", ErrMask, i)
		}
	}
	if !l.maskConsistent() {
		return fmt.Errorf("%w: mask contradicts literal %q", ErrMask, l.Bytes)
	}
	return nil
}

// maskConsistent checks that some byte satisfying the literal at each
// position it shares with the mask also satisfies the mask there.
func (l Literal) maskConsistent() bool {
	n, m := len(l.Bytes), len(l.Msk)
	for i := 0; i < m && i < n; i++ {
		mi := m - 1 - i // mask index, counted from the end
		c := l.Bytes[n-1-i]
		ok := c&l.Msk[mi] == l.Cmp[mi]
		if !ok && l.Nocase && isLower(c) {
			ok = (c-32)&l.Msk[mi] == l.Cmp[mi]
		}
		if !ok {
			return false
		}
	}
	return true
}

// Matches reports whether the literal matches the window ending at the
// last byte of data. data must hold at least Extent bytes; callers that
// cannot supply them treat the match as failed.
func (l Literal) Matches(data []byte) bool {
	if len(data) < l.Extent() {
		return false
	}
	tail := data[len(data)-len(l.Bytes):]
	if l.Nocase {
		for i, c := range l.Bytes {
			if ToLower(tail[i]) != c {
				return false
			}
		}
	} else {
		for i, c := range l.Bytes {
			if tail[i] != c {
				return false
			}
		}
	}
	return l.MaskMatches(data)
}

// MaskMatches checks only the and/cmp constraint against the bytes ending
// at the last byte of data.
func (l Literal) MaskMatches(data []byte) bool {
	m := len(l.Msk)
	if m == 0 {
		return true
	}
	if len(data) < m {
		return false
	}
	w := data[len(data)-m:]
	for i := range w {
		if w[i]&l.Msk[i] != l.Cmp[i] {
			return false
		}
	}
	return true
}

// MaxSelfOverlap returns the length of the longest proper suffix of the
// literal that is also a prefix of it. A literal with no self-overlap can
// never produce two matches closer together than its length.
func (l Literal) MaxSelfOverlap() int {
	s := l.Bytes
	for k := len(s) - 1; k > 0; k-- {
		if string(s[:k]) == string(s[len(s)-k:]) {
			return k
		}
	}
	return 0
}

// String renders the literal for diagnostics.
func (l Literal) String() string {
	flags := ""
	if l.Nocase {
		flags += "i"
	}
	if l.NoRuns {
		flags += "r"
	}
	if len(l.Msk) > 0 {
		flags += "m"
	}
	return fmt.Sprintf("%q/%s#%d", l.Bytes, flags, l.ID)
}

// ToLower folds an ASCII upper-case letter to lower case.
func ToLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}

// Fold lower-cases ASCII letters in place.
func Fold(b []byte) {
	for i, c := range b {
		b[i] = ToLower(c)
	}
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

// IsAlpha reports whether c is an ASCII letter.
func IsAlpha(c byte) bool { return isLower(ToLower(c)) }
