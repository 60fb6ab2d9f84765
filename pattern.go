package corescan

import (
	"fmt"
	"strconv"
	"strings"
)

// Flag modifies how a pattern is compiled.
type Flag uint32

const (
	// Caseless matches ASCII letters in either case.
	Caseless Flag = 1 << iota

	// DotAll lets '.' match a newline.
	DotAll

	// SingleMatch reports at most one match for the pattern per scan or
	// stream.
	SingleMatch

	// SomLeftMost reports the leftmost start offset of each match.
	SomLeftMost

	flagMask = Caseless | DotAll | SingleMatch | SomLeftMost
)

var flagChars = []struct {
	c byte
	f Flag
}{
	{'i', Caseless},
	{'s', DotAll},
	{'H', SingleMatch},
	{'L', SomLeftMost},
}

// String returns the flags in pattern-file notation, e.g. "iH".
func (f Flag) String() string {
	var sb strings.Builder
	for _, fc := range flagChars {
		if f&fc.f != 0 {
			sb.WriteByte(fc.c)
		}
	}
	if rest := f &^ flagMask; rest != 0 {
		fmt.Fprintf(&sb, "+%#x", uint32(rest))
	}
	return sb.String()
}

// ExtParams bounds the matches of a pattern. Zero fields are unset.
type ExtParams struct {
	// MinOffset is the smallest end offset a match may have.
	MinOffset uint64

	// MaxOffset is the largest end offset a match may have.
	MaxOffset uint64

	// MinLength is the shortest match. It needs start-of-match tracking,
	// which the compiler adds.
	MinLength uint64
}

// Pattern is one expression of a database.
type Pattern struct {
	Expression string
	Flags      Flag
	ID         uint32
	Ext        *ExtParams
}

// String returns the pattern in "id:/expr/flags" notation.
func (p Pattern) String() string {
	return fmt.Sprintf("%d:/%s/%s", p.ID, p.Expression, p.Flags)
}

// ParsePattern parses "/expr/flags" with an optional "id:" prefix. The
// flags are i (Caseless), s (DotAll), H (SingleMatch) and L
// (SomLeftMost).
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	if i := strings.IndexByte(s, ':'); i > 0 && !strings.HasPrefix(s, "/") {
		id, err := strconv.ParseUint(s[:i], 10, 32)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: bad pattern id %q", ErrInvalid, s[:i])
		}
		p.ID = uint32(id)
		s = s[i+1:]
	}
	end := strings.LastIndexByte(s, '/')
	if !strings.HasPrefix(s, "/") || end == 0 {
		return Pattern{}, fmt.Errorf("%w: pattern %q is not /expr/flags", ErrInvalid, s)
	}
	p.Expression = s[1:end]
	for i := end + 1; i < len(s); i++ {
		f, ok := flagFor(s[i])
		if !ok {
			return Pattern{}, fmt.Errorf("%w: unknown flag %q", ErrInvalidFlags, s[i])
		}
		p.Flags |= f
	}
	return p, nil
}

func flagFor(c byte) (Flag, bool) {
	for _, fc := range flagChars {
		if fc.c == c {
			return fc.f, true
		}
	}
	return 0, false
}

// Literal is one pure literal for CompileLiterals. Data may hold any
// bytes, including NUL.
type Literal struct {
	Data  []byte
	Flags Flag
	ID    uint32
	Ext   *ExtParams
}
