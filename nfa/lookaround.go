package nfa

import (
	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/charclass"
)

// LookEntry constrains the byte at Offset relative to a match end. An
// Offset of -1 is the last byte of the match.
type LookEntry struct {
	Offset int8
	Reach  charclass.Set
}

// CheckLookaround reports whether every entry holds for a match ending at
// buffer-relative position end. Positions before the buffer are read from
// hist, whose last byte immediately precedes buf[0]. A byte that is not
// available fails its entry.
func CheckLookaround(look []LookEntry, hist, buf []byte, end int) bool {
	for _, le := range look {
		p := end + int(le.Offset)
		var c byte
		switch {
		case p >= len(buf):
			return false
		case p >= 0:
			c = buf[p]
		case -p <= len(hist):
			c = hist[len(hist)+p]
		default:
			return false
		}
		if !le.Reach.Test(c) {
			return false
		}
	}
	return true
}

// EncodeLookaround appends entries to a bytecode stream.
func EncodeLookaround(w *bytecode.Writer, look []LookEntry) {
	w.Int(len(look))
	for _, le := range look {
		w.U8(uint8(le.Offset))
		for _, x := range le.Reach {
			w.U64(x)
		}
	}
}

// DecodeLookaround reads entries written by EncodeLookaround.
func DecodeLookaround(r *bytecode.Reader) []LookEntry {
	n := r.Count(256)
	if n == 0 {
		return nil
	}
	look := make([]LookEntry, n)
	for i := range look {
		look[i].Offset = int8(r.U8())
		for j := range look[i].Reach {
			look[i].Reach[j] = r.U64()
		}
	}
	return look
}
