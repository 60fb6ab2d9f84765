// Package bytecode implements the little-endian encoding used by the
// compiled database blob.
//
// A Writer appends fixed-width fields and length-prefixed byte strings and
// can pad to an alignment or patch a reserved field once its value is
// known. A Reader decodes the same stream with bounds checking: the first
// out-of-range read latches ErrCorrupt, later reads return zero values,
// and the caller checks Err once at the end.
package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Align is the alignment of every section in the blob.
const Align = 8

// ErrCorrupt is returned when bytecode fails to decode.
var ErrCorrupt = errors.New("bytecode: corrupt")

// Writer accumulates encoded fields.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the encoded stream. The slice aliases the writer.
func (w *Writer) Bytes() []byte { return w.buf }

// U8 appends a byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// Bool appends a byte holding 0 or 1.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// I32 appends a signed 32-bit value.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// Int appends a non-negative int as a uint32.
func (w *Writer) Int(v int) {
	if v < 0 || v > 1<<32-1 {
		panic(fmt.Sprintf("bytecode: int %d out of range", v))
	}
	w.U32(uint32(v))
}

// Blob appends a length-prefixed byte string.
func (w *Writer) Blob(b []byte) {
	w.Int(len(b))
	w.buf = append(w.buf, b...)
}

// Raw appends bytes without a length prefix.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// Pad appends zero bytes up to the next multiple of n.
func (w *Writer) Pad(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// Reserve32 appends a zero uint32 and returns its position for Patch32.
func (w *Writer) Reserve32() int {
	at := len(w.buf)
	w.U32(0)
	return at
}

// Patch32 overwrites the uint32 at a position returned by Reserve32.
func (w *Writer) Patch32(at int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[at:], v)
}

// Reader decodes a stream written by Writer.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a reader over b.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Err returns the first decoding error.
func (r *Reader) Err() error { return r.err }

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Fail latches a decoding error describing a semantic inconsistency.
func (r *Reader) Fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s at offset %d", ErrCorrupt, fmt.Sprintf(format, args...), r.off)
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.Fail("read of %d bytes past end", n)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads a byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a byte written by Writer.Bool.
func (r *Reader) Bool() bool {
	switch r.U8() {
	case 0:
		return false
	case 1:
		return true
	default:
		r.Fail("invalid bool")
		return false
	}
}

// U16 reads a uint16.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64 reads a uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I32 reads a signed 32-bit value.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// Int reads a uint32 written by Writer.Int.
func (r *Reader) Int() int { return int(r.U32()) }

// Count reads a length and checks it against max and the unread bytes,
// so that a corrupt length cannot drive a huge allocation. Every counted
// element takes at least one byte of the encoding.
func (r *Reader) Count(max int) int {
	n := r.Int()
	if n > max {
		r.Fail("count %d exceeds %d", n, max)
		return 0
	}
	if n > r.Remaining() {
		r.Fail("count %d exceeds the %d bytes left", n, r.Remaining())
		return 0
	}
	return n
}

// Blob reads a length-prefixed byte string. The result is a copy.
func (r *Reader) Blob() []byte {
	n := r.Int()
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Raw reads n bytes without copying.
func (r *Reader) Raw(n int) []byte { return r.take(n) }

// Pad skips to the next multiple of n.
func (r *Reader) Pad(n int) {
	for r.err == nil && r.off%n != 0 {
		r.U8()
	}
}
