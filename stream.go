package corescan

import (
	"encoding/binary"
	"fmt"

	"github.com/coregx/corescan/alloc"
	"github.com/coregx/corescan/rose"
)

// streamMagic opens a marshalled stream.
const streamMagic = 0x5354524d

// Stream is an open stream over a stream mode database. Its state lives
// in one buffer from the stream allocator; every write resumes from it.
//
// A Stream serves one call at a time. A call made while another is in
// progress, including from a handler, fails with ErrStreamInUse.
type Stream struct {
	db     *Database
	state  []byte
	mem    alloc.Funcs
	closed bool
	busy   atomicFlag
}

// OpenStream opens a stream at offset 0.
func (db *Database) OpenStream(opts ...Option) (*Stream, error) {
	if err := db.check(ModeStream); err != nil {
		return nil, err
	}
	f := newOptions(opts).allocator().Stream
	state, err := f.Get(db.rt.StreamStateSize())
	if err != nil {
		return nil, err
	}
	db.rt.InitStream(state)
	return &Stream{db: db, state: state, mem: f}, nil
}

func (st *Stream) usable() error {
	switch {
	case st == nil:
		return ErrInvalid
	case st.closed:
		return ErrStreamClosed
	case st.state == nil || st.db.freed.Load():
		return ErrInvalid
	}
	return nil
}

// enter checks st and marks it busy. The caller must drop the flag.
func (st *Stream) enter() error {
	if err := st.usable(); err != nil {
		return err
	}
	if !st.busy.take() {
		return ErrStreamInUse
	}
	return nil
}

// Scan writes the next block of the stream. A terminated stream returns
// ErrScanTerminated without calling h; an exhausted one returns nil
// without scanning.
func (st *Stream) Scan(data []byte, s *Scratch, h Handler, ctx any) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.busy.drop()
	status := rose.StreamStatus(st.state)
	if status&rose.StatusTerminated != 0 {
		return ErrScanTerminated
	}
	if status&rose.StatusExhausted != 0 {
		return nil
	}
	rs, err := s.acquire(st.db)
	if err != nil {
		return err
	}
	defer s.release()
	k := sink{h: h, ctx: ctx}
	status = rs.StreamWrite(st.state, data, k.match)
	return st.db.finish(ModeStream, len(data), k.n, status)
}

// eod delivers the end of data matches.
func (st *Stream) eod(s *Scratch, h Handler, ctx any) error {
	if rose.StreamStatus(st.state)&(rose.StatusTerminated|rose.StatusExhausted) != 0 {
		return nil
	}
	rs, err := s.acquire(st.db)
	if err != nil {
		return err
	}
	defer s.release()
	k := sink{h: h, ctx: ctx}
	status := rs.StreamClose(st.state, k.match)
	_ = st.db.finish(ModeStream, 0, k.n, status)
	return nil
}

// Close ends the stream. With a scratch, matches at end of data are
// delivered to h first; with a nil scratch they are dropped. A Stop from
// h during Close is not an error.
func (st *Stream) Close(s *Scratch, h Handler, ctx any) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.busy.drop()
	if s != nil {
		if err := st.eod(s, h, ctx); err != nil {
			return err
		}
	}
	st.mem.Put(st.state)
	st.state = nil
	st.closed = true
	return nil
}

// Reset ends the stream like Close and reopens it at offset 0.
func (st *Stream) Reset(s *Scratch, h Handler, ctx any) error {
	if err := st.enter(); err != nil {
		return err
	}
	defer st.busy.drop()
	if s != nil {
		if err := st.eod(s, h, ctx); err != nil {
			return err
		}
	}
	st.db.rt.InitStream(st.state)
	return nil
}

// Clone returns an independent copy of the stream.
func (st *Stream) Clone() (*Stream, error) {
	if err := st.enter(); err != nil {
		return nil, err
	}
	defer st.busy.drop()
	state, err := st.mem.Get(len(st.state))
	if err != nil {
		return nil, err
	}
	copy(state, st.state)
	return &Stream{db: st.db, state: state, mem: st.mem}, nil
}

// Offset returns the number of bytes written to the stream.
func (st *Stream) Offset() uint64 {
	if st.usable() != nil {
		return 0
	}
	return rose.StreamOffset(st.state)
}

// MarshalBinary returns the stream state in compressed form. Runs of
// zero bytes, which dominate idle state, are stored as counts.
func (st *Stream) MarshalBinary() ([]byte, error) {
	if err := st.enter(); err != nil {
		return nil, err
	}
	defer st.busy.drop()
	out := make([]byte, 12, 12+len(st.state)/4)
	binary.LittleEndian.PutUint32(out[0:], streamMagic)
	binary.LittleEndian.PutUint32(out[4:], st.db.hdr.Checksum)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(st.state)))
	return packZeros(out, st.state), nil
}

// ExpandStream rebuilds a stream marshalled from a stream of db.
func (db *Database) ExpandStream(b []byte, opts ...Option) (*Stream, error) {
	if err := db.check(ModeStream); err != nil {
		return nil, err
	}
	if len(b) < 12 || binary.LittleEndian.Uint32(b) != streamMagic {
		return nil, fmt.Errorf("%w: not a marshalled stream", ErrInvalid)
	}
	if binary.LittleEndian.Uint32(b[4:]) != db.hdr.Checksum {
		return nil, fmt.Errorf("%w: stream belongs to another database", ErrInvalid)
	}
	size := db.rt.StreamStateSize()
	if int(binary.LittleEndian.Uint32(b[8:])) != size {
		return nil, fmt.Errorf("%w: stream state size mismatch", ErrInvalid)
	}
	f := newOptions(opts).allocator().Stream
	state, err := f.Get(size)
	if err != nil {
		return nil, err
	}
	if err := unpackZeros(state, b[12:]); err != nil {
		f.Put(state)
		return nil, err
	}
	return &Stream{db: db, state: state, mem: f}, nil
}

// packZeros appends src as pairs of (literal length, literal bytes,
// zero run length), all lengths as uvarints.
func packZeros(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		j := i
		for j < len(src) && src[j] != 0 {
			j++
		}
		k := j
		for k < len(src) && src[k] == 0 {
			k++
		}
		dst = binary.AppendUvarint(dst, uint64(j-i))
		dst = append(dst, src[i:j]...)
		dst = binary.AppendUvarint(dst, uint64(k-j))
		i = k
	}
	return dst
}

func unpackZeros(dst, src []byte) error {
	bad := fmt.Errorf("%w: corrupt stream encoding", ErrInvalid)
	i := 0
	for len(src) > 0 {
		lit, n := binary.Uvarint(src)
		if n <= 0 || lit > uint64(len(src)-n) || lit > uint64(len(dst)-i) {
			return bad
		}
		src = src[n:]
		i += copy(dst[i:], src[:lit])
		src = src[lit:]
		zeros, n := binary.Uvarint(src)
		if n <= 0 || zeros > uint64(len(dst)-i) {
			return bad
		}
		src = src[n:]
		clear(dst[i : i+int(zeros)])
		i += int(zeros)
	}
	if i != len(dst) {
		return bad
	}
	return nil
}
