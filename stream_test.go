package corescan

import (
	"errors"
	"slices"
	"testing"
)

func TestStreamLifecycle(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/", "2:/end$/")
	s := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	var got []hit
	h := collect(&got)
	for _, chunk := range []string{"xa", "bc t", "he end"} {
		if err := st.Scan([]byte(chunk), s, h, nil); err != nil {
			t.Fatalf("Scan(%q): %v", chunk, err)
		}
	}
	if st.Offset() != 12 {
		t.Errorf("Offset = %d, want 12", st.Offset())
	}
	if err := st.Reset(s, h, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	want := []hit{{1, 0, 4}, {2, 0, 12}}
	if !slices.Equal(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}
	if st.Offset() != 0 {
		t.Errorf("Offset after Reset = %d, want 0", st.Offset())
	}

	got = got[:0]
	if err := st.Scan([]byte("abc"), s, h, nil); err != nil {
		t.Fatalf("Scan after Reset: %v", err)
	}
	if !slices.Equal(got, []hit{{1, 0, 3}}) {
		t.Errorf("matches after Reset = %v", got)
	}
	if err := st.Close(s, h, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Scan([]byte("abc"), s, h, nil); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Scan after Close: %v, want ErrStreamClosed", err)
	}
	if err := st.Close(s, h, nil); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("second Close: %v, want ErrStreamClosed", err)
	}
}

func TestStreamCloseWithoutScratch(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/ab$/")
	s := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	var got []hit
	if err := st.Scan([]byte("ab"), s, collect(&got), nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := st.Close(nil, collect(&got), nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("end of data matches delivered without scratch: %v", got)
	}
}

func TestStreamTerminated(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/")
	s := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	n := 0
	stop := func(uint32, uint64, uint64, any) Action {
		n++
		return Stop
	}
	if err := st.Scan([]byte("abcabc"), s, stop, nil); !errors.Is(err, ErrScanTerminated) {
		t.Fatalf("Scan: %v, want ErrScanTerminated", err)
	}
	if err := st.Scan([]byte("abc"), s, stop, nil); !errors.Is(err, ErrScanTerminated) {
		t.Errorf("Scan after stop: %v, want ErrScanTerminated", err)
	}
	if err := st.Close(s, stop, nil); err != nil {
		t.Errorf("Close: %v", err)
	}
	if n != 1 {
		t.Errorf("handler calls = %d, want 1", n)
	}
}

func TestStreamExhausted(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/H")
	s := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	var got []hit
	h := collect(&got)
	for _, chunk := range []string{"ab", "cabc", "abc"} {
		if err := st.Scan([]byte(chunk), s, h, nil); err != nil {
			t.Fatalf("Scan(%q): %v", chunk, err)
		}
	}
	if !slices.Equal(got, []hit{{1, 0, 3}}) {
		t.Errorf("matches = %v, want one at 3", got)
	}
}

func TestStreamUsageErrors(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/")
	other := mustCompile(t, ModeStream, "2:/xyz/")
	s := mustScratch(t, other)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if err := st.Scan([]byte("ab"), mustScratch(t, db), nil, nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := st.Scan([]byte("c"), s, nil, nil); !errors.Is(err, ErrScratchMismatch) {
		t.Fatalf("Scan with foreign scratch: %v, want ErrScratchMismatch", err)
	}
	if st.Offset() != 2 {
		t.Errorf("Offset after failed Scan = %d, want 2", st.Offset())
	}
	if err := st.Close(s, nil, nil); !errors.Is(err, ErrScratchMismatch) {
		t.Errorf("Close with foreign scratch: %v, want ErrScratchMismatch", err)
	}
	var got []hit
	if err := st.Close(mustScratch(t, db), collect(&got), nil); err != nil {
		t.Errorf("Close: %v", err)
	}
	var nilStream *Stream
	if err := nilStream.Scan(nil, s, nil, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("nil stream: %v", err)
	}
}

func TestStreamClone(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abcdef/", "2:/ab.*yz/")
	s := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if err := st.Scan([]byte("abc"), s, nil, nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	c, err := st.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	var a, b []hit
	if err := st.Scan([]byte("def"), s, collect(&a), nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := c.Scan([]byte("xyz"), s, collect(&b), nil); err != nil {
		t.Fatalf("clone Scan: %v", err)
	}
	if !slices.Equal(a, []hit{{1, 0, 6}}) {
		t.Errorf("original matches = %v", a)
	}
	if !slices.Equal(b, []hit{{2, 0, 6}}) {
		t.Errorf("clone matches = %v", b)
	}
}

func TestStreamMarshal(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abcdef/", "2:/[0-9]{3}x/")
	s := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if err := st.Scan([]byte("zzabc12"), s, nil, nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	b, err := st.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	back, err := db.ExpandStream(b)
	if err != nil {
		t.Fatalf("ExpandStream: %v", err)
	}
	if back.Offset() != st.Offset() {
		t.Errorf("Offset = %d, want %d", back.Offset(), st.Offset())
	}
	var got []hit
	if err := back.Scan([]byte("3xdef"), s, collect(&got), nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []hit{{2, 0, 9}}
	if !slices.Equal(got, want) {
		t.Errorf("matches = %v, want %v", got, want)
	}

	other := mustCompile(t, ModeStream, "1:/q/")
	if _, err := other.ExpandStream(b); !errors.Is(err, ErrInvalid) {
		t.Errorf("ExpandStream into another database: %v", err)
	}
	if _, err := db.ExpandStream(b[:len(b)-1]); !errors.Is(err, ErrInvalid) {
		t.Errorf("ExpandStream of truncated data: %v", err)
	}
}

func TestPackZeros(t *testing.T) {
	tests := [][]byte{
		{},
		{0, 0, 0, 0},
		{1, 2, 3},
		{0, 1, 0, 0, 2, 2, 0},
		append(make([]byte, 300), 9),
	}
	for _, src := range tests {
		p := packZeros(nil, src)
		dst := make([]byte, len(src))
		for i := range dst {
			dst[i] = 0xee
		}
		if err := unpackZeros(dst, p); err != nil {
			t.Errorf("unpack %v: %v", src, err)
			continue
		}
		if !slices.Equal(dst, src) {
			t.Errorf("round trip %v = %v", src, dst)
		}
	}
	if err := unpackZeros(make([]byte, 2), packZeros(nil, []byte{1, 2, 3})); err == nil {
		t.Error("unpack into short buffer succeeded")
	}
}

func TestStreamInUse(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/")
	s1 := mustScratch(t, db)
	s2 := mustScratch(t, db)
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	var errs []error
	err = st.Scan([]byte("xxabcxx"), s1, func(uint32, uint64, uint64, any) Action {
		errs = append(errs, st.Scan([]byte("zzzz"), s2, nil, nil))
		errs = append(errs, st.Reset(s2, nil, nil))
		_, cerr := st.Clone()
		errs = append(errs, cerr)
		_, merr := st.MarshalBinary()
		errs = append(errs, merr)
		errs = append(errs, st.Close(s2, nil, nil))
		return Continue
	}, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(errs) != 5 {
		t.Fatalf("handler ran %d calls, want 5", len(errs))
	}
	for i, e := range errs {
		if !errors.Is(e, ErrStreamInUse) {
			t.Errorf("nested call %d: %v, want ErrStreamInUse", i, e)
		}
	}
	if st.Offset() != 7 {
		t.Errorf("Offset = %d, want 7", st.Offset())
	}
	if err := st.Scan([]byte("abc"), s2, nil, nil); err != nil {
		t.Errorf("Scan after the outer call returned: %v", err)
	}
	if err := st.Close(s1, nil, nil); err != nil {
		t.Errorf("Close: %v", err)
	}
}
