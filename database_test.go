package corescan

import (
	"encoding/binary"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/coregx/corescan/bytecode"
)

var serialPatterns = []string{"1:/foo/", "2:/ba[rz]+/i", "3:/x.*y/s", "4:/[0-9]{4}/H"}

const serialData = "foo BAR bazz 12345 x\ny 9999"

func TestSerializeRoundTrip(t *testing.T) {
	db := mustCompile(t, ModeBlock, serialPatterns...)
	want := scanBlock(t, db, mustScratch(t, db), serialData)
	blob, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if n, err := SerializedSize(blob); err != nil || n != db.Size() {
		t.Errorf("SerializedSize = %d, %v; want %d", n, err, db.Size())
	}

	for off := range 16 {
		buf := make([]byte, len(blob)+16)
		b := buf[off : off+len(blob)]
		copy(b, blob)
		got, err := Deserialize(b)
		if err != nil {
			t.Fatalf("offset %d: Deserialize: %v", off, err)
		}
		if m := scanBlock(t, got, mustScratch(t, got), serialData); !slices.Equal(m, want) {
			t.Errorf("offset %d: matches = %v, want %v", off, m, want)
		}
		if got.Info() != db.Info() {
			t.Errorf("offset %d: Info = %q, want %q", off, got.Info(), db.Info())
		}
		got.Free()
	}

	dst := make([]byte, len(blob)+8)
	at, err := DeserializeAt(blob, dst)
	if err != nil {
		t.Fatalf("DeserializeAt: %v", err)
	}
	if m := scanBlock(t, at, mustScratch(t, at), serialData); !slices.Equal(m, want) {
		t.Errorf("DeserializeAt: matches = %v, want %v", m, want)
	}
	if _, err := DeserializeAt(blob, dst[1:]); !errors.Is(err, ErrBadAlign) {
		t.Errorf("misaligned target: %v, want ErrBadAlign", err)
	}
	if _, err := DeserializeAt(blob, dst[:len(blob)-1]); !errors.Is(err, ErrInvalid) {
		t.Errorf("short target: %v, want ErrInvalid", err)
	}
}

func TestSerializeStream(t *testing.T) {
	db := mustCompile(t, ModeStream|ModeSomHorizonMedium, "1:/abc/", "2:/d[ef]+g/")
	blob, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(blob)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	defer got.Free()
	if got.Mode() != db.Mode() {
		t.Errorf("Mode = %v, want %v", got.Mode(), db.Mode())
	}
	a, _ := db.StreamSize()
	b, _ := got.StreamSize()
	if a != b {
		t.Errorf("StreamSize = %d, want %d", b, a)
	}
	const data = "xabcdeefg abc"
	want := scanStream(t, db, mustScratch(t, db), data, 3, 7)
	if m := scanStream(t, got, mustScratch(t, got), data, 3, 7); !slices.Equal(m, want) {
		t.Errorf("matches = %v, want %v", m, want)
	}
}

func TestDeserializeErrors(t *testing.T) {
	db := mustCompile(t, ModeBlock, serialPatterns...)
	blob, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	patch := func(f func(b []byte)) []byte {
		b := slices.Clone(blob)
		f(b)
		return b
	}
	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"empty", nil, ErrInvalid},
		{"truncated", blob[:len(blob)-1], ErrInvalid},
		{"header only", blob[:bytecode.HeaderSize-1], ErrInvalid},
		{"magic", patch(func(b []byte) { b[0] ^= 0xff }), ErrInvalid},
		{"version", patch(func(b []byte) {
			binary.LittleEndian.PutUint32(b[4:], bytecode.MakeVersion(VersionMajor+1, 0, 0))
		}), ErrDBVersionError},
		{"mode", patch(func(b []byte) { binary.LittleEndian.PutUint32(b[16:], 0) }), ErrInvalid},
		{"platform", patch(func(b []byte) {
			binary.LittleEndian.PutUint64(b[24:], uint64(FeatureAVX512|FeatureNEON))
		}), ErrDBPlatformError},
		{"checksum", patch(func(b []byte) { b[len(b)-1] ^= 0x5a }), ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Deserialize(tt.blob); !errors.Is(err, tt.want) {
				t.Errorf("Deserialize error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := SerializedInfo(patch(func(b []byte) { b[0] = 0 })); !errors.Is(err, ErrInvalid) {
		t.Errorf("SerializedInfo with bad magic: %v", err)
	}
}

func TestInfo(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/")
	info := db.Info()
	if !strings.HasPrefix(info, "Version: 1.0.0 Features: ") || !strings.HasSuffix(info, " Mode: STREAM") {
		t.Errorf("Info = %q", info)
	}
	blob, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if s, err := SerializedInfo(blob); err != nil || s != info {
		t.Errorf("SerializedInfo = %q, %v; want %q", s, err, info)
	}
}

func TestPlatformOverride(t *testing.T) {
	p := Platform{Features: FeatureAVX2 | FeatureAVX512, VectorWidth: 64}
	db, err := Compile(parsePatterns(t, "1:/abc/"), ModeBlock, WithPlatform(p))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer db.Free()
	if !strings.Contains(db.Info(), "AVX512") {
		t.Errorf("Info = %q, want AVX512 listed", db.Info())
	}
	blob, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	_, err = Deserialize(blob)
	if PopulatePlatform().supports(FeatureAVX512) {
		if err != nil {
			t.Errorf("Deserialize on AVX512 host: %v", err)
		}
	} else if !errors.Is(err, ErrDBPlatformError) {
		t.Errorf("Deserialize without AVX512: %v, want ErrDBPlatformError", err)
	}

	if _, err := Compile(parsePatterns(t, "1:/abc/"), ModeBlock, WithPlatform(Platform{VectorWidth: 32})); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("width 32 without AVX2: %v", err)
	}
}

func TestFreedDatabase(t *testing.T) {
	db, err := Compile(parsePatterns(t, "1:/a/"), ModeBlock)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s := mustScratch(t, db)
	if err := db.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := db.Free(); !errors.Is(err, ErrInvalid) {
		t.Errorf("second Free: %v", err)
	}
	if err := db.Scan([]byte("a"), s, nil, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("Scan after Free: %v", err)
	}
	if _, err := db.Serialize(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Serialize after Free: %v", err)
	}
}

func TestCorruptBody(t *testing.T) {
	db := mustCompile(t, ModeStream, "1:/abc/", "2:/d[ef]+g/", "3:/x[0-9]{3,5}y/", "4:/^foo.*bar/s", "5:/[ab]+[cd]/")
	blob, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	h, err := bytecode.ParseHeader(blob)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	step := 1
	if testing.Short() {
		step = 13
	}
	data := []byte("foo abc deefg x1234y abd bar\nfoo ddg x12y ac bar")
	for pos := int(h.Offset); pos < int(h.Offset+h.Size); pos += step {
		for _, mask := range []byte{0x01, 0x5a, 0xff} {
			b := slices.Clone(blob)
			b[pos] ^= mask
			body, _ := h.Body(b)
			binary.LittleEndian.PutUint32(b[32:], bytecode.Checksum(body))
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("byte %d ^ %#x: panic: %v", pos, mask, r)
					}
				}()
				runCorrupt(b, data)
			}()
		}
	}
}

// runCorrupt exercises a possibly corrupt blob; errors are expected and
// ignored.
func runCorrupt(b, data []byte) {
	got, err := Deserialize(b)
	if err != nil {
		return
	}
	defer got.Free()
	s, err := AllocScratch(got)
	if err != nil {
		return
	}
	defer s.Free()
	nop := func(uint32, uint64, uint64, any) Action { return Continue }
	st, err := got.OpenStream()
	if err != nil {
		return
	}
	_ = st.Scan(data[:9], s, nop, nil)
	_ = st.Scan(data[9:], s, nop, nil)
	_ = st.Close(s, nop, nil)
}
