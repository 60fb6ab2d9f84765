package litmatch

import (
	"math/rand"
	"slices"
	"testing"

	cfahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/literal"
)

// fib matches the generator used to build the long ShortWritings buffers.
func fib(n int) uint64 {
	f0, f1, f2 := uint64(1), uint64(1), uint64(1)
	for i := 0; i < n; i++ {
		f2 = f1 + f0
		f0 = f1
		f1 = f2
	}
	return f2
}

func pow3(n int) int {
	p := 1
	for ; n > 0; n-- {
		p *= 3
	}
	return p
}

func TestShortWritings(t *testing.T) {
	alphabets := [][3]byte{
		{'a', 'b', 'x'},
		{'x', 'y', 'z'},
		{0, 'A', 0x20},
		{'a', 0x20, 0x99},
	}
	for _, alpha := range alphabets {
		var bufs [][]byte
		for n := 1; n <= 6; n++ {
			for j := 0; j < pow3(n); j++ {
				s := make([]byte, n)
				for k := 0; k < n; k++ {
					s[k] = alpha[j/pow3(k)%3]
				}
				bufs = append(bufs, s)
			}
		}
		short := len(bufs)
		for n := 7; n < 64; n++ {
			for i := 0; i < 10; i++ {
				var s []byte
				for j := 0; len(s) < n; j++ {
					s = append(s, bufs[fib(i*5+j+(n-6)*10)%uint64(short)]...)
				}
				bufs = append(bufs, s)
			}
		}
		var pats [][]byte
		for n := 1; n <= 8; n++ {
			for j := 0; j < 1<<n; j++ {
				s := make([]byte, n)
				for k := 0; k < n; k++ {
					s[k] = alpha[(j>>k)&1]
				}
				pats = append(pats, s)
			}
		}
		stride := 1
		if testing.Short() {
			stride = 7
		}
		for first := 0; first < len(pats); first += 32 {
			var lits []literal.Literal
			for i := first; i < first+32 && i < len(pats); i++ {
				l, err := literal.New(pats[i], uint32(i))
				if err != nil {
					t.Fatal(err)
				}
				lits = append(lits, l)
			}
			for _, e := range allEngines {
				m, ok := buildEngine(t, lits, e.force, e.cfg.VectorWidth)
				if !ok {
					continue
				}
				for b := 0; b < len(bufs); b += stride {
					buf := bufs[b]
					var want []match
					for end := range buf {
						for _, l := range lits {
							n := l.Len()
							if end+1 >= n && string(buf[end+1-n:end+1]) == string(l.Bytes) {
								want = append(want, match{end + 1 - n, end, l.ID})
							}
						}
					}
					got, _ := collect(m, Scan{Buf: buf})
					if !slices.Equal(got, want) {
						t.Fatalf("alphabet %q engine %s buf %q: got %v want %v", alpha, e.name, buf, got, want)
					}
				}
			}
		}
	}
}

// genLiterals draws a literal set over a small alphabet so that matches,
// overlaps and shared suffixes are frequent.
func genLiterals(r *rand.Rand, n int, features bool) []literal.Literal {
	alpha := []byte("abcAB\x00\xff")
	lits := make([]literal.Literal, 0, n)
	for len(lits) < n {
		size := 1 + r.Intn(10)
		s := make([]byte, size)
		for i := range s {
			s[i] = alpha[r.Intn(len(alpha))]
		}
		var opts []literal.Option
		if features {
			if r.Intn(3) == 0 {
				opts = append(opts, literal.Nocase())
			}
			if r.Intn(4) == 0 {
				opts = append(opts, literal.NoRuns())
			}
			opts = append(opts, literal.Groups(uint64(1+r.Intn(7))))
			if r.Intn(4) == 0 {
				// Demand the byte before the literal.
				ml := min(size+1, literal.MaxMaskLen)
				msk := make([]byte, ml)
				cmp := make([]byte, ml)
				msk[0] = 0xff
				cmp[0] = alpha[r.Intn(len(alpha))]
				if ml <= size {
					// The mask only covers literal bytes here; keep it a no-op.
					msk[0], cmp[0] = 0, 0
				}
				opts = append(opts, literal.Mask(msk, cmp))
			}
		}
		l, err := literal.New(s, uint32(r.Intn(n)), opts...)
		if err != nil {
			continue
		}
		lits = append(lits, l)
	}
	return lits
}

func genBuffer(r *rand.Rand, n int) []byte {
	alpha := []byte("abcAB\x00\xff")
	b := make([]byte, n)
	for i := range b {
		b[i] = alpha[r.Intn(len(alpha))]
	}
	return b
}

func TestEngineEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	rounds := 200
	if testing.Short() {
		rounds = 30
	}
	for round := 0; round < rounds; round++ {
		n := 1 + r.Intn(60)
		lits := genLiterals(r, n, true)
		ref, err := Build(lits, Config{Engine: EngineNaive, VectorWidth: 16, FingerprintLen: 4})
		if err != nil {
			t.Fatal(err)
		}
		buf := genBuffer(r, 1+r.Intn(300))
		hist := genBuffer(r, r.Intn(12))
		groups := uint64(1 + r.Intn(7))
		want, _ := collect(ref, Scan{Buf: buf, History: hist, Groups: groups})
		for _, e := range allEngines {
			m, ok := buildEngine(t, lits, e.force, e.cfg.VectorWidth)
			if !ok {
				continue
			}
			got, _ := collect(m, Scan{Buf: buf, History: hist, Groups: groups})
			if !slices.Equal(got, want) {
				t.Fatalf("round %d engine %s: lits %v\nbuf %q hist %q\ngot  %v\nwant %v", round, e.name, lits, buf, hist, got, want)
			}
		}
	}
}

// TestStreamSplit checks that scanning a buffer in pieces, each with the
// preceding bytes as history, reports what a single block scan reports.
func TestStreamSplit(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for round := 0; round < 40; round++ {
		lits := genLiterals(r, 1+r.Intn(40), false)
		buf := genBuffer(r, 80)
		for _, e := range allEngines {
			m, ok := buildEngine(t, lits, e.force, e.cfg.VectorWidth)
			if !ok {
				continue
			}
			want, _ := collect(m, Scan{Buf: buf})
			for split := 1; split < len(buf); split++ {
				first, _ := collect(m, Scan{Buf: buf[:split]})
				second, _ := collect(m, Scan{Buf: buf[split:], History: buf[:split]})
				got := first
				for _, s := range second {
					got = append(got, match{s.start + split, s.end + split, s.id})
				}
				if !slices.Equal(got, want) {
					t.Fatalf("engine %s split %d: got %v want %v", e.name, split, got, want)
				}
			}
		}
	}
}

// TestPresenceOracle cross-checks which literals occur against an
// independent Aho-Corasick implementation.
func TestPresenceOracle(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for round := 0; round < 100; round++ {
		lits := genLiterals(r, 1+r.Intn(50), false)
		dict := make([][]byte, len(lits))
		for i := range lits {
			lits[i].ID = uint32(i)
			dict[i] = lits[i].Bytes
		}
		oracle := cfahocorasick.NewMatcher(dict)
		buf := genBuffer(r, 200)
		want := map[uint32]bool{}
		for _, i := range oracle.Match(buf) {
			// Duplicate dictionary entries are reported under one index.
			for j := range dict {
				if string(dict[j]) == string(dict[i]) {
					want[uint32(j)] = true
				}
			}
		}
		cfg := DefaultConfig()
		m, err := Build(lits, cfg)
		if err != nil {
			t.Fatal(err)
		}
		got := map[uint32]bool{}
		ms, _ := collect(m, Scan{Buf: buf})
		for _, x := range ms {
			got[x.id] = true
			if string(buf[x.start:x.end+1]) != string(lits[x.id].Bytes) {
				t.Errorf("round %d: bogus match %v", round, x)
			}
		}
		for id := range want {
			if !got[id] {
				t.Errorf("round %d: literal %d (%q) missed", round, id, dict[id])
			}
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	lits := genLiterals(r, 20, true)
	buf := genBuffer(r, 500)
	for _, e := range allEngines {
		t.Run(e.name, func(t *testing.T) {
			src := lits
			if e.force == EngineNoodle {
				src = lits[:1]
			}
			m, ok := buildEngine(t, src, e.force, e.cfg.VectorWidth)
			if !ok {
				t.Skip()
			}
			want, _ := collect(m, Scan{Buf: buf, Groups: 5})
			w := bytecode.NewWriter(0)
			m.Encode(w)
			blob := append([]byte(nil), w.Bytes()...)
			got, err := Decode(bytecode.NewReader(blob))
			if err != nil {
				t.Fatal(err)
			}
			// Scribble over the encoded form: the decoded table must not
			// depend on it.
			for i := range blob {
				blob[i] = 0xca
				if i%2 == 1 {
					blob[i] = 0xfe
				}
			}
			if got.Engine() != m.Engine() {
				t.Errorf("engine %v, want %v", got.Engine(), m.Engine())
			}
			res, _ := collect(got, Scan{Buf: buf, Groups: 5})
			if !slices.Equal(res, want) {
				t.Errorf("decoded matcher differs:\n%v\n%v", res, want)
			}
		})
	}
}

func TestDecodeCorrupt(t *testing.T) {
	m, err := Build([]literal.Literal{literal.MustNew("abc", 0), literal.MustNew("de", 1)}, Config{Engine: EngineFDR, VectorWidth: 16, FingerprintLen: 4})
	if err != nil {
		t.Fatal(err)
	}
	w := bytecode.NewWriter(0)
	m.Encode(w)
	blob := w.Bytes()
	for cut := 0; cut < len(blob); cut += 7 {
		if _, err := Decode(bytecode.NewReader(blob[:cut])); err == nil {
			t.Fatalf("truncated blob of %d bytes decoded", cut)
		}
	}
}
