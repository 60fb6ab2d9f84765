package corescan

import (
	"cmp"
	"slices"
	"testing"
)

type hit struct {
	id       uint32
	from, to uint64
}

func sortHits(h []hit) []hit {
	h = slices.Clone(h)
	slices.SortFunc(h, func(a, b hit) int {
		if c := cmp.Compare(a.to, b.to); c != 0 {
			return c
		}
		if c := cmp.Compare(a.id, b.id); c != 0 {
			return c
		}
		return cmp.Compare(a.from, b.from)
	})
	return h
}

func parsePatterns(t *testing.T, exprs ...string) []Pattern {
	t.Helper()
	pats := make([]Pattern, len(exprs))
	for i, e := range exprs {
		p, err := ParsePattern(e)
		if err != nil {
			t.Fatalf("ParsePattern(%q): %v", e, err)
		}
		pats[i] = p
	}
	return pats
}

func mustCompile(t *testing.T, mode Mode, exprs ...string) *Database {
	t.Helper()
	db, err := Compile(parsePatterns(t, exprs...), mode)
	if err != nil {
		t.Fatalf("Compile(%q): %v", exprs, err)
	}
	t.Cleanup(func() { _ = db.Free() })
	return db
}

func mustScratch(t *testing.T, db *Database) *Scratch {
	t.Helper()
	s, err := AllocScratch(db)
	if err != nil {
		t.Fatalf("AllocScratch: %v", err)
	}
	return s
}

func collect(got *[]hit) Handler {
	return func(id uint32, from, to uint64, _ any) Action {
		*got = append(*got, hit{id, from, to})
		return Continue
	}
}

func scanBlock(t *testing.T, db *Database, s *Scratch, data string) []hit {
	t.Helper()
	var got []hit
	if err := db.Scan([]byte(data), s, collect(&got), nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return got
}

// scanStream writes data to a new stream split at cuts and closes it.
func scanStream(t *testing.T, db *Database, s *Scratch, data string, cuts ...int) []hit {
	t.Helper()
	st, err := db.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	var got []hit
	h := collect(&got)
	prev := 0
	for _, c := range append(cuts, len(data)) {
		if err := st.Scan([]byte(data[prev:c]), s, h, nil); err != nil {
			t.Fatalf("Stream.Scan: %v", err)
		}
		prev = c
	}
	if err := st.Close(s, h, nil); err != nil {
		t.Fatalf("Stream.Close: %v", err)
	}
	return got
}
