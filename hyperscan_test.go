//go:build cgo && hyperscan

package corescan

import (
	"slices"
	"testing"

	"github.com/flier/gohs/hyperscan"
)

var gohsFlags = []struct {
	f  Flag
	hs hyperscan.CompileFlag
}{
	{Caseless, hyperscan.Caseless},
	{DotAll, hyperscan.DotAll},
	{SingleMatch, hyperscan.SingleMatch},
	{SomLeftMost, hyperscan.SomLeftMost},
}

// TestHyperscanDifferential compares the corpus against libhs through
// gohs. It needs the library and runs with -tags hyperscan.
func TestHyperscanDifferential(t *testing.T) {
	for _, c := range loadCorpus(t) {
		t.Run(c.Name, func(t *testing.T) {
			pats := parsePatterns(t, c.Patterns...)
			hps := make([]*hyperscan.Pattern, len(pats))
			for i, p := range pats {
				var fl hyperscan.CompileFlag
				for _, gf := range gohsFlags {
					if p.Flags&gf.f != 0 {
						fl |= gf.hs
					}
				}
				hp := hyperscan.NewPattern(p.Expression, fl)
				hp.Id = int(p.ID)
				hps[i] = hp
			}
			hdb, err := hyperscan.NewBlockDatabase(hps...)
			if err != nil {
				t.Fatalf("hyperscan compile: %v", err)
			}
			defer hdb.Close()
			hs, err := hyperscan.NewScratch(hdb)
			if err != nil {
				t.Fatalf("hyperscan scratch: %v", err)
			}
			defer hs.Free()

			var want []hit
			onMatch := func(id uint, from, to uint64, _ uint, _ interface{}) error {
				want = append(want, hit{uint32(id), from, to})
				return nil
			}
			if err := hdb.Scan([]byte(c.Input), hs, onMatch, nil); err != nil {
				t.Fatalf("hyperscan scan: %v", err)
			}

			db, err := Compile(pats, ModeBlock)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			defer db.Free()
			got := scanBlock(t, db, mustScratch(t, db), c.Input)
			if !slices.Equal(sortHits(got), sortHits(want)) {
				t.Errorf("matches = %v, libhs = %v", sortHits(got), sortHits(want))
			}
		})
	}
}
