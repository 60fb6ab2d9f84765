// Package corescan is a multi-pattern regular expression scanner that
// reports every end offset of every pattern match.
//
// A set of patterns is compiled into an immutable Database for one of
// three modes: block (each scan is a complete buffer), stream (data
// arrives in writes and matches may span them) and vectored (one logical
// buffer given as a list of pieces). Scans need a Scratch, which holds the
// working memory and must not be shared by concurrent scans.
//
// Basic usage:
//
//	db, err := corescan.Compile([]corescan.Pattern{
//	    {Expression: `foo.*bar`, ID: 1},
//	    {Expression: `[0-9]{4}`, ID: 2, Flags: corescan.SingleMatch},
//	}, corescan.ModeBlock)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	scratch, err := corescan.AllocScratch(db)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = db.Scan(data, scratch, func(id uint32, from, to uint64, _ any) corescan.Action {
//	    fmt.Println(id, to)
//	    return corescan.Continue
//	}, nil)
//
// Streaming:
//
//	st, _ := db.OpenStream()
//	for _, chunk := range chunks {
//	    st.Scan(chunk, scratch, onMatch, nil)
//	}
//	st.Close(scratch, onMatch, nil)
//
// Semantics differ from classical regex matching:
//   - Every match end is reported, not the leftmost-first one.
//   - The start offset is reported only for patterns compiled with
//     SomLeftMost; otherwise it is zero.
//   - Offsets are non-decreasing within one scan call.
//   - Capturing groups and backreferences are not supported.
package corescan
