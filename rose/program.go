package rose

import (
	"fmt"

	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/report"
)

// Op is a program instruction code.
type Op uint8

// Instruction codes. A check that fails ends the program without error.
const (
	OpEnd Op = iota
	OpCheckGroups
	OpCheckExhausted
	OpCheckBounds
	OpCheckOnlyEOD
	OpCheckLookaround
	OpPushDelayed
	OpCatchUp
	OpTriggerSuffix
	OpReport
	OpReportSOM
	OpSetExhaust
	OpSquashGroups
	numOps
)

var opNames = [...]string{
	OpEnd:             "END",
	OpCheckGroups:     "CHECK_GROUPS",
	OpCheckExhausted:  "CHECK_EXHAUSTED",
	OpCheckBounds:     "CHECK_BOUNDS",
	OpCheckOnlyEOD:    "CHECK_ONLY_EOD",
	OpCheckLookaround: "CHECK_LOOKAROUND",
	OpPushDelayed:     "PUSH_DELAYED",
	OpCatchUp:         "CATCH_UP",
	OpTriggerSuffix:   "TRIGGER_SUFFIX",
	OpReport:          "REPORT",
	OpReportSOM:       "REPORT_SOM",
	OpSetExhaust:      "SET_EXHAUST",
	OpSquashGroups:    "SQUASH_GROUPS",
}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return fmt.Sprintf("OP(%d)", uint8(o))
}

// Instr is one program instruction. Only the fields its Op names are
// meaningful.
type Instr struct {
	Op Op

	// Groups for CheckGroups and SquashGroups.
	Groups uint64

	// Ekey for CheckExhausted and SetExhaust.
	Ekey uint32

	// Min and Max bound the end offset for CheckBounds.
	Min, Max uint64

	// Look indexes the lookaround table for CheckLookaround.
	Look uint32

	// Delay and Index give the delay and the delayed literal for
	// PushDelayed.
	Delay uint8
	Index uint32

	// Queue and Top address an engine for TriggerSuffix.
	Queue uint32
	Top   uint32

	// Report is the report id for Report and ReportSOM; Width is the fixed
	// match width ReportSOM derives the start from.
	Report report.ID
	Width  uint32
}

func (in Instr) String() string {
	switch in.Op {
	case OpCheckGroups, OpSquashGroups:
		return fmt.Sprintf("%s %#x", in.Op, in.Groups)
	case OpCheckExhausted, OpSetExhaust:
		return fmt.Sprintf("%s ekey=%d", in.Op, in.Ekey)
	case OpCheckBounds:
		return fmt.Sprintf("%s [%d,%d]", in.Op, in.Min, in.Max)
	case OpCheckLookaround:
		return fmt.Sprintf("%s look=%d", in.Op, in.Look)
	case OpPushDelayed:
		return fmt.Sprintf("%s delay=%d lit=%d", in.Op, in.Delay, in.Index)
	case OpTriggerSuffix:
		return fmt.Sprintf("%s queue=%d top=%d", in.Op, in.Queue, in.Top)
	case OpReport:
		return fmt.Sprintf("%s %d", in.Op, in.Report)
	case OpReportSOM:
		return fmt.Sprintf("%s %d width=%d", in.Op, in.Report, in.Width)
	}
	return in.Op.String()
}

// Program is a straight-line instruction sequence terminated by OpEnd.
type Program []Instr

func (p Program) String() string {
	s := ""
	for i, in := range p {
		if i > 0 {
			s += "; "
		}
		s += in.String()
	}
	return s
}

func encodeProgram(w *bytecode.Writer, p Program) {
	w.Int(len(p))
	for _, in := range p {
		w.U8(uint8(in.Op))
		switch in.Op {
		case OpCheckGroups, OpSquashGroups:
			w.U64(in.Groups)
		case OpCheckExhausted, OpSetExhaust:
			w.U32(in.Ekey)
		case OpCheckBounds:
			w.U64(in.Min)
			w.U64(in.Max)
		case OpCheckLookaround:
			w.U32(in.Look)
		case OpPushDelayed:
			w.U8(in.Delay)
			w.U32(in.Index)
		case OpTriggerSuffix:
			w.U32(in.Queue)
			w.U32(in.Top)
		case OpReport:
			w.U32(uint32(in.Report))
		case OpReportSOM:
			w.U32(uint32(in.Report))
			w.U32(in.Width)
		}
	}
}

// limits bounds the operands a decoded program may carry.
type limits struct {
	reports, ekeys, looks, delayed, queues int
}

func decodeProgram(r *bytecode.Reader, lim limits) Program {
	n := r.Count(1 << 12)
	if n == 0 {
		r.Fail("empty program")
		return nil
	}
	p := make(Program, n)
	for i := range p {
		in := &p[i]
		in.Op = Op(r.U8())
		switch in.Op {
		case OpEnd, OpCatchUp, OpCheckOnlyEOD:
		case OpCheckGroups, OpSquashGroups:
			in.Groups = r.U64()
		case OpCheckExhausted, OpSetExhaust:
			in.Ekey = r.U32()
			if int(in.Ekey) >= lim.ekeys {
				r.Fail("ekey %d out of range", in.Ekey)
			}
		case OpCheckBounds:
			in.Min = r.U64()
			in.Max = r.U64()
		case OpCheckLookaround:
			in.Look = r.U32()
			if int(in.Look) >= lim.looks {
				r.Fail("lookaround %d out of range", in.Look)
			}
		case OpPushDelayed:
			in.Delay = r.U8()
			in.Index = r.U32()
			if in.Delay == 0 || int(in.Delay) >= DelaySlotCount || int(in.Index) >= lim.delayed {
				r.Fail("bad delay %d/%d", in.Delay, in.Index)
			}
		case OpTriggerSuffix:
			in.Queue = r.U32()
			in.Top = r.U32()
			if int(in.Queue) >= lim.queues {
				r.Fail("queue %d out of range", in.Queue)
			}
		case OpReport, OpReportSOM:
			in.Report = report.ID(r.U32())
			if in.Op == OpReportSOM {
				in.Width = r.U32()
			}
			if int(in.Report) >= lim.reports {
				r.Fail("report %d out of range", in.Report)
			}
		default:
			r.Fail("unknown instruction %d", in.Op)
		}
	}
	if r.Err() == nil && p[n-1].Op != OpEnd {
		r.Fail("program not terminated")
	}
	return p
}

func encodeLookTable(w *bytecode.Writer, looks [][]nfa.LookEntry) {
	w.Int(len(looks))
	for _, l := range looks {
		nfa.EncodeLookaround(w, l)
	}
}

func decodeLookTable(r *bytecode.Reader) [][]nfa.LookEntry {
	n := r.Count(1 << 20)
	looks := make([][]nfa.LookEntry, n)
	for i := range looks {
		looks[i] = nfa.DecodeLookaround(r)
	}
	return looks
}
