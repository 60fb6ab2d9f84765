package litmatch

import (
	"errors"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/corescan/literal"
)

// Build constructs a matcher over lits. Literal order is the build order
// used to break ties between matches ending at the same position.
func Build(lits []literal.Literal, cfg Config) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(lits) == 0 {
		return nil, &BuildError{Engine: cfg.Engine, Literal: -1, Err: ErrDegenerate}
	}
	own := make([]literal.Literal, len(lits))
	copy(own, lits)
	seq := literal.NewSeq(own...)
	st := seq.Stats()
	for i, l := range own {
		if err := l.Validate(); err != nil {
			return nil, &BuildError{Engine: cfg.Engine, Literal: i, Err: errors.Join(ErrDegenerate, err)}
		}
	}

	kind, err := choose(cfg, st)
	if err != nil {
		return nil, err
	}
	m := &Matcher{lits: own, maxExtent: st.MaxExtent, minLen: st.MinLen}
	switch kind {
	case EngineNoodle:
		m.eng = newNoodle(own)
	case EngineTeddySlim, EngineTeddyFat:
		m.eng = newTeddy(seq, kind == EngineTeddyFat, min(cfg.FingerprintLen, st.MinLen), cfg.VectorWidth)
	case EngineFDR:
		m.eng = newFDR(seq)
	default:
		m.eng = naive{lits: own}
	}
	if cfg.QuickReject && !st.AnyNocase && !st.AnyMask {
		m.reject = buildReject(own)
	}
	return m, nil
}

// choose resolves the engine. A forced engine that cannot hold the set
// degrades along Noodle, Teddy, FDR when fallback is enabled.
func choose(cfg Config, st literal.Stats) (Engine, error) {
	fits := func(e Engine) bool {
		switch e {
		case EngineNoodle:
			return st.Count == 1
		case EngineTeddySlim:
			return st.Count <= MaxSlimLiterals
		case EngineTeddyFat:
			return st.Count <= MaxFatLiterals && cfg.VectorWidth >= 32
		case EngineFDR:
			return st.Count <= MaxFDRLiterals
		case EngineNaive:
			return true
		}
		return false
	}
	auto := func() (Engine, error) {
		for _, e := range []Engine{EngineNoodle, EngineTeddySlim, EngineTeddyFat, EngineFDR} {
			if fits(e) {
				return e, nil
			}
		}
		return 0, &BuildError{Engine: EngineFDR, Literal: -1, Err: ErrCapacity}
	}
	if cfg.Engine == EngineAuto {
		return auto()
	}
	if fits(cfg.Engine) {
		return cfg.Engine, nil
	}
	if cfg.Engine == EngineFDR {
		return 0, &BuildError{Engine: EngineFDR, Literal: -1, Err: ErrCapacity}
	}
	if !cfg.Fallback {
		return 0, &BuildError{Engine: cfg.Engine, Literal: -1, Err: ErrEngineUnavailable}
	}
	return auto()
}

// maxRejectAlphabet bounds the distinct bytes a reject filter is built
// over. The automaton's byte class table cannot hold a near-full
// alphabet.
const maxRejectAlphabet = 200

// buildReject returns an automaton that answers whether any literal
// occurs in a buffer, or nil if it cannot be built.
func buildReject(lits []literal.Literal) (auto *ahocorasick.Automaton) {
	var seen [256]bool
	n := 0
	for _, l := range lits {
		for _, c := range l.Bytes {
			if !seen[c] {
				seen[c] = true
				n++
			}
		}
	}
	if n > maxRejectAlphabet {
		return nil
	}
	defer func() {
		if recover() != nil {
			auto = nil
		}
	}()
	builder := ahocorasick.NewBuilder()
	for _, l := range lits {
		builder.AddPattern(l.Bytes)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return auto
}
