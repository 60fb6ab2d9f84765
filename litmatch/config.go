package litmatch

import "fmt"

// Engine capacities.
const (
	SlimBuckets     = 8
	FatBuckets      = 16
	MaxSlimLiterals = 32
	MaxFatLiterals  = 64
	MaxFDRLiterals  = 65536
	MaxFingerprint  = 4
)

// Config controls table construction.
type Config struct {
	// Engine forces an implementation. EngineAuto picks one from the
	// literal count, length distribution and vector width.
	Engine Engine

	// VectorWidth is the number of positions Teddy examines per block:
	// 16, 32 or 64. Fat Teddy needs at least 32.
	VectorWidth int

	// FingerprintLen caps the Teddy fingerprint (1 to MaxFingerprint).
	// The effective length is also capped by the shortest literal.
	FingerprintLen int

	// Fallback lets Build degrade to another engine when the forced one
	// cannot hold the literal set. When false Build fails with
	// ErrEngineUnavailable instead.
	Fallback bool

	// QuickReject gates block scans of case-sensitive, unmasked tables
	// with an Aho-Corasick presence test.
	QuickReject bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Engine:         EngineAuto,
		VectorWidth:    16,
		FingerprintLen: MaxFingerprint,
		Fallback:       true,
		QuickReject:    true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.VectorWidth {
	case 16, 32, 64:
	default:
		return fmt.Errorf("litmatch: vector width %d not one of 16, 32, 64", c.VectorWidth)
	}
	if c.FingerprintLen < 1 || c.FingerprintLen > MaxFingerprint {
		return fmt.Errorf("litmatch: fingerprint length %d out of range [1, %d]", c.FingerprintLen, MaxFingerprint)
	}
	if c.Engine > EngineNaive {
		return fmt.Errorf("litmatch: unknown engine %d", c.Engine)
	}
	return nil
}
