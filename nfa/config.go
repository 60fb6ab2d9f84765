package nfa

import "fmt"

// DefaultMaxStates bounds the states of a single LimEx.
const DefaultMaxStates = 2048

// SOM horizon widths in bytes. A start further back than the horizon
// allows is reported as UnknownStart.
const (
	SomHorizonSmall  = 2
	SomHorizonMedium = 4
	SomHorizonLarge  = 8
)

// Config controls engine construction.
type Config struct {
	// MaxStates is the largest LimEx accepted.
	// Default: 2048
	MaxStates int

	// Accel enables acceleration schemes for idle and cyclic states.
	// Default: true
	Accel bool

	// SomHorizon is the width of a stored start offset in stream state:
	// 2, 4 or 8 bytes. Zero means start offsets are kept at full width,
	// which is what block mode uses.
	// Default: 0
	SomHorizon int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxStates: DefaultMaxStates,
		Accel:     true,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxStates < 1 || c.MaxStates > 1<<16 {
		return fmt.Errorf("%w: MaxStates must be between 1 and 65536, got %d", ErrInvalidConfig, c.MaxStates)
	}
	switch c.SomHorizon {
	case 0, SomHorizonSmall, SomHorizonMedium, SomHorizonLarge:
	default:
		return fmt.Errorf("%w: SomHorizon must be 0, 2, 4 or 8, got %d", ErrInvalidConfig, c.SomHorizon)
	}
	return nil
}
