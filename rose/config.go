package rose

import "fmt"

// DelaySlotCount is the size of the delayed literal ring. A delay must be
// strictly smaller.
const DelaySlotCount = 32

// Config controls role assignment and runtime sizing.
type Config struct {
	// MaxDelay is the largest number of bytes a literal may be delayed
	// before its program runs.
	// Default: 31
	MaxDelay int

	// AnchoredRegion is the length of the prefix of the data covered by
	// the anchored literal table.
	// Default: 64
	AnchoredRegion int

	// QueueCapacity bounds the events an engine queue holds before it is
	// flushed.
	// Default: 16
	QueueCapacity int

	// MaxHistory caps the bytes of history kept in stream state. Literal
	// roles that need more fall back to engines, pure literals fail.
	// Default: 256
	MaxHistory int

	// ChainThreshold is the smallest repeat count split off into a chained
	// repeat.
	// Default: 16
	ChainThreshold int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxDelay:       DelaySlotCount - 1,
		AnchoredRegion: 64,
		QueueCapacity:  16,
		MaxHistory:     256,
		ChainThreshold: 16,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxDelay < 0 || c.MaxDelay >= DelaySlotCount {
		return fmt.Errorf("%w: MaxDelay must be between 0 and %d, got %d", ErrInvalidConfig, DelaySlotCount-1, c.MaxDelay)
	}
	if c.AnchoredRegion < 0 || c.AnchoredRegion > 64 {
		return fmt.Errorf("%w: AnchoredRegion must be between 0 and 64, got %d", ErrInvalidConfig, c.AnchoredRegion)
	}
	if c.QueueCapacity < 2 {
		return fmt.Errorf("%w: QueueCapacity must be at least 2, got %d", ErrInvalidConfig, c.QueueCapacity)
	}
	if c.MaxHistory < 0 || c.MaxHistory > 1<<16 {
		return fmt.Errorf("%w: MaxHistory must be between 0 and 65536, got %d", ErrInvalidConfig, c.MaxHistory)
	}
	if c.ChainThreshold < 2 {
		return fmt.Errorf("%w: ChainThreshold must be at least 2, got %d", ErrInvalidConfig, c.ChainThreshold)
	}
	return nil
}
