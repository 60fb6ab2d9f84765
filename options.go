package corescan

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/coregx/corescan/alloc"
	"github.com/coregx/corescan/graph"
	"github.com/coregx/corescan/litmatch"
	"github.com/coregx/corescan/nfa"
	"github.com/coregx/corescan/rose"
)

// Mode selects how a database is scanned.
type Mode uint32

const (
	// ModeBlock databases scan complete buffers.
	ModeBlock Mode = 1 << iota

	// ModeStream databases scan data written to streams.
	ModeStream

	// ModeVectored databases scan lists of buffers as one.
	ModeVectored
)

// SOM horizons for stream databases with SomLeftMost patterns. A start
// further back than the horizon is reported as UnknownStart.
const (
	// ModeSomHorizonLarge keeps full 64-bit start offsets.
	ModeSomHorizonLarge Mode = 1 << (24 + iota)

	// ModeSomHorizonMedium keeps starts within 2^32 bytes.
	ModeSomHorizonMedium

	// ModeSomHorizonSmall keeps starts within 2^16 bytes.
	ModeSomHorizonSmall
)

const (
	scanModes    = ModeBlock | ModeStream | ModeVectored
	horizonModes = ModeSomHorizonLarge | ModeSomHorizonMedium | ModeSomHorizonSmall
)

// String returns the scan mode name used by Info.
func (m Mode) String() string {
	switch m & scanModes {
	case ModeBlock:
		return "BLOCK"
	case ModeStream:
		return "STREAM"
	case ModeVectored:
		return "VECTORED"
	}
	return fmt.Sprintf("Mode(%#x)", uint32(m))
}

func (m Mode) scan() Mode { return m & scanModes }

// validate checks that m names one scan mode and at most one horizon,
// which only stream databases take.
func (m Mode) validate() error {
	if m&^(scanModes|horizonModes) != 0 {
		return fmt.Errorf("unknown mode bits %#x", uint32(m&^(scanModes|horizonModes)))
	}
	switch m.scan() {
	case ModeBlock, ModeStream, ModeVectored:
	default:
		return fmt.Errorf("mode %#x must name exactly one of block, stream and vectored", uint32(m))
	}
	h := m & horizonModes
	if h&(h-1) != 0 {
		return fmt.Errorf("mode %#x names several SOM horizons", uint32(m))
	}
	if h != 0 && m.scan() != ModeStream {
		return fmt.Errorf("SOM horizons apply to stream mode only")
	}
	return nil
}

// somHorizon returns the stored start width in bytes.
func (m Mode) somHorizon() int {
	switch m & horizonModes {
	case ModeSomHorizonSmall:
		return nfa.SomHorizonSmall
	case ModeSomHorizonMedium:
		return nfa.SomHorizonMedium
	case ModeSomHorizonLarge:
		return nfa.SomHorizonLarge
	}
	return 0
}

// modeName is the metrics attribute value.
func (m Mode) modeName() string { return strings.ToLower(m.String()) }

// Config collects the tunables of the compiler.
type Config struct {
	Literal    litmatch.Config
	NFA        nfa.Config
	Rose       rose.Config
	Components graph.ComponentConfig
}

// DefaultConfig returns the default compiler configuration.
func DefaultConfig() Config {
	return Config{
		Literal:    litmatch.DefaultConfig(),
		NFA:        nfa.DefaultConfig(),
		Rose:       rose.DefaultConfig(),
		Components: graph.DefaultComponentConfig(),
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if err := c.Rose.Validate(); err != nil {
		return err
	}
	if err := c.NFA.Validate(); err != nil {
		return err
	}
	if err := c.Components.Validate(); err != nil {
		return err
	}
	return c.Literal.Validate()
}

// Option configures compilation, deserialization, scratch or stream
// allocation. Options a call does not use are ignored.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	alloc    *alloc.Context
	platform *Platform
	meter    metric.MeterProvider
	config   *Config
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o options) allocator() alloc.Context { return alloc.Resolve(o.alloc) }

// WithLogger sends compiler decisions to l at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAllocator replaces the process default allocators for one call.
// Unset pairs in ctx still use the default.
func WithAllocator(ctx alloc.Context) Option {
	return func(o *options) { o.alloc = &ctx }
}

// WithPlatform compiles for p instead of the current machine.
func WithPlatform(p Platform) Option {
	return func(o *options) { o.platform = &p }
}

// WithMeterProvider records scan counters for the database on mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// WithConfig replaces the compiler configuration.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = &c }
}
