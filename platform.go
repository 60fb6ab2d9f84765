package corescan

import (
	"fmt"
	"strings"

	"golang.org/x/sys/cpu"
)

// Feature is a CPU capability a database may be tuned for.
type Feature uint64

const (
	// FeatureAVX2 marks 32-byte literal scanning blocks.
	FeatureAVX2 Feature = 1 << iota

	// FeatureAVX512 marks 64-byte literal scanning blocks.
	FeatureAVX512

	// FeatureNEON marks the arm64 vector unit.
	FeatureNEON

	featureMask = FeatureAVX2 | FeatureAVX512 | FeatureNEON
)

var featureNames = []struct {
	f    Feature
	name string
}{
	{FeatureAVX2, "AVX2"},
	{FeatureAVX512, "AVX512"},
	{FeatureNEON, "NEON"},
}

// String lists the features separated by spaces.
func (f Feature) String() string {
	var names []string
	for _, fn := range featureNames {
		if f&fn.f != 0 {
			names = append(names, fn.name)
		}
	}
	if rest := f &^ featureMask; rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint64(rest)))
	}
	return strings.Join(names, " ")
}

// Platform describes the machine a database is compiled for.
type Platform struct {
	Features Feature

	// VectorWidth is the literal scanning block: 16, 32 or 64 bytes.
	VectorWidth int
}

// PopulatePlatform describes the current machine.
func PopulatePlatform() Platform {
	p := Platform{VectorWidth: 16}
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW:
		p.Features |= FeatureAVX2 | FeatureAVX512
		p.VectorWidth = 64
	case cpu.X86.HasAVX2:
		p.Features |= FeatureAVX2
		p.VectorWidth = 32
	case cpu.ARM64.HasASIMD:
		p.Features |= FeatureNEON
	}
	return p
}

// Validate checks the platform description.
func (p Platform) Validate() error {
	if p.Features&^featureMask != 0 {
		return fmt.Errorf("unknown features %#x", uint64(p.Features&^featureMask))
	}
	switch p.VectorWidth {
	case 16:
	case 32:
		if p.Features&FeatureAVX2 == 0 {
			return fmt.Errorf("vector width 32 needs AVX2")
		}
	case 64:
		if p.Features&FeatureAVX512 == 0 {
			return fmt.Errorf("vector width 64 needs AVX512")
		}
	default:
		return fmt.Errorf("vector width %d not one of 16, 32, 64", p.VectorWidth)
	}
	return nil
}

// required returns the features a database built for p depends on.
func (p Platform) required() Feature {
	switch p.VectorWidth {
	case 64:
		return FeatureAVX512
	case 32:
		return FeatureAVX2
	}
	return 0
}

// supports reports whether a database needing req runs on p.
func (p Platform) supports(req Feature) bool { return req&^p.Features == 0 }
