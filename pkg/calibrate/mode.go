// Package calibrate downsamples aligned read pairs inside named regions so
// the output matches a requested coverage level or an empirical coverage
// profile, deterministically for a given seed.
package calibrate

import (
	"github.com/pkg/errors"

	"github.com/seqwell/covcal/pkg/region"
)

// Mode selects the calibration strategy. Exactly three implementations
// exist; the interface is sealed by the unexported method.
type Mode interface {
	mode()
}

// FixedCoverage downsamples every target region to the same mean depth.
type FixedCoverage struct {
	FoldCoverage float64
	Seed         uint64
}

func (FixedCoverage) mode() {}

// SampleMeanCoverage downsamples each target region to the mean depth
// observed in the sample region of the same name.
type SampleMeanCoverage struct {
	SampleRegions []region.Region
	Seed          uint64
}

func (SampleMeanCoverage) mode() {}

// SampleProfile reproduces the windowed read-start profile of each sample
// region in the target region of the same name, mirrored end to end.
type SampleProfile struct {
	SampleRegions []region.Region
	Flank         int
	WindowSize    int
	MinMapQ       byte
	Seed          uint64
}

func (SampleProfile) mode() {}

var (
	// ErrZeroTargetCoverage reports a target region with no observed
	// coverage to downsample from.
	ErrZeroTargetCoverage = errors.New("region has zero observed coverage")

	// ErrInsufficientCoverage reports observed coverage below the
	// requested level; reads cannot be invented.
	ErrInsufficientCoverage = errors.New("observed coverage is below the requested coverage")

	// ErrMissingSampleRegion reports a target region with no sample
	// region of the same name.
	ErrMissingSampleRegion = errors.New("no sample region matches target region name")
)
