package calibrate

import (
	"log"
	"math/rand/v2"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/coverage"
	"github.com/seqwell/covcal/pkg/region"
)

// subsampleByCoverage selects read pairs in each target region with the
// per-region probability that brings its mean depth to the requested
// level. Selected query names are added to keep; the caller writes them on
// its final pass. Each region draws from a fresh seeded generator, so
// selection in one region cannot disturb another.
func subsampleByCoverage(src bamio.RecordSource, targets, samples []region.Region, keep map[string]bool, calibrated map[int]bool, foldCoverage float64, seed uint64) ([]Result, error) {
	probs, results, err := determineProbabilities(src, targets, samples, foldCoverage)
	if err != nil {
		return nil, err
	}

	considered := make(map[string]bool)
	for ri, reg := range targets {
		res := results[ri]
		log.Printf("calibrating %s (%s): observed %.2fx, requested %.2fx",
			reg.Name, reg, res.ObservedCoverage, res.TargetCoverage)

		rng := rand.New(rand.NewPCG(seed, 0))
		p := probs[reg.Name]
		it, err := src.Fetch(reg.Contig, reg.Beg, reg.End)
		if err != nil {
			return nil, err
		}
		for it.Next() {
			rec := it.Record()
			// Only pairs wholly within calibrated contigs are
			// candidates; anything else is written by the
			// uncalibrated-mate rule on the final pass.
			if rec.MateRef != nil && calibrated[rec.MateRef.ID()] {
				subsample(rec, keep, considered, p, rng)
			}
			considered[rec.Name] = true
		}
		if err := it.Error(); err != nil {
			it.Close()
			return nil, errors.Wrapf(err, "reading records for region %s", reg)
		}
		if err := it.Close(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// subsample decides whether rec's pair is kept. One random draw happens
// per distinct query name: once a name has been seen, its earlier outcome
// stands, which keeps mates together regardless of which is seen first.
// Duplicates are never kept, but their name still counts as seen.
func subsample(rec *sam.Record, keep, considered map[string]bool, probability float64, rng *rand.Rand) bool {
	if rec.Flags&sam.Duplicate != 0 {
		return false
	}
	if keep[rec.Name] {
		return true
	}
	if considered[rec.Name] {
		return false
	}
	if rng.Float64() <= probability {
		keep[rec.Name] = true
		return true
	}
	return false
}

// determineProbabilities computes the per-region keep probability
// requested/observed, where requested is either the fixed fold coverage or
// the mean depth of the same-named sample region.
func determineProbabilities(src bamio.RecordSource, targets, samples []region.Region, foldCoverage float64) (map[string]float64, []Result, error) {
	requested := make(map[string]float64, len(targets))
	if samples == nil {
		for _, reg := range targets {
			requested[reg.Name] = foldCoverage
		}
	} else {
		for _, reg := range samples {
			cov, err := coverage.ForRegion(src, reg, 0, 0, 0)
			if err != nil {
				return nil, nil, err
			}
			// A sample region with no reads is allowed; it requests
			// zero coverage, so everything in the target is dropped.
			var mean float64
			if m := cov.Mean(); m != nil {
				mean = *m
			}
			requested[reg.Name] = mean
		}
	}

	probs := make(map[string]float64, len(targets))
	results := make([]Result, 0, len(targets))
	for _, reg := range targets {
		want, ok := requested[reg.Name]
		if !ok {
			return nil, nil, errors.Wrapf(ErrMissingSampleRegion, "target region %s", reg.Name)
		}
		cov, err := coverage.ForRegion(src, reg, 0, 0, 0)
		if err != nil {
			return nil, nil, err
		}
		var observed float64
		if m := cov.Mean(); m != nil {
			observed = *m
		}
		if observed == 0 {
			return nil, nil, errors.Wrapf(ErrZeroTargetCoverage, "target region %s", reg.Name)
		}
		if observed < want {
			return nil, nil, errors.Wrapf(ErrInsufficientCoverage,
				"target region %s: observed %.2fx, requested %.2fx", reg.Name, observed, want)
		}
		probs[reg.Name] = want / observed
		results = append(results, Result{Region: reg, ObservedCoverage: observed, TargetCoverage: want})
	}
	return probs, results, nil
}
