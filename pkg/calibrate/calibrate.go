package calibrate

import (
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

// Result reports the observed and requested mean coverage for one target
// region.
type Result struct {
	Region           region.Region
	ObservedCoverage float64
	TargetCoverage   float64
}

// Calibrate downsamples reads inside the target regions according to mode
// and writes the calibrated output to w. Reads whose mate maps outside the
// calibrated contigs pass through untouched unless excludeUncalibrated is
// set. Records are written in input file order, so a coordinate-sorted
// input yields a coordinate-sorted output.
func Calibrate(src bamio.RecordSource, w bamio.RecordWriter, targets []region.Region, mode Mode, excludeUncalibrated bool) ([]Result, error) {
	calibrated := calibratedRefIDs(src, targets)
	keep := make(map[string]bool)
	var results []Result

	switch m := mode.(type) {
	case FixedCoverage:
		var err error
		results, err = subsampleByCoverage(src, targets, nil, keep, calibrated, m.FoldCoverage, m.Seed)
		if err != nil {
			return nil, err
		}
	case SampleMeanCoverage:
		var err error
		results, err = subsampleByCoverage(src, targets, m.SampleRegions, keep, calibrated, 0, m.Seed)
		if err != nil {
			return nil, err
		}
	case SampleProfile:
		// Profile matching writes its selected target records itself;
		// the final pass below handles everything outside the targets.
		if err := matchSampleProfile(src, w, targets, m); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported calibration mode %T", mode)
	}

	it, err := src.FetchAll()
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for it.Next() {
		rec := it.Record()
		switch {
		// Duplicates are never selected, even when their mate carried
		// the pair's name into the keep set.
		case keep[rec.Name] && rec.Flags&sam.Duplicate == 0:
			if err := w.Write(rec); err != nil {
				return nil, errors.Wrap(err, "writing calibrated record")
			}
		case excludeUncalibrated:
		case rec.MateRef == nil || !calibrated[rec.MateRef.ID()]:
			if err := w.Write(rec); err != nil {
				return nil, errors.Wrap(err, "writing uncalibrated record")
			}
		}
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "scanning input")
	}
	return results, nil
}

// calibratedRefIDs maps the reference IDs of every contig named by a
// target region. Contigs absent from the header are simply not calibrated.
func calibratedRefIDs(src bamio.RecordSource, targets []region.Region) map[int]bool {
	contigs := region.Contigs(targets)
	ids := make(map[int]bool)
	for _, ref := range src.Header().Refs() {
		if contigs[ref.Name()] {
			ids[ref.ID()] = true
		}
	}
	return ids
}
