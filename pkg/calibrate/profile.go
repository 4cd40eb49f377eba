package calibrate

import (
	"log"
	"math/rand/v2"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

// matchSampleProfile reproduces each sample region's windowed read-start
// profile inside the same-named target region, mirrored end to end. The
// selected target records are written directly; per-region results are not
// produced in this mode.
func matchSampleProfile(src bamio.RecordSource, w bamio.RecordWriter, targets []region.Region, m SampleProfile) error {
	samplesByName, err := region.ByName(m.SampleRegions)
	if err != nil {
		return err
	}

	for _, target := range targets {
		sample, ok := samplesByName[target.Name]
		if !ok {
			return errors.Wrapf(ErrMissingSampleRegion, "target region %s", target.Name)
		}
		trimmedTarget, err := target.Trim(m.Flank)
		if err != nil {
			return err
		}
		trimmedSample, err := sample.Trim(m.Flank)
		if err != nil {
			return err
		}
		log.Printf("calibrating %s (%s) against sample profile of %s",
			target.Name, trimmedTarget, trimmedSample)

		starts, err := windowStarts(src, trimmedSample, m.WindowSize, m.MinMapQ)
		if err != nil {
			return err
		}
		nWindows := windowCount(trimmedTarget, m.WindowSize)
		if len(starts) != nWindows {
			return errors.Errorf("window count mismatch for region %s: sample has %d windows, target has %d",
				target.Name, len(starts), nWindows)
		}
		// The target profile is the sample profile read backwards.
		reverse(starts)

		// Collect over the untrimmed region: windows select from the
		// trimmed interior, but a kept name's mate may start inside
		// the flank and must still be written with its pair.
		records, err := recordsStartingIn(src, target)
		if err != nil {
			return err
		}

		keep := make(map[string]bool)
		wi := 0
		for beg := trimmedTarget.Beg; beg+m.WindowSize <= trimmedTarget.End; beg += m.WindowSize {
			end := beg + m.WindowSize
			var candidates []*sam.Record
			for _, rec := range records {
				if rec.Pos >= beg && rec.Pos < end {
					candidates = append(candidates, rec)
				}
			}
			// Each selected start stands for a pair, so halve the
			// sample's count.
			want := starts[wi] / 2
			for _, ci := range chooseFrom(len(candidates), want, m.Seed) {
				keep[candidates[ci].Name] = true
			}
			wi++
		}

		for _, rec := range records {
			if keep[rec.Name] {
				if err := w.Write(rec); err != nil {
					return errors.Wrap(err, "writing calibrated record")
				}
			}
		}
	}
	return nil
}

// windowStarts counts, for each full window of reg, the records whose
// alignment starts inside the window. A trailing partial window is
// dropped.
func windowStarts(src bamio.RecordSource, reg region.Region, windowSize int, minMapQ byte) ([]int, error) {
	var starts []int
	for beg := reg.Beg; beg+windowSize <= reg.End; beg += windowSize {
		n, err := startsIn(src, reg.Contig, beg, beg+windowSize, minMapQ)
		if err != nil {
			return nil, err
		}
		starts = append(starts, n)
	}
	return starts, nil
}

func startsIn(src bamio.RecordSource, contig string, beg, end int, minMapQ byte) (int, error) {
	it, err := src.Fetch(contig, beg, end)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	n := 0
	for it.Next() {
		rec := it.Record()
		if rec.Pos >= beg && rec.Pos < end && rec.MapQ >= minMapQ {
			n++
		}
	}
	if err := it.Error(); err != nil {
		return 0, errors.Wrapf(err, "counting read starts in %s:%d-%d", contig, beg, end)
	}
	return n, nil
}

// recordsStartingIn collects the records whose alignment starts inside
// reg, in fetch order.
func recordsStartingIn(src bamio.RecordSource, reg region.Region) ([]*sam.Record, error) {
	it, err := src.Fetch(reg.Contig, reg.Beg, reg.End)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var records []*sam.Record
	for it.Next() {
		rec := it.Record()
		if rec.Pos >= reg.Beg && rec.Pos < reg.End {
			records = append(records, rec)
		}
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrapf(err, "reading records for region %s", reg)
	}
	return records, nil
}

// chooseFrom picks n distinct indexes out of [0, size) using a fresh
// seeded generator. When n meets or exceeds size, every index is returned.
func chooseFrom(size, n int, seed uint64) []int {
	if n < 0 {
		n = 0
	}
	if n > size {
		n = size
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	return rng.Perm(size)[:n]
}

func windowCount(reg region.Region, windowSize int) int {
	n := 0
	for beg := reg.Beg; beg+windowSize <= reg.End; beg += windowSize {
		n++
	}
	return n
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
