package coverage

import (
	"math"

	"github.com/biogo/hts/sam"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

// Tracker accumulates depth over a fixed set of regions from records fed
// to it one at a time. It lets the calibrated output coverage be measured
// while the output is written, without re-reading or indexing the result.
type Tracker struct {
	minMapQ byte
	regions []region.Region
	depths  [][]uint32
	index   map[string][]int // contig -> region indexes
}

// NewTracker prepares a tracker over the flank-trimmed interiors of the
// given regions. Records below minMapQ or matching ExcludeFlags are
// ignored when observed.
func NewTracker(regions []region.Region, flank int, minMapQ byte) (*Tracker, error) {
	t := &Tracker{
		minMapQ: minMapQ,
		regions: make([]region.Region, 0, len(regions)),
		depths:  make([][]uint32, 0, len(regions)),
		index:   make(map[string][]int),
	}
	for _, reg := range regions {
		trimmed, err := reg.Trim(flank)
		if err != nil {
			return nil, err
		}
		i := len(t.regions)
		t.regions = append(t.regions, trimmed)
		t.depths = append(t.depths, make([]uint32, trimmed.Len()))
		t.index[trimmed.Contig] = append(t.index[trimmed.Contig], i)
	}
	return t, nil
}

// Observe adds one record's aligned bases to every tracked region it
// overlaps.
func (t *Tracker) Observe(rec *sam.Record) {
	if rec.Ref == nil || rec.Flags&ExcludeFlags != 0 || rec.MapQ < t.minMapQ {
		return
	}
	for _, i := range t.index[rec.Ref.Name()] {
		reg := t.regions[i]
		if rec.Start() >= reg.End || rec.End() <= reg.Beg {
			continue
		}
		accumulate(t.depths[i], reg.Beg, reg.End, rec, math.MaxUint32)
	}
}

// Mean returns the mean observed depth of the region named name, or 0 when
// the name is unknown.
func (t *Tracker) Mean(name string) float64 {
	for i, reg := range t.regions {
		if reg.Name != name {
			continue
		}
		cov := RegionCoverage{Region: reg, Depth: t.depths[i]}
		if m := cov.Mean(); m != nil {
			return *m
		}
		return 0
	}
	return 0
}

// TrackingWriter forwards records to W and observes each one with T.
type TrackingWriter struct {
	W bamio.RecordWriter
	T *Tracker
}

func (w TrackingWriter) Write(rec *sam.Record) error {
	if err := w.W.Write(rec); err != nil {
		return err
	}
	w.T.Observe(rec)
	return nil
}
