// Package coverage computes per-position read depth and summary statistics
// for genomic regions.
package coverage

import (
	"math"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

// ExcludeFlags is the standard exclusion mask (samtools 0xF04): unmapped,
// secondary, QC fail, duplicate, supplementary.
const ExcludeFlags = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate | sam.Supplementary

// RegionCoverage holds the per-position depth over a region. Region keeps
// the coordinates as given; when a flank was applied, Depth covers only the
// trimmed interior.
type RegionCoverage struct {
	Region region.Region
	Depth  []uint32
}

// ForRegion computes depth over reg after removing flank positions from
// both ends. Records matching ExcludeFlags or below minMapQ are skipped.
// maxDepth caps the depth recorded at any single position; 0 means no cap.
func ForRegion(src bamio.RecordSource, reg region.Region, minMapQ byte, flank int, maxDepth uint32) (*RegionCoverage, error) {
	trimmed, err := reg.Trim(flank)
	if err != nil {
		return nil, err
	}
	if maxDepth == 0 {
		maxDepth = math.MaxUint32
	}
	depth := make([]uint32, trimmed.Len())
	it, err := src.Fetch(trimmed.Contig, trimmed.Beg, trimmed.End)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for it.Next() {
		rec := it.Record()
		if rec.Flags&ExcludeFlags != 0 || rec.MapQ < minMapQ {
			continue
		}
		accumulate(depth, trimmed.Beg, trimmed.End, rec, maxDepth)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrapf(err, "reading records for region %s", reg)
	}
	return &RegionCoverage{Region: reg, Depth: depth}, nil
}

// accumulate walks the CIGAR and increments depth for every aligned base
// inside [beg, end). A position contributes only when the operation
// consumes both query and reference, so deletions and skips advance the
// reference cursor without adding depth, and insertions and clips add
// nothing.
func accumulate(depth []uint32, beg, end int, rec *sam.Record, maxDepth uint32) {
	pos := rec.Pos
	for _, co := range rec.Cigar {
		con := co.Type().Consumes()
		if con.Reference == 1 {
			if con.Query == 1 {
				for p := pos; p < pos+co.Len(); p++ {
					if p >= beg && p < end && depth[p-beg] < maxDepth {
						depth[p-beg]++
					}
				}
			}
			pos += co.Len()
		}
	}
}

// Len returns the number of positions covered.
func (c *RegionCoverage) Len() int { return len(c.Depth) }

// Min returns the minimum depth, or nil for an empty region.
func (c *RegionCoverage) Min() *uint32 {
	if len(c.Depth) == 0 {
		return nil
	}
	min := c.Depth[0]
	for _, d := range c.Depth[1:] {
		if d < min {
			min = d
		}
	}
	return &min
}

// Max returns the maximum depth, or nil for an empty region.
func (c *RegionCoverage) Max() *uint32 {
	if len(c.Depth) == 0 {
		return nil
	}
	max := c.Depth[0]
	for _, d := range c.Depth[1:] {
		if d > max {
			max = d
		}
	}
	return &max
}

// Mean returns the mean depth, or nil for an empty region.
func (c *RegionCoverage) Mean() *float64 {
	if len(c.Depth) == 0 {
		return nil
	}
	var sum float64
	for _, d := range c.Depth {
		sum += float64(d)
	}
	mean := sum / float64(len(c.Depth))
	return &mean
}

// Std returns the population standard deviation of the depth, or nil for
// an empty region.
func (c *RegionCoverage) Std() *float64 {
	mean := c.Mean()
	if mean == nil {
		return nil
	}
	var ss float64
	for _, d := range c.Depth {
		diff := float64(d) - *mean
		ss += diff * diff
	}
	std := math.Sqrt(ss / float64(len(c.Depth)))
	return &std
}

// CV returns the coefficient of variation (std over mean), or nil when the
// region is empty or the mean depth is zero.
func (c *RegionCoverage) CV() *float64 {
	mean := c.Mean()
	if mean == nil || *mean == 0 {
		return nil
	}
	std := c.Std()
	cv := *std / *mean
	return &cv
}

// PercentAboveThreshold returns the fraction of positions with depth of at
// least threshold, or nil for an empty region.
func (c *RegionCoverage) PercentAboveThreshold(threshold uint32) *float64 {
	if len(c.Depth) == 0 {
		return nil
	}
	n := 0
	for _, d := range c.Depth {
		if d >= threshold {
			n++
		}
	}
	pct := float64(n) / float64(len(c.Depth))
	return &pct
}
