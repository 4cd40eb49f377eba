package calibrate

import (
	"fmt"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

// profileFixture builds a sample region on chr1 with 4 read starts in its
// first window and 2 in its second, and a target region on chrQ with 5
// candidates in its first window and 1 in its second.
func profileFixture(t *testing.T) (*bamio.MockSource, region.Region, region.Region) {
	t.Helper()
	h := testHeader(t)
	var records []*sam.Record
	for i, pos := range []int{1000, 1010, 1020, 1030, 1100, 1110} {
		records = append(records, single(h, 0, fmt.Sprintf("s%d", i), pos))
	}
	for i, pos := range []int{2000, 2010, 2020, 2030, 2040, 2100} {
		rec := single(h, 1, fmt.Sprintf("t%d", i), pos)
		rec.Flags = sam.Paired
		rec.MateRef = h.Refs()[1]
		rec.MatePos = pos + 200
		records = append(records, rec)
	}
	sample := region.Region{Contig: "chr1", Beg: 1000, End: 1200, Name: "q1"}
	target := region.Region{Contig: "chrQ", Beg: 2000, End: 2200, Name: "q1"}
	return bamio.NewMockSource(h, records), sample, target
}

func TestCalibrateSampleProfile(t *testing.T) {
	src, sample, target := profileFixture(t)

	var out bamio.Collect
	results, err := Calibrate(src, &out, []region.Region{target}, SampleProfile{
		SampleRegions: []region.Region{sample},
		Flank:         0,
		WindowSize:    100,
		MinMapQ:       10,
		Seed:          5678,
	}, true)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Mirrored sample starts are [2, 4]; halving for pairs requests 1
	// read from the first target window and 2 from the second. The
	// second window holds only one candidate, so it is taken whole.
	require.Len(t, out.Records, 2)
	first, second := out.Records[0], out.Records[1]
	assert.GreaterOrEqual(t, first.Pos, 2000)
	assert.Less(t, first.Pos, 2100)
	assert.Equal(t, 2100, second.Pos)
}

func TestCalibrateSampleProfileDeterministic(t *testing.T) {
	run := func() []string {
		src, sample, target := profileFixture(t)
		var out bamio.Collect
		_, err := Calibrate(src, &out, []region.Region{target}, SampleProfile{
			SampleRegions: []region.Region{sample},
			WindowSize:    100,
			MinMapQ:       10,
			Seed:          99,
		}, true)
		require.NoError(t, err)
		return out.Names()
	}
	assert.Equal(t, run(), run())
}

func TestCalibrateSampleProfileWritesFlankMates(t *testing.T) {
	h := testHeader(t)
	var records []*sam.Record
	// Sample region trims to one window [1050,1150) holding six read
	// starts, so the target window requests three pairs.
	for i, pos := range []int{1050, 1060, 1070, 1080, 1090, 1100} {
		records = append(records, single(h, 0, fmt.Sprintf("s%d", i), pos))
	}
	// Target trims to one window [2050,2150). straddle's mate starts
	// inside the flank, outside every window.
	straddle1, straddle2 := pair(h, 1, "straddle", 2100, 2010)
	inwin1, inwin2 := pair(h, 1, "inwin", 2060, 2110)
	records = append(records, straddle1, straddle2, inwin1, inwin2)

	sample := region.Region{Contig: "chr1", Beg: 1000, End: 1200, Name: "q1"}
	target := region.Region{Contig: "chrQ", Beg: 2000, End: 2200, Name: "q1"}

	var out bamio.Collect
	_, err := Calibrate(bamio.NewMockSource(h, records), &out, []region.Region{target}, SampleProfile{
		SampleRegions: []region.Region{sample},
		Flank:         50,
		WindowSize:    100,
		MinMapQ:       10,
		Seed:          5678,
	}, true)
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, rec := range out.Records {
		counts[rec.Name]++
	}
	assert.Equal(t, 2, counts["straddle"], "kept read must be written with its flank-resident mate")
	assert.Equal(t, 2, counts["inwin"])
}

func TestCalibrateSampleProfileWindowMismatch(t *testing.T) {
	src, sample, target := profileFixture(t)
	target.End = 2150 // one full window against the sample's two

	var out bamio.Collect
	_, err := Calibrate(src, &out, []region.Region{target}, SampleProfile{
		SampleRegions: []region.Region{sample},
		WindowSize:    100,
		Seed:          5678,
	}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window count mismatch")
}

func TestCalibrateSampleProfileMissingSample(t *testing.T) {
	src, sample, target := profileFixture(t)
	sample.Name = "other"

	var out bamio.Collect
	_, err := Calibrate(src, &out, []region.Region{target}, SampleProfile{
		SampleRegions: []region.Region{sample},
		WindowSize:    100,
		Seed:          5678,
	}, true)
	require.ErrorIs(t, err, ErrMissingSampleRegion)
}

func TestWindowStarts(t *testing.T) {
	src, sample, _ := profileFixture(t)

	starts, err := windowStarts(src, sample, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, starts)

	// A trailing partial window is dropped.
	short := sample
	short.End = 1150
	starts, err = windowStarts(src, short, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, starts)
}

func TestWindowStartsMapQFilter(t *testing.T) {
	src, sample, _ := profileFixture(t)

	starts, err := windowStarts(src, sample, 100, 61)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, starts)
}

func TestChooseFrom(t *testing.T) {
	chosen := chooseFrom(10, 3, 5678)
	assert.Len(t, chosen, 3)
	seen := make(map[int]bool)
	for _, i := range chosen {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 10)
		assert.False(t, seen[i], "index %d chosen twice", i)
		seen[i] = true
	}

	// Deterministic for a fixed seed.
	assert.Equal(t, chosen, chooseFrom(10, 3, 5678))

	// Asking for too many returns everything once.
	all := chooseFrom(4, 10, 5678)
	assert.Len(t, all, 4)

	assert.Empty(t, chooseFrom(4, 0, 5678))
	assert.Empty(t, chooseFrom(0, 3, 5678))
}

func TestWindowCount(t *testing.T) {
	reg := region.Region{Contig: "chrQ", Beg: 0, End: 250, Name: "r"}
	assert.Equal(t, 2, windowCount(reg, 100))
	assert.Equal(t, 0, windowCount(region.Region{Beg: 0, End: 50}, 100))
}
