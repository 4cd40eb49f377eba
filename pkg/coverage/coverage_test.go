package coverage

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

func testHeader(t *testing.T) *sam.Header {
	t.Helper()
	chr1, err := sam.NewReference("chr1", "", "", 100000, nil, nil)
	require.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	require.NoError(t, err)
	return h
}

func alignedRecord(h *sam.Header, pos int, cigar sam.Cigar, name string) *sam.Record {
	return &sam.Record{
		Name:  name,
		Ref:   h.Refs()[0],
		Pos:   pos,
		MapQ:  60,
		Cigar: cigar,
	}
}

func match(n int) sam.Cigar {
	return sam.Cigar{sam.NewCigarOp(sam.CigarMatch, n)}
}

var testRegion = region.Region{Contig: "chr1", Beg: 100, End: 200, Name: "r1"}

func TestForRegionDepth(t *testing.T) {
	h := testHeader(t)
	src := bamio.NewMockSource(h, []*sam.Record{
		alignedRecord(h, 100, match(100), "a"), // covers the whole region
		alignedRecord(h, 150, match(100), "b"), // covers 150-200 in-region
		alignedRecord(h, 90, match(20), "c"),   // covers 100-110 in-region
	})

	cov, err := ForRegion(src, testRegion, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, cov.Depth, 100)

	assert.Equal(t, uint32(2), cov.Depth[0])  // position 100: a + c
	assert.Equal(t, uint32(1), cov.Depth[10]) // position 110: a only
	assert.Equal(t, uint32(2), cov.Depth[50]) // position 150: a + b
	assert.Equal(t, uint32(2), cov.Depth[99]) // position 199: a + b

	mean := cov.Mean()
	require.NotNil(t, mean)
	// 10 positions at 2, 40 at 1, 50 at 2.
	assert.InDelta(t, 1.6, *mean, 1e-9)
}

func TestForRegionCigarHandling(t *testing.T) {
	h := testHeader(t)
	// 10M 5D 10M: aligned bases at 100-110 and 115-125; the deletion
	// advances the reference without depth.
	withDel := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarDeletion, 5),
		sam.NewCigarOp(sam.CigarMatch, 10),
	}
	// 5S 10M: soft clip consumes no reference.
	withClip := sam.Cigar{
		sam.NewCigarOp(sam.CigarSoftClipped, 5),
		sam.NewCigarOp(sam.CigarMatch, 10),
	}
	// 10M 5I 10M: the insertion adds nothing and stays in place.
	withIns := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarInsertion, 5),
		sam.NewCigarOp(sam.CigarMatch, 10),
	}
	src := bamio.NewMockSource(h, []*sam.Record{
		alignedRecord(h, 100, withDel, "del"),
		alignedRecord(h, 130, withClip, "clip"),
		alignedRecord(h, 160, withIns, "ins"),
	})

	cov, err := ForRegion(src, testRegion, 0, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), cov.Depth[5])  // inside first match of del
	assert.Equal(t, uint32(0), cov.Depth[12]) // inside the deletion
	assert.Equal(t, uint32(1), cov.Depth[18]) // after the deletion
	assert.Equal(t, uint32(1), cov.Depth[35]) // clip shifted nothing
	assert.Equal(t, uint32(0), cov.Depth[28])
	assert.Equal(t, uint32(1), cov.Depth[65]) // second match after insertion
	assert.Equal(t, uint32(0), cov.Depth[81]) // insertion consumed no reference
}

func TestForRegionFilters(t *testing.T) {
	h := testHeader(t)
	lowMapQ := alignedRecord(h, 100, match(100), "lowq")
	lowMapQ.MapQ = 5
	dup := alignedRecord(h, 100, match(100), "dup")
	dup.Flags |= sam.Duplicate
	secondary := alignedRecord(h, 100, match(100), "sec")
	secondary.Flags |= sam.Secondary
	src := bamio.NewMockSource(h, []*sam.Record{
		alignedRecord(h, 100, match(100), "ok"),
		lowMapQ, dup, secondary,
	})

	cov, err := ForRegion(src, testRegion, 10, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cov.Depth[0])
	assert.Equal(t, uint32(1), cov.Depth[99])
}

func TestForRegionMaxDepthCap(t *testing.T) {
	h := testHeader(t)
	src := bamio.NewMockSource(h, []*sam.Record{
		alignedRecord(h, 100, match(100), "a"),
		alignedRecord(h, 100, match(100), "b"),
		alignedRecord(h, 100, match(100), "c"),
	})

	cov, err := ForRegion(src, testRegion, 0, 0, 2)
	require.NoError(t, err)
	max := cov.Max()
	require.NotNil(t, max)
	assert.Equal(t, uint32(2), *max)
}

func TestForRegionFlank(t *testing.T) {
	h := testHeader(t)
	src := bamio.NewMockSource(h, []*sam.Record{
		alignedRecord(h, 100, match(100), "a"),
	})

	cov, err := ForRegion(src, testRegion, 0, 40, 0)
	require.NoError(t, err)
	assert.Len(t, cov.Depth, 20)
	// Reported coordinates stay as given.
	assert.Equal(t, testRegion, cov.Region)

	_, err = ForRegion(src, testRegion, 0, 50, 0)
	require.Error(t, err)
}

func TestForRegionNoReads(t *testing.T) {
	h := testHeader(t)
	src := bamio.NewMockSource(h, nil)

	cov, err := ForRegion(src, testRegion, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, cov.Depth, 100)

	mean := cov.Mean()
	require.NotNil(t, mean)
	assert.Equal(t, 0.0, *mean)
	assert.Nil(t, cov.CV())
}

func TestStats(t *testing.T) {
	cov := &RegionCoverage{Region: testRegion, Depth: []uint32{1, 2, 3}}

	assert.Equal(t, uint32(1), *cov.Min())
	assert.Equal(t, uint32(3), *cov.Max())
	assert.InDelta(t, 2.0, *cov.Mean(), 1e-9)
	assert.InDelta(t, 0.8165, *cov.Std(), 1e-4)
	assert.InDelta(t, 0.4082, *cov.CV(), 1e-4)
	// The threshold is inclusive: depth == t counts.
	assert.InDelta(t, 2.0/3.0, *cov.PercentAboveThreshold(2), 1e-9)
	assert.InDelta(t, 1.0, *cov.PercentAboveThreshold(1), 1e-9)
	assert.InDelta(t, 1.0/3.0, *cov.PercentAboveThreshold(3), 1e-9)
	assert.InDelta(t, 0.0, *cov.PercentAboveThreshold(4), 1e-9)
}

func TestStatsEmpty(t *testing.T) {
	cov := &RegionCoverage{Region: testRegion}

	assert.Nil(t, cov.Min())
	assert.Nil(t, cov.Max())
	assert.Nil(t, cov.Mean())
	assert.Nil(t, cov.Std())
	assert.Nil(t, cov.CV())
	assert.Nil(t, cov.PercentAboveThreshold(1))
}
