package coverage

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
)

func TestTrackerMean(t *testing.T) {
	h := testHeader(t)
	tracker, err := NewTracker([]region.Region{testRegion}, 0, 0)
	require.NoError(t, err)

	tracker.Observe(alignedRecord(h, 100, match(100), "a"))
	tracker.Observe(alignedRecord(h, 100, match(100), "b"))

	assert.InDelta(t, 2.0, tracker.Mean("r1"), 1e-9)
	assert.Equal(t, 0.0, tracker.Mean("unknown"))
}

func TestTrackerFilters(t *testing.T) {
	h := testHeader(t)
	tracker, err := NewTracker([]region.Region{testRegion}, 0, 10)
	require.NoError(t, err)

	dup := alignedRecord(h, 100, match(100), "dup")
	dup.Flags |= sam.Duplicate
	tracker.Observe(dup)

	lowq := alignedRecord(h, 100, match(100), "lowq")
	lowq.MapQ = 5
	tracker.Observe(lowq)

	assert.Equal(t, 0.0, tracker.Mean("r1"))
}

func TestTrackerFlank(t *testing.T) {
	h := testHeader(t)
	tracker, err := NewTracker([]region.Region{testRegion}, 25, 0)
	require.NoError(t, err)

	// Covers only the left flank, never the trimmed interior.
	tracker.Observe(alignedRecord(h, 100, match(25), "flankonly"))
	assert.Equal(t, 0.0, tracker.Mean("r1"))

	tracker.Observe(alignedRecord(h, 125, match(50), "interior"))
	assert.InDelta(t, 1.0, tracker.Mean("r1"), 1e-9)

	_, err = NewTracker([]region.Region{testRegion}, 60, 0)
	require.Error(t, err)
}

func TestTrackingWriter(t *testing.T) {
	h := testHeader(t)
	tracker, err := NewTracker([]region.Region{testRegion}, 0, 0)
	require.NoError(t, err)

	var sink bamio.Collect
	w := TrackingWriter{W: &sink, T: tracker}
	require.NoError(t, w.Write(alignedRecord(h, 100, match(100), "a")))

	assert.Len(t, sink.Records, 1)
	assert.InDelta(t, 1.0, tracker.Mean("r1"), 1e-9)
}
