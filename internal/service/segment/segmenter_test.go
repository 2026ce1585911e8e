package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
)

func gapAt(start time.Time, d time.Duration) models.Gap {
	return models.Gap{Range: models.TimeRange{Start: start, End: start.Add(d)}}
}

func TestSplitRespectsMaxSpan(t *testing.T) {
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	g := domrepo.Granularity("1s") // 30 minute max span

	segs := Split([]models.Gap{gapAt(start, 95*time.Minute)}, g, models.ModeBackfill)
	require.Len(t, segs, 4)

	maxSpan := g.MaxFetchSpan()
	for _, s := range segs {
		assert.LessOrEqual(t, s.Range.Duration(), maxSpan)
	}
	// Only the last segment may be shorter.
	for _, s := range segs[:len(segs)-1] {
		assert.Equal(t, maxSpan, s.Range.Duration())
	}
	assert.Equal(t, 5*time.Minute, segs[len(segs)-1].Range.Duration())
}

func TestSplitReconstructsGapExactly(t *testing.T) {
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	gap := gapAt(start, 95*time.Minute)

	segs := Split([]models.Gap{gap}, "1s", models.ModeBackfill)

	cursor := gap.Range.Start
	for _, s := range segs {
		assert.Equal(t, cursor, s.Range.Start, "segments must be contiguous")
		assert.Equal(t, gap, s.Source)
		cursor = s.Range.End
	}
	assert.Equal(t, gap.Range.End, cursor)
}

func TestSplitShortGapSingleSegment(t *testing.T) {
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	gap := gapAt(start, 10*time.Minute)

	segs := Split([]models.Gap{gap}, "1s", models.ModeTail)
	require.Len(t, segs, 1)
	assert.Equal(t, gap.Range, segs[0].Range)
}

func TestPrioritizeTailNewestFirst(t *testing.T) {
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	segs := Split([]models.Gap{gapAt(start, 95*time.Minute)}, "1s", models.ModeTail)

	for i := 1; i < len(segs); i++ {
		assert.True(t, segs[i].Range.Start.Before(segs[i-1].Range.Start))
	}
}

func TestPrioritizeBackfillOldestFirst(t *testing.T) {
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	segs := Split([]models.Gap{gapAt(start, 95*time.Minute)}, "1s", models.ModeBackfill)

	for i := 1; i < len(segs); i++ {
		assert.True(t, segs[i].Range.Start.After(segs[i-1].Range.Start))
	}
}

func TestPrioritizeFullInterleaves(t *testing.T) {
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	segs := Split([]models.Gap{gapAt(start, 150*time.Minute)}, "1s", models.ModeFull)
	require.Len(t, segs, 5)

	// Ascending starts are 0,30,60,90,120 minutes; interleaved alternates
	// newest and oldest ends inward.
	wantOffsets := []time.Duration{120, 0, 90, 30, 60}
	for i, want := range wantOffsets {
		assert.Equal(t, start.Add(want*time.Minute), segs[i].Range.Start)
	}
}
