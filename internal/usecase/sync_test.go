package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
)

// requestedRange spans Tue Mar 12 to Fri Mar 15 2024, all inside one week.
func requestedRange() models.TimeRange {
	return models.TimeRange{
		Start: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestSyncFillsGapAndPersists(t *testing.T) {
	fx := newSyncFixture()

	res, err := fx.uc.Sync(context.Background(), SyncParams{
		Symbol:      "AAPL",
		Granularity: domrepo.G1h,
		Range:       requestedRange(),
		Mode:        models.ModeTail,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, res.State)
	assert.Equal(t, 1, res.GapsFilled)
	assert.Zero(t, res.GapsFailed)
	assert.Equal(t, 1, res.SegmentsFetched)
	assert.NotEmpty(t, res.Bars)

	stored, err := fx.store.LoadBars(context.Background(), "AAPL", domrepo.G1h, requestedRange())
	require.NoError(t, err)
	assert.Equal(t, len(res.Bars), len(stored))

	types := fx.events.types()
	require.NotEmpty(t, types)
	assert.Equal(t, models.EventSyncStarted, types[0])
	assert.Equal(t, models.EventSyncCompleted, types[len(types)-1])
}

func TestSyncFailsWhenFreshDataRequiredAndNothingFetched(t *testing.T) {
	fx := newSyncFixture()
	for i := 0; i < 10; i++ {
		fx.fetcher.failOn[i] = true
	}

	res, err := fx.uc.Sync(context.Background(), SyncParams{
		Symbol:      "AAPL",
		Granularity: domrepo.G1h,
		Range:       requestedRange(),
		Mode:        models.ModeTail,
	})
	require.ErrorIs(t, err, models.ErrOperationFailed)
	assert.Equal(t, models.StateFailed, res.State)
	assert.Zero(t, res.SegmentsFetched)

	types := fx.events.types()
	assert.Equal(t, models.EventSyncFailed, types[len(types)-1])
}

func TestSyncLocalModeServesStoredWithoutFetching(t *testing.T) {
	fx := newSyncFixture()
	r := requestedRange()
	fx.store.seed(
		models.Bar{Symbol: "AAPL", TS: r.Start.Add(time.Hour), Close: 10},
		models.Bar{Symbol: "AAPL", TS: r.Start.Add(2 * time.Hour), Close: 11},
	)

	res, err := fx.uc.Sync(context.Background(), SyncParams{
		Symbol:      "AAPL",
		Granularity: domrepo.G1h,
		Range:       r,
		Mode:        models.ModeLocal,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateDone, res.State)
	assert.Len(t, res.Bars, 2)
	assert.Zero(t, fx.fetcher.callCount())
}

func TestSyncRejectsInvalidParams(t *testing.T) {
	fx := newSyncFixture()

	cases := []SyncParams{
		{Symbol: "", Granularity: domrepo.G1h, Range: requestedRange(), Mode: models.ModeTail},
		{Symbol: "AAPL", Granularity: "7m", Range: requestedRange(), Mode: models.ModeTail},
		{Symbol: "AAPL", Granularity: domrepo.G1h, Range: requestedRange(), Mode: "turbo"},
		{Symbol: "AAPL", Granularity: domrepo.G1h, Range: models.TimeRange{Start: requestedRange().End, End: requestedRange().Start}, Mode: models.ModeTail},
	}
	for _, p := range cases {
		res, err := fx.uc.Sync(context.Background(), p)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, models.StateFailed, res.State)
	}
	assert.Zero(t, fx.fetcher.callCount())
}

func TestSyncCancellationReportedDistinctly(t *testing.T) {
	fx := newSyncFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := fx.uc.Sync(ctx, SyncParams{
		Symbol:      "AAPL",
		Granularity: domrepo.G1h,
		Range:       requestedRange(),
		Mode:        models.ModeTail,
	})
	require.ErrorIs(t, err, models.ErrCancelled)
	assert.Equal(t, models.StateCancelled, res.State)

	types := fx.events.types()
	assert.Equal(t, models.EventSyncCancelled, types[len(types)-1])
}

func TestMergeBarsDedupsAndClamps(t *testing.T) {
	r := requestedRange()
	ts1 := r.Start.Add(time.Hour)
	ts2 := r.Start.Add(2 * time.Hour)
	ts3 := r.Start.Add(3 * time.Hour)

	existing := []models.Bar{
		{TS: ts1, Close: 1},
		{TS: ts2, Close: 2},
	}
	fetched := []models.Bar{
		{TS: ts2, Close: 20}, // overwrites the stored bar
		{TS: ts3, Close: 3},
		{TS: r.End.Add(time.Hour), Close: 99}, // outside the requested range
	}

	merged := MergeBars(existing, fetched, r)
	require.Len(t, merged, 3)
	assert.Equal(t, ts1, merged[0].TS)
	assert.Equal(t, float64(20), merged[1].Close)
	assert.Equal(t, ts3, merged[2].TS)
}
