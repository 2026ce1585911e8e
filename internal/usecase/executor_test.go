package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
)

func TestFetchAllAbsorbsSegmentFailures(t *testing.T) {
	fetcher := &fakeFetcher{failOn: map[int]bool{2: true}}
	exec := newTestExecutor(fetcher)

	base := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	var segments []models.Segment
	for i := 0; i < 5; i++ {
		segments = append(segments, segAt(base.Add(time.Duration(i)*time.Hour), time.Hour))
	}

	var checkpointed []models.Bar
	checkpoint := func(_ context.Context, bars []models.Bar) error {
		checkpointed = append(checkpointed, bars...)
		return nil
	}

	res, err := exec.FetchAll(context.Background(), "AAPL", domrepo.G1h, segments, checkpoint, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 4, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.False(t, res.Cancelled)
	assert.Len(t, res.Bars, 4)
	assert.Len(t, res.Outcomes, 5)
	assert.Len(t, checkpointed, 4)

	failed := res.Outcomes[2]
	require.Error(t, failed.Err)
	fe, ok := models.AsFetchError(failed.Err)
	require.True(t, ok)
	assert.Equal(t, 200, fe.Code)
	// Non-retryable provider errors stop after the first attempt.
	assert.Equal(t, 1, failed.Attempts)
}

func TestFetchAllCancelledBeforeStart(t *testing.T) {
	fetcher := &fakeFetcher{failOn: map[int]bool{}}
	exec := newTestExecutor(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	segments := []models.Segment{segAt(base, time.Hour), segAt(base.Add(time.Hour), time.Hour)}

	res, err := exec.FetchAll(ctx, "AAPL", domrepo.G1h, segments, nil, time.Hour)
	require.ErrorIs(t, err, models.ErrCancelled)
	assert.True(t, res.Cancelled)
	assert.Zero(t, res.SuccessCount)
	assert.Empty(t, res.Outcomes)
	assert.Zero(t, fetcher.callCount())
}

func TestFetchAllKeepsBufferWhenCheckpointFails(t *testing.T) {
	fetcher := &fakeFetcher{failOn: map[int]bool{}}
	exec := newTestExecutor(fetcher)

	base := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	segments := []models.Segment{segAt(base, time.Hour), segAt(base.Add(time.Hour), time.Hour)}

	calls := 0
	checkpoint := func(context.Context, []models.Bar) error {
		calls++
		return errors.New("store unavailable")
	}

	res, err := exec.FetchAll(context.Background(), "AAPL", domrepo.G1h, segments, checkpoint, time.Hour)
	require.NoError(t, err)
	// Persistence trouble never discards fetched bars.
	assert.Equal(t, 2, res.SuccessCount)
	assert.Len(t, res.Bars, 2)
	assert.GreaterOrEqual(t, calls, 1)
}
