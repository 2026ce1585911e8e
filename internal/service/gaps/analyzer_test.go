package gaps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
	"BarSync/internal/service/calendar"
)

func newAnalyzer() *Analyzer {
	return NewAnalyzer(calendar.NewClassifier(calendar.DefaultTuning(), nil), nil)
}

func weekdayCalendar() *models.TradingCalendar {
	days := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	}
	session := models.SessionWindow{StartMinute: 9*60 + 30, EndMinute: 16 * 60}
	return models.NewTradingCalendar("AAPL", "UTC", days, session, false)
}

func rng(start, end time.Time) models.TimeRange {
	return models.TimeRange{Start: start, End: end}
}

func ts(d int, h int) time.Time {
	return time.Date(2024, time.March, d, h, 0, 0, 0, time.UTC)
}

func TestReconcileLocalModeNeverFetches(t *testing.T) {
	a := newAnalyzer()
	gaps, _, err := a.Reconcile(nil, rng(ts(12, 0), ts(15, 0)), "1h", models.ModeLocal, "AAPL", weekdayCalendar(), nil)
	require.NoError(t, err)
	assert.Nil(t, gaps)
}

func TestReconcileInvalidInputs(t *testing.T) {
	a := newAnalyzer()

	_, _, err := a.Reconcile(nil, rng(ts(15, 0), ts(12, 0)), "1h", models.ModeTail, "AAPL", nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = a.Reconcile(nil, rng(ts(12, 0), ts(15, 0)), "7m", models.ModeTail, "AAPL", nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = a.Reconcile(nil, rng(ts(12, 0), ts(15, 0)), "1h", models.LoadingMode("bogus"), "AAPL", nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReconcileEmptyCoverage(t *testing.T) {
	a := newAnalyzer()

	// Tuesday through Friday, no weekend or holiday inside.
	requested := rng(ts(12, 0), ts(15, 0))
	gaps, _, err := a.Reconcile(nil, requested, "1d", models.ModeTail, "AAPL", weekdayCalendar(), nil)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, requested, gaps[0].Range)
	assert.Equal(t, "no existing data", gaps[0].Context)
}

func TestReconcileWideGapAlwaysKept(t *testing.T) {
	a := newAnalyzer()

	// Ten days including a full weekend: the weekend classification would
	// normally drop it, the width override keeps it.
	requested := rng(ts(11, 0), ts(21, 0))
	gaps, _, err := a.Reconcile(nil, requested, "1d", models.ModeTail, "AAPL", weekdayCalendar(), nil)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.True(t, gaps[0].Classification.Expected())
}

func TestReconcileShortGapWithoutCalendarDropped(t *testing.T) {
	a := newAnalyzer()

	requested := rng(ts(12, 0), ts(13, 0))
	gaps, _, err := a.Reconcile(nil, requested, "1h", models.ModeTail, "UNKNOWN", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestReconcileInternalHolesTailOnly(t *testing.T) {
	a := newAnalyzer()
	cal := weekdayCalendar()

	// Two covered blocks on Tuesday with an in-session hole between them.
	coverage := []models.TimeRange{
		{Start: ts(12, 10), End: ts(12, 12)},
		{Start: ts(12, 14), End: ts(12, 15)},
	}
	requested := rng(ts(12, 10), ts(12, 15))

	gaps, _, err := a.Reconcile(coverage, requested, "1m", models.ModeTail, "AAPL", cal, nil)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, rng(ts(12, 12), ts(12, 14)), gaps[0].Range)
	assert.Equal(t, "internal hole", gaps[0].Context)

	// Backfill ignores internal holes; with aligned boundaries nothing is left.
	gaps, _, err = a.Reconcile(coverage, requested, "1m", models.ModeBackfill, "AAPL", cal, nil)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestReconcileMondayHoleKeptInTail(t *testing.T) {
	a := newAnalyzer()
	cal := weekdayCalendar()

	// Two covered blocks on Monday March 11 with a two-hour in-session hole.
	// The preceding Sunday must not turn the hole into a holiday bridge.
	coverage := []models.TimeRange{
		{Start: ts(11, 10), End: ts(11, 12)},
		{Start: ts(11, 14), End: ts(11, 15)},
	}
	requested := rng(ts(11, 10), ts(11, 15))

	gaps, skipped, err := a.Reconcile(coverage, requested, "1m", models.ModeTail, "AAPL", cal, nil)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, rng(ts(11, 12), ts(11, 14)), gaps[0].Range)
	assert.Equal(t, models.GapUnexpected, gaps[0].Classification)
	assert.Zero(t, skipped)
}

func TestReconcileCountsSkippedExpected(t *testing.T) {
	a := newAnalyzer()
	cal := weekdayCalendar()

	// Coverage ends Friday night; the tail boundary is exactly the weekend.
	coverage := []models.TimeRange{{Start: ts(11, 0), End: ts(16, 0)}}
	requested := rng(ts(11, 0), ts(18, 0))

	gaps, skipped, err := a.Reconcile(coverage, requested, "1d", models.ModeTail, "AAPL", cal, nil)
	require.NoError(t, err)
	assert.Empty(t, gaps)
	assert.Equal(t, 1, skipped)
}

func TestReconcileBoundariesPerMode(t *testing.T) {
	a := newAnalyzer()
	cal := weekdayCalendar()

	coverage := []models.TimeRange{{Start: ts(12, 11), End: ts(12, 14)}}
	requested := rng(ts(12, 10), ts(12, 15))

	tail, _, err := a.Reconcile(coverage, requested, "1m", models.ModeTail, "AAPL", cal, nil)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "tail boundary", tail[0].Context)
	assert.Equal(t, rng(ts(12, 14), ts(12, 15)), tail[0].Range)

	back, _, err := a.Reconcile(coverage, requested, "1m", models.ModeBackfill, "AAPL", cal, nil)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "backfill boundary", back[0].Context)
	assert.Equal(t, rng(ts(12, 10), ts(12, 11)), back[0].Range)

	full, _, err := a.Reconcile(coverage, requested, "1m", models.ModeFull, "AAPL", cal, nil)
	require.NoError(t, err)
	require.Len(t, full, 2)
}

func TestReconcileFullModeOrdersRecentFirst(t *testing.T) {
	a := newAnalyzer()
	a.now = func() time.Time { return time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC) }
	cal := weekdayCalendar()

	// One old backfill hole in January and a fresh tail hole this week, both
	// wide enough to survive classification.
	coverage := []models.TimeRange{
		{Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), End: ts(20, 0)},
	}
	requested := rng(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), ts(21, 12))

	gaps, _, err := a.Reconcile(coverage, requested, "1d", models.ModeFull, "AAPL", cal, nil)
	require.NoError(t, err)
	require.Len(t, gaps, 2)
	assert.Equal(t, "tail boundary", gaps[0].Context, "recent gap ordered first")
	assert.Equal(t, "backfill boundary", gaps[1].Context)
}
