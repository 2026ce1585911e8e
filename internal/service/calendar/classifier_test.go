package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
)

func weekdayCalendar() *models.TradingCalendar {
	days := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	}
	session := models.SessionWindow{StartMinute: 9*60 + 30, EndMinute: 16 * 60}
	return models.NewTradingCalendar("AAPL", "UTC", days, session, false)
}

func fxCalendar() *models.TradingCalendar {
	days := map[time.Weekday]bool{
		time.Sunday: true, time.Monday: true, time.Tuesday: true,
		time.Wednesday: true, time.Thursday: true, time.Friday: true,
	}
	return models.NewTradingCalendar("EURUSD", "UTC", days, models.SessionWindow{}, true)
}

func rng(start, end time.Time) models.TimeRange {
	return models.TimeRange{Start: start, End: end}
}

func TestClassifyWeekend24x5(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Friday evening close to Sunday evening reopen, 48h.
	r := rng(
		time.Date(2024, time.March, 15, 21, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 17, 21, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, fxCalendar(), "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedWeekend, class)
}

func TestClassifyWeekend24x5RejectsWrongShape(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// 48h but starting mid-week: not the weekly close pattern, and no
	// non-trading day inside either.
	r := rng(
		time.Date(2024, time.March, 12, 21, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 14, 21, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, fxCalendar(), "1h")
	require.NoError(t, err)
	assert.NotEqual(t, models.GapExpectedWeekend, class)
}

func TestClassifyWeekendFiveDayMarket(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Saturday spanned by the gap.
	r := rng(
		time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedWeekend, class)
}

func TestClassifyWeekendNoCalendarFallback(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	r := rng(
		time.Date(2024, time.March, 16, 6, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 17, 6, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, nil, "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedWeekend, class)
}

func TestClassifyHoliday(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Christmas 2024 falls on a Wednesday, so the weekend test cannot fire.
	r := rng(
		time.Date(2024, time.December, 24, 18, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 26, 13, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedHoliday, class)
}

func TestClassifyHolidaySpansPartialFinalDay(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// The range enters July 4 partway through the day; the date scan must
	// still see it.
	r := rng(
		time.Date(2024, time.July, 3, 20, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 4, 18, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedHoliday, class)
}

func TestClassifyMondayOutageIsNotHolidayBridge(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Mid-session hole on a Monday. Sunday precedes it, but the gap does not
	// touch the weekend boundary, so the bridge heuristic must not fire.
	r := rng(
		time.Date(2024, time.March, 11, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 11, 15, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1m")
	require.NoError(t, err)
	assert.Equal(t, models.GapUnexpected, class)
}

func TestClassifyHolidayBridgeAfterWeekend(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// A full empty Monday starting where the weekend break ends. March 11
	// 2024 matches no holiday table, so only the bridge can explain it.
	r := rng(
		time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedHoliday, class)
}

func TestClassifyOutsideSession(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Tuesday evening after the close through Wednesday before the open.
	r := rng(
		time.Date(2024, time.March, 12, 20, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1m")
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedTradingHours, class)
}

func TestClassifyOutsideSessionDailyGranularityExempt(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Same overnight shape, but daily bars have no intra-day session test.
	r := rng(
		time.Date(2024, time.March, 12, 20, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1d")
	require.NoError(t, err)
	assert.Equal(t, models.GapUnexpected, class)
}

func TestClassifyMarketClosure(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// 80 weekday hours, no holiday, wider than the closure threshold.
	r := rng(
		time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 14, 8, 0, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1h")
	require.NoError(t, err)
	assert.Equal(t, models.GapMarketClosure, class)
}

func TestClassifyUnexpected(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Mid-session hole on an ordinary Tuesday.
	r := rng(
		time.Date(2024, time.March, 12, 14, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 12, 15, 30, 0, 0, time.UTC),
	)
	class, err := c.Classify(r, weekdayCalendar(), "1m")
	require.NoError(t, err)
	assert.Equal(t, models.GapUnexpected, class)
}

func TestClassifyInvalidRange(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	r := rng(
		time.Date(2024, time.March, 12, 15, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 12, 14, 0, 0, 0, time.UTC),
	)
	_, err := c.Classify(r, weekdayCalendar(), "1m")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)
	r := rng(
		time.Date(2024, time.March, 15, 21, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 17, 21, 0, 0, 0, time.UTC),
	)
	first, err := c.Classify(r, fxCalendar(), "1h")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Classify(r, fxCalendar(), "1h")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAnalyzeSentinelDensityUpgrade(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)

	// Always-open calendar so the gap starts as Unexpected.
	days := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	}
	cal := models.NewTradingCalendar("XYZ", "UTC", days, models.SessionWindow{}, false)

	r := rng(
		time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 12, 14, 0, 0, 0, time.UTC),
	)

	// Dense sentinel bars around the gap push density past the threshold.
	var sentinels []time.Time
	for h := 8; h <= 15; h++ {
		sentinels = append(sentinels, time.Date(2024, time.March, 12, h, 0, 0, 0, time.UTC))
	}

	gap, err := c.Analyze(r, cal, "XYZ", "1m", "internal hole", sentinels)
	require.NoError(t, err)
	assert.Equal(t, models.GapExpectedTradingHours, gap.Classification)
	assert.NotEmpty(t, gap.Note)
	assert.Equal(t, 240, gap.EstimatedMissingUnits)
}

func TestAnalyzeSparseSentinelsStayUnexpected(t *testing.T) {
	c := NewClassifier(DefaultTuning(), nil)
	days := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	}
	cal := models.NewTradingCalendar("XYZ", "UTC", days, models.SessionWindow{}, false)

	r := rng(
		time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 12, 14, 0, 0, 0, time.UTC),
	)
	sentinels := []time.Time{time.Date(2024, time.March, 12, 11, 0, 0, 0, time.UTC)}

	gap, err := c.Analyze(r, cal, "XYZ", "1m", "internal hole", sentinels)
	require.NoError(t, err)
	assert.Equal(t, models.GapUnexpected, gap.Classification)
	assert.Empty(t, gap.Note)
}
