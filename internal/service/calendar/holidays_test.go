package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEasterSunday(t *testing.T) {
	assert.Equal(t, date(2024, time.March, 31), easterSunday(2024))
	assert.Equal(t, date(2025, time.April, 20), easterSunday(2025))
	assert.Equal(t, date(2026, time.April, 5), easterSunday(2026))
}

func TestIsHolidayFixed(t *testing.T) {
	assert.True(t, IsHoliday(date(2024, time.December, 25)))
	assert.True(t, IsHoliday(date(2024, time.December, 24)), "eve inside the window")
	assert.True(t, IsHoliday(date(2024, time.December, 26)))
	assert.True(t, IsHoliday(date(2024, time.July, 4)))
	assert.True(t, IsHoliday(date(2025, time.January, 1)))
	assert.False(t, IsHoliday(date(2024, time.December, 23)))
}

func TestIsHolidayFloating(t *testing.T) {
	assert.True(t, IsHoliday(date(2024, time.March, 29)), "Good Friday")
	assert.True(t, IsHoliday(date(2024, time.April, 1)), "Easter Monday")
	assert.False(t, IsHoliday(date(2024, time.March, 28)))
}

func TestIsHolidayNthWeekday(t *testing.T) {
	assert.True(t, IsHoliday(date(2024, time.January, 15)), "MLK, 3rd Monday")
	assert.True(t, IsHoliday(date(2024, time.May, 27)), "Memorial Day, last Monday")
	assert.True(t, IsHoliday(date(2024, time.November, 28)), "Thanksgiving, 4th Thursday")
	assert.False(t, IsHoliday(date(2024, time.November, 21)), "3rd Thursday is ordinary")
	assert.False(t, IsHoliday(date(2024, time.May, 20)), "not the last Monday")
}

func TestIsHolidayOrdinaryDay(t *testing.T) {
	assert.False(t, IsHoliday(date(2024, time.March, 12)))
	assert.False(t, IsHoliday(date(2024, time.August, 14)))
}
