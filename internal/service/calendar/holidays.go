package calendar

import "time"

// fixedHoliday is a month/day date observed every year, with a window of
// calendar days around it during which the market produces no data.
type fixedHoliday struct {
	month time.Month
	day   int
	// days before/after the date that are also covered (half-day closes,
	// bridge days the provider reports as empty)
	before int
	after  int
}

// Fixed-date closures seen across the covered exchanges. The year-end block
// is wider than the statutory holiday because providers return empty data
// for the half-days around it.
var fixedHolidays = []fixedHoliday{
	{month: time.January, day: 1, before: 1, after: 1},   // New Year + eve/bridge
	{month: time.July, day: 4, before: 0, after: 0},      // Independence Day
	{month: time.December, day: 25, before: 1, after: 1}, // Christmas window
}

// nthWeekdayHoliday is an "nth weekday of month" rule. nth == -1 means the
// last occurrence in the month.
type nthWeekdayHoliday struct {
	month   time.Month
	weekday time.Weekday
	nth     int
}

var nthWeekdayHolidays = []nthWeekdayHoliday{
	{month: time.January, weekday: time.Monday, nth: 3},    // MLK Day
	{month: time.February, weekday: time.Monday, nth: 3},   // Presidents' Day
	{month: time.May, weekday: time.Monday, nth: -1},       // Memorial Day
	{month: time.September, weekday: time.Monday, nth: 1},  // Labor Day
	{month: time.November, weekday: time.Thursday, nth: 4}, // Thanksgiving
}

// easterSunday computes Gregorian Easter for a year using the anonymous
// computus algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// matchesFixed reports whether the date falls inside any fixed-holiday window.
func matchesFixed(date time.Time) bool {
	for _, h := range fixedHolidays {
		anchor := time.Date(date.Year(), h.month, h.day, 0, 0, 0, 0, time.UTC)
		from := anchor.AddDate(0, 0, -h.before)
		to := anchor.AddDate(0, 0, h.after)
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		if !day.Before(from) && !day.After(to) {
			return true
		}
	}
	return false
}

// matchesFloating reports whether the date is Good Friday or Easter Monday.
func matchesFloating(date time.Time) bool {
	easter := easterSunday(date.Year())
	goodFriday := easter.AddDate(0, 0, -2)
	easterMonday := easter.AddDate(0, 0, 1)
	y, m, d := date.Date()
	for _, h := range []time.Time{goodFriday, easterMonday} {
		hy, hm, hd := h.Date()
		if y == hy && m == hm && d == hd {
			return true
		}
	}
	return false
}

// matchesNthWeekday reports whether the date matches an nth-weekday rule.
func matchesNthWeekday(date time.Time) bool {
	for _, h := range nthWeekdayHolidays {
		if date.Month() != h.month || date.Weekday() != h.weekday {
			continue
		}
		if h.nth == -1 {
			// Last occurrence: no same weekday later this month.
			if date.AddDate(0, 0, 7).Month() != h.month {
				return true
			}
			continue
		}
		if (date.Day()-1)/7+1 == h.nth {
			return true
		}
	}
	return false
}

// IsHoliday reports whether the calendar date is a known market holiday.
func IsHoliday(date time.Time) bool {
	return matchesFixed(date) || matchesFloating(date) || matchesNthWeekday(date)
}
