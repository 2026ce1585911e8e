package models

import "time"

// SessionWindow is a daily trading session expressed as minutes since
// midnight in the calendar's timezone. Start > End means the session crosses
// midnight (24h markets that pause briefly each day).
type SessionWindow struct {
	StartMinute int
	EndMinute   int
}

// Covers reports whether the minute-of-day m falls inside the session.
func (s SessionWindow) Covers(m int) bool {
	if s.StartMinute == s.EndMinute {
		return true // degenerate window, treat as always open
	}
	if s.StartMinute < s.EndMinute {
		return m >= s.StartMinute && m < s.EndMinute
	}
	// Crosses midnight: open late in the day through early next day.
	return m >= s.StartMinute || m < s.EndMinute
}

// TradingCalendar holds per-asset trading-hours metadata. Immutable once
// built; a nil calendar means no metadata is known for the symbol.
type TradingCalendar struct {
	Symbol      string
	Timezone    string
	TradingDays map[time.Weekday]bool
	Session     SessionWindow
	Is24x5      bool

	loc *time.Location
}

// NewTradingCalendar builds a calendar, resolving the timezone. A bad or
// empty timezone degrades to UTC rather than failing: classification must
// always have a usable calendar once one exists.
func NewTradingCalendar(symbol, tz string, days map[time.Weekday]bool, session SessionWindow, is24x5 bool) *TradingCalendar {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return &TradingCalendar{
		Symbol:      symbol,
		Timezone:    tz,
		TradingDays: days,
		Session:     session,
		Is24x5:      is24x5,
		loc:         loc,
	}
}

// Location returns the resolved market timezone (UTC when degraded).
func (c *TradingCalendar) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// IsTradingDay reports whether the weekday is a regular trading day. Missing
// metadata falls back to Monday..Friday.
func (c *TradingCalendar) IsTradingDay(d time.Weekday) bool {
	if c == nil || len(c.TradingDays) == 0 {
		return d != time.Saturday && d != time.Sunday
	}
	return c.TradingDays[d]
}

// LastTradingWeekday returns the last trading day before the weekly break
// (Friday for a Mon-Fri market).
func (c *TradingCalendar) LastTradingWeekday() time.Weekday {
	last := time.Friday
	if c == nil || len(c.TradingDays) == 0 {
		return last
	}
	// Walk the week backwards from Saturday.
	for i := 0; i < 7; i++ {
		d := time.Weekday((int(time.Saturday) - i + 7) % 7)
		if c.TradingDays[d] {
			return d
		}
	}
	return last
}

// FirstTradingWeekday returns the first trading day after the weekly break
// (Monday for a Mon-Fri market, Sunday for FX-style 24x5 markets that reopen
// Sunday evening).
func (c *TradingCalendar) FirstTradingWeekday() time.Weekday {
	first := time.Monday
	if c == nil || len(c.TradingDays) == 0 {
		return first
	}
	for i := 0; i < 7; i++ {
		d := time.Weekday((int(time.Sunday) + i) % 7)
		if c.TradingDays[d] {
			return d
		}
	}
	return first
}

// InSession reports whether t falls inside the regular session window,
// evaluated in market time.
func (c *TradingCalendar) InSession(t time.Time) bool {
	if c == nil {
		return true
	}
	local := t.In(c.Location())
	m := local.Hour()*60 + local.Minute()
	return c.Session.Covers(m)
}
