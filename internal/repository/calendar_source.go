package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"BarSync/internal/domain/models"
	"BarSync/internal/domain/repository"
	pkgcache "BarSync/pkg/cache"
	"BarSync/pkg/config"
)

// ConfigCalendarSource resolves trading calendars from the YAML calendar
// table. Symbols without an entry resolve to nil: the classifier then uses
// its conservative no-calendar fallback.
type ConfigCalendarSource struct {
	specs map[string]config.CalendarSpec
}

// NewConfigCalendarSource creates a calendar source over config metadata.
func NewConfigCalendarSource(specs map[string]config.CalendarSpec) repository.CalendarSource {
	return &ConfigCalendarSource{specs: specs}
}

func (s *ConfigCalendarSource) Get(_ context.Context, symbol string) (*models.TradingCalendar, error) {
	spec, ok := s.specs[symbol]
	if !ok {
		return nil, nil
	}
	return buildCalendar(symbol, spec), nil
}

// buildCalendar converts a YAML spec to a domain calendar. Malformed fields
// degrade to defaults; calendar construction never fails.
func buildCalendar(symbol string, spec config.CalendarSpec) *models.TradingCalendar {
	days := make(map[time.Weekday]bool, len(spec.TradingDays))
	for _, d := range spec.TradingDays {
		if wd, ok := parseWeekday(d); ok {
			days[wd] = true
		}
	}
	session := models.SessionWindow{
		StartMinute: parseClockMinute(spec.SessionStart),
		EndMinute:   parseClockMinute(spec.SessionEnd),
	}
	return models.NewTradingCalendar(symbol, spec.Timezone, days, session, spec.Is24x5)
}

func parseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "sunday":
		return time.Sunday, true
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	default:
		return time.Sunday, false
	}
}

// parseClockMinute parses "HH:MM" into minutes since midnight; malformed
// input degrades to 0.
func parseClockMinute(s string) int {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0
	}
	return h*60 + m
}

// cachedCalendarSpec is the serializable cache shape of a calendar.
type cachedCalendarSpec struct {
	Symbol      string `json:"symbol"`
	Timezone    string `json:"timezone"`
	Days        []int  `json:"days"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Is24x5      bool   `json:"is_24x5"`
	Missing     bool   `json:"missing"` // negative cache for unknown symbols
}

// CachedCalendarSource wraps a CalendarSource with the layered cache so
// repeated lookups skip the backing source.
type CachedCalendarSource struct {
	inner repository.CalendarSource
	cache pkgcache.Service
	ttl   time.Duration
}

// NewCachedCalendarSource creates a caching calendar source.
func NewCachedCalendarSource(inner repository.CalendarSource, cache pkgcache.Service, ttl time.Duration) repository.CalendarSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedCalendarSource{inner: inner, cache: cache, ttl: ttl}
}

func (s *CachedCalendarSource) Get(ctx context.Context, symbol string) (*models.TradingCalendar, error) {
	key := calendarCacheKey(symbol)

	var cached cachedCalendarSpec
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if cached.Missing {
			return nil, nil
		}
		return rebuildCalendar(cached), nil
	} else if !errors.Is(err, pkgcache.ErrCacheMiss) {
		// Cache trouble is not a reason to fail a lookup; fall through.
		_ = err
	}

	cal, err := s.inner.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}

	entry := cachedCalendarSpec{Symbol: symbol, Missing: cal == nil}
	if cal != nil {
		entry.Timezone = cal.Timezone
		entry.StartMinute = cal.Session.StartMinute
		entry.EndMinute = cal.Session.EndMinute
		entry.Is24x5 = cal.Is24x5
		for d := range cal.TradingDays {
			entry.Days = append(entry.Days, int(d))
		}
	}
	_ = s.cache.Set(ctx, key, entry, s.ttl)

	return cal, nil
}

func rebuildCalendar(c cachedCalendarSpec) *models.TradingCalendar {
	days := make(map[time.Weekday]bool, len(c.Days))
	for _, d := range c.Days {
		days[time.Weekday(d)] = true
	}
	session := models.SessionWindow{StartMinute: c.StartMinute, EndMinute: c.EndMinute}
	return models.NewTradingCalendar(c.Symbol, c.Timezone, days, session, c.Is24x5)
}

func calendarCacheKey(symbol string) string {
	return fmt.Sprintf("calendar:%s", symbol)
}
