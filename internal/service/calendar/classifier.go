package calendar

import (
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/pkg/logger"
)

// Tuning holds the empirically derived classification thresholds. The values
// ship as defaults rather than invariants so they can be adjusted per
// provider without touching the evaluation logic.
type Tuning struct {
	WeekendMinHours    float64 // 24x5 close-Friday/open-Sunday lower bound
	WeekendMaxHours    float64 // and upper bound
	BridgeMaxDays      int     // short holiday bridge adjacent to a weekend
	ClosureHours       float64 // beyond this an unexplained gap is a closure
	SentinelWindow     time.Duration
	SentinelMinDensity float64
	ReclassifyMax24x5  time.Duration
	ReclassifyMaxOther time.Duration
}

// DefaultTuning returns the thresholds observed to match provider behavior.
func DefaultTuning() Tuning {
	return Tuning{
		WeekendMinHours:    35,
		WeekendMaxHours:    55,
		BridgeMaxDays:      3,
		ClosureHours:       72,
		SentinelWindow:     6 * time.Hour,
		SentinelMinDensity: 0.20,
		ReclassifyMax24x5:  48 * time.Hour,
		ReclassifyMaxOther: 24 * time.Hour,
	}
}

// Classifier labels coverage gaps against trading calendars. Pure: same
// inputs always produce the same classification.
type Classifier struct {
	tuning Tuning
	logger *logger.Logger
}

// NewClassifier creates a classifier with the given tuning.
func NewClassifier(tuning Tuning, lgr *logger.Logger) *Classifier {
	return &Classifier{tuning: tuning, logger: lgr}
}

// Classify returns the classification for a gap. Evaluation order matters:
// holiday and weekend patterns overlap, so the first matching test wins.
func (c *Classifier) Classify(r models.TimeRange, cal *models.TradingCalendar, g domrepo.Granularity) (models.GapClassification, error) {
	if err := r.Validate(); err != nil {
		return models.GapUnexpected, err
	}

	if c.isWeekend(r, cal) {
		return models.GapExpectedWeekend, nil
	}
	if c.isHoliday(r, cal, g) {
		return models.GapExpectedHoliday, nil
	}
	if g.IsSubDaily() && c.outsideSession(r, cal) {
		return models.GapExpectedTradingHours, nil
	}
	if r.Duration() > time.Duration(c.tuning.ClosureHours*float64(time.Hour)) {
		return models.GapMarketClosure, nil
	}
	return models.GapUnexpected, nil
}

// Analyze classifies a gap and wraps it with fetch-planning metadata.
// sentinels are timestamps of provider "no data" marker bars near the gap;
// when they are dense enough the gap is downgraded from Unexpected to an
// expected off-hours artifact.
func (c *Classifier) Analyze(r models.TimeRange, cal *models.TradingCalendar, symbol string, g domrepo.Granularity, context string, sentinels []time.Time) (models.Gap, error) {
	class, err := c.Classify(r, cal, g)
	if err != nil {
		return models.Gap{}, err
	}

	note := ""
	if class == models.GapUnexpected && len(sentinels) > 0 {
		if upgraded := c.reclassify(r, cal, sentinels); upgraded {
			class = models.GapExpectedTradingHours
			note = "sentinel density upgrade"
		}
	}

	return models.Gap{
		Range:                 r,
		Classification:        class,
		EstimatedMissingUnits: int(r.Duration() / g.Interval()),
		Context:               context,
		Note:                  note,
	}, nil
}

// isWeekend applies the weekend test.
//
// 24x5 markets close Friday evening and reopen Sunday evening, so a genuine
// weekend gap is 35-55 hours wide, starts on the last trading weekday and
// ends on the first trading weekday after the break. Regular 5-day markets:
// any non-trading calendar day inside the range qualifies. No calendar at
// all degrades to a plain Saturday/Sunday scan.
func (c *Classifier) isWeekend(r models.TimeRange, cal *models.TradingCalendar) bool {
	if cal != nil && cal.Is24x5 {
		hours := r.Duration().Hours()
		if hours < c.tuning.WeekendMinHours || hours > c.tuning.WeekendMaxHours {
			return false
		}
		loc := cal.Location()
		start := r.Start.In(loc)
		end := r.End.In(loc)
		return start.Weekday() == cal.LastTradingWeekday() && end.Weekday() == cal.FirstTradingWeekday()
	}

	loc := time.UTC
	if cal != nil {
		loc = cal.Location()
	}
	for day := startOfDay(r.Start.In(loc)); day.Before(r.End.In(loc)); day = day.AddDate(0, 0, 1) {
		if cal != nil {
			if !cal.IsTradingDay(day.Weekday()) {
				return true
			}
			continue
		}
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			return true
		}
	}
	return false
}

// startOfDay truncates t to midnight in its own location. Date scans walk
// whole calendar dates so a range entering a day partway still matches it.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// isHoliday applies the holiday test: a known holiday date inside the range,
// or a short gap bridging into a weekend without an explicit date match.
func (c *Classifier) isHoliday(r models.TimeRange, cal *models.TradingCalendar, g domrepo.Granularity) bool {
	loc := time.UTC
	if cal != nil {
		loc = cal.Location()
	}
	for day := startOfDay(r.Start.In(loc)); day.Before(r.End.In(loc)); day = day.AddDate(0, 0, 1) {
		if IsHoliday(day) {
			return true
		}
	}

	// Short bridge anchored to a weekend: providers report these as empty
	// without any date matching the holiday tables. The gap must actually
	// touch the break boundary, within one bar, so a mid-session Monday
	// outage does not pass just because Sunday precedes it.
	if r.Duration() <= time.Duration(c.tuning.BridgeMaxDays)*24*time.Hour {
		tol := g.Interval()
		start := r.Start.In(loc)
		startDay := startOfDay(start)
		if isWeekendDay(startDay.AddDate(0, 0, -1).Weekday(), cal) && start.Sub(startDay) <= tol {
			return true
		}
		end := r.End.In(loc)
		if isWeekendDay(end.Weekday(), cal) && end.Sub(startOfDay(end)) <= tol {
			return true
		}
	}
	return false
}

func isWeekendDay(d time.Weekday, cal *models.TradingCalendar) bool {
	if cal != nil {
		return !cal.IsTradingDay(d)
	}
	return d == time.Saturday || d == time.Sunday
}

// outsideSession reports whether the whole gap lies outside the calendar's
// regular session window. Sessions that cross midnight are handled by the
// calendar's window representation.
func (c *Classifier) outsideSession(r models.TimeRange, cal *models.TradingCalendar) bool {
	if cal == nil {
		return false
	}
	if cal.InSession(r.Start) {
		return false
	}
	// The gap must end before the session next opens; otherwise some part of
	// it overlaps trading hours.
	next := c.nextSessionOpen(r.Start, cal)
	return !r.End.After(next)
}

// nextSessionOpen returns the first session start strictly after t.
func (c *Classifier) nextSessionOpen(t time.Time, cal *models.TradingCalendar) time.Time {
	loc := cal.Location()
	local := t.In(loc)
	open := time.Date(local.Year(), local.Month(), local.Day(),
		cal.Session.StartMinute/60, cal.Session.StartMinute%60, 0, 0, loc)
	for !open.After(local) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// reclassify applies the sentinel-density heuristic around an Unexpected gap.
func (c *Classifier) reclassify(r models.TimeRange, cal *models.TradingCalendar, sentinels []time.Time) bool {
	maxDur := c.tuning.ReclassifyMaxOther
	if cal != nil && cal.Is24x5 {
		maxDur = c.tuning.ReclassifyMax24x5
	}
	if r.Duration() > maxDur {
		return false
	}

	winStart := r.Start.Add(-c.tuning.SentinelWindow)
	winEnd := r.End.Add(c.tuning.SentinelWindow)
	var inWindow int
	for _, ts := range sentinels {
		if !ts.Before(winStart) && ts.Before(winEnd) {
			inWindow++
		}
	}
	if inWindow == 0 {
		return false
	}

	// Density relative to the bar slots the window could hold. The window is
	// measured in hours because sentinel bars arrive at provider cadence,
	// not at the requested granularity.
	slots := winEnd.Sub(winStart).Hours()
	if slots <= 0 {
		return false
	}
	density := float64(inWindow) / slots
	if density > c.tuning.SentinelMinDensity {
		if c.logger != nil {
			c.logger.Debug("gap reclassified from sentinel density",
				logger.String("range", r.String()),
				logger.Int("sentinels", inWindow))
		}
		return true
	}
	return false
}
