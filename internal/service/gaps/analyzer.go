package gaps

import (
	"fmt"
	"sort"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/internal/service/calendar"
	"BarSync/pkg/logger"
)

const (
	// Gaps wider than this are kept regardless of classification: a request
	// spanning them is deliberate historical backfill intent.
	alwaysKeepAbove = 7 * 24 * time.Hour

	// Gaps narrower than this are dropped when the symbol has no calendar
	// metadata: they cannot be classified reliably and a rate-limited
	// request is too expensive to spend on a guess.
	dropBelowWithoutCalendar = 2 * 24 * time.Hour

	// An internal hole exists when adjacent coverage is separated by more
	// than this multiple of the expected inter-bar interval.
	holeIntervalFactor = 1.5

	// Gaps newer than this are "recent" for Full-mode ordering.
	recentWindow = 7 * 24 * time.Hour
)

// Analyzer reconciles a requested range against existing coverage and
// produces the minimal prioritized set of gaps worth fetching.
type Analyzer struct {
	classifier *calendar.Classifier
	logger     *logger.Logger
	now        func() time.Time
}

// NewAnalyzer creates a gap analyzer.
func NewAnalyzer(classifier *calendar.Classifier, lgr *logger.Logger) *Analyzer {
	return &Analyzer{classifier: classifier, logger: lgr, now: time.Now}
}

// Reconcile computes the gaps to fetch for a requested range given sorted
// disjoint existing coverage. Which gaps are considered, and their order,
// depends on the loading mode. skippedExpected counts the candidate holes
// discarded as expected market downtime.
func (a *Analyzer) Reconcile(
	coverage []models.TimeRange,
	requested models.TimeRange,
	g domrepo.Granularity,
	mode models.LoadingMode,
	symbol string,
	cal *models.TradingCalendar,
	sentinels []time.Time,
) (gaps []models.Gap, skippedExpected int, err error) {
	if err := requested.Validate(); err != nil {
		return nil, 0, err
	}
	if !models.IsValidLoadingMode(mode) {
		return nil, 0, fmt.Errorf("%w: loading mode %q", models.ErrValidation, mode)
	}
	if !domrepo.IsValidGranularity(g) {
		return nil, 0, fmt.Errorf("%w: granularity %q", models.ErrValidation, g)
	}

	if mode == models.ModeLocal {
		return nil, 0, nil // cache-only, never fetch
	}

	candidates := a.candidateRanges(coverage, requested, g, mode)

	out := make([]models.Gap, 0, len(candidates))
	for _, cand := range candidates {
		gap, err := a.classifier.Analyze(cand.r, cal, symbol, g, cand.context, sentinels)
		if err != nil {
			return nil, 0, err
		}
		if !a.keep(gap, cal) {
			if gap.Classification.Expected() {
				skippedExpected++
			}
			if a.logger != nil {
				a.logger.Debug("gap skipped",
					logger.String("symbol", symbol),
					logger.String("range", gap.Range.String()),
					logger.String("class", gap.Classification.String()))
			}
			continue
		}
		out = append(out, gap)
	}

	if mode == models.ModeFull {
		a.orderForFull(out)
	}
	return out, skippedExpected, nil
}

// candidate is an unclassified hole plus its origin.
type candidate struct {
	r       models.TimeRange
	context string
}

// candidateRanges selects boundary and internal holes per mode.
func (a *Analyzer) candidateRanges(coverage []models.TimeRange, requested models.TimeRange, g domrepo.Granularity, mode models.LoadingMode) []candidate {
	if len(coverage) == 0 {
		return []candidate{{r: requested, context: "no existing data"}}
	}

	var out []candidate
	first := coverage[0]
	last := coverage[len(coverage)-1]

	// Backfill boundary: before the first covered point.
	if mode == models.ModeBackfill || mode == models.ModeFull {
		if requested.Start.Before(first.Start) {
			out = append(out, candidate{
				r:       models.TimeRange{Start: requested.Start, End: first.Start},
				context: "backfill boundary",
			})
		}
	}

	// Internal holes: scanned in Tail mode only. Tail syncs cover short
	// recent windows where the scan is cheap; in Full mode the same scan
	// over years of history would shred into thousands of micro-segments,
	// so it is intentionally skipped there.
	if mode == models.ModeTail {
		threshold := time.Duration(holeIntervalFactor * float64(g.Interval()))
		for i := 1; i < len(coverage); i++ {
			prevEnd := coverage[i-1].End
			nextStart := coverage[i].Start
			if nextStart.Sub(prevEnd) <= threshold {
				continue
			}
			hole := models.TimeRange{Start: prevEnd, End: nextStart}
			if clamped, ok := hole.Clamp(requested); ok {
				out = append(out, candidate{r: clamped, context: "internal hole"})
			}
		}
	}

	// Tail boundary: after the last covered point, extended to the request end.
	if mode == models.ModeTail || mode == models.ModeFull {
		if last.End.Before(requested.End) {
			out = append(out, candidate{
				r:       models.TimeRange{Start: last.End, End: requested.End},
				context: "tail boundary",
			})
		}
	}

	return out
}

// keep applies the safety overrides and the classification filter.
func (a *Analyzer) keep(gap models.Gap, cal *models.TradingCalendar) bool {
	// Override: very wide gaps are always fetched, whatever the
	// classification said. Nobody requests a multi-week range by accident.
	if gap.Range.Duration() > alwaysKeepAbove {
		return true
	}
	// Override: short gaps without calendar metadata cannot be classified
	// reliably; err toward not spending a request.
	if cal == nil && gap.Range.Duration() < dropBelowWithoutCalendar {
		return false
	}
	switch gap.Classification {
	case models.GapUnexpected, models.GapMarketClosure:
		return true
	default:
		return false
	}
}

// orderForFull partitions gaps by recency: recent gaps newest-first, older
// gaps oldest-first, recent block first. Freshness wins for the near past
// while historical backfill still proceeds front-to-back.
func (a *Analyzer) orderForFull(out []models.Gap) {
	cutoff := a.now().Add(-recentWindow)
	var recent, older []models.Gap
	for _, g := range out {
		if g.Range.End.After(cutoff) {
			recent = append(recent, g)
		} else {
			older = append(older, g)
		}
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].Range.Start.After(recent[j].Range.Start) })
	sort.Slice(older, func(i, j int) bool { return older[i].Range.Start.Before(older[j].Range.Start) })
	copy(out, append(recent, older...))
}
