package segment

import (
	"sort"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
)

// Split breaks gaps into provider-compliant segments and orders them for the
// loading mode. A gap wider than the granularity's maximum request span is
// cut into consecutive maximal-length segments, the last possibly shorter,
// so that segment concatenation reconstructs the gap exactly.
func Split(gapList []models.Gap, g domrepo.Granularity, mode models.LoadingMode) []models.Segment {
	maxSpan := g.MaxFetchSpan()

	var out []models.Segment
	for _, gap := range gapList {
		start := gap.Range.Start
		for start.Before(gap.Range.End) {
			end := start.Add(maxSpan)
			if end.After(gap.Range.End) {
				end = gap.Range.End
			}
			out = append(out, models.Segment{
				Range:  models.TimeRange{Start: start, End: end},
				Source: gap,
			})
			start = end
		}
	}

	prioritize(out, mode)
	return out
}

// prioritize orders segments in place.
//
// Tail wants the most recent data first, Backfill walks history forward,
// Full interleaves both ends so progress is visible on the fresh and the
// historical side simultaneously. Any other mode keeps stable input order.
func prioritize(segs []models.Segment, mode models.LoadingMode) {
	switch mode {
	case models.ModeTail:
		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].Range.Start.After(segs[j].Range.Start)
		})
	case models.ModeBackfill:
		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].Range.Start.Before(segs[j].Range.Start)
		})
	case models.ModeFull:
		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].Range.Start.Before(segs[j].Range.Start)
		})
		interleave(segs)
	}
}

// interleave rewrites an ascending slice alternating between its most
// recent half (newest first) and its oldest half (oldest first).
func interleave(segs []models.Segment) {
	if len(segs) < 3 {
		return
	}
	src := make([]models.Segment, len(segs))
	copy(src, segs)

	lo, hi := 0, len(src)-1
	for i := range segs {
		if i%2 == 0 {
			segs[i] = src[hi]
			hi--
		} else {
			segs[i] = src[lo]
			lo++
		}
	}
}
