package models

import "time"

// LoadingMode selects which gaps matter and their fetch priority.
type LoadingMode string

const (
	ModeLocal    LoadingMode = "local"
	ModeTail     LoadingMode = "tail"
	ModeBackfill LoadingMode = "backfill"
	ModeFull     LoadingMode = "full"
)

// IsValidLoadingMode returns true if m is a supported mode.
func IsValidLoadingMode(m LoadingMode) bool {
	switch m {
	case ModeLocal, ModeTail, ModeBackfill, ModeFull:
		return true
	default:
		return false
	}
}

// RequiresFreshData reports whether zero fetched segments must fail the
// operation instead of silently returning stale local data.
func (m LoadingMode) RequiresFreshData() bool {
	return m == ModeTail || m == ModeFull
}

// NormalizeLoadingMode converts a raw string to a valid mode (or Tail).
func NormalizeLoadingMode(s string) LoadingMode {
	if s == "" {
		return ModeTail
	}
	m := LoadingMode(s)
	if IsValidLoadingMode(m) {
		return m
	}
	return ModeTail
}

// Segment is a provider-compliant slice of a gap: duration never exceeds the
// granularity's maximum request span.
type Segment struct {
	Range  TimeRange
	Source Gap
}

// FetchOutcome records the result of fetching one segment.
type FetchOutcome struct {
	Segment  Segment
	Bars     []Bar
	Err      error
	Attempts int
}

// SyncState names a stage of the sync state machine.
type SyncState string

const (
	StateValidateSource     SyncState = "validate_source"
	StateLoadExisting       SyncState = "load_existing"
	StateAnalyzeGaps        SyncState = "analyze_gaps"
	StateNoGapsFound        SyncState = "no_gaps_found"
	StateSegment            SyncState = "segment"
	StatePrioritizeAndFetch SyncState = "prioritize_and_fetch"
	StateMerge              SyncState = "merge"
	StatePersist            SyncState = "persist"
	StateDone               SyncState = "done"
	StateFailed             SyncState = "failed"
	StateCancelled          SyncState = "cancelled"
)

// SyncResult is the caller-visible outcome of one sync call. Partial success
// is a first-class outcome: counts are populated even when some segments
// failed.
type SyncResult struct {
	Symbol              string
	Granularity         string
	Mode                LoadingMode
	State               SyncState
	Bars                []Bar
	GapsFilled          int
	GapsFailed          int
	GapsSkippedExpected int
	SegmentsFetched     int
	SegmentsFailed      int
	StartedAt           time.Time
	FinishedAt          time.Time
}
