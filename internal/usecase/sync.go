package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/internal/service/gaps"
	"BarSync/internal/service/segment"
	"BarSync/pkg/logger"
)

// SyncUseCase is the top-level sync state machine: it reconciles a requested
// range against stored coverage, fetches the gaps worth fetching under
// pacing, merges and persists.
type SyncUseCase struct {
	store     domrepo.CoverageProvider
	calendars domrepo.CalendarSource
	analyzer  *gaps.Analyzer
	executor  *FetchExecutor
	events    domrepo.EventPublisher
	metrics   domrepo.Metrics
	logger    *logger.Logger

	checkpointInterval time.Duration
}

// NewSyncUseCase creates the orchestrator.
func NewSyncUseCase(
	store domrepo.CoverageProvider,
	calendars domrepo.CalendarSource,
	analyzer *gaps.Analyzer,
	executor *FetchExecutor,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
	checkpointInterval time.Duration,
) *SyncUseCase {
	return &SyncUseCase{
		store:              store,
		calendars:          calendars,
		analyzer:           analyzer,
		executor:           executor,
		events:             events,
		metrics:            metrics,
		logger:             lgr,
		checkpointInterval: checkpointInterval,
	}
}

// SyncParams are the inputs of one sync call.
type SyncParams struct {
	Symbol      string
	Granularity domrepo.Granularity
	Range       models.TimeRange
	Mode        models.LoadingMode
}

// Sync runs the state machine:
//
//	ValidateSource -> LoadExisting -> AnalyzeGaps ->
//	  NoGapsFound -> Done
//	  Segment -> PrioritizeAndFetch -> Merge -> Persist -> Done
//
// Any state can transition to Failed; cancellation lands in Cancelled at
// the next checkpoint boundary and is reported distinctly from failure.
func (uc *SyncUseCase) Sync(ctx context.Context, p SyncParams) (*models.SyncResult, error) {
	res := &models.SyncResult{
		Symbol:      p.Symbol,
		Granularity: string(p.Granularity),
		Mode:        p.Mode,
		StartedAt:   time.Now(),
	}

	// ValidateSource
	res.State = models.StateValidateSource
	if err := uc.validate(p); err != nil {
		res.State = models.StateFailed
		return res, err
	}
	uc.publish(ctx, models.SyncEvent{Type: models.EventSyncStarted, Symbol: p.Symbol, Granularity: string(p.Granularity), Mode: p.Mode, At: time.Now()})

	// LoadExisting
	res.State = models.StateLoadExisting
	coverage, err := uc.store.LoadCoverage(ctx, p.Symbol, p.Granularity, p.Range)
	if err != nil {
		return uc.fail(ctx, res, fmt.Errorf("load coverage: %w", err))
	}

	cal, err := uc.calendars.Get(ctx, p.Symbol)
	if err != nil {
		// Missing or broken calendar metadata degrades classification, it
		// does not fail the sync.
		if uc.logger != nil {
			uc.logger.Warn("calendar lookup degraded", logger.String("symbol", p.Symbol), logger.Error(err))
		}
		cal = nil
	}

	// AnalyzeGaps
	res.State = models.StateAnalyzeGaps
	sentinels := sentinelTimestamps(ctx, uc.store, p)
	gapList, skipped, err := uc.analyzer.Reconcile(coverage, p.Range, p.Granularity, p.Mode, p.Symbol, cal, sentinels)
	if err != nil {
		return uc.fail(ctx, res, err)
	}
	res.GapsSkippedExpected = skipped

	if len(gapList) == 0 {
		// NoGapsFound -> Done: serve what is stored.
		res.State = models.StateNoGapsFound
		bars, err := uc.store.LoadBars(ctx, p.Symbol, p.Granularity, p.Range)
		if err != nil {
			return uc.fail(ctx, res, fmt.Errorf("load bars: %w", err))
		}
		res.Bars = bars
		res.State = models.StateDone
		res.FinishedAt = time.Now()
		uc.publish(ctx, uc.completedEvent(res))
		return res, nil
	}

	// Segment + PrioritizeAndFetch
	res.State = models.StateSegment
	segments := segment.Split(gapList, p.Granularity, p.Mode)

	res.State = models.StatePrioritizeAndFetch
	checkpoint := func(cctx context.Context, bars []models.Bar) error {
		if err := uc.store.Persist(cctx, p.Symbol, p.Granularity, bars); err != nil {
			return err
		}
		uc.publish(cctx, models.SyncEvent{
			Type: models.EventSyncCheckpoint, Symbol: p.Symbol,
			Granularity: string(p.Granularity), Mode: p.Mode,
			BarCount: len(bars), At: time.Now(),
		})
		return nil
	}
	exec, err := uc.executor.FetchAll(ctx, p.Symbol, p.Granularity, segments, checkpoint, uc.checkpointInterval)
	if exec != nil {
		res.SegmentsFetched = exec.SuccessCount
		res.SegmentsFailed = exec.FailureCount
		res.GapsFilled, res.GapsFailed = countGapOutcomes(exec.Outcomes)
	}
	if err != nil && errors.Is(err, models.ErrCancelled) {
		res.State = models.StateCancelled
		res.FinishedAt = time.Now()
		uc.publish(ctx, models.SyncEvent{
			Type: models.EventSyncCancelled, Symbol: p.Symbol,
			Granularity: string(p.Granularity), Mode: p.Mode,
			Filled: res.GapsFilled, At: time.Now(),
		})
		return res, err
	}

	// A mode that requires fresh data with zero successful segments is a
	// hard failure: never silently hand back stale local data.
	if exec.SuccessCount == 0 && p.Mode.RequiresFreshData() {
		return uc.fail(ctx, res, fmt.Errorf("%w: 0 of %d segments fetched", models.ErrOperationFailed, len(segments)))
	}

	// Merge
	res.State = models.StateMerge
	existing, err := uc.store.LoadBars(ctx, p.Symbol, p.Granularity, p.Range)
	if err != nil {
		return uc.fail(ctx, res, fmt.Errorf("load bars for merge: %w", err))
	}
	merged := MergeBars(existing, exec.Bars, p.Range)

	// Persist
	res.State = models.StatePersist
	if err := uc.store.Persist(ctx, p.Symbol, p.Granularity, merged); err != nil {
		return uc.fail(ctx, res, fmt.Errorf("persist: %w", err))
	}
	uc.metrics.RecordBarsPersisted(p.Symbol, len(merged))
	uc.metrics.RecordLastSync(p.Symbol, float64(time.Now().Unix()))

	res.State = models.StateDone
	res.Bars = merged
	res.FinishedAt = time.Now()
	uc.publish(ctx, uc.completedEvent(res))
	return res, nil
}

func (uc *SyncUseCase) validate(p SyncParams) error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol required", models.ErrValidation)
	}
	if !domrepo.IsValidGranularity(p.Granularity) {
		return fmt.Errorf("%w: granularity %q", models.ErrValidation, p.Granularity)
	}
	if !models.IsValidLoadingMode(p.Mode) {
		return fmt.Errorf("%w: mode %q", models.ErrValidation, p.Mode)
	}
	return p.Range.Validate()
}

func (uc *SyncUseCase) fail(ctx context.Context, res *models.SyncResult, err error) (*models.SyncResult, error) {
	res.State = models.StateFailed
	res.FinishedAt = time.Now()
	uc.metrics.RecordError("sync")
	uc.publish(ctx, models.SyncEvent{
		Type: models.EventSyncFailed, Symbol: res.Symbol,
		Granularity: res.Granularity, Mode: res.Mode,
		Error: err.Error(), At: time.Now(),
	})
	return res, err
}

func (uc *SyncUseCase) publish(ctx context.Context, ev models.SyncEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.metrics.RecordError("event_publish")
	}
}

func (uc *SyncUseCase) completedEvent(res *models.SyncResult) models.SyncEvent {
	return models.SyncEvent{
		Type: models.EventSyncCompleted, Symbol: res.Symbol,
		Granularity: res.Granularity, Mode: res.Mode, State: res.State,
		BarCount: len(res.Bars), Filled: res.GapsFilled, Failed: res.GapsFailed,
		Skipped: res.GapsSkippedExpected, At: time.Now(),
	}
}

// MergeBars dedups overlapping timestamps across existing and fetched data
// (last writer wins, fetched bars overwrite stored ones), sorts, and clamps
// to the originally requested range.
func MergeBars(existing, fetched []models.Bar, requested models.TimeRange) []models.Bar {
	byTS := make(map[int64]models.Bar, len(existing)+len(fetched))
	for _, b := range existing {
		byTS[b.TS.UnixNano()] = b
	}
	for _, b := range fetched {
		byTS[b.TS.UnixNano()] = b
	}

	out := make([]models.Bar, 0, len(byTS))
	for _, b := range byTS {
		if requested.Contains(b.TS) {
			out = append(out, b)
		}
	}
	models.SortBarsByTS(out)
	return out
}

// sentinelTimestamps collects provider "no data" marker bars near the
// requested range for the classifier's density heuristic.
func sentinelTimestamps(ctx context.Context, store domrepo.CoverageProvider, p SyncParams) []time.Time {
	window := models.TimeRange{
		Start: p.Range.Start.Add(-6 * time.Hour),
		End:   p.Range.End.Add(6 * time.Hour),
	}
	bars, err := store.LoadBars(ctx, p.Symbol, p.Granularity, window)
	if err != nil {
		return nil
	}
	var out []time.Time
	for _, b := range bars {
		if b.Synthetic {
			out = append(out, b.TS)
		}
	}
	return out
}

// countGapOutcomes rolls per-segment outcomes up to their source gaps. A gap
// counts as filled only when every one of its segments succeeded.
func countGapOutcomes(outcomes []models.FetchOutcome) (filled, failed int) {
	type tally struct{ ok, bad int }
	byGap := make(map[string]*tally)
	order := make([]string, 0)
	for _, o := range outcomes {
		k := o.Segment.Source.Range.String()
		t, ok := byGap[k]
		if !ok {
			t = &tally{}
			byGap[k] = t
			order = append(order, k)
		}
		if o.Err != nil {
			t.bad++
		} else {
			t.ok++
		}
	}
	for _, k := range order {
		if byGap[k].bad > 0 {
			failed++
		} else {
			filled++
		}
	}
	return filled, failed
}
