package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/internal/service/pacing"
	"BarSync/pkg/logger"
)

const (
	defaultMaxAttempts   = 3
	retryBackoffBase     = 500 * time.Millisecond
	retryBackoffCap      = 10 * time.Second
	defaultCheckpointGap = 30 * time.Second
)

// CheckpointFn receives the bars accumulated since the previous checkpoint.
// Called at most once per checkpoint interval and always once at completion.
type CheckpointFn func(ctx context.Context, bars []models.Bar) error

// FetchExecutor drives segment fetches through the pace manager with
// retries, partial-failure tolerance, cancellation and periodic
// checkpointing. One external call is in flight at a time; the pace manager
// is the place where concurrent sessions coordinate.
type FetchExecutor struct {
	fetcher     domrepo.FetchClient
	pace        *pacing.Manager
	metrics     domrepo.Metrics
	logger      *logger.Logger
	maxAttempts int
}

// NewFetchExecutor creates an executor.
func NewFetchExecutor(fetcher domrepo.FetchClient, pace *pacing.Manager, metrics domrepo.Metrics, lgr *logger.Logger) *FetchExecutor {
	return &FetchExecutor{
		fetcher:     fetcher,
		pace:        pace,
		metrics:     metrics,
		logger:      lgr,
		maxAttempts: defaultMaxAttempts,
	}
}

// ExecResult accumulates per-segment outcomes for one session.
type ExecResult struct {
	Outcomes     []models.FetchOutcome
	Bars         []models.Bar
	SuccessCount int
	FailureCount int
	Cancelled    bool
}

// FetchAll fetches segments in their priority order. Per-segment failures
// are absorbed: the executor records them and moves on, because partial
// success is a first-class outcome. Only cancellation stops the loop early,
// and it is reported distinctly with the progress made so far.
func (e *FetchExecutor) FetchAll(
	ctx context.Context,
	symbol string,
	g domrepo.Granularity,
	segments []models.Segment,
	checkpoint CheckpointFn,
	checkpointInterval time.Duration,
) (*ExecResult, error) {
	if checkpointInterval <= 0 {
		checkpointInterval = defaultCheckpointGap
	}

	res := &ExecResult{}
	lastCheckpoint := time.Now()
	var pending []models.Bar

	flush := func(final bool) {
		if checkpoint == nil || len(pending) == 0 {
			return
		}
		if !final && time.Since(lastCheckpoint) < checkpointInterval {
			return
		}
		if err := checkpoint(ctx, pending); err != nil {
			e.metrics.RecordError("checkpoint")
			if e.logger != nil {
				e.logger.Warn("checkpoint failed", logger.Error(err))
			}
			return // keep the buffer, retry at the next boundary
		}
		pending = pending[:0]
		lastCheckpoint = time.Now()
	}

	for i, seg := range segments {
		// Cancellation is polled before each segment so no partial segment
		// is merged after the signal.
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			flush(true)
			return res, fmt.Errorf("%w after %d of %d segments", models.ErrCancelled, res.SuccessCount, len(segments))
		}

		outcome := e.fetchSegment(ctx, symbol, g, seg)
		res.Outcomes = append(res.Outcomes, outcome)

		if outcome.Err != nil {
			if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, models.ErrCancelled) {
				res.Cancelled = true
				flush(true)
				return res, fmt.Errorf("%w after %d of %d segments", models.ErrCancelled, res.SuccessCount, len(segments))
			}
			res.FailureCount++
			e.metrics.RecordSegmentFailed(symbol, string(g), errKindOf(outcome.Err))
			if e.logger != nil {
				e.logger.Warn("segment failed",
					logger.String("symbol", symbol),
					logger.String("range", seg.Range.String()),
					logger.Int("attempts", outcome.Attempts),
					logger.Error(outcome.Err))
			}
			continue
		}

		res.SuccessCount++
		res.Bars = append(res.Bars, outcome.Bars...)
		pending = append(pending, outcome.Bars...)
		e.metrics.RecordSegmentFetched(symbol, string(g))

		flush(i == len(segments)-1)
	}

	flush(true)
	return res, nil
}

// fetchSegment runs one segment with pacing admission and bounded retries.
func (e *FetchExecutor) fetchSegment(ctx context.Context, symbol string, g domrepo.Granularity, seg models.Segment) models.FetchOutcome {
	outcome := models.FetchOutcome{Segment: seg}
	key := requestKey(symbol, g, seg.Range)
	reqCtx := pacing.RequestContext{Key: key, Start: seg.Range.Start, End: seg.Range.End}

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		outcome.Attempts = attempt + 1

		if err := e.pace.WaitAdmission(ctx, key, "executor"); err != nil {
			outcome.Err = err
			return outcome
		}

		start := time.Now()
		bars, err := e.fetcher.Fetch(ctx, symbol, g, seg.Range)
		e.metrics.RecordLatency("segment_fetch", time.Since(start).Seconds())
		if err == nil {
			e.pace.RecordSuccess("executor")
			outcome.Bars = bars
			outcome.Err = nil
			return outcome
		}
		outcome.Err = err

		if ctx.Err() != nil {
			return outcome
		}

		fe, ok := models.AsFetchError(err)
		if !ok {
			// Transport-level error without a provider envelope: retry with
			// plain backoff.
			if werr := pacing.SleepWithContext(ctx, backoffDelay(attempt)); werr != nil {
				outcome.Err = werr
				return outcome
			}
			continue
		}

		verdict := e.pace.RecordError(fe.Code, fe.Message, "executor", reqCtx)
		if !verdict.Retryable {
			return outcome
		}
		wait := verdict.Wait
		if d := backoffDelay(attempt); d > wait {
			wait = d
		}
		if werr := pacing.SleepWithContext(ctx, wait); werr != nil {
			outcome.Err = werr
			return outcome
		}
	}
	return outcome
}

// backoffDelay is min(2^attempt seconds + 0.5s, 10s).
func backoffDelay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt)))*time.Second + retryBackoffBase
	if d > retryBackoffCap {
		return retryBackoffCap
	}
	return d
}

func requestKey(symbol string, g domrepo.Granularity, r models.TimeRange) string {
	return fmt.Sprintf("%s|%s|%d|%d", symbol, g, r.Start.Unix(), r.End.Unix())
}

func errKindOf(err error) string {
	if fe, ok := models.AsFetchError(err); ok {
		return fmt.Sprintf("provider_%d", fe.Code)
	}
	return "transport"
}
