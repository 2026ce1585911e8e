package usecase

import (
	"context"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/pkg/logger"
	"BarSync/pkg/queue"
)

const SyncJobType = "sync_request"

// SyncJob runs queued sync requests from the Redis queue. The HTTP handler
// enqueues here when a request asks for async execution.
type SyncJob struct {
	sync    *SyncUseCase
	metrics domrepo.Metrics
	logger  *logger.Logger
}

func NewSyncJob(sync *SyncUseCase, metrics domrepo.Metrics, lgr *logger.Logger) *SyncJob {
	return &SyncJob{sync: sync, metrics: metrics, logger: lgr}
}

func (j *SyncJob) Name() string { return "sync_job" }
func (j *SyncJob) Type() string { return SyncJobType }

func (j *SyncJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.SyncRequest](payload)
	if err != nil {
		j.metrics.RecordError("sync_job_payload")
		return err
	}

	params, err := ParamsFromRequest(req)
	if err != nil {
		// Invalid payloads never become valid on retry.
		j.metrics.RecordError("sync_job_request")
		j.logger.Warn("dropping invalid queued sync",
			logger.String("symbol", req.Symbol), logger.Error(err))
		return nil
	}

	start := time.Now()
	res, err := j.sync.Sync(ctx, params)
	j.metrics.RecordLatency("sync_job_seconds", time.Since(start).Seconds())
	if err != nil {
		j.logger.Error("async sync failed",
			logger.String("symbol", params.Symbol),
			logger.String("mode", string(params.Mode)),
			logger.Error(err))
		return err
	}

	j.logger.Info("async sync done",
		logger.String("symbol", params.Symbol),
		logger.String("state", string(res.State)),
		logger.Int("bars", len(res.Bars)))
	return nil
}

var _ queue.Job = (*SyncJob)(nil)
