package usecase

import (
	"context"
	"encoding/json"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	pkgkafka "BarSync/pkg/kafka"
	"BarSync/pkg/logger"
)

// KafkaSyncHandler consumes sync requests from Kafka and runs them. Other
// services trigger syncs by publishing a SyncRequest JSON to the requests
// topic.
type KafkaSyncHandler struct {
	topic   string
	sync    *SyncUseCase
	metrics domrepo.Metrics
	logger  *logger.Logger
}

func NewKafkaSyncHandler(topic string, sync *SyncUseCase, metrics domrepo.Metrics, lgr *logger.Logger) *KafkaSyncHandler {
	return &KafkaSyncHandler{topic: topic, sync: sync, metrics: metrics, logger: lgr}
}

func (h *KafkaSyncHandler) Topic() string { return h.topic }

func (h *KafkaSyncHandler) Handle(ctx context.Context, b []byte) error {
	var req models.SyncRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("sync_consumer_unmarshal")
		return err
	}

	params, err := ParamsFromRequest(&req)
	if err != nil {
		// Malformed requests are logged and dropped, not retried.
		h.metrics.RecordError("sync_consumer_request")
		h.logger.Warn("dropping invalid sync request",
			logger.String("symbol", req.Symbol), logger.Error(err))
		return nil
	}

	start := time.Now()
	res, err := h.sync.Sync(ctx, params)
	h.metrics.RecordLatency("sync_consumer_seconds", time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("queued sync failed",
			logger.String("symbol", params.Symbol),
			logger.String("mode", string(params.Mode)),
			logger.Error(err))
		return err
	}

	h.logger.Info("queued sync done",
		logger.String("symbol", params.Symbol),
		logger.String("state", string(res.State)),
		logger.Int("bars", len(res.Bars)),
		logger.Int("gaps_filled", res.GapsFilled))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSyncHandler)(nil)
