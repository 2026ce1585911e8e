package usecase

import (
	"context"
	"fmt"
	"time"

	"BarSync/internal/domain/models"
	drepo "BarSync/internal/domain/repository"
	pkgkafka "BarSync/pkg/kafka"
)

// BarProcessor routes live bars to the configured backend: the local bar
// store, or a Kafka topic for downstream consumers.
type BarProcessor struct {
	producer    *pkgkafka.Producer
	store       drepo.CoverageProvider
	metrics     drepo.Metrics
	backend     string
	topic       string
	granularity drepo.Granularity
}

// NewBarProcessor creates a new BarProcessor instance.
func NewBarProcessor(
	producer *pkgkafka.Producer,
	store drepo.CoverageProvider,
	metrics drepo.Metrics,
	backend string,
	topic string,
	granularity drepo.Granularity,
) *BarProcessor {
	return &BarProcessor{
		producer:    producer,
		store:       store,
		metrics:     metrics,
		backend:     backend,
		topic:       topic,
		granularity: granularity,
	}
}

// Process routes a single live bar to the configured backend.
func (p *BarProcessor) Process(ctx context.Context, b *models.Bar) error {
	if b == nil {
		return fmt.Errorf("bar is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.producer.Publish(ctx, p.topic, []byte(b.Symbol), b)
	case "clickhouse":
		err = p.store.Persist(ctx, b.Symbol, p.granularity, []models.Bar{*b})
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("live_process")
		return fmt.Errorf("process bar: %w", err)
	}

	if p.backend == "clickhouse" {
		p.metrics.RecordBarsPersisted(b.Symbol, 1)
	}
	p.metrics.RecordLatency("live_process", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *BarProcessor) Close() {
	if p.producer != nil {
		_ = p.producer.Close()
	}
}
