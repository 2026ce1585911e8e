package repository

import (
	"context"

	"BarSync/internal/domain/models"
)

// CoverageProvider is the local time-series store: it answers what ranges
// are already covered and accepts merged bars for persistence.
type CoverageProvider interface {
	Init(ctx context.Context) error // ensure tables, health checks
	LoadCoverage(ctx context.Context, symbol string, g Granularity, within models.TimeRange) ([]models.TimeRange, error)
	LoadBars(ctx context.Context, symbol string, g Granularity, within models.TimeRange) ([]models.Bar, error)
	Persist(ctx context.Context, symbol string, g Granularity, bars []models.Bar) error
	Health(ctx context.Context) error // ping
	Close() error
}

// FetchClient is the opaque provider client for historical bars. Errors
// carry the provider's {code, message} envelope as *models.FetchError.
type FetchClient interface {
	Fetch(ctx context.Context, symbol string, g Granularity, r models.TimeRange) ([]models.Bar, error)
	Close() error
}

// BarStream is a live bar feed used to keep tail coverage fresh after a sync.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Bar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// CalendarSource resolves per-symbol trading calendars. A nil calendar with
// nil error means no metadata exists for the symbol.
type CalendarSource interface {
	Get(ctx context.Context, symbol string) (*models.TradingCalendar, error)
}

// EventPublisher emits sync lifecycle events for downstream observers.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.SyncEvent) error
	Close() error
}

// Metrics records operational metrics for the sync core.
type Metrics interface {
	RecordSegmentFetched(symbol, granularity string)
	RecordSegmentFailed(symbol, granularity, kind string)
	RecordBarsPersisted(symbol string, n int)
	RecordPaceWait(component string, seconds float64)
	RecordPaceViolation(kind string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastSync(symbol string, unixSeconds float64)
}
