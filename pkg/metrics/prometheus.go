package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	segmentsFetched *prometheus.CounterVec
	segmentsFailed  *prometheus.CounterVec
	barsPersisted   *prometheus.CounterVec
	paceWait        *prometheus.HistogramVec
	paceViolations  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	lastSync        *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		segmentsFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barsync_segments_fetched_total",
				Help: "Total number of segments fetched successfully",
			},
			[]string{"symbol", "granularity"},
		),
		segmentsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barsync_segments_failed_total",
				Help: "Total number of segments that exhausted retries",
			},
			[]string{"symbol", "granularity", "kind"},
		),
		barsPersisted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barsync_bars_persisted_total",
				Help: "Total number of bars written to storage",
			},
			[]string{"symbol"},
		),
		paceWait: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "barsync_pace_wait_seconds",
				Help:    "Admission wait imposed by the pace manager",
				Buckets: []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 600},
			},
			[]string{"component"},
		),
		paceViolations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barsync_pace_violations_total",
				Help: "Total number of pacing violations by kind",
			},
			[]string{"kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barsync_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "barsync_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastSync: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "barsync_last_sync_timestamp_seconds",
				Help: "Unix time of the last successful sync per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordSegmentFetched records a successfully fetched segment.
func (r *Recorder) RecordSegmentFetched(symbol, granularity string) {
	r.segmentsFetched.WithLabelValues(symbol, granularity).Inc()
}

// RecordSegmentFailed records a segment that exhausted its retries.
func (r *Recorder) RecordSegmentFailed(symbol, granularity, kind string) {
	r.segmentsFailed.WithLabelValues(symbol, granularity, kind).Inc()
}

// RecordBarsPersisted records bars written to storage.
func (r *Recorder) RecordBarsPersisted(symbol string, n int) {
	r.barsPersisted.WithLabelValues(symbol).Add(float64(n))
}

// RecordPaceWait records an admission wait imposed by the pace manager.
func (r *Recorder) RecordPaceWait(component string, seconds float64) {
	r.paceWait.WithLabelValues(component).Observe(seconds)
}

// RecordPaceViolation records a pacing violation.
func (r *Recorder) RecordPaceViolation(kind string) {
	r.paceViolations.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLastSync records the completion time of a sync per symbol.
func (r *Recorder) RecordLastSync(symbol string, unixSeconds float64) {
	r.lastSync.WithLabelValues(symbol).Set(unixSeconds)
}
