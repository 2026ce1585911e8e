package usecase

import (
	"context"
	"sync"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/internal/service/calendar"
	"BarSync/internal/service/gaps"
	"BarSync/internal/service/pacing"
)

// nopMetrics satisfies the metrics sink without recording anything.
type nopMetrics struct{}

func (nopMetrics) RecordSegmentFetched(string, string)        {}
func (nopMetrics) RecordSegmentFailed(string, string, string) {}
func (nopMetrics) RecordBarsPersisted(string, int)            {}
func (nopMetrics) RecordPaceWait(string, float64)             {}
func (nopMetrics) RecordPaceViolation(string)                 {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) RecordLatency(string, float64)              {}
func (nopMetrics) RecordLastSync(string, float64)             {}

// memStore is an in-memory CoverageProvider keyed by bar timestamp.
type memStore struct {
	mu           sync.Mutex
	coverage     []models.TimeRange
	bars         map[int64]models.Bar
	persistCalls int
}

func newMemStore() *memStore {
	return &memStore{bars: make(map[int64]models.Bar)}
}

func (s *memStore) seed(bars ...models.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		s.bars[b.TS.UnixNano()] = b
	}
}

func (s *memStore) Init(context.Context) error   { return nil }
func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

func (s *memStore) LoadCoverage(_ context.Context, _ string, _ domrepo.Granularity, _ models.TimeRange) ([]models.TimeRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TimeRange(nil), s.coverage...), nil
}

func (s *memStore) LoadBars(_ context.Context, _ string, _ domrepo.Granularity, within models.TimeRange) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bar
	for _, b := range s.bars {
		if within.Contains(b.TS) {
			out = append(out, b)
		}
	}
	models.SortBarsByTS(out)
	return out, nil
}

func (s *memStore) Persist(_ context.Context, _ string, _ domrepo.Granularity, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistCalls++
	for _, b := range bars {
		s.bars[b.TS.UnixNano()] = b
	}
	return nil
}

// fakeFetcher serves one bar per segment at the segment start, failing the
// call indices listed in failOn with a non-retryable provider error.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, symbol string, _ domrepo.Granularity, r models.TimeRange) ([]models.Bar, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	if f.failOn[idx] {
		return nil, &models.FetchError{Code: 200, Message: "ambiguous contract"}
	}
	return []models.Bar{{
		Symbol: symbol,
		TS:     r.Start,
		Open:   1, High: 2, Low: 0.5, Close: 1.5,
		Volume: 10,
	}}, nil
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEvents collects published lifecycle events in order.
type fakeEvents struct {
	mu     sync.Mutex
	events []models.SyncEvent
}

func (e *fakeEvents) Publish(_ context.Context, ev models.SyncEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *fakeEvents) Close() error { return nil }

func (e *fakeEvents) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

// nilCalendars reports no calendar metadata for any symbol.
type nilCalendars struct{}

func (nilCalendars) Get(context.Context, string) (*models.TradingCalendar, error) {
	return nil, nil
}

// openPacing builds a manager whose limits never force a wait.
func openPacing() *pacing.Manager {
	return pacing.NewManager(pacing.Config{
		MaxRequestsPerWindow: 100000,
		FrequencyWindow:      time.Hour,
		FrequencyHeadroom:    1.0,
	}, nil, nil)
}

func newTestExecutor(fetcher domrepo.FetchClient) *FetchExecutor {
	return NewFetchExecutor(fetcher, openPacing(), nopMetrics{}, nil)
}

type syncFixture struct {
	uc      *SyncUseCase
	store   *memStore
	fetcher *fakeFetcher
	events  *fakeEvents
}

func newSyncFixture() *syncFixture {
	store := newMemStore()
	fetcher := &fakeFetcher{failOn: map[int]bool{}}
	events := &fakeEvents{}
	analyzer := gaps.NewAnalyzer(calendar.NewClassifier(calendar.DefaultTuning(), nil), nil)
	uc := NewSyncUseCase(store, nilCalendars{}, analyzer, newTestExecutor(fetcher), events, nopMetrics{}, nil, time.Hour)
	return &syncFixture{uc: uc, store: store, fetcher: fetcher, events: events}
}

func segAt(start time.Time, d time.Duration) models.Segment {
	r := models.TimeRange{Start: start, End: start.Add(d)}
	return models.Segment{Range: r, Source: models.Gap{Range: r}}
}
