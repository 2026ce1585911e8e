package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
)

// scriptedStream replays canned sessions, handing out fresh channels on
// every Read the way the websocket stream does after a drop.
type scriptedStream struct {
	mu         sync.Mutex
	sessions   [][]*models.Bar
	reads      int
	reconnects int
	connected  bool
	subscribed []string
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(_ context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = symbols
	return nil
}

func (s *scriptedStream) Read(context.Context) (<-chan *models.Bar, <-chan error) {
	s.mu.Lock()
	var bars []*models.Bar
	if s.reads < len(s.sessions) {
		bars = s.sessions[s.reads]
	}
	s.reads++
	s.mu.Unlock()

	barCh := make(chan *models.Bar, len(bars))
	for _, b := range bars {
		barCh <- b
	}
	close(barCh)
	// Left open so the session ends through the bar channel closing.
	errCh := make(chan error)
	return barCh, errCh
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

func newTestCollector(stream *scriptedStream, store *memStore) *BarCollector {
	proc := NewBarProcessor(nil, store, nopMetrics{}, "clickhouse", "", "1m")
	c := NewBarCollector(stream, proc, nopMetrics{}, nil, []string{"AAPL"})
	c.rebuildDelay = time.Millisecond
	return c
}

func TestBarCollectorRebuildsSessionAfterDrop(t *testing.T) {
	bar := &models.Bar{
		Symbol: "AAPL",
		TS:     time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC),
		Open:   1, High: 2, Low: 0.5, Close: 1.5, Volume: 10,
	}
	stream := &scriptedStream{sessions: [][]*models.Bar{nil, {bar}}}
	store := newMemStore()
	c := newTestCollector(stream, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"AAPL"}, stream.subscribed)

	// The first session dies empty; the bar arrives after the rebuild.
	assert.Eventually(t, func() bool {
		bars, _ := store.LoadBars(ctx, "AAPL", "1m", models.TimeRange{
			Start: bar.TS.Add(-time.Hour), End: bar.TS.Add(time.Hour),
		})
		return len(bars) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, reconnects := stream.counts()
	assert.GreaterOrEqual(t, reconnects, 1)
}

func TestBarCollectorGivesUpAfterRebuildBudget(t *testing.T) {
	stream := &scriptedStream{}
	c := newTestCollector(stream, newMemStore())
	c.maxRebuilds = 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	// Initial session plus one per rebuild, then the collector stops.
	assert.Eventually(t, func() bool {
		reads, _ := stream.counts()
		return reads == 3
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	reads, reconnects := stream.counts()
	assert.Equal(t, 3, reads)
	assert.Equal(t, 2, reconnects)
}

func TestBarCollectorShutdownClosesStream(t *testing.T) {
	stream := &scriptedStream{}
	c := newTestCollector(stream, newMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	require.NoError(t, c.Shutdown(context.Background()))
	assert.False(t, c.IsConnected())
}
