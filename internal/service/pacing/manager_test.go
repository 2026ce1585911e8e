package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarSync/internal/domain/models"
)

// fixedClock drives the manager deterministically.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(cfg Config) (*Manager, *fixedClock) {
	m := NewManager(cfg, nil, nil)
	clk := &fixedClock{t: time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)}
	m.now = clk.now
	return m, clk
}

func permissiveConfig() Config {
	return Config{
		MaxRequestsPerWindow: 1000,
		FrequencyWindow:      time.Hour,
		FrequencyHeadroom:    1.0,
		HistoryLimit:         50,
	}
}

func TestAdmitFirstRequestImmediate(t *testing.T) {
	m, _ := newTestManager(permissiveConfig())
	assert.Zero(t, m.Admit("k1", "executor"))
}

func TestAdmitMinInterRequestDelay(t *testing.T) {
	cfg := permissiveConfig()
	cfg.MinInterRequest = time.Second
	m, _ := newTestManager(cfg)

	assert.Zero(t, m.Admit("k1", "executor"))
	assert.Equal(t, time.Second, m.Admit("k2", "executor"))
}

func TestAdmitIdenticalKeyCooldown(t *testing.T) {
	cfg := permissiveConfig()
	cfg.IdenticalCooldown = 15 * time.Second
	m, clk := newTestManager(cfg)

	assert.Zero(t, m.Admit("k1", "executor"))
	assert.Equal(t, 15*time.Second, m.Admit("k1", "executor"))

	// A different key is unaffected once enough time passed.
	clk.advance(time.Minute)
	assert.Zero(t, m.Admit("k2", "executor"))
}

func TestAdmitBurstSmoothing(t *testing.T) {
	cfg := permissiveConfig()
	cfg.BurstWindow = 2 * time.Second
	cfg.BurstLimit = 3
	m, _ := newTestManager(cfg)

	assert.Zero(t, m.Admit("a", "executor"))
	assert.Zero(t, m.Admit("b", "executor"))
	assert.Zero(t, m.Admit("c", "executor"))
	assert.Equal(t, 2*time.Second, m.Admit("d", "executor"))
}

func TestAdmitFrequencyHeadroom(t *testing.T) {
	cfg := Config{
		MaxRequestsPerWindow: 5,
		FrequencyWindow:      10 * time.Minute,
		FrequencyHeadroom:    0.8, // throttle at 4
	}
	m, _ := newTestManager(cfg)

	for i := 0; i < 4; i++ {
		assert.Zero(t, m.Admit("k", "executor"), "request %d under threshold", i)
	}
	assert.Equal(t, 10*time.Minute, m.Admit("k", "executor"))
}

func TestAdmitTakesMaxNotSum(t *testing.T) {
	cfg := permissiveConfig()
	cfg.MinInterRequest = time.Second
	cfg.IdenticalCooldown = 15 * time.Second
	m, _ := newTestManager(cfg)

	m.Admit("k1", "executor")
	// Both the identical-key and min-delay limits apply; the wait is the
	// larger one, not 16s.
	assert.Equal(t, 15*time.Second, m.Admit("k1", "executor"))
}

func TestAdmitExpiredWindowForgotten(t *testing.T) {
	cfg := Config{
		MaxRequestsPerWindow: 5,
		FrequencyWindow:      10 * time.Minute,
		FrequencyHeadroom:    0.8,
	}
	m, clk := newTestManager(cfg)

	for i := 0; i < 4; i++ {
		m.Admit("k", "executor")
	}
	clk.advance(11 * time.Minute)
	assert.Zero(t, m.Admit("k", "executor"))
}

func TestStatsCountsOnlyIssuedRequests(t *testing.T) {
	cfg := permissiveConfig()
	cfg.MinInterRequest = time.Second
	m, clk := newTestManager(cfg)

	assert.Zero(t, m.Admit("k1", "executor"))
	// Booked one second in the future; not issued yet.
	assert.Equal(t, time.Second, m.Admit("k2", "executor"))
	assert.Equal(t, 1, m.Stats().RequestsInWindow)

	clk.advance(time.Second)
	assert.Equal(t, 2, m.Stats().RequestsInWindow)
}

func TestRecordErrorPacingViolationTracked(t *testing.T) {
	m, clk := newTestManager(permissiveConfig())

	reqCtx := RequestContext{Start: clk.t.Add(-2 * time.Hour), End: clk.t.Add(-time.Hour)}
	v := m.RecordError(162, "historical market data service error", "executor", reqCtx)
	require.Equal(t, models.ErrKindPacingViolation, v.Kind)

	stats := m.Stats()
	assert.Equal(t, 1, stats.ActiveViolations)
	assert.Equal(t, int64(1), stats.Components["executor"].Failures)
	assert.Equal(t, int64(1), stats.Components["executor"].Violations)
}

func TestRecordErrorInformationalIgnored(t *testing.T) {
	m, _ := newTestManager(permissiveConfig())

	v := m.RecordError(2158, "sec-def data farm connection is OK", "executor", RequestContext{})
	assert.Equal(t, models.ErrKindInformational, v.Kind)

	stats := m.Stats()
	assert.Zero(t, stats.Components["executor"].Failures)
}

func TestRecordSuccessResolvesViolations(t *testing.T) {
	m, clk := newTestManager(permissiveConfig())

	reqCtx := RequestContext{Start: clk.t.Add(-2 * time.Hour), End: clk.t.Add(-time.Hour)}
	m.RecordError(162, "pacing", "executor", reqCtx)
	require.Equal(t, 1, m.Stats().ActiveViolations)

	m.RecordSuccess("executor")
	assert.Zero(t, m.Stats().ActiveViolations)
	assert.Equal(t, int64(1), m.Stats().Components["executor"].Successes)
}

func TestViolationHistoryBounded(t *testing.T) {
	cfg := permissiveConfig()
	cfg.MinInterRequest = time.Second
	cfg.HistoryLimit = 5
	m, _ := newTestManager(cfg)

	for i := 0; i < 20; i++ {
		m.Admit("k", "executor") // every call after the first records a wait
	}
	m.mu.Lock()
	n := len(m.violations)
	m.mu.Unlock()
	assert.LessOrEqual(t, n, 5)
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepWithContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepWithContextZero(t *testing.T) {
	assert.NoError(t, SleepWithContext(context.Background(), 0))
}
