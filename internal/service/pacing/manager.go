package pacing

import (
	"context"
	"sync"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/pkg/logger"
)

// Config holds the pacing limits enforced against the provider.
type Config struct {
	MaxRequestsPerWindow  int           // provider hard cap per frequency window
	FrequencyWindow       time.Duration // trailing window for the hard cap
	FrequencyHeadroom     float64       // throttle at this fraction of the cap
	BurstWindow           time.Duration // short window for burst smoothing
	BurstLimit            int           // requests allowed inside the burst window
	IdenticalCooldown     time.Duration // same request key cooldown
	MinInterRequest       time.Duration // floor between any two requests
	MaxHistoricalLookback time.Duration // provider refuses older history
	HistoryLimit          int           // violation events retained
}

// DefaultConfig returns limits matching the provider's documented (and
// undocumented) behavior.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerWindow:  60,
		FrequencyWindow:       10 * time.Minute,
		FrequencyHeadroom:     0.80,
		BurstWindow:           2 * time.Second,
		BurstLimit:            3,
		IdenticalCooldown:     15 * time.Second,
		MinInterRequest:       time.Second,
		MaxHistoricalLookback: 5 * 365 * 24 * time.Hour,
		HistoryLimit:          200,
	}
}

// Manager is the process-wide pacing component: proactive admission control
// plus reactive provider-error handling. One instance per process, injected
// into every executor; safe for concurrent use by parallel sync sessions.
// All mutable state lives behind a single mutex and never escapes.
type Manager struct {
	cfg     Config
	metrics domrepo.Metrics
	logger  *logger.Logger
	now     func() time.Time

	mu          sync.Mutex
	requests    []time.Time          // trailing request log, ascending
	lastByKey   map[string]time.Time // identical-request cooldown tracking
	lastRequest time.Time
	violations  []models.ViolationEvent
	components  map[string]*models.ComponentPaceStats
}

// NewManager creates a pace manager.
func NewManager(cfg Config, metrics domrepo.Metrics, lgr *logger.Logger) *Manager {
	if cfg.FrequencyWindow <= 0 {
		cfg = DefaultConfig()
	}
	return &Manager{
		cfg:        cfg,
		metrics:    metrics,
		logger:     lgr,
		now:        time.Now,
		lastByKey:  make(map[string]time.Time),
		components: make(map[string]*models.ComponentPaceStats),
	}
}

// Admit computes how long the caller must wait before issuing the request.
// The wait is the maximum of the four independent limits, never their sum.
// The request is booked at its projected issue time.
func (m *Manager) Admit(requestKey, component string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.trimLocked(now)

	waits := [4]struct {
		kind models.ViolationKind
		wait time.Duration
	}{
		{models.ViolationFrequency, m.frequencyWaitLocked(now)},
		{models.ViolationBurst, m.burstWaitLocked(now)},
		{models.ViolationIdentical, m.identicalWaitLocked(requestKey, now)},
		{models.ViolationMinDelay, m.minDelayWaitLocked(now)},
	}

	var wait time.Duration
	kind := models.ViolationKind("")
	for _, w := range waits {
		if w.wait > wait {
			wait = w.wait
			kind = w.kind
		}
	}

	if wait > 0 {
		m.recordViolationLocked(models.ViolationEvent{
			Kind:      kind,
			Timestamp: now,
			WaitTime:  wait,
		})
		if m.metrics != nil {
			m.metrics.RecordPaceWait(component, wait.Seconds())
		}
		if m.logger != nil {
			m.logger.Debug("pacing wait",
				logger.String("component", component),
				logger.String("rule", string(kind)),
				logger.Duration("wait", wait))
		}
	}

	issueAt := now.Add(wait)
	m.requests = append(m.requests, issueAt)
	m.lastByKey[requestKey] = issueAt
	m.lastRequest = issueAt
	m.componentLocked(component).Requests++

	return wait
}

// WaitAdmission performs Admit and sleeps out the wait cooperatively,
// polling ctx in half-second slices so cancellation is observed promptly.
func (m *Manager) WaitAdmission(ctx context.Context, requestKey, component string) error {
	return SleepWithContext(ctx, m.Admit(requestKey, component))
}

// RecordError classifies a provider error and updates bookkeeping. The
// verdict tells the caller whether to retry and how long to wait first.
func (m *Manager) RecordError(code int, message, component string, reqCtx RequestContext) models.ErrorVerdict {
	verdict := Classify(code, message, reqCtx, m.now(), m.cfg.MaxHistoricalLookback)

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.componentLocked(component)
	switch verdict.Kind {
	case models.ErrKindInformational:
		// Notices never count against the component.
	case models.ErrKindPacingViolation:
		stats.Failures++
		stats.Violations++
		m.recordViolationLocked(models.ViolationEvent{
			Kind:      models.ViolationProvider,
			Timestamp: m.now(),
			WaitTime:  verdict.Wait,
		})
		if m.metrics != nil {
			m.metrics.RecordPaceViolation(string(models.ViolationProvider))
		}
	default:
		stats.Failures++
	}

	if m.logger != nil && verdict.Kind != models.ErrKindInformational {
		m.logger.Warn("provider error classified",
			logger.Int("code", code),
			logger.String("kind", verdict.Kind.String()),
			logger.String("component", component))
	}
	return verdict
}

// RecordSuccess marks a completed request and resolves open violations.
func (m *Manager) RecordSuccess(component string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.componentLocked(component).Successes++
	for i := range m.violations {
		m.violations[i].Resolved = true
	}
}

// Stats returns an observability snapshot.
func (m *Manager) Stats() models.PaceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.trimLocked(now)

	// Admissions are booked at their projected issue time; only those already
	// issued belong in the snapshot.
	issued := 0
	for _, t := range m.requests {
		if !t.After(now) {
			issued++
		}
	}

	active := 0
	for _, v := range m.violations {
		if !v.Resolved {
			active++
		}
	}
	comps := make(map[string]models.ComponentPaceStats, len(m.components))
	for name, s := range m.components {
		comps[name] = *s
	}
	return models.PaceStats{
		RequestsInWindow: issued,
		ActiveViolations: active,
		Components:       comps,
	}
}

// frequencyWaitLocked throttles at the headroom fraction of the provider cap
// over the trailing frequency window.
func (m *Manager) frequencyWaitLocked(now time.Time) time.Duration {
	threshold := int(float64(m.cfg.MaxRequestsPerWindow) * m.cfg.FrequencyHeadroom)
	if threshold < 1 {
		threshold = 1
	}
	n := len(m.requests)
	if n < threshold {
		return 0
	}
	// Wait until enough old requests leave the window for one more to fit
	// under the threshold.
	expires := m.requests[n-threshold].Add(m.cfg.FrequencyWindow)
	if w := expires.Sub(now); w > 0 {
		return w
	}
	return 0
}

func (m *Manager) burstWaitLocked(now time.Time) time.Duration {
	if m.cfg.BurstLimit <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.BurstWindow)
	var inBurst []time.Time
	for _, t := range m.requests {
		if t.After(cutoff) {
			inBurst = append(inBurst, t)
		}
	}
	if len(inBurst) < m.cfg.BurstLimit {
		return 0
	}
	expires := inBurst[len(inBurst)-m.cfg.BurstLimit].Add(m.cfg.BurstWindow)
	if w := expires.Sub(now); w > 0 {
		return w
	}
	return 0
}

func (m *Manager) identicalWaitLocked(key string, now time.Time) time.Duration {
	last, ok := m.lastByKey[key]
	if !ok {
		return 0
	}
	if w := last.Add(m.cfg.IdenticalCooldown).Sub(now); w > 0 {
		return w
	}
	return 0
}

func (m *Manager) minDelayWaitLocked(now time.Time) time.Duration {
	if m.lastRequest.IsZero() {
		return 0
	}
	if w := m.lastRequest.Add(m.cfg.MinInterRequest).Sub(now); w > 0 {
		return w
	}
	return 0
}

// trimLocked drops request log entries older than the frequency window and
// stale identical-request keys.
func (m *Manager) trimLocked(now time.Time) {
	cutoff := now.Add(-m.cfg.FrequencyWindow)
	i := 0
	for i < len(m.requests) && !m.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		m.requests = append(m.requests[:0], m.requests[i:]...)
	}
	for k, t := range m.lastByKey {
		if t.Add(m.cfg.IdenticalCooldown).Before(cutoff) {
			delete(m.lastByKey, k)
		}
	}
}

// recordViolationLocked appends to the bounded violation history, evicting
// oldest first.
func (m *Manager) recordViolationLocked(ev models.ViolationEvent) {
	m.violations = append(m.violations, ev)
	if limit := m.cfg.HistoryLimit; limit > 0 && len(m.violations) > limit {
		m.violations = append(m.violations[:0], m.violations[len(m.violations)-limit:]...)
	}
}

func (m *Manager) componentLocked(name string) *models.ComponentPaceStats {
	s, ok := m.components[name]
	if !ok {
		s = &models.ComponentPaceStats{}
		m.components[name] = s
	}
	return s
}

// SleepWithContext sleeps d in half-second slices, returning early with the
// context error when cancelled. Wait loops must never sleep a long pacing
// delay uninterruptibly.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	const slice = 500 * time.Millisecond
	for d > 0 {
		step := d
		if step > slice {
			step = slice
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
		d -= step
	}
	return nil
}
