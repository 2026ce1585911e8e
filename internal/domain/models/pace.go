package models

import "time"

// ErrorKind is the tagged classification of a provider error.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindPacingViolation
	ErrKindFutureDateRequest
	ErrKindHistoricalDataLimit
	ErrKindNoDataAvailable
	ErrKindConnectionLost
	ErrKindInvalidRequest
	ErrKindPermissionDenied
	ErrKindInformational
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindPacingViolation:
		return "pacing_violation"
	case ErrKindFutureDateRequest:
		return "future_date_request"
	case ErrKindHistoricalDataLimit:
		return "historical_data_limit"
	case ErrKindNoDataAvailable:
		return "no_data_available"
	case ErrKindConnectionLost:
		return "connection_lost"
	case ErrKindInvalidRequest:
		return "invalid_request"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindInformational:
		return "informational"
	default:
		return "unknown"
	}
}

// ErrorVerdict is what the pace manager tells the caller to do about a
// provider error.
type ErrorVerdict struct {
	Kind      ErrorKind
	Retryable bool
	Wait      time.Duration
}

// ViolationKind names the pacing rule that fired.
type ViolationKind string

const (
	ViolationFrequency ViolationKind = "frequency"
	ViolationBurst     ViolationKind = "burst"
	ViolationIdentical ViolationKind = "identical_request"
	ViolationMinDelay  ViolationKind = "min_delay"
	ViolationProvider  ViolationKind = "provider_rejection"
)

// ViolationEvent is one recorded pacing incident. Append-only history,
// trimmed oldest-first to a bounded size.
type ViolationEvent struct {
	Kind      ViolationKind
	Timestamp time.Time
	WaitTime  time.Duration
	Resolved  bool
}

// ComponentPaceStats are per-component request counters.
type ComponentPaceStats struct {
	Requests   int64 `json:"requests"`
	Successes  int64 `json:"successes"`
	Failures   int64 `json:"failures"`
	Violations int64 `json:"violations"`
}

// PaceStats is the observability snapshot of the pace manager.
type PaceStats struct {
	RequestsInWindow int                           `json:"requests_in_window"`
	ActiveViolations int                           `json:"active_violations"`
	Components       map[string]ComponentPaceStats `json:"components"`
}
