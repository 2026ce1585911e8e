package repository

import "time"

// Granularity is the bar interval requested from the provider.
type Granularity string

const (
	G1s  Granularity = "1s"
	G5s  Granularity = "5s"
	G15s Granularity = "15s"
	G30s Granularity = "30s"
	G1m  Granularity = "1m"
	G5m  Granularity = "5m"
	G15m Granularity = "15m"
	G1h  Granularity = "1h"
	G4h  Granularity = "4h"
	G1d  Granularity = "1d"
)

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	switch g {
	case G1s, G5s, G15s, G30s, G1m, G5m, G15m, G1h, G4h, G1d:
		return true
	default:
		return false
	}
}

// DefaultGranularity returns the default granularity.
func DefaultGranularity() Granularity { return G1m }

// NormalizeGranularity converts raw string to a valid granularity (or default).
func NormalizeGranularity(s string) Granularity {
	if s == "" {
		return DefaultGranularity()
	}
	g := Granularity(s)
	if IsValidGranularity(g) {
		return g
	}
	return DefaultGranularity()
}

// Interval returns the bar duration for g.
func (g Granularity) Interval() time.Duration {
	switch g {
	case G1s:
		return time.Second
	case G5s:
		return 5 * time.Second
	case G15s:
		return 15 * time.Second
	case G30s:
		return 30 * time.Second
	case G1m:
		return time.Minute
	case G5m:
		return 5 * time.Minute
	case G15m:
		return 15 * time.Minute
	case G1h:
		return time.Hour
	case G4h:
		return 4 * time.Hour
	case G1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// MaxFetchSpan returns the largest request span the provider accepts for one
// historical request at granularity g. Sub-minute bars are limited to tens
// of minutes, daily bars to about a year.
func (g Granularity) MaxFetchSpan() time.Duration {
	switch g {
	case G1s:
		return 30 * time.Minute
	case G5s:
		return time.Hour
	case G15s:
		return 4 * time.Hour
	case G30s:
		return 8 * time.Hour
	case G1m:
		return 24 * time.Hour
	case G5m:
		return 7 * 24 * time.Hour
	case G15m:
		return 14 * 24 * time.Hour
	case G1h:
		return 30 * 24 * time.Hour
	case G4h:
		return 90 * 24 * time.Hour
	case G1d:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// IsSubDaily reports whether bars are finer than one day. Session-window
// classification only applies to sub-daily data.
func (g Granularity) IsSubDaily() bool { return g != G1d }
