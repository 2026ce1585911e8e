package util

import (
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// AlignFromTo rounds the time range down to bar boundaries for the granularity.
func AlignFromTo(from, to time.Time, g string) (time.Time, time.Time) {
    d := granularityStep(g)
    return from.Truncate(d), to.Truncate(d)
}

func granularityStep(g string) time.Duration {
    switch g {
    case "1s":
        return time.Second
    case "5s":
        return 5 * time.Second
    case "15s":
        return 15 * time.Second
    case "30s":
        return 30 * time.Second
    case "1m":
        return time.Minute
    case "5m":
        return 5 * time.Minute
    case "15m":
        return 15 * time.Minute
    case "1h":
        return time.Hour
    case "4h":
        return 4 * time.Hour
    case "1d":
        return 24 * time.Hour
    default:
        return time.Minute
    }
}

// No extra helpers here; use strconv where needed.
