package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestAlignFromTo(t *testing.T) {
    from := time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)
    to := time.Date(2024, 10, 10, 14, 3, 9, 0, time.UTC)

    af, at := AlignFromTo(from, to, "1h")
    if af != time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC) {
        t.Fatalf("unexpected from %v", af)
    }
    if at != time.Date(2024, 10, 10, 14, 0, 0, 0, time.UTC) {
        t.Fatalf("unexpected to %v", at)
    }

    af, at = AlignFromTo(from, to, "bogus")
    if af.Second() != 0 || af.Minute() != 17 {
        t.Fatalf("expected minute alignment fallback, got %v", af)
    }
    if at.Second() != 0 {
        t.Fatalf("expected minute alignment fallback, got %v", at)
    }
}