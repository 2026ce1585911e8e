package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"BarSync/internal/domain/models"
	"BarSync/internal/domain/repository"
)

// ClickHouseBarStore implements CoverageProvider for ClickHouse. The bars
// table uses a replacing merge engine keyed on (symbol, granularity, ts), so
// re-persisting a timestamp is a last-writer-wins upsert.
type ClickHouseBarStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseBarStore creates ClickHouse bar storage.
func NewClickHouseBarStore(db *sql.DB, table string) repository.CoverageProvider {
	return &ClickHouseBarStore{db: db, table: table}
}

func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

// LoadCoverage scans stored timestamps inside the window and folds them into
// sorted disjoint ranges. Bars spaced at most one interval apart are
// contiguous coverage; anything wider starts a new range, leaving the hole
// for the gap analyzer to judge.
func (s *ClickHouseBarStore) LoadCoverage(ctx context.Context, symbol string, g repository.Granularity, within models.TimeRange) ([]models.TimeRange, error) {
	q := fmt.Sprintf("SELECT ts FROM %s FINAL WHERE symbol = ? AND granularity = ? AND ts >= ? AND ts < ? ORDER BY ts", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(g), within.Start, within.End)
	if err != nil {
		return nil, fmt.Errorf("load coverage: %w", err)
	}
	defer rows.Close()

	interval := g.Interval()
	var out []models.TimeRange
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan coverage ts: %w", err)
		}
		ts = ts.UTC()
		barEnd := ts.Add(interval)
		if n := len(out); n > 0 && !ts.After(out[n-1].End) {
			if barEnd.After(out[n-1].End) {
				out[n-1].End = barEnd
			}
			continue
		}
		out = append(out, models.TimeRange{Start: ts, End: barEnd})
	}
	return out, rows.Err()
}

func (s *ClickHouseBarStore) LoadBars(ctx context.Context, symbol string, g repository.Granularity, within models.TimeRange) ([]models.Bar, error) {
	q := fmt.Sprintf("SELECT ts, open, high, low, close, volume, wap, bar_count, synthetic FROM %s FINAL WHERE symbol = ? AND granularity = ? AND ts >= ? AND ts < ? ORDER BY ts", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(g), within.Start, within.End)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var (
			b         models.Bar
			ts        time.Time
			synthetic uint8
		)
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.WAP, &b.BarCount, &synthetic); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Symbol = symbol
		b.TS = ts.UTC()
		b.Synthetic = synthetic != 0
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *ClickHouseBarStore) Persist(ctx context.Context, symbol string, g repository.Granularity, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*11)
		for _, b := range bars[start:end] {
			if b.TS.IsZero() {
				continue
			}
			synthetic := uint8(0)
			if b.Synthetic {
				synthetic = 1
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				symbol,
				string(g),
				b.TS,
				b.Open,
				b.High,
				b.Low,
				b.Close,
				b.Volume,
				b.WAP,
				b.BarCount,
				synthetic,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, granularity, ts, open, high, low, close, volume, wap, bar_count, synthetic) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("persist bars: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // Managed by pkg
}
