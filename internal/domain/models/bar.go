package models

import (
	"sort"
	"time"
)

// Bar represents one OHLCV record at a given granularity.
type Bar struct {
	Symbol    string
	TS        time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	WAP       float64
	BarCount  int
	Synthetic bool // provider "no data" sentinel bar, not a real print
}

// SortBarsByTS sorts bars ascending by timestamp.
func SortBarsByTS(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })
}
