package models

// Requests for sync HTTP endpoints. Defined in domain for consistency and reuse.

type SyncRequest struct {
	Symbol      string `query:"symbol" json:"symbol" validate:"required"`
	From        string `query:"from" json:"from" validate:"required"`
	To          string `query:"to" json:"to"`
	Granularity string `query:"granularity" json:"granularity" default:"1m" validate:"oneof=1s 5s 15s 30s 1m 5m 15m 1h 4h 1d"`
	Mode        string `query:"mode" json:"mode" default:"tail" validate:"oneof=local tail backfill full"`
	Async       bool   `query:"async" json:"async"`
}

type BarsRequest struct {
	Symbol      string `query:"symbol" json:"symbol" validate:"required"`
	From        string `query:"from" json:"from" validate:"required"`
	To          string `query:"to" json:"to"`
	Granularity string `query:"granularity" json:"granularity" default:"1m" validate:"oneof=1s 5s 15s 30s 1m 5m 15m 1h 4h 1d"`
	Limit       int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
}
