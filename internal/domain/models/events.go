package models

import "time"

// Sync lifecycle events published to Kafka for downstream observers.

const (
	EventSyncStarted     = "sync_started"
	EventSyncCheckpoint  = "sync_checkpoint"
	EventSyncCompleted   = "sync_completed"
	EventSyncFailed      = "sync_failed"
	EventSyncCancelled   = "sync_cancelled"
	EventPacingViolation = "pacing_violation"
)

// SyncEvent is the wire payload for sync lifecycle notifications.
type SyncEvent struct {
	Type        string      `json:"type"`
	Symbol      string      `json:"symbol"`
	Granularity string      `json:"granularity"`
	Mode        LoadingMode `json:"mode"`
	State       SyncState   `json:"state,omitempty"`
	BarCount    int         `json:"bar_count,omitempty"`
	Filled      int         `json:"filled,omitempty"`
	Failed      int         `json:"failed,omitempty"`
	Skipped     int         `json:"skipped,omitempty"`
	Error       string      `json:"error,omitempty"`
	At          time.Time   `json:"at"`
}
