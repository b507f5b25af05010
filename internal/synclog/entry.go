package synclog

import "time"

const (
	DirectionPush = "push"
	DirectionPull = "pull"
)

// Entry is one persisted sync attempt.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"`
	// Outcome mirrors the sync service outcome, e.g. "synced" or "failed".
	Outcome    string `json:"outcome"`
	Provider   string `json:"provider,omitempty"`
	Records    int    `json:"records"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}
