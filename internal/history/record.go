package history

import (
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/promptsync/internal/util"

	"github.com/google/uuid"
)

// Status is the outcome tag of an execution attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ParseStatus converts user input ("success", "FAILED", ...) into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(util.NormalizeKey(s))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q (expected %q or %q)", ErrInvalidRecord, s, StatusSuccess, StatusFailed)
	}
	return status, nil
}

// ExecutionRecord is one attempt to send a compiled prompt to an AI engine.
//
// Records are immutable by convention once built. The store owns UpdatedAt,
// IsSynced and SyncedAt and overwrites them on every write.
type ExecutionRecord struct {
	// ID is a UUIDv7 assigned by NewExecutionRecord. It is the primary key
	// locally and the document key in the cloud.
	ID string `json:"id"`

	// EngineID identifies the target AI engine.
	EngineID string `json:"engine_id"`

	// CompiledPrompt is the text actually sent.
	CompiledPrompt string `json:"compiled_prompt"`

	// ExecutedAt is the device-local time of the attempt, in UTC.
	ExecutedAt time.Time `json:"executed_at"`

	Status Status `json:"status"`

	// UsedFallback is true when a degraded delivery path was used instead of
	// direct injection.
	UsedFallback bool `json:"used_fallback"`

	// DeviceID is the stable per-install identifier of the device that
	// produced the record.
	DeviceID string `json:"device_id"`

	// UpdatedAt is refreshed on every local mutation and doubles as the cloud
	// query cursor.
	UpdatedAt time.Time `json:"updated_at"`

	// IsDeleted marks a tombstone.
	IsDeleted bool `json:"is_deleted"`

	// IsSynced and SyncedAt are local-only bookkeeping.
	IsSynced bool       `json:"is_synced"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

// NewExecutionRecord builds a validated record with a fresh ID. Contract
// violations fail here, before the record can reach either store.
func NewExecutionRecord(engineID, compiledPrompt string, status Status, usedFallback bool, deviceID string, executedAt time.Time) (*ExecutionRecord, error) {
	engineID = util.NormalizeKey(engineID)
	if err := util.ValidateEngineID(engineID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, status)
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidRecord)
	}
	if executedAt.IsZero() {
		return nil, fmt.Errorf("%w: executed-at timestamp is required", ErrInvalidRecord)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("history: failed to generate record id: %w", err)
	}

	executedAt = executedAt.UTC()
	return &ExecutionRecord{
		ID:             id.String(),
		EngineID:       engineID,
		CompiledPrompt: compiledPrompt,
		ExecutedAt:     executedAt,
		Status:         status,
		UsedFallback:   usedFallback,
		DeviceID:       deviceID,
		UpdatedAt:      executedAt,
	}, nil
}

// SyncMark identifies the version of a record that reached the cloud.
type SyncMark struct {
	ID        string
	UpdatedAt time.Time
}

// SyncMark returns the mark for the record as it is now.
func (r *ExecutionRecord) SyncMark() SyncMark {
	return SyncMark{ID: r.ID, UpdatedAt: r.UpdatedAt}
}

// Pending reports whether the record still needs to be pushed.
func (r *ExecutionRecord) Pending() bool {
	return !r.IsSynced && !r.IsDeleted
}

// touch refreshes UpdatedAt, never letting it fall behind ExecutedAt.
func (r *ExecutionRecord) touch(now time.Time) {
	now = now.UTC()
	if now.Before(r.ExecutedAt) {
		now = r.ExecutedAt
	}
	r.UpdatedAt = now
}
