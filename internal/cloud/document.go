package cloud

import (
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"
)

// Document is the wire shape of an execution record in the remote
// collection. Local-only sync fields are absent by construction.
type Document struct {
	ID             string    `json:"id"`
	EngineID       string    `json:"engine_id"`
	CompiledPrompt string    `json:"compiled_prompt"`
	ExecutedAt     time.Time `json:"executed_at"`
	Status         string    `json:"status"`
	UsedFallback   bool      `json:"used_fallback"`
	DeviceID       string    `json:"device_id"`
	UpdatedAt      time.Time `json:"updated_at"`
	IsDeleted      bool      `json:"is_deleted"`
}

// NewDocument converts a local record to its wire form.
func NewDocument(r history.ExecutionRecord) Document {
	return Document{
		ID:             r.ID,
		EngineID:       r.EngineID,
		CompiledPrompt: r.CompiledPrompt,
		ExecutedAt:     r.ExecutedAt.UTC(),
		Status:         string(r.Status),
		UsedFallback:   r.UsedFallback,
		DeviceID:       r.DeviceID,
		UpdatedAt:      r.UpdatedAt.UTC(),
		IsDeleted:      r.IsDeleted,
	}
}

// Record converts a wire document back into a record. The result carries no
// local sync state.
func (d Document) Record() history.ExecutionRecord {
	return history.ExecutionRecord{
		ID:             d.ID,
		EngineID:       d.EngineID,
		CompiledPrompt: d.CompiledPrompt,
		ExecutedAt:     d.ExecutedAt.UTC(),
		Status:         history.Status(d.Status),
		UsedFallback:   d.UsedFallback,
		DeviceID:       d.DeviceID,
		UpdatedAt:      d.UpdatedAt.UTC(),
		IsDeleted:      d.IsDeleted,
	}
}

// BatchUpsertRequest is the body of a batch upsert call.
type BatchUpsertRequest struct {
	Documents []Document `json:"documents"`
}

// BatchUpsertResponse reports how many documents the remote accepted.
type BatchUpsertResponse struct {
	Upserted int `json:"upserted"`
}

// QueryResponse is the body of a range query.
type QueryResponse struct {
	Documents []Document `json:"documents"`
}

// ErrorResponse is the body the remote sends with a non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
