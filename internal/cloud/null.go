package cloud

import (
	"context"
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"
)

// Compile-time check that NullStore satisfies Store.
var _ Store = NullStore{}

// NullStore accepts every write and returns nothing. It stands in for the
// remote when the device has no cloud identity, so records are marked synced
// locally and the pending set stays bounded.
type NullStore struct{}

func (NullStore) BatchUpsert(context.Context, []history.ExecutionRecord) error { return nil }

func (NullStore) GetUpdatesSince(context.Context, time.Time) ([]history.ExecutionRecord, error) {
	return []history.ExecutionRecord{}, nil
}

func (NullStore) Name() string { return ProviderNone }
