// Package cloud is the device's view of the shared cloud document store.
//
// A Store is a remote collection of execution documents keyed by record id.
// Writes are idempotent upserts, reads are range queries on updated_at. The
// package ships a networked HTTPStore and a NullStore used when the device
// has no configured remote identity.
package cloud

import (
	"context"
	"fmt"
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/services/auth"
	"nathanbeddoewebdev/promptsync/internal/util"
)

// Collection is the logical name of the remote collection.
const Collection = "execution_history"

// ProviderNone disables remote sync.
const ProviderNone = "none"

// Store is the remote document collection.
type Store interface {
	// BatchUpsert writes every record as a document keyed by its id. Local
	// sync bookkeeping is never sent. The whole batch succeeds or the call
	// fails; callers must treat a failure as "nothing written".
	BatchUpsert(ctx context.Context, records []history.ExecutionRecord) error

	// GetUpdatesSince returns documents whose updated_at is at or after since.
	GetUpdatesSince(ctx context.Context, since time.Time) ([]history.ExecutionRecord, error)

	// Name is a short label for logs.
	Name() string
}

// Configured reports whether provider names a remote store. Without one a
// push would only reach the NullStore.
func Configured(provider string) bool {
	provider = util.NormalizeKey(provider)
	return provider != "" && provider != ProviderNone
}

// Open returns the Store for the configured provider. A blank provider,
// ProviderNone, or a missing cloud token yields the NullStore so callers
// never need a nil check.
func Open(provider, endpoint string, store auth.Store) (Store, error) {
	if !Configured(provider) {
		return NullStore{}, nil
	}
	provider = util.NormalizeKey(provider)
	if !auth.IsAuthenticated(store, auth.CloudTokenKey) {
		return NullStore{}, nil
	}

	s, err := Get(provider, endpoint, store)
	if err != nil {
		return nil, fmt.Errorf("cloud: %w", err)
	}
	return s, nil
}
