package history

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord indicates a record that violates the data model
	// (missing engine id, unknown status, ...).
	ErrInvalidRecord = errors.New("invalid execution record")

	// ErrRecordNotFound is returned by mutations that target a missing id.
	// Lookups report a missing id as (nil, nil) instead.
	ErrRecordNotFound = errors.New("execution record not found")

	// ErrNotInitialized wraps the cause of a failed schema initialization.
	// The store cannot serve requests until a later Initialize succeeds.
	ErrNotInitialized = errors.New("history store not initialized")
)

// StoreError is the typed failure returned for local storage errors.
type StoreError struct {
	// Op is the repository operation that failed, e.g. "insert".
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
