// Package auth stores the credentials that identify this device to the cloud
// document store. Tokens live in the OS keychain; tests use MockStore.
package auth

import (
	"errors"

	"nathanbeddoewebdev/promptsync/internal/util"
)

const ServiceName = "promptsync"

// CloudTokenKey is the key the cloud sync token is stored under.
const CloudTokenKey = "cloud"

var ErrTokenNotFound = errors.New("auth token not found")

type Store interface {
	SetToken(key string, token string) error
	GetToken(key string) (string, error)
	DeleteToken(key string) error
}

// DefaultStore returns the standard auth store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeKey normalizes a token key for consistent lookup.
func NormalizeKey(key string) string {
	return util.NormalizeKey(key)
}

// IsAuthenticated reports whether a non-empty token is stored under key.
// Keychain failures count as signed out.
func IsAuthenticated(store Store, key string) bool {
	if store == nil {
		return false
	}
	token, err := store.GetToken(key)
	return err == nil && token != ""
}
