package cloud

import "errors"

// Sentinel errors for classifying remote failures. Stores wrap these so the
// sync service can log and report failure categories without knowing which
// backend produced them.
var (
	// ErrUnauthorized indicates the remote rejected the device credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the remote throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a server-side failure (5xx).
	ErrUnavailable = errors.New("cloud store unavailable")
)
