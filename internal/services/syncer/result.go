package syncer

import (
	"fmt"
	"time"
)

// Outcome is the terminal state of one sync attempt.
type Outcome string

const (
	OutcomeSkipped       Outcome = "skipped"
	OutcomeThrottled     Outcome = "throttled"
	OutcomeNothingToSync Outcome = "nothing_to_sync"
	OutcomeSynced        Outcome = "synced"
	OutcomeFailed        Outcome = "failed"
	OutcomeCanceled      Outcome = "canceled"
)

// Reasons attached to OutcomeSkipped.
const (
	ReasonNotAuthenticated = "not_authenticated"
	ReasonSyncDisabled     = "sync_disabled"
)

// Result describes one push attempt. Attempt never returns an error; a
// failure is carried in Err.
type Result struct {
	Outcome  Outcome
	Reason   string
	Pushed   int
	Err      error
	Duration time.Duration
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("skipped (%s)", r.Reason)
	case OutcomeSynced:
		return fmt.Sprintf("synced %d record(s) in %s", r.Pushed, r.Duration.Round(time.Millisecond))
	case OutcomeNothingToSync:
		return "nothing to sync"
	case OutcomeFailed, OutcomeCanceled:
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	}
	return string(r.Outcome)
}

// PullResult describes one pull.
type PullResult struct {
	Outcome  Outcome
	Reason   string
	Fetched  int
	Imported int
	// Skipped counts fetched records that already existed locally or were
	// malformed.
	Skipped  int
	Cursor   time.Time
	Err      error
	Duration time.Duration
}

func (r PullResult) String() string {
	switch r.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("skipped (%s)", r.Reason)
	case OutcomeSynced, OutcomeNothingToSync:
		return fmt.Sprintf("fetched %d, imported %d, skipped %d", r.Fetched, r.Imported, r.Skipped)
	case OutcomeFailed, OutcomeCanceled:
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	}
	return string(r.Outcome)
}
