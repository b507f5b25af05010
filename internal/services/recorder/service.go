// Package recorder is the single entry point other features use to log an
// execution. It persists the record locally and hands a copy to the sync
// queue; it never waits for the network.
package recorder

import (
	"context"
	"fmt"
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"

	"go.uber.org/zap"
)

// Outcome is what the caller knows about an execution attempt.
type Outcome struct {
	Status       history.Status
	UsedFallback bool
}

// Enqueuer receives records for background sync. Enqueue must not block on
// I/O.
type Enqueuer interface {
	Enqueue(rec history.ExecutionRecord)
}

// Service records executions.
type Service struct {
	local    history.Repository
	queue    Enqueuer
	deviceID string
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for ExecutedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a recorder. queue may be nil, in which case records are only
// stored locally and picked up later from the pending set.
func New(local history.Repository, queue Enqueuer, deviceID string, opts ...Option) *Service {
	s := &Service{
		local:    local,
		queue:    queue,
		deviceID: deviceID,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordExecution builds, stores and enqueues a record. It returns once the
// local write has completed. Invalid input and local storage failures are
// returned; sync problems never are.
func (s *Service) RecordExecution(ctx context.Context, outcome Outcome, engineID, compiledPrompt string) (*history.ExecutionRecord, error) {
	rec, err := history.NewExecutionRecord(engineID, compiledPrompt, outcome.Status, outcome.UsedFallback, s.deviceID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.local.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("recorder: failed to store execution: %w", err)
	}

	s.log.Debug("execution recorded",
		zap.String("record_id", rec.ID),
		zap.String("engine", rec.EngineID),
		zap.String("status", string(rec.Status)),
	)

	if s.queue != nil {
		s.queue.Enqueue(*rec)
	}
	return rec, nil
}
