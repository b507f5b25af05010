package syncer

import (
	"context"
	"time"

	"nathanbeddoewebdev/promptsync/internal/cloud"
	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/retry"
	"nathanbeddoewebdev/promptsync/internal/synclog"

	"go.uber.org/zap"
)

// Pull imports remote records created on other devices. Only ids unknown
// locally are inserted; an existing local row is never overwritten by its
// remote copy. Pull is gated like Attempt but not throttled.
func (s *Service) Pull(ctx context.Context) PullResult {
	v, _, _ := s.flight.Do("pull", func() (any, error) {
		return s.pull(ctx), nil
	})
	return v.(PullResult)
}

func (s *Service) pull(ctx context.Context) PullResult {
	start := time.Now()

	if reason, ok := s.gate(); !ok {
		return s.finishPull(start, PullResult{Outcome: OutcomeSkipped, Reason: reason})
	}

	var since time.Time
	if s.cursors != nil {
		c, err := s.cursors.Cursor(ctx, cloud.Collection)
		if err != nil {
			return s.finishPull(start, PullResult{Outcome: OutcomeFailed, Err: err})
		}
		since = c
	}

	cfg := s.pullRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.log.Info("retrying cloud query",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	}

	var remote []history.ExecutionRecord
	err := retry.Do(ctx, cfg, retry.Any(retry.IsRetryable, cloud.IsTransient), func() error {
		var err error
		remote, err = s.remote.GetUpdatesSince(ctx, since)
		return err
	})
	if err != nil {
		if isCanceled(ctx, err) {
			return s.finishPull(start, PullResult{Outcome: OutcomeCanceled, Err: err, Cursor: since})
		}
		return s.finishPull(start, PullResult{Outcome: OutcomeFailed, Err: err, Cursor: since})
	}

	result := PullResult{Fetched: len(remote), Cursor: since}
	valid := make([]history.ExecutionRecord, 0, len(remote))
	for _, r := range remote {
		if r.ID == "" || !r.Status.Valid() || r.ExecutedAt.IsZero() {
			s.log.Warn("ignoring malformed remote record", zap.String("record_id", r.ID))
			result.Skipped++
			continue
		}
		valid = append(valid, r)
		if r.UpdatedAt.After(result.Cursor) {
			result.Cursor = r.UpdatedAt
		}
	}

	inserted, err := s.local.ImportRemote(context.WithoutCancel(ctx), valid)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		result.Cursor = since
		return s.finishPull(start, result)
	}
	result.Imported = inserted
	result.Skipped += len(valid) - inserted
	if n := len(valid) - inserted; n > 0 {
		s.log.Debug("remote records already present locally", zap.Int("count", n))
	}

	if s.cursors != nil && result.Cursor.After(since) {
		if err := s.cursors.SetCursor(context.WithoutCancel(ctx), cloud.Collection, result.Cursor); err != nil {
			// Records were imported; a stale cursor only means refetching them.
			s.log.Warn("failed to advance pull cursor", zap.Error(err))
		}
	}

	result.Outcome = OutcomeNothingToSync
	if inserted > 0 {
		result.Outcome = OutcomeSynced
	}
	return s.finishPull(start, result)
}

func (s *Service) finishPull(start time.Time, r PullResult) PullResult {
	r.Duration = time.Since(start)
	s.metrics.observePull(r)

	fields := []zap.Field{
		zap.String("outcome", string(r.Outcome)),
		zap.String("store", s.remote.Name()),
		zap.Int("fetched", r.Fetched),
		zap.Int("imported", r.Imported),
		zap.Duration("duration", r.Duration),
	}
	if r.Err != nil {
		s.log.Warn("pull failed", append(fields, zap.Error(r.Err))...)
	} else {
		s.log.Debug("pull finished", fields...)
	}

	if r.Outcome != OutcomeSkipped {
		s.saveEntry(synclog.DirectionPull, string(r.Outcome), r.Imported, r.Err, r.Duration)
	}
	return r
}
