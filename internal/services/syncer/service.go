// Package syncer pushes locally recorded executions to the cloud store.
//
// Records reach the cloud through Attempt, which unions the store's pending
// set with an in-memory queue fed by the recorder, pushes the batch as one
// upsert and marks it synced only after the remote confirmed it. Attempts are
// gated on session and preference predicates and throttled so a burst of
// executions produces at most one network call per MinSyncInterval.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"nathanbeddoewebdev/promptsync/internal/cloud"
	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/retry"
	"nathanbeddoewebdev/promptsync/internal/synclog"
	"nathanbeddoewebdev/promptsync/internal/syncstate"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MinSyncInterval is the default minimum time between two attempts that
// reach the pending-set read.
// Exported as a variable so tests can override it.
var MinSyncInterval = 30 * time.Second

// Service coordinates pushes and pulls between the local and cloud stores.
type Service struct {
	local  history.Repository
	remote cloud.Store
	queue  Queue

	authenticated func() bool
	syncEnabled   func() bool
	minInterval   time.Duration
	now           func() time.Time

	log        *zap.Logger
	metrics    *Metrics
	attemptLog synclog.Repository
	cursors    syncstate.Repository
	pullRetry  retry.Config

	mu          sync.Mutex
	lastAttempt time.Time

	flight singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithAuthenticated sets the session predicate, evaluated on every attempt.
func WithAuthenticated(fn func() bool) Option {
	return func(s *Service) { s.authenticated = fn }
}

// WithSyncEnabled sets the user preference predicate, evaluated on every
// attempt.
func WithSyncEnabled(fn func() bool) Option {
	return func(s *Service) { s.syncEnabled = fn }
}

// WithMinInterval overrides MinSyncInterval for this service.
func WithMinInterval(d time.Duration) Option {
	return func(s *Service) { s.minInterval = d }
}

// WithClock sets the clock used for throttling.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics records attempt outcomes and queue depth on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAttemptLog persists a row per push or pull that did real work.
func WithAttemptLog(repo synclog.Repository) Option {
	return func(s *Service) { s.attemptLog = repo }
}

// WithCursorStore persists the pull cursor and the push throttle window.
// Without it every pull starts from the beginning of time and the throttle
// only spans this process.
func WithCursorStore(repo syncstate.Repository) Option {
	return func(s *Service) { s.cursors = repo }
}

// WithPullRetry sets the retry policy for the pull query.
func WithPullRetry(cfg retry.Config) Option {
	return func(s *Service) { s.pullRetry = cfg }
}

// New creates a sync service. Both predicates default to true.
func New(local history.Repository, remote cloud.Store, opts ...Option) *Service {
	s := &Service{
		local:         local,
		remote:        remote,
		authenticated: func() bool { return true },
		syncEnabled:   func() bool { return true },
		minInterval:   MinSyncInterval,
		now:           time.Now,
		log:           zap.NewNop(),
		pullRetry:     retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.remote == nil {
		s.remote = cloud.NullStore{}
	}
	return s
}

// Enqueue adds a copy of rec to the in-memory queue. It never blocks on I/O
// and never fails.
func (s *Service) Enqueue(rec history.ExecutionRecord) {
	n := s.queue.Push(rec)
	s.metrics.setQueueDepth(n)
	s.log.Debug("record enqueued", zap.String("record_id", rec.ID), zap.Int("queue", n))
}

// QueueLen returns the number of records waiting in memory.
func (s *Service) QueueLen() int {
	return s.queue.Len()
}

// Attempt runs one push. Calls that overlap a running attempt wait for it
// and share its Result.
func (s *Service) Attempt(ctx context.Context) Result {
	v, _, _ := s.flight.Do("attempt", func() (any, error) {
		return s.attempt(ctx), nil
	})
	return v.(Result)
}

func (s *Service) attempt(ctx context.Context) Result {
	start := time.Now()

	if reason, ok := s.gate(); !ok {
		return s.finish(start, Result{Outcome: OutcomeSkipped, Reason: reason})
	}

	if !s.claimWindow(ctx) {
		return s.finish(start, Result{Outcome: OutcomeThrottled})
	}

	queued := s.queue.Drain()
	s.metrics.setQueueDepth(0)

	pending, err := s.local.GetPendingSync(ctx)
	if err != nil {
		s.requeue(queued)
		return s.finish(start, Result{Outcome: OutcomeFailed, Err: err})
	}

	stored, err := s.reloadQueued(ctx, pending, queued)
	if err != nil {
		s.requeue(queued)
		return s.finish(start, Result{Outcome: OutcomeFailed, Err: err})
	}

	batch := mergeBatch(pending, stored)
	if len(batch) == 0 {
		return s.finish(start, Result{Outcome: OutcomeNothingToSync})
	}

	if err := ctx.Err(); err != nil {
		s.requeue(batch)
		return s.finish(start, Result{Outcome: OutcomeCanceled, Err: err})
	}

	if err := s.remote.BatchUpsert(ctx, batch); err != nil {
		s.requeue(batch)
		if ctx.Err() != nil {
			return s.finish(start, Result{Outcome: OutcomeCanceled, Err: err})
		}
		return s.finish(start, Result{Outcome: OutcomeFailed, Err: err})
	}

	marks := make([]history.SyncMark, len(batch))
	for i := range batch {
		marks[i] = batch[i].SyncMark()
	}
	marked, err := s.local.MarkSynced(context.WithoutCancel(ctx), marks)
	if err != nil {
		// The rows stay pending and are pushed again next time; the
		// upsert is idempotent.
		return s.finish(start, Result{Outcome: OutcomeFailed, Err: err})
	}
	if marked < len(batch) {
		// Rows edited during the push keep their pending flag.
		s.log.Debug("records changed during push", zap.Int("unmarked", len(batch)-marked))
	}

	return s.finish(start, Result{Outcome: OutcomeSynced, Pushed: len(batch)})
}

// Run calls Attempt immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.minInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.Attempt(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// claimWindow reports whether this attempt may run, and if so starts a new
// throttle window. The window is recorded before any work so a failing
// attempt still counts. With a cursor store the window is shared by every
// process using the same database.
func (s *Service) claimWindow(ctx context.Context) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.minInterval {
		return false
	}
	if s.cursors != nil {
		ok, err := s.cursors.ClaimAttempt(context.WithoutCancel(ctx), now, s.minInterval)
		if err != nil {
			s.log.Warn("failed to read shared sync window", zap.Error(err))
		} else if !ok {
			return false
		}
	}
	s.lastAttempt = now
	return true
}

// reloadQueued replaces queued records that are not in the pending set with
// their stored copy. Records purged since they were queued are dropped.
func (s *Service) reloadQueued(ctx context.Context, pending, queued []history.ExecutionRecord) ([]history.ExecutionRecord, error) {
	inPending := make(map[string]bool, len(pending))
	for _, r := range pending {
		inPending[r.ID] = true
	}

	out := make([]history.ExecutionRecord, 0, len(queued))
	for _, q := range queued {
		if inPending[q.ID] {
			continue
		}
		rec, err := s.local.GetByID(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.IsDeleted {
			s.log.Debug("dropping purged record from queue", zap.String("record_id", q.ID))
			continue
		}
		inPending[q.ID] = true
		out = append(out, *rec)
	}
	return out, nil
}

func (s *Service) gate() (string, bool) {
	if !s.authenticated() {
		return ReasonNotAuthenticated, false
	}
	if !s.syncEnabled() {
		return ReasonSyncDisabled, false
	}
	return "", true
}

func (s *Service) requeue(records []history.ExecutionRecord) {
	if len(records) == 0 {
		return
	}
	n := s.queue.PushAll(records)
	s.metrics.setQueueDepth(n)
}

func (s *Service) finish(start time.Time, r Result) Result {
	r.Duration = time.Since(start)
	s.metrics.observeAttempt(r)

	fields := []zap.Field{
		zap.String("outcome", string(r.Outcome)),
		zap.String("store", s.remote.Name()),
		zap.Int("batch", r.Pushed),
		zap.Duration("duration", r.Duration),
	}
	switch r.Outcome {
	case OutcomeFailed:
		s.log.Warn("sync attempt failed", append(fields, zap.Error(r.Err))...)
	case OutcomeCanceled:
		s.log.Info("sync attempt canceled", append(fields, zap.Error(r.Err))...)
	case OutcomeSkipped:
		s.log.Debug("sync attempt skipped", append(fields, zap.String("reason", r.Reason))...)
	default:
		s.log.Debug("sync attempt finished", fields...)
	}

	if r.Outcome == OutcomeSynced || r.Outcome == OutcomeFailed || r.Outcome == OutcomeCanceled {
		s.saveEntry(synclog.DirectionPush, string(r.Outcome), r.Pushed, r.Err, r.Duration)
	}
	return r
}

func (s *Service) saveEntry(direction, outcome string, records int, err error, d time.Duration) {
	if s.attemptLog == nil {
		return
	}
	entry := &synclog.Entry{
		Direction:  direction,
		Outcome:    outcome,
		Provider:   s.remote.Name(),
		Records:    records,
		DurationMs: d.Milliseconds(),
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	if saveErr := s.attemptLog.Save(entry); saveErr != nil {
		s.log.Warn("failed to write sync log", zap.Error(saveErr))
	}
}

// isCanceled reports whether err came from ctx ending.
func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
