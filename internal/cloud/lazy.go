package cloud

import (
	"context"
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"
)

// Compile-time check that Lazy satisfies Store.
var _ Store = (*Lazy)(nil)

// Lazy resolves the underlying Store on every call, so signing in or
// changing the provider takes effect in a long-running process without a
// restart.
type Lazy struct {
	open func() (Store, error)
}

// NewLazy wraps open, which is called once per operation.
func NewLazy(open func() (Store, error)) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) BatchUpsert(ctx context.Context, records []history.ExecutionRecord) error {
	s, err := l.open()
	if err != nil {
		return err
	}
	return s.BatchUpsert(ctx, records)
}

func (l *Lazy) GetUpdatesSince(ctx context.Context, since time.Time) ([]history.ExecutionRecord, error) {
	s, err := l.open()
	if err != nil {
		return nil, err
	}
	return s.GetUpdatesSince(ctx, since)
}

// Name reports the currently resolved store, or "unresolved".
func (l *Lazy) Name() string {
	s, err := l.open()
	if err != nil {
		return "unresolved"
	}
	return s.Name()
}
