package syncer

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"nathanbeddoewebdev/promptsync/internal/cloud"
	"nathanbeddoewebdev/promptsync/internal/history"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRemote is an in-memory cloud.Store keyed by record id.
type fakeRemote struct {
	mu         sync.Mutex
	docs       map[string]history.ExecutionRecord
	batches    [][]history.ExecutionRecord
	upsertErr  error
	queryErrs  []error
	queryCalls int
	entered    chan struct{}
	release    chan struct{}
}

var _ cloud.Store = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]history.ExecutionRecord)}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) BatchUpsert(ctx context.Context, records []history.ExecutionRecord) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]history.ExecutionRecord(nil), records...))
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, r := range records {
		f.docs[r.ID] = r
	}
	return nil
}

func (f *fakeRemote) GetUpdatesSince(ctx context.Context, since time.Time) ([]history.ExecutionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if len(f.queryErrs) > 0 {
		err := f.queryErrs[0]
		f.queryErrs = f.queryErrs[1:]
		return nil, err
	}

	var out []history.ExecutionRecord
	for _, r := range f.docs {
		if !r.UpdatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeRemote) setUpsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertErr = err
}

func (f *fakeRemote) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeRemote) lastBatch() []history.ExecutionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	return f.batches[len(f.batches)-1]
}

// flakyLocal wraps a real repository and injects failures.
type flakyLocal struct {
	history.Repository
	pendingErr   error
	markErr      error
	afterPending func()
}

func (f *flakyLocal) GetPendingSync(ctx context.Context) ([]history.ExecutionRecord, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	records, err := f.Repository.GetPendingSync(ctx)
	if f.afterPending != nil {
		f.afterPending()
	}
	return records, err
}

func (f *flakyLocal) MarkSynced(ctx context.Context, marks []history.SyncMark) (int, error) {
	if f.markErr != nil {
		return 0, f.markErr
	}
	return f.Repository.MarkSynced(ctx, marks)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func tempLocal(t *testing.T) *history.SQLiteRepository {
	t.Helper()
	r, err := history.OpenAt(filepath.Join(t.TempDir(), "promptsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// addRecord stores a new record locally and returns it.
func addRecord(t *testing.T, local history.Repository, engine string) history.ExecutionRecord {
	t.Helper()
	rec, err := history.NewExecutionRecord(engine, "prompt for "+engine, history.StatusSuccess, false, "dev-1", time.Now())
	require.NoError(t, err)
	require.NoError(t, local.Add(context.Background(), rec))
	return *rec
}

func pendingIDs(t *testing.T, local history.Repository) []string {
	t.Helper()
	pending, err := local.GetPendingSync(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.ID)
	}
	return ids
}

func ids(records []history.ExecutionRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
