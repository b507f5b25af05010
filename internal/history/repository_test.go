package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func tempRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promptsync.db")
	r, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// fixedClock pins the repository clock and returns a setter to move it.
func fixedClock(r *SQLiteRepository, at time.Time) func(time.Time) {
	now := at
	r.now = func() time.Time { return now }
	return func(t time.Time) { now = t }
}

func newRecord(t *testing.T, engine string, at time.Time) *ExecutionRecord {
	t.Helper()
	rec, err := NewExecutionRecord(engine, "prompt for "+engine, StatusSuccess, false, "dev-1", at)
	if err != nil {
		t.Fatalf("NewExecutionRecord failed: %v", err)
	}
	return rec
}

func pendingIDs(t *testing.T, r *SQLiteRepository) []string {
	t.Helper()
	pending, err := r.GetPendingSync(context.Background())
	if err != nil {
		t.Fatalf("GetPendingSync failed: %v", err)
	}
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestAdd_RoundTrip(t *testing.T) {
	r := tempRepo(t)
	fixedClock(r, baseTime.Add(time.Second))
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	rec.UsedFallback = true
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if !got.UpdatedAt.Equal(baseTime.Add(time.Second)) {
		t.Errorf("UpdatedAt = %v, want store clock", got.UpdatedAt)
	}
}

func TestAdd_OverwritesSyncFields(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	synced := baseTime
	rec := newRecord(t, "claude", baseTime)
	rec.IsSynced = true
	rec.SyncedAt = &synced

	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if rec.IsSynced || rec.SyncedAt != nil {
		t.Error("Add should reset sync bookkeeping on the caller's record")
	}
	if diff := cmp.Diff([]string{rec.ID}, pendingIDs(t, r)); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_DuplicateID(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	dup := *rec
	err := r.Add(ctx, &dup)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *StoreError, got %v", err)
	}
	if storeErr.Op != "insert" {
		t.Errorf("expected op 'insert', got %q", storeErr.Op)
	}
}

func TestAdd_RejectsMissingID(t *testing.T) {
	r := tempRepo(t)
	err := r.Add(context.Background(), &ExecutionRecord{})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestAdd_ClampsUpdatedAtToExecutedAt(t *testing.T) {
	r := tempRepo(t)
	// Device clock is behind the recorded execution time.
	fixedClock(r, baseTime.Add(-time.Hour))
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.UpdatedAt.Before(got.ExecutedAt) {
		t.Errorf("UpdatedAt %v is before ExecutedAt %v", got.UpdatedAt, got.ExecutedAt)
	}
}

func TestGetByID_Missing(t *testing.T) {
	r := tempRepo(t)

	got, err := r.GetByID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

func TestGetAll_NewestFirst(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	var want []string
	for i, engine := range []string{"a", "b", "c"} {
		rec := newRecord(t, engine, baseTime.Add(time.Duration(i)*time.Minute))
		if err := r.Add(ctx, rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		want = append([]string{rec.EngineID}, want...)
	}

	all, err := r.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	var got []string
	for _, rec := range all {
		got = append(got, rec.EngineID)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	recent, err := r.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 2 || recent[0].EngineID != "c" || recent[1].EngineID != "b" {
		t.Errorf("unexpected ListRecent result: %+v", recent)
	}
}

func TestGetPendingSync_ExcludesSyncedAndDeleted(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	keep := newRecord(t, "keep", baseTime)
	synced := newRecord(t, "synced", baseTime.Add(time.Second))
	deleted := newRecord(t, "deleted", baseTime.Add(2*time.Second))
	deleted.IsDeleted = true

	for _, rec := range []*ExecutionRecord{keep, synced, deleted} {
		if err := r.Add(ctx, rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if _, err := r.MarkSynced(ctx, []SyncMark{synced.SyncMark()}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	if diff := cmp.Diff([]string{keep.ID}, pendingIDs(t, r)); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkSynced(t *testing.T) {
	r := tempRepo(t)
	setNow := fixedClock(r, baseTime)
	ctx := context.Background()

	a := newRecord(t, "a", baseTime)
	b := newRecord(t, "b", baseTime)
	for _, rec := range []*ExecutionRecord{a, b} {
		if err := r.Add(ctx, rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	syncedAt := baseTime.Add(time.Minute)
	setNow(syncedAt)
	if _, err := r.MarkSynced(ctx, []SyncMark{a.SyncMark(), {ID: "unknown-id", UpdatedAt: baseTime}}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	got, err := r.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsSynced {
		t.Error("expected record to be synced")
	}
	if got.SyncedAt == nil || !got.SyncedAt.Equal(syncedAt) {
		t.Errorf("SyncedAt = %v, want %v", got.SyncedAt, syncedAt)
	}
	if diff := cmp.Diff([]string{b.ID}, pendingIDs(t, r)); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkSynced_Idempotent(t *testing.T) {
	r := tempRepo(t)
	setNow := fixedClock(r, baseTime)
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if _, err := r.MarkSynced(ctx, []SyncMark{rec.SyncMark()}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	first, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	setNow(baseTime.Add(time.Hour))
	if _, err := r.MarkSynced(ctx, []SyncMark{rec.SyncMark()}); err != nil {
		t.Fatalf("second MarkSynced failed: %v", err)
	}
	second, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-marking changed the record (-first +second):\n%s", diff)
	}
}

func TestMarkSynced_SkipsRowsEditedAfterPush(t *testing.T) {
	r := tempRepo(t)
	setNow := fixedClock(r, baseTime)
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	pushed := rec.SyncMark()

	setNow(baseTime.Add(time.Minute))
	edited := *rec
	edited.CompiledPrompt = "edited while the push was in flight"
	if err := r.Update(ctx, &edited); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	n, err := r.MarkSynced(ctx, []SyncMark{pushed})
	if err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	if n != 0 {
		t.Errorf("MarkSynced marked %d rows, want 0", n)
	}
	if diff := cmp.Diff([]string{rec.ID}, pendingIDs(t, r)); diff != "" {
		t.Errorf("edited row should stay pending (-want +got):\n%s", diff)
	}

	n, err = r.MarkSynced(ctx, []SyncMark{edited.SyncMark()})
	if err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	if n != 1 {
		t.Errorf("MarkSynced marked %d rows, want 1", n)
	}
	if got := pendingIDs(t, r); len(got) != 0 {
		t.Errorf("expected nothing pending, got %v", got)
	}
}

func TestScan_CorruptTimestamp(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.db.Exec(`UPDATE execution_history SET executed_at = 'yesterday' WHERE id = ?`, rec.ID); err != nil {
		t.Fatalf("corrupting row failed: %v", err)
	}

	_, err := r.GetByID(ctx, rec.ID)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("GetByID: expected *StoreError, got %v", err)
	}

	_, err = r.GetAll(ctx)
	if !errors.As(err, &storeErr) || storeErr.Op != "scan" {
		t.Errorf("GetAll: expected scan StoreError, got %v", err)
	}
}

func TestMarkSynced_Empty(t *testing.T) {
	r := tempRepo(t)
	if _, err := r.MarkSynced(context.Background(), nil); err != nil {
		t.Errorf("MarkSynced(nil) failed: %v", err)
	}
}

func TestUpdate_ReturnsToPending(t *testing.T) {
	r := tempRepo(t)
	setNow := fixedClock(r, baseTime)
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.MarkSynced(ctx, []SyncMark{rec.SyncMark()}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	later := baseTime.Add(5 * time.Minute)
	setNow(later)
	rec.Status = StatusFailed
	if err := r.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("expected status failed, got %q", got.Status)
	}
	if got.IsSynced || got.SyncedAt != nil {
		t.Error("updated record should be pending again")
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if diff := cmp.Diff([]string{rec.ID}, pendingIDs(t, r)); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_Missing(t *testing.T) {
	r := tempRepo(t)
	rec := newRecord(t, "claude", baseTime)

	err := r.Update(context.Background(), rec)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()

	rec := newRecord(t, "claude", baseTime)
	if err := r.Add(ctx, rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Error("expected record to be gone after Delete")
	}

	if err := r.Delete(ctx, rec.ID); err != nil {
		t.Errorf("deleting a missing id should not fail, got %v", err)
	}
}

func TestImportRemote_InsertsAbsentOnly(t *testing.T) {
	r := tempRepo(t)
	fixedClock(r, baseTime.Add(time.Hour))
	ctx := context.Background()

	local := newRecord(t, "local", baseTime)
	if err := r.Add(ctx, local); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	conflicting := *local
	conflicting.CompiledPrompt = "remote edit"
	remote := *newRecord(t, "remote", baseTime.Add(time.Minute))
	remote.DeviceID = "dev-2"

	n, err := r.ImportRemote(ctx, []ExecutionRecord{conflicting, remote})
	if err != nil {
		t.Fatalf("ImportRemote failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inserted, got %d", n)
	}

	got, err := r.GetByID(ctx, local.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CompiledPrompt != local.CompiledPrompt {
		t.Errorf("existing row was overwritten: prompt %q", got.CompiledPrompt)
	}

	imported, err := r.GetByID(ctx, remote.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if imported == nil || !imported.IsSynced || imported.DeviceID != "dev-2" {
		t.Errorf("unexpected imported record: %+v", imported)
	}

	if diff := cmp.Diff([]string{local.ID}, pendingIDs(t, r)); diff != "" {
		t.Errorf("imported records must not be pending (-want +got):\n%s", diff)
	}
}

func TestStats(t *testing.T) {
	r := tempRepo(t)
	fixedClock(r, baseTime)
	ctx := context.Background()

	a := newRecord(t, "a", baseTime)
	b := newRecord(t, "b", baseTime)
	c := newRecord(t, "c", baseTime)
	c.IsDeleted = true
	for _, rec := range []*ExecutionRecord{a, b, c} {
		if err := r.Add(ctx, rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if _, err := r.MarkSynced(ctx, []SyncMark{a.SyncMark()}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := Stats{Total: 3, Pending: 1, Synced: 1, Deleted: 1, LastSyncedAt: &baseTime}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_Empty(t *testing.T) {
	r := tempRepo(t)

	stats, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if diff := cmp.Diff(Stats{}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}
