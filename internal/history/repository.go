// Package history provides the device-local store of execution records.
//
// Every prompt sent to an AI engine is recorded here first, synchronously,
// before any attempt is made to push it to the cloud. The store also owns the
// pending/synced bookkeeping the sync service relies on: a record is pending
// until MarkSynced flips it.
//
// Storage is backed by a SQLite database at ~/.config/promptsync/promptsync.db
// (or the platform-equivalent path returned by os.UserConfigDir).
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"nathanbeddoewebdev/promptsync/internal/database"

	"golang.org/x/sync/singleflight"
)

// timeLayout is fixed-width so stored UTC timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = `id, engine_id, compiled_prompt, executed_at, status, used_fallback,
	device_id, updated_at, is_deleted, is_synced, synced_at`

// Repository defines the persistence interface for execution records.
type Repository interface {
	// Initialize creates or upgrades the schema. It is idempotent and safe
	// to call concurrently; every other method calls it first.
	Initialize(ctx context.Context) error

	// Add inserts a new record. IsSynced, SyncedAt and UpdatedAt are
	// overwritten on the given record before it is written.
	Add(ctx context.Context, record *ExecutionRecord) error

	// Update rewrites an existing record, refreshes UpdatedAt and returns
	// it to the pending set.
	Update(ctx context.Context, record *ExecutionRecord) error

	// Delete physically removes a record. Missing ids are ignored.
	Delete(ctx context.Context, id string) error

	// GetByID returns the record, or nil if no record has that id.
	GetByID(ctx context.Context, id string) (*ExecutionRecord, error)

	// GetAll returns every record, newest first.
	GetAll(ctx context.Context) ([]ExecutionRecord, error)

	// ListRecent returns the n most recently executed records.
	ListRecent(ctx context.Context, n int) ([]ExecutionRecord, error)

	// GetPendingSync returns exactly the records that are neither synced
	// nor deleted.
	GetPendingSync(ctx context.Context) ([]ExecutionRecord, error)

	// MarkSynced flags records as synced, but only while their stored
	// UpdatedAt still equals the pushed one. Rows edited after the push,
	// already synced, or unknown are left untouched. Returns the number of
	// rows marked.
	MarkSynced(ctx context.Context, marks []SyncMark) (int, error)

	// ImportRemote inserts records fetched from the cloud that do not exist
	// locally. Existing rows are never overwritten. Returns the number of
	// rows inserted.
	ImportRemote(ctx context.Context, records []ExecutionRecord) (int, error)

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (Stats, error)

	// Close releases database resources.
	Close() error
}

// Stats is a count summary of the local store.
type Stats struct {
	Total        int        `json:"total"`
	Pending      int        `json:"pending"`
	Synced       int        `json:"synced"`
	Deleted      int        `json:"deleted"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time

	initGroup singleflight.Group
	ready     atomic.Bool
}

// Compile-time check that SQLiteRepository satisfies Repository.
var _ Repository = (*SQLiteRepository)(nil)

// Open opens the repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return OpenAt(path)
}

// OpenAt opens a SQLite database at the given path. The schema is created
// lazily by Initialize.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return New(db), nil
}

// New wraps an already opened database handle. The repository takes
// ownership of db and closes it in Close.
func New(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Initialize runs the schema migration once. Concurrent callers wait for the
// same run; a caller whose ctx ends stops waiting without aborting the
// migration for the others. A failed run is retried on the next call.
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	if r.ready.Load() {
		return nil
	}

	ch := r.initGroup.DoChan("init", func() (any, error) {
		if r.ready.Load() {
			return nil, nil
		}
		if err := r.migrate(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		r.ready.Store(true)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("%w: %w", ErrNotInitialized, res.Err)
		}
		return nil
	}
}

// Add inserts a new record.
func (r *SQLiteRepository) Add(ctx context.Context, record *ExecutionRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidRecord)
	}
	if err := r.Initialize(ctx); err != nil {
		return err
	}

	record.IsSynced = false
	record.SyncedAt = nil
	record.touch(r.now())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO execution_history (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		record.ID, record.EngineID, record.CompiledPrompt, formatTime(record.ExecutedAt),
		string(record.Status), boolToInt(record.UsedFallback), record.DeviceID,
		formatTime(record.UpdatedAt), boolToInt(record.IsDeleted),
	)
	return storeErr("insert", err)
}

// Update rewrites an existing record and marks it pending again.
func (r *SQLiteRepository) Update(ctx context.Context, record *ExecutionRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidRecord)
	}
	if err := r.Initialize(ctx); err != nil {
		return err
	}

	record.touch(r.now())

	result, err := r.db.ExecContext(ctx, `
		UPDATE execution_history SET engine_id=?, compiled_prompt=?, executed_at=?, status=?,
		       used_fallback=?, device_id=?, updated_at=?, is_deleted=?,
		       is_synced=0, synced_at=NULL
		WHERE id=?`,
		record.EngineID, record.CompiledPrompt, formatTime(record.ExecutedAt), string(record.Status),
		boolToInt(record.UsedFallback), record.DeviceID, formatTime(record.UpdatedAt),
		boolToInt(record.IsDeleted), record.ID,
	)
	if err != nil {
		return storeErr("update", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("history: record %q: %w", record.ID, ErrRecordNotFound)
	}

	record.IsSynced = false
	record.SyncedAt = nil
	return nil
}

// Delete physically removes a record.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM execution_history WHERE id = ?`, id)
	return storeErr("delete", err)
}

// GetByID retrieves a single record by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*ExecutionRecord, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM execution_history WHERE id = ?`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("query", err)
	}
	return record, nil
}

// GetAll returns every record, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]ExecutionRecord, error) {
	return r.query(ctx, `
		SELECT `+recordColumns+` FROM execution_history ORDER BY executed_at DESC`)
}

// ListRecent returns the n most recently executed records.
func (r *SQLiteRepository) ListRecent(ctx context.Context, n int) ([]ExecutionRecord, error) {
	return r.query(ctx, `
		SELECT `+recordColumns+` FROM execution_history ORDER BY executed_at DESC LIMIT ?`, n)
}

// GetPendingSync returns records that still need to be pushed, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context) ([]ExecutionRecord, error) {
	return r.query(ctx, `
		SELECT `+recordColumns+` FROM execution_history
		WHERE is_synced = 0 AND is_deleted = 0 ORDER BY executed_at ASC`)
}

// MarkSynced flags pushed record versions as synced in a single
// transaction.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, marks []SyncMark) (int, error) {
	if len(marks) == 0 {
		return 0, nil
	}
	if err := r.Initialize(ctx); err != nil {
		return 0, err
	}

	now := formatTime(r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("mark synced", err)
	}
	defer tx.Rollback()

	lookup, err := tx.PrepareContext(ctx, `
		SELECT updated_at FROM execution_history WHERE id = ? AND is_synced = 0`)
	if err != nil {
		return 0, storeErr("mark synced", err)
	}
	defer lookup.Close()

	update, err := tx.PrepareContext(ctx, `
		UPDATE execution_history
		SET is_synced = 1, synced_at = ?,
		    updated_at = CASE WHEN executed_at > ? THEN executed_at ELSE ? END
		WHERE id = ?`)
	if err != nil {
		return 0, storeErr("mark synced", err)
	}
	defer update.Close()

	marked := 0
	for _, m := range marks {
		var storedStr string
		err := lookup.QueryRowContext(ctx, m.ID).Scan(&storedStr)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, storeErr("mark synced", err)
		}
		stored, err := parseTime("updated_at", storedStr)
		if err != nil {
			return 0, storeErr("mark synced", err)
		}
		// The row changed after this version was pushed.
		if !stored.Equal(m.UpdatedAt) {
			continue
		}
		if _, err := update.ExecContext(ctx, now, now, now, m.ID); err != nil {
			return 0, storeErr("mark synced", err)
		}
		marked++
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr("mark synced", err)
	}
	return marked, nil
}

// ImportRemote inserts cloud records that are absent locally.
func (r *SQLiteRepository) ImportRemote(ctx context.Context, records []ExecutionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := r.Initialize(ctx); err != nil {
		return 0, err
	}

	now := formatTime(r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("import", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO execution_history (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, storeErr("import", err)
	}
	defer stmt.Close()

	var inserted int
	for _, rec := range records {
		if rec.ID == "" {
			return 0, fmt.Errorf("%w: remote record without id", ErrInvalidRecord)
		}
		updatedAt := rec.UpdatedAt
		if updatedAt.Before(rec.ExecutedAt) {
			updatedAt = rec.ExecutedAt
		}
		result, err := stmt.ExecContext(ctx,
			rec.ID, rec.EngineID, rec.CompiledPrompt, formatTime(rec.ExecutedAt),
			string(rec.Status), boolToInt(rec.UsedFallback), rec.DeviceID,
			formatTime(updatedAt), boolToInt(rec.IsDeleted), now,
		)
		if err != nil {
			return 0, storeErr("import", err)
		}
		n, _ := result.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr("import", err)
	}
	return inserted, nil
}

// Stats summarizes the store contents.
func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	if err := r.Initialize(ctx); err != nil {
		return Stats{}, err
	}

	var (
		stats      Stats
		lastSynced sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_synced = 0 AND is_deleted = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(is_synced), 0),
		       COALESCE(SUM(is_deleted), 0),
		       MAX(synced_at)
		FROM execution_history`).Scan(&stats.Total, &stats.Pending, &stats.Synced, &stats.Deleted, &lastSynced)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	if stats.LastSyncedAt, err = parseNullTime("synced_at", lastSynced); err != nil {
		return Stats{}, storeErr("stats", err)
	}
	return stats, nil
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]ExecutionRecord, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query", err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr("scan", err)
		}
		records = append(records, *record)
	}
	return records, storeErr("query", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one row selected with recordColumns.
func scanRecord(s scanner) (*ExecutionRecord, error) {
	var (
		record                        ExecutionRecord
		status, executedStr, updStr   string
		usedFallback, deleted, synced int
		syncedAt                      sql.NullString
	)
	err := s.Scan(
		&record.ID, &record.EngineID, &record.CompiledPrompt, &executedStr, &status,
		&usedFallback, &record.DeviceID, &updStr, &deleted, &synced, &syncedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = Status(status)
	if record.ExecutedAt, err = parseTime("executed_at", executedStr); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime("updated_at", updStr); err != nil {
		return nil, err
	}
	record.UsedFallback = usedFallback == 1
	record.IsDeleted = deleted == 1
	record.IsSynced = synced == 1
	if record.SyncedAt, err = parseNullTime("synced_at", syncedAt); err != nil {
		return nil, err
	}
	return &record, nil
}

// parseTime parses a stored timestamp column.
func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt %s %q: %w", column, value, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullTime(column string, s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(column, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
