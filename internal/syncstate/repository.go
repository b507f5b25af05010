// Package syncstate persists sync bookkeeping: the per-collection pull
// cursor (the newest remote updated_at this device has imported) and the
// start of the latest push attempt, which throttles pushes across processes.
//
// Storage shares the promptsync SQLite database (separate table).
package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/promptsync/internal/database"
)

// Repository defines the persistence interface for sync cursors.
type Repository interface {
	// Cursor returns the stored cursor for collection, or the zero time if
	// none has been stored yet.
	Cursor(ctx context.Context, collection string) (time.Time, error)

	// SetCursor upserts the cursor. A cursor never moves backwards; an older
	// value is ignored.
	SetCursor(ctx context.Context, collection string, at time.Time) error

	// ClaimAttempt starts a push window at at unless one started less than
	// interval earlier. It reports whether the window was claimed.
	ClaimAttempt(ctx context.Context, at time.Time, interval time.Duration) (bool, error)

	// Close releases database resources.
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open opens the repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("syncstate: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("syncstate: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS sync_state (
			collection TEXT PRIMARY KEY,
			cursor     TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("syncstate: migration failed: %w", err)
	}
	return nil
}

// Cursor returns the stored cursor for collection.
func (r *SQLiteRepository) Cursor(ctx context.Context, collection string) (time.Time, error) {
	var cursorStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT cursor FROM sync_state WHERE collection = ?`, collection).Scan(&cursorStr)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("syncstate: query failed: %w", err)
	}

	cursor, err := time.Parse(time.RFC3339Nano, cursorStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("syncstate: corrupt cursor %q: %w", cursorStr, err)
	}
	return cursor, nil
}

// SetCursor upserts the cursor, keeping the later of the stored and given
// values. Cursors are stored in a fixed-width layout so the comparison can
// run in SQL.
func (r *SQLiteRepository) SetCursor(ctx context.Context, collection string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (collection, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
		WHERE excluded.cursor > sync_state.cursor`,
		collection, formatCursor(at), formatCursor(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("syncstate: upsert failed: %w", err)
	}
	return nil
}

// pushWindowKey stores the last push attempt in the cursor table. The colon
// keeps it apart from collection names.
const pushWindowKey = "push:last_attempt"

// ClaimAttempt claims the push window in a single statement so two
// processes sharing the database cannot both claim it. A stored start later
// than at is treated as clock skew and overwritten.
func (r *SQLiteRepository) ClaimAttempt(ctx context.Context, at time.Time, interval time.Duration) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (collection, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
		WHERE sync_state.cursor <= ? OR sync_state.cursor > excluded.cursor`,
		pushWindowKey, formatCursor(at), formatCursor(time.Now()), formatCursor(at.Add(-interval)),
	)
	if err != nil {
		return false, fmt.Errorf("syncstate: claim failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("syncstate: claim failed: %w", err)
	}
	return n > 0, nil
}

// LastAttempt returns the start of the latest claimed push window, or the
// zero time if none was claimed.
func (r *SQLiteRepository) LastAttempt(ctx context.Context) (time.Time, error) {
	return r.Cursor(ctx, pushWindowKey)
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func formatCursor(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
