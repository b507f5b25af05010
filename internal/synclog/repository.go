// Package synclog keeps a local log of push and pull attempts so the CLI can
// show when the device last talked to the cloud and why it failed.
package synclog

import (
	"database/sql"
	"fmt"
	"time"

	"nathanbeddoewebdev/promptsync/internal/database"
)

// Repository defines the persistence interface for sync log entries.
type Repository interface {
	Save(entry *Entry) error
	List(limit int) ([]Entry, error)
	ListByDirection(direction string, limit int) ([]Entry, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the sync log at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("synclog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("synclog: %w", err)
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
		CREATE TABLE IF NOT EXISTS sync_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   TEXT    NOT NULL,
			direction   TEXT    NOT NULL,
			outcome     TEXT    NOT NULL,
			provider    TEXT    NOT NULL DEFAULT '',
			records     INTEGER NOT NULL DEFAULT 0,
			detail      TEXT    NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_sync_log_timestamp ON sync_log(timestamp);
		CREATE INDEX IF NOT EXISTS idx_sync_log_direction ON sync_log(direction);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("synclog: migration failed: %w", err)
	}
	return nil
}

// Save inserts a new entry. Detail is redacted before it is written.
func (r *SQLiteRepository) Save(entry *Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Detail = Redact(entry.Detail)

	result, err := r.db.Exec(`
		INSERT INTO sync_log (timestamp, direction, outcome, provider, records, detail, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(entry.Timestamp), entry.Direction, entry.Outcome, entry.Provider,
		entry.Records, entry.Detail, entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("synclog: insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("synclog: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns the most recent n entries.
func (r *SQLiteRepository) List(limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, timestamp, direction, outcome, provider, records, detail, duration_ms
		FROM sync_log ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("synclog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListByDirection returns the most recent n entries for one direction.
func (r *SQLiteRepository) ListByDirection(direction string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, timestamp, direction, outcome, provider, records, detail, duration_ms
		FROM sync_log WHERE direction = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, direction, limit)
	if err != nil {
		return nil, fmt.Errorf("synclog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Prune deletes entries older than the given duration.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := r.db.Exec(`DELETE FROM sync_log WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("synclog: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanRows(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var timestampStr string
		err := rows.Scan(
			&entry.ID, &timestampStr, &entry.Direction, &entry.Outcome, &entry.Provider,
			&entry.Records, &entry.Detail, &entry.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("synclog: scan failed: %w", err)
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestampStr)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// formatTime uses a fixed-width layout so timestamps order lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
