package history

import (
	"context"
	"database/sql"
	"fmt"
)

// createTableDDL is the original (v1) shape of the table. Columns introduced
// later are listed in addedColumns so that databases created by older
// versions are upgraded in place.
const createTableDDL = `
	CREATE TABLE IF NOT EXISTS execution_history (
		id              TEXT    PRIMARY KEY,
		engine_id       TEXT    NOT NULL,
		compiled_prompt TEXT    NOT NULL DEFAULT '',
		executed_at     TEXT    NOT NULL,
		status          TEXT    NOT NULL,
		used_fallback   INTEGER NOT NULL DEFAULT 0,
		device_id       TEXT    NOT NULL DEFAULT '',
		updated_at      TEXT    NOT NULL,
		is_deleted      INTEGER NOT NULL DEFAULT 0
	);
`

const createIndexesDDL = `
	CREATE INDEX IF NOT EXISTS idx_execution_history_pending ON execution_history(is_synced, is_deleted);
	CREATE INDEX IF NOT EXISTS idx_execution_history_executed_at ON execution_history(executed_at);
`

type addedColumn struct {
	name string
	ddl  string
}

// addedColumns must stay additive: new entries need a default that is valid
// for every existing row, and rows are never backfilled here.
var addedColumns = []addedColumn{
	// v2: sync tracking.
	{name: "is_synced", ddl: "is_synced INTEGER NOT NULL DEFAULT 0"},
	{name: "synced_at", ddl: "synced_at TEXT"},
}

// migrate creates the table if needed and adds any columns it is missing.
func (r *SQLiteRepository) migrate(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableDDL); err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}

	existing, err := tableColumns(ctx, tx, "execution_history")
	if err != nil {
		return err
	}
	for _, col := range addedColumns {
		if existing[col.name] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "ALTER TABLE execution_history ADD COLUMN "+col.ddl); err != nil {
			return fmt.Errorf("history: failed to add column %s: %w", col.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, createIndexesDDL); err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: migration commit failed: %w", err)
	}
	return nil
}

// tableColumns returns the set of column names present on table.
func tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("history: failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("history: failed to inspect %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
