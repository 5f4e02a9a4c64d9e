// Package queue provides the durable action queue: a persistent, keyed
// store of not-yet-confirmed actions that survives process restarts.
//
// The queue is a single-writer-per-device store backed by SQLite. An
// enqueue must be durably persisted before the caller reports success to
// the worker; if the terminal is powered off immediately after the worker
// sees a confirmation, the action must not be lost.
package queue

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added enqueued_at column for queue-age diagnostics
const currentSchemaVersion = 1

// Store owns the SQLite database holding pending actions.
// Uses WAL mode for concurrent read access (status endpoint reads while
// the kiosk writes).
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - FULL synchronous mode: the enqueue-before-confirm ordering is
//     load-bearing, so a confirmed write must survive power loss
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 backfills enqueued_at for databases created before v1.
// New databases get the column from schema.sql; pre-v1 rows inherit their
// intent timestamp as the best available approximation.
func migrateToV1(db *sql.DB) error {
	var hasColumn int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('pending_actions')
		WHERE name = 'enqueued_at'
	`).Scan(&hasColumn)
	if err != nil {
		return fmt.Errorf("migrate to v1: inspect schema: %w", err)
	}
	if hasColumn > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE pending_actions ADD COLUMN enqueued_at TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("migrate to v1: add column: %w", err)
	}
	if _, err := db.Exec(`UPDATE pending_actions SET enqueued_at = timestamp WHERE enqueued_at = ''`); err != nil {
		return fmt.Errorf("migrate to v1: backfill: %w", err)
	}
	return nil
}
