package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// dsnOptions turns on WAL journaling so readers do not block the scan writer, and
// makes concurrent writers wait instead of failing with SQLITE_BUSY.
const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000"

// New opens the metadata database at path and checks that it is reachable.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open metadata database %s: %w", path, err)
	}
	return db, nil
}

// migrations are applied in order. The index of the last applied step is kept in
// PRAGMA user_version, so a step never runs twice. Append only.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS pagetable (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vault TEXT,
			path TEXT UNIQUE,
			virtualPath TEXT,
			metadata TEXT,
			last_modified TEXT,
			created TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT UNIQUE,
			virtualPath TEXT,
			type TEXT
		)`,
	},
	{
		`CREATE INDEX IF NOT EXISTS idx_pagetable_vault ON pagetable(vault)`,
		`CREATE INDEX IF NOT EXISTS idx_pagetable_virtual_path ON pagetable(virtualPath)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

// Migrate brings the schema up to SchemaVersion. Each step runs in its own transaction.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	for step := version; step < SchemaVersion; step++ {
		if err := applyMigration(db, step); err != nil {
			return fmt.Errorf("migration %d: %w", step+1, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, step int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migrations[step] {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not accept bound parameters
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", step+1)); err != nil {
		return err
	}
	return tx.Commit()
}
