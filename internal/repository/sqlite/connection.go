package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/semenovpa/csv_importer/internal/config"
)

// NewConnection opens the SQLite database file, creating its directory when
// missing. WAL mode plus a busy timeout lets the upload and webhook paths
// write concurrently without immediate SQLITE_BUSY failures.
func NewConnection(ctx context.Context, cfg config.SQLite) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	params := url.Values{
		"_busy_timeout": []string{"5000"},
		"_journal_mode": []string{"WAL"},
		"_foreign_keys": []string{"on"},
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", cfg.Path, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the tables when absent. The DDL matches the migrator's
// migrations, so either bootstrap path may run first.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT      NOT NULL,
	email      TEXT      NOT NULL UNIQUE,
	age        INTEGER   NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS ingestions (
	bucket       TEXT      NOT NULL,
	object_key   TEXT      NOT NULL,
	etag         TEXT      NOT NULL,
	processed_at TIMESTAMP NOT NULL,
	PRIMARY KEY (bucket, object_key)
);`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}
