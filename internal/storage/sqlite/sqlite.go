// Package sqlite provides the on-device Storage backend: a single-file
// SQLite database holding one key-value table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/utafrali/gomarket/internal/storage"
	"github.com/utafrali/gomarket/pkg/database"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`
	getSQL = `SELECT value FROM kv_store WHERE key = ?`
	setSQL = `INSERT INTO kv_store (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value,
	updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
)

// Storage is a SQLite-backed key-value store.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite %s: %w", path, err)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		schemaSQL,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare sqlite %q: %w", stmt, err)
		}
	}

	return &Storage{db: db, logger: logger}, nil
}

// Get returns the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) (value string, err error) {
	ctx, end := database.TraceQuery(ctx, s.logger, "sqlite", "kv.get", getSQL)
	defer func() { end(err) }()

	err = s.db.QueryRowContext(ctx, getSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.KeyNotFound(key)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Storage) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, s.logger, "sqlite", "kv.set", setSQL)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, setSQL, key, value); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the handle for connection-pool metrics.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}
