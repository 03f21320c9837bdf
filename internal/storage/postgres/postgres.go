// Package postgres provides a Storage backend on a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/gomarket/internal/storage"
	"github.com/utafrali/gomarket/pkg/database"
)

// Schema creates the key-value table.
const Schema = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const (
	getSQL = `SELECT value FROM kv_store WHERE key = $1`
	setSQL = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
)

// Storage is a PostgreSQL-backed key-value store.
type Storage struct {
	db     database.DBTX
	logger *slog.Logger
}

// New creates a storage over db. Call database.ApplySchema with Schema first.
func New(db database.DBTX, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

// Get returns the value stored under key.
func (s *Storage) Get(ctx context.Context, key string) (value string, err error) {
	ctx, end := database.TraceQuery(ctx, s.logger, "postgresql", "kv.get", getSQL)
	defer func() { end(err) }()

	err = s.db.QueryRow(ctx, getSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.KeyNotFound(key)
	}
	if err != nil {
		return "", fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Storage) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, s.logger, "postgresql", "kv.set", setSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, setSQL, key, value); err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}
