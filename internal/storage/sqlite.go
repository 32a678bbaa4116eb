package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BradenHooton/offeradmin/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);
`

// SQLite stores keys in a single table of an embedded database file
type SQLite struct {
	db         *sql.DB
	namespace  string
	quotaBytes int64
}

// NewSQLite opens the database at dsn and creates the table if needed
func NewSQLite(ctx context.Context, dsn, namespace string, quotaBytes int64) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create kv_store table: %w", err)
	}

	return &SQLite{db: db, namespace: namespace, quotaBytes: quotaBytes}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return value, wrapErr("get", key, err)
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("set", key, err)
	}
	defer tx.Rollback()

	if s.quotaBytes > 0 {
		var used int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0)
			FROM kv_store WHERE namespace = ? AND key <> ?
		`, s.namespace, key).Scan(&used)
		if err != nil {
			return wrapErr("set", key, err)
		}
		if used+entrySize(key, value) > s.quotaBytes {
			return wrapErr("set", key, models.ErrStorageQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv_store (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.namespace, key, value)
	if err != nil {
		return wrapErr("set", key, err)
	}
	return wrapErr("set", key, tx.Commit())
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE namespace = ? AND key = ?`, s.namespace, key)
	return wrapErr("remove", key, err)
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE namespace = ?`, s.namespace)
	return wrapErr("clear", "", err)
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
