package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"resaletracker/backend/internal/store"
)

// Store is a file-backed local cache on sqlite.
type Store struct {
	db       *sql.DB
	capacity int
}

func New(ctx context.Context, path string, capacity int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			store_key  TEXT PRIMARY KEY,
			body       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, capacity: capacity}, nil
}

func (s *Store) Name() string {
	return "sqlite"
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE store_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if s.capacity > 0 {
		var used, previous int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(LENGTH(body)), 0),
			       COALESCE(SUM(CASE WHEN store_key = ? THEN LENGTH(body) ELSE 0 END), 0)
			FROM documents
		`, key).Scan(&used, &previous); err != nil {
			return err
		}
		if err := store.CheckQuota(key, s.capacity, used, previous, payload); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (store_key, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (store_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, key, payload, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}
