package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS reminder_documents (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
)`

type SQLiteDocuments struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteDocuments, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating reminder_documents table: %w", err)
	}
	return &SQLiteDocuments{db: db}, nil
}

func (s *SQLiteDocuments) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reminder_documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error getting document %s: %w", key, err)
	}
	return []byte(body), true, nil
}

func (s *SQLiteDocuments) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminder_documents(key, body) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		key, string(body),
	)
	if err != nil {
		return fmt.Errorf("error saving document %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteDocuments) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
