// internal/infra/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS reminder_documents (
	key        TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// NewPostgresConnection opens a PostgreSQL connection pool and pings it.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	if dataSourceName == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

type PostgresDocuments struct {
	db *sql.DB
}

// NewPostgresDocuments creates the documents table if needed.
func NewPostgresDocuments(ctx context.Context, db *sql.DB) (*PostgresDocuments, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("error creating reminder_documents table: %w", err)
	}
	return &PostgresDocuments{db: db}, nil
}

func (r *PostgresDocuments) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT body FROM reminder_documents WHERE key = $1`, key).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error getting document %s: %w", key, err)
	}
	return body, true, nil
}

func (r *PostgresDocuments) Put(ctx context.Context, key string, body []byte) error {
	query := `INSERT INTO reminder_documents (key, body, updated_at)
               VALUES ($1, $2::jsonb, NOW())
               ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, string(body)); err != nil {
		return fmt.Errorf("error saving document %s: %w", key, err)
	}
	return nil
}

func (r *PostgresDocuments) Close() error {
	return r.db.Close()
}
