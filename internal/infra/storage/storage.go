// internal/infra/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrCorrupt       = errors.New("stored document is corrupt")
)

// Documents is a durable key-value store of JSON documents.
type Documents interface {
	Get(ctx context.Context, key string) (body []byte, ok bool, err error)
	Put(ctx context.Context, key string, body []byte) error
	Close() error
}

// Config selects and configures a Documents backend.
//
// Driver values:
//   - "file": one <Dir>/<key>.json per key (default)
//   - "postgres": reminder_documents table, DSN required
//   - "sqlite": reminder_documents table in the SQLitePath file
type Config struct {
	Driver     string
	Dir        string
	DSN        string
	SQLitePath string
}

// Open initializes the configured backend.
func Open(ctx context.Context, cfg Config, log *logrus.Entry) (Documents, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("driver", driver)

	switch driver {
	case "", "file":
		return OpenFile(cfg.Dir)
	case "postgres", "postgresql":
		db, err := NewPostgresConnection(cfg.DSN)
		if err != nil {
			return nil, err
		}
		docs, err := NewPostgresDocuments(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Postgres document store ready")
		return docs, nil
	case "sqlite", "sqlite3":
		docs, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("SQLite document store ready")
		return docs, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
