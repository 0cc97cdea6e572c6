package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder syntax for SQLBlob queries.
type Dialect string

// Supported SQL dialects. The values double as database/sql driver names.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLBlob stores blobs in a single key/value table.
type SQLBlob struct {
	db      *sql.DB
	get     string
	upsert  string
	ownedDB bool
}

// OpenSQLBlob opens a database with the dialect's driver and migrates it.
func OpenSQLBlob(ctx context.Context, dialect Dialect, dsn string) (*SQLBlob, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s backend: dsn: %w", dialect, ErrMissingOption)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// Serialise writers; sqlite rejects concurrent writes with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	b, err := NewSQLBlob(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	b.ownedDB = true
	return b, nil
}

// NewSQLBlob wraps an existing handle. The caller keeps ownership of db.
func NewSQLBlob(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLBlob, error) {
	b := &SQLBlob{db: db}
	switch dialect {
	case DialectSQLite:
		b.get = `SELECT data FROM soe_blobs WHERE blob_key = ?`
		b.upsert = `INSERT INTO soe_blobs (blob_key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (blob_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	case DialectPostgres:
		b.get = `SELECT data FROM soe_blobs WHERE blob_key = $1`
		b.upsert = `INSERT INTO soe_blobs (blob_key, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (blob_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	default:
		return nil, fmt.Errorf("sql dialect %q: %w", dialect, ErrUnknownDriver)
	}
	if err := b.migrate(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *SQLBlob) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS soe_blobs (
		blob_key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate soe_blobs: %w", err)
	}
	return nil
}

func (b *SQLBlob) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := b.db.QueryRowContext(ctx, b.get, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select blob: %w", err)
	}
	return []byte(data), nil
}

func (b *SQLBlob) Put(ctx context.Context, key string, data []byte) error {
	updated := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := b.db.ExecContext(ctx, b.upsert, key, string(data), updated); err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}
	return nil
}

func (b *SQLBlob) Close() error {
	if b.ownedDB {
		return b.db.Close()
	}
	return nil
}
