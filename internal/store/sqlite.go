package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// modernc.org/sqlite registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// DefaultKey is the key the snapshot is stored under.
const DefaultKey = "script"

// SQLitePersistence stores the snapshot as one row of a key/value table,
// mirroring a defaults database with a single well-known key.
type SQLitePersistence struct {
	mu     sync.Mutex
	path   string
	key    string
	db     *sql.DB
	closed bool
}

// NewSQLitePersistence opens (creating if needed) the database at path.
// An empty key selects DefaultKey.
func NewSQLitePersistence(ctx context.Context, path, key string) (*SQLitePersistence, error) {
	if key == "" {
		key = DefaultKey
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// WAL allows one writer and many readers; busy_timeout avoids
	// "database is locked" when two invocations overlap.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLitePersistence{path: path, key: key, db: db}, nil
}

// Load reads the snapshot row.
func (p *SQLitePersistence) Load(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPersistenceClosed
	}

	var data []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, p.key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load key %q: %w", p.key, err)
	}
	return data, nil
}

// Save upserts the snapshot row.
func (p *SQLitePersistence) Save(ctx context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at_unixms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_unixms = excluded.updated_at_unixms`,
		p.key, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save key %q: %w", p.key, err)
	}
	return nil
}

// Stat reports the size and last update time of the snapshot row.
func (p *SQLitePersistence) Stat(ctx context.Context) (Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Info{}, ErrPersistenceClosed
	}

	var size, updated int64
	err := p.db.QueryRowContext(ctx,
		`SELECT length(value), updated_at_unixms FROM kv WHERE key = ?`, p.key).Scan(&size, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Info{}, nil
		}
		return Info{}, err
	}
	return Info{Exists: true, Size: size, ModTime: time.UnixMilli(updated)}, nil
}

// Path returns the database path.
func (p *SQLitePersistence) Path() string {
	return p.path
}

// Key returns the key the snapshot is stored under.
func (p *SQLitePersistence) Key() string {
	return p.key
}

// Close closes the database.
func (p *SQLitePersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
