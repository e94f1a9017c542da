package translate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translations (
	hash       TEXT    NOT NULL,
	source     TEXT    NOT NULL,
	target     TEXT    NOT NULL,
	translated TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (hash, source, target)
)`

// SQLiteCache keeps translations in a local SQLite file so they survive restarts.
type SQLiteCache struct {
	db   *sql.DB
	path string
}

func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	// WAL for concurrent readers
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteCache{db: db, path: path}, nil
}

func (c *SQLiteCache) Path() string { return c.path }

func (c *SQLiteCache) Get(ctx context.Context, key Key) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx,
		`SELECT translated FROM translations WHERE hash = ? AND source = ? AND target = ?`,
		key.Hash, key.Source, key.Target).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading translation: %w", err)
	}
	return v, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key Key, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO translations (hash, source, target, translated, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (hash, source, target) DO UPDATE SET
			translated = excluded.translated,
			created_at = excluded.created_at`,
		key.Hash, key.Source, key.Target, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing translation: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting translations: %w", err)
	}
	return n, nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM translations`); err != nil {
		return fmt.Errorf("clearing translations: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
