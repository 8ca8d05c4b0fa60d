// Package cache keeps the last good backend payloads in a local SQLite
// database so the browser can start offline or ride out a backend outage.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/model"
)

// DefaultFile is the cache database name inside the state directory.
const DefaultFile = "cache.db"

// ErrMiss is returned by Get when no payload is stored under the key.
var ErrMiss = errors.New("cache miss")

// Entry is one cached payload.
type Entry struct {
	Key       string
	Body      []byte
	FetchedAt time.Time
}

// Store is a key/value payload cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// HierarchyKey is the cache key of a hierarchy fetch.
func HierarchyKey(dim model.Dimension, nodeID string) string {
	if nodeID == "" {
		return "hierarchy/" + string(dim)
	}
	return "hierarchy/" + string(dim) + "/" + nodeID
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS payloads (
			key        TEXT PRIMARY KEY,
			body       BLOB NOT NULL,
			fetched_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_payloads_fetched ON payloads(fetched_at);
	`)
	return err
}

// Put stores body under key, replacing any previous payload.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	return s.PutAll(ctx, []Entry{{Key: key, Body: body, FetchedAt: time.Now()}})
}

// PutAll stores several payloads in one transaction.
func (s *Store) PutAll(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO payloads (key, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		at := e.FetchedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, e.Key, e.Body, at.UnixNano()); err != nil {
			return fmt.Errorf("caching %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}

// Get returns the payload stored under key, or ErrMiss.
func (s *Store) Get(ctx context.Context, key string) (Entry, error) {
	var e Entry
	var at int64
	err := s.db.QueryRowContext(ctx,
		`SELECT key, body, fetched_at FROM payloads WHERE key = ?`, key,
	).Scan(&e.Key, &e.Body, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, err
	}
	e.FetchedAt = time.Unix(0, at)
	return e, nil
}

// Keys lists every cached key in order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM payloads ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Prune deletes payloads fetched before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payloads WHERE fetched_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err == nil && n > 0 {
		debug.Log("cache: pruned %d payloads older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, err
}
