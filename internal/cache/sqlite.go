package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore is the durable cache tier, backed by SQLite with WAL
// mode. It survives process restarts and is shared by co-located
// instances, but is only eventually consistent with respect to writes
// from other instances — correctness-critical logic must not assume
// cross-instance visibility.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the cache database under dataDir
// and runs migrations.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("cache: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cache.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("cache: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("cache: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key          TEXT PRIMARY KEY,
			data         BLOB    NOT NULL,
			stored_at    INTEGER NOT NULL,
			ttl_ns       INTEGER NOT NULL,
			validated_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS cache_tags (
			key TEXT NOT NULL,
			tag TEXT NOT NULL,
			PRIMARY KEY (key, tag)
		);

		CREATE INDEX IF NOT EXISTS idx_cache_tags_tag ON cache_tags(tag);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the entry for key, deleting it when expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, bool) {
	var (
		data        []byte
		storedAt    int64
		ttlNS       int64
		validatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, stored_at, ttl_ns, validated_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&data, &storedAt, &ttlNS, &validatedAt)
	if err != nil {
		return nil, false
	}

	e := Entry{
		Data:     data,
		StoredAt: time.Unix(0, storedAt),
		TTL:      time.Duration(ttlNS),
	}
	if validatedAt != 0 {
		e.ValidatedAt = time.Unix(0, validatedAt)
	}
	if e.Expired(time.Now()) {
		_ = s.Delete(ctx, key)
		return nil, false
	}

	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM cache_tags WHERE key = ?`, key)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var tag string
			if rows.Scan(&tag) == nil {
				e.Tags = append(e.Tags, tag)
			}
		}
	}
	return &e, true
}

// Set stores an entry and its tags atomically.
func (s *SQLiteStore) Set(ctx context.Context, key string, e Entry) error {
	if e.TTL <= 0 {
		return nil
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback()

	var validatedAt int64
	if !e.ValidatedAt.IsZero() {
		validatedAt = e.ValidatedAt.UnixNano()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, stored_at, ttl_ns, validated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   data = excluded.data,
		   stored_at = excluded.stored_at,
		   ttl_ns = excluded.ttl_ns,
		   validated_at = excluded.validated_at`,
		key, e.Data, e.StoredAt.UnixNano(), int64(e.TTL), validatedAt,
	); err != nil {
		return fmt.Errorf("cache: upsert entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_tags WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: clear tags: %w", err)
	}
	for _, tag := range e.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO cache_tags (key, tag) VALUES (?, ?)`, key, tag,
		); err != nil {
			return fmt.Errorf("cache: insert tag: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes an entry and its tags. Idempotent.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: delete entry: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_tags WHERE key = ?`, key)
	return err
}

// InvalidateTags removes every entry carrying any of the given tags.
func (s *SQLiteStore) InvalidateTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := make([]any, len(tags))
	for i, t := range tags {
		args[i] = t
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key IN
		   (SELECT key FROM cache_tags WHERE tag IN (`+placeholders+`))`,
		args...,
	); err != nil {
		return fmt.Errorf("cache: invalidate entries: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_tags WHERE key IN
		   (SELECT key FROM cache_tags WHERE tag IN (`+placeholders+`))`,
		args...,
	)
	return err
}

// Len reports the number of stored entries.
func (s *SQLiteStore) Len(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

var _ Store = (*SQLiteStore)(nil)
