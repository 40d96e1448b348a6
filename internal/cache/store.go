package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is a SQLite-backed response cache. It is safe for concurrent
// use; races on the same key are last-write-wins, which is acceptable
// because entries are pure functions of their key.
type Store struct {
	db  *sql.DB
	ttl time.Duration

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewStore creates a response cache on db. A non-positive ttl selects
// DefaultTTL.
func NewStore(db *sql.DB, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Store{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		output TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_responses_created ON responses(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the entry for key, or (nil, nil) on a miss. Entries older
// than the TTL are misses.
func (s *Store) Get(key string) (*Entry, error) {
	cutoff := s.now().Add(-s.ttl)

	row := s.db.QueryRow(`
		SELECT key, output, created_at FROM responses
		WHERE key = ? AND created_at > ?
	`, key, cutoff)

	var e Entry
	if err := row.Scan(&e.Key, &e.Output, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return &e, nil
}

// Put stores output under key, replacing any prior entry. Expired rows
// are evicted in the same call so the cache does not grow unbounded.
func (s *Store) Put(key, output string) error {
	now := s.now()

	_, err := s.db.Exec(`
		INSERT INTO responses (key, output, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			output = excluded.output,
			created_at = excluded.created_at
	`, key, output, now)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	_, err = s.db.Exec(`DELETE FROM responses WHERE created_at <= ?`, now.Add(-s.ttl))
	if err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

// Purge removes all expired entries and returns how many were deleted.
func (s *Store) Purge() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM responses WHERE created_at <= ?`, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Stats returns cache statistics.
func (s *Store) Stats() map[string]any {
	var total, fresh int
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM responses`).Scan(&total)
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM responses WHERE created_at > ?`,
		s.now().Add(-s.ttl)).Scan(&fresh)

	return map[string]any{
		"entries": total,
		"fresh":   fresh,
		"ttl_sec": int(s.ttl.Seconds()),
		"storage": "sqlite",
	}
}
