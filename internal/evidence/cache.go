// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// Cache is the append-only SQLite store of evidence lookups, keyed by
// tag. A NULL independent_count records a lookup that failed after all
// retries; it is distinct from a stored zero. First write per tag
// wins, so a tag is never re-queried across runs sharing a cache.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenCache opens or creates the evidence cache at path, creating the
// parent directory and schema as needed.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening evidence cache: %w", err)
	}

	c := &Cache{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) createSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS evidence (
		tag TEXT PRIMARY KEY,
		independent_count INTEGER,
		query_timestamp TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Get returns the cached record for tag and whether one exists.
func (c *Cache) Get(ctx context.Context, tag string) (types.EvidenceRecord, bool, error) {
	var count sql.NullInt64
	var ts string
	err := c.db.QueryRowContext(ctx,
		`SELECT independent_count, query_timestamp FROM evidence WHERE tag = ?`, tag,
	).Scan(&count, &ts)
	if err == sql.ErrNoRows {
		return types.EvidenceRecord{}, false, nil
	}
	if err != nil {
		return types.EvidenceRecord{}, false, fmt.Errorf("reading cache entry %s: %w", tag, err)
	}

	rec := types.EvidenceRecord{Tag: tag}
	if count.Valid {
		n := count.Int64
		rec.IndependentCount = &n
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
		rec.QueryTimestamp = t
	}
	return rec, true, nil
}

// Put stores a record unless the tag already has one. Writes are
// serialized: no two workers can store the same tag's entry twice.
func (c *Cache) Put(ctx context.Context, rec types.EvidenceRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var count any
	if rec.IndependentCount != nil {
		count = *rec.IndependentCount
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO evidence (tag, independent_count, query_timestamp) VALUES (?, ?, ?)`,
		rec.Tag, count, rec.QueryTimestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", rec.Tag, err)
	}
	return nil
}

// All returns every cached record sorted by tag.
func (c *Cache) All(ctx context.Context) ([]types.EvidenceRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT tag, independent_count, query_timestamp FROM evidence ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	defer rows.Close()

	var records []types.EvidenceRecord
	for rows.Next() {
		var tag, ts string
		var count sql.NullInt64
		if err := rows.Scan(&tag, &count, &ts); err != nil {
			return nil, fmt.Errorf("scanning cache row: %w", err)
		}
		rec := types.EvidenceRecord{Tag: tag}
		if count.Valid {
			n := count.Int64
			rec.IndependentCount = &n
		}
		if t, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
			rec.QueryTimestamp = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
