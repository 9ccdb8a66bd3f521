package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"rlm/internal/logging"
)

// kvEngine is a commit-log key-value snapshot engine with prefix scans,
// realized on top of a single SQLite table. Keys are opaque strings;
// values are opaque bytes. Multi-key writes commit atomically via a
// transaction so readers never observe a partial write.
type kvEngine struct {
	db *sql.DB
}

func openKVEngine(path string) (*kvEngine, error) {
	timer := logging.StartTimer(logging.CategoryStore, "openKVEngine")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv database: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer snapshot semantics

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize kv schema: %w", err)
	}

	logging.StoreDebug("kv engine opened at %s", path)
	return &kvEngine{db: db}, nil
}

func (e *kvEngine) close() error {
	return e.db.Close()
}

// put writes a single key atomically.
func (e *kvEngine) put(ctx context.Context, key string, value []byte) error {
	return e.putMany(ctx, map[string][]byte{key: value})
}

// putMany writes several keys in one atomic commit; readers either see all
// of them or none.
func (e *kvEngine) putMany(ctx context.Context, kvs map[string][]byte) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kv(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	// Deterministic ordering keeps writes reproducible for tests.
	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k, kvs[k]); err != nil {
			return fmt.Errorf("upsert key %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// get returns the value at key, and whether it was present.
func (e *kvEngine) get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := e.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get key %q: %w", key, err)
	}
	return value, true, nil
}

// deleteKeys removes the given keys atomically; missing keys are no-ops.
func (e *kvEngine) deleteKeys(ctx context.Context, keys ...string) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k); err != nil {
			return fmt.Errorf("delete key %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// kvEntry is one row returned from a prefix scan.
type kvEntry struct {
	Key   string
	Value []byte
}

// scanPrefix returns all entries whose key starts with prefix, in
// lexicographic key order. No trailing slash is appended to prefix; the
// caller's prefix must already delimit correctly (e.g. "doc/label/foo:").
func (e *kvEngine) scanPrefix(ctx context.Context, prefix string) ([]kvEntry, error) {
	// A half-open range [prefix, upperBound) over lexicographically sorted
	// TEXT keys is equivalent to a prefix scan: upperBound is prefix with
	// its last byte incremented, which sorts after every string with that
	// prefix and before anything past it.
	upper := prefixUpperBound(prefix)

	rows, err := e.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key ASC`,
		prefix, upper)
	if err != nil {
		return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var entries []kvEntry
	for rows.Next() {
		var ent kvEntry
		if err := rows.Scan(&ent.Key, &ent.Value); err != nil {
			logging.Get(logging.CategoryStore).Warn("prefix scan row error under %q: %v", prefix, err)
			continue
		}
		entries = append(entries, ent)
	}
	return entries, rows.Err()
}

// prefixUpperBound returns the smallest string that is lexicographically
// greater than every string with the given prefix.
func prefixUpperBound(prefix string) string {
	if prefix == "" {
		return string([]byte{0xff, 0xff, 0xff, 0xff})
	}
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	// All 0xff bytes: no finite upper bound shorter than prefix+0xff works
	// cleanly, so widen by one byte.
	return prefix + string([]byte{0xff})
}

// stripPrefix is a small helper used by label-index key parsing.
func stripPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
