// Package store implements the content-addressed document store: a
// commit-log key-value snapshot engine with prefix scans, a lexical
// search path, and section-header extraction for per-file delimited
// corpora.
package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"rlm/internal/logging"
	"rlm/internal/rlmerr"
)

const (
	contentPrefix = "doc/content/"
	metaPrefix    = "doc/meta/"
	labelPrefix   = "doc/label/"
	qaPrefix      = "qa/"
)

// Store is the document store. It is safe for concurrent use; the content
// cache is read-mostly and guarded by an RWMutex, matching a store shared
// across many Exploration Loop sessions.
type Store struct {
	kv *kvEngine

	cacheMu sync.RWMutex
	cache   map[string][]byte // doc id -> content, unbounded for process lifetime
}

// Open opens (creating if necessary) the SQLite-backed store at path.
func Open(path string) (*Store, error) {
	kv, err := openKVEngine(path)
	if err != nil {
		return nil, err
	}
	return &Store{kv: kv, cache: make(map[string][]byte)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.kv.close()
}

func contentKey(id string) string { return contentPrefix + id }
func metaKey(id string) string    { return metaPrefix + id }
func labelKey(label, id string) string {
	return fmt.Sprintf("%s%s:%s", labelPrefix, label, id)
}
func qaKey(topic, id string) string { return fmt.Sprintf("%s%s/%s", qaPrefix, topic, id) }

// hashID computes the lowercase hex BLAKE3 digest of bytes, the document id.
func hashID(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Store writes content, meta, and the label index entry in one atomic
// commit, returning the content-addressed id. Storing identical bytes
// under identical meta is idempotent.
func (s *Store) Store(ctx context.Context, content []byte, name, source, label, urlContext string) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store")
	defer timer.Stop()

	id := hashID(content)
	meta := DocumentMeta{
		ID:         id,
		Name:       name,
		Source:     source,
		Label:      label,
		Size:       len(content),
		IngestedAt: time.Now().Unix(),
		URLContext: urlContext,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal meta: %w", err)
	}

	writes := map[string][]byte{
		contentKey(id):        content,
		metaKey(id):           metaBytes,
		labelKey(label, id):   {},
	}
	if err := s.kv.putMany(ctx, writes); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}

	s.cacheMu.Lock()
	s.cache[id] = content
	s.cacheMu.Unlock()

	logging.Store("stored document id=%s name=%s label=%s size=%d", id, name, label, len(content))
	return id, nil
}

// GetContent returns the raw bytes for id, populating the in-memory cache
// on a miss.
func (s *Store) GetContent(ctx context.Context, id string) ([]byte, error) {
	s.cacheMu.RLock()
	if c, ok := s.cache[id]; ok {
		s.cacheMu.RUnlock()
		return c, nil
	}
	s.cacheMu.RUnlock()

	raw, ok, err := s.kv.get(ctx, contentKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, rlmerr.ErrNotFound)
	}

	s.cacheMu.Lock()
	s.cache[id] = raw
	s.cacheMu.Unlock()
	return raw, nil
}

// GetMeta returns the DocumentMeta for id.
func (s *Store) GetMeta(ctx context.Context, id string) (DocumentMeta, error) {
	raw, ok, err := s.kv.get(ctx, metaKey(id))
	if err != nil {
		return DocumentMeta{}, err
	}
	if !ok {
		return DocumentMeta{}, fmt.Errorf("document %s: %w", id, rlmerr.ErrNotFound)
	}
	var meta DocumentMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return DocumentMeta{}, fmt.Errorf("unmarshal meta %s: %w", id, err)
	}
	return meta, nil
}

// List prefix-scans all document meta, sorted by IngestedAt descending,
// skipping the first offset entries, then truncated to limit.
func (s *Store) List(ctx context.Context, limit, offset int) ([]DocumentMeta, error) {
	entries, err := s.kv.scanPrefix(ctx, metaPrefix)
	if err != nil {
		return nil, err
	}
	metas := decodeMetaRows(entries)
	sort.Slice(metas, func(i, j int) bool { return metas[i].IngestedAt > metas[j].IngestedAt })

	if offset > 0 && offset < len(metas) {
		metas = metas[offset:]
	} else if offset >= len(metas) {
		metas = nil
	}
	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}
	return metas, nil
}

// ListByLabel prefix-scans the label index for label and resolves each
// member's meta; resolution failures are logged and skipped.
func (s *Store) ListByLabel(ctx context.Context, label string) ([]DocumentMeta, error) {
	prefix := labelPrefix + label + ":"
	entries, err := s.kv.scanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	metas := make([]DocumentMeta, 0, len(entries))
	for _, ent := range entries {
		id, ok := stripPrefix(ent.Key, prefix)
		if !ok {
			continue
		}
		meta, err := s.GetMeta(ctx, id)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("label index entry %q: meta resolution failed: %v", ent.Key, err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Delete removes a document's content, meta, and label entry atomically.
func (s *Store) Delete(ctx context.Context, id string) error {
	meta, err := s.GetMeta(ctx, id)
	if err != nil {
		return err
	}
	if err := s.kv.deleteKeys(ctx, contentKey(id), metaKey(id), labelKey(meta.Label, id)); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	s.cacheMu.Lock()
	delete(s.cache, id)
	s.cacheMu.Unlock()
	return nil
}

// Labels prefix-scans the label index and returns sorted unique labels.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	entries, err := s.kv.scanPrefix(ctx, labelPrefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, ent := range entries {
		rest, ok := stripPrefix(ent.Key, labelPrefix)
		if !ok {
			continue
		}
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			seen[rest[:i]] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels, nil
}

// GetSection returns the substring of a document's content by character
// indices, clamping offset to [0, len] and length to
// min(length, 100000, len-offset).
func (s *Store) GetSection(ctx context.Context, id string, charOffset, charLength int) (string, error) {
	raw, err := s.GetContent(ctx, id)
	if err != nil {
		return "", err
	}
	runes := []rune(string(raw))
	n := len(runes)

	offset := charOffset
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	maxLen := n - offset
	length := charLength
	if length > 100_000 {
		length = 100_000
	}
	if length > maxLen {
		length = maxLen
	}
	if length < 0 {
		length = 0
	}
	return string(runes[offset : offset+length]), nil
}

func decodeMetaRows(entries []kvEntry) []DocumentMeta {
	metas := make([]DocumentMeta, 0, len(entries))
	for _, ent := range entries {
		var meta DocumentMeta
		if err := json.Unmarshal(ent.Value, &meta); err != nil {
			logging.Get(logging.CategoryStore).Warn("meta row %q: unmarshal failed: %v", ent.Key, err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas
}
