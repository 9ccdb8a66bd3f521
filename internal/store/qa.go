package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// StoreQA persists a QaRecord under qa/{topic}/{id}. Intended to be called
// fire-and-forget by callers that log and swallow failures themselves.
func (s *Store) StoreQA(ctx context.Context, record QaRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal qa record: %w", err)
	}
	key := qaKey(record.Topic, record.ID)
	if err := s.kv.put(ctx, key, raw); err != nil {
		return fmt.Errorf("store qa record: %w", err)
	}
	return nil
}

// ListQA prefix-scans qa/{topic}/ and returns records newest-first,
// truncated to limit.
func (s *Store) ListQA(ctx context.Context, topic string, limit int) ([]QaRecord, error) {
	prefix := qaPrefix + topic + "/"
	entries, err := s.kv.scanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	records := make([]QaRecord, 0, len(entries))
	for _, ent := range entries {
		var rec QaRecord
		if err := json.Unmarshal(ent.Value, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp > records[j].Timestamp })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// HashQAID computes the deterministic id for a (topic, question) pair so
// re-asking the same question overwrites the prior record.
func HashQAID(topic, question string) string {
	return hashID([]byte(topic + question))
}
