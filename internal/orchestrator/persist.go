package orchestrator

import (
	"context"
	"time"

	"rlm/internal/logging"
	"rlm/internal/store"
)

// persistQA writes a Q/A record to the store before returning and
// swallows any failure after logging it; callers wait for the write but
// never see or propagate its error.
func persistQA(ctx context.Context, st *store.Store, topic, question, answer string, citedURLs, docIDs, evidence []string, iterations int) {
	defer func() {
		if r := recover(); r != nil {
			logging.OrchestratorError("panic persisting qa record for %q: %v", question, r)
		}
	}()

	record := store.QaRecord{
		ID:         store.HashQAID(topic, question),
		Topic:      topic,
		Question:   question,
		Answer:     answer,
		CitedURLs:  citedURLs,
		DocIDs:     docIDs,
		Evidence:   evidence,
		Iterations: iterations,
		Timestamp:  time.Now().Unix(),
	}

	if err := st.StoreQA(ctx, record); err != nil {
		logging.OrchestratorError("failed to persist qa record for %q: %v", question, err)
	}
}
