package explore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rlm/internal/llmclient"
	"rlm/internal/store"
)

// scriptedLLM serves canned chat-completions responses in order, one per
// request, regardless of which model (main or sub) is addressed.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	i         int
}

func newScriptedServer(t *testing.T, responses []string) *httptest.Server {
	t.Helper()
	s := &scriptedLLM{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var content string
		if s.i < len(s.responses) {
			content = s.responses[s.i]
			s.i++
		}
		s.mu.Unlock()

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRun_AcceptsFinalAfterMeetingGates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newTestStore(t)
	id, err := st.Store(ctx, []byte("=== a.md ===\nfoo bar baz\n=== b.md ===\nqux\n"), "doc.md", "test", "topic", "")
	require.NoError(t, err)
	meta, err := st.GetMeta(ctx, id)
	require.NoError(t, err)

	srv := newScriptedServer(t, []string{
		"```repl\nfmt.Println(\"looking around\")\n```",
		"```repl\nres, _ := searchDocument(documents[0].DocID, \"foo\", 5)\nfmt.Println(len(res))\n```",
		"FINAL(Foo is bar, as shown by the excerpt containing \"foo bar baz\" from a.md, which is " +
			"clearly documented in the source material and directly answers the question asked here.)",
	})
	llm := llmclient.New(llmclient.Config{BaseURL: srv.URL, Model: "main-model"})

	result, err := Run(ctx, st, llm, Params{
		TopicDocs:         []store.DocumentMeta{meta},
		Topic:             "topic",
		Question:          "what is foo",
		MaxIterations:     5,
		MinCodeExecutions: 2,
		MinAnswerLen:      50,
		Strategy:          Broad,
	})
	require.NoError(t, err)
	require.True(t, result.WasFinal)
	require.GreaterOrEqual(t, result.Iterations, 1)
	require.NotEmpty(t, result.Evidence)
	require.Contains(t, result.Answer, "Foo is bar")
}

func TestRun_GateARejectsInsufficientCodeExecutions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newTestStore(t)
	id, err := st.Store(ctx, []byte("=== a.md ===\nfoo bar\n"), "doc.md", "test", "topic", "")
	require.NoError(t, err)
	meta, err := st.GetMeta(ctx, id)
	require.NoError(t, err)

	srv := newScriptedServer(t, []string{
		"FINAL(too early)",
		"```repl\nfmt.Println(\"more digging\")\n```",
		"FINAL(This is a sufficiently long final answer now that more investigation has happened here.)",
	})
	llm := llmclient.New(llmclient.Config{BaseURL: srv.URL, Model: "main-model"})

	result, err := Run(ctx, st, llm, Params{
		TopicDocs:         []store.DocumentMeta{meta},
		Topic:             "topic",
		Question:          "what is foo",
		MaxIterations:     5,
		MinCodeExecutions: 1,
		MinAnswerLen:      10,
		Strategy:          Broad,
	})
	require.NoError(t, err)
	require.True(t, result.WasFinal)
	require.Contains(t, result.Answer, "sufficiently long")
}

func TestRun_TimeoutSynthesizesFromEvidence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := newTestStore(t)
	id, err := st.Store(ctx, []byte("=== a.md ===\nfoo bar baz qux content here for evidence\n"), "doc.md", "test", "topic", "")
	require.NoError(t, err)
	meta, err := st.GetMeta(ctx, id)
	require.NoError(t, err)

	srv := newScriptedServer(t, []string{
		"I am thinking about this but not ready yet.",
		"Still considering.",
		"FINAL(Based on the evidence gathered during the timed-out investigation, here is a summary.)",
	})
	llm := llmclient.New(llmclient.Config{BaseURL: srv.URL, Model: "main-model"})

	result, err := Run(ctx, st, llm, Params{
		TopicDocs:         []store.DocumentMeta{meta},
		Topic:             "topic",
		Question:          "what is foo",
		MaxIterations:     2,
		MinCodeExecutions: 0,
		MinAnswerLen:      10,
		Strategy:          Deep,
	})
	require.NoError(t, err)
	require.False(t, result.WasFinal)
	require.NotEmpty(t, result.Answer)
}
