package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"rlm/internal/citation"
	"rlm/internal/command"
	"rlm/internal/explore"
	"rlm/internal/llmclient"
	"rlm/internal/logging"
	"rlm/internal/store"
	"rlm/internal/validate"
)

// Query decomposes a question, fans it out across one or more Exploration
// Loops, synthesizes their findings, validates the result, and persists a
// Q/A record before returning.
func Query(ctx context.Context, st *store.Store, llm *llmclient.Client, p Params) (*Response, error) {
	docs, err := st.ListByLabel(ctx, p.Topic)
	if err != nil {
		return nil, fmt.Errorf("list topic documents: %w", err)
	}
	if len(docs) == 0 {
		return &Response{
			Answer:     fmt.Sprintf("No documents found for topic %q.", p.Topic),
			Iterations: 0,
			Sources:    nil,
			Evidence:   nil,
			CitedURLs:  nil,
		}, nil
	}

	maxSubs := p.ParallelLoops
	if maxSubs < 1 {
		maxSubs = 1
	}

	decompReply, err := llm.ChatMain(ctx, []llmclient.Message{
		{Role: "user", Content: decompositionDirective(docs, maxSubs, p.Question)},
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition call: %w", err)
	}
	subQuestions := parseSubQuestions(decompReply, maxSubs)

	var resp *Response
	if len(subQuestions) == 0 {
		resp, err = runAtomic(ctx, st, llm, docs, p)
	} else {
		resp, err = runDecomposed(ctx, st, llm, docs, p, subQuestions)
	}
	if err != nil {
		return nil, err
	}

	docIDs := make([]string, len(docs))
	for i, d := range docs {
		docIDs[i] = d.ID
	}
	persistQA(ctx, st, p.Topic, p.Question, resp.Answer, resp.CitedURLs, docIDs, resp.Evidence, resp.Iterations)

	return resp, nil
}

// parseSubQuestions returns nil (the atomic signal) when decompReply
// contains the ATOMIC token; otherwise it collects one sub-question per
// SUB(...) line, capped at maxSubs.
func parseSubQuestions(decompReply string, maxSubs int) []string {
	if strings.Contains(decompReply, "ATOMIC") {
		return nil
	}

	var subs []string
	for _, line := range strings.Split(decompReply, "\n") {
		if body, ok := command.ExtractParenMarker(line, "SUB"); ok {
			subs = append(subs, body)
			if len(subs) >= maxSubs {
				break
			}
		}
	}
	return subs
}

func uniqueSources(docs []store.DocumentMeta) []string {
	seen := make(map[string]struct{}, len(docs))
	var sources []string
	for _, d := range docs {
		if _, ok := seen[d.Source]; ok {
			continue
		}
		seen[d.Source] = struct{}{}
		sources = append(sources, d.Source)
	}
	return sources
}

func runAtomic(ctx context.Context, st *store.Store, llm *llmclient.Client, docs []store.DocumentMeta, p Params) (*Response, error) {
	result, err := explore.Run(ctx, st, llm, explore.Params{
		TopicDocs:         docs,
		Topic:             p.Topic,
		Question:          p.Question,
		MaxIterations:     p.MaxIterations,
		MinCodeExecutions: p.MinCodeExecutions,
		MinAnswerLen:      p.MinAnswerLen,
		Strategy:          explore.Broad,
	})
	if err != nil {
		return nil, fmt.Errorf("atomic exploration loop: %w", err)
	}

	return &Response{
		Answer:     result.Answer,
		Iterations: result.Iterations,
		Sources:    uniqueSources(docs),
		Evidence:   result.Evidence,
		CitedURLs:  result.CitedURLs,
	}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

func runDecomposed(ctx context.Context, st *store.Store, llm *llmclient.Client, docs []store.DocumentMeta, p Params, subQuestions []string) (*Response, error) {
	n := len(subQuestions)
	perLoopIters := ceilDiv(p.MaxIterations, n)
	subMinAnswer := p.MinAnswerLen / 2
	if subMinAnswer < 50 {
		subMinAnswer = 50
	}
	strategies := [2]explore.Strategy{explore.Broad, explore.Deep}

	results := make([]*explore.Result, n)
	eg, egCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var lastErr error

	for i, subQ := range subQuestions {
		i, subQ := i, subQ
		eg.Go(func() error {
			result, err := explore.Run(egCtx, st, llm, explore.Params{
				TopicDocs:         docs,
				Topic:             p.Topic,
				Question:          subQ,
				MaxIterations:     perLoopIters,
				MinCodeExecutions: p.MinCodeExecutions,
				MinAnswerLen:      subMinAnswer,
				Strategy:          strategies[i%2],
				OriginalQuestion:  p.Question,
			})
			if err != nil {
				logging.OrchestratorWarn("sub-loop %d (%q) failed: %v", i, subQ, err)
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = eg.Wait()

	succeeded := make([]*explore.Result, 0, n)
	for _, r := range results {
		if r != nil {
			succeeded = append(succeeded, r)
		}
	}
	if len(succeeded) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("all sub-loops failed: %w", lastErr)
		}
		return nil, fmt.Errorf("all sub-loops failed")
	}

	return synthesize(ctx, llm, p.Question, docs, succeeded)
}

const maxEvidencePerSubResult = 3
const subResultEvidenceTruncate = 1500

func buildFindingsDocument(results []*explore.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "--- Sub-investigation %d: %s ---\n%s\n", i+1, r.SubQuestion, r.Answer)
		take := r.Evidence
		if len(take) > maxEvidencePerSubResult {
			take = take[:maxEvidencePerSubResult]
		}
		for j, e := range take {
			trunc := e
			if len(trunc) > subResultEvidenceTruncate {
				trunc = trunc[:subResultEvidenceTruncate]
			}
			fmt.Fprintf(&b, "\n[Evidence %d.%d]\n%s\n", i+1, j+1, trunc)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func dedupByPrefix(items []string, prefixLen int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		key := it
		if len(key) > prefixLen {
			key = key[:prefixLen]
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func dedupExact(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func synthesize(ctx context.Context, llm *llmclient.Client, originalQuestion string, docs []store.DocumentMeta, results []*explore.Result) (*Response, error) {
	findings := buildFindingsDocument(results)

	reply, err := llm.ChatMain(ctx, []llmclient.Message{
		{Role: "user", Content: synthesisDirective(originalQuestion, findings)},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	var answer string
	if cmd := command.Parse(reply); cmd.Kind == command.KindFinal {
		answer = cmd.Text
	} else {
		answer = reply
	}

	var allEvidence []string
	var allURLs []string
	maxIterations := 0
	for _, r := range results {
		allEvidence = append(allEvidence, r.Evidence...)
		allURLs = append(allURLs, r.CitedURLs...)
		if r.Iterations > maxIterations {
			maxIterations = r.Iterations
		}
	}

	answer, err = validate.Validate(ctx, llm, answer, allEvidence, originalQuestion)
	if err != nil {
		return nil, fmt.Errorf("validate synthesized answer: %w", err)
	}

	allURLs = append(allURLs, citation.ExtractMarkdownLinks(answer)...)

	return &Response{
		Answer:     answer,
		Iterations: maxIterations,
		Sources:    uniqueSources(docs),
		Evidence:   dedupByPrefix(allEvidence, 200),
		CitedURLs:  dedupExact(allURLs),
	}, nil
}
