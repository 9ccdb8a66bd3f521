package explore

import (
	"context"
	"fmt"
	"strings"

	"rlm/internal/citation"
	"rlm/internal/command"
	"rlm/internal/interpreter"
	"rlm/internal/llmclient"
	"rlm/internal/logging"
	"rlm/internal/store"
	"rlm/internal/validate"
)

const promptTruncate = 4000
const evidenceMinLen = 50

func looksLikeError(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "Error:") || strings.Contains(s, "\nError:")
}

func truncateForPrompt(s string) string {
	if len(s) <= promptTruncate {
		return s
	}
	return s[:promptTruncate] + "... [truncated]"
}

// Run drives one Exploration Loop to completion: it spawns its own
// sandboxed session, executes the strategy's bootstrap script, then
// iterates model turns against the session until an answer is accepted,
// rejected by a gate and retried, or the iteration budget is exhausted
// and a synthesis fallback takes over.
func Run(ctx context.Context, st *store.Store, llm *llmclient.Client, p Params) (*Result, error) {
	sess, err := interpreter.Spawn(st, llm, p.TopicDocs)
	if err != nil {
		return nil, fmt.Errorf("spawn interpreter session: %w", err)
	}
	defer sess.Close()

	bootstrapCode := buildBootstrap(p.TopicDocs, p.Question, p.Strategy)
	bootstrapOutput, err := sess.Execute(ctx, bootstrapCode)
	if err != nil {
		return nil, fmt.Errorf("execute bootstrap: %w", err)
	}
	logging.ExploreDebug("bootstrap (%s) produced %d chars of output", p.Strategy, len(bootstrapOutput))

	var evidence []string
	if len(bootstrapOutput) > evidenceMinLen && !looksLikeError(bootstrapOutput) {
		evidence = append(evidence, bootstrapOutput)
	}

	messages := []llmclient.Message{
		{Role: "system", Content: buildSystemPrompt(p)},
		{Role: "assistant", Content: "```repl\n" + bootstrapCode + "\n```"},
		{Role: "user", Content: "[REPL Output]\n" + truncateForPrompt(bootstrapOutput)},
		{Role: "user", Content: p.Question},
	}

	codeExecutions := 0
	for iter := 0; iter < p.MaxIterations; iter++ {
		reply, err := llm.ChatMain(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}

		cmd := command.Parse(reply)
		switch cmd.Kind {
		case command.KindRunCode:
			messages = append(messages, llmclient.Message{Role: "assistant", Content: reply})
			output, err := sess.Execute(ctx, cmd.Text)
			if err != nil {
				return nil, fmt.Errorf("execute code: %w", err)
			}
			codeExecutions++
			messages = append(messages, llmclient.Message{
				Role:    "user",
				Content: "[REPL Output]\n" + truncateForPrompt(output),
			})
			if len(output) > evidenceMinLen && !looksLikeError(output) {
				evidence = append(evidence, output)
			}

		case command.KindFinal:
			if codeExecutions < p.MinCodeExecutions {
				messages = append(messages,
					llmclient.Message{Role: "assistant", Content: reply},
					llmclient.Message{Role: "user", Content: fmt.Sprintf(
						"You've only run %d code block(s) so far; investigate more before answering "+
							"(minimum %d). Continue with another ```repl``` block.",
						codeExecutions, p.MinCodeExecutions)},
				)
				continue
			}
			if len(cmd.Text) < p.MinAnswerLen {
				messages = append(messages,
					llmclient.Message{Role: "assistant", Content: reply},
					llmclient.Message{Role: "user", Content: fmt.Sprintf(
						"Your answer is too brief (%d chars, need at least %d). Investigate further and "+
							"provide a fuller answer with supporting quotes.",
						len(cmd.Text), p.MinAnswerLen)},
				)
				continue
			}
			return acceptedResult(sess, p, cmd.Text, evidence, iter+1), nil

		case command.KindInvalid:
			messages = append(messages,
				llmclient.Message{Role: "assistant", Content: reply},
				llmclient.Message{Role: "user", Content: "I couldn't parse that. Wrap code in a ```repl``` " +
					"block, or give your answer as FINAL(your answer here)."},
			)
		}
	}

	logging.ExploreWarn("loop for %q exhausted %d iterations without acceptance", p.Question, p.MaxIterations)
	answer, err := synthesizeFromEvidence(ctx, llm, evidence, p.Question)
	if err != nil {
		return nil, fmt.Errorf("synthesize from evidence: %w", err)
	}
	answer, err = validate.Validate(ctx, llm, answer, evidence, p.Question)
	if err != nil {
		return nil, fmt.Errorf("validate synthesized answer: %w", err)
	}

	return &Result{
		Answer:      answer,
		Iterations:  p.MaxIterations,
		Evidence:    evidence,
		CitedURLs:   citation.ExtractMarkdownLinks(answer),
		WasFinal:    false,
		SubQuestion: p.Question,
	}, nil
}

func acceptedResult(sess *interpreter.Session, p Params, answer string, evidence []string, iterations int) *Result {
	citedURLs := citation.ExtractMarkdownLinks(answer)

	records := sess.DrainAccess()
	accessed := make([]citation.AccessedFile, 0, len(records))
	for _, rec := range records {
		if rec.Filename == "" {
			continue
		}
		accessed = append(accessed, citation.AccessedFile{DocID: rec.DocID, Filename: rec.Filename})
	}
	citedURLs = append(citedURLs, citation.ResolveCitations(accessed, p.TopicDocs, citedURLs)...)

	return &Result{
		Answer:      answer,
		Iterations:  iterations,
		Evidence:    evidence,
		CitedURLs:   citedURLs,
		WasFinal:    true,
		SubQuestion: p.Question,
	}
}
