package explore

import (
	"context"
	"fmt"
	"strings"

	"rlm/internal/command"
	"rlm/internal/llmclient"
)

const synthesizeNoEvidencePrompt = "Summarize what you found while investigating this question, " +
	"even if inconclusive, and wrap your answer in FINAL(...).\n\nQuestion: %s"

const evidenceTruncate = 2000

// synthesizeFromEvidence runs when an Exploration Loop exhausts its
// iteration budget without an accepted Final. With no evidence it asks
// the model for an honest best-effort summary; otherwise it builds a
// concatenated evidence block (each item capped at 2000 chars) and
// instructs the model to answer strictly from it. A FINAL(...) wrap is
// stripped if present either way.
func synthesizeFromEvidence(ctx context.Context, llm *llmclient.Client, evidence []string, question string) (string, error) {
	var prompt string
	if len(evidence) == 0 {
		prompt = fmt.Sprintf(synthesizeNoEvidencePrompt, question)
	} else {
		var b strings.Builder
		for i, e := range evidence {
			trunc := e
			if len(trunc) > evidenceTruncate {
				trunc = trunc[:evidenceTruncate]
			}
			fmt.Fprintf(&b, "--- Evidence %d ---\n%s\n\n", i+1, trunc)
		}
		prompt = fmt.Sprintf(
			"You ran out of iterations before reaching a conclusion. Answer the question below strictly "+
				"from the evidence collected so far; do not invent anything beyond it. Wrap your answer in "+
				"FINAL(...).\n\nEvidence:\n\n%s\nQuestion: %s", b.String(), question)
	}

	reply, err := llm.ChatMain(ctx, []llmclient.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	if cmd := command.Parse(reply); cmd.Kind == command.KindFinal {
		return cmd.Text, nil
	}
	return reply, nil
}
