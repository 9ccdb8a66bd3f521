package orchestrator

import (
	"fmt"
	"strings"

	"rlm/internal/store"
)

// decompositionDirective instructs the model to emit either the literal
// token ATOMIC, or one SUB(...) line per sub-question, capped at maxSubs.
func decompositionDirective(docs []store.DocumentMeta, maxSubs int, question string) string {
	var names strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&names, "  - %s\n", d.Name)
	}

	return fmt.Sprintf(`You are planning how to investigate a question against a document corpus.

Available documents:
%s
Question: %s

If this question can be answered by a single focused investigation, reply with exactly the token:
ATOMIC

Otherwise, break it into up to %d independent sub-questions that together cover the original
question, one per line, each wrapped as:
SUB(your sub-question here)

Do not answer the question itself. Reply with ATOMIC or SUB(...) lines only.`,
		names.String(), question, maxSubs)
}

// synthesisDirective instructs the model to produce one unified FINAL(...)
// answer from a findings document built out of sub-investigation results.
func synthesisDirective(originalQuestion, findings string) string {
	return fmt.Sprintf(`You previously split a question into independent sub-investigations. Each one
reported back with its own findings below. Combine them into a single, coherent answer to
the original question, preserving concrete details and direct quotes from the findings.
If the sub-investigations conflict or leave gaps, say so plainly rather than papering over it.

Original question: %s

Findings:

%s

Reply with your combined answer wrapped as FINAL(your answer here).`, originalQuestion, findings)
}
