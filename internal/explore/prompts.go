package explore

import (
	"fmt"
	"strings"

	"rlm/internal/store"
)

// agentDirective is the system prompt's fixed preamble: condensed from
// the original engine's multi-phase reasoning-loop prompt down to the
// primitives, the investigate-then-quote discipline, and the FINAL(...)
// contract, now describing the Go-source REPL primitives this port
// actually exposes.
const agentDirective = `You are a research agent with a live, stateful Go REPL connected to a document database. The REPL is real and working — you saw its output above, and every variable you declare survives across code blocks.

Core primitives (already in scope, no imports needed):
  documents                                 - []DocSummary: DocID, Name, Source, Size
  listFiles(docID)                          - []FileRef: Offset, Name (the table of contents)
  readFile(docID, filename)                 - full section text (fuzzy filename match)
  grep(docID, pattern, contextLines, max)   - substring search with numbered context lines
  searchDocument(docID, query, max)         - keyword excerpts ranked by overlap
  getSection(docID, offset, length)         - raw text at a precise character range
  llmQuery(prompt)                          - a sub-model call for analysis or summarization
  fmt.Println is your only window into the REPL — print everything you want to see.

Investigate relentlessly: start broad, then narrow with grep or getSection once you know where to look. Never invent facts the documents don't contain — "not found in the corpus" is a valid answer. Quote the text you relied on.

Wrap every code block in `+"```repl ... ```"+`. When you're ready, and only when you have concrete evidence, reply with:
FINAL(your answer here, including direct quotes and, where a source URL is available, markdown links to it)`

const broadAppendix = "\n\nStrategy: Broad. Prefer one or two precise searchDocument calls over many greps; cast a wide net first."
const deepAppendix = "\n\nStrategy: Deep. Prefer grep with a narrow pattern and wide context over broad keyword search; drill in."

func strategyAppendix(s Strategy) string {
	if s == Deep {
		return deepAppendix
	}
	return broadAppendix
}

func subLoopAppendix(originalQuestion, subQuestion string) string {
	if originalQuestion == "" {
		return ""
	}
	return fmt.Sprintf(
		"\n\nThis is one sub-investigation of a larger question. The original question was: %q. "+
			"Answer only the narrower question below; your findings will be combined with other "+
			"sub-investigations afterward.\nSub-question: %q", originalQuestion, subQuestion)
}

func documentInventory(docs []store.DocumentMeta) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "  - doc_id=%q name=%q source=%q size=%d", d.ID, d.Name, d.Source, d.Size)
		if d.URLContext != "" {
			fmt.Fprintf(&b, " url_context=%q", d.URLContext)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// buildSystemPrompt assembles the directive, document inventory, strategy
// appendix, and (for a sub-investigation) the sub-loop appendix.
func buildSystemPrompt(p Params) string {
	return fmt.Sprintf("%s%s\n\nDocuments loaded for topic %q:\n%s%s",
		agentDirective,
		strategyAppendix(p.Strategy),
		p.Topic,
		documentInventory(p.TopicDocs),
		subLoopAppendix(p.OriginalQuestion, p.Question),
	)
}
