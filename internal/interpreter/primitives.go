package interpreter

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"

	"rlm/internal/llmclient"
	"rlm/internal/store"
)

// DocSummary is the read-only per-document metadata exposed to scripts
// through the documents variable and listDocuments().
type DocSummary struct {
	DocID  string
	Name   string
	Source string
	Size   int
}

// SearchResult mirrors store.Excerpt for script consumption.
type SearchResult struct {
	DocID      string
	Offset     int
	Content    string
	MatchCount int
}

// FileRef mirrors store.FileEntry for script consumption.
type FileRef struct {
	Offset int
	Name   string
}

// GrepMatch is one context-block hit from grep().
type GrepMatch struct {
	Line    int
	Context string
}

func toSummaries(docs []store.DocumentMeta) []DocSummary {
	out := make([]DocSummary, len(docs))
	for i, d := range docs {
		out[i] = DocSummary{DocID: d.ID, Name: d.Name, Source: d.Source, Size: d.Size}
	}
	return out
}

// primitiveExports builds the synthetic "rlm/session" package injected
// into the interpreter via yaegi's Use mechanism. Symbol names are kept
// lowercase to match the document-access primitive contract (documents,
// listDocuments, listFiles, readFile, getSection, searchDocument, grep,
// llmQuery) exactly; yaegi resolves binary-package symbols by map key
// rather than by Go's own export-capitalization rule, so this is safe.
func (s *Session) primitiveExports(st *store.Store, llm *llmclient.Client, docs []store.DocumentMeta) interp.Exports {
	summaries := toSummaries(docs)

	listDocuments := func() []DocSummary { return summaries }

	listFiles := func(docID string) ([]FileRef, error) {
		v, err := s.runOnBridge(func(ctx context.Context) (any, error) {
			return st.ListFiles(ctx, docID)
		})
		if err != nil {
			return nil, err
		}
		entries := v.([]store.FileEntry)
		out := make([]FileRef, len(entries))
		for i, e := range entries {
			out[i] = FileRef{Offset: e.Offset, Name: e.Name}
		}
		s.recordAccess(docID, "")
		return out, nil
	}

	readFile := func(docID, filename string) (string, error) {
		v, err := s.runOnBridge(func(ctx context.Context) (any, error) {
			entries, err := st.ListFiles(ctx, docID)
			if err != nil {
				return nil, err
			}
			lowerTarget := strings.ToLower(filename)
			targetOffset := -1
			nextOffset := -1
			for idx, e := range entries {
				if strings.Contains(strings.ToLower(e.Name), lowerTarget) {
					targetOffset = e.Offset
					if idx+1 < len(entries) {
						nextOffset = entries[idx+1].Offset
					}
					break
				}
			}
			if targetOffset < 0 {
				return nil, fmt.Errorf("file %q not found: use listFiles() to see available files", filename)
			}

			const maxLen = 20000
			length := maxLen
			if nextOffset >= 0 {
				length = nextOffset - targetOffset
				if length > maxLen {
					length = maxLen
				}
			}
			return st.GetSection(ctx, docID, targetOffset, length)
		})
		if err != nil {
			return "", err
		}
		s.recordAccess(docID, filename)
		return v.(string), nil
	}

	getSection := func(docID string, offset, length int) (string, error) {
		v, err := s.runOnBridge(func(ctx context.Context) (any, error) {
			return st.GetSection(ctx, docID, offset, length)
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	searchDocument := func(docID, query string, maxResults int) ([]SearchResult, error) {
		v, err := s.runOnBridge(func(ctx context.Context) (any, error) {
			return st.Search(ctx, docID, query, maxResults)
		})
		if err != nil {
			return nil, err
		}
		excerpts := v.([]store.Excerpt)
		out := make([]SearchResult, len(excerpts))
		for i, e := range excerpts {
			out[i] = SearchResult{DocID: e.DocID, Offset: e.Offset, Content: e.Content, MatchCount: e.MatchCount}
		}
		return out, nil
	}

	grep := func(docID, pattern string, contextLines, maxResults int) ([]GrepMatch, error) {
		v, err := s.runOnBridge(func(ctx context.Context) (any, error) {
			return st.GetContent(ctx, docID)
		})
		if err != nil {
			return nil, err
		}
		content := string(v.([]byte))
		lines := strings.Split(content, "\n")
		patternLower := strings.ToLower(pattern)

		var matches []GrepMatch
		lastEnd := 0
		for idx, line := range lines {
			if !strings.Contains(strings.ToLower(line), patternLower) {
				continue
			}

			start := idx - contextLines
			if start < 0 {
				start = 0
			}
			if start < lastEnd {
				start = lastEnd
			}
			end := idx + contextLines + 1
			if end > len(lines) {
				end = len(lines)
			}

			var b strings.Builder
			for i := start; i < end; i++ {
				if i == idx {
					fmt.Fprintf(&b, ">> L%d: %s", i+1, lines[i])
				} else {
					fmt.Fprintf(&b, "   L%d: %s", i+1, lines[i])
				}
				if i < end-1 {
					b.WriteByte('\n')
				}
			}

			matches = append(matches, GrepMatch{Line: idx + 1, Context: b.String()})
			lastEnd = end
			if len(matches) >= maxResults {
				break
			}
		}
		return matches, nil
	}

	llmQuery := func(prompt string) (string, error) {
		v, err := s.runOnBridge(func(ctx context.Context) (any, error) {
			return llm.ChatSub(ctx, []llmclient.Message{{Role: "user", Content: prompt}})
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	return interp.Exports{
		"rlm/session/session": {
			"documents":      reflect.ValueOf(summaries),
			"listDocuments":  reflect.ValueOf(listDocuments),
			"listFiles":      reflect.ValueOf(listFiles),
			"readFile":       reflect.ValueOf(readFile),
			"getSection":     reflect.ValueOf(getSection),
			"searchDocument": reflect.ValueOf(searchDocument),
			"grep":           reflect.ValueOf(grep),
			"llmQuery":       reflect.ValueOf(llmQuery),
			// grep's result type, so scripts can declare []GrepMatch values.
			"GrepMatch": reflect.ValueOf((*GrepMatch)(nil)),
		},
	}
}
