package explore

import (
	"fmt"
	"strconv"
	"strings"

	"rlm/internal/keywords"
	"rlm/internal/store"
)

// buildBootstrap generates a deterministic Go-source script that is
// auto-executed before the model's first turn, so the model sees proof
// the REPL works with real document content already in the conversation.
// Broad and Deep differ only in how aggressively they search; both end
// by auto-reading the best match.
func buildBootstrap(docs []store.DocumentMeta, question string, strategy Strategy) string {
	docID := docs[0].ID
	kw := keywords.Extract(question)

	if strategy == Deep {
		return buildDeepBootstrap(docID, kw)
	}
	return buildBroadBootstrap(docID, kw)
}

func goStringLiteral(s string) string {
	return strconv.Quote(s)
}

func goStringSlice(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = goStringLiteral(it)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

func buildBroadBootstrap(docID string, kw []string) string {
	searchQuery := strings.Join(kw, " ")
	return fmt.Sprintf(`docID := %s
keywords := %s

results, _ := searchDocument(docID, %s, 5)
fmt.Printf("=== %%d search results for: %s ===\n", len(results))
for _, r := range results {
	fmt.Printf("\n[offset=%%d, matches=%%d]\n", r.Offset, r.MatchCount)
	fmt.Println(r.Content)
}
fmt.Println()

files, _ := listFiles(docID)
type scoredFile struct {
	score  int
	name   string
	offset int
}
var relevant []scoredFile
for _, f := range files {
	score := 0
	lname := strings.ToLower(f.Name)
	for _, k := range keywords {
		if strings.Contains(lname, k) {
			score++
		}
	}
	if score > 0 {
		relevant = append(relevant, scoredFile{score: score, name: f.Name, offset: f.Offset})
	}
}
sort.Slice(relevant, func(i, j int) bool { return relevant[i].score > relevant[j].score })
fmt.Printf("=== %%d total files, %%d match keywords by name ===\n", len(files), len(relevant))
limit := len(relevant)
if limit > 10 {
	limit = 10
}
for _, r := range relevant[:limit] {
	fmt.Printf("  [offset=%%d] %%s\n", r.offset, r.name)
}

if len(relevant) > 0 {
	best := relevant[0].name
	fmt.Printf("\n=== Reading: %%s ===\n", best)
	content, _ := readFile(docID, best)
	if len(content) > 3000 {
		fmt.Println(content[:3000])
		fmt.Printf("... [%%d total chars]\n", len(content))
	} else {
		fmt.Println(content)
	}
} else if len(results) > 0 {
	bestOffset := results[0].Offset - 500
	if bestOffset < 0 {
		bestOffset = 0
	}
	fmt.Printf("\n=== Content around best match (offset %%d) ===\n", bestOffset)
	section, _ := getSection(docID, bestOffset, 3000)
	fmt.Println(section)
}
`, goStringLiteral(docID), goStringSlice(kw), goStringLiteral(searchQuery), searchQuery)
}

// buildDeepBootstrap mirrors buildBroadBootstrap's shape but greps for
// each keyword individually with wide context and a high result cap
// instead of one ranked search_document call, approximating the
// original's "alternation regex" sweep within the substring-only grep
// contract this port's interpreter actually exposes (see DESIGN.md).
func buildDeepBootstrap(docID string, kw []string) string {
	return fmt.Sprintf(`docID := %s
keywords := %s

var allMatches []GrepMatch
seenLines := map[int]bool{}
for _, k := range keywords {
	hits, _ := grep(docID, k, 8, 30)
	for _, h := range hits {
		if !seenLines[h.Line] {
			seenLines[h.Line] = true
			allMatches = append(allMatches, h)
		}
	}
}
fmt.Printf("=== %%d grep matches across %%d keywords ===\n", len(allMatches), len(keywords))
limit := len(allMatches)
if limit > 30 {
	limit = 30
}
for _, m := range allMatches[:limit] {
	fmt.Printf("\n[line=%%d]\n", m.Line)
	fmt.Println(m.Context)
}
fmt.Println()

files, _ := listFiles(docID)
type scoredFile struct {
	score  int
	name   string
	offset int
}
var relevant []scoredFile
for _, f := range files {
	score := 0
	lname := strings.ToLower(f.Name)
	for _, k := range keywords {
		if strings.Contains(lname, k) {
			score++
		}
	}
	if score > 0 {
		relevant = append(relevant, scoredFile{score: score, name: f.Name, offset: f.Offset})
	}
}
sort.Slice(relevant, func(i, j int) bool { return relevant[i].score > relevant[j].score })
fmt.Printf("=== %%d total files, %%d match keywords by name ===\n", len(files), len(relevant))
flimit := len(relevant)
if flimit > 10 {
	flimit = 10
}
for _, r := range relevant[:flimit] {
	fmt.Printf("  [offset=%%d] %%s\n", r.offset, r.name)
}

if len(relevant) > 0 {
	best := relevant[0].name
	fmt.Printf("\n=== Reading: %%s ===\n", best)
	content, _ := readFile(docID, best)
	if len(content) > 6000 {
		fmt.Println(content[:6000])
		fmt.Printf("... [%%d total chars]\n", len(content))
	} else {
		fmt.Println(content)
	}
} else if len(allMatches) > 0 {
	fmt.Println("\n=== No filename match; see grep context above ===")
}
`, goStringLiteral(docID), goStringSlice(kw))
}
