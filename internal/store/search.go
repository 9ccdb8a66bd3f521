package store

import (
	"context"
	"sort"
	"strings"
)

// Search tokenizes query on whitespace, lowercases, drops tokens shorter
// than 2 chars, then scans content for each keyword's case-insensitive
// occurrences. Overlapping hits within 300 characters of an already
// accepted excerpt are skipped and don't count against the cap. Scanning
// stops once 2*maxResults hits have been accepted, shared across all
// keywords. Results are sorted by MatchCount descending and truncated to
// maxResults.
func (s *Store) Search(ctx context.Context, id, query string, maxResults int) ([]Excerpt, error) {
	raw, err := s.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	content := string(raw)
	runes := []rune(content)
	lowerContent := strings.ToLower(content)

	keywords := searchKeywords(query)
	if len(keywords) == 0 || maxResults <= 0 {
		return nil, nil
	}

	// byteToChar maps a byte offset in content to a character offset.
	// Built lazily since content can be large; computed once per call.
	byteToChar := buildByteToCharIndex(content)

	type hit struct {
		charOffset int
		keywordLen int
		keyword    string
	}
	var accepted []hit

	isNearAccepted := func(charOffset int) bool {
		for _, h := range accepted {
			d := h.charOffset - charOffset
			if d < 0 {
				d = -d
			}
			if d < 300 {
				return true
			}
		}
		return false
	}

	cap := 2 * maxResults
	for _, kw := range keywords {
		searchFrom := 0
		for len(accepted) < cap {
			idx := strings.Index(lowerContent[searchFrom:], kw)
			if idx < 0 {
				break
			}
			bytePos := searchFrom + idx
			charPos := byteToChar[bytePos]
			searchFrom = bytePos + len(kw)

			if isNearAccepted(charPos) {
				continue
			}
			accepted = append(accepted, hit{charOffset: charPos, keywordLen: len([]rune(kw)), keyword: kw})
		}
	}

	excerpts := make([]Excerpt, 0, len(accepted))
	for _, h := range accepted {
		winStart := h.charOffset - 300
		if winStart < 0 {
			winStart = 0
		}
		winEnd := h.charOffset + h.keywordLen + 300
		if winEnd > len(runes) {
			winEnd = len(runes)
		}
		window := string(runes[winStart:winEnd])
		lowerWindow := strings.ToLower(window)

		matchCount := 0
		for _, kw := range keywords {
			if strings.Contains(lowerWindow, kw) {
				matchCount++
			}
		}

		excerpts = append(excerpts, Excerpt{
			DocID:      id,
			Offset:     h.charOffset,
			Content:    window,
			MatchCount: matchCount,
		})
	}

	sort.SliceStable(excerpts, func(i, j int) bool { return excerpts[i].MatchCount > excerpts[j].MatchCount })
	if len(excerpts) > maxResults {
		excerpts = excerpts[:maxResults]
	}
	return excerpts, nil
}

// searchKeywords tokenizes a query on whitespace, lowercases, and drops
// tokens shorter than 2 characters.
func searchKeywords(query string) []string {
	fields := strings.Fields(query)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// buildByteToCharIndex maps every byte offset in s to its enclosing
// rune's character offset.
func buildByteToCharIndex(s string) []int {
	index := make([]int, len(s)+1)
	charPos := 0
	bytePos := 0
	for _, r := range s {
		size := len(string(r))
		for i := 0; i < size; i++ {
			index[bytePos+i] = charPos
		}
		bytePos += size
		charPos++
	}
	index[len(s)] = charPos
	return index
}

// ListFiles scans content line-by-line for section headers of the form
// "=== name ===" on their own line, returning each header's name and the
// character offset of the line start.
func (s *Store) ListFiles(ctx context.Context, id string) ([]FileEntry, error) {
	raw, err := s.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	return parseFileEntries(string(raw)), nil
}

func parseFileEntries(content string) []FileEntry {
	var entries []FileEntry
	charOffset := 0
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if isSectionHeader(line) {
			name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "=== "), " ==="))
			entries = append(entries, FileEntry{Offset: charOffset, Name: name})
		}
		charOffset += len([]rune(line))
		if i < len(lines)-1 {
			charOffset++ // account for the newline split away by Split
		}
	}
	return entries
}

func isSectionHeader(line string) bool {
	return strings.HasPrefix(line, "=== ") && strings.HasSuffix(line, " ===") && len(line) > len("=== ===")
}
