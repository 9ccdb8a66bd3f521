// Package keywords extracts search terms from a natural-language question
// for use in bootstrap search and file ranking.
package keywords

import "strings"

var stopWords = map[string]struct{}{
	"what": {}, "which": {}, "where": {}, "when": {}, "does": {}, "have": {}, "with": {},
	"that": {}, "this": {}, "from": {}, "about": {}, "some": {}, "there": {}, "their": {},
	"they": {}, "your": {}, "been": {}, "were": {}, "how": {}, "could": {}, "would": {},
	"should": {}, "shall": {}, "will": {}, "into": {}, "also": {}, "just": {}, "like": {},
	"make": {}, "using": {}, "used": {}, "need": {}, "want": {}, "find": {}, "know": {},
	"tell": {}, "many": {}, "much": {}, "very": {}, "really": {}, "please": {}, "help": {},
	"more": {}, "most": {}, "only": {}, "the": {}, "explain": {},
}

// Extract tokenizes a question on whitespace, strips punctuation except
// '-' and '_', and returns up to 6 deduplicated keywords in first-seen
// order. Hyphenated/underscored tokens are kept whole and split into
// their sub-parts (each kept individually when longer than 2 chars and
// not a stop word); plain tokens longer than 2 chars and not a stop word
// are kept as-is.
func Extract(question string) []string {
	var keywords []string

	for _, word := range strings.Fields(question) {
		clean := stripPunctuation(word)
		if clean == "" {
			continue
		}

		lower := strings.ToLower(clean)
		if strings.ContainsAny(clean, "-_") {
			keywords = append(keywords, lower)
			for _, part := range strings.FieldsFunc(clean, func(r rune) bool { return r == '-' || r == '_' }) {
				lp := strings.ToLower(part)
				if len(lp) > 2 && !isStopWord(lp) {
					keywords = append(keywords, lp)
				}
			}
		} else if len(lower) > 2 && !isStopWord(lower) {
			keywords = append(keywords, lower)
		}
	}

	return dedupeTruncate(keywords, 6)
}

func isStopWord(s string) bool {
	_, ok := stopWords[s]
	return ok
}

func stripPunctuation(word string) string {
	var b strings.Builder
	for _, r := range word {
		if isAlphanumeric(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		(r > 127) // permissive for unicode letters, mirroring char::is_alphanumeric
}

func dedupeTruncate(keywords []string, limit int) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, limit)
	for _, k := range keywords {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
		if len(out) == limit {
			break
		}
	}
	return out
}
