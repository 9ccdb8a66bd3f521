// Package citation resolves a document's url_context into a URL template
// and maps files the sandboxed session accessed back to public URLs.
package citation

import (
	"strings"

	"rlm/internal/store"
)

// Template is a parsed URL template extracted from a document's
// url_context.
type Template struct {
	Prefix string
	Suffix string
}

// Resolve produces the full URL for a filepath using this template.
func (t Template) Resolve(filepath string) string {
	return t.Prefix + filepath + t.Suffix
}

const placeholder = "{filepath}"

// ParseURLTemplate parses a url_context string into a Template.
//
// Two patterns are supported: a template containing the literal
// "{filepath}" placeholder, split around the last http(s):// occurring
// before it; or a plain URL with no placeholder, used as a directory base.
// Returns ok=false if no usable URL can be extracted.
func ParseURLTemplate(urlContext string) (Template, bool) {
	if pos := strings.Index(urlContext, placeholder); pos >= 0 {
		before := urlContext[:pos]
		after := urlContext[pos+len(placeholder):]

		start := lastURLStart(before)
		if start < 0 {
			return Template{}, false
		}
		prefix := before[start:]

		end := strings.IndexFunc(after, isSpace)
		var suffix string
		if end < 0 {
			suffix = after
		} else {
			suffix = after[:end]
		}

		return Template{Prefix: prefix, Suffix: suffix}, true
	}

	base, ok := extractBaseURL(urlContext)
	if !ok {
		return Template{}, false
	}
	base = strings.TrimRight(base, "/")
	return Template{Prefix: base + "/", Suffix: ""}, true
}

// lastURLStart returns the byte index of the last "http://" or "https://"
// occurrence in text, or -1 if neither is present.
func lastURLStart(text string) int {
	httpsIdx := strings.LastIndex(text, "https://")
	httpIdx := strings.LastIndex(text, "http://")
	if httpsIdx < 0 && httpIdx < 0 {
		return -1
	}
	if httpsIdx > httpIdx {
		return httpsIdx
	}
	return httpIdx
}

// extractBaseURL extracts the first http(s) URL from text, trimming
// trailing punctuation. Returns ok=false if no URL longer than 10
// characters is found.
func extractBaseURL(text string) (string, bool) {
	httpsIdx := strings.Index(text, "https://")
	httpIdx := strings.Index(text, "http://")
	var start int
	switch {
	case httpsIdx < 0 && httpIdx < 0:
		return "", false
	case httpsIdx < 0:
		start = httpIdx
	case httpIdx < 0:
		start = httpsIdx
	case httpsIdx < httpIdx:
		start = httpsIdx
	default:
		start = httpIdx
	}

	rest := text[start:]
	end := strings.IndexFunc(rest, isSpace)
	var urlPart string
	if end < 0 {
		urlPart = rest
	} else {
		urlPart = rest[:end]
	}
	urlPart = strings.TrimRight(urlPart, ".,;)]")

	if len(urlPart) > 10 {
		return urlPart, true
	}
	return "", false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// AccessedFile is one (doc_id, filename) pair the sandboxed session
// recorded as read.
type AccessedFile struct {
	DocID    string
	Filename string
}

// ResolveCitations maps accessed files into new citation URLs, skipping
// any file whose document is unknown, has no usable url_context, or whose
// resolved URL is already present (exactly, or as a substring either
// direction) in existingURLs or in prior results of this pass.
func ResolveCitations(accessed []AccessedFile, topicDocs []store.DocumentMeta, existingURLs []string) []string {
	docByID := make(map[string]store.DocumentMeta, len(topicDocs))
	for _, d := range topicDocs {
		docByID[d.ID] = d
	}

	var newURLs []string
	seen := make(map[string]struct{})

	for _, af := range accessed {
		doc, ok := docByID[af.DocID]
		if !ok || doc.URLContext == "" {
			continue
		}
		tmpl, ok := ParseURLTemplate(doc.URLContext)
		if !ok {
			continue
		}

		url := tmpl.Resolve(af.Filename)

		if containsExact(existingURLs, url) {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		if substringOverlap(existingURLs, url) {
			continue
		}

		seen[url] = struct{}{}
		newURLs = append(newURLs, url)
	}

	return newURLs
}

func containsExact(urls []string, target string) bool {
	for _, u := range urls {
		if u == target {
			return true
		}
	}
	return false
}

func substringOverlap(urls []string, target string) bool {
	for _, u := range urls {
		if strings.Contains(u, target) || strings.Contains(target, u) {
			return true
		}
	}
	return false
}

// ExtractMarkdownLinks scans text for every "](" marker and captures the
// run up to the next ")", accepting only tokens that look like a URL
// (start with "http"), deduplicating while preserving first-seen order.
// Used to harvest cited_urls straight out of a model's FINAL(...) answer
// without requiring a full markdown parser.
func ExtractMarkdownLinks(text string) []string {
	var urls []string
	seen := make(map[string]struct{})

	pos := 0
	for {
		i := strings.Index(text[pos:], "](")
		if i < 0 {
			break
		}
		start := pos + i + 2
		rest := text[start:]
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			break
		}
		candidate := rest[:end]
		pos = start + end + 1

		if !strings.HasPrefix(candidate, "http") {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		urls = append(urls, candidate)
	}
	return urls
}
