// Package command classifies free-form model output into one of three
// tagged commands: a terminal answer, a code block to run, or neither.
package command

import "strings"

// Kind tags which variant a Command is.
type Kind int

const (
	// KindInvalid means neither a FINAL(...) answer nor a recognized code
	// fence was found.
	KindInvalid Kind = iota
	// KindFinal means the model produced a terminal answer.
	KindFinal
	// KindRunCode means the model produced a code block to execute.
	KindRunCode
)

// Command is the parsed result of one model turn.
type Command struct {
	Kind    Kind
	Text    string // the FINAL(...) answer, or the code body
}

// Parse classifies input. FINAL(...) binds tighter than a code fence: if
// both are present, FINAL wins.
func Parse(input string) Command {
	if answer, ok := ExtractFinal(input); ok {
		return Command{Kind: KindFinal, Text: answer}
	}
	if code, ok := extractCodeBlock(input); ok {
		return Command{Kind: KindRunCode, Text: code}
	}
	return Command{Kind: KindInvalid}
}

const finalMarker = "FINAL("

// ExtractFinal extracts the content of a FINAL(...) call via paren-depth
// scanning starting at depth 1 immediately after the marker. If the
// parens never close, the trimmed tail is taken instead. One layer of
// surrounding matched straight quotes is stripped if present.
func ExtractFinal(input string) (string, bool) {
	idx := strings.Index(input, finalMarker)
	if idx < 0 {
		return "", false
	}
	return extractParenBody(input[idx+len(finalMarker):]), true
}

// extractParenBody implements the shared paren-depth scan used by both
// FINAL(...) and SUB(...) parsing: starting at depth 1 right after the
// opening marker, walk forward counting '(' / ')' until depth returns to
// 0. An unbalanced input falls back to the trimmed tail.
func extractParenBody(after string) string {
	depth := 1
	end := -1
	for i, ch := range after {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}

	var content string
	if end >= 0 {
		content = after[:end]
	} else {
		content = strings.TrimSpace(after)
	}

	trimmed := strings.TrimSpace(content)
	if len(trimmed) >= 2 {
		if (strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`)) ||
			(strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'")) {
			return trimmed[1 : len(trimmed)-1]
		}
	}
	return trimmed
}

var codeFences = []string{"```repl", "```python", "```py"}

// extractCodeBlock finds the earliest-occurring fenced block opening with
// one of ```repl, ```python, ```py and returns its trimmed body, i.e. the
// text from the newline after the opener to the next ``` (or end of
// input). An empty body does not match.
func extractCodeBlock(input string) (string, bool) {
	bestIdx := -1
	bestLen := 0
	for _, fence := range codeFences {
		if idx := strings.Index(input, fence); idx >= 0 {
			if bestIdx < 0 || idx < bestIdx {
				bestIdx = idx
				bestLen = len(fence)
			}
		}
	}
	if bestIdx < 0 {
		return "", false
	}

	afterTag := input[bestIdx+bestLen:]
	codeStart := 0
	if nl := strings.IndexByte(afterTag, '\n'); nl >= 0 {
		codeStart = nl + 1
	}
	codeRegion := afterTag[codeStart:]

	end := strings.Index(codeRegion, "```")
	if end < 0 {
		end = len(codeRegion)
	}
	code := strings.TrimSpace(codeRegion[:end])
	if code == "" {
		return "", false
	}
	return code, true
}

// ExtractParenMarker extracts the balanced-paren body following marker+"("
// in input, e.g. "SUB(". Shared by the orchestrator's decomposition parser.
func ExtractParenMarker(input, marker string) (string, bool) {
	full := marker + "("
	idx := strings.Index(input, full)
	if idx < 0 {
		return "", false
	}
	return extractParenBody(input[idx+len(full):]), true
}
