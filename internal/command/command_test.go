package command

import "testing"

func TestParseFinal(t *testing.T) {
	cmd := Parse("FINAL(The answer is 42)")
	if cmd.Kind != KindFinal || cmd.Text != "The answer is 42" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseFinalWithQuotes(t *testing.T) {
	cmd := Parse(`FINAL("Hello world")`)
	if cmd.Kind != KindFinal || cmd.Text != "Hello world" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseFinalNestedParens(t *testing.T) {
	cmd := Parse("FINAL(func(a, b) returns (c))")
	if cmd.Kind != KindFinal || cmd.Text != "func(a, b) returns (c)" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseCodeBlock(t *testing.T) {
	cmd := Parse("Let me check:\n```repl\nprint('hello')\n```\n")
	if cmd.Kind != KindRunCode || cmd.Text != "print('hello')" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParsePythonBlock(t *testing.T) {
	cmd := Parse("```python\nx = 1 + 2\nprint(x)\n```")
	if cmd.Kind != KindRunCode || cmd.Text != "x = 1 + 2\nprint(x)" {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseInvalid(t *testing.T) {
	cmd := Parse("I think we should look at the documents.")
	if cmd.Kind != KindInvalid {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseFinalWinsOverCodeFence(t *testing.T) {
	cmd := Parse("```repl\nprint(1)\n```\nFINAL(done)")
	if cmd.Kind != KindFinal || cmd.Text != "done" {
		t.Fatalf("FINAL must bind tighter than a code fence, got %+v", cmd)
	}
}

func TestExtractParenMarkerForSub(t *testing.T) {
	body, ok := ExtractParenMarker("SUB(what is the capital)", "SUB")
	if !ok || body != "what is the capital" {
		t.Fatalf("got %q, %v", body, ok)
	}
}

func TestExtractFinalUnterminatedTakesTail(t *testing.T) {
	answer, ok := ExtractFinal("FINAL(the answer is unterminated")
	if !ok || answer != "the answer is unterminated" {
		t.Fatalf("got %q, %v", answer, ok)
	}
}
