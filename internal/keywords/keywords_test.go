package keywords

import (
	"reflect"
	"testing"
)

func TestExtractPlainWords(t *testing.T) {
	got := Extract("what is the private network configuration")
	want := []string{"private", "network", "configuration"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractHyphenatedKeepsWholeAndParts(t *testing.T) {
	got := Extract("explain private-ip allocation")
	want := []string{"private-ip", "private", "allocation"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractDropsStopWordsAndShortTokens(t *testing.T) {
	got := Extract("how do I do it")
	if len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
}

func TestExtractTruncatesToSix(t *testing.T) {
	got := Extract("alpha bravo charlie delta echo foxtrot golf hotel")
	if len(got) != 6 {
		t.Fatalf("expected 6 keywords, got %d: %v", len(got), got)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	got := Extract("docker docker docker compose")
	want := []string{"docker", "compose"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
