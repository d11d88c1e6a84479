package provider

import (
	"strings"
	"testing"
)

func TestExtract_ReasoningSegment(t *testing.T) {
	e := NewExtractor("", "")
	reasoning, final := e.Extract("Hello <think>pondering</think> world")
	if reasoning != "pondering" {
		t.Fatalf("reasoning = %q, want %q", reasoning, "pondering")
	}
	if final != "Hello  world" {
		t.Fatalf("final = %q, want %q", final, "Hello  world")
	}
}

func TestExtract_NoDelimiters(t *testing.T) {
	e := NewExtractor("", "")
	for _, in := range []string{"", "  plain answer \n", "a < think > b", "</think> only end"} {
		reasoning, final := e.Extract(in)
		if reasoning != "" {
			t.Fatalf("Extract(%q) reasoning = %q, want empty", in, reasoning)
		}
		if want := strings.TrimSpace(in); final != want {
			t.Fatalf("Extract(%q) final = %q, want %q", in, final, want)
		}
	}
}

func TestExtract_MultipleSegmentsWithNewlines(t *testing.T) {
	e := NewExtractor("", "")
	in := "<think>\nstep one\nstep two\n</think>Answer<think>more</think> done"
	reasoning, final := e.Extract(in)
	if reasoning != "step one\nstep two\n\nmore" {
		t.Fatalf("reasoning = %q", reasoning)
	}
	if final != "Answer done" {
		t.Fatalf("final = %q", final)
	}
}

func TestExtract_NonGreedy(t *testing.T) {
	e := NewExtractor("", "")
	_, final := e.Extract("<think>a</think>keep<think>b</think>")
	if final != "keep" {
		t.Fatalf("final = %q, want %q", final, "keep")
	}
}

func TestExtract_CustomMarkers(t *testing.T) {
	e := NewExtractor("[[r]]", "[[/r]]")
	reasoning, final := e.Extract("[[r]]why[[/r]] because")
	if reasoning != "why" || final != "because" {
		t.Fatalf("got (%q, %q)", reasoning, final)
	}
}
