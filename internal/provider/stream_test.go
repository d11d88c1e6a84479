package provider

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func collect(r io.Reader) []string {
	var out []string
	for f := range Fragments(r) {
		out = append(out, f.Response)
	}
	return out
}

func TestFragments_StopsAtDone(t *testing.T) {
	body := `{"response":"Hel","done":false}
{"response":"lo","done":false}
{"response":"ignored","done":true}
{"response":"after","done":false}
`
	got := strings.Join(collect(strings.NewReader(body)), "")
	if got != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", got)
	}
}

func TestFragments_SkipsMalformedLines(t *testing.T) {
	body := "{\"response\":\"a\"}\nnot json at all\n{\"response\":\n\n42\n{\"response\":\"b\"}\n"
	got := strings.Join(collect(strings.NewReader(body)), "")
	if got != "ab" {
		t.Fatalf("expected %q, got %q", "ab", got)
	}
}

func TestFragments_EndOfInputWithoutDone(t *testing.T) {
	body := `{"response":"x"}` + "\n" + `{"response":"y"}`
	got := collect(strings.NewReader(body))
	if len(got) != 2 || got[1] != "y" {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestFragments_EarlyBreak(t *testing.T) {
	body := `{"response":"1"}` + "\n" + `{"response":"2"}` + "\n"
	n := 0
	for range Fragments(strings.NewReader(body)) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected consumer to stop after 1, got %d", n)
	}
}

type failingReader struct{ data io.Reader }

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.data.Read(p)
	if err == io.EOF {
		return n, errors.New("connection reset")
	}
	return n, err
}

func TestFragmentReader_ReportsReadError(t *testing.T) {
	fr := NewFragmentReader(&failingReader{data: strings.NewReader(`{"response":"partial"}` + "\n")})
	var got []string
	for f := range fr.All() {
		got = append(got, f.Response)
	}
	if len(got) != 1 || got[0] != "partial" {
		t.Fatalf("unexpected fragments: %q", got)
	}
	if fr.Err() == nil {
		t.Fatal("expected read error")
	}
}

func TestFragments_SkipsOversizedLine(t *testing.T) {
	body := `{"response":"two plus two is "}` + "\n" +
		strings.Repeat("x", 2*maxLineSize) + "\n" +
		`{"response":"four"}` + "\n"
	fr := NewFragmentReader(strings.NewReader(body))
	var got []string
	for f := range fr.All() {
		got = append(got, f.Response)
	}
	if strings.Join(got, "") != "two plus two is four" {
		t.Fatalf("unexpected fragments: %q", got)
	}
	if err := fr.Err(); err != nil {
		t.Fatalf("oversized line should not be an error, got %v", err)
	}
}

func TestFragments_LongValidLineBelowLimit(t *testing.T) {
	text := strings.Repeat("a", 200*1024)
	got := collect(strings.NewReader(`{"response":"` + text + `"}`))
	if len(got) != 1 || got[0] != text {
		t.Fatalf("expected one %d byte fragment, got %d fragments", len(text), len(got))
	}
}
