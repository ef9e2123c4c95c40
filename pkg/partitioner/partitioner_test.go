package partitioner

import (
	"strings"
	"testing"
)

func collect(p *Partitioner) []string {
	var out []string
	for {
		rec, _, ok := p.Next()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

func TestLiteralSingleCharRS(t *testing.T) {
	p := New(strings.NewReader("a,b,c"), ",", false)
	got := collect(p)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaultNewlineRS(t *testing.T) {
	p := New(strings.NewReader("one\ntwo\nthree"), "\n", false)
	got := collect(p)
	if len(got) != 3 || got[2] != "three" {
		t.Fatalf("got %v", got)
	}
}

func TestParagraphModeSkipsLeadingBlankLines(t *testing.T) {
	p := New(strings.NewReader("\n\n\nfirst para\nline2\n\n\nsecond para\n"), "", false)
	got := collect(p)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(got), got)
	}
	if got[0] != "first para\nline2" {
		t.Errorf("first record = %q", got[0])
	}
	if got[1] != "second para" {
		t.Errorf("second record = %q", got[1])
	}
}

func TestRegexRSNonGreedyByDefault(t *testing.T) {
	p := New(strings.NewReader("a123b456c"), "[0-9]+", false)
	got := collect(p)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSetRSMidStream(t *testing.T) {
	p := New(strings.NewReader("a:b,c"), ":", false)
	rec, _, ok := p.Next()
	if !ok || rec != "a" {
		t.Fatalf("first record = %q, %v", rec, ok)
	}
	p.SetRS(",")
	rec, _, ok = p.Next()
	if !ok || rec != "b" {
		t.Fatalf("second record after SetRS = %q, %v", rec, ok)
	}
}
