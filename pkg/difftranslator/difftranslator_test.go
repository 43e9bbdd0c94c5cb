package difftranslator

import (
	"testing"

	"github.com/cshekharsharma/go-crdt/pkg/coalesced"
	"github.com/cshekharsharma/go-crdt/pkg/text"
)

func intGen() coalesced.IdGenerator[int] {
	next := 0
	return func() (int, error) {
		next++
		return next, nil
	}
}

func TestTranslateSmallChanges(t *testing.T) {
	cases := []struct {
		from, to string
	}{
		{"", "hello"},
		{"hello", ""},
		{"hello", "hello world"},
		{"hello world", "hello"},
		{"hello", "jello"},
		{"The quick brown fox", "The slow brown fox"},
		{"abc", "abc"},
	}
	for _, c := range cases {
		txt, err := text.WithValue[int](intGen(), c.from)
		if err != nil {
			t.Fatalf("WithValue(%q) returned error: %v", c.from, err)
		}
		if _, err := Translate[int](txt, c.to, intGen()); err != nil {
			t.Fatalf("Translate(%q -> %q) returned error: %v", c.from, c.to, err)
		}
		if got := txt.String(); got != c.to {
			t.Fatalf("Translate(%q -> %q): String() = %q, want %q", c.from, c.to, got, c.to)
		}
	}
}

func TestTranslateInsertAtEnd(t *testing.T) {
	txt, err := text.WithValue[int](intGen(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	ops, err := Translate[int](txt, "hello world", intGen())
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if len(ops) == 0 {
		t.Fatal("expected at least one DataOperation for an append")
	}
	if txt.String() != "hello world" {
		t.Fatalf("String() = %q, want \"hello world\"", txt.String())
	}
}

func TestTranslateDeleteOnly(t *testing.T) {
	txt, err := text.WithValue[int](intGen(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Translate[int](txt, "hello", intGen()); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if txt.String() != "hello" {
		t.Fatalf("String() = %q, want \"hello\"", txt.String())
	}
}

func TestTranslateReplaceMiddle(t *testing.T) {
	txt, err := text.WithValue[int](intGen(), "The quick brown fox")
	if err != nil {
		t.Fatal(err)
	}
	want := "The slow brown fox"
	if _, err := Translate[int](txt, want, intGen()); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got := txt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestTranslateGraphemeAware(t *testing.T) {
	// "café" vs "cafés": the diff must operate on grapheme boundaries, not
	// bytes, so a trailing precomposed character doesn't get mangled.
	txt, err := text.WithValue[int](intGen(), "café")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Translate[int](txt, "cafés", intGen()); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if txt.String() != "cafés" {
		t.Fatalf("String() = %q, want \"cafés\"", txt.String())
	}
}

func TestTranslateEmittedOpsReplayOnIndependentReplica(t *testing.T) {
	local, err := text.New[int](intGen())
	if err != nil {
		t.Fatal(err)
	}
	ops, err := Translate[int](local, "hello", intGen())
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}

	remote, err := text.New[int](intGen())
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range ops {
		if _, err := remote.ApplyOperation(op); err != nil {
			t.Fatalf("ApplyOperation returned error: %v", err)
		}
	}
	if remote.String() != "hello" {
		t.Fatalf("replica String() = %q, want \"hello\"", remote.String())
	}
}
