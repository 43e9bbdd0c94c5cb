package list

import (
	"testing"

	"github.com/cshekharsharma/go-crdt/pkg/coalesced"
)

func intGen() coalesced.IdGenerator[int] {
	next := 0
	return func() (int, error) {
		next++
		return next, nil
	}
}

func TestNewIsEmpty(t *testing.T) {
	l, err := New[int, string](intGen())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !l.IsEmpty() || l.Len() != 0 {
		t.Fatalf("fresh List should be empty, got Len()=%d", l.Len())
	}
}

func TestWithValuesSeedsElements(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("WithValues returned error: %v", err)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	got := l.Values()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestAppendAndPrepend(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"b"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]string{"c", "d"}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if _, err := l.Prepend([]string{"a"}); err != nil {
		t.Fatalf("Prepend returned error: %v", err)
	}
	got := l.Values()
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestInsertAtMiddle(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"a", "c"})
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := l.InsertAt(1, []string{"b"})
	if err != nil {
		t.Fatalf("InsertAt returned error: %v", err)
	}
	if !ok {
		t.Fatal("InsertAt(1, ...) returned ok=false")
	}
	got := l.Values()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestInsertAtOutOfRange(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := l.InsertAt(5, []string{"x"})
	if err != nil {
		t.Fatalf("InsertAt returned error: %v", err)
	}
	if ok {
		t.Fatal("InsertAt with out-of-range position should return ok=false")
	}
}

func TestDeleteAt(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := l.DeleteAt(1)
	if err != nil {
		t.Fatalf("DeleteAt returned error: %v", err)
	}
	if !ok {
		t.Fatal("DeleteAt(1) returned ok=false")
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d after delete, want 2", l.Len())
	}
	got := l.Values()
	want := []string{"a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}

func TestDeleteAtOutOfRange(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := l.DeleteAt(3)
	if err != nil {
		t.Fatalf("DeleteAt returned error: %v", err)
	}
	if ok {
		t.Fatal("DeleteAt with out-of-range position should return ok=false")
	}
}

func TestIdsInRange(t *testing.T) {
	l, err := WithValues[int, string](intGen(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatal(err)
	}
	ranges, err := l.IdsInRange(1, 3)
	if err != nil {
		t.Fatalf("IdsInRange returned error: %v", err)
	}
	if len(ranges) == 0 {
		t.Fatal("IdsInRange() returned no ranges")
	}
}

func TestApplyOperationRoundTrip(t *testing.T) {
	l, err := New[int, string](intGen())
	if err != nil {
		t.Fatal(err)
	}
	links := l.data.IdsAfterHead()
	op, err := l.data.Insert(links.Predecessor, links.Successor, NewChunk([]string{"x", "y"}))
	if err != nil {
		t.Fatal(err)
	}

	remote, err := New[int, string](intGen())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := remote.ApplyOperation(op); err != nil {
		t.Fatalf("ApplyOperation returned error: %v", err)
	}
	got := remote.Values()
	want := []string{"x", "y"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}
}
