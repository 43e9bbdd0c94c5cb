package coalesced

import (
	"encoding/binary"
	"strconv"
	"strings"
	"testing"

	"github.com/cshekharsharma/go-crdt/pkg/snapshot"
)

func idWithIndexCodec() snapshot.IDCodec[IdWithIndex[int]] {
	return snapshot.IDCodec[IdWithIndex[int]]{
		Encode: func(id IdWithIndex[int]) []byte {
			var buf [10]byte
			binary.LittleEndian.PutUint64(buf[0:8], uint64(id.Base))
			binary.LittleEndian.PutUint16(buf[8:10], id.Index)
			return buf[:]
		},
		Decode: func(b []byte) (IdWithIndex[int], error) {
			return IdWithIndex[int]{
				Base:  int(binary.LittleEndian.Uint64(b[0:8])),
				Index: binary.LittleEndian.Uint16(b[8:10]),
			}, nil
		},
	}
}

func encodeInts(v ints) []byte {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return []byte(strings.Join(parts, ","))
}

func decodeInts(b []byte) (ints, error) {
	if len(b) == 0 {
		return ints{}, nil
	}
	parts := strings.Split(string(b), ",")
	out := make(ints, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// ints is a minimal Composite fixture: a contiguous run of plain values,
// standing in for the richer Composite implementations (list.Chunk,
// text.GraphemeString) that exercise this package in production.
type ints []int

func (v ints) Len() int      { return len(v) }
func (v ints) IsEmpty() bool { return len(v) == 0 }

func (v ints) SplitAt(index int) (ints, ints) {
	left := append(ints{}, v[:index]...)
	right := append(ints{}, v[index:]...)
	return left, right
}

func (v ints) Concat(other ints) ints {
	out := append(ints{}, v...)
	return append(out, other...)
}

func intGen() IdGenerator[int] {
	next := 0
	return func() (int, error) {
		next++
		return next, nil
	}
}

func collect(c *Core[int, ints]) ints {
	return c.Concat(ints{})
}

func TestNewIsEmpty(t *testing.T) {
	c, err := New[int, ints](intGen())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !c.IsEmpty() || c.Len() != 0 {
		t.Fatalf("fresh Core should be empty, got Len()=%d", c.Len())
	}
}

func TestWithValueSeedsSingleRun(t *testing.T) {
	c, err := WithValue[int, ints](intGen(), ints{10, 20, 30})
	if err != nil {
		t.Fatalf("WithValue returned error: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	got := collect(c)
	want := ints{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("collect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collect() = %v, want %v", got, want)
		}
	}
}

func TestInsertAtMiddleSplitsExistingRun(t *testing.T) {
	c, err := WithValue[int, ints](intGen(), ints{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	links, ok := c.IdsAtElementPos(2)
	if !ok {
		t.Fatal("IdsAtElementPos(2) returned ok=false")
	}
	if _, err := c.Insert(links.Predecessor, links.Successor, ints{99}); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}
	got := collect(c)
	want := ints{1, 2, 99, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("collect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collect() = %v, want %v", got, want)
		}
	}
}

func TestDeleteMiddleElementSplitsRun(t *testing.T) {
	c, err := WithValue[int, ints](intGen(), ints{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	id, ok := c.IdAtElementPos(2)
	if !ok {
		t.Fatal("IdAtElementPos(2) returned ok=false")
	}
	if _, err := c.Delete(id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("Len() = %d after delete, want 4", c.Len())
	}
	got := collect(c)
	want := ints{1, 2, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("collect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collect() = %v, want %v", got, want)
		}
	}
}

func TestDeleteRangeAcrossRun(t *testing.T) {
	c, err := WithValue[int, ints](intGen(), ints{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	start, ok := c.IdAtElementPos(1)
	if !ok {
		t.Fatal("IdAtElementPos(1) returned ok=false")
	}
	end, ok := c.IdAtElementPos(3)
	if !ok {
		t.Fatal("IdAtElementPos(3) returned ok=false")
	}
	if _, err := c.DeleteRange(start, end); err != nil {
		t.Fatalf("DeleteRange returned error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d after DeleteRange, want 2", c.Len())
	}
	got := collect(c)
	want := ints{1, 5}
	if len(got) != len(want) {
		t.Fatalf("collect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collect() = %v, want %v", got, want)
		}
	}
}

func TestConcurrentInsertsAtSameAnchorConverge(t *testing.T) {
	build := func(first, second DataOperation[int, ints]) ints {
		c, err := New[int, ints](intGen())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.ApplyOperation(first); err != nil {
			t.Fatal(err)
		}
		if _, err := c.ApplyOperation(second); err != nil {
			t.Fatal(err)
		}
		return collect(c)
	}

	seed, _ := New[int, ints](intGen())
	links := seed.IdsAfterHead()
	opA := DataOperation[int, ints]{Kind: OpInsert, ID: Zero(10), Pred: links.Predecessor, Succ: links.Successor, Value: ints{1}}
	opB := DataOperation[int, ints]{Kind: OpInsert, ID: Zero(20), Pred: links.Predecessor, Succ: links.Successor, Value: ints{2}}

	forward := build(opA, opB)
	backward := build(opB, opA)

	if len(forward) != 2 || len(backward) != 2 {
		t.Fatalf("expected 2 live elements in both orders, got %v / %v", forward, backward)
	}
	if forward[0] != backward[0] || forward[1] != backward[1] {
		t.Fatalf("concurrent inserts did not converge: %v vs %v", forward, backward)
	}
}

func TestApplyOperationIdempotentOnExactDuplicate(t *testing.T) {
	c, err := New[int, ints](intGen())
	if err != nil {
		t.Fatal(err)
	}
	links := c.IdsAfterHead()
	op := DataOperation[int, ints]{Kind: OpInsert, ID: Zero(500), Pred: links.Predecessor, Succ: links.Successor, Value: ints{7}}
	if _, err := c.ApplyOperation(op); err != nil {
		t.Fatalf("first ApplyOperation returned error: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after first apply, want 1", c.Len())
	}
	if _, err := c.ApplyOperation(op); err != nil {
		t.Fatalf("redelivering the identical operation should be a no-op, got error: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after redelivered duplicate, want 1", c.Len())
	}
}

func TestIdsInRangeDecomposesSingleNode(t *testing.T) {
	c, err := WithValue[int, ints](intGen(), ints{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	start, _ := c.IdAtElementPos(0)
	end, _ := c.IdAtElementPos(2)
	ranges, err := c.IdsInRange(start, end)
	if err != nil {
		t.Fatalf("IdsInRange returned error: %v", err)
	}
	if len(ranges) != 1 {
		t.Fatalf("IdsInRange() = %v, want a single contiguous range", ranges)
	}
	if ranges[0].Start != start || ranges[0].End != end {
		t.Fatalf("IdsInRange() = %+v, want Start=%v End=%v", ranges[0], start, end)
	}
}

func TestVisitSnapshotRoundTripsViaBinarySink(t *testing.T) {
	c, err := WithValue[int, ints](intGen(), ints{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	id, ok := c.IdAtElementPos(1)
	if !ok {
		t.Fatal("IdAtElementPos(1) returned ok=false")
	}
	if _, err := c.Delete(id); err != nil {
		t.Fatal(err)
	}

	sink := snapshot.NewBinarySink[IdWithIndex[int]](idWithIndexCodec())
	if err := c.VisitSnapshot(sink, encodeInts); err != nil {
		t.Fatalf("VisitSnapshot returned error: %v", err)
	}

	nodes, err := snapshot.ParseBinary(sink.Bytes(), idWithIndexCodec())
	if err != nil {
		t.Fatalf("ParseBinary returned error: %v", err)
	}

	restored, err := FromSnapshotNodes[int, ints](nodes, intGen(), decodeInts)
	if err != nil {
		t.Fatalf("FromSnapshotNodes returned error: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("restored.Len() = %d, want 2", restored.Len())
	}
	got := collect(restored)
	want := ints{1, 3}
	if len(got) != len(want) {
		t.Fatalf("collect(restored) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collect(restored) = %v, want %v", got, want)
		}
	}
}
