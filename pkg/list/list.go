// Package list implements List: an ordered sequence of values T built on
// CoalescedLinear over ListChunk runs.
package list

import (
	"cmp"

	"github.com/cshekharsharma/go-crdt/pkg/coalesced"
	"github.com/cshekharsharma/go-crdt/pkg/snapshot"
)

// Chunk is a contiguous run of values sharing one base id, the Composite
// value CoalescedLinear coalesces and splits on demand.
type Chunk[T any] struct {
	values []T
}

// NewChunk wraps values as a single Chunk.
func NewChunk[T any](values []T) Chunk[T] {
	return Chunk[T]{values: values}
}

// Len implements coalesced.Composite.
func (c Chunk[T]) Len() int { return len(c.values) }

// IsEmpty implements coalesced.Composite.
func (c Chunk[T]) IsEmpty() bool { return len(c.values) == 0 }

// SplitAt implements coalesced.Composite: the element at index begins the
// second chunk.
func (c Chunk[T]) SplitAt(index int) (Chunk[T], Chunk[T]) {
	left := append([]T(nil), c.values[:index]...)
	right := append([]T(nil), c.values[index:]...)
	return Chunk[T]{values: left}, Chunk[T]{values: right}
}

// Concat implements coalesced.Composite.
func (c Chunk[T]) Concat(other Chunk[T]) Chunk[T] {
	return Chunk[T]{values: append(append([]T(nil), c.values...), other.values...)}
}

// Values returns the chunk's underlying elements.
func (c Chunk[T]) Values() []T { return c.values }

// List is a convergent ordered sequence of T, backed by CoalescedLinear.
// Concurrent inserts at the same position are resolved deterministically by
// the underlying id ordering and conflict-set rules.
type List[Id cmp.Ordered, T any] struct {
	data *coalesced.Core[Id, Chunk[T]]
}

// New creates an empty List.
func New[Id cmp.Ordered, T any](gen coalesced.IdGenerator[Id]) (*List[Id, T], error) {
	data, err := coalesced.New[Id, Chunk[T]](gen)
	if err != nil {
		return nil, err
	}
	return &List[Id, T]{data: data}, nil
}

// WithValues creates a List initialized with initialValues.
func WithValues[Id cmp.Ordered, T any](gen coalesced.IdGenerator[Id], initialValues []T) (*List[Id, T], error) {
	data, err := coalesced.WithValue[Id, Chunk[T]](gen, NewChunk(initialValues))
	if err != nil {
		return nil, err
	}
	return &List[Id, T]{data: data}, nil
}

// Len returns the number of visible elements.
func (l *List[Id, T]) Len() int { return l.data.Len() }

// IsEmpty reports whether the list has no visible elements.
func (l *List[Id, T]) IsEmpty() bool { return l.data.IsEmpty() }

// Values returns every visible element in order.
func (l *List[Id, T]) Values() []T {
	out := make([]T, 0, l.data.Len())
	l.data.IterLive(func(c Chunk[T]) {
		out = append(out, c.values...)
	})
	return out
}

// Append inserts values after the current last live element.
func (l *List[Id, T]) Append(values []T) (coalesced.DataOperation[Id, Chunk[T]], error) {
	links := l.data.IdsBeforeEnd()
	return l.data.Insert(links.Predecessor, links.Successor, NewChunk(values))
}

// Prepend inserts values before the current first live element.
func (l *List[Id, T]) Prepend(values []T) (coalesced.DataOperation[Id, Chunk[T]], error) {
	links := l.data.IdsAfterHead()
	return l.data.Insert(links.Predecessor, links.Successor, NewChunk(values))
}

// InsertAt inserts values so that values[0] becomes the new element at
// position. ok is false if position is out of [0, Len()].
func (l *List[Id, T]) InsertAt(position int, values []T) (coalesced.DataOperation[Id, Chunk[T]], bool, error) {
	links, ok := l.data.IdsAtElementPos(position)
	if !ok {
		return coalesced.DataOperation[Id, Chunk[T]]{}, false, nil
	}
	op, err := l.data.Insert(links.Predecessor, links.Successor, NewChunk(values))
	return op, true, err
}

// DeleteAt tombstones the single live element at position. ok is false if
// position is out of [0, Len()).
func (l *List[Id, T]) DeleteAt(position int) (coalesced.DataOperation[Id, Chunk[T]], bool, error) {
	id, ok := l.data.IdAtElementPos(position)
	if !ok {
		return coalesced.DataOperation[Id, Chunk[T]]{}, false, nil
	}
	op, err := l.data.Delete(id)
	return op, true, err
}

// IdsInRange resolves the live-element range [start, end) to the
// contiguous sub-id ranges they currently occupy, e.g. for building a
// range-delete DataOperation.
func (l *List[Id, T]) IdsInRange(start, end int) ([]coalesced.IdRange[Id], error) {
	startID, ok := l.data.IdAtElementPos(start)
	if !ok {
		return nil, coalesced.ErrOutOfRange
	}
	endID, ok := l.data.IdAtElementPos(end - 1)
	if !ok {
		return nil, coalesced.ErrOutOfRange
	}
	return l.data.IdsInRange(startID, endID)
}

// ApplyOperation applies a remote insert or delete to this List.
func (l *List[Id, T]) ApplyOperation(op coalesced.DataOperation[Id, Chunk[T]]) (coalesced.DataOperation[Id, Chunk[T]], error) {
	return l.data.ApplyOperation(op)
}

// VisitSnapshot streams the List's node table through sink, encoding each
// run's elements via encodeChunk.
func (l *List[Id, T]) VisitSnapshot(sink snapshot.Sink[coalesced.IdWithIndex[Id]], encodeChunk func(Chunk[T]) []byte) error {
	return l.data.VisitSnapshot(sink, encodeChunk)
}

// FromSnapshotNodes reconstructs a List from a node sequence as produced by
// VisitSnapshot.
func FromSnapshotNodes[Id cmp.Ordered, T any](nodes []snapshot.Node[coalesced.IdWithIndex[Id]], gen coalesced.IdGenerator[Id], decodeChunk func([]byte) (Chunk[T], error)) (*List[Id, T], error) {
	data, err := coalesced.FromSnapshotNodes[Id, Chunk[T]](nodes, gen, decodeChunk)
	if err != nil {
		return nil, err
	}
	return &List[Id, T]{data: data}, nil
}
