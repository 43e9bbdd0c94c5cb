// Package text implements Text: a grapheme-addressable string CRDT built on
// CoalescedLinear, using github.com/rivo/uniseg for UAX #29 extended
// grapheme cluster segmentation so len/get/split_at all index by the same
// unit a user would count when editing the string by eye.
package text

import (
	"cmp"

	"github.com/cshekharsharma/go-crdt/pkg/coalesced"
	"github.com/cshekharsharma/go-crdt/pkg/snapshot"
	"github.com/rivo/uniseg"
)

// GraphemeString is a Composite value whose elements are extended grapheme
// clusters rather than bytes or runes.
type GraphemeString struct {
	base    string
	offsets []int // byte offset of the start of each grapheme, len == Len()+1 (includes end)
}

// NewGraphemeString segments s into extended grapheme clusters.
func NewGraphemeString(s string) GraphemeString {
	offsets := []int{0}
	rest := s
	pos := 0
	for len(rest) > 0 {
		cluster, r, _, _ := uniseg.FirstGraphemeClusterInString(rest, -1)
		pos += len(cluster)
		offsets = append(offsets, pos)
		rest = r
	}
	return GraphemeString{base: s, offsets: offsets}
}

// Len implements coalesced.Composite: the number of grapheme clusters.
func (g GraphemeString) Len() int {
	if len(g.offsets) == 0 {
		return 0
	}
	return len(g.offsets) - 1
}

// IsEmpty implements coalesced.Composite.
func (g GraphemeString) IsEmpty() bool { return g.Len() == 0 }

// Get returns the index-th grapheme cluster.
func (g GraphemeString) Get(index int) (string, bool) {
	if index < 0 || index >= g.Len() {
		return "", false
	}
	return g.base[g.offsets[index]:g.offsets[index+1]], true
}

// SplitAt implements coalesced.Composite: splits at the grapheme boundary
// before index.
func (g GraphemeString) SplitAt(index int) (GraphemeString, GraphemeString) {
	at := g.offsets[index]
	left := GraphemeString{base: g.base[:at], offsets: append([]int(nil), g.offsets[:index+1]...)}
	rightOffsets := make([]int, len(g.offsets)-index)
	for i, o := range g.offsets[index:] {
		rightOffsets[i] = o - at
	}
	right := GraphemeString{base: g.base[at:], offsets: rightOffsets}
	return left, right
}

// Concat implements coalesced.Composite.
func (g GraphemeString) Concat(other GraphemeString) GraphemeString {
	shift := len(g.base)
	merged := append([]int(nil), g.offsets...)
	for _, o := range other.offsets[1:] {
		merged = append(merged, o+shift)
	}
	return GraphemeString{base: g.base + other.base, offsets: merged}
}

// String returns the underlying plain string.
func (g GraphemeString) String() string { return g.base }

// Text is a convergent grapheme-addressable string CRDT, backed by
// CoalescedLinear over GraphemeString runs.
type Text[Id cmp.Ordered] struct {
	data *coalesced.Core[Id, GraphemeString]
}

// New creates an empty Text.
func New[Id cmp.Ordered](gen coalesced.IdGenerator[Id]) (*Text[Id], error) {
	data, err := coalesced.New[Id, GraphemeString](gen)
	if err != nil {
		return nil, err
	}
	return &Text[Id]{data: data}, nil
}

// WithValue creates a Text initialized with the grapheme content of initial.
func WithValue[Id cmp.Ordered](gen coalesced.IdGenerator[Id], initial string) (*Text[Id], error) {
	data, err := coalesced.WithValue[Id, GraphemeString](gen, NewGraphemeString(initial))
	if err != nil {
		return nil, err
	}
	return &Text[Id]{data: data}, nil
}

// Len returns the number of visible grapheme clusters.
func (t *Text[Id]) Len() int { return t.data.Len() }

// IsEmpty reports whether the text has no visible content.
func (t *Text[Id]) IsEmpty() bool { return t.data.IsEmpty() }

// String returns the current visible content as a plain string.
func (t *Text[Id]) String() string {
	content := t.data.Concat(GraphemeString{offsets: []int{0}})
	return content.base
}

// Core exposes the underlying CoalescedLinear core, for DiffTranslator and
// snapshot use.
func (t *Text[Id]) Core() *coalesced.Core[Id, GraphemeString] { return t.data }

// InsertAt inserts s so its first grapheme becomes the new element at
// position. ok is false if position is out of [0, Len()].
func (t *Text[Id]) InsertAt(position int, s string) (coalesced.DataOperation[Id, GraphemeString], bool, error) {
	links, ok := t.data.IdsAtElementPos(position)
	if !ok {
		return coalesced.DataOperation[Id, GraphemeString]{}, false, nil
	}
	op, err := t.data.Insert(links.Predecessor, links.Successor, NewGraphemeString(s))
	return op, true, err
}

// DeleteRange tombstones the grapheme range [start, end).
func (t *Text[Id]) DeleteRange(start, end int) ([]coalesced.DataOperation[Id, GraphemeString], error) {
	startID, ok := t.data.IdAtElementPos(start)
	if !ok {
		return nil, coalesced.ErrOutOfRange
	}
	endID, ok := t.data.IdAtElementPos(end - 1)
	if !ok {
		return nil, coalesced.ErrOutOfRange
	}
	return t.data.DeleteRange(startID, endID)
}

// ApplyOperation applies a remote insert or delete to this Text.
func (t *Text[Id]) ApplyOperation(op coalesced.DataOperation[Id, GraphemeString]) (coalesced.DataOperation[Id, GraphemeString], error) {
	return t.data.ApplyOperation(op)
}

// VisitSnapshot streams the Text's node table through sink, encoding each
// run's grapheme content as UTF-8 bytes.
func (t *Text[Id]) VisitSnapshot(sink snapshot.Sink[coalesced.IdWithIndex[Id]]) error {
	return t.data.VisitSnapshot(sink, func(g GraphemeString) []byte { return []byte(g.String()) })
}

// FromSnapshotNodes reconstructs a Text from a node sequence as produced by
// VisitSnapshot.
func FromSnapshotNodes[Id cmp.Ordered](nodes []snapshot.Node[coalesced.IdWithIndex[Id]], gen coalesced.IdGenerator[Id]) (*Text[Id], error) {
	data, err := coalesced.FromSnapshotNodes[Id, GraphemeString](nodes, gen, func(b []byte) (GraphemeString, error) {
		return NewGraphemeString(string(b)), nil
	})
	if err != nil {
		return nil, err
	}
	return &Text[Id]{data: data}, nil
}
