// Package identifier implements the hierarchical dotted-name identifiers
// exposed at the CRDT core's external boundary: possibly-empty ordered
// sequences of segments, each drawn from a restricted alphabet.
package identifier

import (
	"regexp"
	"strings"

	"github.com/cshekharsharma/go-crdt/internal/crdterrors"
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9:-]+$`)

// Identifier is a hierarchical dotted name: a sequence of segments joined by
// ".". Each segment must be non-empty ASCII alphanumeric plus ':' and '-'.
// The zero value is the empty identifier (no segments).
type Identifier struct {
	segments []string
}

// New constructs an Identifier from segments, panicking if any segment fails
// the syntax check. Use NewChecked when the caller wants to handle bad input.
func New(segments ...string) Identifier {
	id, err := NewChecked(segments...)
	if err != nil {
		panic(err)
	}
	return id
}

// NewChecked constructs an Identifier from segments, returning an aggregated
// error naming every illegal segment if any fail the syntax check.
func NewChecked(segments ...string) (Identifier, error) {
	var agg crdterrors.Aggregate
	for _, s := range segments {
		if !segmentPattern.MatchString(s) {
			agg.Add(badSegmentError(s))
		}
	}
	if err := agg.Err(); err != nil {
		return Identifier{}, err
	}
	cp := make([]string, len(segments))
	copy(cp, segments)
	return Identifier{segments: cp}, nil
}

// Parse splits a dotted string into an Identifier, validating each segment.
// An empty input string parses to the empty Identifier.
func Parse(dotted string) (Identifier, error) {
	if dotted == "" {
		return Identifier{}, nil
	}
	return NewChecked(strings.Split(dotted, ".")...)
}

func badSegmentError(segment string) error {
	return &segmentSyntaxError{segment: segment}
}

type segmentSyntaxError struct {
	segment string
}

func (e *segmentSyntaxError) Error() string {
	return "identifier: segment " + quote(e.segment) + " violates ^[A-Za-z0-9:-]+$"
}

func (e *segmentSyntaxError) Unwrap() error {
	return crdterrors.ErrIdentifierSyntax
}

func quote(s string) string {
	return "\"" + s + "\""
}

// Segments returns a copy of the ordered segments.
func (id Identifier) Segments() []string {
	cp := make([]string, len(id.segments))
	copy(cp, id.segments)
	return cp
}

// String renders the identifier as its dotted form.
func (id Identifier) String() string {
	return strings.Join(id.segments, ".")
}

// Len reports the number of segments.
func (id Identifier) Len() int {
	return len(id.segments)
}

// Equal reports whether two identifiers have identical segments.
func (id Identifier) Equal(other Identifier) bool {
	if len(id.segments) != len(other.segments) {
		return false
	}
	for i := range id.segments {
		if id.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// Less provides a total order over identifiers, comparing segment-by-segment
// lexicographically and then by segment count, so Identifier is usable as a
// map key's comparator or a sort key.
func (id Identifier) Less(other Identifier) bool {
	n := len(id.segments)
	if len(other.segments) < n {
		n = len(other.segments)
	}
	for i := 0; i < n; i++ {
		if id.segments[i] != other.segments[i] {
			return id.segments[i] < other.segments[i]
		}
	}
	return len(id.segments) < len(other.segments)
}

// GroupMembership is satisfied by any ordered collection of Identifiers,
// mirroring the reference GroupMembership trait that GroupVersionVector is
// generic over.
type GroupMembership interface {
	Len() int
	At(i int) Identifier
	Iter() []Identifier
}

// Members adapts a plain slice of Identifier to GroupMembership.
type Members []Identifier

func (m Members) Len() int { return len(m) }

func (m Members) At(i int) Identifier { return m[i] }

func (m Members) Iter() []Identifier { return m }
