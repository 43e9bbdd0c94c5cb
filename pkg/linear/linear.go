// Package linear implements LinearCore: a Yjs-style node table that assigns
// every insertion a stable identity placed into a deterministic total order,
// so concurrent inserts between the same neighbours converge to the same
// order on every replica regardless of delivery sequence.
package linear

import (
	"cmp"
	"fmt"

	"github.com/cshekharsharma/go-crdt/internal/crdterrors"
	"github.com/sirupsen/logrus"
)

// IdGenerator lazily produces fresh, globally unique identifiers. Generators
// are expected to never repeat a value and to be infinite (or long enough for
// the caller's purposes); exhaustion is reported as an error.
type IdGenerator[Id any] func() (Id, error)

type state int

const (
	stateBeginning state = iota
	stateEnd
	stateInsert
	stateDelete
)

type node[Id cmp.Ordered, Value any] struct {
	id          Id
	leftOrigin  *Id
	rightOrigin *Id
	state       state
	value       Value
}

func (n *node[Id, Value]) isInsert() bool { return n.state == stateInsert }

// currentValue returns the node's value if it carries one (Insert or Delete),
// else ok=false.
func (n *node[Id, Value]) currentValue() (Value, bool) {
	switch n.state {
	case stateInsert, stateDelete:
		return n.value, true
	default:
		var zero Value
		return zero, false
	}
}

// LinkIds identifies a concrete position between two existing nodes at a
// particular point in time.
type LinkIds[Id any] struct {
	Predecessor Id
	Successor   Id
}

// NodeIds identifies the concrete position of an existing node, together with
// its immediate neighbours.
type NodeIds[Id any] struct {
	Predecessor Id
	Current     Id
	Successor   Id
}

// Before returns the LinkIds between the predecessor and this node.
func (n NodeIds[Id]) Before() LinkIds[Id] {
	return LinkIds[Id]{Predecessor: n.Predecessor, Successor: n.Current}
}

// After returns the LinkIds between this node and its successor.
func (n NodeIds[Id]) After() LinkIds[Id] {
	return LinkIds[Id]{Predecessor: n.Current, Successor: n.Successor}
}

// DataOperationKind tags which variant a DataOperation carries.
type DataOperationKind int

const (
	// OpInsert inserts value between Pred and Succ under the fresh id Id.
	OpInsert DataOperationKind = iota
	// OpDelete deletes the node at Start (End is unused by LinearCore; the
	// coalesced layer uses it for range deletes).
	OpDelete
)

// DataOperation is either an Insert{id, pred, succ, value} or a
// Delete{start, end}. End is nil for LinearCore, which does not support range
// deletes.
type DataOperation[Id any, Value any] struct {
	Kind DataOperationKind

	// Insert fields.
	ID    Id
	Pred  Id
	Succ  Id
	Value Value

	// Delete fields.
	Start Id
	End   *Id
}

// Insert builds an Insert-kind DataOperation.
func Insert[Id any, Value any](id, pred, succ Id, value Value) DataOperation[Id, Value] {
	return DataOperation[Id, Value]{Kind: OpInsert, ID: id, Pred: pred, Succ: succ, Value: value}
}

// Delete builds a Delete-kind DataOperation. end is nil for a single-id
// delete (the only form LinearCore accepts).
func Delete[Id any, Value any](start Id, end *Id) DataOperation[Id, Value] {
	return DataOperation[Id, Value]{Kind: OpDelete, Start: start, End: end}
}

// Core is a Yjs-style linear node table over a totally ordered, comparable Id
// and an arbitrary Value payload.
type Core[Id cmp.Ordered, Value any] struct {
	liveCount int
	nodes     []node[Id, Value]
	logger    logrus.FieldLogger
}

// SetLogger installs a logger used to record rejected operations. A nil
// logger disables logging (the default).
func (c *Core[Id, Value]) SetLogger(logger logrus.FieldLogger) {
	c.logger = logger
}

func (c *Core[Id, Value]) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Warnf(format, args...)
	}
}

// New creates an empty Core with just the Beginning/End sentinels.
func New[Id cmp.Ordered, Value any](gen IdGenerator[Id]) (*Core[Id, Value], error) {
	beginID, err := gen()
	if err != nil {
		return nil, fmt.Errorf("linear: generating begin id: %w", err)
	}
	endID, err := gen()
	if err != nil {
		return nil, fmt.Errorf("linear: generating end id: %w", err)
	}
	beginIDCopy, endIDCopy := beginID, endID
	nodes := []node[Id, Value]{
		{id: beginID, rightOrigin: &endIDCopy, state: stateBeginning},
		{id: endID, leftOrigin: &beginIDCopy, state: stateEnd},
	}
	return &Core[Id, Value]{nodes: nodes}, nil
}

// WithValue creates a Core seeded with one initial Insert node holding
// initialValue.
func WithValue[Id cmp.Ordered, Value any](gen IdGenerator[Id], initialValue Value) (*Core[Id, Value], error) {
	beginID, err := gen()
	if err != nil {
		return nil, fmt.Errorf("linear: generating begin id: %w", err)
	}
	valueID, err := gen()
	if err != nil {
		return nil, fmt.Errorf("linear: generating value id: %w", err)
	}
	endID, err := gen()
	if err != nil {
		return nil, fmt.Errorf("linear: generating end id: %w", err)
	}
	b, v, e := beginID, valueID, endID
	nodes := []node[Id, Value]{
		{id: b, rightOrigin: &v, state: stateBeginning},
		{id: v, leftOrigin: &b, rightOrigin: &e, state: stateInsert, value: initialValue},
		{id: e, leftOrigin: &v, state: stateEnd},
	}
	return &Core[Id, Value]{nodes: nodes, liveCount: 1}, nil
}

// Len returns the number of live (Insert-state) nodes.
func (c *Core[Id, Value]) Len() int { return c.liveCount }

// IsEmpty reports whether there are no live nodes.
func (c *Core[Id, Value]) IsEmpty() bool { return c.liveCount == 0 }

func (c *Core[Id, Value]) indexOf(id Id) (int, bool) {
	for i := range c.nodes {
		if c.nodes[i].id == id {
			return i, true
		}
	}
	return 0, false
}

// endsInRightTree reports whether following right_origin anchors starting at
// startIndex reaches a node with id == boundary before hitting an absent
// right_origin. This is the canonical conflict-set tie-breaker (§4.4).
func (c *Core[Id, Value]) endsInRightTree(startIndex int, boundary Id) bool {
	idx := startIndex
	for {
		n := &c.nodes[idx]
		if n.id == boundary {
			return true
		}
		if n.rightOrigin == nil {
			return false
		}
		next, ok := c.indexOf(*n.rightOrigin)
		if !ok {
			panic("linear: for every origin a node should exist")
		}
		idx = next
	}
}

// IdsAfterHead returns the ids between the Beginning sentinel and its current
// successor.
func (c *Core[Id, Value]) IdsAfterHead() LinkIds[Id] {
	return LinkIds[Id]{Predecessor: c.nodes[0].id, Successor: c.nodes[1].id}
}

// IdsBeforeEnd returns the ids between the End sentinel and its current
// predecessor.
func (c *Core[Id, Value]) IdsBeforeEnd() LinkIds[Id] {
	n := len(c.nodes)
	return LinkIds[Id]{Predecessor: c.nodes[n-2].id, Successor: c.nodes[n-1].id}
}

// IdsAtPos returns the ids of the node at the given live-element position,
// plus its neighbours. ok is false if position is out of range.
func (c *Core[Id, Value]) IdsAtPos(position int) (NodeIds[Id], bool) {
	if position < 0 || position >= c.liveCount {
		return NodeIds[Id]{}, false
	}
	count := 0
	for i := range c.nodes {
		if !c.nodes[i].isInsert() {
			continue
		}
		if count == position {
			return NodeIds[Id]{
				Predecessor: c.nodes[i-1].id,
				Current:     c.nodes[i].id,
				Successor:   c.nodes[i+1].id,
			}, true
		}
		count++
	}
	return NodeIds[Id]{}, false
}

// Insert inserts id -> value between pred and succ via ApplyOperation.
func (c *Core[Id, Value]) Insert(id, pred, succ Id, value Value) error {
	_, err := c.ApplyOperation(Insert[Id, Value](id, pred, succ, value))
	return err
}

// Delete transitions the node at id from Insert to Delete state, retaining
// the value as a tombstone. Re-delete is idempotent. Returns ok=false if id
// is unknown or names a sentinel.
func (c *Core[Id, Value]) Delete(id Id) (Value, bool) {
	idx, found := c.indexOf(id)
	if !found {
		var zero Value
		return zero, false
	}
	n := &c.nodes[idx]
	switch n.state {
	case stateInsert:
		n.state = stateDelete
		c.liveCount--
		return n.value, true
	case stateDelete:
		return n.value, true
	default:
		var zero Value
		return zero, false
	}
}

// ApplyOperation applies a remote or local DataOperation. On failure the
// original operation is returned alongside the error, and no mutation has
// occurred.
func (c *Core[Id, Value]) ApplyOperation(op DataOperation[Id, Value]) (DataOperation[Id, Value], error) {
	switch op.Kind {
	case OpInsert:
		return c.applyInsert(op)
	case OpDelete:
		return c.applyDelete(op)
	default:
		panic("linear: invalid DataOperation kind")
	}
}

func (c *Core[Id, Value]) applyInsert(op DataOperation[Id, Value]) (DataOperation[Id, Value], error) {
	predIndex, found := c.indexOf(op.Pred)
	if !found {
		c.logf("linear: insert rejected, pred %v not found", op.Pred)
		return op, crdterrors.ErrAnchorNotFound
	}
	succIndex, found := c.indexOf(op.Succ)
	if !found {
		c.logf("linear: insert rejected, succ %v not found", op.Succ)
		return op, crdterrors.ErrAnchorNotFound
	}

	if predIndex+1 == succIndex {
		c.spliceInsert(succIndex, op)
		return op, nil
	}
	if predIndex >= succIndex {
		c.logf("linear: insert rejected, succ %v precedes pred %v", op.Succ, op.Pred)
		return op, crdterrors.ErrAnchorsMisordered
	}

	// Gap between pred and succ may hold concurrent inserts.
	type conflict struct {
		id  Id
		pos int
	}
	var conflicting []conflict
	rightSubtreeStart := -1
	for idx := predIndex + 1; idx < succIndex; idx++ {
		n := &c.nodes[idx]
		if n.leftOrigin != nil && *n.leftOrigin == op.Pred && n.rightOrigin != nil && *n.rightOrigin == op.Succ {
			conflicting = append(conflicting, conflict{id: n.id, pos: idx})
		}
		if rightSubtreeStart < 0 && c.endsInRightTree(idx, op.Succ) {
			rightSubtreeStart = idx
		}
	}
	if rightSubtreeStart < 0 {
		rightSubtreeStart = succIndex
	}

	var position int
	if len(conflicting) == 0 {
		position = rightSubtreeStart
	} else {
		// conflicting is already sorted by id (maintained by this same
		// algorithm on every prior insertion into this conflict set).
		// Binary search for the leftmost entry with id >= op.ID.
		lo, hi := 0, len(conflicting)
		for lo < hi {
			mid := (lo + hi) / 2
			if conflicting[mid].id < op.ID {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		insertIndex := lo
		if insertIndex < len(conflicting) && conflicting[insertIndex].id == op.ID {
			c.logf("linear: insert rejected, duplicate id %v in conflict set", op.ID)
			return op, crdterrors.ErrDuplicateConflict
		}

		switch {
		case insertIndex == 0:
			position = predIndex + 1
		case insertIndex < len(conflicting):
			target := conflicting[insertIndex]
			position = target.pos
			for idx := predIndex + 1; idx < target.pos; idx++ {
				if c.endsInRightTree(idx, target.id) {
					position = idx
					break
				}
			}
		default:
			position = succIndex
		}
	}

	c.spliceInsert(position, op)
	return op, nil
}

func (c *Core[Id, Value]) spliceInsert(position int, op DataOperation[Id, Value]) {
	pred, succ := op.Pred, op.Succ
	newNode := node[Id, Value]{
		id:          op.ID,
		leftOrigin:  &pred,
		rightOrigin: &succ,
		state:       stateInsert,
		value:       op.Value,
	}
	c.nodes = append(c.nodes, node[Id, Value]{})
	copy(c.nodes[position+1:], c.nodes[position:])
	c.nodes[position] = newNode
	c.liveCount++
}

func (c *Core[Id, Value]) applyDelete(op DataOperation[Id, Value]) (DataOperation[Id, Value], error) {
	if op.End != nil {
		c.logf("linear: range delete rejected, unsupported on this variant")
		return op, crdterrors.ErrRangeUnsupported
	}
	idx, found := c.indexOf(op.Start)
	if !found {
		return op, crdterrors.ErrAnchorNotFound
	}
	n := &c.nodes[idx]
	switch n.state {
	case stateInsert:
		n.state = stateDelete
		c.liveCount--
		return op, nil
	case stateDelete:
		return op, nil
	default:
		c.logf("linear: delete rejected, id %v names a sentinel", op.Start)
		return op, crdterrors.ErrAnchorNotFound
	}
}

// IterValues returns live values in order, oldest-position-first.
func (c *Core[Id, Value]) IterValues() []Value {
	out := make([]Value, 0, c.liveCount)
	for i := range c.nodes {
		if c.nodes[i].isInsert() {
			out = append(out, c.nodes[i].value)
		}
	}
	return out
}

// IterAll returns every node's value in table order, including tombstones
// (Delete-state nodes retain their value) but excluding sentinels. live[i]
// reports whether the node at that position is currently live.
func (c *Core[Id, Value]) IterAll() (values []Value, live []bool) {
	for i := range c.nodes {
		v, has := c.nodes[i].currentValue()
		if !has {
			continue
		}
		values = append(values, v)
		live = append(live, c.nodes[i].state == stateInsert)
	}
	return values, live
}

// IterIds returns every id present in the node table, in table order,
// including sentinels.
func (c *Core[Id, Value]) IterIds() []Id {
	out := make([]Id, len(c.nodes))
	for i := range c.nodes {
		out[i] = c.nodes[i].id
	}
	return out
}

