// Package coalesced implements CoalescedLinear: a LinearCore-style CRDT
// sequence where runs of contiguous same-operation elements are stored in a
// single node, addressed by a 16-bit sub-index, instead of one node per
// element. Nodes split automatically on demand when an insert or delete
// lands inside an existing run.
//
// The conflict-resolution algorithm (left/right origin, conflict-set scan,
// "ends in right subtree" tie-break) is the same one used by package linear,
// generalized here to operate across node splits: a sub-id inside a
// coalesced node is treated as an implicit neighbour of the ids immediately
// before and after it once the node is split around it.
package coalesced

import (
	"cmp"
	"fmt"

	"github.com/cshekharsharma/go-crdt/internal/crdterrors"
	"github.com/cshekharsharma/go-crdt/pkg/snapshot"
	"github.com/sirupsen/logrus"
)

// ErrOutOfRange is returned when a caller addresses an element position
// outside [0, Len()) or [0, Len()].
var ErrOutOfRange = fmt.Errorf("coalesced: position out of range")

// MaxSubIndex is the largest addressable sub-index within a single base id,
// matching the 16-bit index width of IdWithIndex.
const MaxSubIndex = int(^uint16(0))

// IdWithIndex addresses one element of a Composite value: the base id
// shared by every element inserted in one generator step, plus the 0-based
// offset of this particular element within that step.
type IdWithIndex[Id any] struct {
	Base  Id
	Index uint16
}

// Zero returns the sub-id addressing the first element produced under base.
func Zero[Id any](base Id) IdWithIndex[Id] {
	return IdWithIndex[Id]{Base: base, Index: 0}
}

// CheckedIncrement returns the next sub-id, or ok=false if the 16-bit index
// space under this base is exhausted.
func (id IdWithIndex[Id]) CheckedIncrement() (IdWithIndex[Id], bool) {
	if id.Index == ^uint16(0) {
		return id, false
	}
	return IdWithIndex[Id]{Base: id.Base, Index: id.Index + 1}, true
}

// Increment panics if the sub-index space is exhausted; callers that can
// hit that case should use CheckedIncrement instead.
func (id IdWithIndex[Id]) Increment() IdWithIndex[Id] {
	next, ok := id.CheckedIncrement()
	if !ok {
		panic("coalesced: cannot support more than 2^16 individual elements per id")
	}
	return next
}

// CanAddress reports whether a Composite of numElements elements fits
// starting at this sub-id without exhausting the index space.
func (id IdWithIndex[Id]) CanAddress(numElements int) bool {
	return id.AddressableLen() >= numElements
}

// AddressableLen returns how many elements can be addressed starting at
// this sub-id.
func (id IdWithIndex[Id]) AddressableLen() int {
	return MaxSubIndex + 1 - int(id.Index)
}

// IsFollowedBy reports whether other is exactly id.Increment().
func (id IdWithIndex[Id]) IsFollowedBy(other IdWithIndex[Id], eq func(a, b Id) bool) bool {
	if !eq(id.Base, other.Base) {
		return false
	}
	return id.Index+1 == other.Index && id.Index != ^uint16(0)
}

// WithIndex returns a copy of id addressing a different sub-index under the
// same base.
func (id IdWithIndex[Id]) WithIndex(index uint16) IdWithIndex[Id] {
	return IdWithIndex[Id]{Base: id.Base, Index: index}
}

func (id IdWithIndex[Id]) String() string {
	return fmt.Sprintf("%v:%d", id.Base, id.Index)
}

// Composite is a self-referencing splittable value: the element type an
// Insert/Delete run carries (a run of list items, a run of graphemes, ...).
// Self must be the implementing type itself, so SplitAt and Concat can be
// expressed without an associated-type mechanism (Go generics have none).
type Composite[Self any] interface {
	Len() int
	IsEmpty() bool
	// SplitAt splits at element index: the element at index begins the
	// second part.
	SplitAt(index int) (Self, Self)
	// Concat returns a value that is self followed by other.
	Concat(other Self) Self
}

// IdGenerator produces fresh, unique base ids.
type IdGenerator[Id any] func() (Id, error)

type state int

const (
	stateBeginning state = iota
	stateEnd
	stateInsert
	stateDelete
)

type node[Id cmp.Ordered, Value Composite[Value]] struct {
	id          IdWithIndex[Id]
	leftOrigin  *IdWithIndex[Id]
	rightOrigin *IdWithIndex[Id]
	state       state
	value       Value
}

func (n node[Id, Value]) elementLen() int {
	switch n.state {
	case stateInsert, stateDelete:
		return n.value.Len()
	default:
		return 0
	}
}

func (n node[Id, Value]) lastID() IdWithIndex[Id] {
	l := n.elementLen()
	if l == 0 {
		return n.id
	}
	return n.id.WithIndex(n.id.Index + uint16(l) - 1)
}

func (n node[Id, Value]) contains(id IdWithIndex[Id]) bool {
	if n.state != stateInsert && n.state != stateDelete {
		return n.id.Base == id.Base && n.id.Index == id.Index
	}
	if n.id.Base != id.Base {
		return false
	}
	return id.Index >= n.id.Index && id.Index <= n.lastID().Index
}

// Core is a CoalescedLinear sequence: ordered Insert/Delete runs of Value
// elements, addressed by IdWithIndex[Id], with Yjs-style conflict
// resolution for concurrent inserts at the same anchor pair.
type Core[Id cmp.Ordered, Value Composite[Value]] struct {
	elementLen int
	nodes      []node[Id, Value]
	gen        IdGenerator[Id]
	logger     logrus.FieldLogger
}

// New creates an empty CoalescedLinear sequence.
func New[Id cmp.Ordered, Value Composite[Value]](gen IdGenerator[Id]) (*Core[Id, Value], error) {
	begin, err := gen()
	if err != nil {
		return nil, err
	}
	end, err := gen()
	if err != nil {
		return nil, err
	}
	return &Core[Id, Value]{
		nodes: []node[Id, Value]{
			{id: Zero(begin), state: stateBeginning},
			{id: Zero(end), state: stateEnd},
		},
		gen: gen,
	}, nil
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

// WithValue creates a CoalescedLinear sequence pre-populated with initial,
// splitting it across as many base ids as the 16-bit sub-index space
// requires.
func WithValue[Id cmp.Ordered, Value Composite[Value]](gen IdGenerator[Id], initial Value) (*Core[Id, Value], error) {
	c, err := New[Id, Value](gen)
	if err != nil {
		return nil, err
	}
	if initial.IsEmpty() {
		return c, nil
	}
	pred := c.nodes[0].id
	remaining := initial
	for !remaining.IsEmpty() {
		base, err := gen()
		if err != nil {
			return nil, err
		}
		id := Zero(base)
		chunkLen := remaining.Len()
		if chunkLen > id.AddressableLen() {
			chunkLen = id.AddressableLen()
		}
		var chunk Value
		chunk, remaining = remaining.SplitAt(chunkLen)
		succ := c.nodes[len(c.nodes)-1].id
		n := node[Id, Value]{id: id, leftOrigin: ptr(pred), rightOrigin: ptr(succ), state: stateInsert, value: chunk}
		c.nodes = append(c.nodes[:len(c.nodes)-1], n, c.nodes[len(c.nodes)-1])
		c.elementLen += chunkLen
		pred = n.lastID()
	}
	return c, nil
}

func ptr[T any](v T) *T { return &v }

// Len returns the number of live (non-tombstoned) elements.
func (c *Core[Id, Value]) Len() int { return c.elementLen }

// IsEmpty reports whether Len() == 0.
func (c *Core[Id, Value]) IsEmpty() bool { return c.elementLen == 0 }

// IdAtHead returns the sub-id of the sequence's left boundary.
func (c *Core[Id, Value]) IdAtHead() IdWithIndex[Id] { return c.nodes[0].id }

// IdAtTail returns the sub-id of the sequence's right boundary.
func (c *Core[Id, Value]) IdAtTail() IdWithIndex[Id] { return c.nodes[len(c.nodes)-1].id }

// LinkIds identifies a concrete insertion point between two existing
// sub-ids at a particular point in time.
type LinkIds[Id any] struct {
	Predecessor IdWithIndex[Id]
	Successor   IdWithIndex[Id]
}

// IdsAfterHead returns the ids between the Beginning sentinel and its
// current successor.
func (c *Core[Id, Value]) IdsAfterHead() LinkIds[Id] {
	return LinkIds[Id]{Predecessor: c.nodes[0].id, Successor: c.nodes[1].id}
}

// IdsBeforeEnd returns the ids between the End sentinel and its current
// predecessor.
func (c *Core[Id, Value]) IdsBeforeEnd() LinkIds[Id] {
	n := len(c.nodes)
	return LinkIds[Id]{Predecessor: c.nodes[n-2].lastID(), Successor: c.nodes[n-1].id}
}

// IdsAtElementPos returns the anchor pair immediately before the live
// element at the given 0-based element position. Passing pos == Len()
// returns the ids immediately before the End sentinel, matching
// IdsBeforeEnd. ok is false if pos is out of [0, Len()].
func (c *Core[Id, Value]) IdsAtElementPos(pos int) (LinkIds[Id], bool) {
	if pos < 0 || pos > c.elementLen {
		return LinkIds[Id]{}, false
	}
	count := 0
	for i, n := range c.nodes {
		if n.state != stateInsert {
			continue
		}
		l := n.elementLen()
		if pos < count+l {
			offset := pos - count
			var predID IdWithIndex[Id]
			if offset == 0 {
				predID = c.nodes[i-1].lastID()
			} else {
				predID = n.id.WithIndex(n.id.Index + uint16(offset-1))
			}
			succID := n.id.WithIndex(n.id.Index + uint16(offset))
			return LinkIds[Id]{Predecessor: predID, Successor: succID}, true
		}
		count += l
	}
	return c.IdsBeforeEnd(), true
}

// IdAtElementPos returns the sub-id of the live element at pos.
func (c *Core[Id, Value]) IdAtElementPos(pos int) (IdWithIndex[Id], bool) {
	if pos < 0 || pos >= c.elementLen {
		return IdWithIndex[Id]{}, false
	}
	count := 0
	for _, n := range c.nodes {
		if n.state != stateInsert {
			continue
		}
		l := n.elementLen()
		if pos < count+l {
			return n.id.WithIndex(n.id.Index + uint16(pos-count)), true
		}
		count += l
	}
	return IdWithIndex[Id]{}, false
}

func (c *Core[Id, Value]) indexOfOwnID(target IdWithIndex[Id]) (int, bool) {
	for i, n := range c.nodes {
		if n.id == target {
			return i, true
		}
	}
	return 0, false
}

func (c *Core[Id, Value]) indexOfLastID(target IdWithIndex[Id]) (int, bool) {
	for i, n := range c.nodes {
		if n.lastID() == target {
			return i, true
		}
	}
	return 0, false
}

func (c *Core[Id, Value]) indexContaining(target IdWithIndex[Id]) (int, bool) {
	for i, n := range c.nodes {
		if n.contains(target) {
			return i, true
		}
	}
	return 0, false
}

// splitBefore ensures target is the head sub-id of some node, splitting the
// node that currently contains it if target lands strictly inside it.
// Returns the index of the (possibly new) node whose id == target.
func (c *Core[Id, Value]) splitBefore(target IdWithIndex[Id]) (int, error) {
	if idx, ok := c.indexOfOwnID(target); ok {
		return idx, nil
	}
	idx, ok := c.indexContaining(target)
	if !ok {
		return 0, crdterrors.ErrAnchorNotFound
	}
	n := c.nodes[idx]
	offset := int(target.Index - n.id.Index)
	left, right := n.value.SplitAt(offset)

	leftNode := node[Id, Value]{id: n.id, leftOrigin: n.leftOrigin, state: n.state, value: left}
	rightNode := node[Id, Value]{id: target, rightOrigin: n.rightOrigin, state: n.state, value: right}
	leftNode.rightOrigin = ptr(rightNode.id)
	rightNode.leftOrigin = ptr(leftNode.lastID())

	c.nodes = append(c.nodes[:idx], append([]node[Id, Value]{leftNode, rightNode}, c.nodes[idx+1:]...)...)
	return idx + 1, nil
}

// splitAfter ensures target is the last sub-id of some node, splitting the
// node that currently contains it if target lands strictly inside it.
// Returns the index of the (possibly new) node whose lastID() == target.
func (c *Core[Id, Value]) splitAfter(target IdWithIndex[Id]) (int, error) {
	if idx, ok := c.indexOfLastID(target); ok {
		return idx, nil
	}
	idx, ok := c.indexContaining(target)
	if !ok {
		return 0, crdterrors.ErrAnchorNotFound
	}
	n := c.nodes[idx]
	offset := int(target.Index-n.id.Index) + 1
	left, right := n.value.SplitAt(offset)

	leftNode := node[Id, Value]{id: n.id, leftOrigin: n.leftOrigin, state: n.state, value: left}
	rightID := target.Increment()
	rightNode := node[Id, Value]{id: rightID, rightOrigin: n.rightOrigin, state: n.state, value: right}
	leftNode.rightOrigin = ptr(rightNode.id)
	rightNode.leftOrigin = ptr(leftNode.lastID())

	c.nodes = append(c.nodes[:idx], append([]node[Id, Value]{leftNode, rightNode}, c.nodes[idx+1:]...)...)
	return idx, nil
}

func (c *Core[Id, Value]) endsInRightTree(startIndex int, boundary IdWithIndex[Id]) bool {
	for i := startIndex; i >= 0; i-- {
		n := c.nodes[i]
		if n.rightOrigin == nil {
			return false
		}
		if *n.rightOrigin == boundary {
			return true
		}
		next, ok := c.indexOfOwnID(*n.rightOrigin)
		if !ok {
			return false
		}
		if next >= i {
			return false
		}
	}
	return false
}

// Insert applies a local insertion of value immediately after pred and
// before succ, allocating a fresh base id. Returns the DataOperation that
// was applied, so callers can broadcast it.
func (c *Core[Id, Value]) Insert(pred, succ IdWithIndex[Id], value Value) (DataOperation[Id, Value], error) {
	base, err := c.gen()
	if err != nil {
		return DataOperation[Id, Value]{}, err
	}
	op := DataOperation[Id, Value]{Kind: OpInsert, ID: Zero(base), Pred: pred, Succ: succ, Value: value}
	return c.ApplyOperation(op)
}

// InsertWithID applies a local insertion using a caller-supplied fresh id,
// for callers (such as DiffTranslator) that must control id allocation
// across a multi-chunk insert themselves, e.g. to thread a pred chain
// across chunks split at the 16-bit sub-index boundary.
func (c *Core[Id, Value]) InsertWithID(id, pred, succ IdWithIndex[Id], value Value) (DataOperation[Id, Value], error) {
	op := DataOperation[Id, Value]{Kind: OpInsert, ID: id, Pred: pred, Succ: succ, Value: value}
	return c.ApplyOperation(op)
}

// Delete tombstones the single element addressed by id.
func (c *Core[Id, Value]) Delete(id IdWithIndex[Id]) (DataOperation[Id, Value], error) {
	op := DataOperation[Id, Value]{Kind: OpDelete, Start: id, End: nil}
	return c.ApplyOperation(op)
}

// DeleteRange tombstones every element from start to end, inclusive, which
// must address the same base id family traversed contiguously; ranges
// spanning multiple base ids are expressed by replaying one DataOperation
// per contiguous node, via IdsInRange.
func (c *Core[Id, Value]) DeleteRange(start, end IdWithIndex[Id]) ([]DataOperation[Id, Value], error) {
	ids, err := c.IdsInRange(start, end)
	if err != nil {
		return nil, err
	}
	ops := make([]DataOperation[Id, Value], 0, len(ids))
	for _, r := range ids {
		e := r.End
		op := DataOperation[Id, Value]{Kind: OpDelete, Start: r.Start, End: &e}
		applied, err := c.ApplyOperation(op)
		if err != nil {
			return nil, err
		}
		ops = append(ops, applied)
	}
	return ops, nil
}

// IdRange is an inclusive, single-base-id contiguous sub-id range.
type IdRange[Id any] struct {
	Start IdWithIndex[Id]
	End   IdWithIndex[Id]
}

// IdsInRange decomposes [start, end] into the contiguous, single-node-base
// sub-ranges it currently spans, in order. start and end need not be node
// boundaries.
func (c *Core[Id, Value]) IdsInRange(start, end IdWithIndex[Id]) ([]IdRange[Id], error) {
	startIdx, ok := c.indexContaining(start)
	if !ok {
		return nil, crdterrors.ErrAnchorNotFound
	}
	endIdx, ok := c.indexContaining(end)
	if !ok {
		return nil, crdterrors.ErrAnchorNotFound
	}
	if startIdx > endIdx {
		return nil, crdterrors.ErrInvalidDeleteRange
	}
	var out []IdRange[Id]
	for i := startIdx; i <= endIdx; i++ {
		n := c.nodes[i]
		s := n.id
		e := n.lastID()
		if i == startIdx && start.Index > s.Index {
			s = start
		}
		if i == endIdx && end.Index < e.Index {
			e = end
		}
		out = append(out, IdRange[Id]{Start: s, End: e})
	}
	return out, nil
}

// ApplyOperation applies a (possibly remote) DataOperation, performing any
// node splits necessary to address its boundaries, and returns the
// operation that was actually applied (identical to op for inserts; for
// deletes the Start/End are unchanged). On failure op is returned unchanged
// alongside the error.
func (c *Core[Id, Value]) ApplyOperation(op DataOperation[Id, Value]) (DataOperation[Id, Value], error) {
	switch op.Kind {
	case OpInsert:
		return c.applyInsert(op)
	case OpDelete:
		return c.applyDelete(op)
	default:
		return DataOperation[Id, Value]{}, fmt.Errorf("coalesced: unknown operation kind %v", op.Kind)
	}
}

func (c *Core[Id, Value]) applyInsert(op DataOperation[Id, Value]) (DataOperation[Id, Value], error) {
	if _, exists := c.indexContaining(op.ID); exists {
		return op, nil
	}

	if !op.ID.CanAddress(op.Value.Len()) {
		c.logf("coalesced: insert rejected, %d elements do not fit in the sub-index space remaining at %v", op.Value.Len(), op.ID)
		return op, crdterrors.ErrSubIndexOverflow
	}

	predIdx, err := c.splitAfter(op.Pred)
	if err != nil {
		c.logf("coalesced: insert rejected, pred %v not found", op.Pred)
		return op, err
	}
	succIdx, err := c.splitBefore(op.Succ)
	if err != nil {
		c.logf("coalesced: insert rejected, succ %v not found", op.Succ)
		return op, err
	}
	if succIdx <= predIdx {
		c.logf("coalesced: insert rejected, succ %v precedes pred %v", op.Succ, op.Pred)
		return op, crdterrors.ErrAnchorsMisordered
	}

	if succIdx == predIdx+1 {
		return c.spliceInsert(predIdx+1, op), nil
	}

	insertAt := predIdx + 1
	for i := predIdx + 1; i < succIdx; i++ {
		n := c.nodes[i]
		if n.leftOrigin == nil || n.rightOrigin == nil || *n.leftOrigin != op.Pred || *n.rightOrigin != op.Succ {
			continue
		}
		if n.id.Base < op.ID.Base || (n.id.Base == op.ID.Base && n.id.Index < op.ID.Index) {
			insertAt = i + 1
			continue
		}
		if n.id.Base == op.ID.Base {
			c.logf("coalesced: insert rejected, duplicate base id %v in conflict set", op.ID.Base)
			return op, crdterrors.ErrDuplicateConflict
		}
		// op.ID sorts before n: place it ahead of n and of any node already
		// anchored onto n from the left.
		position := i
		for j := insertAt; j < i; j++ {
			if c.endsInRightTree(j, n.id) {
				position = j
				break
			}
		}
		insertAt = position
		break
	}
	return c.spliceInsert(insertAt, op), nil
}

func (c *Core[Id, Value]) spliceInsert(position int, op DataOperation[Id, Value]) DataOperation[Id, Value] {
	n := node[Id, Value]{id: op.ID, leftOrigin: ptr(op.Pred), rightOrigin: ptr(op.Succ), state: stateInsert, value: op.Value}
	c.nodes = append(c.nodes[:position], append([]node[Id, Value]{n}, c.nodes[position:]...)...)
	c.elementLen += op.Value.Len()
	return op
}

func (c *Core[Id, Value]) applyDelete(op DataOperation[Id, Value]) (DataOperation[Id, Value], error) {
	end := op.Start
	if op.End != nil {
		end = *op.End
	}
	startIdx, err := c.splitAfterExclusiveLeft(op.Start)
	if err != nil {
		return op, err
	}
	endIdx, err := c.splitBeforeExclusiveRight(end)
	if err != nil {
		return op, err
	}
	if endIdx < startIdx {
		return op, crdterrors.ErrInvalidDeleteRange
	}
	for i := startIdx; i <= endIdx; i++ {
		n := &c.nodes[i]
		if n.state == stateDelete {
			continue
		}
		if n.state != stateInsert {
			return op, crdterrors.ErrInvalidDeleteRange
		}
		c.elementLen -= n.elementLen()
		n.state = stateDelete
	}
	return op, nil
}

// splitAfterExclusiveLeft ensures target begins a node (splitting Before),
// returning the node index whose id == target.
func (c *Core[Id, Value]) splitAfterExclusiveLeft(target IdWithIndex[Id]) (int, error) {
	return c.splitBefore(target)
}

// splitBeforeExclusiveRight ensures target ends a node (splitting After),
// returning the node index whose lastID() == target.
func (c *Core[Id, Value]) splitBeforeExclusiveRight(target IdWithIndex[Id]) (int, error) {
	return c.splitAfter(target)
}

// OperationKind distinguishes Insert and Delete DataOperations.
type OperationKind int

const (
	// OpInsert inserts Value as a new contiguous run between Pred and Succ.
	OpInsert OperationKind = iota
	// OpDelete tombstones every element from Start to End inclusive (End
	// nil means a single element at Start).
	OpDelete
)

// DataOperation is the wire-level representation of one CoalescedLinear
// mutation, suitable for broadcasting to replicas.
type DataOperation[Id any, Value any] struct {
	Kind  OperationKind
	ID    IdWithIndex[Id]
	Pred  IdWithIndex[Id]
	Succ  IdWithIndex[Id]
	Value Value
	Start IdWithIndex[Id]
	End   *IdWithIndex[Id]
}

// IterLive yields every live (non-tombstoned) element value, in order, one
// call per contiguous Insert run (not per element).
func (c *Core[Id, Value]) IterLive(yield func(Value)) {
	for _, n := range c.nodes {
		if n.state == stateInsert {
			yield(n.value)
		}
	}
}

// Concat returns the concatenation of every live run into a single Value,
// in order, starting from the caller-supplied empty accumulator.
func (c *Core[Id, Value]) Concat(empty Value) Value {
	acc := empty
	c.IterLive(func(v Value) {
		acc = acc.Concat(v)
	})
	return acc
}

// FromSnapshotNodes reconstructs a Core from a node sequence as produced by
// VisitSnapshot (and validated by snapshot.DecodeNodes). gen continues the
// base id sequence for any subsequent local Insert calls.
func FromSnapshotNodes[Id cmp.Ordered, Value Composite[Value]](nodes []snapshot.Node[IdWithIndex[Id]], gen IdGenerator[Id], decodeValue func([]byte) (Value, error)) (*Core[Id, Value], error) {
	if err := snapshot.DecodeNodes(nodes); err != nil {
		return nil, err
	}
	out := make([]node[Id, Value], len(nodes))
	elementLen := 0
	last := len(nodes) - 1
	for i, n := range nodes {
		nd := node[Id, Value]{id: n.ID, leftOrigin: n.Left, rightOrigin: n.Right}
		switch i {
		case 0:
			nd.state = stateBeginning
		case last:
			nd.state = stateEnd
		default:
			value, err := decodeValue(n.Value)
			if err != nil {
				return nil, err
			}
			nd.value = value
			if n.Deleted {
				nd.state = stateDelete
			} else {
				nd.state = stateInsert
				elementLen += value.Len()
			}
		}
		out[i] = nd
	}
	return &Core[Id, Value]{nodes: out, elementLen: elementLen, gen: gen}, nil
}

// VisitSnapshot streams every node (sentinels included) through sink in
// table order, one snapshot node per coalesced run rather than per
// individual element, encoding each Insert/Delete run's value via
// encodeValue.
func (c *Core[Id, Value]) VisitSnapshot(sink snapshot.Sink[IdWithIndex[Id]], encodeValue func(Value) []byte) error {
	if err := sink.Begin(snapshot.Header{NodeCount: len(c.nodes)}); err != nil {
		return err
	}
	for i := range c.nodes {
		n := &c.nodes[i]
		ref := snapshot.NodeRef[IdWithIndex[Id]]{ID: n.id, Left: n.leftOrigin, Right: n.rightOrigin}
		if n.state == stateInsert || n.state == stateDelete {
			ref.Value = encodeValue(n.value)
			ref.Deleted = n.state == stateDelete
		}
		if err := sink.Node(i, ref); err != nil {
			return err
		}
	}
	return sink.End()
}
