// Package register implements Register: a single-slot "latest value wins"
// CRDT built directly on LinearCore. Every write inserts a new node
// immediately after the Beginning sentinel; the visible value is always the
// first live node, so concurrent writes converge on the same winner via
// LinearCore's own conflict-set ordering without any extra bookkeeping here.
package register

import (
	"encoding/binary"
	"fmt"

	"github.com/cshekharsharma/go-crdt/pkg/linear"
	"github.com/cshekharsharma/go-crdt/pkg/snapshot"
)

// entry pairs a write's caller-supplied Id with its Value. LinearCore itself
// is keyed on a monotonic uint64 sequence number (see Register.seq) rather
// than on Id directly, since Id need only be comparable, not cmp.Ordered;
// the sequence number gives LinearCore the total order it requires while
// entry carries the opaque Id along as part of the payload so it still
// round-trips through Snapshot/RestoreRegister.
type entry[Id any, Value any] struct {
	id    Id
	value Value
}

// Register is a latest-value-wins CRDT over Value.
type Register[Id comparable, Value any] struct {
	core *linear.Core[uint64, entry[Id, Value]]
	gen  func() (Id, error)
	seq  uint64
}

func New[Id comparable, Value any](gen func() (Id, error)) (*Register[Id, Value], error) {
	r := &Register[Id, Value]{gen: gen}
	core, err := linear.New[uint64, entry[Id, Value]](r.nextKey)
	if err != nil {
		return nil, err
	}
	r.core = core
	return r, nil
}

// nextKey hands LinearCore a fresh, strictly increasing ordering key. It
// never fails; Register's fallibility lives entirely in gen.
func (r *Register[Id, Value]) nextKey() (uint64, error) {
	r.seq++
	return r.seq, nil
}

func (r *Register[Id, Value]) Get() (Value, bool) {
	values := r.core.IterValues()
	if len(values) == 0 {
		var zero Value
		return zero, false
	}
	return values[0].value, true
}

func (r *Register[Id, Value]) Set(value Value) error {
	id, err := r.gen()
	if err != nil {
		return err
	}
	key, err := r.nextKey()
	if err != nil {
		return err
	}
	links := r.core.IdsAfterHead()
	return r.core.Insert(key, links.Predecessor, links.Successor, entry[Id, Value]{id: id, value: value})
}

func (r *Register[Id, Value]) History() []Value {
	entries, _ := r.core.IterAll()
	out := make([]Value, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}

// keyCodec encodes the uint64 ordering key LinearCore uses internally; it
// carries no caller-visible meaning, so it needs no decode/encode parameter.
func keyCodec() snapshot.IDCodec[uint64] {
	return snapshot.IDCodec[uint64]{
		Encode: func(k uint64) []byte {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], k)
			return buf[:]
		},
		Decode: func(b []byte) (uint64, error) {
			if len(b) < 8 {
				return 0, fmt.Errorf("register: truncated sequence key")
			}
			return binary.LittleEndian.Uint64(b), nil
		},
	}
}

// encodeEntry packs an entry's Id and Value into the single []byte a
// snapshot node's Value field carries: a 4-byte length-prefixed Id followed
// by the Value bytes.
func encodeEntry[Id any, Value any](e entry[Id, Value], encodeID func(Id) []byte, encodeValue func(Value) []byte) []byte {
	idBytes := encodeID(e.id)
	valueBytes := encodeValue(e.value)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(idBytes)))
	out := make([]byte, 0, 4+len(idBytes)+len(valueBytes))
	out = append(out, lenBuf[:]...)
	out = append(out, idBytes...)
	out = append(out, valueBytes...)
	return out
}

func decodeEntry[Id any, Value any](b []byte, decodeID func([]byte) (Id, error), decodeValue func([]byte) (Value, error)) (entry[Id, Value], error) {
	if len(b) < 4 {
		return entry[Id, Value]{}, fmt.Errorf("register: truncated entry")
	}
	idLen := binary.LittleEndian.Uint32(b[:4])
	if uint32(len(b)-4) < idLen {
		return entry[Id, Value]{}, fmt.Errorf("register: truncated entry id")
	}
	id, err := decodeID(b[4 : 4+idLen])
	if err != nil {
		return entry[Id, Value]{}, err
	}
	value, err := decodeValue(b[4+idLen:])
	if err != nil {
		return entry[Id, Value]{}, err
	}
	return entry[Id, Value]{id: id, value: value}, nil
}

// Snapshot encodes the Register's full write history (including values
// retained by tombstones) into the reference binary snapshot format.
func (r *Register[Id, Value]) Snapshot(encodeID func(Id) []byte, encodeValue func(Value) []byte) ([]byte, error) {
	sink := snapshot.NewBinarySink[uint64](keyCodec())
	if err := r.core.VisitSnapshot(sink, func(e entry[Id, Value]) []byte {
		return encodeEntry(e, encodeID, encodeValue)
	}); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// RestoreRegister reconstructs a Register from bytes produced by Snapshot.
// gen continues producing ids for any subsequent local Set calls; the
// internal sequence counter resumes from the highest key found in data so
// new writes keep sorting after every restored one.
func RestoreRegister[Id comparable, Value any](data []byte, gen func() (Id, error), decodeID func([]byte) (Id, error), decodeValue func([]byte) (Value, error)) (*Register[Id, Value], error) {
	nodes, err := snapshot.ParseBinary(data, keyCodec())
	if err != nil {
		return nil, err
	}

	core, err := linear.FromSnapshotNodes[uint64, entry[Id, Value]](nodes, func(b []byte) (entry[Id, Value], error) {
		return decodeEntry[Id, Value](b, decodeID, decodeValue)
	})
	if err != nil {
		return nil, err
	}

	var maxKey uint64
	for _, n := range nodes {
		if n.ID > maxKey {
			maxKey = n.ID
		}
	}

	return &Register[Id, Value]{core: core, gen: gen, seq: maxKey}, nil
}
