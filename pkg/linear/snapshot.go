package linear

import (
	"cmp"

	"github.com/cshekharsharma/go-crdt/pkg/snapshot"
)

// VisitSnapshot streams the current node table through sink in canonical
// order. encodeValue maps a live/tombstoned Value to its wire payload.
func (c *Core[Id, Value]) VisitSnapshot(sink snapshot.Sink[Id], encodeValue func(Value) []byte) error {
	if err := sink.Begin(snapshot.Header{NodeCount: len(c.nodes)}); err != nil {
		return err
	}
	lastIndex := len(c.nodes) - 1
	for index := range c.nodes {
		n := &c.nodes[index]
		isBoundary := index == 0 || index == lastIndex
		var deleted bool
		var value []byte
		if !isBoundary {
			switch n.state {
			case stateInsert:
				deleted = false
				value = encodeValue(n.value)
			case stateDelete:
				deleted = true
				value = encodeValue(n.value)
			default:
				panic("linear: non-boundary node cannot be beginning/end")
			}
		}
		ref := snapshot.NodeRef[Id]{
			ID:      n.id,
			Left:    n.leftOrigin,
			Right:   n.rightOrigin,
			Deleted: deleted,
			Value:   value,
		}
		if err := sink.Node(index, ref); err != nil {
			return err
		}
	}
	return sink.End()
}

// FromSnapshotNodes reconstructs a Core from an ordered, already-validated
// sequence of snapshot.Node values (see snapshot.DecodeNodes), decoding each
// payload with decodeValue.
func FromSnapshotNodes[Id cmp.Ordered, Value any](nodes []snapshot.Node[Id], decodeValue func([]byte) (Value, error)) (*Core[Id, Value], error) {
	if err := snapshot.DecodeNodes(nodes); err != nil {
		return nil, err
	}

	out := make([]node[Id, Value], len(nodes))
	liveCount := 0
	for i, n := range nodes {
		gn := node[Id, Value]{id: n.ID, leftOrigin: n.Left, rightOrigin: n.Right}
		switch {
		case i == 0:
			gn.state = stateBeginning
		case i == len(nodes)-1:
			gn.state = stateEnd
		default:
			value, err := decodeValue(n.Value)
			if err != nil {
				return nil, err
			}
			gn.value = value
			if n.Deleted {
				gn.state = stateDelete
			} else {
				gn.state = stateInsert
				liveCount++
			}
		}
		out[i] = gn
	}
	return &Core[Id, Value]{nodes: out, liveCount: liveCount}, nil
}
