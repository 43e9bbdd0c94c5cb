package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var magic = [4]byte{'S', 'N', 'A', 'P'}

const endMarker byte = 0xEE

const (
	flagHasLeft  byte = 1 << 0
	flagHasRight byte = 1 << 1
	flagHasValue byte = 1 << 2
	flagDeleted  byte = 1 << 3
)

// IDCodec converts between an opaque Id and its length-prefixed wire bytes.
type IDCodec[Id any] struct {
	Encode func(Id) []byte
	Decode func([]byte) (Id, error)
}

// BinarySink is the reference byte-shape encoder described in the external
// interface section: 4-byte magic, LE u32 node count, then per node a 4-byte
// index, a 1-byte flag byte, and length-prefixed id/left/right/value fields,
// followed by a 1-byte end marker.
type BinarySink[Id any] struct {
	buf           bytes.Buffer
	expectedIndex int
	nodeCount     int
	began         bool
	ended         bool
	codec         IDCodec[Id]
}

// NewBinarySink creates a BinarySink using codec to encode ids.
func NewBinarySink[Id any](codec IDCodec[Id]) *BinarySink[Id] {
	return &BinarySink[Id]{codec: codec}
}

// Bytes returns the accumulated encoded stream. Only meaningful after End.
func (s *BinarySink[Id]) Bytes() []byte {
	return s.buf.Bytes()
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) error {
	if len(data) > int(^uint32(0)) {
		return fmt.Errorf("snapshot: field too large to encode")
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
	return nil
}

// Begin implements Sink.
func (s *BinarySink[Id]) Begin(header Header) error {
	if s.began {
		return fmt.Errorf("snapshot: begin called twice")
	}
	s.began = true
	s.nodeCount = header.NodeCount
	s.buf.Write(magic[:])
	var countBuf [4]byte
	if header.NodeCount > int(^uint32(0)) {
		return fmt.Errorf("snapshot: too many nodes")
	}
	binary.LittleEndian.PutUint32(countBuf[:], uint32(header.NodeCount))
	s.buf.Write(countBuf[:])
	return nil
}

// Node implements Sink.
func (s *BinarySink[Id]) Node(index int, n NodeRef[Id]) error {
	if !s.began {
		return fmt.Errorf("snapshot: node called before begin")
	}
	if s.expectedIndex != index {
		return fmt.Errorf("snapshot: unexpected index, expected %d, got %d", s.expectedIndex, index)
	}
	s.expectedIndex++

	var idxBuf [4]byte
	binary.LittleEndian.PutUint32(idxBuf[:], uint32(index))
	s.buf.Write(idxBuf[:])

	var flags byte
	if n.Left != nil {
		flags |= flagHasLeft
	}
	if n.Right != nil {
		flags |= flagHasRight
	}
	if n.Value != nil {
		flags |= flagHasValue
	}
	if n.Deleted {
		flags |= flagDeleted
	}
	s.buf.WriteByte(flags)

	if err := writeLenPrefixed(&s.buf, s.codec.Encode(n.ID)); err != nil {
		return err
	}
	if n.Left != nil {
		if err := writeLenPrefixed(&s.buf, s.codec.Encode(*n.Left)); err != nil {
			return err
		}
	}
	if n.Right != nil {
		if err := writeLenPrefixed(&s.buf, s.codec.Encode(*n.Right)); err != nil {
			return err
		}
	}
	if n.Value != nil {
		if err := writeLenPrefixed(&s.buf, n.Value); err != nil {
			return err
		}
	}
	return nil
}

// End implements Sink.
func (s *BinarySink[Id]) End() error {
	if !s.began {
		return fmt.Errorf("snapshot: end called before begin")
	}
	if s.ended {
		return fmt.Errorf("snapshot: end called twice")
	}
	if s.expectedIndex != s.nodeCount {
		return fmt.Errorf("snapshot: end called before all nodes were emitted: expected %d, got %d", s.nodeCount, s.expectedIndex)
	}
	s.buf.WriteByte(endMarker)
	s.ended = true
	return nil
}

// ParseBinary decodes a BinarySink-produced stream back into Node values, in
// canonical order, without yet enforcing the sentinel/value invariants (use
// DecodeNodes for that, which consumes this output).
func ParseBinary[Id any](data []byte, codec IDCodec[Id]) ([]Node[Id], error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := r.Read(gotMagic[:]); err != nil || gotMagic != magic {
		return nil, fmt.Errorf("snapshot: missing or invalid magic")
	}
	var countBuf [4]byte
	if _, err := r.Read(countBuf[:]); err != nil {
		return nil, fmt.Errorf("snapshot: truncated node count")
	}
	nodeCount := int(binary.LittleEndian.Uint32(countBuf[:]))

	readLenPrefixed := func() ([]byte, error) {
		var lenBuf [4]byte
		if _, err := r.Read(lenBuf[:]); err != nil {
			return nil, fmt.Errorf("snapshot: truncated field length")
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		data := make([]byte, n)
		if n > 0 {
			if _, err := r.Read(data); err != nil {
				return nil, fmt.Errorf("snapshot: truncated field data")
			}
		}
		return data, nil
	}

	nodes := make([]Node[Id], 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		var idxBuf [4]byte
		if _, err := r.Read(idxBuf[:]); err != nil {
			return nil, fmt.Errorf("snapshot: truncated node index")
		}
		if got := int(binary.LittleEndian.Uint32(idxBuf[:])); got != i {
			return nil, fmt.Errorf("snapshot: unexpected node index %d, expected %d", got, i)
		}
		flagByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("snapshot: truncated flags")
		}

		idBytes, err := readLenPrefixed()
		if err != nil {
			return nil, err
		}
		id, err := codec.Decode(idBytes)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decoding id: %w", err)
		}

		n := Node[Id]{ID: id, Deleted: flagByte&flagDeleted != 0}
		if flagByte&flagHasLeft != 0 {
			leftBytes, err := readLenPrefixed()
			if err != nil {
				return nil, err
			}
			left, err := codec.Decode(leftBytes)
			if err != nil {
				return nil, fmt.Errorf("snapshot: decoding left: %w", err)
			}
			n.Left = &left
		}
		if flagByte&flagHasRight != 0 {
			rightBytes, err := readLenPrefixed()
			if err != nil {
				return nil, err
			}
			right, err := codec.Decode(rightBytes)
			if err != nil {
				return nil, fmt.Errorf("snapshot: decoding right: %w", err)
			}
			n.Right = &right
		}
		if flagByte&flagHasValue != 0 {
			value, err := readLenPrefixed()
			if err != nil {
				return nil, err
			}
			n.Value = value
		}
		nodes = append(nodes, n)
	}

	marker, err := r.ReadByte()
	if err != nil || marker != endMarker {
		return nil, fmt.Errorf("snapshot: missing end marker")
	}
	return nodes, nil
}

// DecodeNodes validates the full sentinel/boundary invariants across an
// ordered sequence of Node values (as produced by ParseBinary or any other
// transport), mirroring the reconstruction rules enforced when rebuilding a
// CRDT from a snapshot stream.
func DecodeNodes[Id any](nodes []Node[Id]) error {
	if len(nodes) < 2 {
		return &ReadError{Kind: ReadErrMissingBoundaryNodes}
	}
	first := nodes[0]
	if first.Left != nil {
		return &ReadError{Kind: ReadErrBoundaryNodeHasLeft, Index: 0}
	}
	if first.Value != nil {
		return &ReadError{Kind: ReadErrBoundaryNodeHasValue, Index: 0}
	}
	if first.Deleted {
		return &ReadError{Kind: ReadErrBoundaryNodeMarkedDeleted, Index: 0}
	}

	last := nodes[len(nodes)-1]
	lastIdx := len(nodes) - 1
	if last.Right != nil {
		return &ReadError{Kind: ReadErrBoundaryNodeHasRight, Index: lastIdx}
	}
	if last.Value != nil {
		return &ReadError{Kind: ReadErrBoundaryNodeHasValue, Index: lastIdx}
	}
	if last.Deleted {
		return &ReadError{Kind: ReadErrBoundaryNodeMarkedDeleted, Index: lastIdx}
	}

	for i := 1; i < lastIdx; i++ {
		n := nodes[i]
		if n.Left == nil {
			return &ReadError{Kind: ReadErrNonBoundaryNodeMissingLeft, Index: i}
		}
		if n.Right == nil {
			return &ReadError{Kind: ReadErrNonBoundaryNodeMissingRight, Index: i}
		}
		if n.Value == nil {
			return &ReadError{Kind: ReadErrNonBoundaryNodeMissingValue, Index: i}
		}
	}
	return nil
}
