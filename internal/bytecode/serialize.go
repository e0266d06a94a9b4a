package bytecode

import (
	"bufio"
	"encoding/binary"
	"io"

	"bbl/internal/types"
	"github.com/pkg/errors"
)

// CurrentVersion is the only bytecode file version this VM implements.
// spec.md §4.4 / §6: "An unknown version is a fatal load-time error."
const CurrentVersion byte = 0

// ErrUnsupportedVersion is returned by Read when the file's version byte
// does not match CurrentVersion.
var ErrUnsupportedVersion = errors.New("bytecode: unsupported file version")

// ErrUnresolvedNode is returned by Write if asked to serialize a stream
// that still contains analysis-only placeholder nodes.
var ErrUnresolvedNode = errors.New("bytecode: stream contains unresolved SymbolicReference or RelativeOperand nodes")

// Write serializes a fully-resolved stream (Operand/Operator nodes only)
// to w using the format in spec.md §4.4: one version byte, then one
// node-kind tag byte per node followed by its payload.
func Write(w io.Writer, s *Stream) error {
	if !s.FullyResolved() {
		return ErrUnresolvedNode
	}
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte(CurrentVersion); err != nil {
		return errors.Wrap(err, "writing version byte")
	}
	var buf [8]byte
	for _, n := range s.Nodes {
		if err := bw.WriteByte(byte(n.Kind)); err != nil {
			return errors.Wrap(err, "writing node kind")
		}
		switch n.Kind {
		case KindOperand:
			binary.BigEndian.PutUint64(buf[:], n.Value)
			if _, err := bw.Write(buf[:]); err != nil {
				return errors.Wrap(err, "writing operand payload")
			}
		case KindOperator:
			if err := bw.WriteByte(byte(n.Op)); err != nil {
				return errors.Wrap(err, "writing opcode")
			}
			if err := bw.WriteByte(byte(n.Tag)); err != nil {
				return errors.Wrap(err, "writing primitive tag")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "flushing bytecode writer")
}

// Read deserializes a stream previously produced by Write. It rejects any
// version byte other than CurrentVersion.
func Read(r io.Reader) (*Stream, error) {
	br := bufio.NewReader(r)
	version, err := br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(ErrUnsupportedVersion, "empty bytecode file")
		}
		return nil, errors.Wrap(err, "reading version byte")
	}
	if version != CurrentVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got version %d, want %d", version, CurrentVersion)
	}

	s := NewStream()
	for {
		kindByte, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading node kind")
		}
		switch NodeKind(kindByte) {
		case KindOperand:
			var buf [8]byte
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				return nil, errors.Wrap(err, "reading operand payload")
			}
			s.Nodes = append(s.Nodes, Node{Kind: KindOperand, Value: binary.BigEndian.Uint64(buf[:])})
		case KindOperator:
			op, err := br.ReadByte()
			if err != nil {
				return nil, errors.Wrap(err, "reading opcode")
			}
			tag, err := br.ReadByte()
			if err != nil {
				return nil, errors.Wrap(err, "reading primitive tag")
			}
			s.Nodes = append(s.Nodes, Node{Kind: KindOperator, Op: OpCode(op), Tag: types.Kind(tag)})
		default:
			return nil, errors.Errorf("bytecode: unknown node-kind tag %d", kindByte)
		}
	}
	return s, nil
}
