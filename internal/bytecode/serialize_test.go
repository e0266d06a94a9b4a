package bytecode

import (
	"bytes"
	"testing"

	"bbl/internal/types"
)

func TestRoundTripOperandOperatorOnly(t *testing.T) {
	s := NewStream()
	s.Operand(14)
	s.Operand(3)
	s.Operator(OpAdd, types.I32)
	s.Operator(OpReturn, types.I32)

	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Nodes) != len(s.Nodes) {
		t.Fatalf("node count mismatch: got %d want %d", len(got.Nodes), len(s.Nodes))
	}
	for i := range s.Nodes {
		if got.Nodes[i] != s.Nodes[i] {
			t.Errorf("node %d: got %+v want %+v", i, got.Nodes[i], s.Nodes[i])
		}
	}
}

func TestWriteRejectsUnresolvedNodes(t *testing.T) {
	s := NewStream()
	s.SymbolicReference("main")
	var buf bytes.Buffer
	if err := Write(&buf, s); err == nil {
		t.Fatal("expected Write to reject a stream with an unresolved SymbolicReference")
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	buf := bytes.NewBuffer([]byte{7})
	if _, err := Read(buf); err == nil {
		t.Fatal("expected Read to reject an unknown version byte")
	}
}

func TestResolveSymbolicReferences(t *testing.T) {
	s := NewStream()
	ref := s.SymbolicReference("fact")
	s.Operator(OpCall, types.I64)
	s.ResolveSymbolicReferences(map[string]int{"fact": 42})
	if s.Nodes[ref].Kind != KindOperand || s.Nodes[ref].Value != 42 {
		t.Fatalf("symbolic reference not resolved: %+v", s.Nodes[ref])
	}
}
