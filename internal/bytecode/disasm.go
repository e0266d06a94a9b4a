package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a stream as human-readable text, one line per node,
// prefixed with its PC. It never claims to be a debugger -- there is no
// source mapping, just a static view of the resolved instruction stream --
// and is meant for the property tests in spec.md §8 and manual inspection
// of compiled `.bbl` files.
func Disassemble(s *Stream) string {
	var sb strings.Builder
	for pc, n := range s.Nodes {
		switch n.Kind {
		case KindOperand:
			fmt.Fprintf(&sb, "%6d  OPERAND   %d\n", pc, n.Value)
		case KindOperator:
			fmt.Fprintf(&sb, "%6d  %-10s %s\n", pc, n.Op, n.Tag)
		case KindSymbolicReference:
			fmt.Fprintf(&sb, "%6d  SYMREF    %s\n", pc, n.Ref)
		case KindRelativeOperand:
			fmt.Fprintf(&sb, "%6d  RELOPND   %d\n", pc, n.Value)
		}
	}
	return sb.String()
}
