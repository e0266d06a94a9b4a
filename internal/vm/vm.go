// Package vm implements the bytecode virtual machine of spec.md §4.5: a
// flat byte-addressable memory split into a stack region and a heap
// region, an allocation bitmap guarding every access, a LIFO stack of
// activation records, and a dispatch loop over bytecode.Stream.
package vm

import (
	"bbl/internal/bytecode"
	berrors "bbl/internal/errors"
	"bbl/internal/types"

	"github.com/google/uuid"
)

// Default region sizes, per spec.md §3. The CLI's --stack-size/--heap-size
// flags (SPEC_FULL.md §4) override these via Config.
const (
	DefaultStackSize = 1 << 20  // 1 MiB
	DefaultMaxSize   = 10 << 20 // 10 MiB
)

// Frame header layout, mirrored from internal/analyzer/cast.go: the
// analyser and the VM must agree on these byte offsets without either
// package importing the other.
const (
	frameRetPCOffset  = 0
	frameFlagOffset   = 8
	frameRetValOffset = 9

	// topLevelFrameSize is the size of the sentinel activation Run sets up
	// before executing instruction 0: program.go always compiles the
	// translation unit as a synthetic int32-returning function with no
	// locals of its own, so its frame is exactly the frame header -- 8
	// bytes return PC, 1 byte flag, and 4 bytes for the int32 return value
	// (frameHeaderSize in func.go reserves exactly sizeof(return value),
	// not a padded word).
	topLevelFrameSize = frameRetValOffset + 4
)

// haltSentinel is the retPC value the sentinel top-level frame is seeded
// with. Return reads it like any other frame's retPC; finding it there
// means there is no caller to jump back to, so the VM halts instead.
const haltSentinel = ^uint64(0)

// heapAllocation records the live span of one New() allocation, tagged
// with a UUID; no fault message prints the UUID (spec.md's bitmap
// remains the sole source of truth for validity).
type heapAllocation struct {
	addr, size int
	id         uuid.UUID
}

// activation is one entry of the VM's LIFO call stack, recording what to
// restore when the frame it describes is torn down by Pop.
type activation struct {
	sp, frameSize int
}

// Config overrides the VM's memory region sizing, per SPEC_FULL.md's
// --stack-size/--heap-size CLI flags. A zero field takes its spec.md
// default.
type Config struct {
	StackSize int
	MaxSize   int
}

// VM executes exactly one bytecode.Stream over exactly one memory arena; a
// VM is single-use (spec.md §5: "Re-running requires a fresh instance").
type VM struct {
	program     []bytecode.Node
	programSize int
	pc          int

	memory    []byte
	allocated []uint64 // one bit per byte of memory

	stackSize int
	maxSize   int
	hp        int // heap bump pointer, starts at stackSize

	operand []uint64 // the typed value stack instructions push/pop

	sp        int
	frameSize int
	spStack   []activation

	// funcSPs maps a function's entry pc to the base address of each of its
	// live activations, most recent last; frameFuncPC is the matching stack
	// of keys, pushed by Call and popped by Pop's teardown so the two stay
	// in lockstep with spStack.
	funcSPs     map[int][]int
	frameFuncPC []int

	saved uint64

	heapTags map[int]heapAllocation

	// Out is where Write sends char-array contents and In is where Read
	// draws newline-terminated lines from; when left nil they default to
	// os.Stdout/os.Stdin on first use, overridable so tests don't touch the
	// real console.
	Out interface{ Write([]byte) (int, error) }
	In  interface{ ReadString(byte) (string, error) }
}

// New builds a VM over a fully resolved instruction stream (spec.md §4.4:
// FullyResolved must already hold). The sentinel top-level activation is
// set up with sp=1 rather than 0, permanently reserving address 0 as a
// null-pointer sentinel distinct from a generic unallocated byte.
func New(stream *bytecode.Stream, cfg Config) *VM {
	stackSize := cfg.StackSize
	if stackSize == 0 {
		stackSize = DefaultStackSize
	}
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	v := &VM{
		program:     stream.Nodes,
		programSize: len(stream.Nodes),
		memory:      make([]byte, maxSize),
		allocated:   make([]uint64, (maxSize+63)/64),
		stackSize:   stackSize,
		maxSize:     maxSize,
		hp:          stackSize,
		sp:          1,
		frameSize:   topLevelFrameSize,
		funcSPs:     make(map[int][]int),
		heapTags:    make(map[int]heapAllocation),
	}
	v.markRange(0, stackSize, true)
	for i := 0; i < 8; i++ {
		v.memory[v.sp+frameRetPCOffset+i] = 0xFF
	}
	return v
}

func (v *VM) push(val uint64) { v.operand = append(v.operand, val) }

func (v *VM) pop() uint64 {
	n := len(v.operand)
	val := v.operand[n-1]
	v.operand = v.operand[:n-1]
	return val
}

func (v *VM) peek() uint64 { return v.operand[len(v.operand)-1] }

func (v *VM) fault(kind berrors.RuntimeFaultKind, format string, args ...interface{}) error {
	return berrors.NewRuntimeFault(kind, v.pc, format, args...)
}

// Run drives the dispatch loop of spec.md §4.5 to completion and returns
// the process exit code spec.md's "Exit:" paragraph defines: the top-level
// frame's stored int32 return value if it did return one, else 0.
func (v *VM) Run() (int32, error) {
	for v.pc < v.programSize {
		node := v.program[v.pc]
		switch node.Kind {
		case bytecode.KindSymbolicReference:
			return 0, v.fault(berrors.ReferenceOperandMet, "unresolved reference to %q reached the VM", node.Ref)
		case bytecode.KindOperand, bytecode.KindRelativeOperand:
			v.push(node.Value)
		case bytecode.KindOperator:
			if err := v.exec(node.Op, node.Tag); err != nil {
				return 0, err
			}
		}
		v.pc++
	}

	flag, err := v.readByte(v.sp + frameFlagOffset)
	if err != nil {
		return 0, err
	}
	if flag != 1 {
		return 0, nil
	}
	raw, err := v.readUint(v.sp+frameRetValOffset, 4)
	if err != nil {
		return 0, err
	}
	return int32(uint32(raw)), nil
}

// exec dispatches a single operator node. Opcodes are grouped across
// frame.go, heap.go, arith.go, and io.go; this switch is the single point
// that ties them to the dispatch loop.
func (v *VM) exec(op bytecode.OpCode, tag types.Kind) error {
	switch op {
	case bytecode.OpLoad:
		return v.execLoad(tag)
	case bytecode.OpStoreDA:
		return v.execStoreDA(tag)
	case bytecode.OpStoreAD:
		return v.execStoreAD(tag)
	case bytecode.OpJmp:
		return v.execJmp()
	case bytecode.OpJz:
		return v.execJz()
	case bytecode.OpCall:
		return v.execCall()
	case bytecode.OpPush:
		return v.execPush()
	case bytecode.OpPop:
		return v.execPop()
	case bytecode.OpSP:
		return v.execSP()
	case bytecode.OpFromSP:
		return v.execFromSP()
	case bytecode.OpReturn:
		return v.execReturn()
	case bytecode.OpFuncSP:
		return v.execFuncSP()

	case bytecode.OpNew:
		return v.execNew()
	case bytecode.OpDelete:
		return v.execDelete()

	case bytecode.OpRead:
		return v.execRead()
	case bytecode.OpWrite:
		return v.execWrite()

	case bytecode.OpDump:
		v.pop()
		return nil
	case bytecode.OpDuplicate:
		v.push(v.peek())
		return nil
	case bytecode.OpSave:
		v.saved = v.pop()
		return nil
	case bytecode.OpRestore:
		v.push(v.saved)
		return nil
	case bytecode.OpCopyFT:
		return v.execCopyFT(tag)
	case bytecode.OpCopyTF:
		return v.execCopyTF(tag)
	case bytecode.OpFill:
		return v.execFill()

	case bytecode.OpToF64:
		return v.execToF64(tag)
	case bytecode.OpFromF64:
		return v.execFromF64(tag)
	case bytecode.OpToBool:
		return v.execToBool(tag)
	case bytecode.OpToInt64:
		return v.execToInt64(tag)

	case bytecode.OpMinus:
		return v.execMinus(tag)
	case bytecode.OpTilda:
		return v.execTilda(tag)
	case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpModulus:
		return v.execArith(op, tag)
	case bytecode.OpBitwiseShiftLeft, bytecode.OpBitwiseShiftRight, bytecode.OpBitwiseAnd, bytecode.OpBitwiseOr, bytecode.OpBitwiseXor:
		return v.execBitwise(op, tag)

	case bytecode.OpInvert:
		return v.execInvert(tag)
	case bytecode.OpLess, bytecode.OpMore, bytecode.OpLessOrEqual, bytecode.OpMoreOrEqual, bytecode.OpEqual, bytecode.OpNotEqual:
		return v.execCompare(op, tag)
	}
	return v.fault(berrors.ReferenceOperandMet, "unimplemented opcode %s", op)
}
