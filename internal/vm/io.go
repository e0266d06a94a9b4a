package vm

import (
	berrors "bbl/internal/errors"
	"bbl/internal/types"
	"bufio"
	"os"

	"github.com/google/uuid"
)

// reader lazily wraps os.Stdin the first time execRead needs it, so a VM
// constructed without an explicit In (every real invocation) still works;
// tests that need a canned input stream set In directly before Run.
func (v *VM) reader() interface {
	ReadString(byte) (string, error)
} {
	if v.In == nil {
		v.In = bufio.NewReader(os.Stdin)
	}
	return v.In
}

// execRead implements `Read`: one newline-terminated line from stdin,
// heap-allocated as a NUL-terminated char array descriptor (spec.md §4.4,
// mirroring emitStringLiteral's NUL-termination convention in expr.go).
func (v *VM) execRead() error {
	line, _ := v.reader().ReadString('\n')
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}

	size := len(line) + 1
	if v.hp+size > v.maxSize {
		return v.fault(berrors.MemoryOutOfBounds, "heap exhausted reading %d bytes", size)
	}
	addr := v.hp
	v.markRange(addr, size, true)
	copy(v.memory[addr:addr+len(line)], line)
	v.memory[addr+len(line)] = 0
	v.heapTags[addr] = heapAllocation{addr: addr, size: size, id: uuid.New()}
	v.hp += size
	v.push(uint64(addr))
	return nil
}

// execWrite implements `Write(addr)`: scan forward from addr until a NUL
// byte and print those bytes.
func (v *VM) execWrite() error {
	addr := int(v.pop())
	start := addr
	for {
		b, err := v.readByte(addr)
		if err != nil {
			return err
		}
		if b == 0 {
			break
		}
		addr++
	}
	out := v.writer()
	_, err := out.Write(v.memory[start:addr])
	return err
}

func (v *VM) writer() interface{ Write([]byte) (int, error) } {
	if v.Out == nil {
		v.Out = os.Stdout
	}
	return v.Out
}

// execCopyFT implements `CopyFT` (from,to -> ): to is on top, mirroring
// the "FT"/"TF" suffix order of the two operands' names. Not emitted by
// the analyser; included for catalogue completeness.
func (v *VM) execCopyFT(w types.Kind) error {
	to := int(v.pop())
	from := int(v.pop())
	return v.copyBytes(from, to, types.KindSize(w))
}

// execCopyTF implements `CopyTF` (to,from -> ): from is on top.
func (v *VM) execCopyTF(w types.Kind) error {
	from := int(v.pop())
	to := int(v.pop())
	return v.copyBytes(from, to, types.KindSize(w))
}

func (v *VM) copyBytes(from, to, size int) error {
	if err := v.checkAccess(from, size); err != nil {
		return err
	}
	if err := v.checkAccess(to, size); err != nil {
		return err
	}
	copy(v.memory[to:to+size], v.memory[from:from+size])
	return nil
}

// execFill implements `Fill(addr,count)` (addr,count -> ): count is on
// top, matching StoreDA's "data last consumed first" convention.
func (v *VM) execFill() error {
	count := int(v.pop())
	addr := int(v.pop())
	if err := v.checkAccess(addr, count); err != nil {
		return err
	}
	for i := addr; i < addr+count; i++ {
		v.memory[i] = 0
	}
	return nil
}
