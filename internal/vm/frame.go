package vm

import (
	berrors "bbl/internal/errors"
	"bbl/internal/types"
)

// execLoad implements `Load(w)` (addr -> value): read the w-wide value at
// the popped address, zero-extended into a uint64. Signed interpretation
// is left to whichever consumer (a cast, an arithmetic opcode) needs it.
func (v *VM) execLoad(w types.Kind) error {
	addr := int(v.pop())
	val, err := v.readUint(addr, types.KindSize(w))
	if err != nil {
		return err
	}
	v.push(val)
	return nil
}

// execStoreDA implements `StoreDA(w)` (data,addr -> ): addr is on top.
func (v *VM) execStoreDA(w types.Kind) error {
	addr := int(v.pop())
	data := v.pop()
	return v.writeUint(addr, types.KindSize(w), prune(data, w))
}

// execStoreAD implements `StoreAD(w)` (addr,data -> ): data is on top.
func (v *VM) execStoreAD(w types.Kind) error {
	data := v.pop()
	addr := int(v.pop())
	return v.writeUint(addr, types.KindSize(w), prune(data, w))
}

func (v *VM) execJmp() error {
	addr := int(v.pop())
	if addr < 0 || addr > v.programSize {
		return v.fault(berrors.JumpOutsideOfProgram, "jump target %d outside of program [0,%d]", addr, v.programSize)
	}
	v.pc = addr - 1
	return nil
}

// execJz implements `Jz` (cond,addr -> ): addr is on top.
func (v *VM) execJz() error {
	addr := int(v.pop())
	cond := v.pop()
	if prune(cond, types.Bool) != 0 {
		return nil
	}
	if addr < 0 || addr > v.programSize {
		return v.fault(berrors.JumpOutsideOfProgram, "jump target %d outside of program [0,%d]", addr, v.programSize)
	}
	v.pc = addr - 1
	return nil
}

// execSP implements `SP`: push the current frame's base address.
func (v *VM) execSP() error {
	v.push(uint64(v.sp))
	return nil
}

// execFromSP implements `FromSP` (off -> abs), called as `SP; Operand(off);
// FromSP` at every call site, so the real stack effect is two operands:
// off on top (pushed by the Operand node) and base beneath it (pushed by
// SP).
func (v *VM) execFromSP() error {
	off := v.pop()
	base := v.pop()
	v.push(base + off)
	return nil
}

// execPush implements `Push(size,func_pc)` (-> ): allocates a new
// activation directly above the current one and zero-initializes it.
// func_pc is on top of size (the order emitCallDispatch emits them in) but
// is otherwise unused here -- it is Call, not Push, that records the
// activation for FuncSP queries, since the entry pc a call lands on is
// only known once Call has jumped.
func (v *VM) execPush() error {
	_ = int(v.pop()) // func_pc, consumed by the matching Call instead
	size := int(v.pop())

	base := v.sp + v.frameSize
	if base+size > v.stackSize {
		return v.fault(berrors.MemoryOutOfBounds, "stack overflow: frame of %d bytes at %d exceeds stack region of %d bytes", size, base, v.stackSize)
	}
	for i := base; i < base+size; i++ {
		v.memory[i] = 0
	}

	v.spStack = append(v.spStack, activation{sp: v.sp, frameSize: v.frameSize})
	v.sp, v.frameSize = base, size
	return nil
}

// execCall implements `Call(addr)` (addr -> ): records the return PC into
// the frame Push just activated, registers that activation under addr for
// FuncSP, then jumps.
func (v *VM) execCall() error {
	addr := int(v.pop())
	if err := v.writeUint(v.sp+frameRetPCOffset, 8, uint64(v.pc+1)); err != nil {
		return err
	}
	if addr < 0 || addr > v.programSize {
		return v.fault(berrors.JumpOutsideOfProgram, "call target %d outside of program [0,%d]", addr, v.programSize)
	}
	v.funcSPs[addr] = append(v.funcSPs[addr], v.sp)
	v.frameFuncPC = append(v.frameFuncPC, addr)
	v.pc = addr - 1
	return nil
}

// execPop implements `Pop`: the actual frame teardown. Every call site
// emits it right after reading the callee's return value out of the still
// live frame (see emitCallDispatch) -- Return itself never shrinks the
// stack, so Pop is what every call site relies on to reclaim it.
func (v *VM) execPop() error {
	return v.teardownFrame()
}

func (v *VM) teardownFrame() error {
	if len(v.spStack) == 0 {
		return v.fault(berrors.JumpOutsideOfProgram, "frame teardown with no enclosing activation")
	}
	funcPC := v.frameFuncPC[len(v.frameFuncPC)-1]
	v.frameFuncPC = v.frameFuncPC[:len(v.frameFuncPC)-1]
	if bases := v.funcSPs[funcPC]; len(bases) > 0 {
		v.funcSPs[funcPC] = bases[:len(bases)-1]
	}

	top := v.spStack[len(v.spStack)-1]
	v.spStack = v.spStack[:len(v.spStack)-1]
	v.sp, v.frameSize = top.sp, top.frameSize
	return nil
}

// execReturn implements `Return`: read the current frame's retPC and jump
// to it. Return does not touch the operand stack and does not tear the
// frame down -- it only knows where to resume the caller; reclaiming the
// frame and collecting its return value are the caller's job (Pop and an
// explicit SP/FromSP/Load sequence in emitCallDispatch), since by the time
// control reaches the caller the frame it just left is still addressable
// through SP. The top-level frame is seeded with haltSentinel instead of
// a real retPC, so its Return halts the program rather than jumping.
func (v *VM) execReturn() error {
	retPC, err := v.readUint(v.sp+frameRetPCOffset, 8)
	if err != nil {
		return err
	}
	if retPC == haltSentinel {
		v.pc = v.programSize - 1
		return nil
	}
	if retPC > uint64(v.programSize) {
		return v.fault(berrors.JumpOutsideOfProgram, "return target %d outside of program [0,%d]", retPC, v.programSize)
	}
	v.pc = int(retPC) - 1
	return nil
}

// execFuncSP implements `FuncSP` (pc -> base of latest activation of F).
func (v *VM) execFuncSP() error {
	addr := int(v.pop())
	bases := v.funcSPs[addr]
	if len(bases) == 0 {
		return v.fault(berrors.FunctionNotCalled, "function at pc=%d has never been called", addr)
	}
	v.push(uint64(bases[len(bases)-1]))
	return nil
}
