package vm

import (
	berrors "bbl/internal/errors"

	"github.com/google/uuid"
)

// execNew implements `New(size)` (size -> addr): a monotonic bump
// allocator over the heap region, per spec.md §4.5 ("the specified
// reference implementation is bump-only and does not coalesce"). Each
// allocation is recorded in heapTags with a UUID; no fault message prints it.
func (v *VM) execNew() error {
	size := int(v.pop())
	if size < 0 || v.hp+size > v.maxSize {
		return v.fault(berrors.MemoryOutOfBounds, "heap exhausted: requested %d bytes at hp=%d, capacity %d", size, v.hp, v.maxSize-v.stackSize)
	}
	addr := v.hp
	v.markRange(addr, size, true)
	for i := addr; i < addr+size; i++ {
		v.memory[i] = 0
	}
	v.heapTags[addr] = heapAllocation{addr: addr, size: size, id: uuid.New()}
	v.hp += size
	v.push(uint64(addr))
	return nil
}

// execDelete implements `Delete(addr,size)` (addr,size -> ): size is on
// top of addr (the order OpDelete's codegen -- like StoreDA -- pushes
// operands in). The range must be exactly one live allocation, entirely
// within the heap region; double-free and use-after-free are both
// surfaced as MemoryNotAllocated.
func (v *VM) execDelete() error {
	size := int(v.pop())
	addr := int(v.pop())

	if addr < v.stackSize || addr+size > v.maxSize {
		return v.fault(berrors.MemoryOutOfBounds, "delete range [%d,%d) outside of heap region [%d,%d)", addr, addr+size, v.stackSize, v.maxSize)
	}
	alloc, ok := v.heapTags[addr]
	if !ok || alloc.size != size {
		return v.fault(berrors.MemoryNotAllocated, "no live allocation of size %d at address %d", size, addr)
	}
	for i := addr; i < addr+size; i++ {
		if !v.bitTest(i) {
			return v.fault(berrors.MemoryNotAllocated, "double free: byte %d already unallocated", i)
		}
	}
	v.markRange(addr, size, false)
	delete(v.heapTags, addr)
	return nil
}
