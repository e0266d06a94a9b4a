package vm

import (
	berrors "bbl/internal/errors"
	"bbl/internal/types"
	"math"
)

// bitSet/bitClear/bitTest implement the one-bit-per-byte allocation map of
// spec.md §3 over a []uint64 word array.
func (v *VM) bitSet(i int)        { v.allocated[i/64] |= 1 << uint(i%64) }
func (v *VM) bitClear(i int)      { v.allocated[i/64] &^= 1 << uint(i%64) }
func (v *VM) bitTest(i int) bool  { return v.allocated[i/64]&(1<<uint(i%64)) != 0 }

func (v *VM) markRange(addr, size int, allocated bool) {
	for i := addr; i < addr+size; i++ {
		if allocated {
			v.bitSet(i)
		} else {
			v.bitClear(i)
		}
	}
}

// checkAccess enforces spec.md §3/§4.5's three access faults, in priority
// order: address 0 is always a null-pointer fault regardless of its
// allocation bit (the sentinel top-level activation starts at sp=1
// specifically to keep byte 0 out of every real frame); an address outside
// [0, maxSize) is out of bounds; otherwise every byte in the span must
// carry its allocation bit.
func (v *VM) checkAccess(addr, size int) error {
	if addr <= 0 && addr+size > 0 {
		return v.fault(berrors.NullptrAccessed, "dereferenced address 0")
	}
	if addr < 0 || addr+size > v.maxSize {
		return v.fault(berrors.MemoryOutOfBounds, "access [%d,%d) outside of memory [0,%d)", addr, addr+size, v.maxSize)
	}
	for i := addr; i < addr+size; i++ {
		if !v.bitTest(i) {
			return v.fault(berrors.MemoryNotAllocated, "byte %d is not allocated", i)
		}
	}
	return nil
}

func (v *VM) readByte(addr int) (byte, error) {
	if err := v.checkAccess(addr, 1); err != nil {
		return 0, err
	}
	return v.memory[addr], nil
}

func (v *VM) writeByte(addr int, b byte) error {
	if err := v.checkAccess(addr, 1); err != nil {
		return err
	}
	v.memory[addr] = b
	return nil
}

// readUint reads size little-endian bytes starting at addr into a uint64,
// size in [1,8].
func (v *VM) readUint(addr, size int) (uint64, error) {
	if err := v.checkAccess(addr, size); err != nil {
		return 0, err
	}
	var val uint64
	for i := 0; i < size; i++ {
		val |= uint64(v.memory[addr+i]) << uint(8*i)
	}
	return val, nil
}

func (v *VM) writeUint(addr, size int, val uint64) error {
	if err := v.checkAccess(addr, size); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		v.memory[addr+i] = byte(val >> uint(8*i))
	}
	return nil
}

// prune implements spec.md §4.5's prune(v, type) = v & ((1 << 8*size) - 1),
// masking a raw uint64 down to the byte width of a primitive kind.
func prune(v uint64, k types.Kind) uint64 {
	size := types.KindSize(k)
	if size >= 8 {
		return v
	}
	return v & (uint64(1)<<(8*uint(size)) - 1)
}

// signExtend reinterprets a pruned value at kind k's width as a signed
// integer and sign-extends it to the full 64 bits, for kinds where
// IsInteger(k) && !IsUnsigned(k).
func signExtend(v uint64, k types.Kind) int64 {
	size := types.KindSize(k)
	v = prune(v, k)
	if size >= 8 {
		return int64(v)
	}
	shift := uint(64 - 8*size)
	return int64(v<<shift) >> shift
}

// asFloat64 widens a raw operand tagged with kind k into a float64: a
// direct bit-reinterpretation for F32/F64, otherwise the integer value the
// bits represent (sign-extended for signed kinds, zero-extended for
// unsigned/bool/char).
func asFloat64(v uint64, k types.Kind) float64 {
	switch k {
	case types.F32:
		return float64(math.Float32frombits(uint32(v)))
	case types.F64:
		return math.Float64frombits(v)
	}
	if types.IsUnsigned(k) || k == types.Bool || k == types.Char {
		return float64(prune(v, k))
	}
	return float64(signExtend(v, k))
}

// floatBits narrows a float64 result back down to kind k's raw
// representation (F32 or F64 only; the caller picks the right width).
func floatBits(f float64, k types.Kind) uint64 {
	if k == types.F32 {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}
