package analyzer

import (
	"bbl/internal/bytecode"
	"bbl/internal/types"
)

// needsLoad reports whether an expression result is address-bearing on the
// operand stack (a Variable, or a reference-qualified temporary) and must
// therefore be dereferenced with Load before it can be used as a plain
// value.
func needsLoad(cat types.ValueCategory, t *types.Type) bool {
	return cat == types.Variable || t.Reference
}

// materialize emits a Load if the expression result is currently an
// address rather than a value, returning the (possibly new) type with the
// reference qualifier stripped -- after this call the operand stack always
// holds a value, never an address.
func (a *Analyzer) materialize(cat types.ValueCategory, t *types.Type) *types.Type {
	if !needsLoad(cat, t) {
		return t
	}
	plain := types.WithReference(t, false)
	a.stream.Operator(bytecode.OpLoad, widthTag(plain))
	return plain
}

// voidKind is the sentinel primitive kind parseType uses for `void`: never
// loaded, stored or cast, valid only as a function's declared return type.
const voidKind = types.Kind(255)

func isVoidType(t *types.Type) bool {
	return t.Variant == types.VariantPrimitive && t.Prim == voidKind
}

// Frame header layout, per spec.md §4.3: an 8-byte return PC, a 1-byte
// did-return flag, then the return value, then locals.
const (
	frameRetPCOffset = 0
	frameFlagOffset  = 8
	frameRetValOffset = 9
)

// widthTag picks the primitive tag an opcode needs to know a type's byte
// width; non-primitive types (pointers, arrays) are always 8 bytes wide and
// are tagged as I64 so the VM's width table resolves correctly.
func widthTag(t *types.Type) types.Kind {
	if t.Variant == types.VariantPrimitive {
		return t.Prim
	}
	return types.I64
}

// emitCast implements spec.md §4.1's emit_cast: it appends the minimum
// instruction sequence that turns whatever is already on the operand stack
// (a value of type `from`, value-category `fromCat`) into a value of type
// `to`. The caller has already verified CanCast(fromCat, from, to) is not
// Impossible.
func (a *Analyzer) emitCast(fromCat types.ValueCategory, from, to *types.Type) {
	cur := from
	if needsLoad(fromCat, from) && !to.Reference {
		cur = a.materialize(fromCat, from)
	}

	if cur.Variant != types.VariantPrimitive || to.Variant != types.VariantPrimitive {
		return // pointer<->pointer, array<->array: representation is already identical (8 bytes)
	}
	if types.KindSize(cur.Prim) == types.KindSize(to.Prim) && cur.Prim == to.Prim {
		return
	}

	switch {
	case to.Prim == types.F64:
		a.stream.Operator(bytecode.OpToF64, cur.Prim)
	case cur.Prim == types.F64:
		a.stream.Operator(bytecode.OpFromF64, to.Prim)
	case to.Prim == types.Bool:
		a.stream.Operator(bytecode.OpToBool, cur.Prim)
	case to.Prim == types.I64 || to.Prim == types.U64:
		a.stream.Operator(bytecode.OpToInt64, cur.Prim)
	case cur.Prim == types.F32 || to.Prim == types.F32:
		a.stream.Operator(bytecode.OpToF64, cur.Prim)
		a.stream.Operator(bytecode.OpFromF64, to.Prim)
	default:
		a.stream.Operator(bytecode.OpToInt64, cur.Prim)
		mask := uint64(1)<<(8*uint(types.KindSize(to.Prim))) - 1
		a.stream.Operand(mask)
		a.stream.Operator(bytecode.OpBitwiseAnd, to.Prim)
	}
}
