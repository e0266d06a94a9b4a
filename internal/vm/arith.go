package vm

import (
	"bbl/internal/bytecode"
	berrors "bbl/internal/errors"
	"bbl/internal/types"
	"math"
)

// execMinus implements unary `Minus(w)`: arithmetic negation, two's
// complement for integers, IEEE-754 negation for floats.
func (v *VM) execMinus(w types.Kind) error {
	raw := v.pop()
	if types.IsFloat(w) {
		v.push(floatBits(-asFloat64(raw, w), w))
		return nil
	}
	v.push(prune(^prune(raw, w)+1, w))
	return nil
}

// execTilda implements unary `Tilda(w)`: bitwise complement, integers
// only per the operator table.
func (v *VM) execTilda(w types.Kind) error {
	raw := v.pop()
	v.push(prune(^prune(raw, w), w))
	return nil
}

// execArith implements Add/Subtract/Multiply/Divide/Modulus, all
// parameterised by a single shared width tag -- safe because
// internal/optable's binary signature table only ever registers
// same-primitive-kind operand pairs, so both popped operands are
// guaranteed to already share tag's kind by the time this opcode is
// reached.
func (v *VM) execArith(op bytecode.OpCode, w types.Kind) error {
	rhs := v.pop()
	lhs := v.pop()

	if types.IsFloat(w) {
		a, b := asFloat64(lhs, w), asFloat64(rhs, w)
		var f float64
		switch op {
		case bytecode.OpAdd:
			f = a + b
		case bytecode.OpSubtract:
			f = a - b
		case bytecode.OpMultiply:
			f = a * b
		case bytecode.OpDivide:
			if b == 0 {
				return v.fault(berrors.DivisionByZero, "float division by zero")
			}
			f = a / b
		case bytecode.OpModulus:
			if b == 0 {
				return v.fault(berrors.DivisionByZero, "float modulus by zero")
			}
			f = math.Mod(a, b)
		}
		v.push(floatBits(f, w))
		return nil
	}

	var result uint64
	if types.IsUnsigned(w) || w == types.Bool || w == types.Char {
		a, b := prune(lhs, w), prune(rhs, w)
		switch op {
		case bytecode.OpAdd:
			result = a + b
		case bytecode.OpSubtract:
			result = a - b
		case bytecode.OpMultiply:
			result = a * b
		case bytecode.OpDivide:
			if b == 0 {
				return v.fault(berrors.DivisionByZero, "integer division by zero")
			}
			result = a / b
		case bytecode.OpModulus:
			if b == 0 {
				return v.fault(berrors.DivisionByZero, "integer modulus by zero")
			}
			result = a % b
		}
	} else {
		a, b := signExtend(lhs, w), signExtend(rhs, w)
		var r int64
		switch op {
		case bytecode.OpAdd:
			r = a + b
		case bytecode.OpSubtract:
			r = a - b
		case bytecode.OpMultiply:
			r = a * b
		case bytecode.OpDivide:
			if b == 0 {
				return v.fault(berrors.DivisionByZero, "integer division by zero")
			}
			r = a / b
		case bytecode.OpModulus:
			if b == 0 {
				return v.fault(berrors.DivisionByZero, "integer modulus by zero")
			}
			r = a % b
		}
		result = uint64(r)
	}
	v.push(prune(result, w))
	return nil
}

// execBitwise implements the shift and bitwise-logical family. Left shift
// and And/Or/Xor have no signedness distinction; right shift must: logical
// (zero-fill) for unsigned/bool/char, arithmetic (sign-fill) for signed --
// spec.md §9 explicitly calls out a reference-implementation bug where
// BitwiseShiftRight dispatches to BitwiseShiftLeft, which this must not
// reproduce.
func (v *VM) execBitwise(op bytecode.OpCode, w types.Kind) error {
	rhs := v.pop()
	lhs := v.pop()
	count := prune(rhs, w)

	switch op {
	case bytecode.OpBitwiseAnd:
		v.push(prune(prune(lhs, w)&prune(rhs, w), w))
	case bytecode.OpBitwiseOr:
		v.push(prune(prune(lhs, w)|prune(rhs, w), w))
	case bytecode.OpBitwiseXor:
		v.push(prune(prune(lhs, w)^prune(rhs, w), w))
	case bytecode.OpBitwiseShiftLeft:
		v.push(prune(prune(lhs, w)<<count, w))
	case bytecode.OpBitwiseShiftRight:
		if types.IsUnsigned(w) || w == types.Bool || w == types.Char {
			v.push(prune(prune(lhs, w)>>count, w))
		} else {
			v.push(prune(uint64(signExtend(lhs, w)>>count), w))
		}
	}
	return nil
}

// execInvert implements logical `!`: the truthiness test mirrors ToBool,
// since source's unary `!` is defined on any numeric/bool operand, not
// just bool.
func (v *VM) execInvert(w types.Kind) error {
	raw := v.pop()
	if truthy(raw, w) {
		v.push(0)
	} else {
		v.push(1)
	}
	return nil
}

// execCompare implements Less/More/LessOrEqual/MoreOrEqual/Equal/NotEqual,
// all producing a bool (0 or 1).
func (v *VM) execCompare(op bytecode.OpCode, w types.Kind) error {
	rhs := v.pop()
	lhs := v.pop()

	var less, equal bool
	switch {
	case types.IsFloat(w):
		a, b := asFloat64(lhs, w), asFloat64(rhs, w)
		less, equal = a < b, a == b
	case types.IsUnsigned(w) || w == types.Bool || w == types.Char:
		a, b := prune(lhs, w), prune(rhs, w)
		less, equal = a < b, a == b
	default:
		a, b := signExtend(lhs, w), signExtend(rhs, w)
		less, equal = a < b, a == b
	}

	var result bool
	switch op {
	case bytecode.OpLess:
		result = less
	case bytecode.OpMore:
		result = !less && !equal
	case bytecode.OpLessOrEqual:
		result = less || equal
	case bytecode.OpMoreOrEqual:
		result = !less
	case bytecode.OpEqual:
		result = equal
	case bytecode.OpNotEqual:
		result = !equal
	}
	if result {
		v.push(1)
	} else {
		v.push(0)
	}
	return nil
}

// truthy implements the ToBool(w) test: for float kinds, compare the
// decoded value against 0.0 (so -0.0 is correctly falsy); otherwise test
// the pruned raw bits against zero.
func truthy(raw uint64, w types.Kind) bool {
	if types.IsFloat(w) {
		return asFloat64(raw, w) != 0
	}
	return prune(raw, w) != 0
}

// execToBool implements `ToBool(w)` (non-zero test).
func (v *VM) execToBool(w types.Kind) error {
	raw := v.pop()
	if truthy(raw, w) {
		v.push(1)
	} else {
		v.push(0)
	}
	return nil
}

// execToF64 implements `ToF64(w)`: interpret the popped value as kind w
// and widen it to a float64, pushed as raw IEEE-754 bits.
func (v *VM) execToF64(w types.Kind) error {
	raw := v.pop()
	v.push(math.Float64bits(asFloat64(raw, w)))
	return nil
}

// execFromF64 implements `FromF64(w)`: narrow a raw f64 bit pattern down
// to kind w, which may itself be F32 (the f32<->other round-trip path in
// emitCast) or an integer/bool kind (truncating toward zero).
func (v *VM) execFromF64(w types.Kind) error {
	raw := v.pop()
	f := math.Float64frombits(raw)
	switch w {
	case types.F32:
		v.push(uint64(math.Float32bits(float32(f))))
	case types.Bool:
		if f != 0 {
			v.push(1)
		} else {
			v.push(0)
		}
	default:
		v.push(prune(uint64(int64(f)), w))
	}
	return nil
}

// execToInt64 implements `ToInt64(w)`: widen the popped value of kind w to
// a full 64-bit integer representation. w may be F32 directly (emit_cast
// rule 5 reaches ToInt64 before the f32 round-trip rule when the target is
// already i64/u64).
func (v *VM) execToInt64(w types.Kind) error {
	raw := v.pop()
	switch {
	case w == types.F32:
		v.push(uint64(int64(asFloat64(raw, w))))
	case types.IsUnsigned(w) || w == types.Bool || w == types.Char:
		v.push(prune(raw, w))
	default:
		v.push(uint64(signExtend(raw, w)))
	}
	return nil
}
