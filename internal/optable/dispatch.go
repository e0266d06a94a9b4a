package optable

import (
	"fmt"

	"bbl/internal/types"
)

// DispatchErr is returned when no operator signature matches -- the
// analyser turns this into errors.UnknownOperator(lexeme, op, operands).
type DispatchErr struct {
	Op       string
	Operands []string
}

func (e *DispatchErr) Error() string {
	return fmt.Sprintf("no signature for operator %s on operands %v", e.Op, e.Operands)
}

// isAssignableLHS reports whether a value of the given category/type may
// stand on the left of an assignment or mutating compound operator: it
// must be a variable, or a reference-qualified temporary (spec.md §3:
// "A reference-qualified temporary is equivalent to a variable for
// purposes of assignment"), and must not be const (spec.md §3: "A const
// value may not appear on the left of any assignment or mutating compound
// operator").
func isAssignableLHS(cat types.ValueCategory, t *types.Type) bool {
	if t.Const {
		return false
	}
	return cat == types.Variable || t.Reference
}

// DispatchBinary resolves a binary operator application following
// spec.md §4.2's algorithm: compound-assignment operators are handled as
// LHS-assignability plus an RHS cast-then-arithmetic lookup; everything
// else walks the Cartesian product of both operands' DerivedTypes against
// the precomputed table, returning the first match.
// Dot is not handled here: member access needs the field name as a
// string, not a typed RHS operand, so the analyser calls DispatchMember
// directly instead of going through DispatchBinary for `.`.
func (t *Tables) DispatchBinary(op BinaryOp, lcat types.ValueCategory, lhs *types.Type, rcat types.ValueCategory, rhs *types.Type) (Signature, error) {
	if op == Assign {
		return t.dispatchAssign(lcat, lhs, rcat, rhs)
	}

	if IsCompoundAssign(op) {
		return t.dispatchCompoundAssign(op, lcat, lhs, rcat, rhs)
	}

	if sig, ok := t.dispatchPointerArithmetic(op, lhs, rhs); ok {
		return sig, nil
	}

	for _, ld := range types.DerivedTypes(lhs) {
		for _, rd := range types.DerivedTypes(rhs) {
			if sig, ok := t.lookupBinary(op, ld, rd); ok {
				return sig, nil
			}
		}
	}
	return Signature{}, &DispatchErr{Op: fmt.Sprint(op), Operands: []string{lhs.String(), rhs.String()}}
}

// dispatchAssign implements plain `=`: LHS must be assignable, RHS must
// cast to LHS's type (qualifier-erased); result is a reference to LHS.
func (t *Tables) dispatchAssign(lcat types.ValueCategory, lhs *types.Type, rcat types.ValueCategory, rhs *types.Type) (Signature, error) {
	if !isAssignableLHS(lcat, lhs) {
		return Signature{}, &DispatchErr{Op: "=", Operands: []string{lhs.String()}}
	}
	target := types.Unqualified(lhs)
	if types.CanCast(rcat, rhs, target) == types.Impossible {
		return Signature{}, &DispatchErr{Op: "=", Operands: []string{lhs.String(), rhs.String()}}
	}
	return Signature{types.Variable, types.WithReference(types.Unqualified(lhs), true)}, nil
}

// dispatchCompoundAssign implements `X=`: LHS must be assignable of the
// exact type, RHS must be assignable to it after qualifier erasure, and
// the arithmetic itself must have a signature over LHS's unqualified
// type. Result is a reference to LHS.
func (t *Tables) dispatchCompoundAssign(op BinaryOp, lcat types.ValueCategory, lhs *types.Type, rcat types.ValueCategory, rhs *types.Type) (Signature, error) {
	if !isAssignableLHS(lcat, lhs) {
		return Signature{}, &DispatchErr{Op: fmt.Sprint(op), Operands: []string{lhs.String()}}
	}
	target := types.Unqualified(lhs)
	if op == AddAssign && target.Variant == types.VariantPointer &&
		rhs.Variant == types.VariantPrimitive && types.IsInteger(rhs.Prim) {
		return Signature{types.Variable, types.WithReference(target, true)}, nil
	}
	if types.CanCast(rcat, rhs, target) == types.Impossible {
		return Signature{}, &DispatchErr{Op: fmt.Sprint(op), Operands: []string{lhs.String(), rhs.String()}}
	}
	arith, ok := ArithmeticOf(op)
	if !ok {
		return Signature{}, &DispatchErr{Op: fmt.Sprint(op), Operands: []string{lhs.String()}}
	}
	constLHS := types.WithConst(target, true)
	if _, ok := t.lookupBinary(arith, constLHS, constLHS); !ok {
		return Signature{}, &DispatchErr{Op: fmt.Sprint(op), Operands: []string{lhs.String(), rhs.String()}}
	}
	return Signature{types.Variable, types.WithReference(target, true)}, nil
}

// DispatchMember resolves `lhs.field`, per spec.md §4.2.
func DispatchMember(lhs *types.Type, field string) (Signature, error) {
	if lhs.Variant != types.VariantComplex {
		return Signature{}, &DispatchErr{Op: ".", Operands: []string{lhs.String()}}
	}
	f, ok := lhs.FieldOf(field)
	if !ok {
		return Signature{}, &DispatchErr{Op: ".", Operands: []string{lhs.String(), field}}
	}
	return Signature{types.Variable, types.WithBoth(f.Type, lhs.Const, true)}, nil
}

// dispatchPointerArithmetic implements the pointer-arithmetic forms of
// spec.md §4.2: ptr-ptr -> const i64, ptr+int/int+ptr/ptr-int -> const ptr.
// ptr+=int is handled by dispatchCompoundAssign, which accepts an integer
// RHS for an assignable pointer LHS; this function only covers the
// two-operand, non-assigning forms.
func (t *Tables) dispatchPointerArithmetic(op BinaryOp, lhs, rhs *types.Type) (Signature, bool) {
	isPtr := func(ty *types.Type) bool { return ty.Variant == types.VariantPointer }
	isInt := func(ty *types.Type) bool { return ty.Variant == types.VariantPrimitive && types.IsInteger(ty.Prim) }

	switch op {
	case Sub:
		if isPtr(lhs) && isPtr(rhs) && types.QualifierErasedEqual(lhs.Pointee, rhs.Pointee) {
			return Signature{types.Temporary, types.WithConst(types.Primitive(types.I64), true)}, true
		}
		if isPtr(lhs) && isInt(rhs) {
			return Signature{types.Temporary, types.WithConst(lhs, true)}, true
		}
	case Add:
		if isPtr(lhs) && isInt(rhs) {
			return Signature{types.Temporary, types.WithConst(lhs, true)}, true
		}
		if isInt(lhs) && isPtr(rhs) {
			return Signature{types.Temporary, types.WithConst(rhs, true)}, true
		}
	}
	return Signature{}, false
}

// DispatchUnaryPrefix resolves one of the 10 unary-prefix operators.
func DispatchUnaryPrefix(op UnaryPrefixOp, cat types.ValueCategory, operand *types.Type) (Signature, error) {
	switch op {
	case PrefixInc, PrefixDec:
		if !isAssignableLHS(cat, operand) {
			return Signature{}, &DispatchErr{Op: "++/--", Operands: []string{operand.String()}}
		}
		if !types.IsNumeric(numericKindOf(operand)) {
			return Signature{}, &DispatchErr{Op: "++/--", Operands: []string{operand.String()}}
		}
		return Signature{types.Variable, types.WithReference(types.Unqualified(operand), true)}, nil

	case UnaryPlus, UnaryMinus:
		if operand.Variant != types.VariantPrimitive || !types.IsNumeric(operand.Prim) {
			return Signature{}, &DispatchErr{Op: "+/-", Operands: []string{operand.String()}}
		}
		return Signature{types.Temporary, types.WithConst(types.Unqualified(operand), true)}, nil

	case Not:
		if operand.Variant != types.VariantPrimitive || !types.IsNumeric(operand.Prim) {
			return Signature{}, &DispatchErr{Op: "!", Operands: []string{operand.String()}}
		}
		return Signature{types.Temporary, types.WithConst(types.Primitive(types.Bool), true)}, nil

	case BitNot:
		if operand.Variant != types.VariantPrimitive || !types.IsInteger(operand.Prim) {
			return Signature{}, &DispatchErr{Op: "~", Operands: []string{operand.String()}}
		}
		return Signature{types.Temporary, types.WithConst(types.Unqualified(operand), true)}, nil

	case Deref:
		if operand.Variant != types.VariantPointer {
			return Signature{}, &DispatchErr{Op: "*", Operands: []string{operand.String()}}
		}
		return Signature{types.Variable, types.WithBoth(operand.Pointee, operand.Const, true)}, nil

	case AddrOf:
		if cat != types.Variable && !operand.Reference {
			return Signature{}, &DispatchErr{Op: "&", Operands: []string{operand.String()}}
		}
		return Signature{types.Temporary, types.PointerTo(types.Unqualified(operand))}, nil

	case New:
		return Signature{types.Temporary, types.PointerTo(types.Unqualified(operand))}, nil

	case Delete:
		if operand.Variant != types.VariantPointer {
			return Signature{}, &DispatchErr{Op: "delete", Operands: []string{operand.String()}}
		}
		return Signature{types.Temporary, types.Primitive(types.Bool)}, nil
	}
	return Signature{}, &DispatchErr{Op: "?", Operands: []string{operand.String()}}
}

// DispatchUnaryPostfix resolves `++`/`--` as postfix operators: same LHS
// requirement as the prefix forms, but the analyser is responsible for
// emitting code that yields the *pre*-increment value -- optable only
// reports the type/category, which is identical to the prefix form.
func DispatchUnaryPostfix(op UnaryPostfixOp, cat types.ValueCategory, operand *types.Type) (Signature, error) {
	prefixOp := PrefixInc
	if op == PostfixDec {
		prefixOp = PrefixDec
	}
	return DispatchUnaryPrefix(prefixOp, cat, operand)
}

func numericKindOf(t *types.Type) types.Kind {
	if t.Variant == types.VariantPrimitive {
		return t.Prim
	}
	return types.Kind(255)
}

// New builds a fresh, fully-constructed Tables instance.
func New() *Tables { return Build() }
