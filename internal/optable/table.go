package optable

import "bbl/internal/types"

// Signature is one resolved operator application: the result's value
// category and type.
type Signature struct {
	Category types.ValueCategory
	Type     *types.Type
}

// Tables holds the binary operator signature table; the unary operators
// are resolved by dispatch logic instead (see below). The table is built
// when the Tables value is constructed; qualifier setters on *types.Type return new
// values, so the table entries below are built from canonical const/plain
// primitives and looked up by DerivedTypes-expanded keys at dispatch time.
//
// Per spec.md's Open Question resolution in DESIGN NOTES §9 (the
// "set_up_*" global flags are a laziness convenience, not semantics), the
// tables are simply built once at Tables construction rather than guarded
// by mutable globals.
type Tables struct {
	binary map[binaryKey]Signature
	// Unary prefix/postfix tables are small enough, and structural enough
	// (their validity depends on the LHS being a variable/reference, not
	// just its type), that they are implemented as dispatch logic in
	// dispatch.go rather than precomputed maps; Tables only precomputes
	// the purely type-driven binary arithmetic/comparison/bitwise table.
}

type binaryKey struct {
	op  BinaryOp
	lhs string
	rhs string
}

var numericKinds = []types.Kind{
	types.I8, types.U8, types.I16, types.U16, types.I32, types.U32,
	types.I64, types.U64, types.F32, types.F64,
}

var integerKinds = []types.Kind{
	types.I8, types.U8, types.I16, types.U16, types.I32, types.U32, types.I64, types.U64,
}

// Build constructs the binary signature table. New() calls it for every
// Tables value it returns.
func Build() *Tables {
	t := &Tables{binary: make(map[binaryKey]Signature)}

	// Arithmetic: (const T, const T) -> const T for every numeric primitive.
	for _, k := range numericKinds {
		ct := types.WithConst(types.Primitive(k), true)
		for _, op := range []BinaryOp{Add, Sub, Mul, Div, Mod} {
			if op == Mod && types.IsFloat(k) {
				continue // modulus is integer-only
			}
			t.set(op, ct, ct, Signature{types.Temporary, ct})
		}
	}

	// Comparisons: (const T, const T) -> const bool for every primitive
	// (numeric primitives plus bool/char, which are already numeric kinds
	// per types.IsNumeric).
	cbool := types.WithConst(types.Primitive(types.Bool), true)
	allPrimitiveKinds := append(append([]types.Kind{}, numericKinds...), types.Bool, types.Char)
	for _, k := range allPrimitiveKinds {
		ct := types.WithConst(types.Primitive(k), true)
		for _, op := range []BinaryOp{Eq, Ne, Lt, Gt, Le, Ge} {
			t.set(op, ct, ct, Signature{types.Temporary, cbool})
		}
	}

	// Logical && / ||: defined on (const bool, const bool) specifically.
	t.set(And, cbool, cbool, Signature{types.Temporary, cbool})
	t.set(Or, cbool, cbool, Signature{types.Temporary, cbool})

	// Bitwise: integer primitives only (plus bool, for bitwise-compound-assign).
	bitwiseKinds := append(append([]types.Kind{}, integerKinds...), types.Bool)
	for _, k := range bitwiseKinds {
		ct := types.WithConst(types.Primitive(k), true)
		for _, op := range []BinaryOp{BitAnd, BitXor, BitOr, Shl, Shr} {
			t.set(op, ct, ct, Signature{types.Temporary, ct})
		}
	}

	return t
}

func (t *Tables) set(op BinaryOp, lhs, rhs *types.Type, sig Signature) {
	t.binary[binaryKey{op, lhs.Key(), rhs.Key()}] = sig
}

func (t *Tables) lookupBinary(op BinaryOp, lhs, rhs *types.Type) (Signature, bool) {
	sig, ok := t.binary[binaryKey{op, lhs.Key(), rhs.Key()}]
	return sig, ok
}
