// Package types implements the type lattice: primitive/complex/function/
// pointer/array variants, const and reference qualifiers, and the
// assignability (cast) rules between them.
package types

// Kind identifies one of the twelve primitive types.
type Kind uint8

const (
	I8 Kind = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	Bool
	Char
)

var kindNames = [...]string{
	I8: "int8", U8: "uint8", I16: "int16", U16: "uint16",
	I32: "int32", U32: "uint32", I64: "int64", U64: "uint64",
	F32: "f32", F64: "f64", Bool: "bool", Char: "char",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "<invalid kind>"
	}
	return kindNames[k]
}

// sizes holds the byte width of every primitive kind, per spec.md §3.
var sizes = [...]int{
	I8: 1, U8: 1, I16: 2, U16: 2,
	I32: 4, U32: 4, I64: 8, U64: 8,
	F32: 4, F64: 8, Bool: 1, Char: 1,
}

// KindSize returns the storage width in bytes of a primitive kind.
func KindSize(k Kind) int {
	return sizes[k]
}

// rank is the total order used by LeastCommonType (CanCast compares byte
// sizes instead): bool and
// char share rank 0, then the integer kinds widen, then the floats.
var rank = [...]int{
	Bool: 0, Char: 0,
	I8: 1, U8: 2, I16: 3, U16: 4,
	I32: 5, U32: 6, I64: 7, U64: 8,
	F32: 9, F64: 10,
}

func Rank(k Kind) int { return rank[k] }

func IsInteger(k Kind) bool {
	switch k {
	case I8, U8, I16, U16, I32, U32, I64, U64:
		return true
	}
	return false
}

func IsUnsigned(k Kind) bool {
	switch k {
	case U8, U16, U32, U64:
		return true
	}
	return false
}

func IsFloat(k Kind) bool { return k == F32 || k == F64 }

func IsNumeric(k Kind) bool { return IsInteger(k) || IsFloat(k) || k == Bool || k == Char }

// LeastCommonType returns the smallest primitive able to hold both operands
// of a binary operator losslessly, per spec.md §4.1. {bool,char} promote to
// i8 rather than staying at rank 0 when paired with another rank-0 kind.
func LeastCommonType(a, b Kind) Kind {
	if rank[a] == 0 && rank[b] == 0 {
		return I8
	}
	if rank[a] >= rank[b] {
		return a
	}
	return b
}
