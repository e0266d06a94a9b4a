package types

import (
	"strings"
)

// Variant identifies which of the five type shapes a Type carries.
type Variant uint8

const (
	VariantPrimitive Variant = iota
	VariantComplex
	VariantFunction
	VariantPointer
	VariantArray
)

// Field is one named member of a Complex (struct) type.
type Field struct {
	Name string
	Type *Type
}

// Type is a value-equal (by structural identity, qualifiers included) node
// in the type lattice. Array/pointer/function/complex types form an
// acyclic forest, so an ordinary owned pointer plus an interning Arena is
// sufficient -- no reference counting is needed, per spec.md DESIGN NOTES §9.
type Type struct {
	Variant Variant

	Prim Kind // VariantPrimitive

	Name   string  // VariantComplex: the struct's declared name
	Fields []Field // VariantComplex

	Ret      *Type   // VariantFunction
	Required []*Type // VariantFunction, positional
	Defaults []*Type // VariantFunction, positional, appended after Required

	Pointee *Type // VariantPointer
	Elem    *Type // VariantArray

	Const     bool
	Reference bool
}

// Size returns the byte width of a type's representation on the VM's
// operand stack / in memory. Pointers, functions and array descriptors are
// all 8 bytes; complex types are the sum of their fields.
func (t *Type) Size() int {
	switch t.Variant {
	case VariantPrimitive:
		return KindSize(t.Prim)
	case VariantPointer, VariantFunction, VariantArray:
		return 8
	case VariantComplex:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.Size()
		}
		return total
	}
	return 0
}

// qualifierErasedEqual compares two types ignoring const/reference.
func qualifierErasedEqual(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Variant != b.Variant {
		return false
	}
	switch a.Variant {
	case VariantPrimitive:
		return a.Prim == b.Prim
	case VariantPointer:
		return qualifierErasedEqual(a.Pointee, b.Pointee)
	case VariantArray:
		return qualifierErasedEqual(a.Elem, b.Elem)
	case VariantComplex:
		if a.Name != b.Name || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !qualifierErasedEqual(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case VariantFunction:
		if !qualifierErasedEqual(a.Ret, b.Ret) || len(a.Required) != len(b.Required) || len(a.Defaults) != len(b.Defaults) {
			return false
		}
		for i := range a.Required {
			if !qualifierErasedEqual(a.Required[i], b.Required[i]) {
				return false
			}
		}
		for i := range a.Defaults {
			if !qualifierErasedEqual(a.Defaults[i], b.Defaults[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// QualifierErasedEqual is the assignability-time equality predicate:
// structural equality ignoring const/reference qualifiers.
func QualifierErasedEqual(a, b *Type) bool { return qualifierErasedEqual(a, b) }

// Equal is full value equality: structural identity including qualifiers.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Const == b.Const && a.Reference == b.Reference && qualifierErasedEqual(a, b)
}

// Key renders a canonical string used by the Arena to intern structurally
// identical types. It includes qualifiers, since the arena keys on full
// identity -- two qualifier variants of the same shape are distinct nodes.
func (t *Type) Key() string {
	var sb strings.Builder
	t.writeKey(&sb)
	return sb.String()
}

func (t *Type) writeKey(sb *strings.Builder) {
	if t.Const {
		sb.WriteString("const ")
	}
	if t.Reference {
		sb.WriteString("&")
	}
	switch t.Variant {
	case VariantPrimitive:
		sb.WriteString(t.Prim.String())
	case VariantPointer:
		t.Pointee.writeKey(sb)
		sb.WriteString("*")
	case VariantArray:
		t.Elem.writeKey(sb)
		sb.WriteString("[]")
	case VariantComplex:
		sb.WriteString("struct ")
		sb.WriteString(t.Name)
	case VariantFunction:
		sb.WriteString("fn(")
		for i, p := range t.Required {
			if i > 0 {
				sb.WriteString(",")
			}
			p.writeKey(sb)
		}
		for _, p := range t.Defaults {
			sb.WriteString(",=")
			p.writeKey(sb)
		}
		sb.WriteString(")->")
		t.Ret.writeKey(sb)
	}
}

func (t *Type) String() string {
	s := t.Key()
	return s
}

// Primitive constructs an unqualified primitive type.
func Primitive(k Kind) *Type { return &Type{Variant: VariantPrimitive, Prim: k} }

// PointerTo constructs an unqualified pointer to t. The pointee's own
// qualifiers are preserved -- only the outer pointer starts unqualified.
func PointerTo(t *Type) *Type { return &Type{Variant: VariantPointer, Pointee: t} }

// ArrayOf constructs an unqualified array of element type t.
func ArrayOf(t *Type) *Type { return &Type{Variant: VariantArray, Elem: t} }

// FunctionType constructs a function type; defaults follow required
// positionally, per spec.md §3 invariants.
func FunctionType(ret *Type, required, defaults []*Type) *Type {
	return &Type{Variant: VariantFunction, Ret: ret, Required: required, Defaults: defaults}
}

// Complex constructs a named struct type from its ordered fields.
func Complex(name string, fields []Field) *Type {
	return &Type{Variant: VariantComplex, Name: name, Fields: fields}
}

// WithConst returns a copy of t with the const qualifier set to c.
func WithConst(t *Type, c bool) *Type {
	cp := *t
	cp.Const = c
	return &cp
}

// WithReference returns a copy of t with the reference qualifier set to r.
func WithReference(t *Type, r bool) *Type {
	cp := *t
	cp.Reference = r
	return &cp
}

// WithBoth sets both qualifiers at once.
func WithBoth(t *Type, c, r bool) *Type {
	cp := *t
	cp.Const, cp.Reference = c, r
	return &cp
}

// Unqualified strips both qualifiers.
func Unqualified(t *Type) *Type { return WithBoth(t, false, false) }

// FieldOf looks up a named field on a complex type.
func (t *Type) FieldOf(name string) (Field, bool) {
	if t.Variant != VariantComplex {
		return Field{}, false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
