package types

// Castability is the three-way result of can_cast: Exact (−1), Lossy (0),
// Impossible (1), per spec.md §4.1 ("integer-coded −1/0/1 is permitted").
type Castability int

const (
	Exact       Castability = -1
	Lossy       Castability = 0
	Impossible  Castability = 1
)

// ValueCategory tags whether an expression result is an addressable
// variable or an rvalue temporary, per spec.md §3.
type ValueCategory uint8

const (
	Temporary ValueCategory = iota
	Variable
)

// DerivedTypes yields the finite set of qualifier-variants of t reachable
// by dropping one qualifier or dereferencing one reference: self,
// without-reference, without-const, and without both. Duplicates (when t
// already lacks one or both qualifiers) are elided so operator dispatch
// never tries the same signature twice.
func DerivedTypes(t *Type) []*Type {
	seen := make(map[string]bool)
	var out []*Type
	add := func(variant *Type) {
		k := variant.Key()
		if !seen[k] {
			seen[k] = true
			out = append(out, variant)
		}
	}
	add(t)
	if t.Reference {
		add(WithReference(t, false))
	}
	if t.Const {
		add(WithConst(t, false))
	}
	if t.Const || t.Reference {
		add(WithBoth(t, false, false))
	}
	return out
}

// CanCast implements spec.md §4.1's assignability predicate. from carries
// its value category because a temporary cannot bind to a non-const
// reference.
func CanCast(fromCat ValueCategory, from, to *Type) Castability {
	if from.Variant == to.Variant && QualifierErasedEqual(from, to) {
		// A temporary cannot bind to a non-const reference.
		if to.Reference && !to.Const && fromCat == Temporary && !from.Reference {
			return Impossible
		}
		return Exact
	}

	switch {
	case from.Variant == VariantPrimitive && to.Variant == VariantPrimitive:
		if KindSize(to.Prim) >= KindSize(from.Prim) {
			return Exact
		}
		return Lossy

	case from.Variant == VariantPointer && to.Variant == VariantPointer:
		return Exact

	case from.Variant == VariantArray && to.Variant == VariantArray:
		if QualifierErasedEqual(from.Elem, to.Elem) {
			return Exact
		}
		return Impossible

	default:
		return Impossible
	}
}

