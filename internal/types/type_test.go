package types

import "testing"

func TestQualifierSettersCommute(t *testing.T) {
	i32 := Primitive(I32)
	a := WithConst(WithConst(i32, true), false)
	b := WithConst(i32, false)
	if !Equal(a, b) {
		t.Fatalf("with_const(with_const(t,true),false) != with_const(t,false): %v vs %v", a, b)
	}
}

func TestCastReflexive(t *testing.T) {
	for k := I8; k <= Char; k++ {
		tp := Primitive(k)
		if got := CanCast(Temporary, tp, tp); got != Exact {
			t.Errorf("CanCast(%v,%v) = %v, want Exact", tp, tp, got)
		}
	}
}

func TestCastOrderingBySize(t *testing.T) {
	if CanCast(Temporary, Primitive(I8), Primitive(I32)) != Exact {
		t.Error("i8 -> i32 should be exact")
	}
	if CanCast(Temporary, Primitive(I32), Primitive(I8)) != Lossy {
		t.Error("i32 -> i8 should be lossy")
	}
	if CanCast(Temporary, Primitive(F32), Primitive(F64)) != Exact {
		t.Error("f32 -> f64 should be exact")
	}
}

func TestPointerCastAlwaysAllowed(t *testing.T) {
	p1 := PointerTo(Primitive(I32))
	p2 := PointerTo(Primitive(F64))
	if CanCast(Temporary, p1, p2) != Exact {
		t.Error("pointer-to-pointer casts should always be allowed (type punning)")
	}
}

func TestArrayCastRequiresEqualElement(t *testing.T) {
	a1 := ArrayOf(Primitive(I32))
	a2 := ArrayOf(Primitive(I32))
	a3 := ArrayOf(Primitive(F64))
	if CanCast(Temporary, a1, a2) != Exact {
		t.Error("arrays of equal element type should cast exactly")
	}
	if CanCast(Temporary, a1, a3) != Impossible {
		t.Error("arrays of different element type should not cast")
	}
}

func TestTemporaryCannotBindNonConstReference(t *testing.T) {
	i32 := Primitive(I32)
	ref := WithReference(i32, true)
	if got := CanCast(Temporary, i32, ref); got != Impossible {
		t.Errorf("temporary -> non-const reference should be Impossible, got %v", got)
	}
	constRef := WithBoth(i32, true, true)
	if got := CanCast(Temporary, i32, constRef); got != Exact {
		t.Errorf("temporary -> const reference should be Exact, got %v", got)
	}
}

func TestLeastCommonType(t *testing.T) {
	if LeastCommonType(Bool, Char) != I8 {
		t.Error("bool/char pair should promote to i8")
	}
	if LeastCommonType(I32, I64) != I64 {
		t.Error("least common type should pick the higher rank")
	}
	if LeastCommonType(I64, F32) != F32 {
		t.Error("float outranks integer")
	}
}

func TestDerivedTypes(t *testing.T) {
	i32 := Primitive(I32)
	plain := DerivedTypes(i32)
	if len(plain) != 1 {
		t.Fatalf("unqualified type should derive only itself, got %d", len(plain))
	}

	cr := WithBoth(i32, true, true)
	derived := DerivedTypes(cr)
	if len(derived) != 4 {
		t.Fatalf("const+ref type should derive 4 variants, got %d: %v", len(derived), derived)
	}
}

func TestArenaInterning(t *testing.T) {
	arena := NewArena()
	a := arena.Intern(Primitive(I32))
	b := arena.Intern(Primitive(I32))
	if a != b {
		t.Error("structurally identical types should intern to the same pointer")
	}
	c := arena.Intern(Primitive(I64))
	if a == c {
		t.Error("structurally different types must not collapse in the arena")
	}
}
