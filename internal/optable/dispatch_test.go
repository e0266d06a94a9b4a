package optable

import (
	"testing"

	"bbl/internal/types"
)

func TestArithmeticDispatch(t *testing.T) {
	tb := New()
	i32 := types.WithConst(types.Primitive(types.I32), true)
	sig, err := tb.DispatchBinary(Add, types.Temporary, i32, types.Temporary, i32)
	if err != nil {
		t.Fatalf("Add(i32,i32): %v", err)
	}
	if sig.Type.Prim != types.I32 {
		t.Errorf("result type = %v, want i32", sig.Type)
	}
}

func TestComparisonReturnsBool(t *testing.T) {
	tb := New()
	i64 := types.WithConst(types.Primitive(types.I64), true)
	sig, err := tb.DispatchBinary(Lt, types.Temporary, i64, types.Temporary, i64)
	if err != nil {
		t.Fatalf("Lt(i64,i64): %v", err)
	}
	if sig.Type.Prim != types.Bool {
		t.Errorf("comparison should yield bool, got %v", sig.Type)
	}
}

func TestUnknownOperatorOnMismatchedTypes(t *testing.T) {
	tb := New()
	i32 := types.WithConst(types.Primitive(types.I32), true)
	f64 := types.WithConst(types.Primitive(types.F64), true)
	if _, err := tb.DispatchBinary(Add, types.Temporary, i32, types.Temporary, f64); err == nil {
		t.Fatal("expected dispatch failure for i32+f64 (no implicit promotion built into the table)")
	}
}

func TestCompoundAssignRequiresVariable(t *testing.T) {
	tb := New()
	i32 := types.Primitive(types.I32)
	if _, err := tb.DispatchBinary(AddAssign, types.Temporary, i32, types.Temporary, i32); err == nil {
		t.Fatal("a temporary LHS must not accept a compound assignment")
	}
	if _, err := tb.DispatchBinary(AddAssign, types.Variable, i32, types.Temporary, i32); err != nil {
		t.Fatalf("a variable LHS should accept AddAssign: %v", err)
	}
}

func TestConstCannotBeAssignedTo(t *testing.T) {
	tb := New()
	constI32 := types.WithConst(types.Primitive(types.I32), true)
	plainI32 := types.Primitive(types.I32)
	if _, err := tb.DispatchBinary(Assign, types.Variable, constI32, types.Temporary, plainI32); err == nil {
		t.Fatal("assigning to a const variable must fail")
	}
}

func TestPointerArithmetic(t *testing.T) {
	tb := New()
	p := types.PointerTo(types.Primitive(types.I32))
	i := types.WithConst(types.Primitive(types.I32), true)

	sig, err := tb.DispatchBinary(Add, types.Temporary, p, types.Temporary, i)
	if err != nil || sig.Type.Variant != types.VariantPointer {
		t.Fatalf("ptr+int should yield a pointer, got %v err=%v", sig.Type, err)
	}

	sig2, err := tb.DispatchBinary(Sub, types.Temporary, p, types.Temporary, p)
	if err != nil || sig2.Type.Prim != types.I64 {
		t.Fatalf("ptr-ptr should yield i64, got %v err=%v", sig2.Type, err)
	}
}

func TestAddressOfRequiresVariable(t *testing.T) {
	i32 := types.Primitive(types.I32)
	if _, err := DispatchUnaryPrefix(AddrOf, types.Temporary, i32); err == nil {
		t.Fatal("address-of a temporary should fail")
	}
	if _, err := DispatchUnaryPrefix(AddrOf, types.Variable, i32); err != nil {
		t.Fatalf("address-of a variable should succeed: %v", err)
	}
}

func TestDereferenceRequiresPointer(t *testing.T) {
	p := types.PointerTo(types.Primitive(types.I32))
	sig, err := DispatchUnaryPrefix(Deref, types.Temporary, p)
	if err != nil {
		t.Fatalf("deref of pointer should succeed: %v", err)
	}
	if sig.Type.Prim != types.I32 || !sig.Type.Reference {
		t.Errorf("deref should yield a reference to the pointee, got %v", sig.Type)
	}
}

func TestMemberAccess(t *testing.T) {
	s := types.Complex("S", []types.Field{
		{Name: "x", Type: types.Primitive(types.I32)},
		{Name: "y", Type: types.Primitive(types.I32)},
	})
	sig, err := DispatchMember(s, "x")
	if err != nil {
		t.Fatalf("member access: %v", err)
	}
	if sig.Type.Prim != types.I32 || !sig.Type.Reference {
		t.Errorf("member access should yield a reference field type, got %v", sig.Type)
	}

	constS := types.WithConst(s, true)
	sig2, _ := DispatchMember(constS, "x")
	if !sig2.Type.Const {
		t.Error("member access on a const struct should yield a const field")
	}
}
