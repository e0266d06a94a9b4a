package symtab

import (
	"testing"

	"bbl/internal/types"
)

func TestScopeHygiene(t *testing.T) {
	st := New()
	st.DeclareVar("x", types.Primitive(types.I32))

	st.Push()
	if ok := st.DeclareVar("x", types.Primitive(types.F64)); !ok {
		t.Fatal("shadowing an outer name in a nested scope should be permitted")
	}
	ty, _ := st.LookupVar("x")
	if ty.Prim != types.F64 {
		t.Fatal("inner declaration should shadow the outer one")
	}
	st.Pop()

	ty, ok := st.LookupVar("x")
	if !ok || ty.Prim != types.I32 {
		t.Fatal("outer name should be restored after the inner scope pops")
	}
}

func TestDuplicateInSameScopeRejected(t *testing.T) {
	st := New()
	if !st.DeclareVar("x", types.Primitive(types.I32)) {
		t.Fatal("first declaration should succeed")
	}
	if st.DeclareVar("x", types.Primitive(types.I32)) {
		t.Fatal("duplicate declaration in the same scope should fail")
	}
}

func TestNameInvisibleAfterPop(t *testing.T) {
	st := New()
	st.Push()
	st.DeclareVar("local", types.Primitive(types.Bool))
	st.Pop()
	if _, ok := st.LookupVar("local"); ok {
		t.Fatal("name declared in a popped scope must be invisible")
	}
}

func TestCannotPopGlobalScope(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("popping the global scope should panic")
		}
	}()
	New().Pop()
}
