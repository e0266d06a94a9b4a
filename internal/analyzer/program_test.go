package analyzer_test

import (
	"strings"
	"testing"

	"bbl/internal/analyzer"
	"bbl/internal/lexer"
)

func compile(t *testing.T, src string) (*analyzer.Analyzer, error) {
	t.Helper()
	toks, err := lexer.ScanAll(src)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return analyzer.Compile(src, toks)
}

func TestCompileRejectsMissingMain(t *testing.T) {
	_, err := compile(t, `int32 helper() { return 1; }`)
	if err == nil {
		t.Fatal("expected an error for a translation unit with no main")
	}
}

func TestCompileRejectsWrongMainSignature(t *testing.T) {
	_, err := compile(t, `bool main() { return true; }`)
	if err == nil {
		t.Fatal("expected an error for main not returning int32")
	}
}

func TestCompileRejectsMainWithParameters(t *testing.T) {
	_, err := compile(t, `int32 main(int32 argc) { return argc; }`)
	if err == nil {
		t.Fatal("expected an error for main taking required parameters")
	}
}

func TestCompileRejectsMixedWidthArithmetic(t *testing.T) {
	_, err := compile(t, `int32 main() { int64 a = 1; int32 b = 2; return b + a; }`)
	if err == nil {
		t.Fatal("expected an error: operator table has no cross-kind i32+i64 signature")
	}
}

func TestCompileRejectsAssignToConst(t *testing.T) {
	_, err := compile(t, `int32 main() { const int32 x = 1; x = 2; return x; }`)
	if err == nil {
		t.Fatal("expected an error assigning into a const variable")
	}
}

func TestCompileRejectsUndeclaredIdentifier(t *testing.T) {
	_, err := compile(t, `int32 main() { return y; }`)
	if err == nil {
		t.Fatal("expected an error referencing an undeclared identifier")
	}
}

func TestCompileRejectsDuplicateParameterNames(t *testing.T) {
	_, err := compile(t, `int32 add(int32 x, int32 x) { return x; } int32 main() { return add(1, 2); }`)
	if err == nil {
		t.Fatal("expected an error for a duplicate parameter name")
	}
}

func TestCompileRejectsDefaultBeforeRequired(t *testing.T) {
	_, err := compile(t, `int32 f(int32 a = 1, int32 b) { return a + b; } int32 main() { return f(1, 2); }`)
	if err == nil {
		t.Fatal("expected an error: a required parameter cannot follow a default parameter")
	}
}

func TestCompileAcceptsSelfRecursion(t *testing.T) {
	a, err := compile(t, `int32 fact(int32 n) { if (n <= 1) return 1; return n * fact(n - 1); } int32 main() { return fact(5); }`)
	if err != nil {
		t.Fatalf("self-recursive function should compile: %v", err)
	}
	if !a.Stream().FullyResolved() {
		t.Fatal("a successfully compiled stream must have no unresolved symbolic references")
	}
}

func TestCompileAcceptsDefaultParameters(t *testing.T) {
	_, err := compile(t, `int32 add(int32 a, int32 b = 10) { return a + b; } int32 main() { return add(5); }`)
	if err != nil {
		t.Fatalf("a call omitting a trailing default argument should compile: %v", err)
	}
}

func TestCompileSurfacesWarningsWithoutFailing(t *testing.T) {
	a, err := compile(t, `int32 main() { int64 big = 5l; int32 small = big; return small; }`)
	if err != nil {
		t.Fatalf("a lossy int64 -> int32 initialisation is a warning, not a translation error: %v", err)
	}
	if len(a.Warnings) == 0 {
		t.Fatal("expected a Downcast warning for the lossy int64 -> int32 initialisation")
	}
}

func TestCompileErrorDescribesTypeMismatch(t *testing.T) {
	_, err := compile(t, `int32 main() { return "oops"; }`)
	if err == nil {
		t.Fatal("expected an error returning a string literal where int32 is required")
	}
	if !strings.Contains(err.Error(), "int32") && !strings.Contains(err.Error(), "cannot") {
		t.Errorf("error message %q should describe the type mismatch", err.Error())
	}
}
