package vm_test

import (
	"testing"

	"bbl/internal/analyzer"
	"bbl/internal/lexer"
	"bbl/internal/vm"
)

// compileAndRun mirrors cmd/bbl's -c/-r pipeline end to end: scan, analyse,
// and execute, returning the program's exit code.
func compileAndRun(t *testing.T, src string) int32 {
	t.Helper()
	toks, err := lexer.ScanAll(src)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	a, err := analyzer.Compile(src, toks)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	m := vm.New(a.Stream(), vm.Config{})
	code, err := m.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return code
}

// TestEndToEndScenarios exercises the five source -> exit-code scenarios of
// spec.md §8.
func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int32
	}{
		{
			name: "arithmetic precedence",
			src:  `int32 main() { return 2 + 3 * 4; }`,
			want: 14,
		},
		{
			name: "for loop accumulation",
			src:  `int32 main() { int32 x = 10; for (int32 i = 0; i < 4; ++i) x += i; return x; }`,
			want: 16,
		},
		{
			name: "new/delete roundtrip",
			src:  `int32 main() { int32 *p = new int32; *p = 42; int32 v = *p; delete p; return v; }`,
			want: 42,
		},
		{
			name: "struct field access",
			src:  `struct S { int32 x; int32 y; } int32 main() { S s; s.x = 7; s.y = 3; return s.x - s.y; }`,
			want: 4,
		},
		{
			name: "recursive factorial",
			src:  `int32 fact(int32 n) { if (n <= 1) return 1; return n * fact(n - 1); } int32 main() { return fact(5); }`,
			want: 120,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compileAndRun(t, tt.src); got != tt.want {
				t.Errorf("exit code = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestDivisionByZeroFaults confirms the one end-to-end scenario that must
// abort execution rather than produce an exit code.
func TestDivisionByZeroFaults(t *testing.T) {
	src := `int32 main() { int32 a = 1; int32 b = 0; return a / b; }`
	toks, err := lexer.ScanAll(src)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	a, err := analyzer.Compile(src, toks)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	m := vm.New(a.Stream(), vm.Config{})
	if _, err := m.Run(); err == nil {
		t.Fatal("expected a DivisionByZero fault, got nil error")
	}
}

// TestNullptrAccessed confirms address 0 is a permanent null-pointer
// sentinel distinct from an ordinary unallocated byte.
func TestNullptrAccessed(t *testing.T) {
	src := `int32 main() { int32 *p; return *p; }`
	toks, err := lexer.ScanAll(src)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	a, err := analyzer.Compile(src, toks)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	m := vm.New(a.Stream(), vm.Config{})
	if _, err := m.Run(); err == nil {
		t.Fatal("expected a NullptrAccessed fault, got nil error")
	}
}
