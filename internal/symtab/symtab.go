// Package symtab implements the scoped symbol table described in
// spec.md §3: a stack of scopes, each holding two ordered maps (variables,
// named complex types), with innermost-first lookup and shadowing.
package symtab

import (
	"bbl/internal/types"

	"golang.org/x/exp/slices"
)

// orderedMap preserves insertion order alongside O(1) lookup, matching
// spec.md's "ordered maps from identifier to type".
type orderedMap struct {
	index map[string]int
	keys  []string
	vals  []*types.Type
}

func newOrderedMap() *orderedMap {
	return &orderedMap{index: make(map[string]int)}
}

func (m *orderedMap) get(name string) (*types.Type, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

func (m *orderedMap) has(name string) bool {
	_, ok := m.index[name]
	return ok
}

func (m *orderedMap) set(name string, t *types.Type) {
	if i, ok := m.index[name]; ok {
		m.vals[i] = t
		return
	}
	m.index[name] = len(m.keys)
	m.keys = append(m.keys, name)
	m.vals = append(m.vals, t)
}

// Scope is one nested lexical scope: a set of local variables and a set of
// locally-declared named complex (struct) types.
type Scope struct {
	vars  *orderedMap
	types *orderedMap
}

func newScope() *Scope {
	return &Scope{vars: newOrderedMap(), types: newOrderedMap()}
}

// Table is the stack of scopes the analyser pushes and pops as it walks
// block structure. The bottom-most scope (index 0) is the top-level/global
// scope and is never popped.
type Table struct {
	scopes []*Scope
}

// New returns a Table with a single, permanent global scope.
func New() *Table {
	return &Table{scopes: []*Scope{newScope()}}
}

// Push opens a new innermost scope, e.g. on entering `{`.
func (t *Table) Push() {
	t.scopes = append(t.scopes, newScope())
}

// Pop closes the innermost scope, destroying everything declared in it.
// Popping the global scope is a programming error in the analyser and
// panics rather than silently corrupting the stack.
func (t *Table) Pop() {
	if len(t.scopes) == 1 {
		panic("symtab: cannot pop the global scope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Depth reports how many scopes are currently open, global scope included.
func (t *Table) Depth() int { return len(t.scopes) }

func (t *Table) innermost() *Scope { return t.scopes[len(t.scopes)-1] }

// DeclareVar inserts name into the innermost scope. It reports false if
// name already exists in that same scope (a duplicate-declaration error
// the caller should surface as a semantic error); shadowing an outer
// scope's name is always permitted.
func (t *Table) DeclareVar(name string, ty *types.Type) bool {
	s := t.innermost()
	if s.vars.has(name) {
		return false
	}
	s.vars.set(name, ty)
	return true
}

// DeclareType inserts a named complex type into the innermost scope,
// following the same duplicate-in-same-scope rule as DeclareVar.
func (t *Table) DeclareType(name string, ty *types.Type) bool {
	s := t.innermost()
	if s.types.has(name) {
		return false
	}
	s.types.set(name, ty)
	return true
}

// ShadowsOuter reports whether name is already declared in some scope
// enclosing the innermost one -- called right after a successful
// DeclareVar so the analyser can surface a non-fatal Shadow warning
// (spec.md §7's warning set is open-ended: "e.g. Downcast").
func (t *Table) ShadowsOuter(name string) bool {
	for i := len(t.scopes) - 2; i >= 0; i-- {
		if slices.Contains(t.scopes[i].vars.keys, name) {
			return true
		}
	}
	return false
}

// LookupVar walks from innermost to outermost scope, returning the first
// match.
func (t *Table) LookupVar(name string) (*types.Type, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if ty, ok := t.scopes[i].vars.get(name); ok {
			return ty, true
		}
	}
	return nil, false
}

// LookupType walks from innermost to outermost scope for a named complex
// type.
func (t *Table) LookupType(name string) (*types.Type, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if ty, ok := t.scopes[i].types.get(name); ok {
			return ty, true
		}
	}
	return nil, false
}
