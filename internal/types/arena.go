package types

import "golang.org/x/exp/maps"

// Arena interns structurally identical types so that the symbol table and
// operator tables can hold plain pointers and compare by identity in the
// common case, falling back to Equal for the rare cross-arena comparison.
// Types form an acyclic forest (array->element, pointer->pointee,
// function->{ret,params}, struct->{fields}), so ordinary owned handles
// plus this arena are enough; no reference counting is required.
type Arena struct {
	byKey map[string]*Type
}

func NewArena() *Arena {
	return &Arena{byKey: make(map[string]*Type)}
}

// Intern returns the canonical instance for a structurally identical type,
// registering t itself the first time its key is seen.
func (a *Arena) Intern(t *Type) *Type {
	key := t.Key()
	if existing, ok := a.byKey[key]; ok {
		return existing
	}
	a.byKey[key] = t
	return t
}

// Keys exposes the interned key set, used by diagnostics and tests that
// want to assert on the set of distinct types the analyser constructed.
func (a *Arena) Keys() []string {
	return maps.Keys(a.byKey)
}

func (a *Arena) Len() int { return len(a.byKey) }
