package analyzer

import (
	berrors "bbl/internal/errors"
	"bbl/internal/lexer"
	"bbl/internal/types"
)

var primitiveKinds = map[string]types.Kind{
	"int8": types.I8, "int16": types.I16, "int32": types.I32, "int64": types.I64,
	"uint8": types.U8, "uint16": types.U16, "uint32": types.U32, "uint64": types.U64,
	"f32": types.F32, "f64": types.F64, "bool": types.Bool, "char": types.Char,
}

// isTypeStart reports whether the current token can begin a type specifier,
// used to disambiguate declarations from expression-statements.
func (a *Analyzer) isTypeStart() bool {
	t := a.peek()
	if t.Kind == lexer.VariableType {
		return t.Value != "void" // void may only appear as a function return type
	}
	if t.Kind == lexer.Reserved && t.Value == "const" {
		return true
	}
	if t.Kind == lexer.Identifier {
		_, ok := a.symtab.LookupType(t.Value)
		return ok
	}
	return false
}

// parseType parses the type grammar `[const] T [*]* [&] ([])*`. Array
// brackets take no element count: `[` must be followed directly by `]`,
// so a sized form such as `T[4]` is rejected.
// It does not consume a following identifier; the caller does that.
func (a *Analyzer) parseType() (*types.Type, error) {
	isConst := false
	if a.match(lexer.Reserved, "const") {
		isConst = true
	}

	var base *types.Type
	tok := a.peek()
	switch {
	case tok.Kind == lexer.VariableType:
		a.advance()
		if tok.Value == "void" {
			base = &types.Type{Variant: types.VariantPrimitive, Prim: voidKind} // never loaded/stored
		} else {
			base = types.Primitive(primitiveKinds[tok.Value])
		}
	case tok.Kind == lexer.Identifier:
		named, ok := a.symtab.LookupType(tok.Value)
		if !ok {
			return nil, berrors.NewTranslationError(berrors.UndeclaredIdentifier, tok.SourceIndex, "unknown type %q", tok.Value)
		}
		a.advance()
		base = named
	default:
		return nil, berrors.NewTranslationError(berrors.UnexpectedLexeme, tok.SourceIndex, "expected a type, got %q", tok.Value)
	}

	for a.check(lexer.Operator, "*") {
		a.advance()
		base = types.PointerTo(base)
	}
	if a.match(lexer.Operator, "&") {
		base = types.WithReference(base, true)
	}
	for a.check(lexer.Bracket, "[") {
		a.advance()
		if _, err := a.expect(lexer.Bracket, "]"); err != nil {
			return nil, err
		}
		base = types.ArrayOf(base)
	}

	base = types.WithConst(base, isConst)
	return a.arena.Intern(base), nil
}

// parseStructDecl parses `struct name { T field ; ... }` and registers the
// resulting complex type in the innermost scope.
func (a *Analyzer) parseStructDecl() error {
	if _, err := a.expect(lexer.Reserved, "struct"); err != nil {
		return err
	}
	name, err := a.expect(lexer.Identifier, a.peek().Value)
	if err != nil {
		return err
	}
	if _, err := a.expect(lexer.Punctuation, "{"); err != nil {
		return err
	}
	var fields []types.Field
	for !a.check(lexer.Punctuation, "}") {
		ft, err := a.parseType()
		if err != nil {
			return err
		}
		fname, err := a.expect(lexer.Identifier, a.peek().Value)
		if err != nil {
			return err
		}
		fields = append(fields, types.Field{Name: fname.Value, Type: types.Unqualified(ft)})
		if _, err := a.expect(lexer.Punctuation, ";"); err != nil {
			return err
		}
	}
	a.advance() // }
	st := a.arena.Intern(types.Complex(name.Value, fields))
	if !a.symtab.DeclareType(name.Value, st) {
		return berrors.NewTranslationError(berrors.TypeMismatch, name.SourceIndex, "struct %q already declared in this scope", name.Value)
	}
	return nil
}
