package analyzer

import (
	berrors "bbl/internal/errors"
	"bbl/internal/lexer"
	"bbl/internal/types"
)

// Compile implements spec.md §4.3's top-level entry point. A translation
// unit is a sequence of struct and function declarations; once every
// declaration has compiled, a call to "main" is appended and its result
// is stored as the top-level frame's own return value, so the VM's exit
// code convention (spec.md §4.5: flag at the frame's byte 8, the signed
// int32 result at bytes 9..13) falls out of the ordinary Push/Call/Return
// protocol without any VM-side special-casing of program entry.
func Compile(src string, toks []lexer.Lexeme) (*Analyzer, error) {
	a := New(src, toks)

	mainRet := types.Primitive(types.I32)
	a.returnStack = append(a.returnStack, mainRet)
	a.frameOffset = frameHeaderSize(mainRet)

	for !a.atEnd() {
		if a.check(lexer.Reserved, "struct") {
			if err := a.parseStructDecl(); err != nil {
				return nil, err
			}
			continue
		}

		ret, err := a.parseType()
		if err != nil {
			return nil, err
		}
		name, err := a.expect(lexer.Identifier, a.peek().Value)
		if err != nil {
			return nil, err
		}
		if !a.check(lexer.Parenthesis, "(") {
			return nil, berrors.NewTranslationError(berrors.UnexpectedLexeme, name.SourceIndex,
				"top-level declarations must be functions or structs; %q is neither", name.Value)
		}
		if err := a.parseFunctionDecl(ret, name); err != nil {
			return nil, err
		}
	}

	mainFi, ok := a.funcs["main"]
	if !ok {
		return nil, berrors.NewTranslationError(berrors.UndeclaredIdentifier, len(src), `no "main" function defined`)
	}
	if !types.QualifierErasedEqual(mainFi.sig.Ret, mainRet) {
		return nil, berrors.NewTranslationError(berrors.TypeMismatch, 0, `"main" must return int32, got %s`, mainFi.sig.Ret)
	}
	if len(mainFi.sig.Required) != 0 {
		return nil, berrors.NewTranslationError(berrors.FunctionParameterListDoesNotMatch, 0, `"main" must take no required parameters`)
	}

	// emitCallDispatch leaves main's result on the operand stack exactly as
	// an ordinary call site would; storing it here, into the VM's sentinel
	// activation rather than a Push'd one, is what makes that frame's own
	// flag/return-value slot (spec.md §4.5) hold the process exit code once
	// the VM runs off the end of the instruction stream.
	a.emitCallDispatch(mainFi, "main", 0)
	a.emitReturnValueStore(&result{types.Temporary, mainRet})

	if err := a.resolveFuncSizes(); err != nil {
		return nil, err
	}
	if !a.stream.FullyResolved() {
		return nil, berrors.NewTranslationError(berrors.UnexpectedLexeme, 0,
			"internal compiler error: unresolved symbolic references remain in the instruction stream")
	}
	return a, nil
}
