package analyzer

import (
	"bbl/internal/bytecode"
	berrors "bbl/internal/errors"
	"bbl/internal/lexer"
	"bbl/internal/types"
)

// loopCtx tracks the forward-jump fixups owed by every `continue`/`break`
// inside one loop body. Both targets are only known once the surrounding
// loop construct finishes emitting its own control-flow instructions, so
// every continue/break records a placeholder position here instead of
// patching immediately.
type loopCtx struct {
	continuePatches []int
	breakPatches    []int
}

// parseBlock parses `{ stmt* }`, opening and closing its own lexical
// scope. This is the body form parseFunctionDecl (func.go) already calls.
func (a *Analyzer) parseBlock() error {
	if _, err := a.expect(lexer.Punctuation, "{"); err != nil {
		return err
	}
	a.pushScope()
	for !a.check(lexer.Punctuation, "}") {
		if a.atEnd() {
			return berrors.NewTranslationError(berrors.UnexpectedLexeme, a.peek().SourceIndex, "unterminated block")
		}
		if err := a.parseStatement(); err != nil {
			a.popScope()
			return err
		}
	}
	a.advance() // '}'
	a.popScope()
	return nil
}

// parseStatement dispatches on the leading token to one of spec.md §6's
// statement forms. A loop/if body or a for-header clause may itself be a
// single statement rather than a block, so every construct below calls
// back into parseStatement rather than assuming `{`.
func (a *Analyzer) parseStatement() error {
	tok := a.peek()
	switch {
	case tok.Kind == lexer.Punctuation && tok.Value == "{":
		return a.parseBlock()
	case tok.Kind == lexer.Punctuation && tok.Value == ";":
		a.advance()
		return nil
	case tok.Kind == lexer.Reserved && tok.Value == "if":
		return a.parseIf()
	case tok.Kind == lexer.Reserved && tok.Value == "for":
		return a.parseFor()
	case tok.Kind == lexer.Reserved && tok.Value == "while":
		return a.parseWhile()
	case tok.Kind == lexer.Reserved && tok.Value == "do":
		return a.parseDoWhile()
	case tok.Kind == lexer.Reserved && tok.Value == "foreach":
		return a.parseForeach()
	case tok.Kind == lexer.Reserved && tok.Value == "return":
		return a.parseReturn()
	case tok.Kind == lexer.Reserved && tok.Value == "continue":
		return a.parseContinue()
	case tok.Kind == lexer.Reserved && tok.Value == "break":
		return a.parseBreak()
	case tok.Kind == lexer.Reserved && tok.Value == "struct":
		return a.parseStructDecl()
	default:
		if a.isTypeStart() {
			return a.parseVarDecl()
		}
		if _, err := a.parseExprStatement(); err != nil {
			return err
		}
		_, err := a.expect(lexer.Punctuation, ";")
		return err
	}
}

// parseExprStatement parses one expression for its side effects, discarding
// whatever value it leaves on the operand stack. A call to a void function
// leaves nothing to discard -- materialize never loads a void result, and
// Return never pushes one -- so isVoidType gates the Dump.
func (a *Analyzer) parseExprStatement() (result, error) {
	res, err := a.parseExpr()
	if err != nil {
		return result{}, err
	}
	t := a.materialize(res.Cat, res.Typ)
	if !isVoidType(t) {
		a.stream.Operator(bytecode.OpDump, types.I64)
	}
	return result{types.Temporary, t}, nil
}

// parseVarDecl parses `T name [= expr];`, reserving a frame slot via
// declareLocal and, if present, casting and storing the initializer.
func (a *Analyzer) parseVarDecl() error {
	t, err := a.parseType()
	if err != nil {
		return err
	}
	nameTok, err := a.expect(lexer.Identifier, a.peek().Value)
	if err != nil {
		return err
	}
	off, ok := a.declareLocal(nameTok.Value, t)
	if !ok {
		return berrors.NewTranslationError(berrors.TypeMismatch, nameTok.SourceIndex,
			"%q already declared in this scope", nameTok.Value)
	}
	a.warnIfShadowing(nameTok.Value, nameTok.SourceIndex)

	if a.match(lexer.Operator, "=") {
		a.stream.Operator(bytecode.OpSP, types.I64)
		a.stream.Operand(uint64(off))
		a.stream.Operator(bytecode.OpFromSP, types.I64)

		val, verr := a.parseExpr()
		if verr != nil {
			return verr
		}
		vt := a.materialize(val.Cat, val.Typ)
		cb := types.CanCast(types.Temporary, vt, t)
		if cb == types.Impossible {
			return berrors.NewTranslationError(berrors.TypeMismatch, nameTok.SourceIndex,
				"cannot initialize %s from %s", t, vt)
		}
		a.warnIfLossy(cb, vt, t, nameTok.SourceIndex)
		a.emitCast(types.Temporary, vt, t)
		a.stream.Operator(bytecode.OpStoreAD, widthTag(t))
	}

	_, err = a.expect(lexer.Punctuation, ";")
	return err
}

// condToBool type-checks and casts whatever materialize(cond) leaves on the
// stack to bool, the common tail of if/while/do-while/for conditions.
func (a *Analyzer) condToBool(cond result, tok lexer.Lexeme) error {
	ct := a.materialize(cond.Cat, cond.Typ)
	if ct.Variant != types.VariantPrimitive || !types.IsNumeric(ct.Prim) {
		return berrors.NewTranslationError(berrors.TypeMismatch, tok.SourceIndex, "condition must be numeric or bool, got %s", ct)
	}
	a.emitCast(types.Temporary, ct, types.Primitive(types.Bool))
	return nil
}

// parseIf parses `if (cond) stmt [elif (cond) stmt]* [else stmt]?`. Every
// branch's trailing jump (skipping the rest of the chain once taken) is
// collected into ends and patched to the position right after the whole
// chain once it's known.
func (a *Analyzer) parseIf() error {
	var ends []int
	if err := a.ifChain(&ends); err != nil {
		return err
	}
	end := a.stream.Len()
	for _, p := range ends {
		a.stream.PatchOperand(p, uint64(end))
	}
	return nil
}

func (a *Analyzer) ifChain(ends *[]int) error {
	introducer := a.advance() // 'if' or 'elif'
	if _, err := a.expect(lexer.Parenthesis, "("); err != nil {
		return err
	}
	cond, err := a.parseExpr()
	if err != nil {
		return err
	}
	if err := a.condToBool(cond, introducer); err != nil {
		return err
	}
	if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
		return err
	}

	elsePos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJz, types.I64)

	if err := a.parseStatement(); err != nil {
		return err
	}

	if a.check(lexer.Reserved, "elif") {
		endPos := a.stream.Operand(0)
		a.stream.Operator(bytecode.OpJmp, types.I64)
		*ends = append(*ends, endPos)
		a.stream.PatchOperand(elsePos, uint64(a.stream.Len()))
		return a.ifChain(ends)
	}
	if a.match(lexer.Reserved, "else") {
		endPos := a.stream.Operand(0)
		a.stream.Operator(bytecode.OpJmp, types.I64)
		*ends = append(*ends, endPos)
		a.stream.PatchOperand(elsePos, uint64(a.stream.Len()))
		return a.parseStatement()
	}

	a.stream.PatchOperand(elsePos, uint64(a.stream.Len()))
	return nil
}

func (a *Analyzer) parseWhile() error {
	tok := a.advance() // 'while'
	if _, err := a.expect(lexer.Parenthesis, "("); err != nil {
		return err
	}
	loopStart := a.stream.Len()
	cond, err := a.parseExpr()
	if err != nil {
		return err
	}
	if err := a.condToBool(cond, tok); err != nil {
		return err
	}
	if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
		return err
	}
	exitPos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJz, types.I64)

	ctx := &loopCtx{}
	a.loopStack = append(a.loopStack, ctx)
	a.loopDepth++
	bodyErr := a.parseStatement()
	a.loopDepth--
	a.loopStack = a.loopStack[:len(a.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	a.stream.Operand(uint64(loopStart))
	a.stream.Operator(bytecode.OpJmp, types.I64)
	end := a.stream.Len()
	a.stream.PatchOperand(exitPos, uint64(end))
	for _, p := range ctx.continuePatches {
		a.stream.PatchOperand(p, uint64(loopStart))
	}
	for _, p := range ctx.breakPatches {
		a.stream.PatchOperand(p, uint64(end))
	}
	return nil
}

func (a *Analyzer) parseDoWhile() error {
	a.advance() // 'do'
	bodyStart := a.stream.Len()

	ctx := &loopCtx{}
	a.loopStack = append(a.loopStack, ctx)
	a.loopDepth++
	bodyErr := a.parseStatement()
	a.loopDepth--
	a.loopStack = a.loopStack[:len(a.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	continueTarget := a.stream.Len()
	whileTok, err := a.expect(lexer.Reserved, "while")
	if err != nil {
		return err
	}
	if _, err := a.expect(lexer.Parenthesis, "("); err != nil {
		return err
	}
	cond, err := a.parseExpr()
	if err != nil {
		return err
	}
	if err := a.condToBool(cond, whileTok); err != nil {
		return err
	}
	if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
		return err
	}
	if _, err := a.expect(lexer.Punctuation, ";"); err != nil {
		return err
	}

	a.stream.Operator(bytecode.OpInvert, types.Bool) // jump-to-start-if-true <=> jz(!cond)
	a.stream.Operand(uint64(bodyStart))
	a.stream.Operator(bytecode.OpJz, types.I64)
	loopEnd := a.stream.Len()

	for _, p := range ctx.continuePatches {
		a.stream.PatchOperand(p, uint64(continueTarget))
	}
	for _, p := range ctx.breakPatches {
		a.stream.PatchOperand(p, uint64(loopEnd))
	}
	return nil
}

// parseFor parses `for ( [init-or-decl] ; cond? ; step? ) body`. The step
// clause is tokenized but not yet compiled when first encountered -- its
// code must run after the body, not between the two `;` -- so its token
// range is remembered and re-parsed (emitting code this time) once the
// body has compiled.
func (a *Analyzer) parseFor() error {
	a.advance() // 'for'
	if _, err := a.expect(lexer.Parenthesis, "("); err != nil {
		return err
	}
	a.pushScope()
	defer a.popScope()

	switch {
	case a.check(lexer.Punctuation, ";"):
		a.advance()
	case a.isTypeStart():
		if err := a.parseVarDecl(); err != nil {
			return err
		}
	default:
		if _, err := a.parseExprStatement(); err != nil {
			return err
		}
		if _, err := a.expect(lexer.Punctuation, ";"); err != nil {
			return err
		}
	}

	condPos := a.stream.Len()
	hasCond := !a.check(lexer.Punctuation, ";")
	var jzPos int
	if hasCond {
		condTok := a.peek()
		cond, err := a.parseExpr()
		if err != nil {
			return err
		}
		if err := a.condToBool(cond, condTok); err != nil {
			return err
		}
		jzPos = a.stream.Operand(0)
		a.stream.Operator(bytecode.OpJz, types.I64)
	}
	if _, err := a.expect(lexer.Punctuation, ";"); err != nil {
		return err
	}

	stepStart := a.pos
	depth := 0
	for {
		if a.atEnd() {
			return berrors.NewTranslationError(berrors.UnexpectedLexeme, a.peek().SourceIndex, "unterminated for-loop header")
		}
		t := a.peek()
		if t.Kind == lexer.Parenthesis && t.Value == "(" {
			depth++
			a.advance()
			continue
		}
		if t.Kind == lexer.Parenthesis && t.Value == ")" {
			if depth == 0 {
				break
			}
			depth--
			a.advance()
			continue
		}
		a.advance()
	}
	stepEnd := a.pos
	if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
		return err
	}

	ctx := &loopCtx{}
	a.loopStack = append(a.loopStack, ctx)
	a.loopDepth++
	bodyErr := a.parseStatement()
	a.loopDepth--
	a.loopStack = a.loopStack[:len(a.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	stepEmitPos := a.stream.Len()
	if stepStart != stepEnd {
		savedPos := a.pos
		a.pos = stepStart
		if _, err := a.parseExprStatement(); err != nil {
			return err
		}
		a.pos = savedPos
	}

	a.stream.Operand(uint64(condPos))
	a.stream.Operator(bytecode.OpJmp, types.I64)
	loopEnd := a.stream.Len()
	if hasCond {
		a.stream.PatchOperand(jzPos, uint64(loopEnd))
	}
	for _, p := range ctx.continuePatches {
		a.stream.PatchOperand(p, uint64(stepEmitPos))
	}
	for _, p := range ctx.breakPatches {
		a.stream.PatchOperand(p, uint64(loopEnd))
	}
	return nil
}

// parseForeach parses `foreach (T name of expr) body`. Arrays carry no
// length in this type system (spec.md §3: "array has size 8, a fat
// descriptor"), so iteration stops at a zero-valued element -- the same
// NUL-sentinel convention emitStringLiteral already relies on for char
// arrays, generalized here to any primitive or pointer element type. The
// iteration cursor lives in a hidden frame slot, not threaded across the
// operand stack, so the loop body is free to push and pop arbitrarily.
func (a *Analyzer) parseForeach() error {
	a.advance() // 'foreach'
	if _, err := a.expect(lexer.Parenthesis, "("); err != nil {
		return err
	}
	a.pushScope()
	defer a.popScope()

	elemType, err := a.parseType()
	if err != nil {
		return err
	}
	nameTok, err := a.expect(lexer.Identifier, a.peek().Value)
	if err != nil {
		return err
	}
	if _, err := a.expect(lexer.Reserved, "of"); err != nil {
		return err
	}
	arrExpr, err := a.parseExpr()
	if err != nil {
		return err
	}
	if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
		return err
	}

	at := a.materialize(arrExpr.Cat, arrExpr.Typ)
	if at.Variant != types.VariantArray || !types.QualifierErasedEqual(at.Elem, elemType) {
		return berrors.NewTranslationError(berrors.TypeNotIterable, nameTok.SourceIndex,
			"foreach requires an array of %s, got %s", elemType, at)
	}
	elem := types.Unqualified(elemType)
	if elem.Variant == types.VariantComplex {
		return berrors.NewTranslationError(berrors.TypeNotIterable, nameTok.SourceIndex,
			"foreach over struct-typed elements is not supported")
	}
	tag := widthTag(elem)

	ptrType := a.arena.Intern(types.PointerTo(elem))
	ptrOff, ok := a.declareLocal("%foreach_ptr", ptrType)
	if !ok {
		return berrors.NewTranslationError(berrors.TypeMismatch, nameTok.SourceIndex, "internal compiler error: foreach cursor slot collision")
	}
	a.stream.Operator(bytecode.OpSP, types.I64)
	a.stream.Operand(uint64(ptrOff))
	a.stream.Operator(bytecode.OpFromSP, types.I64)
	a.stream.Operator(bytecode.OpStoreDA, types.I64) // [arrVal, addr] -- addr on top: StoreDA(data,addr->)

	loopOff, ok := a.declareLocal(nameTok.Value, elemType)
	if !ok {
		return berrors.NewTranslationError(berrors.TypeMismatch, nameTok.SourceIndex, "%q already declared in this scope", nameTok.Value)
	}
	a.warnIfShadowing(nameTok.Value, nameTok.SourceIndex)

	loadPtr := func() {
		a.stream.Operator(bytecode.OpSP, types.I64)
		a.stream.Operand(uint64(ptrOff))
		a.stream.Operator(bytecode.OpFromSP, types.I64)
		a.stream.Operator(bytecode.OpLoad, types.I64)
	}

	loopStart := a.stream.Len()
	loadPtr()
	a.stream.Operator(bytecode.OpLoad, tag) // elemVal = *ptr
	a.stream.Operand(0)
	a.stream.Operator(bytecode.OpEqual, tag)
	a.stream.Operator(bytecode.OpInvert, types.Bool)
	endPos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJz, types.I64) // jumps to loopEnd when elem == 0

	loadPtr()
	a.stream.Operator(bytecode.OpLoad, tag)
	a.stream.Operator(bytecode.OpSP, types.I64)
	a.stream.Operand(uint64(loopOff))
	a.stream.Operator(bytecode.OpFromSP, types.I64)
	a.stream.Operator(bytecode.OpStoreDA, tag)

	ctx := &loopCtx{}
	a.loopStack = append(a.loopStack, ctx)
	a.loopDepth++
	bodyErr := a.parseStatement()
	a.loopDepth--
	a.loopStack = a.loopStack[:len(a.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	continueTarget := a.stream.Len()
	loadPtr()
	a.stream.Operand(uint64(elem.Size()))
	a.stream.Operator(bytecode.OpAdd, types.I64)
	a.stream.Operator(bytecode.OpSP, types.I64)
	a.stream.Operand(uint64(ptrOff))
	a.stream.Operator(bytecode.OpFromSP, types.I64)
	a.stream.Operator(bytecode.OpStoreDA, types.I64)

	a.stream.Operand(uint64(loopStart))
	a.stream.Operator(bytecode.OpJmp, types.I64)
	loopEnd := a.stream.Len()
	a.stream.PatchOperand(endPos, uint64(loopEnd))
	for _, p := range ctx.continuePatches {
		a.stream.PatchOperand(p, uint64(continueTarget))
	}
	for _, p := range ctx.breakPatches {
		a.stream.PatchOperand(p, uint64(loopEnd))
	}
	return nil
}

func (a *Analyzer) parseReturn() error {
	tok := a.advance() // 'return'
	retType := a.returnStack[len(a.returnStack)-1]

	if a.check(lexer.Punctuation, ";") {
		a.advance()
		if !isVoidType(retType) {
			return berrors.NewTranslationError(berrors.TypeMismatch, tok.SourceIndex, "function must return a value of type %s", retType)
		}
		a.emitReturnEpilogue(nil)
		return nil
	}

	if isVoidType(retType) {
		return berrors.NewTranslationError(berrors.TypeMismatch, tok.SourceIndex, "void function cannot return a value")
	}
	val, err := a.parseExpr()
	if err != nil {
		return err
	}
	vt := a.materialize(val.Cat, val.Typ)
	cb := types.CanCast(types.Temporary, vt, retType)
	if cb == types.Impossible {
		return berrors.NewTranslationError(berrors.TypeMismatch, tok.SourceIndex, "cannot return %s from a function declared to return %s", vt, retType)
	}
	a.warnIfLossy(cb, vt, retType, tok.SourceIndex)
	if _, err := a.expect(lexer.Punctuation, ";"); err != nil {
		return err
	}
	a.emitReturnEpilogue(&result{types.Temporary, vt})
	return nil
}

func (a *Analyzer) parseContinue() error {
	tok := a.advance()
	if a.loopDepth == 0 {
		return berrors.NewTranslationError(berrors.LoopInstructionsOutsideOfLoop, tok.SourceIndex, "continue outside of a loop")
	}
	ctx := a.loopStack[len(a.loopStack)-1]
	pos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJmp, types.I64)
	ctx.continuePatches = append(ctx.continuePatches, pos)
	_, err := a.expect(lexer.Punctuation, ";")
	return err
}

func (a *Analyzer) parseBreak() error {
	tok := a.advance()
	if a.loopDepth == 0 {
		return berrors.NewTranslationError(berrors.LoopInstructionsOutsideOfLoop, tok.SourceIndex, "break outside of a loop")
	}
	ctx := a.loopStack[len(a.loopStack)-1]
	pos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJmp, types.I64)
	ctx.breakPatches = append(ctx.breakPatches, pos)
	_, err := a.expect(lexer.Punctuation, ";")
	return err
}
