package analyzer

import (
	"bbl/internal/bytecode"
	berrors "bbl/internal/errors"
	"bbl/internal/lexer"
	"bbl/internal/types"
)

// frameHeaderSize is the byte width every frame reserves before its first
// local: the 8-byte return PC, the did-return flag, and exactly
// sizeof(return value) bytes for the callee's result. Return never reads
// this slot itself (emitCallDispatch's caller-side Load does, tagged to
// the callee's actual width), so there is nothing to gain from padding it
// to a full word.
func frameHeaderSize(ret *types.Type) int {
	sz := frameRetValOffset
	if !isVoidType(ret) {
		sz += ret.Size()
	}
	return sz
}

// parseParamList parses `( [T name [= literal]]* )`, enforcing that default
// parameters are contiguous at the tail (spec.md §6). Default values are
// restricted to literal constants: the analyser has no constant-folding
// pass, so a default expression more complex than a literal is rejected.
func (a *Analyzer) parseParamList() (required, defaults []*types.Type, names []string, defaultValues []uint64, err error) {
	if _, err = a.expect(lexer.Parenthesis, "("); err != nil {
		return
	}
	seenDefault := false
	for !a.check(lexer.Parenthesis, ")") {
		if len(required)+len(defaults) > 0 {
			if _, cerr := a.expect(lexer.Punctuation, ","); cerr != nil {
				err = cerr
				return
			}
		}
		var pt *types.Type
		pt, err = a.parseType()
		if err != nil {
			return
		}
		var pname lexer.Lexeme
		pname, err = a.expect(lexer.Identifier, a.peek().Value)
		if err != nil {
			return
		}
		if a.match(lexer.Operator, "=") {
			seenDefault = true
			var v uint64
			v, err = a.parseDefaultLiteral(pt)
			if err != nil {
				return
			}
			defaults = append(defaults, pt)
			names = append(names, pname.Value)
			defaultValues = append(defaultValues, v)
			continue
		}
		if seenDefault {
			err = berrors.NewTranslationError(berrors.FunctionParameterListDoesNotMatch, pname.SourceIndex,
				"required parameter %q follows a default parameter", pname.Value)
			return
		}
		required = append(required, pt)
		names = append(names, pname.Value)
	}
	_, err = a.expect(lexer.Parenthesis, ")")
	return
}

// parseDefaultLiteral accepts exactly the literal forms parsePrimary does
// for numbers and booleans, decoding the value without emitting any code --
// default values are metadata consulted at each call site, not expressions
// compiled once at the declaration.
func (a *Analyzer) parseDefaultLiteral(want *types.Type) (uint64, error) {
	tok := a.peek()
	switch {
	case tok.Kind == lexer.NumericLiteral:
		a.advance()
		_, bits, err := parseNumericLiteral(tok)
		return bits, err
	case tok.Kind == lexer.Reserved && (tok.Value == "true" || tok.Value == "false"):
		a.advance()
		if tok.Value == "true" {
			return 1, nil
		}
		return 0, nil
	}
	return 0, berrors.NewTranslationError(berrors.UnexpectedLexeme, tok.SourceIndex,
		"default value for %s must be a literal constant, got %q", want, tok.Value)
}

// parseFunctionDecl implements spec.md §4.3's function emission protocol.
// ret and name have already been consumed by the caller (program.go), which
// used the `(` lookahead to distinguish a function definition from a
// variable declaration.
func (a *Analyzer) parseFunctionDecl(ret *types.Type, name lexer.Lexeme) error {
	required, defaults, paramNames, defaultValues, err := a.parseParamList()
	if err != nil {
		return err
	}
	sig := a.arena.Intern(types.FunctionType(ret, required, defaults))

	fi, exists := a.funcs[name.Value]
	if !exists {
		fi = &funcInfo{entryPC: -1, frameSize: -1}
		a.funcs[name.Value] = fi
	}
	fi.sig = sig
	fi.paramNames = paramNames
	fi.defaultValues = defaultValues

	// 1. Jump over the body so top-level linear execution does not fall
	// into it.
	skipPos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJmp, types.I64)

	// 2. Record the entry point.
	fi.entryPC = a.stream.Len()

	// 3-4. Push the return-type stack and bind parameters to frame slots,
	// isolated in their own scope and their own frame-offset counter.
	// surrounding_loop_count does not escape a function body.
	prevFrameOffset, prevLoopDepth, prevCurFunc := a.frameOffset, a.loopDepth, a.curFunc
	a.frameOffset = frameHeaderSize(ret)
	a.loopDepth = 0
	a.curFunc = name.Value
	a.returnStack = append(a.returnStack, ret)
	a.pushScope()

	allParams := append(append([]*types.Type{}, required...), defaults...)
	paramOffsets := make([]int, len(allParams))
	for i, pt := range allParams {
		off, ok := a.declareLocal(paramNames[i], pt)
		if !ok {
			a.popScope()
			return berrors.NewTranslationError(berrors.TypeMismatch, name.SourceIndex,
				"duplicate parameter name %q", paramNames[i])
		}
		paramOffsets[i] = off
	}

	// Callers push argument values onto the operand stack left-to-right;
	// the prologue pops them in reverse order (last argument is on top)
	// and stores each into its frame slot.
	for i := len(allParams) - 1; i >= 0; i-- {
		tag := widthTag(allParams[i])
		a.stream.Operator(bytecode.OpSP, types.I64)
		a.stream.Operand(uint64(paramOffsets[i]))
		a.stream.Operator(bytecode.OpFromSP, types.I64)
		a.stream.Operator(bytecode.OpStoreDA, tag)
	}

	// 5. Emit the body.
	if err := a.parseBlock(); err != nil {
		a.popScope()
		return err
	}

	// 6. Append an implicit Return if the body didn't already end in one.
	if !a.stream.LastIsReturn() {
		a.emitReturnEpilogue(nil)
	}

	fi.frameSize = a.frameOffset

	a.popScope()
	a.returnStack = a.returnStack[:len(a.returnStack)-1]
	a.frameOffset, a.loopDepth, a.curFunc = prevFrameOffset, prevLoopDepth, prevCurFunc

	a.stream.PatchOperand(skipPos, uint64(a.stream.Len()))
	return nil
}

// emitReturnEpilogue stores val (if any) into the current function's
// return-value slot, sets the did-return flag accordingly, and emits
// Return. val is nil for a bare `return;` or an implicit end-of-body
// return; val's type must already have been checked against the innermost
// returnStack entry by the caller (stmt.go's `return` handler).
//
// Return neither tears its frame down nor touches the operand stack -- it
// only reads the frame's retPC and jumps (or halts, for the program's own
// sentinel frame, whose retPC is seeded with a sentinel rather than a real
// address). The caller collects the value and reclaims the frame.
// program.go's synthetic top-level call does not come through here: it
// calls emitReturnValueStore directly and emits no Return, so the program
// simply ends after the stores.
func (a *Analyzer) emitReturnEpilogue(val *result) {
	a.emitReturnValueStore(val)
	a.stream.Operator(bytecode.OpReturn, types.I64)
}

func (a *Analyzer) emitReturnValueStore(val *result) {
	retType := a.returnStack[len(a.returnStack)-1]
	if val == nil || isVoidType(retType) {
		return
	}

	vtyp := a.materialize(val.Cat, val.Typ)
	a.emitCast(types.Temporary, vtyp, retType)
	tag := widthTag(retType)
	a.stream.Operator(bytecode.OpSP, types.I64)
	a.stream.Operand(uint64(frameRetValOffset))
	a.stream.Operator(bytecode.OpFromSP, types.I64)
	a.stream.Operator(bytecode.OpStoreDA, tag)

	a.stream.Operator(bytecode.OpSP, types.I64)
	a.stream.Operand(uint64(frameFlagOffset))
	a.stream.Operator(bytecode.OpFromSP, types.I64)
	a.stream.Operand(1)
	a.stream.Operator(bytecode.OpStoreAD, types.Bool)
}

// emitCall compiles a call expression once parseIdentifierPrimary has
// confirmed the identifier names a known function immediately followed by
// `(`. Arguments are evaluated and cast to their parameter types as they're
// parsed; omitted trailing default arguments are filled from the callee's
// recorded default bit patterns. entryPC is always already known by call
// time; frameSize is resolved immediately for a call to an already-compiled
// function, or deferred via sizeFixup for a self-recursive call still
// compiling its own body.
func (a *Analyzer) emitCall(name string, fi *funcInfo, nameTok lexer.Lexeme) (result, error) {
	a.advance() // '('

	required, defaults := fi.sig.Required, fi.sig.Defaults
	allParams := append(append([]*types.Type{}, required...), defaults...)

	n := 0
	for !a.check(lexer.Parenthesis, ")") {
		if n > 0 {
			if _, err := a.expect(lexer.Punctuation, ","); err != nil {
				return result{}, err
			}
		}
		if n >= len(allParams) {
			return result{}, berrors.NewTranslationError(berrors.FunctionParameterListDoesNotMatch, a.peek().SourceIndex,
				"%q takes at most %d arguments", name, len(allParams))
		}
		arg, err := a.parseExpr()
		if err != nil {
			return result{}, err
		}
		at := a.materialize(arg.Cat, arg.Typ)
		cb := types.CanCast(types.Temporary, at, allParams[n])
		if cb == types.Impossible {
			return result{}, berrors.NewTranslationError(berrors.TypeMismatch, nameTok.SourceIndex,
				"argument %d of %q: cannot convert %s to %s", n+1, name, at, allParams[n])
		}
		a.warnIfLossy(cb, at, allParams[n], nameTok.SourceIndex)
		a.emitCast(types.Temporary, at, allParams[n])
		n++
	}
	if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
		return result{}, err
	}
	if n < len(required) {
		return result{}, berrors.NewTranslationError(berrors.FunctionParameterListDoesNotMatch, nameTok.SourceIndex,
			"%q requires at least %d arguments, got %d", name, len(required), n)
	}

	a.emitCallDispatch(fi, name, n)

	if isVoidType(fi.sig.Ret) {
		return result{types.Temporary, fi.sig.Ret}, nil
	}
	return result{types.Temporary, types.WithConst(types.Unqualified(fi.sig.Ret), true)}, nil
}

// emitCallDispatch emits the tail shared by every call site once the
// argument count is known to be valid: fill any omitted trailing default
// arguments, Push a frame and Call into it, then -- once the callee's
// Return jumps back here -- collect its result and reclaim the frame.
// argsGiven is how many arguments the caller already evaluated and pushed
// (0 for program.go's synthetic top-level call into main). entryPC is
// always already known; frameSize is resolved immediately or deferred via
// sizeFixup for a self-recursive call still compiling its own body.
//
// Call jumps without touching the operand stack, and Return jumps back
// without touching it either, so the callee's frame is still live and
// still addressable through SP at the instruction right after Call: that
// is the only place the return value can be read, via the same
// SP;Operand(offset);FromSP;Load sequence every local load uses. Pop then
// discards the frame. A void callee skips the load -- nothing is pushed --
// but still needs Pop to reclaim the frame it was given.
func (a *Analyzer) emitCallDispatch(fi *funcInfo, name string, argsGiven int) {
	required := fi.sig.Required
	allParams := len(required) + len(fi.sig.Defaults)
	for i := argsGiven; i < allParams; i++ {
		a.stream.Operand(fi.defaultValues[i-len(required)])
	}

	sizePos := a.stream.Len()
	if fi.frameSize >= 0 {
		a.stream.Operand(uint64(fi.frameSize))
	} else {
		a.stream.Operand(0)
		a.sizeFixups = append(a.sizeFixups, sizeFixup{pos: sizePos, name: name})
	}
	a.stream.Operand(uint64(fi.entryPC))
	a.stream.Operator(bytecode.OpPush, types.I64)

	a.stream.Operand(uint64(fi.entryPC))
	a.stream.Operator(bytecode.OpCall, types.I64)

	if !isVoidType(fi.sig.Ret) {
		tag := widthTag(fi.sig.Ret)
		a.stream.Operator(bytecode.OpSP, types.I64)
		a.stream.Operand(uint64(frameRetValOffset))
		a.stream.Operator(bytecode.OpFromSP, types.I64)
		a.stream.Operator(bytecode.OpLoad, tag)
	}
	a.stream.Operator(bytecode.OpPop, types.I64)
}

// resolveFuncSizes is program.go's final pass: once every function body has
// been compiled, every funcInfo.frameSize is known, so the size operands
// deferred during emitCall (self-recursive calls) can be patched in.
func (a *Analyzer) resolveFuncSizes() error {
	for _, fx := range a.sizeFixups {
		fi, ok := a.funcs[fx.name]
		if !ok || fi.frameSize < 0 {
			return berrors.NewTranslationError(berrors.UndeclaredIdentifier, 0,
				"internal compiler error: function %q never compiled", fx.name)
		}
		a.stream.PatchOperand(fx.pos, uint64(fi.frameSize))
	}
	return nil
}
