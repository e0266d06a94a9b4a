package analyzer

import (
	"math"
	"strconv"
	"strings"

	"bbl/internal/bytecode"
	berrors "bbl/internal/errors"
	"bbl/internal/lexer"
	"bbl/internal/optable"
	"bbl/internal/types"
)

// binOpInfo drives the precedence-climbing parser that realises spec.md
// §4.3's fourteen expression layers P1 (assignments, lowest, right-assoc)
// through P11 (`* / %`, tightest binary layer) in one generic loop instead
// of eleven near-identical hand-written functions.
type binOpInfo struct {
	op    optable.BinaryOp
	prec  int
	right bool
}

var binOps = map[string]binOpInfo{
	"=":   {optable.Assign, 1, true},
	"+=":  {optable.AddAssign, 1, true},
	"-=":  {optable.SubAssign, 1, true},
	"*=":  {optable.MulAssign, 1, true},
	"/=":  {optable.DivAssign, 1, true},
	"%=":  {optable.ModAssign, 1, true},
	"<<=": {optable.ShlAssign, 1, true},
	">>=": {optable.ShrAssign, 1, true},
	"&=":  {optable.AndAssign, 1, true},
	"|=":  {optable.OrAssign, 1, true},
	"^=":  {optable.XorAssign, 1, true},

	"&&": {optable.And, 2, false},
	"||": {optable.Or, 3, false},
	"&":  {optable.BitAnd, 4, false},
	"|":  {optable.BitOr, 5, false},
	"^":  {optable.BitXor, 6, false},
	"==": {optable.Eq, 7, false},
	"!=": {optable.Ne, 7, false},
	"<":  {optable.Lt, 8, false},
	"<=": {optable.Le, 8, false},
	">":  {optable.Gt, 8, false},
	">=": {optable.Ge, 8, false},
	"<<": {optable.Shl, 9, false},
	">>": {optable.Shr, 9, false},
	"+":  {optable.Add, 10, false},
	"-":  {optable.Sub, 10, false},
	"*":  {optable.Mul, 11, false},
	"/":  {optable.Div, 11, false},
	"%":  {optable.Mod, 11, false},
}

// result is the type-checker's verdict for one expression non-terminal:
// the value category and type that the already-emitted code leaves on the
// operand stack (an address for Variable/reference results, a value
// otherwise -- see cast.go's needsLoad).
type result struct {
	Cat types.ValueCategory
	Typ *types.Type
}

func (a *Analyzer) parseExpr() (result, error) { return a.parseBinary(1) }

func (a *Analyzer) parseBinary(minPrec int) (result, error) {
	lhs, err := a.parseUnary()
	if err != nil {
		return result{}, err
	}
	for {
		info, ok := binOps[a.peek().Value]
		if !ok || a.peek().Kind != lexer.Operator || info.prec < minPrec {
			return lhs, nil
		}
		opTok := a.advance()

		nextMin := info.prec + 1
		if info.right {
			nextMin = info.prec
		}

		switch {
		case optable.IsCompoundAssign(info.op):
			lhs, err = a.emitAssignLike(info.op, lhs, opTok, nextMin)
		case optable.IsLogical(info.op):
			lhs, err = a.emitLogical(info.op, lhs, opTok, nextMin)
		default:
			lhs, err = a.emitBinary(info.op, lhs, opTok, nextMin)
		}
		if err != nil {
			return result{}, err
		}
	}
}

func (a *Analyzer) emitBinary(op optable.BinaryOp, lhs result, opTok lexer.Lexeme, nextMin int) (result, error) {
	ltyp := a.materialize(lhs.Cat, lhs.Typ)

	rhsUnevaluated, err := a.parseBinary(nextMin)
	if err != nil {
		return result{}, err
	}

	rtyp := a.materialize(rhsUnevaluated.Cat, rhsUnevaluated.Typ)

	sig, derr := a.ops.DispatchBinary(op, types.Temporary, types.WithConst(ltyp, true), types.Temporary, types.WithConst(rtyp, true))
	if derr != nil {
		return result{}, berrors.NewTranslationError(berrors.UnknownOperator, opTok.SourceIndex,
			"no operator %q for %s and %s", opTok.Value, ltyp, rtyp)
	}

	tag := widthTag(ltyp)
	if optable.IsComparison(op) {
		a.stream.Operator(comparisonOpcode(op), tag)
	} else {
		a.stream.Operator(arithmeticOpcode(op), tag)
	}
	return result{sig.Category, sig.Type}, nil
}

// emitLogical compiles `&&`/`||` with short-circuit control flow: the RHS's
// instructions are only reached at runtime if the LHS didn't already
// decide the answer. Jz/Jmp targets are backpatched once known, the same
// forward-jump idiom used for `if`/loops in stmt.go.
func (a *Analyzer) emitLogical(op optable.BinaryOp, lhs result, opTok lexer.Lexeme, nextMin int) (result, error) {
	ltyp := a.materialize(lhs.Cat, lhs.Typ)
	if ltyp.Variant != types.VariantPrimitive || !types.IsNumeric(ltyp.Prim) {
		return result{}, berrors.NewTranslationError(berrors.TypeMismatch, opTok.SourceIndex, "%q requires bool operands", opTok.Value)
	}
	a.emitCast(types.Temporary, ltyp, types.Primitive(types.Bool))

	shortCircuitOnFalse := op == optable.And // && short-circuits when LHS is false; || when LHS is true
	if !shortCircuitOnFalse {
		a.stream.Operator(bytecode.OpInvert, types.Bool) // jump-if-LHS-was-true <=> jz(!LHS)
	}
	branchPos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJz, types.I64)

	rhs, err := a.parseBinary(nextMin)
	if err != nil {
		return result{}, err
	}
	rtyp := a.materialize(rhs.Cat, rhs.Typ)
	if rtyp.Variant != types.VariantPrimitive || !types.IsNumeric(rtyp.Prim) {
		return result{}, berrors.NewTranslationError(berrors.TypeMismatch, opTok.SourceIndex, "%q requires bool operands", opTok.Value)
	}
	a.emitCast(types.Temporary, rtyp, types.Primitive(types.Bool))

	jmpEndPos := a.stream.Operand(0)
	a.stream.Operator(bytecode.OpJmp, types.I64)

	a.stream.PatchOperand(branchPos, uint64(a.stream.Len()))
	shortCircuitValue := uint64(0)
	if op == optable.Or {
		shortCircuitValue = 1
	}
	a.stream.Operand(shortCircuitValue)

	a.stream.PatchOperand(jmpEndPos, uint64(a.stream.Len()))
	return result{types.Temporary, types.WithConst(types.Primitive(types.Bool), true)}, nil
}

// emitAssignLike handles `=` and every `X=` compound form. The LHS address
// is already sitting on the operand stack from parsing lhs; it is
// duplicated (via Duplicate, not the single-slot scratch register) as many
// times as it will be consumed before RHS is parsed, so that a nested
// increment or compound-assignment inside RHS -- itself a recursive parse
// that may use Duplicate/Save freely -- can never disturb it. Plain `=`
// consumes the address once (store) and leaves one copy as the expression's
// own result; `X=` forms also load the current value before RHS is parsed.
func (a *Analyzer) emitAssignLike(op optable.BinaryOp, lhs result, opTok lexer.Lexeme, nextMin int) (result, error) {
	if !needsLoad(lhs.Cat, lhs.Typ) && lhs.Cat != types.Variable {
		return result{}, berrors.NewTranslationError(berrors.TypeMismatch, opTok.SourceIndex, "left side of %q is not assignable", opTok.Value)
	}
	target := types.Unqualified(lhs.Typ)
	tag := widthTag(target)

	a.stream.Operator(bytecode.OpDuplicate, types.I64)
	if op != optable.Assign {
		a.stream.Operator(bytecode.OpDuplicate, types.I64)
		a.stream.Operator(bytecode.OpLoad, tag)
	}

	rhs, err := a.parseBinary(nextMin)
	if err != nil {
		return result{}, err
	}
	rtyp := a.materialize(rhs.Cat, rhs.Typ)

	sig, derr := a.ops.DispatchBinary(op, lhs.Cat, lhs.Typ, types.Temporary, rtyp)
	if derr != nil {
		return result{}, berrors.NewTranslationError(berrors.TypeMismatch, opTok.SourceIndex,
			"cannot apply %q to %s and %s", opTok.Value, lhs.Typ, rtyp)
	}

	if op == optable.Assign {
		a.emitCast(types.Temporary, rtyp, target)
		a.stream.Operator(bytecode.OpStoreAD, tag)
		return result{sig.Category, sig.Type}, nil
	}

	arith, _ := optable.ArithmeticOf(op)
	a.emitCast(types.Temporary, rtyp, target)
	a.stream.Operator(arithmeticOpcode(arith), tag)
	a.stream.Operator(bytecode.OpStoreAD, tag)
	return result{sig.Category, sig.Type}, nil
}

func arithmeticOpcode(op optable.BinaryOp) bytecode.OpCode {
	switch op {
	case optable.Add:
		return bytecode.OpAdd
	case optable.Sub:
		return bytecode.OpSubtract
	case optable.Mul:
		return bytecode.OpMultiply
	case optable.Div:
		return bytecode.OpDivide
	case optable.Mod:
		return bytecode.OpModulus
	case optable.Shl:
		return bytecode.OpBitwiseShiftLeft
	case optable.Shr:
		return bytecode.OpBitwiseShiftRight
	case optable.BitAnd:
		return bytecode.OpBitwiseAnd
	case optable.BitOr:
		return bytecode.OpBitwiseOr
	case optable.BitXor:
		return bytecode.OpBitwiseXor
	}
	return bytecode.OpAdd
}

func comparisonOpcode(op optable.BinaryOp) bytecode.OpCode {
	switch op {
	case optable.Lt:
		return bytecode.OpLess
	case optable.Gt:
		return bytecode.OpMore
	case optable.Le:
		return bytecode.OpLessOrEqual
	case optable.Ge:
		return bytecode.OpMoreOrEqual
	case optable.Eq:
		return bytecode.OpEqual
	case optable.Ne:
		return bytecode.OpNotEqual
	}
	return bytecode.OpEqual
}

// --- P12 prefix ---------------------------------------------------------

func (a *Analyzer) parseUnary() (result, error) {
	tok := a.peek()
	switch {
	case tok.Kind == lexer.Operator && (tok.Value == "++" || tok.Value == "--"):
		a.advance()
		return a.emitPrefixIncDec(tok)
	case tok.Kind == lexer.Operator && tok.Value == "+":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		t := a.materialize(operand.Cat, operand.Typ)
		if _, err := optable.DispatchUnaryPrefix(optable.UnaryPlus, types.Temporary, t); err != nil {
			return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "unary + on %s", t)
		}
		return result{types.Temporary, types.WithConst(types.Unqualified(t), true)}, nil
	case tok.Kind == lexer.Operator && tok.Value == "-":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		t := a.materialize(operand.Cat, operand.Typ)
		if _, err := optable.DispatchUnaryPrefix(optable.UnaryMinus, types.Temporary, t); err != nil {
			return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "unary - on %s", t)
		}
		a.stream.Operator(bytecode.OpMinus, widthTag(t))
		return result{types.Temporary, types.WithConst(types.Unqualified(t), true)}, nil
	case tok.Kind == lexer.Operator && tok.Value == "!":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		t := a.materialize(operand.Cat, operand.Typ)
		if _, err := optable.DispatchUnaryPrefix(optable.Not, types.Temporary, t); err != nil {
			return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "unary ! on %s", t)
		}
		a.stream.Operator(bytecode.OpInvert, widthTag(t))
		return result{types.Temporary, types.WithConst(types.Primitive(types.Bool), true)}, nil
	case tok.Kind == lexer.Operator && tok.Value == "~":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		t := a.materialize(operand.Cat, operand.Typ)
		if _, err := optable.DispatchUnaryPrefix(optable.BitNot, types.Temporary, t); err != nil {
			return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "unary ~ on %s", t)
		}
		a.stream.Operator(bytecode.OpTilda, widthTag(t))
		return result{types.Temporary, types.WithConst(types.Unqualified(t), true)}, nil
	case tok.Kind == lexer.Operator && tok.Value == "*":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		t := a.materialize(operand.Cat, operand.Typ)
		sig, derr := optable.DispatchUnaryPrefix(optable.Deref, types.Temporary, t)
		if derr != nil {
			return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "cannot dereference %s", t)
		}
		return result{sig.Category, sig.Type}, nil
	case tok.Kind == lexer.Operator && tok.Value == "&":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		sig, derr := optable.DispatchUnaryPrefix(optable.AddrOf, operand.Cat, operand.Typ)
		if derr != nil {
			return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "cannot take address of a temporary")
		}
		// Codegen is a no-op: operand.Cat == Variable already left the
		// address on the stack; & simply reinterprets it as a pointer value.
		return result{sig.Category, sig.Type}, nil
	case tok.Kind == lexer.Reserved && tok.Value == "new":
		a.advance()
		t, err := a.parseType()
		if err != nil {
			return result{}, err
		}
		a.stream.Operand(uint64(t.Size()))
		a.stream.Operator(bytecode.OpNew, types.I64)
		return result{types.Temporary, a.arena.Intern(types.PointerTo(types.Unqualified(t)))}, nil
	case tok.Kind == lexer.Reserved && tok.Value == "delete":
		a.advance()
		operand, err := a.parseUnary()
		if err != nil {
			return result{}, err
		}
		t := a.materialize(operand.Cat, operand.Typ)
		if t.Variant != types.VariantPointer {
			return result{}, berrors.NewTranslationError(berrors.TypeMismatch, tok.SourceIndex, "delete requires a pointer, got %s", t)
		}
		a.stream.Operand(uint64(t.Pointee.Size()))
		a.stream.Operator(bytecode.OpDelete, types.I64)
		return result{types.Temporary, &types.Type{Variant: types.VariantPrimitive, Prim: voidKind}}, nil
	}
	return a.parsePostfix()
}

func (a *Analyzer) emitPrefixIncDec(tok lexer.Lexeme) (result, error) {
	operand, err := a.parseUnary()
	if err != nil {
		return result{}, err
	}
	prefixOp := optable.PrefixInc
	if tok.Value == "--" {
		prefixOp = optable.PrefixDec
	}
	sig, derr := optable.DispatchUnaryPrefix(prefixOp, operand.Cat, operand.Typ)
	if derr != nil {
		return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "%s requires an assignable numeric operand", tok.Value)
	}
	target := types.Unqualified(operand.Typ)
	tag := widthTag(target)

	a.stream.Operator(bytecode.OpSave, tag)
	a.stream.Operator(bytecode.OpRestore, tag)
	a.stream.Operator(bytecode.OpLoad, tag)
	a.stream.Operand(1)
	arith := bytecode.OpAdd
	if tok.Value == "--" {
		arith = bytecode.OpSubtract
	}
	a.stream.Operator(arith, tag)
	a.stream.Operator(bytecode.OpRestore, tag)
	a.stream.Operator(bytecode.OpStoreDA, tag)
	a.stream.Operator(bytecode.OpRestore, tag)
	return result{sig.Category, sig.Type}, nil
}

// --- P13 postfix, subscript, call, member -------------------------------

func (a *Analyzer) parsePostfix() (result, error) {
	base, err := a.parsePrimary()
	if err != nil {
		return result{}, err
	}
	for {
		switch {
		case a.check(lexer.Operator, "++") || a.check(lexer.Operator, "--"):
			tok := a.advance()
			base, err = a.emitPostfixIncDec(base, tok)
			if err != nil {
				return result{}, err
			}
		case a.check(lexer.Operator, "."):
			a.advance()
			field, ferr := a.expect(lexer.Identifier, a.peek().Value)
			if ferr != nil {
				return result{}, ferr
			}
			if !needsLoad(base.Cat, base.Typ) && base.Cat != types.Variable {
				return result{}, berrors.NewTranslationError(berrors.TypeNoMembers, field.SourceIndex, "member access requires an addressable struct")
			}
			sig, derr := optable.DispatchMember(types.Unqualified(base.Typ), field.Value)
			if derr != nil {
				return result{}, berrors.NewTranslationError(berrors.TypeUnknownMember, field.SourceIndex, "no member %q on %s", field.Value, base.Typ)
			}
			off := fieldOffset(base.Typ, field.Value)
			a.stream.Operand(uint64(off))
			a.stream.Operator(bytecode.OpAdd, types.I64)
			base = result{sig.Category, sig.Type}
		case a.check(lexer.Bracket, "["):
			a.advance()
			idx, ierr := a.parseExpr()
			if ierr != nil {
				return result{}, ierr
			}
			if _, err := a.expect(lexer.Bracket, "]"); err != nil {
				return result{}, err
			}
			if base.Typ.Variant != types.VariantArray {
				return result{}, berrors.NewTranslationError(berrors.TypeNotIndexed, a.peek().SourceIndex, "%s is not indexable", base.Typ)
			}
			elem := base.Typ.Elem
			idxT := a.materialize(idx.Cat, idx.Typ)
			a.emitCast(types.Temporary, idxT, types.Primitive(types.I64))
			a.stream.Operand(uint64(elem.Size()))
			a.stream.Operator(bytecode.OpMultiply, types.I64)
			a.stream.Operator(bytecode.OpAdd, types.I64)
			base = result{types.Variable, types.WithBoth(elem, base.Typ.Const, true)}
		default:
			return base, nil
		}
	}
}

func (a *Analyzer) emitPostfixIncDec(operand result, tok lexer.Lexeme) (result, error) {
	prefixOp := optable.PrefixInc
	if tok.Value == "--" {
		prefixOp = optable.PrefixDec
	}
	if _, derr := optable.DispatchUnaryPrefix(prefixOp, operand.Cat, operand.Typ); derr != nil {
		return result{}, berrors.NewTranslationError(berrors.UnknownOperator, tok.SourceIndex, "%s requires an assignable numeric operand", tok.Value)
	}
	target := types.Unqualified(operand.Typ)
	tag := widthTag(target)

	a.stream.Operator(bytecode.OpSave, tag)
	a.stream.Operator(bytecode.OpRestore, tag)
	a.stream.Operator(bytecode.OpLoad, tag) // curVal
	a.stream.Operator(bytecode.OpDuplicate, tag)
	a.stream.Operand(1)
	arith := bytecode.OpAdd
	if tok.Value == "--" {
		arith = bytecode.OpSubtract
	}
	a.stream.Operator(arith, tag) // curVal, newVal
	a.stream.Operator(bytecode.OpRestore, tag)
	a.stream.Operator(bytecode.OpStoreDA, tag) // leaves curVal
	return result{types.Temporary, types.WithConst(target, true)}, nil
}

// fieldOffset sums the sizes of the fields preceding name.
func fieldOffset(structType *types.Type, name string) int {
	off := 0
	for _, f := range structType.Fields {
		if f.Name == name {
			return off
		}
		off += f.Type.Size()
	}
	return off
}

// --- P14 atoms ------------------------------------------------------------

func (a *Analyzer) parsePrimary() (result, error) {
	tok := a.peek()
	switch {
	case tok.Kind == lexer.Parenthesis && tok.Value == "(":
		a.advance()
		inner, err := a.parseExpr()
		if err != nil {
			return result{}, err
		}
		if _, err := a.expect(lexer.Parenthesis, ")"); err != nil {
			return result{}, err
		}
		return inner, nil

	case tok.Kind == lexer.NumericLiteral:
		a.advance()
		kind, bits, err := parseNumericLiteral(tok)
		if err != nil {
			return result{}, err
		}
		a.stream.Operand(bits)
		return result{types.Temporary, types.WithConst(types.Primitive(kind), true)}, nil

	case tok.Kind == lexer.Reserved && (tok.Value == "true" || tok.Value == "false"):
		a.advance()
		v := uint64(0)
		if tok.Value == "true" {
			v = 1
		}
		a.stream.Operand(v)
		return result{types.Temporary, types.WithConst(types.Primitive(types.Bool), true)}, nil

	case tok.Kind == lexer.StringLiteral:
		a.advance()
		t, err := a.emitStringLiteral(tok.Value)
		return result{types.Temporary, t}, err

	case tok.Kind == lexer.Identifier:
		return a.parseIdentifierPrimary()
	}
	return result{}, berrors.NewTranslationError(berrors.UnexpectedLexeme, tok.SourceIndex, "unexpected token %q in expression", tok.Value)
}

func (a *Analyzer) parseIdentifierPrimary() (result, error) {
	name := a.advance()

	if fi, ok := a.funcs[name.Value]; ok && a.check(lexer.Parenthesis, "(") {
		return a.emitCall(name.Value, fi, name)
	}

	ty, ok := a.symtab.LookupVar(name.Value)
	if !ok {
		return result{}, berrors.NewTranslationError(berrors.UndeclaredIdentifier, name.SourceIndex, "undeclared identifier %q", name.Value)
	}
	off, ok := a.lookupOffset(name.Value)
	if !ok {
		return result{}, berrors.NewTranslationError(berrors.UndeclaredIdentifier, name.SourceIndex, "%q has no frame slot (internal compiler error)", name.Value)
	}
	a.stream.Operator(bytecode.OpSP, types.I64)
	a.stream.Operand(uint64(off))
	a.stream.Operator(bytecode.OpFromSP, types.I64)
	return result{types.Variable, ty}, nil
}

// parseNumericLiteral decodes one lexer.NumericLiteral token per spec.md
// §4.6's suffix grammar into a primitive kind and its bit pattern.
func parseNumericLiteral(tok lexer.Lexeme) (types.Kind, uint64, error) {
	text := tok.Value
	if strings.Contains(text, ".") || (strings.HasSuffix(text, "f") && !strings.HasPrefix(text, "0x")) {
		isF32 := strings.HasSuffix(text, "f")
		numText := text
		if isF32 {
			numText = text[:len(text)-1]
		}
		f, err := strconv.ParseFloat(numText, 64)
		if err != nil {
			return 0, 0, berrors.NewTranslationError(berrors.NumberNotFinished, tok.SourceIndex, "bad float literal %q", text)
		}
		if isF32 {
			return types.F32, uint64(math.Float32bits(float32(f))), nil
		}
		return types.F64, math.Float64bits(f), nil
	}

	kind := types.I32
	unsigned := false
	body := text
	if len(body) > 0 {
		last := body[len(body)-1]
		if last == 'u' || last == 'U' {
			unsigned = true
			body = body[:len(body)-1]
		}
	}
	if len(body) > 0 {
		switch body[len(body)-1] {
		case 't', 'T':
			kind = pickIntKind(types.I8, types.U8, unsigned)
			body = body[:len(body)-1]
		case 's', 'S':
			kind = pickIntKind(types.I16, types.U16, unsigned)
			body = body[:len(body)-1]
		case 'i', 'I':
			kind = pickIntKind(types.I32, types.U32, unsigned)
			body = body[:len(body)-1]
		case 'l', 'L':
			kind = pickIntKind(types.I64, types.U64, unsigned)
			body = body[:len(body)-1]
		default:
			if unsigned {
				kind = types.U32
			}
		}
	}
	base := 10
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		base = 16
		body = body[2:]
	}
	v, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return 0, 0, berrors.NewTranslationError(berrors.NumberNotFinished, tok.SourceIndex, "bad integer literal %q", text)
	}
	return kind, v, nil
}

func pickIntKind(signed, unsigned types.Kind, isUnsigned bool) types.Kind {
	if isUnsigned {
		return unsigned
	}
	return signed
}

// emitStringLiteral heap-allocates a char array sized to the literal and
// emits the stores that initialise it byte by byte -- string literals are
// materialised eagerly rather than pooled in a read-only data section,
// since the bytecode format has none.
func (a *Analyzer) emitStringLiteral(s string) (*types.Type, error) {
	bytes := []byte(s)
	size := len(bytes) + 1 // NUL-terminated char array
	a.stream.Operand(uint64(size))
	a.stream.Operator(bytecode.OpNew, types.I64)
	a.stream.Operator(bytecode.OpSave, types.I64)
	for i, b := range bytes {
		a.stream.Operator(bytecode.OpRestore, types.I64)
		a.stream.Operand(uint64(i))
		a.stream.Operator(bytecode.OpAdd, types.I64)
		a.stream.Operand(uint64(b))
		a.stream.Operator(bytecode.OpStoreAD, types.Char)
	}
	a.stream.Operator(bytecode.OpRestore, types.I64)
	a.stream.Operand(uint64(len(bytes)))
	a.stream.Operator(bytecode.OpAdd, types.I64)
	a.stream.Operand(0)
	a.stream.Operator(bytecode.OpStoreAD, types.Char)
	a.stream.Operator(bytecode.OpRestore, types.I64)
	return a.arena.Intern(types.ArrayOf(types.Primitive(types.Char))), nil
}
