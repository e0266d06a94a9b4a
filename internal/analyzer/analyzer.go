// Package analyzer implements the recursive-descent semantic analyser of
// spec.md §4.3: it walks a lexeme stream once, consulting the symbol
// table and operator table as it goes, and appends instructions to a
// single growing bytecode.Stream. It never re-reads tokens.
package analyzer

import (
	"fmt"

	"bbl/internal/bytecode"
	berrors "bbl/internal/errors"
	"bbl/internal/lexer"
	"bbl/internal/optable"
	"bbl/internal/symtab"
	"bbl/internal/types"
)

// funcInfo records everything the analyser needs about a declared
// function after its signature (and, once compiled, its frame size) are
// known: used both for call-site type checking and for the deferred
// frame-size fixups (sizeFixups); the entry PC is emitted directly as an
// Operand.
type funcInfo struct {
	sig       *types.Type // VariantFunction
	entryPC   int         // -1 until the body has been compiled
	frameSize int         // -1 until the body has been compiled

	paramNames    []string // Required names, then Defaults names, positional
	defaultValues []uint64 // raw bit patterns, aligned to sig.Defaults
}

// sizeFixup is a deferred Push-instruction size operand: a self-recursive
// call site doesn't yet know its own function's final frame size (the
// entry PC is already known -- it is recorded before the body is compiled
// -- but the body, and therefore its frame size, is still being compiled),
// so a placeholder Operand node is recorded here and patched once the
// function's body finishes compiling.
type sizeFixup struct {
	pos  int
	name string
}

// Analyzer is the single-pass recursive-descent compiler. One Analyzer
// compiles exactly one translation unit.
type Analyzer struct {
	toks []lexer.Lexeme
	pos  int

	src string // original source, for SourceIndex -> line/col rendering by callers

	symtab *symtab.Table
	ops    *optable.Tables
	arena  *types.Arena
	stream *bytecode.Stream

	loopDepth int
	loopStack []*loopCtx

	funcs map[string]*funcInfo
	// returnStack mirrors the nesting of function bodies being compiled;
	// the top entry is consulted by every `return` inside the innermost
	// function.
	returnStack []*Type_
	curFunc     string // name of the function currently being compiled, "" at top level

	// frame layout bookkeeping for the function currently being compiled.
	frameOffset int // next free byte offset within the current frame
	sizeFixups  []sizeFixup

	// offsets mirrors symtab's scope stack one-for-one, recording each
	// local variable's frame-relative byte offset (the symbol table
	// itself only tracks types, per spec.md §3).
	offsets []map[string]int

	Warnings []berrors.Warning
}

// pushScope opens a new lexical scope in lockstep across the symbol table
// and the offset-tracking shadow stack.
func (a *Analyzer) pushScope() {
	a.symtab.Push()
	a.offsets = append(a.offsets, make(map[string]int))
}

func (a *Analyzer) popScope() {
	a.symtab.Pop()
	a.offsets = a.offsets[:len(a.offsets)-1]
}

// declareLocal reserves t.Size() bytes at frameOffset for a new local of
// type t, advancing the frame cursor, and records both its type (symtab) and its
// offset (the shadow stack).
func (a *Analyzer) declareLocal(name string, t *types.Type) (int, bool) {
	if !a.symtab.DeclareVar(name, t) {
		return 0, false
	}
	off := a.frameOffset
	a.offsets[len(a.offsets)-1][name] = off
	a.frameOffset += t.Size()
	return off, true
}

// warnIfShadowing appends a non-fatal Shadow warning when name was just
// declared over a same-named binding in an enclosing scope; shadowing
// itself is always permitted (declareLocal only rejects a duplicate
// within the same scope), this just surfaces it the way spec.md §7
// surfaces a lossy cast via Downcast.
func (a *Analyzer) warnIfShadowing(name string, sourceIndex int) {
	if a.symtab.ShadowsOuter(name) {
		a.Warnings = append(a.Warnings, berrors.Warning{
			Kind: "Shadow", SourceIndex: sourceIndex,
			Message: fmt.Sprintf("%q shadows a declaration from an enclosing scope", name),
		})
	}
}

// warnIfLossy appends a non-fatal Downcast warning when CanCast reported a
// lossy (but permitted) conversion, per spec.md §7.
func (a *Analyzer) warnIfLossy(c types.Castability, from, to *types.Type, sourceIndex int) {
	if c == types.Lossy {
		a.Warnings = append(a.Warnings, berrors.Warning{
			Kind: "Downcast", SourceIndex: sourceIndex,
			Message: fmt.Sprintf("implicit conversion from %s to %s may lose information", from, to),
		})
	}
}

// lookupOffset walks the shadow stack innermost-first, mirroring
// symtab.LookupVar.
func (a *Analyzer) lookupOffset(name string) (int, bool) {
	for i := len(a.offsets) - 1; i >= 0; i-- {
		if off, ok := a.offsets[i][name]; ok {
			return off, true
		}
	}
	return 0, false
}

// Type_ avoids a name collision with the types package import alias in
// this file; it is simply *types.Type.
type Type_ = types.Type

// New creates an Analyzer over an already-scanned lexeme stream.
func New(src string, toks []lexer.Lexeme) *Analyzer {
	return &Analyzer{
		toks:   toks,
		src:    src,
		symtab: symtab.New(),
		ops:    optable.New(),
		arena:  types.NewArena(),
		stream:  bytecode.NewStream(),
		funcs:   make(map[string]*funcInfo),
		offsets: []map[string]int{make(map[string]int)},
	}
}

func (a *Analyzer) Stream() *bytecode.Stream { return a.stream }

// InternedTypeKeys reports the structural key of every distinct type this
// compilation interned, for the CLI's verbose compile report.
func (a *Analyzer) InternedTypeKeys() []string { return a.arena.Keys() }

// --- token cursor -----------------------------------------------------

func (a *Analyzer) at(i int) lexer.Lexeme {
	if a.pos+i >= len(a.toks) {
		return lexer.Lexeme{Kind: lexer.Unknown, Value: "", SourceIndex: len(a.src)}
	}
	return a.toks[a.pos+i]
}

func (a *Analyzer) peek() lexer.Lexeme { return a.at(0) }

func (a *Analyzer) atEnd() bool { return a.pos >= len(a.toks) }

func (a *Analyzer) advance() lexer.Lexeme {
	t := a.peek()
	if !a.atEnd() {
		a.pos++
	}
	return t
}

func (a *Analyzer) check(kind lexer.Kind, value string) bool {
	t := a.peek()
	return t.Kind == kind && t.Value == value
}

func (a *Analyzer) checkValue(value string) bool { return a.peek().Value == value }

func (a *Analyzer) match(kind lexer.Kind, value string) bool {
	if a.check(kind, value) {
		a.advance()
		return true
	}
	return false
}

func (a *Analyzer) expect(kind lexer.Kind, value string) (lexer.Lexeme, error) {
	if a.check(kind, value) {
		return a.advance(), nil
	}
	got := a.peek()
	return lexer.Lexeme{}, berrors.NewTranslationError(berrors.UnexpectedLexeme, got.SourceIndex,
		"expected %q, got %q", value, got.Value)
}
