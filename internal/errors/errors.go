// Package errors implements the two error eras of spec.md §7:
// TranslationError (aborts compilation, carries a source index and a
// taxonomy tag) and RuntimeFault (aborts execution, carries the failing
// pc). Both wrap github.com/pkg/errors so a caller can still recover the
// original construction site with errors.Cause while the short taxonomy
// tag is what gets rendered to the user.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// TranslationKind is the 17-member taxonomy named in spec.md §7.
type TranslationKind string

const (
	UnexpectedLexeme                 TranslationKind = "UnexpectedLexeme"
	UnknownLexeme                    TranslationKind = "UnknownLexeme"
	NumberNotFinished                TranslationKind = "NumberNotFinished"
	StringNotEnded                   TranslationKind = "StringNotEnded"
	UnknownEscapeSequence            TranslationKind = "UnknownEscapeSequence"
	UndeclaredIdentifier             TranslationKind = "UndeclaredIdentifier"
	VoidNotExpected                  TranslationKind = "VoidNotExpected"
	TypeMismatch                     TranslationKind = "TypeMismatch"
	UnknownOperator                  TranslationKind = "UnknownOperator"
	FunctionParameterListDoesNotMatch TranslationKind = "FunctionParameterListDoesNotMatch"
	ExpectedFunction                 TranslationKind = "ExpectedFunction"
	TypeNotIterable                  TranslationKind = "TypeNotIterable"
	TypeNotIndexed                   TranslationKind = "TypeNotIndexed"
	TypeNotCallable                  TranslationKind = "TypeNotCallable"
	TypeNoMembers                    TranslationKind = "TypeNoMembers"
	TypeUnknownMember                TranslationKind = "TypeUnknownMember"
	LoopInstructionsOutsideOfLoop    TranslationKind = "LoopInstructionsOutsideOfLoop"
)

// TranslationError is a fatal, non-recoverable compilation error. One
// error aborts the whole compilation -- there is no error recovery.
type TranslationError struct {
	Kind        TranslationKind
	SourceIndex int
	Message     string
	cause       error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s at index %d: %s", e.Kind, e.SourceIndex, e.Message)
}

func (e *TranslationError) Unwrap() error { return e.cause }

func (e *TranslationError) Cause() error { return e.cause }

// NewTranslationError builds a taxonomy-tagged error wrapped with a stack
// trace via github.com/pkg/errors, so a driver can still print
// errors.Cause(err) in verbose/debug output.
func NewTranslationError(kind TranslationKind, sourceIndex int, format string, args ...interface{}) *TranslationError {
	msg := fmt.Sprintf(format, args...)
	return &TranslationError{
		Kind:        kind,
		SourceIndex: sourceIndex,
		Message:     msg,
		cause:       errors.Errorf("%s: %s", kind, msg),
	}
}

// Warning is a non-aborting diagnostic, e.g. Downcast (spec.md §7).
type Warning struct {
	Kind        string
	SourceIndex int
	Message     string
}

func (w Warning) String() string {
	return fmt.Sprintf("warning: %s at index %d: %s", w.Kind, w.SourceIndex, w.Message)
}

// RuntimeFaultKind is the 7-member fatal runtime taxonomy of spec.md §7.
type RuntimeFaultKind string

const (
	NullptrAccessed      RuntimeFaultKind = "NullptrAccessed"
	MemoryNotAllocated   RuntimeFaultKind = "MemoryNotAllocated"
	MemoryOutOfBounds    RuntimeFaultKind = "MemoryOutOfBounds"
	DivisionByZero       RuntimeFaultKind = "DivisionByZero"
	JumpOutsideOfProgram RuntimeFaultKind = "JumpOutsideOfProgram"
	FunctionNotCalled    RuntimeFaultKind = "FunctionNotCalled"
	ReferenceOperandMet  RuntimeFaultKind = "ReferenceOperandMet"
)

// RuntimeFault is a fatal VM fault: the dispatch loop stops, the fault is
// printed together with the failing pc, and the process exits non-zero.
type RuntimeFault struct {
	Kind    RuntimeFaultKind
	PC      int
	Message string
	cause   error
}

func (f *RuntimeFault) Error() string {
	return fmt.Sprintf("%s at pc=%d: %s", f.Kind, f.PC, f.Message)
}

func (f *RuntimeFault) Unwrap() error { return f.cause }

func (f *RuntimeFault) Cause() error { return f.cause }

func NewRuntimeFault(kind RuntimeFaultKind, pc int, format string, args ...interface{}) *RuntimeFault {
	msg := fmt.Sprintf(format, args...)
	return &RuntimeFault{
		Kind:    kind,
		PC:      pc,
		Message: msg,
		cause:   errors.Errorf("%s: %s", kind, msg),
	}
}

// Cause exposes github.com/pkg/errors' unwrap-to-root-cause for either
// error era, for drivers that want the original construction-site trace
// rather than the short rendered message.
func Cause(err error) error { return errors.Cause(err) }
