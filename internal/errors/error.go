package errors

import (
	"fmt"

	"notecore/internal/ast"
)

// CompilerError is the structured error value every fallible operation in
// this module returns (§6.3, §7). It implements the standard error
// interface so it composes with %w/errors.Is call sites, while still
// carrying enough structure for Reporter to render a caret under the
// offending span.
type CompilerError struct {
	Kind     Kind
	Message  string
	Position ast.Position
	Length   int    // span length for the caret marker; 0 means "no position"
	Source   string // the expression text Position/Length index into, if known
}

// WithSource returns a copy of e carrying source as the text its Position
// and Length index into — attached by the caller that actually held the
// offending expression's text (errors are built deep inside the parser,
// which only ever sees a source string, never a filename or note/property
// label to report alongside it).
func (e *CompilerError) WithSource(source string) *CompilerError {
	cp := *e
	cp.Source = source
	return &cp
}

func (e *CompilerError) Error() string {
	if e.Length > 0 {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds a positionless error (runtime errors like ReferenceError,
// CycleError, DivideByZero, MalformedBytecode usually have no source
// position — they're discovered during evaluation, not parsing).
func New(kind Kind, format string, args ...any) *CompilerError {
	return &CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At builds an error anchored to a source position with a one-character
// caret span.
func At(kind Kind, pos ast.Position, format string, args ...any) *CompilerError {
	return &CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos, Length: 1}
}

// Spanning builds an error anchored to a source position with an explicit
// caret span length (used when the offending token is longer than one
// character, e.g. an unknown property name).
func Spanning(kind Kind, pos ast.Position, length int, format string, args ...any) *CompilerError {
	return &CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...), Position: pos, Length: length}
}
