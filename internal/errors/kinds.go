// Package errors implements the structured error surfaces of §7: eight
// error kinds, each carrying a human message and, where applicable, a
// (line, column, offset) position, plus a Rust-style caret-and-gutter
// console renderer adapted from kanso/internal/errors/reporter.go.
package errors

// Kind is one of the eight error kinds enumerated in §7.
type Kind string

const (
	KindLex              Kind = "LexError"
	KindParse            Kind = "ParseError"
	KindUnknownProperty   Kind = "UnknownPropertyError"
	KindCompile          Kind = "CompileError"
	KindReference        Kind = "ReferenceError"
	KindCycle            Kind = "CycleError"
	KindDivideByZero     Kind = "DivideByZero"
	KindMalformedBytecode Kind = "MalformedBytecode"
)
