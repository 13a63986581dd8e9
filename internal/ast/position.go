// Package ast defines the shared expression tree produced by both surface
// parsers (internal/dslparser and internal/legacygrammar). Every node keeps
// enough position information to report lex/parse errors and to decompile
// back to readable source.
package ast

import "fmt"

// Position identifies a location in an original source string.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
