package legacygrammar

import (
	"github.com/alecthomas/participle/v2"

	"notecore/internal/ast"
	"notecore/internal/errors"
)

var parser = participle.MustBuild[Expr](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses a complete legacy method-chain expression string into the
// shared AST, mirroring dslparser.Parse's signature.
func Parse(source string) (ast.Expr, error) {
	expr, err := parser.ParseString("", source)
	if err != nil {
		return nil, errors.New(errors.KindParse, "%s", err.Error())
	}
	return expr.toAST()
}
