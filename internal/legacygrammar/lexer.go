// Package legacygrammar implements the §4.5 method-chain surface syntax
// with a declarative participle grammar, the same technique
// kanso/grammar/lexer.go + grammar/grammar.go use for the whole Kanso
// language (a stateful lexer plus struct-tag productions) — here pointed at
// a much smaller method-chain grammar: `new Fraction(n[, d])`,
// `module.baseNote.getVariable('prop')`,
// `module.getNoteById(id).getVariable('prop')`, `module.findTempo(...)`,
// `module.findMeasureLength(...)`, and chained
// `.add/.sub/.mul/.div/.neg/.pow(...)`.
package legacygrammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes the legacy surface syntax. Identifiers also cover
// keywords (`module`, `new`, `Fraction`, method names) — participle matches
// quoted literals in grammar tags against Ident tokens by value, so no
// separate keyword table is needed, same as kanso/grammar/lexer.go.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Whitespace", `[ \t\r\n]+`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `-?[0-9]+`, nil},
		{"String", `'[^']*'`, nil},
		{"Punct", `[().,]`, nil},
	},
})
