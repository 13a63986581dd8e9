package legacygrammar

import "github.com/alecthomas/participle/v2/lexer"

// Expr is the top-level production: a primary atom followed by zero or
// more chained method calls (`.add(...)`, `.neg()`, ...).
type Expr struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Primary *Primary `@@`
	Calls   []*Call  `@@*`
}

// Primary is one of the five legacy atoms (§4.5).
type Primary struct {
	Fraction    *FractionLit     `  @@`
	BaseVar     *BaseVarRef      `| @@`
	NoteVar     *NoteVarRef      `| @@`
	FindTempo   *FindTempoCall   `| @@`
	FindMeasure *FindMeasureCall `| @@`
}

// FractionLit is `new Fraction(n[, d])`.
type FractionLit struct {
	Num int64  `"new" "Fraction" "(" @Int`
	Den *int64 `[ "," @Int ] ")"`
}

// BaseVarRef is `module.baseNote.getVariable('prop')`.
type BaseVarRef struct {
	Prop string `"module" "." "baseNote" "." "getVariable" "(" @String ")"`
}

// NoteVarRef is `module.getNoteById(id).getVariable('prop')`.
type NoteVarRef struct {
	NoteID int64  `"module" "." "getNoteById" "(" @Int ")" "." "getVariable" "("`
	Prop   string `@String ")"`
}

// Target is the argument to findTempo/findMeasureLength: either the base
// note or a note looked up by id.
type Target struct {
	Base *BaseTarget `  @@`
	ByID *ByIDTarget `| @@`
}

type BaseTarget struct {
	Marker bool `@"module" "." "baseNote"`
}

type ByIDTarget struct {
	NoteID int64 `"module" "." "getNoteById" "(" @Int ")"`
}

// FindTempoCall is `module.findTempo(target)`.
type FindTempoCall struct {
	Target *Target `"module" "." "findTempo" "(" @@ ")"`
}

// FindMeasureCall is `module.findMeasureLength(target)`.
type FindMeasureCall struct {
	Target *Target `"module" "." "findMeasureLength" "(" @@ ")"`
}

// Call is one chained method: `.add(expr)`, `.sub(expr)`, `.mul(expr)`,
// `.div(expr)`, `.pow(expr)`, or the argument-less `.neg()`.
type Call struct {
	Method string `"." @("add"|"sub"|"mul"|"div"|"pow"|"neg")`
	Arg    *Expr  `"(" [ @@ ] ")"`
}
