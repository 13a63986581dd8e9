package bytecode

import "math/big"

// Dialect records which surface syntax produced a compiled expression, so
// the decompiler can round-trip to the same surface form the author used
// (Open Question #3 in the spec: record a per-expression dialect instead of
// canonicalizing to one surface syntax on save).
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectDSL
	DialectLegacy
)

func (d Dialect) String() string {
	switch d {
	case DialectDSL:
		return "dsl"
	case DialectLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Instr is one bytecode instruction. Only the fields relevant to Op are
// populated; the rest are zero. Num/Den are always held as *big.Int, even
// for LOAD_CONST, so the compiler never needs two code paths for "does it
// fit in an instruction field" — only the choice of LOAD_CONST vs
// LOAD_CONST_BIG (an int32-fit check, §4.7) reflects that distinction, and
// it's recorded in Op alone.
type Instr struct {
	Op     Op
	Num    *big.Int // LOAD_CONST / LOAD_CONST_BIG
	Den    *big.Int // LOAD_CONST / LOAD_CONST_BIG
	NoteID uint32   // LOAD_REF
	Var    Var      // LOAD_REF / LOAD_BASE
}

// Program is a compiled expression: an instruction sequence plus the
// metadata the module needs to track dependencies and decompile without
// re-parsing (§3 "Expression (compiled)").
type Program struct {
	Code           []Instr
	Dependencies   map[uint32]struct{} // note ids this program loads from, base excluded
	ReferencesBase bool
	Source         string
	Dialect        Dialect
}

// NewProgram wraps a freshly emitted instruction stream with empty metadata;
// the compiler fills in Dependencies/ReferencesBase as it emits.
func NewProgram(source string, dialect Dialect) *Program {
	return &Program{
		Dependencies: make(map[uint32]struct{}),
		Source:       source,
		Dialect:      dialect,
	}
}

// Emit appends an instruction to the program's code.
func (p *Program) Emit(i Instr) {
	p.Code = append(p.Code, i)
}

// DependencySet returns the sorted-free set of note ids this program's
// LOAD_REF instructions reference (base excluded — see ReferencesBase).
func (p *Program) DependencySet() map[uint32]struct{} {
	return p.Dependencies
}
