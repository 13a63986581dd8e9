package notemodule

import (
	"fmt"
	"strings"

	"notecore/internal/bytecode"
	"notecore/internal/compiler"
	"notecore/internal/decompiler"
)

// spliceOutReference rewrites every property of dependent that references
// removedID, textually inlining the removed note's own expression source in
// place of each reference, then recompiles (§4.9 remove_note "keep" mode;
// the textual-splice approach is the fragile design flagged as an Open
// Question in §9 — an AST-level splice would avoid depending on the
// decompiler's parenthesization matching what the compiler expects).
func (m *Module) spliceOutReference(dependentID, removedID uint32, removed *Note) error {
	dependent, ok := m.resolveNote(dependentID)
	if !ok {
		return nil
	}

	for _, prop := range bytecode.AllVars() {
		prog := dependent.Programs[prop]
		if prog == nil {
			continue
		}
		if _, refs := prog.Dependencies[removedID]; !refs {
			continue
		}

		src, err := decompiler.Decompile(prog, prog.Dialect)
		if err != nil {
			return err
		}

		for _, v := range varsReferencingNote(prog, removedID) {
			removedProg := removed.Programs[v]
			if removedProg == nil {
				continue
			}
			replacement := "(" + removedProg.Source + ")"
			src = strings.ReplaceAll(src, referencePattern(prog.Dialect, removedID, v), replacement)
		}

		// Recompiled under the dialect the dependent was written in: a DSL
		// splice such as "(220) * 2" carries no DSL marker, so auto-detection
		// would hand it to the legacy parser. Inlining only adds edges to notes
		// the removed note already depended on, so it cannot close a cycle.
		newProg, err := compiler.CompileDialect(src, prog.Dialect)
		if err != nil {
			return err
		}
		dependent.Programs[prop] = newProg
		m.installEdges(dependentID, dependent.dependencySet())
		m.installPropEdges(dependent)
		m.markDirtyLocked(dependentID)
	}

	if dependent.Instrument == "" && removed.Instrument != "" {
		dependent.Instrument = removed.Instrument
	}
	return nil
}

func varsReferencingNote(prog *bytecode.Program, noteID uint32) []bytecode.Var {
	seen := make(map[bytecode.Var]struct{})
	var vars []bytecode.Var
	for _, instr := range prog.Code {
		if instr.Op != bytecode.OpLoadRef || instr.NoteID != noteID {
			continue
		}
		if _, ok := seen[instr.Var]; ok {
			continue
		}
		seen[instr.Var] = struct{}{}
		vars = append(vars, instr.Var)
	}
	return vars
}

func referencePattern(d bytecode.Dialect, noteID uint32, v bytecode.Var) string {
	if d == bytecode.DialectLegacy {
		return fmt.Sprintf("module.getNoteById(%d).getVariable('%s')", noteID, v.ShortAlias())
	}
	return fmt.Sprintf("[%d].%s", noteID, v.ShortAlias())
}
