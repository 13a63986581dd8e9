// Package notemodule owns notes, the base note, the dependency graph, and
// the evaluation cache, coordinating edits, dirty propagation, and batch
// re-evaluation (§3, §4.9). It is the one package every other piece of this
// module (compiler, decompiler, vm, graph) ultimately serves.
package notemodule

import (
	"notecore/internal/bytecode"
	"notecore/internal/value"
)

// Note is one musical-composition note. Id 0 is reserved for the base note
// (see Module.Base). Programs holds a compiled expression per property,
// indexed by bytecode.Var; a nil entry means the property has no explicit
// expression and falls back to inheritance (§4.9 find_tempo /
// find_instrument, §4.10 LOAD_REF fallback).
type Note struct {
	ID         uint32
	Color      string
	Instrument string // "" means "not explicitly set"
	Programs   [6]*bytecode.Program
}

func newNote(id uint32) *Note {
	return &Note{ID: id}
}

// dependencySet unions the note-id dependencies (including an entry for 0
// when any property references base) across every property's program —
// exactly the contract of Module.GetDirectDependencies.
func (n *Note) dependencySet() map[uint32]struct{} {
	deps := make(map[uint32]struct{})
	for _, prog := range n.Programs {
		if prog == nil {
			continue
		}
		for id := range prog.Dependencies {
			deps[id] = struct{}{}
		}
		if prog.ReferencesBase {
			deps[0] = struct{}{}
		}
	}
	return deps
}

// EvaluatedNote is the cached evaluation result for one note: a Value per
// property plus a bitmask flagging which properties are corrupted (§3).
type EvaluatedNote struct {
	Values     [6]value.Value
	corruption uint8
}

func (e EvaluatedNote) Corrupted(v bytecode.Var) bool {
	return e.corruption&(1<<uint(v)) != 0
}

func (e *EvaluatedNote) setCorrupted(v bytecode.Var, corrupted bool) {
	bit := uint8(1) << uint(v)
	if corrupted {
		e.corruption |= bit
	} else {
		e.corruption &^= bit
	}
}
