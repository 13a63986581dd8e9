package notemodule

import (
	"sort"

	"notecore/internal/bytecode"
	"notecore/internal/errors"
	"notecore/internal/value"
	"notecore/internal/vm"
)

// Evaluate topologically orders the dirty set and re-runs the VM for every
// property of every dirty note, writing results into the cache and clearing
// dirty on success (§4.9 evaluate, §4.11).
func (m *Module) Evaluate() error {
	order, err := m.dirtyTopologicalOrder()
	if err != nil {
		return err
	}

	for _, id := range order {
		note, ok := m.resolveNote(id)
		if !ok {
			continue // a dirty id for a note removed since marking; nothing to evaluate
		}
		evaluated := &EvaluatedNote{}
		prev, hadPrev := m.cache[id]
		// Published before the loop so a derived measureLength can read this
		// note's own tempo and beatsPerMeasure, which AllVars orders first.
		m.cache[id] = evaluated
		for _, prop := range bytecode.AllVars() {
			val, corrupted, err := m.evaluateProperty(id, note, prop)
			if err != nil {
				if hadPrev {
					m.cache[id] = prev
				} else {
					delete(m.cache, id)
				}
				return err
			}
			evaluated.Values[prop] = val
			evaluated.setCorrupted(prop, corrupted || val.IsSymbolic())
		}
	}

	for _, id := range order {
		delete(m.dirty, id)
	}
	return nil
}

// dirtyTopologicalOrder orders m.dirty (which already holds the transitive
// inverse closure of every marked id, see markDirtyLocked) using Kahn's
// algorithm over the note-level forward graph, ties broken by ascending id
// (§5 "deterministic across runs").
func (m *Module) dirtyTopologicalOrder() ([]uint32, error) {
	subgraph := make(map[uint32]struct{}, len(m.dirty))
	for id := range m.dirty {
		subgraph[id] = struct{}{}
	}

	inDegree := make(map[uint32]int, len(subgraph))
	for id := range subgraph {
		count := 0
		for dep := range m.forward[id] {
			if _, ok := subgraph[dep]; ok {
				count++
			}
		}
		inDegree[id] = count
	}

	var queue []uint32
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	var order []uint32
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var freed []uint32
		for dependent := range m.inverse[id] {
			if _, ok := subgraph[dependent]; !ok {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Slice(freed, func(i, j int) bool { return freed[i] < freed[j] })
		queue = append(queue, freed...)
		sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })
	}

	if len(order) != len(subgraph) {
		return nil, errors.New(errors.KindCycle, "dependency graph contains a cycle among the dirty notes")
	}
	return order, nil
}

func (m *Module) evaluateProperty(id uint32, note *Note, prop bytecode.Var) (value.Value, bool, error) {
	prog := note.Programs[prop]
	if prog != nil {
		resolver := func(noteID uint32, v bytecode.Var) (value.Value, error) {
			cached, ok := m.cache[noteID]
			if !ok {
				return value.Value{}, errors.New(errors.KindReference, "note %d property %s not yet evaluated", noteID, v)
			}
			return cached.Values[v], nil
		}
		return vm.Run(prog, resolver)
	}
	return m.inheritedValue(id, prop)
}

// inheritedValue implements §4.10's LOAD_REF fallback for a note with no
// expression for prop: tempo/beatsPerMeasure inherit along the
// frequency-parent chain (falling back to base), measureLength is derived
// as the note's own effective beatsPerMeasure*60/tempo (read from the
// in-progress entry Evaluate publishes in the cache), while
// startTime/duration/frequency default from base directly — they do not
// walk the frequency-parent chain.
func (m *Module) inheritedValue(id uint32, prop bytecode.Var) (value.Value, bool, error) {
	switch prop {
	case bytecode.VarMeasureLength:
		own, ok := m.cache[id]
		if !ok {
			return value.Value{}, false, errors.New(errors.KindReference, "note %d property %s not yet evaluated", id, prop)
		}
		bpm, bpmCorrupted := own.Values[bytecode.VarBeatsPerMeasure], own.Corrupted(bytecode.VarBeatsPerMeasure)
		tempo, tempoCorrupted := own.Values[bytecode.VarTempo], own.Corrupted(bytecode.VarTempo)
		sixty := value.FromInt(60)
		scaled, mulCorrupted := value.Mul(bpm, sixty)
		result, divCorrupted, err := value.Div(scaled, tempo)
		if err != nil {
			return value.Value{}, false, errors.New(errors.KindDivideByZero, "%s", err.Error())
		}
		return result, bpmCorrupted || tempoCorrupted || mulCorrupted || divCorrupted, nil
	case bytecode.VarTempo, bytecode.VarBeatsPerMeasure:
		return m.chainedValue(id, prop)
	default: // VarStartTime, VarDuration, VarFrequency
		return m.baseValue(prop)
	}
}

// chainedValue reads prop from id's frequency parent (recursively), falling
// back to base's cached value if id has no frequency parent. Only used for
// tempo and beatsPerMeasure (§4.10).
func (m *Module) chainedValue(id uint32, prop bytecode.Var) (value.Value, bool, error) {
	parent, ok := m.frequencyParent(id)
	if !ok {
		parent = 0
	}
	cached, ok := m.cache[parent]
	if !ok {
		return value.Value{}, false, errors.New(errors.KindReference, "note %d property %s not yet evaluated", parent, prop)
	}
	return cached.Values[prop], cached.Corrupted(prop), nil
}

// baseValue reads prop straight from base's cached value — the §4.10
// fallback for startTime/duration/frequency, which default from base
// directly rather than walking the frequency-parent chain.
func (m *Module) baseValue(prop bytecode.Var) (value.Value, bool, error) {
	cached, ok := m.cache[0]
	if !ok {
		return value.Value{}, false, errors.New(errors.KindReference, "base note property %s not yet evaluated", prop)
	}
	return cached.Values[prop], cached.Corrupted(prop), nil
}

// frequencyParent returns the note id that id's own frequency expression
// references, preferring the smallest id when there is more than one (base,
// id 0, whenever the expression references it) (§4.9
// find_tempo/find_instrument "parent in the frequency chain").
func (m *Module) frequencyParent(id uint32) (uint32, bool) {
	note, ok := m.resolveNote(id)
	if !ok {
		return 0, false
	}
	prog := note.Programs[bytecode.VarFrequency]
	if prog == nil {
		return 0, false
	}
	if prog.ReferencesBase {
		return 0, true
	}
	if len(prog.Dependencies) == 0 {
		return 0, false
	}
	first := true
	var best uint32
	for dep := range prog.Dependencies {
		if first || dep < best {
			best = dep
			first = false
		}
	}
	return best, true
}
