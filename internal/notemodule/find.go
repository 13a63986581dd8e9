package notemodule

import (
	"notecore/internal/bytecode"
	"notecore/internal/errors"
	"notecore/internal/value"
)

// FindTempo returns note id's effective tempo. Since inheritedValue already
// folds the frequency-parent-chain fallback into every Evaluate() pass,
// this is simply a cache read — Evaluate() must have run since the last
// edit touching id or its ancestors (§4.9 find_tempo, §5: external
// consumers read the cache only after evaluate() completes).
func (m *Module) FindTempo(id uint32) (value.Value, error) {
	return m.cachedValue(id, bytecode.VarTempo)
}

// FindMeasureLength returns note id's effective measure length,
// beatsPerMeasure(id)*60/tempo(id), already computed by Evaluate() whether
// id has an explicit measureLength expression or not (§4.9
// find_measure_length).
func (m *Module) FindMeasureLength(id uint32) (value.Value, error) {
	return m.cachedValue(id, bytecode.VarMeasureLength)
}

func (m *Module) cachedValue(id uint32, prop bytecode.Var) (value.Value, error) {
	cached, ok := m.cache[id]
	if !ok {
		return value.Value{}, errors.New(errors.KindReference, "note %d has not been evaluated yet", id)
	}
	return cached.Values[prop], nil
}

// FindInstrument returns id's explicit instrument, or its nearest ancestor's
// along the frequency-parent chain, or "sine-wave" if none of them have one
// (§4.9 find_instrument).
func (m *Module) FindInstrument(id uint32) string {
	visited := make(map[uint32]struct{})
	cur := id
	for {
		if _, seen := visited[cur]; seen {
			break
		}
		visited[cur] = struct{}{}

		note, ok := m.resolveNote(cur)
		if !ok {
			break
		}
		if note.Instrument != "" {
			return note.Instrument
		}
		parent, ok := m.frequencyParent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	return "sine-wave"
}

// MeasureEntry is one generated measure boundary (§4.9 generate_measures).
type MeasureEntry struct {
	Time  value.Value
	Index int
}

// GenerateMeasures yields count measure boundaries starting at from's start
// time, stepping by from's measure length each time.
func (m *Module) GenerateMeasures(from uint32, count int) ([]MeasureEntry, error) {
	cur, err := m.cachedValue(from, bytecode.VarStartTime)
	if err != nil {
		return nil, err
	}
	step, err := m.FindMeasureLength(from)
	if err != nil {
		return nil, err
	}

	entries := make([]MeasureEntry, 0, count)
	for i := 0; i < count; i++ {
		entries = append(entries, MeasureEntry{Time: cur, Index: i})
		next, _ := value.Add(cur, step)
		cur = next
	}
	return entries, nil
}
