package notemodule

import (
	"encoding/json"
	"sort"

	"notecore/internal/bytecode"
	"notecore/internal/errors"
)

// document is the §6.1 module document shape. Every expression is a plain
// string (its surface dialect is auto-detected on load, §4.6); bytecode is
// never persisted (§6.2).
type document struct {
	BaseNote noteFields  `json:"baseNote"`
	Notes    []noteEntry `json:"notes"`
}

type noteFields struct {
	Frequency       string `json:"frequency,omitempty"`
	StartTime       string `json:"startTime,omitempty"`
	Duration        string `json:"duration,omitempty"`
	Tempo           string `json:"tempo,omitempty"`
	BeatsPerMeasure string `json:"beatsPerMeasure,omitempty"`
	MeasureLength   string `json:"measureLength,omitempty"`
}

type noteEntry struct {
	ID uint32 `json:"id"`
	noteFields
	Color      string `json:"color,omitempty"`
	Instrument string `json:"instrument,omitempty"`
}

func (f noteFields) toExprMap() map[bytecode.Var]string {
	exprs := make(map[bytecode.Var]string)
	if f.Frequency != "" {
		exprs[bytecode.VarFrequency] = f.Frequency
	}
	if f.StartTime != "" {
		exprs[bytecode.VarStartTime] = f.StartTime
	}
	if f.Duration != "" {
		exprs[bytecode.VarDuration] = f.Duration
	}
	if f.Tempo != "" {
		exprs[bytecode.VarTempo] = f.Tempo
	}
	if f.BeatsPerMeasure != "" {
		exprs[bytecode.VarBeatsPerMeasure] = f.BeatsPerMeasure
	}
	if f.MeasureLength != "" {
		exprs[bytecode.VarMeasureLength] = f.MeasureLength
	}
	return exprs
}

func fieldsFromNote(n *Note) noteFields {
	source := func(v bytecode.Var) string {
		if n.Programs[v] == nil {
			return ""
		}
		return n.Programs[v].Source
	}
	return noteFields{
		Frequency:       source(bytecode.VarFrequency),
		StartTime:       source(bytecode.VarStartTime),
		Duration:        source(bytecode.VarDuration),
		Tempo:           source(bytecode.VarTempo),
		BeatsPerMeasure: source(bytecode.VarBeatsPerMeasure),
		MeasureLength:   source(bytecode.VarMeasureLength),
	}
}

// ToJSON serializes the module to the §6.1 document shape.
func (m *Module) ToJSON() ([]byte, error) {
	doc := document{BaseNote: fieldsFromNote(m.base)}

	ids := make([]uint32, 0, len(m.notes))
	for id := range m.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		note := m.notes[id]
		doc.Notes = append(doc.Notes, noteEntry{
			ID:         id,
			noteFields: fieldsFromNote(note),
			Color:      note.Color,
			Instrument: note.Instrument,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// FromJSON parses a §6.1 module document into a fresh Module.
func FromJSON(data []byte) (*Module, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.KindCompile, "invalid module document: %s", err.Error())
	}

	m, err := New(doc.BaseNote.toExprMap())
	if err != nil {
		return nil, err
	}

	// Two passes: register every id first so notes may reference each other
	// regardless of array order, then wire in expressions through the same
	// SetExpression path used for interactive edits (reference validation
	// and cycle checking included).
	for _, entry := range doc.Notes {
		if entry.ID == 0 {
			return nil, errors.New(errors.KindReference, "note id 0 is reserved for the base note")
		}
		if err := m.registerBareNote(entry.ID, entry.Color, entry.Instrument); err != nil {
			return nil, err
		}
	}
	for _, entry := range doc.Notes {
		for v, src := range entry.noteFields.toExprMap() {
			if err := m.SetExpression(entry.ID, v, src); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}
