package notemodule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecore/internal/bytecode"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m, err := New(nil)
	require.NoError(t, err)
	return m
}

func TestOctaveClosureIsExact(t *testing.T) {
	m := newTestModule(t)

	var ids []uint32
	for i := 1; i <= 12; i++ {
		id, err := m.AddNote(map[bytecode.Var]string{
			bytecode.VarFrequency: "base.f * 2^(" + itoa(i) + "/12)",
		}, "", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, m.Evaluate())

	last := ids[11]
	cached := m.cache[last]
	assert.Equal(t, "880", cached.Values[bytecode.VarFrequency].Rat.String())
	assert.False(t, cached.Corrupted(bytecode.VarFrequency))

	for _, id := range ids[:11] {
		assert.True(t, m.cache[id].Corrupted(bytecode.VarFrequency), "note %d frequency should be corrupted", id)
	}
}

func TestMajorScaleScenario(t *testing.T) {
	m := newTestModule(t)

	ratios := []string{"(9/8)", "(5/4)", "(4/3)", "(3/2)", "(5/3)", "(15/8)", "(2/1)"}
	var ids []uint32
	for _, r := range ratios {
		id, err := m.AddNote(map[bytecode.Var]string{
			bytecode.VarFrequency: "base.f * " + r,
		}, "", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, m.Evaluate())

	expected := []string{"495", "550", "1760/3", "660", "2200/3", "825", "880"}
	for i, id := range ids {
		cached := m.cache[id]
		assert.Equal(t, expected[i], cached.Values[bytecode.VarFrequency].Rat.String())
		assert.False(t, cached.Corrupted(bytecode.VarFrequency))
	}
}

func TestDependencyDiffUpdatesInverseEdges(t *testing.T) {
	m := newTestModule(t)

	id1, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "440"}, "", "")
	require.NoError(t, err)
	n, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "[" + itoa(int(id1)) + "].f"}, "", "")
	require.NoError(t, err)

	assert.Contains(t, m.GetDependents(id1), n)

	require.NoError(t, m.SetExpression(n, bytecode.VarFrequency, "base.f"))
	assert.NotContains(t, m.GetDependents(id1), n)

	note, _ := m.GetNote(n)
	assert.True(t, note.Programs[bytecode.VarFrequency].ReferencesBase)
}

func TestCycleRejectionLeavesModuleUnchanged(t *testing.T) {
	m := newTestModule(t)

	// three notes, each starting with a literal frequency so none of them
	// reference each other yet.
	id1, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "440"}, "", "")
	require.NoError(t, err)
	id2, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "440"}, "", "")
	require.NoError(t, err)
	id3, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "440"}, "", "")
	require.NoError(t, err)

	// wire up 1.freq = [2].f, 2.freq = [3].f (§8 "Cycle rejection" scenario).
	require.NoError(t, m.SetExpression(id1, bytecode.VarFrequency, "["+itoa(int(id2))+"].f"))
	require.NoError(t, m.SetExpression(id2, bytecode.VarFrequency, "["+itoa(int(id3))+"].f"))

	// 3.freq = [1].f would close the cycle 1 -> 2 -> 3 -> 1.
	err = m.SetExpression(id3, bytecode.VarFrequency, "["+itoa(int(id1))+"].f")
	require.Error(t, err)

	note3, _ := m.GetNote(id3)
	assert.NotContains(t, note3.Programs[bytecode.VarFrequency].Dependencies, id1)
}

func TestDirtyPropagationIncludesTransitiveDependents(t *testing.T) {
	m := newTestModule(t)

	id1, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "440"}, "", "")
	require.NoError(t, err)
	id2, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "[" + itoa(int(id1)) + "].f",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, m.Evaluate())

	require.NoError(t, m.SetExpression(id1, bytecode.VarFrequency, "220"))
	_, dirty1 := m.dirty[id1]
	_, dirty2 := m.dirty[id2]
	assert.True(t, dirty1)
	assert.True(t, dirty2)
}

func TestInheritanceFindsTempoAndInstrumentAlongFrequencyChain(t *testing.T) {
	m := newTestModule(t)

	id1, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "base.f"}, "", "piano")
	require.NoError(t, err)
	id2, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "[" + itoa(int(id1)) + "].f",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, m.Evaluate())

	tempo, err := m.FindTempo(id2)
	require.NoError(t, err)
	assert.Equal(t, "60", tempo.Rat.String())

	assert.Equal(t, "piano", m.FindInstrument(id2))
}

func TestInheritanceDefaultInstrumentIsSineWave(t *testing.T) {
	m := newTestModule(t)
	id, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "base.f"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "sine-wave", m.FindInstrument(id))
}

func TestEndToEndMajorTriad(t *testing.T) {
	m := newTestModule(t)

	id1, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "base.f",
		bytecode.VarDuration:  "beat(base)",
		bytecode.VarStartTime: "0",
	}, "", "")
	require.NoError(t, err)

	id2, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "base.f * (5/4)",
		bytecode.VarDuration:  "beat(base)",
		bytecode.VarStartTime: "[" + itoa(int(id1)) + "].t + [" + itoa(int(id1)) + "].d",
	}, "", "")
	require.NoError(t, err)

	id3, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "base.f * (3/2)",
		bytecode.VarDuration:  "beat(base)",
		bytecode.VarStartTime: "[" + itoa(int(id2)) + "].t + [" + itoa(int(id2)) + "].d",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, m.Evaluate())

	assert.Equal(t, "0", m.cache[id1].Values[bytecode.VarStartTime].Rat.String())
	assert.Equal(t, "1", m.cache[id2].Values[bytecode.VarStartTime].Rat.String())
	assert.Equal(t, "2", m.cache[id3].Values[bytecode.VarStartTime].Rat.String())

	for _, id := range []uint32{id1, id2, id3} {
		assert.Equal(t, "1", m.cache[id].Values[bytecode.VarDuration].Rat.String())
	}

	assert.Equal(t, "440", m.cache[id1].Values[bytecode.VarFrequency].Rat.String())
	assert.Equal(t, "550", m.cache[id2].Values[bytecode.VarFrequency].Rat.String())
	assert.Equal(t, "660", m.cache[id3].Values[bytecode.VarFrequency].Rat.String())
}

func TestRemoveNoteStrictFailsWithDependents(t *testing.T) {
	m := newTestModule(t)
	id1, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "440"}, "", "")
	require.NoError(t, err)
	_, err = m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "[" + itoa(int(id1)) + "].f",
	}, "", "")
	require.NoError(t, err)

	err = m.RemoveNote(id1, RemovalStrict)
	require.Error(t, err)
}

func TestRemoveNoteKeepSplicesExpression(t *testing.T) {
	m := newTestModule(t)
	id1, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "220"}, "", "horn")
	require.NoError(t, err)
	id2, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "[" + itoa(int(id1)) + "].f * 2",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, m.RemoveNote(id1, RemovalKeepDependencies))

	note2, ok := m.GetNote(id2)
	require.True(t, ok)
	require.NoError(t, m.Evaluate())
	assert.Equal(t, "440", m.cache[id2].Values[bytecode.VarFrequency].Rat.String())
	assert.Equal(t, "horn", note2.Instrument)
}

func TestJSONRoundTrip(t *testing.T) {
	m := newTestModule(t)
	id, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "base.f * (3/2)",
	}, "#ff0000", "piano")
	require.NoError(t, err)

	data, err := m.ToJSON()
	require.NoError(t, err)

	reloaded, err := FromJSON(data)
	require.NoError(t, err)

	note, ok := reloaded.GetNote(id)
	require.True(t, ok)
	assert.Equal(t, "piano", note.Instrument)
	assert.Equal(t, "#ff0000", note.Color)

	require.NoError(t, reloaded.Evaluate())
	assert.Equal(t, "660", reloaded.cache[id].Values[bytecode.VarFrequency].Rat.String())
}

func TestAddNoteRejectsReferenceToMissingNote(t *testing.T) {
	m := newTestModule(t)
	_, err := m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "[99].f",
	}, "", "")
	require.Error(t, err)
}

func TestJSONLoadResolvesForwardReferencesAcrossNotes(t *testing.T) {
	m := newTestModule(t)
	id2, err := m.AddNote(map[bytecode.Var]string{bytecode.VarFrequency: "220"}, "", "")
	require.NoError(t, err)
	_, err = m.AddNote(map[bytecode.Var]string{
		bytecode.VarFrequency: "[" + itoa(int(id2)) + "].f * 2",
	}, "", "")
	require.NoError(t, err)

	data, err := m.ToJSON()
	require.NoError(t, err)

	// Reverse the notes array so the first entry references the second,
	// forcing the two-pass loader to actually resolve a forward reference.
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Notes, 2)
	doc.Notes[0], doc.Notes[1] = doc.Notes[1], doc.Notes[0]
	reversed, err := json.Marshal(doc)
	require.NoError(t, err)

	reloaded, err := FromJSON(reversed)
	require.NoError(t, err)
	require.NoError(t, reloaded.Evaluate())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
