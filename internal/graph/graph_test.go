package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecore/internal/bytecode"
)

func freq(id uint32) Slot { return Slot{NoteID: id, Prop: bytecode.VarFrequency} }

func TestSetEdgesAndDirectDependencies(t *testing.T) {
	g := New()
	require.NoError(t, g.SetEdges(freq(2), []Slot{freq(1)}))

	deps := g.DirectDependencies(freq(2))
	assert.Equal(t, []Slot{freq(1)}, deps)
}

func TestDependentsTracksInverseEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.SetEdges(freq(2), []Slot{freq(1)}))

	dependents := g.Dependents(freq(1))
	assert.Equal(t, []Slot{freq(2)}, dependents)
}

func TestSetEdgesRejectsCycle(t *testing.T) {
	g := New()
	require.NoError(t, g.SetEdges(freq(1), []Slot{freq(2)}))

	err := g.SetEdges(freq(2), []Slot{freq(1)})
	require.Error(t, err)

	// rejected mutation must leave the graph as it was
	assert.Empty(t, g.DirectDependencies(freq(2)))
}

func TestTopologicalOrderRespectsDependencyOrder(t *testing.T) {
	g := New()
	require.NoError(t, g.SetEdges(freq(2), []Slot{freq(1)}))
	require.NoError(t, g.SetEdges(freq(3), []Slot{freq(2)}))

	order, err := g.TopologicalOrder([]Slot{freq(1)})
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, freq(1), order[0])
	assert.Equal(t, freq(2), order[1])
	assert.Equal(t, freq(3), order[2])
}

func TestRemoveNoteClearsAllItsSlots(t *testing.T) {
	g := New()
	require.NoError(t, g.SetEdges(freq(2), []Slot{freq(1)}))

	g.RemoveNote(2)
	assert.Empty(t, g.DirectDependencies(freq(2)))
	assert.Empty(t, g.Dependents(freq(1)))
}

func TestSlotsReferencedByExtractsLoadRefAndLoadBase(t *testing.T) {
	prog := bytecode.NewProgram("[2].f + base.tempo", bytecode.DialectDSL)
	prog.Emit(bytecode.Instr{Op: bytecode.OpLoadRef, NoteID: 2, Var: bytecode.VarFrequency})
	prog.Emit(bytecode.Instr{Op: bytecode.OpLoadBase, Var: bytecode.VarTempo})
	prog.Emit(bytecode.Instr{Op: bytecode.OpAdd})

	slots := SlotsReferencedBy(prog)
	assert.ElementsMatch(t, []Slot{
		{NoteID: 2, Prop: bytecode.VarFrequency},
		{NoteID: 0, Prop: bytecode.VarTempo},
	}, slots)
}
