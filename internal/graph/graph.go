// Package graph tracks per-(note,property) dependency edges between
// compiled expressions and drives incremental re-evaluation: which slots a
// mutation invalidates, and in what topological order they must be
// recomputed. Edges are derived directly from a Program's LOAD_REF/LOAD_BASE
// instructions rather than its coarser note-level Dependencies set, so
// GetDependentsByProperty can answer at property granularity.
package graph

import (
	"fmt"
	"sort"

	"notecore/internal/bytecode"
	"notecore/internal/errors"
)

// Slot identifies one evaluable (note, property) pair. NoteID 0 is reserved
// for the base note, matching LOAD_BASE's implicit target.
type Slot struct {
	NoteID uint32
	Prop   bytecode.Var
}

func (s Slot) String() string {
	if s.NoteID == 0 {
		return fmt.Sprintf("base.%s", s.Prop.ShortAlias())
	}
	return fmt.Sprintf("[%d].%s", s.NoteID, s.Prop.ShortAlias())
}

// Graph is a mutable forward/inverse adjacency structure over Slots.
type Graph struct {
	forward map[Slot]map[Slot]struct{} // slot -> slots it reads from
	inverse map[Slot]map[Slot]struct{} // slot -> slots that read from it
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		forward: make(map[Slot]map[Slot]struct{}),
		inverse: make(map[Slot]map[Slot]struct{}),
	}
}

// SlotsReferencedBy extracts the (note,property) pairs prog's LOAD_REF and
// LOAD_BASE instructions read from.
func SlotsReferencedBy(prog *bytecode.Program) []Slot {
	var slots []Slot
	seen := make(map[Slot]struct{})
	for _, instr := range prog.Code {
		var s Slot
		switch instr.Op {
		case bytecode.OpLoadRef:
			s = Slot{NoteID: instr.NoteID, Prop: instr.Var}
		case bytecode.OpLoadBase:
			s = Slot{NoteID: 0, Prop: instr.Var}
		default:
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		slots = append(slots, s)
	}
	return slots
}

// SetEdges replaces slot's outgoing edges with those derived from deps,
// rejecting the change with a CycleError if it would create a cycle. On
// rejection the graph is left unchanged.
func (g *Graph) SetEdges(slot Slot, deps []Slot) error {
	old := g.forward[slot]

	g.removeForward(slot)
	for _, d := range deps {
		g.addEdge(slot, d)
	}

	if g.hasCycleFrom(slot, make(map[Slot]bool)) {
		g.removeForward(slot)
		for d := range old {
			g.addEdge(slot, d)
		}
		return errors.New(errors.KindCycle, "setting %s's dependencies would introduce a cycle", slot)
	}
	return nil
}

// Replace sets slot's outgoing edges to deps without cycle validation, for
// callers (like the module's per-property dependents index) that track a
// finer view than the note-level forward graph where cycle rejection is
// actually enforced — two slots can each depend on a distinct slot of the
// other's note without forming a slot-level cycle, even though that pair of
// notes is cyclic at note granularity.
func (g *Graph) Replace(slot Slot, deps []Slot) {
	g.removeForward(slot)
	for _, d := range deps {
		g.addEdge(slot, d)
	}
}

func (g *Graph) addEdge(from, to Slot) {
	if g.forward[from] == nil {
		g.forward[from] = make(map[Slot]struct{})
	}
	g.forward[from][to] = struct{}{}

	if g.inverse[to] == nil {
		g.inverse[to] = make(map[Slot]struct{})
	}
	g.inverse[to][from] = struct{}{}
}

func (g *Graph) removeForward(slot Slot) {
	for to := range g.forward[slot] {
		delete(g.inverse[to], slot)
	}
	delete(g.forward, slot)
}

// RemoveSlot deletes slot entirely (both its outgoing and incoming edges),
// used when a note is removed or an expression is cleared.
func (g *Graph) RemoveSlot(slot Slot) {
	g.removeForward(slot)
	for from := range g.inverse[slot] {
		delete(g.forward[from], slot)
	}
	delete(g.inverse, slot)
}

// RemoveNote removes every slot belonging to noteID.
func (g *Graph) RemoveNote(noteID uint32) {
	for _, v := range bytecode.AllVars() {
		g.RemoveSlot(Slot{NoteID: noteID, Prop: v})
	}
}

func (g *Graph) hasCycleFrom(start Slot, visited map[Slot]bool) bool {
	var visit func(s Slot, stack map[Slot]bool) bool
	visit = func(s Slot, stack map[Slot]bool) bool {
		if stack[s] {
			return true
		}
		if visited[s] {
			return false
		}
		visited[s] = true
		stack[s] = true
		for next := range g.forward[s] {
			if visit(next, stack) {
				return true
			}
		}
		stack[s] = false
		return false
	}
	return visit(start, make(map[Slot]bool))
}

// DirectDependencies returns the slots slot reads from directly.
func (g *Graph) DirectDependencies(slot Slot) []Slot {
	return sortedKeys(g.forward[slot])
}

// Dependents returns the slots that read from slot directly.
func (g *Graph) Dependents(slot Slot) []Slot {
	return sortedKeys(g.inverse[slot])
}

// DependentsByProperty is Dependents for a specific (noteID, prop) slot,
// named to match the module-level operation that exposes it.
func (g *Graph) DependentsByProperty(noteID uint32, prop bytecode.Var) []Slot {
	return g.Dependents(Slot{NoteID: noteID, Prop: prop})
}

// AllDependents returns every slot transitively reachable from slot via
// inverse edges (i.e. everything that must be recomputed if slot changes),
// slot itself included.
func (g *Graph) AllDependents(slot Slot) []Slot {
	visited := map[Slot]struct{}{slot: {}}
	queue := []Slot{slot}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.inverse[cur] {
			if _, ok := visited[dep]; ok {
				continue
			}
			visited[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}
	return sortedKeys(visited)
}

// TopologicalOrder returns dirty (plus everything transitively dependent on
// it) in an order safe to re-evaluate: every slot appears after all the
// slots it reads from, restricted to the subgraph reachable from dirty.
// Kahn's algorithm, scoped to that subgraph rather than the whole graph, so
// a single edit doesn't force recomputing unrelated notes.
func (g *Graph) TopologicalOrder(dirty []Slot) ([]Slot, error) {
	subgraph := make(map[Slot]struct{})
	for _, d := range dirty {
		for _, s := range g.AllDependents(d) {
			subgraph[s] = struct{}{}
		}
	}

	inDegree := make(map[Slot]int, len(subgraph))
	for s := range subgraph {
		count := 0
		for dep := range g.forward[s] {
			if _, ok := subgraph[dep]; ok {
				count++
			}
		}
		inDegree[s] = count
	}

	var queue []Slot
	for s, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, s)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return less(queue[i], queue[j]) })

	var order []Slot
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		order = append(order, s)

		var freed []Slot
		for dependent := range g.inverse[s] {
			if _, ok := subgraph[dependent]; !ok {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Slice(freed, func(i, j int) bool { return less(freed[i], freed[j]) })
		queue = append(queue, freed...)
		sort.Slice(queue, func(i, j int) bool { return less(queue[i], queue[j]) })
	}

	if len(order) != len(subgraph) {
		return nil, errors.New(errors.KindCycle, "dependency graph contains a cycle among the affected slots")
	}
	return order, nil
}

func sortedKeys(m map[Slot]struct{}) []Slot {
	out := make([]Slot, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b Slot) bool {
	if a.NoteID != b.NoteID {
		return a.NoteID < b.NoteID
	}
	return a.Prop < b.Prop
}
