package notemodule

import (
	"sort"

	"notecore/internal/bytecode"
	"notecore/internal/compiler"
	"notecore/internal/errors"
	"notecore/internal/graph"
	"notecore/internal/value"
)

// baseDefaults are the base note's literal property defaults (§3); all are
// expressed as DSL number literals so they compile through the same path as
// any other expression.
var baseDefaults = map[bytecode.Var]string{
	bytecode.VarFrequency: "440",
	bytecode.VarStartTime: "0",
	bytecode.VarDuration:  "1",
	bytecode.VarTempo:     "60",
	bytecode.VarBeatsPerMeasure: "4",
}

// Module owns every Note, the base note, the dependency graph, and the
// evaluation cache (§3 "Module").
type Module struct {
	base   *Note
	notes  map[uint32]*Note
	nextID uint32

	forward map[uint32]map[uint32]struct{} // note-level: id -> ids it depends on
	inverse map[uint32]map[uint32]struct{} // note-level: id -> ids that depend on it
	props   *graph.Graph                   // finer (id,property) view

	cache map[uint32]*EvaluatedNote
	dirty map[uint32]struct{}
}

// New builds a Module with a base note whose properties default per §3,
// optionally overridden by overrides (property -> source string).
func New(overrides map[bytecode.Var]string) (*Module, error) {
	m := &Module{
		notes:   make(map[uint32]*Note),
		nextID:  1,
		forward: make(map[uint32]map[uint32]struct{}),
		inverse: make(map[uint32]map[uint32]struct{}),
		props:   graph.New(),
		cache:   make(map[uint32]*EvaluatedNote),
		dirty:   make(map[uint32]struct{}),
	}

	m.base = newNote(0)
	for _, v := range []bytecode.Var{
		bytecode.VarFrequency, bytecode.VarStartTime, bytecode.VarDuration,
		bytecode.VarTempo, bytecode.VarBeatsPerMeasure,
	} {
		src := baseDefaults[v]
		if override, ok := overrides[v]; ok {
			src = override
		}
		prog, err := compiler.Compile(src)
		if err != nil {
			return nil, err
		}
		m.base.Programs[v] = prog
	}
	if override, ok := overrides[bytecode.VarMeasureLength]; ok {
		prog, err := compiler.Compile(override)
		if err != nil {
			return nil, err
		}
		m.base.Programs[bytecode.VarMeasureLength] = prog
	}

	m.markDirtyLocked(0)
	return m, nil
}

// resolveNote returns the Note for id, base included.
func (m *Module) resolveNote(id uint32) (*Note, bool) {
	if id == 0 {
		return m.base, true
	}
	n, ok := m.notes[id]
	return n, ok
}

// GetNote returns the note at id (base included), or false if absent.
func (m *Module) GetNote(id uint32) (*Note, bool) {
	return m.resolveNote(id)
}

// Base returns the base note.
func (m *Module) Base() *Note { return m.base }

// AddNote allocates the next monotonic id, compiles the given expressions,
// installs dependency edges, and marks the new note dirty (§4.9 add_note).
func (m *Module) AddNote(exprs map[bytecode.Var]string, color, instrument string) (uint32, error) {
	id := m.nextID

	note := newNote(id)
	note.Color = color
	note.Instrument = instrument
	for v, src := range exprs {
		prog, err := compiler.Compile(src)
		if err != nil {
			return 0, err
		}
		note.Programs[v] = prog
	}

	deps := note.dependencySet()
	if err := m.validateReferences(deps, nil); err != nil {
		return 0, err
	}
	if err := m.checkNoCycle(id, deps); err != nil {
		return 0, err
	}

	m.nextID++
	m.notes[id] = note
	m.installEdges(id, deps)
	m.installPropEdges(note)
	m.markDirtyLocked(id)

	return id, nil
}

// registerBareNote inserts an empty note at an explicit id (used by
// FromJSON's first pass, so that a document's notes may reference each
// other regardless of array order — invariant 1 only requires every
// reference resolve by the time loading finishes, not note-by-note).
// Expressions are wired in afterwards via SetExpression, which is where
// reference validation and cycle checking actually happen.
func (m *Module) registerBareNote(id uint32, color, instrument string) error {
	if id == 0 {
		return errors.New(errors.KindReference, "note id 0 is reserved for the base note")
	}
	if _, exists := m.notes[id]; exists {
		return errors.New(errors.KindReference, "duplicate note id %d", id)
	}
	note := newNote(id)
	note.Color = color
	note.Instrument = instrument
	m.notes[id] = note
	if id >= m.nextID {
		m.nextID = id + 1
	}
	return nil
}

// SetExpression compiles src, diffs its dependency set against the note's
// current combined set, rejects the change if it would close a cycle, and
// otherwise rewires the graph and marks id dirty (§4.9 set_expression).
func (m *Module) SetExpression(id uint32, prop bytecode.Var, src string) error {
	note, ok := m.resolveNote(id)
	if !ok {
		return errors.New(errors.KindReference, "no such note %d", id)
	}

	prog, err := compiler.Compile(src)
	if err != nil {
		return err
	}

	old := note.Programs[prop]
	note.Programs[prop] = prog
	newDeps := note.dependencySet()
	note.Programs[prop] = old // do not commit until validation passes

	if err := m.validateReferences(newDeps, nil); err != nil {
		return err
	}
	if err := m.checkNoCycle(id, newDeps); err != nil {
		return err
	}

	note.Programs[prop] = prog
	m.installEdges(id, newDeps)
	m.installPropEdges(note)
	m.markDirtyLocked(id)
	return nil
}

// Edit is one (note, property, source) triple for BatchSetExpressions.
type Edit struct {
	NoteID uint32
	Prop   bytecode.Var
	Source string
}

// BatchSetExpressions compiles every edit, verifies the combined change
// introduces no cycle anywhere, and only then commits all of them with a
// single dependency-graph recomputation and one dirty propagation (§4.9
// batch_set_expressions). No edit is applied if any of them fails to
// compile or the batch as a whole would cycle.
func (m *Module) BatchSetExpressions(edits []Edit) error {
	type pending struct {
		note *Note
		prop bytecode.Var
		prog *bytecode.Program
	}

	byNote := make(map[uint32]*Note)
	var compiled []pending
	for _, e := range edits {
		note, ok := m.resolveNote(e.NoteID)
		if !ok {
			return errors.New(errors.KindReference, "no such note %d", e.NoteID)
		}
		prog, err := compiler.Compile(e.Source)
		if err != nil {
			return err
		}
		compiled = append(compiled, pending{note: note, prop: e.Prop, prog: prog})
		byNote[e.NoteID] = note
	}

	originals := make(map[*Note][6]*bytecode.Program)
	for _, p := range compiled {
		if _, saved := originals[p.note]; !saved {
			originals[p.note] = p.note.Programs
		}
		p.note.Programs[p.prop] = p.prog
	}

	exempt := make(map[uint32]struct{}, len(byNote))
	for id := range byNote {
		exempt[id] = struct{}{}
	}
	for _, note := range byNote {
		if err := m.validateReferences(note.dependencySet(), exempt); err != nil {
			for n, orig := range originals {
				n.Programs = orig
			}
			return err
		}
	}

	simulatedForward := copyGraph(m.forward)
	for id, note := range byNote {
		simulatedForward[id] = note.dependencySet()
	}
	if hasCycle(simulatedForward) {
		for note, orig := range originals {
			note.Programs = orig
		}
		return errors.New(errors.KindCycle, "batch would introduce a cycle")
	}

	for id, note := range byNote {
		m.installEdges(id, note.dependencySet())
		m.installPropEdges(note)
		m.markDirtyLocked(id)
	}
	return nil
}

// RemoveNote deletes id. In "strict" mode it fails if anything still
// depends on it; in "keep" mode every dependent has its referencing
// expressions rewritten to splice in the removed note's own expression text
// (textual inlining, Open Question in §9), and inherits the removed note's
// explicit instrument if it has none of its own.
func (m *Module) RemoveNote(id uint32, mode RemovalMode) error {
	if id == 0 {
		return errors.New(errors.KindReference, "cannot remove the base note")
	}
	removed, ok := m.notes[id]
	if !ok {
		return errors.New(errors.KindReference, "no such note %d", id)
	}

	dependents := sortedUint32s(m.inverse[id])

	if mode == RemovalStrict {
		if len(dependents) > 0 {
			return errors.New(errors.KindReference, "note %d is still referenced by %v", id, dependents)
		}
	} else {
		for _, depID := range dependents {
			if err := m.spliceOutReference(depID, id, removed); err != nil {
				return err
			}
		}
	}

	delete(m.notes, id)
	delete(m.forward, id)
	for _, s := range m.forward {
		delete(s, id)
	}
	for depID := range m.inverse[id] {
		delete(m.forward[depID], id)
	}
	delete(m.inverse, id)
	for _, s := range m.inverse {
		delete(s, id)
	}
	m.props.RemoveNote(id)
	delete(m.cache, id)
	delete(m.dirty, id)
	return nil
}

// RemovalMode selects remove_note's behavior (§4.9).
type RemovalMode int

const (
	RemovalStrict RemovalMode = iota
	RemovalKeepDependencies
)

// NoteIDs returns every non-base note id, ascending (base, id 0, is
// reported separately by callers via Base()/GetNote(0)).
func (m *Module) NoteIDs() []uint32 {
	ids := make([]uint32, 0, len(m.notes))
	for id := range m.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Value returns id's cached, evaluated value for prop. Evaluate() must have
// run since the last edit touching id or its ancestors.
func (m *Module) Value(id uint32, prop bytecode.Var) (value.Value, error) {
	return m.cachedValue(id, prop)
}

// Corrupted reports whether id's cached value for prop is not an exact
// rational: a surviving symbolic term or a numeric approximation (§4.2).
func (m *Module) Corrupted(id uint32, prop bytecode.Var) bool {
	cached, ok := m.cache[id]
	if !ok {
		return false
	}
	return cached.Corrupted(prop)
}

// GetDirectDependencies returns the union of id's six properties'
// dependency sets (§4.9 get_direct_dependencies).
func (m *Module) GetDirectDependencies(id uint32) []uint32 {
	return sortedUint32s(m.forward[id])
}

// GetDependents returns the ids that directly reference id (§4.9
// get_dependents).
func (m *Module) GetDependents(id uint32) []uint32 {
	return sortedUint32s(m.inverse[id])
}

// GetDependentsByProperty returns, for each property, the ids whose
// expression for any property references id's value at that property
// (§4.9 get_dependents_by_property).
func (m *Module) GetDependentsByProperty(id uint32) map[bytecode.Var][]uint32 {
	out := make(map[bytecode.Var][]uint32)
	for _, prop := range bytecode.AllVars() {
		seen := make(map[uint32]struct{})
		var ids []uint32
		for _, dependentSlot := range m.props.DependentsByProperty(id, prop) {
			if _, ok := seen[dependentSlot.NoteID]; ok {
				continue
			}
			seen[dependentSlot.NoteID] = struct{}{}
			ids = append(ids, dependentSlot.NoteID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out[prop] = ids
	}
	return out
}

// GetParentChain walks id's single-parent chain for prop (the frequency-
// style "depends on exactly one upstream note" pattern) until a fixed point,
// returning the visited ids in walk order, id included (§4.9
// get_parent_chain).
func (m *Module) GetParentChain(id uint32, prop bytecode.Var) []uint32 {
	visited := map[uint32]struct{}{id: {}}
	chain := []uint32{id}

	cur := id
	for {
		parent, ok := m.singleParent(cur, prop)
		if !ok {
			break
		}
		if _, seen := visited[parent]; seen {
			break
		}
		visited[parent] = struct{}{}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

func (m *Module) singleParent(id uint32, prop bytecode.Var) (uint32, bool) {
	deps := m.props.DirectDependencies(graph.Slot{NoteID: id, Prop: prop})
	if len(deps) == 0 {
		return 0, false
	}
	best := deps[0]
	for _, d := range deps[1:] {
		if d.NoteID < best.NoteID {
			best = d
		}
	}
	return best.NoteID, true
}

// ChildEntry is one (id, depth) pair from GetChildrenTree.
type ChildEntry struct {
	ID    uint32
	Depth int
}

// GetChildrenTree does a BFS over id's per-property dependents, producing
// (id, depth) pairs (§4.9 get_children_tree).
func (m *Module) GetChildrenTree(id uint32, prop bytecode.Var) []ChildEntry {
	type queued struct {
		slot  graph.Slot
		depth int
	}
	start := graph.Slot{NoteID: id, Prop: prop}
	visited := map[graph.Slot]struct{}{start: {}}
	queue := []queued{{slot: start, depth: 0}}

	var out []ChildEntry
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.slot != start {
			out = append(out, ChildEntry{ID: cur.slot.NoteID, Depth: cur.depth})
		}
		for _, dep := range m.props.Dependents(cur.slot) {
			if _, ok := visited[dep]; ok {
				continue
			}
			visited[dep] = struct{}{}
			queue = append(queue, queued{slot: dep, depth: cur.depth + 1})
		}
	}
	return out
}

// MarkDirty adds id and its transitive inverse closure to the dirty set
// (§4.9 mark_dirty).
func (m *Module) MarkDirty(id uint32) {
	m.markDirtyLocked(id)
}

func (m *Module) markDirtyLocked(id uint32) {
	queue := []uint32{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, already := m.dirty[cur]; already {
			continue
		}
		m.dirty[cur] = struct{}{}
		for dependent := range m.inverse[cur] {
			queue = append(queue, dependent)
		}
	}
}

// InvalidateAll clears the cache and marks every note (base included)
// dirty (§4.9 invalidate_all).
func (m *Module) InvalidateAll() {
	m.cache = make(map[uint32]*EvaluatedNote)
	m.dirty[0] = struct{}{}
	for id := range m.notes {
		m.dirty[id] = struct{}{}
	}
}

func (m *Module) installEdges(id uint32, deps map[uint32]struct{}) {
	for to := range m.forward[id] {
		delete(m.inverse[to], id)
	}
	delete(m.forward, id)

	if len(deps) == 0 {
		return
	}
	m.forward[id] = deps
	for to := range deps {
		if m.inverse[to] == nil {
			m.inverse[to] = make(map[uint32]struct{})
		}
		m.inverse[to][id] = struct{}{}
	}
}

func (m *Module) installPropEdges(note *Note) {
	for _, prop := range bytecode.AllVars() {
		slot := graph.Slot{NoteID: note.ID, Prop: prop}
		prog := note.Programs[prop]
		if prog == nil {
			m.props.Replace(slot, nil)
			continue
		}
		m.props.Replace(slot, graph.SlotsReferencedBy(prog))
	}
}

// validateReferences checks that every id a note's expressions depend on
// (besides 0, always valid for base) either already exists in the note
// table or is explicitly exempted — the latter lets BatchSetExpressions
// accept edits that reference each other within the same batch (§3 data
// model invariant: every referenced id exists in the note table).
func (m *Module) validateReferences(deps map[uint32]struct{}, exempt map[uint32]struct{}) error {
	for id := range deps {
		if id == 0 {
			continue
		}
		if _, ok := m.notes[id]; ok {
			continue
		}
		if _, ok := exempt[id]; ok {
			continue
		}
		return errors.New(errors.KindReference, "expression references note %d, which does not exist", id)
	}
	return nil
}

// checkNoCycle simulates installing deps as id's forward edges (on top of
// the module's current note-level graph) and reports whether the result is
// cyclic, without mutating the module.
func (m *Module) checkNoCycle(id uint32, deps map[uint32]struct{}) error {
	simulated := copyGraph(m.forward)
	simulated[id] = deps
	if hasCycle(simulated) {
		return errors.New(errors.KindCycle, "this change would introduce a dependency cycle at note %d", id)
	}
	return nil
}

func copyGraph(g map[uint32]map[uint32]struct{}) map[uint32]map[uint32]struct{} {
	out := make(map[uint32]map[uint32]struct{}, len(g))
	for id, deps := range g {
		copied := make(map[uint32]struct{}, len(deps))
		for d := range deps {
			copied[d] = struct{}{}
		}
		out[id] = copied
	}
	return out
}

func hasCycle(g map[uint32]map[uint32]struct{}) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uint32]int)

	var visit func(id uint32) bool
	visit = func(id uint32) bool {
		switch color[id] {
		case gray:
			return true
		case black:
			return false
		}
		color[id] = gray
		for next := range g[id] {
			if visit(next) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range g {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

func sortedUint32s(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
