// Package domain contains the core model of the build orchestrator: typed
// options, the target DAG, and the persistent cache records.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the build DAG. Nodes are Targets keyed by output path; edges are
// the targets' dependency lists. Insertion order is preserved so that two
// runs over the same declarations visit nodes identically.
type Graph struct {
	targets map[InternedString]*Target
	ids     []InternedString

	// byName resolves declared library/executable names to output paths.
	byName map[string]InternedString

	order      []InternedString
	consumers  map[InternedString][]InternedString
	linkCycles [][]InternedString

	// cycleEdges holds the consumer->dependency edges that close recorded
	// library cycles. They stay in the targets' Deps lists (link order is
	// preserved into the argv) but are excluded from ordering.
	cycleEdges map[InternedString]map[InternedString]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		targets: make(map[InternedString]*Target),
		byName:  make(map[string]InternedString),
	}
}

// AddTarget inserts t. Output paths within the output root never collide;
// a second target with the same Out is an error.
func (g *Graph) AddTarget(t *Target) error {
	if _, exists := g.targets[t.Out]; exists {
		return zerr.With(ErrTargetExists, "path", t.Out.String())
	}
	g.targets[t.Out] = t
	g.ids = append(g.ids, t.Out)
	if t.Name != "" {
		g.byName[t.Name] = t.Out
	}
	return nil
}

// Target returns the node with the given output path.
func (g *Graph) Target(id InternedString) (*Target, bool) {
	t, ok := g.targets[id]
	return t, ok
}

// Lookup resolves a declared name (library or executable) to its target.
func (g *Graph) Lookup(name string) (*Target, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.targets[id], true
}

// Len returns the number of targets.
func (g *Graph) Len() int { return len(g.targets) }

// Targets yields all targets in insertion order.
func (g *Graph) Targets() iter.Seq[*Target] {
	return func(yield func(*Target) bool) {
		for _, id := range g.ids {
			if !yield(g.targets[id]) {
				return
			}
		}
	}
}

// Validate checks the graph's invariants and computes the topological order
// and consumer lists. Cycles among libraries are recorded (the linker's
// multi-pass semantics resolve them) with the closing edge left out of the
// ordering; any other cycle is an error. Nothing may depend on an
// executable.
func (g *Graph) Validate() error {
	g.order = make([]InternedString, 0, len(g.targets))
	g.consumers = make(map[InternedString][]InternedString, len(g.targets))
	g.linkCycles = nil
	g.cycleEdges = make(map[InternedString]map[InternedString]bool)

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[InternedString]int, len(g.targets))
	var path []InternedString

	var visit func(id InternedString) error
	visit = func(id InternedString) error {
		state[id] = visiting
		path = append(path, id)

		t, exists := g.targets[id]
		if !exists {
			return zerr.With(ErrTargetNotFound, "path", id.String())
		}

		for _, dep := range t.Deps() {
			depT, exists := g.targets[dep]
			if !exists {
				return zerr.With(ErrTargetNotFound, "path", dep.String())
			}
			if depT.Kind == TargetExecutable {
				return zerr.With(zerr.With(ErrExecutableDependency,
					"target", id.String()), "dependency", dep.String())
			}

			switch state[dep] {
			case visiting:
				if t.IsLibrary() && depT.IsLibrary() {
					g.linkCycles = append(g.linkCycles, cycleSlice(path, dep))
					g.addCycleEdge(id, dep)
					continue
				}
				return cycleError(path, dep)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
			g.consumers[dep] = append(g.consumers[dep], id)
		}

		state[id] = done
		path = path[:len(path)-1]
		g.order = append(g.order, id)
		return nil
	}

	for _, id := range g.ids {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Order returns the topological order, dependencies first. Valid after
// Validate has returned nil.
func (g *Graph) Order() []InternedString { return g.order }

// Consumers returns the targets that directly depend on id. Valid after
// Validate.
func (g *Graph) Consumers(id InternedString) []InternedString {
	return g.consumers[id]
}

// LinkCycles returns the recorded library cycles. Valid after Validate.
func (g *Graph) LinkCycles() [][]InternedString { return g.linkCycles }

func (g *Graph) addCycleEdge(consumer, dep InternedString) {
	if g.cycleEdges[consumer] == nil {
		g.cycleEdges[consumer] = make(map[InternedString]bool)
	}
	g.cycleEdges[consumer][dep] = true
}

// IsCycleEdge reports whether the consumer->dep edge closes a recorded
// library cycle. Such edges carry no ordering constraint. Valid after
// Validate.
func (g *Graph) IsCycleEdge(consumer, dep InternedString) bool {
	return g.cycleEdges[consumer][dep]
}

func cycleSlice(path []InternedString, start InternedString) []InternedString {
	for i, id := range path {
		if id == start {
			cycle := make([]InternedString, len(path)-i)
			copy(cycle, path[i:])
			return cycle
		}
	}
	return nil
}

func cycleError(path []InternedString, dep InternedString) error {
	var b strings.Builder
	for _, id := range cycleSlice(path, dep) {
		b.WriteString(id.String())
		b.WriteString(" -> ")
	}
	b.WriteString(dep.String())
	return zerr.With(ErrCycleDetected, "cycle", b.String())
}
