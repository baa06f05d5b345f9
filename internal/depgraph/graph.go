// Package depgraph builds the phase dependency DAG of one project and
// orders it topologically.
package depgraph

import (
	"sort"

	"github.com/alexanderramin/planloom/internal/domain"
)

// Edge is one incoming or outgoing dependency as seen from a node.
type Edge struct {
	DependencyID string
	From         string
	To           string
	Type         domain.DependencyType
	LagDays      int
}

// Graph is an acyclic adjacency structure keyed by phase timeline id.
type Graph struct {
	nodes []string
	index map[string]int
	out   map[string][]Edge
	in    map[string][]Edge
	order []string
}

// Build constructs the graph and validates it is acyclic. Edges whose
// endpoints are not in phaseIDs are ignored. A cycle is reported as
// CyclicDependency with the ids of every phase on or inside a cycle.
func Build(phaseIDs []string, deps []domain.Dependency) (*Graph, error) {
	g := &Graph{
		index: make(map[string]int, len(phaseIDs)),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
	}
	for _, id := range phaseIDs {
		if _, dup := g.index[id]; dup {
			continue
		}
		g.index[id] = len(g.nodes)
		g.nodes = append(g.nodes, id)
	}
	for _, d := range deps {
		_, okP := g.index[d.PredecessorID]
		_, okS := g.index[d.SuccessorID]
		if !okP || !okS {
			continue
		}
		if d.PredecessorID == d.SuccessorID {
			return nil, domain.CyclicDependency([]string{d.PredecessorID})
		}
		e := Edge{DependencyID: d.ID, From: d.PredecessorID, To: d.SuccessorID, Type: d.Type, LagDays: d.LagDays}
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}

	order, remaining := kahn(g)
	if len(remaining) > 0 {
		return nil, domain.CyclicDependency(cycleMembers(g, remaining))
	}
	g.order = order
	return g, nil
}

// kahn returns the topological order. Ties are broken lexically so the
// order is deterministic. Nodes left over are on or downstream of a cycle.
func kahn(g *Graph) ([]string, map[string]bool) {
	indeg := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = len(g.in[n])
	}

	var ready []string
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var released []string
		for _, e := range g.out[n] {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				released = append(released, e.To)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sort.Strings(ready)
		}
	}

	remaining := make(map[string]bool)
	for _, n := range g.nodes {
		if indeg[n] > 0 {
			remaining[n] = true
		}
	}
	return order, remaining
}

// cycleMembers trims nodes that are merely downstream of a cycle: repeatedly
// drop remaining nodes with no outgoing edge into the remaining set.
func cycleMembers(g *Graph, remaining map[string]bool) []string {
	for changed := true; changed; {
		changed = false
		for n := range remaining {
			hasOut := false
			for _, e := range g.out[n] {
				if remaining[e.To] {
					hasOut = true
					break
				}
			}
			if !hasOut {
				delete(remaining, n)
				changed = true
			}
		}
	}
	ids := make([]string, 0, len(remaining))
	for n := range remaining {
		ids = append(ids, n)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalOrder returns a copy of the node order.
func (g *Graph) TopologicalOrder() []string {
	return append([]string(nil), g.order...)
}

// Successors returns the direct successor ids of id in edge order.
func (g *Graph) Successors(id string) []string {
	edges := g.out[id]
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.To)
	}
	return out
}

// Predecessors returns the direct predecessor ids of id in edge order.
func (g *Graph) Predecessors(id string) []string {
	edges := g.in[id]
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.From)
	}
	return out
}

func (g *Graph) Incoming(id string) []Edge {
	return append([]Edge(nil), g.in[id]...)
}

func (g *Graph) Outgoing(id string) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// Reachable returns every node reachable from id (excluding id) in
// topological order.
func (g *Graph) Reachable(id string) []string {
	seen := map[string]bool{}
	stack := []string{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.out[n] {
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	var out []string
	for _, n := range g.order {
		if seen[n] && n != id {
			out = append(out, n)
		}
	}
	return out
}

// CheckCandidate reports CyclicDependency if adding cand to deps over
// phaseIDs would close a cycle.
func CheckCandidate(phaseIDs []string, deps []domain.Dependency, cand domain.Dependency) error {
	all := make([]domain.Dependency, 0, len(deps)+1)
	all = append(all, deps...)
	all = append(all, cand)
	_, err := Build(phaseIDs, all)
	return err
}
