// Package depgraph provides directed graph operations for entity
// dependencies. It supports cycle detection with full path reporting,
// topological sorting, and execution level grouping.
package depgraph

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle. Path holds the full cycle with the
// starting entity repeated at the end, e.g. [a b c a].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Graph represents a directed graph of entity dependencies. Node order is
// insertion order, which callers use for deterministic sibling ordering.
type Graph struct {
	order   []string
	nodes   map[string]bool
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// New creates a new empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]bool),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if g.nodes[id] {
		return
	}
	g.nodes[id] = true
	g.order = append(g.order, id)
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child (child depends on
// parent). Both nodes must exist.
func (g *Graph) AddEdge(parentID, childID string) error {
	if !g.nodes[parentID] {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if !g.nodes[childID] {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	// Self-loops are recorded; FindCycle reports them as one-node cycles.
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Parents returns the dependencies of a node.
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// Children returns the dependents of a node.
func (g *Graph) Children(id string) []string { return g.edges[id] }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// FindCycle returns a *CycleError describing one cycle, or nil when the
// graph is acyclic.
func (g *Graph) FindCycle() *CycleError {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, child := range g.edges[id] {
			if !visited[child] {
				cameFrom[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				// Back-edge found; walk cameFrom to reconstruct the path.
				cycle = []string{child}
				for cur := id; cur != child; cur = cameFrom[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return &CycleError{Path: cycle}
			}
		}
	}
	return nil
}

// TopologicalSort returns node IDs in dependency order (dependencies before
// dependents). Independent nodes keep their insertion order. Returns a
// *CycleError when the graph contains a cycle; no partial order is produced.
func (g *Graph) TopologicalSort() ([]string, error) {
	if cyc := g.FindCycle(); cyc != nil {
		return nil, cyc
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parent := range g.parents[id] {
			visit(parent)
		}
		result = append(result, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// ExecutionLevels groups nodes by dependency depth. Nodes at level N only
// depend on nodes at levels below N; level 0 has no dependencies. Within a
// level, insertion order is kept.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	if cyc := g.FindCycle(); cyc != nil {
		return nil, cyc
	}

	assigned := make(map[string]int)

	var level func(id string) int
	level = func(id string) int {
		if l, ok := assigned[id]; ok {
			return l
		}
		max := -1
		for _, parent := range g.parents[id] {
			if pl := level(parent); pl > max {
				max = pl
			}
		}
		assigned[id] = max + 1
		return max + 1
	}

	maxLevel := 0
	for _, id := range g.order {
		if l := level(id); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range g.order {
		l := assigned[id]
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
