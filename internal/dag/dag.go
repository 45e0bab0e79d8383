// SPDX-License-Identifier: MPL-2.0

// Package dag provides an insertion-ordered directed graph with a depth-first
// topological sort. Embedded script units are ordered with it: an edge from A
// to B means A must be placed before B.
package dag

import (
	"fmt"
	"strings"
)

const (
	unvisited visitState = iota
	visiting
	done
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle is the back-edge path; it starts and ends at the same node and
		// follows "requires" order (A -> B means A needs B first).
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys and remember their insertion order,
	// which is also the tie-break order of the sort.
	Graph struct {
		// prereqs maps each node to the nodes that must precede it, in edge insertion order.
		prereqs map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	visitState int
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		prereqs: make(map[string][]string),
		nodeSet: make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must be placed before "to".
// Both nodes are implicitly added if they don't exist. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(to)
	g.AddNode(from)
	for _, p := range g.prereqs[to] {
		if p == from {
			return
		}
	}
	g.prereqs[to] = append(g.prereqs[to], from)
}

// Has reports whether the node exists.
func (g *Graph) Has(name string) bool {
	return g.nodeSet[name]
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Prerequisites returns the nodes that must precede name, in edge insertion order.
func (g *Graph) Prerequisites(name string) []string {
	out := make([]string, len(g.prereqs[name]))
	copy(out, g.prereqs[name])
	return out
}

// TopologicalSort returns a valid order using a depth-first search.
// Nodes are visited in insertion order and each node's prerequisites in the
// order their edges were added, so the result is deterministic.
// Returns CycleError on the first back edge found.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	state := make(map[string]visitState, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	var stack []string

	var visit func(node string) error
	visit = func(node string) error {
		switch state[node] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, n := range stack {
				if n == node {
					start = i
					break
				}
			}
			cycle := make([]string, 0, len(stack)-start+1)
			cycle = append(cycle, stack[start:]...)
			cycle = append(cycle, node)
			return &CycleError{Cycle: cycle}
		case unvisited:
		}

		state[node] = visiting
		stack = append(stack, node)
		for _, p := range g.prereqs[node] {
			if err := visit(p); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		order = append(order, node)
		return nil
	}

	for _, node := range g.nodes {
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return order, nil
}
