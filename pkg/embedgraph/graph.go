// SPDX-License-Identifier: MPL-2.0

// Package embedgraph resolves the embed and import directives of a project
// into a validated, topologically ordered graph of script units.
package embedgraph

import (
	"github.com/calcpack/calcpack/pkg/directive"
	"github.com/calcpack/calcpack/pkg/project"
)

type (
	// Node is a unit placed in the document.
	Node struct {
		// ID is unique within the graph: the relative path for local scripts,
		// prefixed with "opt:" or "lib:" for the other roots.
		ID     string
		Origin project.Origin
		Unit   *directive.Unit
		// Embeds lists the IDs of units that must precede this one, in directive order.
		Embeds []string
		// References lists the logical dependencies of the unit.
		References []Reference
	}

	// Reference is a resolved import, import lib or use directive.
	Reference struct {
		Directive directive.Directive
		// Target is the ID of the referenced node.
		Target string
	}

	// Graph is an acyclic embed graph with exactly one entry node.
	Graph struct {
		order []*Node
		byID  map[string]*Node
		entry *Node
	}
)

// Order returns the nodes in embedding order: every node appears after the nodes it embeds.
func (g *Graph) Order() []*Node {
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// Entry returns the entry node.
func (g *Graph) Entry() *Node { return g.entry }

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// IDs returns the node IDs in embedding order.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.order))
	for i, n := range g.order {
		ids[i] = n.ID
	}
	return ids
}
