// SPDX-License-Identifier: MPL-2.0

package embedgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calcpack/calcpack/internal/dag"
	"github.com/calcpack/calcpack/pkg/directive"
	"github.com/calcpack/calcpack/pkg/project"
)

type (
	// Options configures a Resolver.
	Options struct {
		// LenientImports turns dangling imports into warnings; the target is
		// added to the graph without an embed edge.
		LenientImports bool
		Logger         *slog.Logger
	}

	// Resolver builds a Graph from the units of a project layout.
	Resolver struct {
		layout  project.Layout
		scanner *directive.Scanner
		opts    Options
		logger  *slog.Logger
	}

	// build is the mutable state of one Resolve call.
	build struct {
		r       *Resolver
		dag     *dag.Graph
		nodes   []*Node
		byID    map[string]*Node
		next    int
		checked int
		refs    []pendingRef
	}

	pendingRef struct {
		from *Node
		dir  directive.Directive
	}
)

// NewResolver creates a Resolver for layout. Library and optional units
// reached by embed directives are scanned with scanner.
func NewResolver(layout project.Layout, scanner *directive.Scanner, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{layout: layout, scanner: scanner, opts: opts, logger: logger}
}

// ScanProject reads and scans every local script in discovery order.
// Each unit's Path is its path relative to the local root.
func (r *Resolver) ScanProject(ctx context.Context) ([]*directive.Unit, error) {
	sources, err := r.layout.LocalScripts()
	if err != nil {
		return nil, err
	}
	units := make([]*directive.Unit, 0, len(sources))
	for _, s := range sources {
		u, err := r.scan(ctx, s)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// Resolve builds the embed graph from the local units, given in discovery order.
func (r *Resolver) Resolve(ctx context.Context, units []*directive.Unit) (*Graph, error) {
	b := &build{r: r, dag: dag.New(), byID: make(map[string]*Node)}
	for _, u := range units {
		b.add(u.Path, project.OriginLocal, u)
	}

	for {
		if err := b.expand(ctx); err != nil {
			return nil, err
		}
		added, err := b.checkReferences(ctx)
		if err != nil {
			return nil, err
		}
		if !added {
			break
		}
	}

	ids, err := b.dag.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CyclicEmbedError{Cycle: cycleErr.Cycle}
		}
		return nil, err
	}

	g := &Graph{byID: b.byID, order: make([]*Node, 0, len(ids))}
	for _, id := range ids {
		g.order = append(g.order, b.byID[id])
	}
	if g.entry, err = b.entry(); err != nil {
		return nil, err
	}

	r.logger.Debug("embed graph resolved", "units", len(g.order), "entry", g.entry.ID)
	return g, nil
}

func (r *Resolver) scan(ctx context.Context, s project.Source) (*directive.Unit, error) {
	data, err := s.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s script %s: %w", s.Origin, s.Rel, err)
	}
	return r.scanner.Scan(ctx, s.Name, s.Rel, data)
}

func nodeID(origin project.Origin, rel string) string {
	switch origin {
	case project.OriginLocal:
		return rel
	case project.OriginOptional:
		return "opt:" + rel
	case project.OriginLibrary:
		return "lib:" + rel
	default:
		panic(fmt.Sprintf("embedgraph: unknown origin %d", origin))
	}
}

func (b *build) add(rel string, origin project.Origin, u *directive.Unit) *Node {
	id := nodeID(origin, rel)
	if n, ok := b.byID[id]; ok {
		return n
	}
	n := &Node{ID: id, Origin: origin, Unit: u}
	b.byID[id] = n
	b.nodes = append(b.nodes, n)
	b.dag.AddNode(id)
	return n
}

// expand walks the directives of every node not yet visited; embedded units
// are appended to the work list as they are discovered.
func (b *build) expand(ctx context.Context) error {
	for ; b.next < len(b.nodes); b.next++ {
		n := b.nodes[b.next]
		for _, d := range n.Unit.Directives {
			switch d.Kind {
			case directive.KindEntry:
			case directive.KindEmbedLib, directive.KindEmbedScript:
				target, err := b.embed(ctx, n, d)
				if err != nil {
					return err
				}
				n.Embeds = append(n.Embeds, target.ID)
				b.dag.AddEdge(target.ID, n.ID)
			case directive.KindImport, directive.KindImportLib, directive.KindUse:
				b.refs = append(b.refs, pendingRef{from: n, dir: d})
			default:
				panic(fmt.Sprintf("embedgraph: unhandled directive kind %v", d.Kind))
			}
		}
	}
	return nil
}

func (b *build) lookup(d directive.Directive) (project.Source, bool) {
	switch d.Kind {
	case directive.KindEmbedLib, directive.KindImportLib:
		return b.r.layout.FindLibrary(d.Name)
	case directive.KindEmbedScript, directive.KindImport:
		return b.r.layout.FindLocal(d.Name)
	case directive.KindUse:
		if s, ok := b.r.layout.FindLocal(d.Name); ok {
			return s, true
		}
		return b.r.layout.FindLibrary(d.Name)
	case directive.KindEntry:
		return project.Source{}, false
	default:
		panic(fmt.Sprintf("embedgraph: unhandled directive kind %v", d.Kind))
	}
}

func (b *build) embed(ctx context.Context, from *Node, d directive.Directive) (*Node, error) {
	s, ok := b.lookup(d)
	if !ok {
		return nil, &UnknownAssetError{Unit: from.Unit.Path, Line: d.Line, Name: d.Name, Kind: d.Kind}
	}
	if n, exists := b.byID[nodeID(s.Origin, s.Rel)]; exists {
		return n, nil
	}
	u, err := b.r.scan(ctx, s)
	if err != nil {
		return nil, err
	}
	return b.add(s.Rel, s.Origin, u), nil
}

// checkReferences resolves pending logical dependencies. It reports whether
// lenient mode added nodes that still need expanding.
func (b *build) checkReferences(ctx context.Context) (bool, error) {
	added := false
	for ; b.checked < len(b.refs); b.checked++ {
		ref := b.refs[b.checked]
		d := ref.dir
		s, ok := b.lookup(d)
		if !ok {
			return false, &UnknownAssetError{Unit: ref.from.Unit.Path, Line: d.Line, Name: d.Name, Kind: d.Kind}
		}
		id := nodeID(s.Origin, s.Rel)
		if _, exists := b.byID[id]; !exists {
			if !b.r.opts.LenientImports {
				return false, &DanglingImportError{Unit: ref.from.Unit.Path, Line: d.Line, Name: d.Name, Kind: d.Kind}
			}
			b.r.logger.Warn("import target is not embedded, adding it",
				"unit", ref.from.Unit.Path, "line", d.Line, "target", d.Name)
			u, err := b.r.scan(ctx, s)
			if err != nil {
				return false, err
			}
			b.add(s.Rel, s.Origin, u)
			added = true
		}
		ref.from.References = append(ref.from.References, Reference{Directive: d, Target: id})
	}
	return added, nil
}

func (b *build) entry() (*Node, error) {
	var entries []*Node
	for _, n := range b.nodes {
		if n.Unit.IsEntry() {
			entries = append(entries, n)
		}
	}
	switch len(entries) {
	case 1:
		return entries[0], nil
	case 0:
		if hint := b.r.layout.EntryHint; hint != "" {
			for _, n := range b.nodes {
				if n.Origin == project.OriginLocal && n.Unit.Name == hint {
					return n, nil
				}
			}
		}
		return nil, ErrMissingEntry
	default:
		names := make([]string, len(entries))
		for i, n := range entries {
			names[i] = n.ID
		}
		return nil, &AmbiguousEntryError{Units: names}
	}
}
