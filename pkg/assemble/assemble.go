// SPDX-License-Identifier: MPL-2.0

// Package assemble turns a resolved embed graph into the ordered list of
// script entries stored in the document, rendering each directive line into
// the Python binding it stands for.
package assemble

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calcpack/calcpack/pkg/directive"
	"github.com/calcpack/calcpack/pkg/embedgraph"
	"github.com/calcpack/calcpack/pkg/odf"
	"github.com/calcpack/calcpack/pkg/project"
)

const exportedVar = "g_exportedScripts"

// ErrNameCollision is the sentinel for NameCollisionError.
var ErrNameCollision = errors.New("name collision")

type (
	// Options configures Assemble.
	Options struct {
		// ExportFunctions appends a g_exportedScripts tuple listing the
		// exported callables of each unit.
		ExportFunctions bool
		Logger          *slog.Logger
	}

	// Unit is one script entry of the assembled project.
	Unit struct {
		// ID is the embed graph node ID.
		ID string
		// Name is the final dotted module name.
		Name string
		// Path is the container entry path, under odf.PythonPrefix.
		Path   string
		Text   []byte
		Origin project.Origin
		// Exported lists the callables of the unit in declaration order.
		Exported []string
		Entry    bool
	}

	// Project is the assembled, ordered set of units.
	Project struct {
		Units []Unit
		entry int
	}

	// NameCollisionError reports two units whose final names differ only by case.
	NameCollisionError struct {
		Name  string
		Units []string
	}
)

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("final name %q is used by several units: %s", e.Name, strings.Join(e.Units, ", "))
}

// Unwrap returns ErrNameCollision for errors.Is() compatibility.
func (e *NameCollisionError) Unwrap() error { return ErrNameCollision }

// Entry returns the entry unit.
func (p *Project) Entry() Unit { return p.Units[p.entry] }

// Paths returns the container paths in embedding order.
func (p *Project) Paths() []string {
	paths := make([]string, len(p.Units))
	for i, u := range p.Units {
		paths[i] = u.Path
	}
	return paths
}

// Locator returns the script URI binding fn of u.
func (u Unit) Locator(fn string) string {
	return odf.Locator(u.Path, fn)
}

// Assemble places every graph node in embedding order.
func Assemble(g *embedgraph.Graph, opts Options) (*Project, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Project{Units: make([]Unit, 0, g.Len())}
	seen := make(map[string]string, g.Len())
	for _, n := range g.Order() {
		key := strings.ToLower(n.Unit.Name)
		if other, dup := seen[key]; dup {
			return nil, &NameCollisionError{Name: n.Unit.Name, Units: []string{other, n.ID}}
		}
		seen[key] = n.ID

		isEntry := n == g.Entry()
		if isEntry {
			p.entry = len(p.Units)
		}
		p.Units = append(p.Units, Unit{
			ID:       n.ID,
			Name:     n.Unit.Name,
			Path:     odf.PythonPrefix + n.Unit.Path,
			Text:     render(g, n, opts.ExportFunctions),
			Origin:   n.Origin,
			Exported: n.Unit.Exported,
			Entry:    isEntry,
		})
		logger.Debug("unit assembled", "unit", n.ID, "exported", len(n.Unit.Exported))
	}
	return p, nil
}

// render inserts the binding of each directive right below its line.
func render(g *embedgraph.Graph, n *embedgraph.Node, export bool) []byte {
	targets := make(map[int]string, len(n.References))
	for _, ref := range n.References {
		if t, ok := g.Node(ref.Target); ok {
			targets[ref.Directive.Line] = t.Unit.Name
		}
	}
	bindings := make(map[int]string, len(n.Unit.Directives))
	for _, d := range n.Unit.Directives {
		name := d.Name
		if t, ok := targets[d.Line]; ok {
			name = t
		}
		if b := Binding(d, name); b != "" {
			bindings[d.Line] = b
		}
	}

	// Inserted lines reuse the ending of the line above them; a last line
	// without one takes the first ending found in the source.
	docEOL := "\n"
	if strings.Contains(n.Unit.Text, "\r\n") {
		docEOL = "\r\n"
	}

	var sb strings.Builder
	lines := strings.Split(n.Unit.Text, "\n")
	hasExported := false
	for i, line := range lines {
		sb.WriteString(line)
		last := i == len(lines)-1
		if !last {
			sb.WriteByte('\n')
		}
		if strings.HasPrefix(line, exportedVar) {
			hasExported = true
		}
		if b, ok := bindings[i+1]; ok {
			eol := docEOL
			if !last {
				eol = "\n"
				if strings.HasSuffix(line, "\r") {
					eol = "\r\n"
				}
			} else {
				sb.WriteString(eol)
			}
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			sb.WriteString(indent + b + eol)
		}
	}

	if export && !hasExported && len(n.Unit.Exported) > 0 {
		out := sb.String()
		if out != "" && !strings.HasSuffix(out, "\n") {
			sb.WriteString(docEOL)
		}
		sb.WriteString(docEOL + exportedVar + " = (" + strings.Join(n.Unit.Exported, ", ") + ",)" + docEOL)
	}
	return []byte(sb.String())
}

// Binding returns the Python statement a directive stands for, using name as
// the referenced module. Entry and embed directives bind nothing.
func Binding(d directive.Directive, name string) string {
	var stmt string
	switch d.Kind {
	case directive.KindEntry, directive.KindEmbedLib, directive.KindEmbedScript:
		return ""
	case directive.KindImport, directive.KindImportLib:
		stmt = "import " + name
	case directive.KindUse:
		stmt = "from " + name + " import " + d.Object
	default:
		panic(fmt.Sprintf("assemble: unhandled directive kind %v", d.Kind))
	}
	if d.Alias != "" {
		stmt += " as " + d.Alias
	}
	return stmt
}
