// SPDX-License-Identifier: MPL-2.0

package directive

import (
	"fmt"
	"strings"
)

const (
	// KindEntry marks the unit whose exported callables become UI triggers.
	KindEntry Kind = iota + 1
	// KindImport is a logical dependency on another local script.
	KindImport
	// KindImportLib is a logical dependency on a library asset.
	KindImportLib
	// KindEmbedLib requires a library asset to be embedded before this unit.
	KindEmbedLib
	// KindEmbedScript requires a local or optional script to be embedded before this unit.
	KindEmbedScript
	// KindUse binds a single object of another module.
	KindUse
)

type (
	// Kind is the closed set of directive kinds.
	Kind int

	// Directive is one parsed directive line.
	Directive struct {
		Kind Kind
		// Name is the referenced module or library (dotted path). Empty for KindEntry.
		Name string
		// Object is the imported object for KindUse.
		Object string
		// Alias is the optional binding name given with "as".
		Alias string
		// Line is the 1-based source line.
		Line int
		// Text is the directive line without leading indentation.
		Text string
	}

	// Unit is a scanned script: its text, directives in source order and
	// exported callables in declaration order. A Unit is not modified after Scan.
	Unit struct {
		Name       string
		Path       string
		Text       string
		Directives []Directive
		Exported   []string
	}
)

// Kinds returns every directive kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindEntry, KindImport, KindImportLib, KindEmbedLib, KindEmbedScript, KindUse}
}

// String returns the directive keyword(s) of the kind.
func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindImport:
		return "import"
	case KindImportLib:
		return "import lib"
	case KindEmbedLib:
		return "embed lib"
	case KindEmbedScript:
		return "embed script"
	case KindUse:
		return "use"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsValid reports whether k is one of the declared kinds.
func (k Kind) IsValid() bool {
	return k >= KindEntry && k <= KindUse
}

// IsEmbed reports whether the kind creates an embedding edge.
func (k Kind) IsEmbed() bool {
	return k == KindEmbedLib || k == KindEmbedScript
}

// IsReference reports whether the kind is a logical dependency without embedding.
func (k Kind) IsReference() bool {
	return k == KindImport || k == KindImportLib || k == KindUse
}

// IsLibrary reports whether Name refers to the library asset root.
func (k Kind) IsLibrary() bool {
	return k == KindImportLib || k == KindEmbedLib
}

// Bound returns the name the directive binds in the script namespace:
// the alias if any, else the object for KindUse, else the top-level module.
func (d Directive) Bound() string {
	if d.Alias != "" {
		return d.Alias
	}
	if d.Kind == KindUse {
		return d.Object
	}
	head, _, _ := strings.Cut(d.Name, ".")
	return head
}

// IsEntry reports whether the unit carries an entry directive.
func (u *Unit) IsEntry() bool {
	for _, d := range u.Directives {
		if d.Kind == KindEntry {
			return true
		}
	}
	return false
}

// Filter returns the directives for which keep returns true, in source order.
func (u *Unit) Filter(keep func(Directive) bool) []Directive {
	var out []Directive
	for _, d := range u.Directives {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
