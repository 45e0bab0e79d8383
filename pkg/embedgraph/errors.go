// SPDX-License-Identifier: MPL-2.0

package embedgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/calcpack/calcpack/pkg/directive"
)

var (
	// ErrUnknownAsset is returned when a directive names a module or library that does not exist.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrCyclicEmbed is returned when embed directives form a cycle.
	ErrCyclicEmbed = errors.New("cyclic embed")
	// ErrMissingEntry is returned when no unit carries the entry directive.
	ErrMissingEntry = errors.New("no entry unit: exactly one script must declare entry")
	// ErrAmbiguousEntry is returned when several units carry the entry directive.
	ErrAmbiguousEntry = errors.New("ambiguous entry")
	// ErrDanglingImport is returned when an import targets a unit that is not embedded.
	ErrDanglingImport = errors.New("dangling import")
)

type (
	// UnknownAssetError names the directive whose target could not be found.
	UnknownAssetError struct {
		Unit string
		Line int
		Name string
		Kind directive.Kind
	}

	// CyclicEmbedError carries the embed cycle; the path starts and ends at the same unit.
	CyclicEmbedError struct {
		Cycle []string
	}

	// AmbiguousEntryError lists every unit declaring entry.
	AmbiguousEntryError struct {
		Units []string
	}

	// DanglingImportError names a logical dependency on a unit that is not part of the graph.
	DanglingImportError struct {
		Unit string
		Line int
		Name string
		Kind directive.Kind
	}
)

func (e *UnknownAssetError) Error() string {
	return fmt.Sprintf("%s:%d: %s %q: no such %s", e.Unit, e.Line, e.Kind, e.Name, assetNoun(e.Kind))
}

// Unwrap returns ErrUnknownAsset for errors.Is() compatibility.
func (e *UnknownAssetError) Unwrap() error { return ErrUnknownAsset }

func (e *CyclicEmbedError) Error() string {
	return fmt.Sprintf("embed cycle: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCyclicEmbed for errors.Is() compatibility.
func (e *CyclicEmbedError) Unwrap() error { return ErrCyclicEmbed }

func (e *AmbiguousEntryError) Error() string {
	return fmt.Sprintf("entry declared by %d units: %s", len(e.Units), strings.Join(e.Units, ", "))
}

// Unwrap returns ErrAmbiguousEntry for errors.Is() compatibility.
func (e *AmbiguousEntryError) Unwrap() error { return ErrAmbiguousEntry }

func (e *DanglingImportError) Error() string {
	return fmt.Sprintf("%s:%d: %s %q: target is not embedded in the document", e.Unit, e.Line, e.Kind, e.Name)
}

// Unwrap returns ErrDanglingImport for errors.Is() compatibility.
func (e *DanglingImportError) Unwrap() error { return ErrDanglingImport }

func assetNoun(k directive.Kind) string {
	if k.IsLibrary() {
		return "library"
	}
	return "script"
}
