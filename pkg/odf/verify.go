// SPDX-License-Identifier: MPL-2.0

package odf

import "strings"

// Verify checks that every script entry has exactly one manifest record,
// that every script record has an entry, that the script declarations of the
// content document match the script records, and that every document script
// locator targets a recorded script.
func (a *Archive) Verify() error {
	records := make(map[string]string)
	for _, r := range a.manifest.Records() {
		if _, dup := records[r.Path]; dup {
			return &ArchiveIntegrityError{Path: r.Path, Reason: "duplicate manifest record"}
		}
		records[r.Path] = r.MediaType
	}

	for _, e := range a.entries {
		if !isScriptFile(e.name) {
			continue
		}
		if _, ok := records[e.name]; !ok {
			return &ArchiveIntegrityError{Path: e.name, Reason: "script entry has no manifest record"}
		}
	}

	scripts := make(map[string]bool)
	var order []string
	for _, r := range a.manifest.Records() {
		if !isScriptFile(r.Path) {
			continue
		}
		if !a.Has(r.Path) {
			return &ArchiveIntegrityError{Path: r.Path, Reason: "manifest record has no entry"}
		}
		scripts[r.Path] = false
		order = append(order, r.Path)
	}

	for _, p := range a.content.ScriptModules() {
		declared, ok := scripts[p]
		if !ok {
			return &ArchiveIntegrityError{Path: p, Reason: "declared script is not in the manifest"}
		}
		if declared {
			return &ArchiveIntegrityError{Path: p, Reason: "script declared twice"}
		}
		scripts[p] = true
	}
	for _, p := range order {
		if strings.HasPrefix(p, PythonPrefix) && !scripts[p] {
			return &ArchiveIntegrityError{Path: p, Reason: "script entry is not declared in the content document"}
		}
	}

	for _, href := range a.content.EventListenerHrefs() {
		path, _, ok := ParseLocator(href)
		if !ok {
			continue
		}
		if _, recorded := scripts[path]; !recorded {
			return &ArchiveIntegrityError{Path: href, Reason: "trigger locator targets a missing script"}
		}
	}
	return nil
}

func isScriptFile(name string) bool {
	return strings.HasPrefix(name, ScriptsPrefix) && !strings.HasSuffix(name, "/")
}
