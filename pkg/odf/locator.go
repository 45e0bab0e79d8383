// SPDX-License-Identifier: MPL-2.0

package odf

import "strings"

const (
	// ScriptsPrefix is the container directory holding document scripts of every language.
	ScriptsPrefix = "Scripts/"
	// PythonPrefix is the container directory holding Python scripts.
	PythonPrefix = ScriptsPrefix + "python/"

	locatorScheme = "vnd.sun.star.script:"
	locatorQuery  = "?language=Python&location=document"
)

// Locator returns the document script URI of fn in the script entry at path.
// Subdirectories are separated with "|" as the Python script provider expects.
func Locator(path, fn string) string {
	rel := strings.ReplaceAll(strings.TrimPrefix(path, PythonPrefix), "/", "|")
	return locatorScheme + rel + "$" + fn + locatorQuery
}

// ParseLocator returns the entry path and function of a document script URI.
// URIs of scripts stored outside the document are rejected.
func ParseLocator(uri string) (path, fn string, ok bool) {
	rest, found := strings.CutPrefix(uri, locatorScheme)
	if !found {
		return "", "", false
	}
	rest, query, _ := strings.Cut(rest, "?")
	if !strings.Contains(query, "location=document") {
		return "", "", false
	}
	file, fn, found := strings.Cut(rest, "$")
	if !found || file == "" || fn == "" {
		return "", "", false
	}
	return PythonPrefix + strings.ReplaceAll(file, "|", "/"), fn, true
}
