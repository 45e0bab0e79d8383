// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	MalformedDirectiveId Id = iota + 1
	UnknownAssetId
	CyclicEmbedId
	MissingEntryId
	AmbiguousEntryId
	DanglingImportId
	NameCollisionId
	InvalidContainerId
	ArchiveIntegrityId
	NoBaseDocumentId
	ScriptRootNotFoundId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // kebab-case name accepted by 'calcpack explain'
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // calcpack documentation for this failure
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

const (
	odfSpecLink      HttpLink = "https://docs.oasis-open.org/office/OpenDocument/v1.3/"
	pythonScriptLink HttpLink = "https://help.libreoffice.org/latest/en-US/text/sbasic/python/python_programming.html"
)

var (
	render = glamour.Render

	malformedDirectiveIssue = &Issue{
		id:   MalformedDirectiveId,
		name: "malformed-directive",
		mdMsg: `
# Malformed directive

A line starting with the directive marker could not be parsed.

## Accepted forms
~~~python
# calcpack: entry
# calcpack: embed script helpers
# calcpack: embed lib vendored.tables
# calcpack: import mymodule as mm
# calcpack: import lib vendored
# calcpack: use mymodule::helper as h
~~~

## Things you can try:
- Check the spelling of the directive kind
- Names are dotted module names without the .py suffix or shell characters
- Use a different marker in your configuration if the default clashes
  with ordinary comments in your scripts`,
	}

	unknownAssetIssue = &Issue{
		id:   UnknownAssetId,
		name: "unknown-asset",
		mdMsg: `
# Unknown script

A directive refers to a script that does not exist in any script root.

## Search order:
1. The source directory (` + "`src_dir`" + `)
2. The optional directory (` + "`opt_dir`" + `)
3. The library directory (` + "`lib_dir`" + `), for ` + "`embed lib`" + `, ` + "`import lib`" + ` and ` + "`use`" + `

## Things you can try:
- Check the module name in the directive
- Make sure the file is not excluded by ` + "`src_ignore`" + `
- Packages are resolved through their ` + "`__init__.py`",
	}

	cyclicEmbedIssue = &Issue{
		id:   CyclicEmbedId,
		name: "cyclic-embed",
		mdMsg: `
# Embed cycle

Two or more scripts embed each other, so no order exists in which
every script follows the scripts it depends on.

## Things you can try:
- Move the shared code into a third script that both embed
- Replace one of the ` + "`embed script`" + ` directives with an ` + "`import`",
	}

	missingEntryIssue = &Issue{
		id:   MissingEntryId,
		name: "missing-entry",
		mdMsg: `
# No entry script

None of the scripts declares itself as the entry point.

## Things you can try:
- Add the directive to your main script:
~~~python
# calcpack: entry
~~~
- Or set ` + "`entry_hint`" + ` in your configuration`,
		extLinks: []HttpLink{pythonScriptLink},
	}

	ambiguousEntryIssue = &Issue{
		id:   AmbiguousEntryId,
		name: "ambiguous-entry",
		mdMsg: `
# More than one entry script

Several scripts declare ` + "`# calcpack: entry`" + `. A document has exactly one
entry script; the others must be embedded or imported by it.

## Things you can try:
- Remove the entry directive from all scripts but one
- Move experimental entry points to a directory excluded by ` + "`src_ignore`",
	}

	danglingImportIssue = &Issue{
		id:   DanglingImportId,
		name: "dangling-import",
		mdMsg: `
# Import of a script that is not packed

A script imports a module that is neither embedded nor found
in the library directory, so it would fail when the document runs it.

## Things you can try:
- Add the module to the source or library directory
- Use ` + "`import lib`" + ` for modules that live in ` + "`lib_dir`" + `
- Set ` + "`lenient_imports: true`" + ` to pack whatever resolves and
  ignore the rest`,
	}

	nameCollisionIssue = &Issue{
		id:   NameCollisionId,
		name: "name-collision",
		mdMsg: `
# Script name collision

Two scripts would be stored under the same name inside the document.
Names are compared without regard to case because the office suite
resolves them that way on some platforms.

## Things you can try:
- Rename one of the scripts
- Exclude one of them with ` + "`src_ignore`",
	}

	invalidContainerIssue = &Issue{
		id:   InvalidContainerId,
		name: "invalid-container",
		mdMsg: `
# Not an OpenDocument file

The base document is not a valid OpenDocument container. It must be a
zip archive whose first entry is ` + "`mimetype`" + `, with a manifest and a
content document.

## Things you can try:
- Re-save the document from the office suite as ` + "`.ods`" + `
- Run ` + "`calcpack init`" + ` to produce a fresh document from the built-in template`,
		extLinks: []HttpLink{odfSpecLink},
	}

	archiveIntegrityIssue = &Issue{
		id:   ArchiveIntegrityId,
		name: "archive-integrity",
		mdMsg: `
# Inconsistent document

The rewritten document failed its consistency check: the manifest, the
stored scripts and the script declarations disagree. Nothing was written.

This is a bug in calcpack or a corrupted base document. Re-run the build
with ` + "`--verbose`" + ` and report the output.`,
		extLinks: []HttpLink{odfSpecLink},
	}

	noBaseDocumentIssue = &Issue{
		id:   NoBaseDocumentId,
		name: "no-base-document",
		mdMsg: `
# No base document

The build needs an existing document to pack the scripts into.

## Things you can try:
- Pass it explicitly:
~~~
$ calcpack build --base report.ods
~~~
- Set ` + "`base_file`" + ` in your configuration
- Or create one from the template:
~~~
$ calcpack init
~~~`,
	}

	scriptRootNotFoundIssue = &Issue{
		id:   ScriptRootNotFoundId,
		name: "script-root-not-found",
		mdMsg: `
# No script directory

The configured source directory does not exist.

## Things you can try:
- Run calcpack from the project root, or pass ` + "`-C <dir>`" + `
- Check ` + "`src_dir`" + ` in your configuration:
~~~
$ calcpack config show
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-load-failed",
		mdMsg: `
# Failed to load configuration

The configuration file exists but could not be read or failed validation.

## Things you can try:
- Print the effective configuration:
~~~
$ calcpack config show
~~~
- Write a fresh default file and compare:
~~~
$ calcpack config init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id:   PermissionDeniedId,
		name: "permission-denied",
		mdMsg: `
# Permission denied

A script, the base document or the output location could not be accessed.

## Things you can try:
- Check the permissions of the output directory
- Close the document in the office suite; some platforms lock open files`,
	}

	// ordered as the Id constants
	issues = []*Issue{
		malformedDirectiveIssue,
		unknownAssetIssue,
		cyclicEmbedIssue,
		missingEntryIssue,
		ambiguousEntryIssue,
		danglingImportIssue,
		nameCollisionIssue,
		invalidContainerIssue,
		archiveIntegrityIssue,
		noBaseDocumentIssue,
		scriptRootNotFoundIssue,
		configLoadFailedIssue,
		permissionDeniedIssue,
	}
)

// Values returns every issue in catalog order.
func Values() []*Issue {
	return slices.Clone(issues)
}

func Get(id Id) *Issue {
	if id < 1 || int(id) > len(issues) {
		return nil
	}
	return issues[id-1]
}

// Lookup finds an issue by its name.
func Lookup(name string) *Issue {
	name = strings.ToLower(strings.TrimSpace(name))
	idx := slices.IndexFunc(issues, func(i *Issue) bool { return i.name == name })
	if idx < 0 {
		return nil
	}
	return issues[idx]
}

// Names lists the issue names in catalog order.
func Names() []string {
	names := make([]string, 0, len(issues))
	for _, i := range issues {
		names = append(names, i.name)
	}
	return names
}
