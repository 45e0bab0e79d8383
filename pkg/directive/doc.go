// SPDX-License-Identifier: MPL-2.0

// Package directive scans Python script sources for packaging directives and
// exported callables.
//
// A directive is a comment line whose first non-blank characters are the
// directive marker (default "# calcpack:"), followed by one of:
//
//	entry
//	import <module> [as <alias>]
//	import lib <library> [as <alias>]
//	embed lib <library>
//	embed script <module>
//	use <module>::<object> [as <alias>]
//
// Directive bodies are tokenized with shell-style quoting. Scanning is pure:
// it never touches the filesystem.
package directive
