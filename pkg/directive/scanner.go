// SPDX-License-Identifier: MPL-2.0

package directive

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// DefaultMarker introduces a directive comment.
const DefaultMarker = "# calcpack:"

// shellMeta are characters that would trigger expansion in the tokenizer.
const shellMeta = "$`*?[{~"

var (
	moduleRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	aliasRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type (
	// ScanOptions configures a Scanner.
	ScanOptions struct {
		// Marker overrides DefaultMarker.
		Marker string
	}

	// Scanner parses script sources into Units.
	Scanner struct {
		marker string
	}

	lineParser struct {
		file string
		line int
		text string
	}
)

// NewScanner creates a Scanner.
func NewScanner(opts ScanOptions) *Scanner {
	marker := strings.TrimSpace(opts.Marker)
	if marker == "" {
		marker = DefaultMarker
	}
	return &Scanner{marker: marker}
}

// Scan parses source with the default marker.
func Scan(name, source string) (*Unit, error) {
	return NewScanner(ScanOptions{}).Scan(context.Background(), name, "", []byte(source))
}

// Marker returns the directive marker in use.
func (s *Scanner) Marker() string { return s.marker }

// Scan extracts directives and exported callables from source.
// name is the unit's logical name; path is only used in error messages.
func (s *Scanner) Scan(ctx context.Context, name, path string, source []byte) (*Unit, error) {
	file := path
	if file == "" {
		file = name
	}

	text := string(source)
	var directives []Directive
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		body, ok := strings.CutPrefix(line, s.marker)
		if !ok {
			continue
		}
		p := lineParser{file: file, line: i + 1, text: line}
		d, err := p.parse(strings.TrimSpace(body))
		if err != nil {
			return nil, err
		}
		directives = append(directives, d)
	}

	exported, err := exportedCallables(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", file, err)
	}

	return &Unit{
		Name:       name,
		Path:       path,
		Text:       text,
		Directives: directives,
		Exported:   exported,
	}, nil
}

func (p lineParser) fail(format string, args ...any) error {
	return &MalformedDirectiveError{
		File:   p.file,
		Line:   p.line,
		Text:   p.text,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (p lineParser) parse(body string) (Directive, error) {
	if strings.ContainsAny(body, shellMeta) {
		return Directive{}, p.fail("shell expansion characters are not allowed")
	}
	tokens, err := shell.Fields(body, func(string) string { return "" })
	if err != nil {
		return Directive{}, p.fail("%v", err)
	}
	if len(tokens) == 0 {
		return Directive{}, p.fail("empty directive")
	}

	d := Directive{Line: p.line, Text: p.text}
	switch tokens[0] {
	case "entry":
		d.Kind = KindEntry
		if len(tokens) > 1 {
			return Directive{}, p.fail("unexpected %q after entry", tokens[1])
		}
		return d, nil
	case "import":
		d.Kind = KindImport
		rest := tokens[1:]
		if len(rest) > 0 && rest[0] == "lib" {
			d.Kind = KindImportLib
			rest = rest[1:]
		}
		return p.named(d, rest, true)
	case "embed":
		if len(tokens) < 2 {
			return Directive{}, p.fail("embed requires lib or script")
		}
		switch tokens[1] {
		case "lib":
			d.Kind = KindEmbedLib
		case "script":
			d.Kind = KindEmbedScript
		default:
			return Directive{}, p.fail("embed requires lib or script, got %q", tokens[1])
		}
		return p.named(d, tokens[2:], false)
	case "use":
		d.Kind = KindUse
		if len(tokens) < 2 {
			return Directive{}, p.fail("use requires a qualified name")
		}
		module, object, ok := splitQualified(tokens[1])
		if !ok {
			return Directive{}, p.fail("invalid qualified name %q", tokens[1])
		}
		d.Object = object
		return p.named(d, append([]string{module}, tokens[2:]...), true)
	default:
		return Directive{}, p.fail("unknown directive %q", tokens[0])
	}
}

// named parses "<name> [as <alias>]" into d.
func (p lineParser) named(d Directive, rest []string, aliasOK bool) (Directive, error) {
	if len(rest) == 0 {
		return Directive{}, p.fail("%s requires a name", d.Kind)
	}
	if !moduleRe.MatchString(rest[0]) {
		return Directive{}, p.fail("invalid identifier %q", rest[0])
	}
	d.Name = rest[0]
	rest = rest[1:]
	if len(rest) == 0 {
		return d, nil
	}
	if rest[0] != "as" {
		return Directive{}, p.fail("unexpected %q", rest[0])
	}
	if !aliasOK {
		return Directive{}, p.fail("%s does not accept an alias", d.Kind)
	}
	if len(rest) < 2 {
		return Directive{}, p.fail("dangling as")
	}
	if !aliasRe.MatchString(rest[1]) {
		return Directive{}, p.fail("invalid alias %q", rest[1])
	}
	if len(rest) > 2 {
		return Directive{}, p.fail("unexpected %q", rest[2])
	}
	d.Alias = rest[1]
	return d, nil
}

// splitQualified splits "m::o" or "m.o" into module and object.
func splitQualified(s string) (module, object string, ok bool) {
	if m, o, found := strings.Cut(s, "::"); found {
		module, object = m, o
	} else {
		i := strings.LastIndexByte(s, '.')
		if i < 0 {
			return "", "", false
		}
		module, object = s[:i], s[i+1:]
	}
	if !moduleRe.MatchString(module) || !aliasRe.MatchString(object) {
		return "", "", false
	}
	return module, object, true
}
