// SPDX-License-Identifier: MPL-2.0

// Package project describes the on-disk layout of a calcpack project: the
// script roots, the library asset root, the assets root and the ignore globs
// applied while discovering files.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// OriginLocal is a script under the local scripts root; always embedded.
	OriginLocal Origin = iota + 1
	// OriginOptional is a script under the optional root; embedded on demand.
	OriginOptional
	// OriginLibrary is a library asset; embedded on demand.
	OriginLibrary
)

const (
	scriptExt   = ".py"
	packageFile = "__init__.py"
)

// ErrNoScriptRoot is returned when the local scripts root is missing.
var ErrNoScriptRoot = errors.New("local scripts root not found")

type (
	// Origin tells which root a Source was found in.
	Origin int

	// Layout holds the project roots. Empty optional roots are skipped.
	Layout struct {
		SrcDir       string
		OptDir       string
		LibDir       string
		AssetsDir    string
		SrcIgnore    []string
		AssetsIgnore []string
		// EntryHint names the entry unit when no script declares one.
		EntryHint string
	}

	// Source is a discovered script file.
	Source struct {
		// Name is the dotted module name derived from Rel.
		Name string
		// Path is the filesystem path.
		Path string
		// Rel is the slash-separated path relative to its root.
		Rel    string
		Origin Origin
	}

	// Asset is a non-script file copied verbatim into the container.
	Asset struct {
		Rel  string
		Path string
	}
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginOptional:
		return "optional"
	case OriginLibrary:
		return "library"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Read returns the file content.
func (s Source) Read() ([]byte, error) {
	return os.ReadFile(s.Path)
}

// Validate checks that the local scripts root exists.
func (l Layout) Validate() error {
	info, err := os.Stat(l.SrcDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoScriptRoot, l.SrcDir)
	}
	return nil
}

// Roots returns the existing roots, local first.
func (l Layout) Roots() []string {
	var roots []string
	for _, dir := range []string{l.SrcDir, l.OptDir, l.LibDir, l.AssetsDir} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	return roots
}

// LocalScripts lists every script under the local root sorted by relative path.
func (l Layout) LocalScripts() ([]Source, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	rels, err := walk(l.SrcDir, "**/*"+scriptExt, l.SrcIgnore)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(rels))
	for _, rel := range rels {
		sources = append(sources, Source{
			Name:   ModuleName(rel),
			Path:   filepath.Join(l.SrcDir, filepath.FromSlash(rel)),
			Rel:    rel,
			Origin: OriginLocal,
		})
	}
	return sources, nil
}

// FindLocal resolves a dotted module name against the local root, then the optional root.
func (l Layout) FindLocal(name string) (Source, bool) {
	if s, ok := find(l.SrcDir, name, OriginLocal, l.SrcIgnore); ok {
		return s, true
	}
	return find(l.OptDir, name, OriginOptional, nil)
}

// FindLibrary resolves a dotted library name against the library root.
func (l Layout) FindLibrary(name string) (Source, bool) {
	return find(l.LibDir, name, OriginLibrary, nil)
}

// Assets lists every file under the assets root sorted by relative path.
func (l Layout) Assets() ([]Asset, error) {
	if l.AssetsDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(l.AssetsDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	rels, err := walk(l.AssetsDir, "**", l.AssetsIgnore)
	if err != nil {
		return nil, err
	}
	assets := make([]Asset, 0, len(rels))
	for _, rel := range rels {
		assets = append(assets, Asset{Rel: rel, Path: filepath.Join(l.AssetsDir, filepath.FromSlash(rel))})
	}
	return assets, nil
}

// ModuleName converts a relative script path into a dotted module name.
// "tools/sheet.py" becomes "tools.sheet" and "tools/__init__.py" becomes "tools".
func ModuleName(rel string) string {
	rel = filepath.ToSlash(rel)
	if path.Base(rel) == packageFile {
		rel = path.Dir(rel)
	} else {
		rel = strings.TrimSuffix(rel, scriptExt)
	}
	return strings.ReplaceAll(rel, "/", ".")
}

// ScriptPath converts a dotted module name into its relative script path.
func ScriptPath(name string) string {
	return strings.ReplaceAll(name, ".", "/") + scriptExt
}

func find(root, name string, origin Origin, ignore []string) (Source, bool) {
	if root == "" || name == "" {
		return Source{}, false
	}
	base := strings.ReplaceAll(name, ".", "/")
	for _, rel := range []string{base + scriptExt, base + "/" + packageFile} {
		if ignored(rel, ignore) {
			continue
		}
		p := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return Source{Name: name, Path: p, Rel: rel, Origin: origin}, true
		}
	}
	return Source{}, false
}

func walk(root, pattern string, ignore []string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	out := matches[:0]
	for _, m := range matches {
		if !ignored(m, ignore) {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out, nil
}

func ignored(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
