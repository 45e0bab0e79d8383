// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calcpack/calcpack/internal/testutil"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"src/main.py":              "",
		"src/tools/sheet.py":       "",
		"src/tools/__init__.py":    "",
		"src/scratch/tmp.py":       "",
		"src/readme.txt":           "",
		"opt/extra.py":             "",
		"lib/py_commons.py":        "",
		"lib/pkg/__init__.py":      "",
		"assets/img/logo.png":      "png",
		"assets/data.csv":          "a,b",
		"assets/img/.thumbs/x.png": "",
	})
	return Layout{
		SrcDir:       filepath.Join(root, "src"),
		OptDir:       filepath.Join(root, "opt"),
		LibDir:       filepath.Join(root, "lib"),
		AssetsDir:    filepath.Join(root, "assets"),
		SrcIgnore:    []string{"scratch/**"},
		AssetsIgnore: []string{"**/.thumbs/**"},
	}
}

func TestLocalScripts(t *testing.T) {
	t.Parallel()
	l := testLayout(t)

	got, err := l.LocalScripts()
	if err != nil {
		t.Fatalf("LocalScripts() error: %v", err)
	}
	var names, rels []string
	for _, s := range got {
		names = append(names, s.Name)
		rels = append(rels, s.Rel)
		if s.Origin != OriginLocal {
			t.Errorf("%s: origin = %v, want local", s.Name, s.Origin)
		}
	}
	if diff := cmp.Diff([]string{"main.py", "tools/__init__.py", "tools/sheet.py"}, rels); diff != "" {
		t.Errorf("rels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"main", "tools", "tools.sheet"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalScripts_MissingRoot(t *testing.T) {
	t.Parallel()
	l := Layout{SrcDir: filepath.Join(t.TempDir(), "nope")}
	if _, err := l.LocalScripts(); !errors.Is(err, ErrNoScriptRoot) {
		t.Fatalf("expected ErrNoScriptRoot, got %v", err)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()
	l := testLayout(t)

	tests := []struct {
		name   string
		lib    bool
		origin Origin
		rel    string
		found  bool
	}{
		{name: "tools.sheet", origin: OriginLocal, rel: "tools/sheet.py", found: true},
		{name: "tools", origin: OriginLocal, rel: "tools/__init__.py", found: true},
		{name: "extra", origin: OriginOptional, rel: "extra.py", found: true},
		{name: "scratch.tmp"},
		{name: "py_commons", lib: true, origin: OriginLibrary, rel: "py_commons.py", found: true},
		{name: "pkg", lib: true, origin: OriginLibrary, rel: "pkg/__init__.py", found: true},
		{name: "main", lib: true},
		{name: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var (
				s  Source
				ok bool
			)
			if tt.lib {
				s, ok = l.FindLibrary(tt.name)
			} else {
				s, ok = l.FindLocal(tt.name)
			}
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if !ok {
				return
			}
			if s.Origin != tt.origin || s.Rel != tt.rel || s.Name != tt.name {
				t.Errorf("got %+v", s)
			}
		})
	}
}

func TestAssets(t *testing.T) {
	t.Parallel()
	l := testLayout(t)

	got, err := l.Assets()
	if err != nil {
		t.Fatalf("Assets() error: %v", err)
	}
	var rels []string
	for _, a := range got {
		rels = append(rels, a.Rel)
	}
	if diff := cmp.Diff([]string{"data.csv", "img/logo.png"}, rels); diff != "" {
		t.Errorf("assets mismatch (-want +got):\n%s", diff)
	}

	none, err := Layout{AssetsDir: filepath.Join(t.TempDir(), "none")}.Assets()
	if err != nil || len(none) != 0 {
		t.Errorf("missing assets root: got %v, %v", none, err)
	}
}

func TestModuleName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"main.py":           "main",
		"tools/sheet.py":    "tools.sheet",
		"tools/__init__.py": "tools",
	}
	for rel, want := range tests {
		if got := ModuleName(rel); got != want {
			t.Errorf("ModuleName(%q) = %q, want %q", rel, got, want)
		}
	}
	if got := ScriptPath("tools.sheet"); got != "tools/sheet.py" {
		t.Errorf("ScriptPath() = %q", got)
	}
}
