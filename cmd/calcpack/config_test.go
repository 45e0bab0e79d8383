// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calcpack/calcpack/internal/issue"
	"github.com/calcpack/calcpack/internal/testutil"
	"github.com/calcpack/calcpack/pkg/types"
)

func TestConfigShow(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, map[string]string{"calcpack.toml": "src_dir = \"python\"\nlenient_imports = true\n"})

	tests := []struct {
		format string
		want   []string
	}{
		{"cue", []string{`src_dir:    "python"`, "lenient_imports:  true"}},
		{"toml", []string{"src_dir = 'python'", "lenient_imports = true"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			stdout, stderr, err := runCLI(t, Dependencies{}, "-C", root, "config", "show", "--format", tt.format)
			if err != nil {
				t.Fatalf("config show error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(stdout, w) {
					t.Errorf("output missing %q:\n%s", w, stdout)
				}
			}
			if !strings.Contains(stderr, "calcpack.toml") {
				t.Errorf("stderr does not name the project file:\n%s", stderr)
			}
		})
	}
}

func TestConfigShow_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, Dependencies{}, "-C", t.TempDir(), "config", "show", "--format", "yaml")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitUsage {
		t.Fatalf("config show error = %v, want usage ExitError", err)
	}
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	stdout, _, err := runCLI(t, Dependencies{}, "-C", root, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	path := filepath.Join(root, "calcpack.cue")
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("project file not written: %v", statErr)
	}
	if !strings.Contains(stdout, "Created") {
		t.Errorf("stdout = %q, want a creation notice", stdout)
	}

	// A second run keeps the existing file.
	stdout, _, err = runCLI(t, Dependencies{}, "-C", root, "config", "init")
	if err != nil {
		t.Fatalf("second config init error = %v", err)
	}
	if !strings.Contains(stdout, "already exists") {
		t.Errorf("stdout = %q, want an existing-file notice", stdout)
	}

	// The generated file loads back.
	if _, _, err := runCLI(t, Dependencies{}, "-C", root, "config", "show"); err != nil {
		t.Errorf("config show on generated file error = %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, map[string]string{"calcpack.cue": "src_dir: \"src\"\n"})
	stdout, _, err := runCLI(t, Dependencies{}, "-C", root, "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if got, want := strings.TrimSpace(stdout), filepath.Join(root, "calcpack.cue"); got != want {
		t.Errorf("config path = %q, want %q", got, want)
	}

	_, _, err = runCLI(t, Dependencies{}, "-C", t.TempDir(), "config", "path")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitFailure {
		t.Errorf("config path without project file error = %v, want ExitError", err)
	}
}

func TestConfigInit_WriteFailure(t *testing.T) {
	t.Parallel()

	// A regular file where the project directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	testutil.MustWriteFile(t, blocker, "")

	_, _, err := runCLI(t, Dependencies{}, "-C", filepath.Join(blocker, "proj"), "config", "init")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("config init error = %v, want ActionableError", err)
	}
	if ae.Operation != "create project file" {
		t.Errorf("Operation = %q, want %q", ae.Operation, "create project file")
	}
	if !strings.HasPrefix(err.Error(), "failed to create project file: ") {
		t.Errorf("error = %q", err)
	}
}
