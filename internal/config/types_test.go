// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calcpack/calcpack/pkg/project"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  bool
		slog  slog.Level
	}{
		{LogLevelDebug, true, slog.LevelDebug},
		{LogLevelInfo, true, slog.LevelInfo},
		{LogLevelWarn, true, slog.LevelWarn},
		{LogLevelError, true, slog.LevelError},
		{"", false, slog.LevelInfo},
		{"DEBUG", false, slog.LevelInfo},
		{"trace", false, slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.level.IsValid()
			if isValid != tt.want {
				t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tt.level, isValid, tt.want)
			}
			if !tt.want && (len(errs) == 0 || !errors.Is(errs[0], ErrInvalidLogLevel)) {
				t.Errorf("error should wrap ErrInvalidLogLevel, got: %v", errs)
			}
			if got := tt.level.Slog(); got != tt.slog {
				t.Errorf("Slog() = %v, want %v", got, tt.slog)
			}
		})
	}
}

func TestMode_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode Mode
		want bool
	}{
		{ModeUpdate, true},
		{ModeDebug, true},
		{ModeInit, true},
		{"", false},
		{"release", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.mode.IsValid()
			if isValid != tt.want {
				t.Errorf("Mode(%q).IsValid() = %v, want %v", tt.mode, isValid, tt.want)
			}
			if !tt.want {
				var modeErr *InvalidModeError
				if len(errs) == 0 || !errors.As(errs[0], &modeErr) {
					t.Fatalf("expected *InvalidModeError, got %v", errs)
				}
				if modeErr.Value != tt.mode {
					t.Errorf("Value = %q, want %q", modeErr.Value, tt.mode)
				}
			}
		})
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	if valid, errs := DefaultConfig().IsValid(); !valid {
		t.Fatalf("default config should be valid, got %v", errs)
	}

	cfg := DefaultConfig()
	cfg.SrcDir = " "
	cfg.Marker = "calcpack:"
	cfg.Mode = "release"
	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("expected invalid config")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(cfgErr.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %v, want 3 entries", cfgErr.FieldErrors)
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("error should wrap ErrInvalidConfig")
	}
}

func TestConfig_Layout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.LibDir = filepath.Join(root, "vendor", "lib")
	cfg.OptDir = ""
	cfg.EntryHint = "main"

	want := project.Layout{
		SrcDir:       filepath.Join(root, "src"),
		LibDir:       cfg.LibDir,
		AssetsDir:    filepath.Join(root, "assets"),
		SrcIgnore:    cfg.SrcIgnore,
		AssetsIgnore: cfg.AssetsIgnore,
		EntryHint:    "main",
	}
	if diff := cmp.Diff(want, cfg.Layout(root)); diff != "" {
		t.Errorf("Layout() mismatch (-want +got):\n%s", diff)
	}

	if got := cfg.Path(root, "build/out.ods"); got != filepath.Join(root, "build", "out.ods") {
		t.Errorf("Path() = %q", got)
	}
	if got := cfg.Path(root, ""); got != "" {
		t.Errorf("Path(\"\") = %q, want empty", got)
	}
}
