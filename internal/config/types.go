// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/calcpack/calcpack/pkg/project"
)

const (
	// LogLevelDebug logs every stage transition and unit.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per build.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only lenient-mode warnings.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"

	// ModeUpdate packs the scripts into the base document.
	ModeUpdate Mode = "update"
	// ModeDebug writes a copy with one button per exported function.
	ModeDebug Mode = "debug"
	// ModeInit writes a fresh spreadsheet from the built-in template.
	ModeInit Mode = "init"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidMode is returned when a Mode value is not recognized.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// Mode is the default build mode of the 'build' command.
	Mode string

	// Config is the calcpack project configuration.
	Config struct {
		// SrcDir holds the local scripts; every script below it is packed.
		SrcDir string `json:"src_dir" mapstructure:"src_dir" toml:"src_dir"`
		// OptDir holds scripts packed only when another script embeds them.
		OptDir string `json:"opt_dir" mapstructure:"opt_dir" toml:"opt_dir"`
		// LibDir holds library modules for 'embed lib', 'import lib' and 'use'.
		LibDir string `json:"lib_dir" mapstructure:"lib_dir" toml:"lib_dir"`
		// AssetsDir holds files copied verbatim under Assets/.
		AssetsDir    string   `json:"assets_dir" mapstructure:"assets_dir" toml:"assets_dir"`
		SrcIgnore    []string `json:"src_ignore" mapstructure:"src_ignore" toml:"src_ignore"`
		AssetsIgnore []string `json:"assets_ignore" mapstructure:"assets_ignore" toml:"assets_ignore"`
		// BaseFile is the document updated by 'build'.
		BaseFile   string `json:"base_file" mapstructure:"base_file" toml:"base_file"`
		OutputFile string `json:"output_file" mapstructure:"output_file" toml:"output_file"`
		DebugFile  string `json:"debug_file" mapstructure:"debug_file" toml:"debug_file"`
		InitFile   string `json:"init_file" mapstructure:"init_file" toml:"init_file"`
		// EntryHint names the entry script when none declares itself.
		EntryHint       string   `json:"entry_hint" mapstructure:"entry_hint" toml:"entry_hint"`
		Marker          string   `json:"marker" mapstructure:"marker" toml:"marker"`
		Mode            Mode     `json:"mode" mapstructure:"mode" toml:"mode"`
		ExportFunctions bool     `json:"export_functions" mapstructure:"export_functions" toml:"export_functions"`
		LenientImports  bool     `json:"lenient_imports" mapstructure:"lenient_imports" toml:"lenient_imports"`
		LogLevel        LogLevel `json:"log_level" mapstructure:"log_level" toml:"log_level"`
	}

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidModeError is returned when a Mode value is not recognized.
	InvalidModeError struct {
		Value Mode
	}

	// InvalidConfigError collects every field error of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no project file exists.
func DefaultConfig() *Config {
	return &Config{
		SrcDir:          "src",
		OptDir:          "opt",
		LibDir:          "lib",
		AssetsDir:       "assets",
		SrcIgnore:       []string{"**/__pycache__/**", "**/test_*.py"},
		AssetsIgnore:    []string{},
		OutputFile:      "build/calcpack.ods",
		DebugFile:       "build/calcpack-debug.ods",
		InitFile:        "build/calcpack-new.ods",
		Marker:          "# calcpack:",
		Mode:            ModeUpdate,
		ExportFunctions: true,
		LogLevel:        LogLevelInfo,
	}
}

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Slog converts the level; unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (m Mode) String() string { return string(m) }

// IsValid returns whether the Mode is one of the defined modes,
// and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeUpdate, ModeDebug, ModeInit:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m}}
	}
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q (valid: update, debug, init)", e.Value)
}

func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// IsValid checks the fields that the schema cannot see, such as values
// injected from the environment after the file was validated.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.SrcDir) == "" {
		errs = append(errs, errors.New("src_dir must not be empty"))
	}
	if strings.TrimSpace(c.OutputFile) == "" {
		errs = append(errs, errors.New("output_file must not be empty"))
	}
	if !strings.HasPrefix(c.Marker, "#") {
		errs = append(errs, fmt.Errorf("marker %q must start with '#'", c.Marker))
	}
	if valid, fieldErrs := c.Mode.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap exposes ErrInvalidConfig and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Layout resolves the configured directories against root.
// Relative entry hints are kept as given.
func (c *Config) Layout(root string) project.Layout {
	return project.Layout{
		SrcDir:       resolve(root, c.SrcDir),
		OptDir:       resolve(root, c.OptDir),
		LibDir:       resolve(root, c.LibDir),
		AssetsDir:    resolve(root, c.AssetsDir),
		SrcIgnore:    c.SrcIgnore,
		AssetsIgnore: c.AssetsIgnore,
		EntryHint:    c.EntryHint,
	}
}

// Path resolves a configured file path against root. Empty stays empty.
func (c *Config) Path(root, p string) string {
	return resolve(root, p)
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
