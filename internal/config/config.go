// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calcpack/calcpack/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "calcpack"
	// ConfigFileName is the name of the project file (without extension).
	ConfigFileName = "calcpack"
	// ConfigFileExt is the extension of the CUE project file.
	ConfigFileExt = "cue"
	// TOMLFileExt is the extension of the TOML project file.
	TOMLFileExt = "toml"
	// EnvPrefix prefixes the environment variables overriding the file.
	EnvPrefix = "CALCPACK"

	// maxFileSize caps the size of a project file.
	maxFileSize = 1 << 20
)

// ErrConfigNotFound is returned when an explicitly requested file is missing.
var ErrConfigNotFound = errors.New("config file not found")

//go:embed config_schema.cue
var configSchema string

// FindProjectFile returns the project file in dir, preferring calcpack.cue
// over calcpack.toml. It returns "" when neither exists.
func FindProjectFile(dir string) string {
	for _, ext := range []string{ConfigFileExt, TOMLFileExt} {
		p := filepath.Join(dir, ConfigFileName+"."+ext)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// loadWithOptions performs option-driven config loading. It returns the
// configuration and the path of the file it came from ("" for defaults).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := opts.ConfigFilePath
	if resolvedPath != "" {
		if !fileExists(resolvedPath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'calcpack config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("%w: %s", ErrConfigNotFound, resolvedPath)).
				BuildError()
		}
	} else {
		resolvedPath = FindProjectFile(opts.projectDir())
	}

	if resolvedPath != "" {
		if err := loadFileIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid " + strings.ToUpper(formatOf(resolvedPath)) + " syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'calcpack config init' to write a documented default file").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the CALCPACK_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("src_dir", d.SrcDir)
	v.SetDefault("opt_dir", d.OptDir)
	v.SetDefault("lib_dir", d.LibDir)
	v.SetDefault("assets_dir", d.AssetsDir)
	v.SetDefault("src_ignore", d.SrcIgnore)
	v.SetDefault("assets_ignore", d.AssetsIgnore)
	v.SetDefault("base_file", d.BaseFile)
	v.SetDefault("output_file", d.OutputFile)
	v.SetDefault("debug_file", d.DebugFile)
	v.SetDefault("init_file", d.InitFile)
	v.SetDefault("entry_hint", d.EntryHint)
	v.SetDefault("marker", d.Marker)
	v.SetDefault("mode", string(d.Mode))
	v.SetDefault("export_functions", d.ExportFunctions)
	v.SetDefault("lenient_imports", d.LenientImports)
	v.SetDefault("log_level", string(d.LogLevel))
}

// loadFileIntoViper reads a project file, validates it against the #Config
// schema and merges it into v.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxFileSize)
	}

	var configMap map[string]any
	switch formatOf(path) {
	case TOMLFileExt:
		configMap, err = decodeTOML(data, path)
	default:
		configMap, err = decodeCUE(data, path)
	}
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// decodeTOML reads a TOML file through a scratch Viper instance and runs
// the result through the CUE schema.
func decodeTOML(data []byte, path string) (map[string]any, error) {
	tv := viper.New()
	tv.SetConfigType(TOMLFileExt)
	if err := tv.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	settings := tv.AllSettings()
	if err := validateMap(settings, path); err != nil {
		return nil, err
	}
	return settings, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), "."+TOMLFileExt) {
		return TOMLFileExt
	}
	return ConfigFileExt
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDefaultConfig writes a default calcpack.cue into dir unless a
// project file already exists there. It returns the path of the project file.
func CreateDefaultConfig(dir string) (string, error) {
	if existing := FindProjectFile(dir); existing != "" {
		return existing, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}
	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}
