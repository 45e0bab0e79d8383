// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// GenerateCUE generates a commented CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// calcpack project configuration\n\n")

	sb.WriteString("// Script roots, relative to this file.\n")
	fmt.Fprintf(&sb, "src_dir:    %q\n", cfg.SrcDir)
	fmt.Fprintf(&sb, "opt_dir:    %q\n", cfg.OptDir)
	fmt.Fprintf(&sb, "lib_dir:    %q\n", cfg.LibDir)
	fmt.Fprintf(&sb, "assets_dir: %q\n", cfg.AssetsDir)

	sb.WriteString("\n// Doublestar globs relative to the root they filter.\n")
	writeCUEList(&sb, "src_ignore", cfg.SrcIgnore)
	writeCUEList(&sb, "assets_ignore", cfg.AssetsIgnore)

	sb.WriteString("\n// Documents.\n")
	if cfg.BaseFile != "" {
		fmt.Fprintf(&sb, "base_file:   %q\n", cfg.BaseFile)
	} else {
		sb.WriteString("// base_file: \"report.ods\"\n")
	}
	fmt.Fprintf(&sb, "output_file: %q\n", cfg.OutputFile)
	fmt.Fprintf(&sb, "debug_file:  %q\n", cfg.DebugFile)
	fmt.Fprintf(&sb, "init_file:   %q\n", cfg.InitFile)

	sb.WriteString("\n// Build behavior.\n")
	if cfg.EntryHint != "" {
		fmt.Fprintf(&sb, "entry_hint:       %q\n", cfg.EntryHint)
	}
	fmt.Fprintf(&sb, "marker:           %q\n", cfg.Marker)
	fmt.Fprintf(&sb, "mode:             %q\n", cfg.Mode)
	fmt.Fprintf(&sb, "export_functions: %v\n", cfg.ExportFunctions)
	fmt.Fprintf(&sb, "lenient_imports:  %v\n", cfg.LenientImports)
	fmt.Fprintf(&sb, "log_level:        %q\n", cfg.LogLevel)

	return sb.String()
}

func writeCUEList(sb *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s: []\n", key)
		return
	}
	fmt.Fprintf(sb, "%s: [\n", key)
	for _, item := range items {
		fmt.Fprintf(sb, "\t%q,\n", item)
	}
	sb.WriteString("]\n")
}

// EncodeTOML renders the configuration as a calcpack.toml document.
func EncodeTOML(cfg *Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return out, nil
}
