// SPDX-License-Identifier: MPL-2.0

// Package config loads the calcpack project configuration using Viper.
//
// The project file lives at the project root and is either calcpack.cue,
// validated against the embedded CUE schema (config_schema.cue), or
// calcpack.toml, read through Viper and checked against the same schema.
// Values missing from the file fall back to DefaultConfig, and every key can
// be overridden with a CALCPACK_ environment variable.
package config
