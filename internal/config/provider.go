// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific project file when set.
		ConfigFilePath string
		// ProjectDir is searched for calcpack.cue or calcpack.toml. Empty
		// means the working directory.
		ProjectDir string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// Loaded is a configuration together with the file it was read from.
	Loaded struct {
		*Config
		// Source is the project file path, or "" when only defaults apply.
		Source string
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithSource is Load that also reports which file was used.
func LoadWithSource(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	cfg, source, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Loaded{Config: cfg, Source: source}, nil
}

func (o LoadOptions) projectDir() string {
	if o.ProjectDir == "" {
		return "."
	}
	return o.ProjectDir
}
