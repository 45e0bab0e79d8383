// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/calcpack/calcpack/internal/config"
	"github.com/calcpack/calcpack/pkg/pipeline"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives it and delegates through its interfaces.
	App struct {
		Config  ConfigProvider
		Builder Builder
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Builder Builder
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// Builder runs one build.
	Builder interface {
		Build(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
	}

	// projectContext is a loaded project: its root directory, configuration
	// and the logger configured from it.
	projectContext struct {
		root   string
		source string
		cfg    *config.Config
		logger *slog.Logger
	}

	pipelineBuilder struct{}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Builder == nil {
		deps.Builder = pipelineBuilder{}
	}
	return &App{
		Config:  deps.Config,
		Builder: deps.Builder,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// Build runs the pipeline.
func (pipelineBuilder) Build(ctx context.Context, req pipeline.Request) (*pipeline.Report, error) {
	return pipeline.Run(ctx, req)
}

// loadProject resolves the project directory and loads its configuration.
func (a *App) loadProject(ctx context.Context, flags *rootFlagValues) (*projectContext, error) {
	root, err := flags.root()
	if err != nil {
		return nil, err
	}
	opts := config.LoadOptions{ConfigFilePath: flags.configPath, ProjectDir: root}
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		return nil, &ExitError{Code: exitCodeFor(err), Err: err}
	}

	source := flags.configPath
	if source == "" {
		source = config.FindProjectFile(root)
	}

	level := cfg.LogLevel.Slog()
	if flags.verbose {
		level = slog.LevelDebug
	}
	return &projectContext{
		root:   root,
		source: source,
		cfg:    cfg,
		logger: newLogger(a.stderr, level),
	}, nil
}

// root returns the absolute project directory.
func (f *rootFlagValues) root() (string, error) {
	dir := f.projectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory: %w", err)
	}
	return abs, nil
}

// newLogger returns a slog.Logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "calcpack",
		Level:  log.Level(level),
	})
	return slog.New(handler)
}
