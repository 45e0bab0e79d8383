// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/calcpack/calcpack/internal/config"
	"github.com/calcpack/calcpack/internal/issue"
	"github.com/calcpack/calcpack/pkg/types"

	"github.com/spf13/cobra"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// newConfigCommand creates the `calcpack config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the project file",
		Long: `Manage the project file.

The project file is calcpack.cue (preferred) or calcpack.toml in the project
directory. Every field is optional; CALCPACK_<FIELD> environment variables
override it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd, app, rootFlags, format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format: cue or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default calcpack.cue",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the project file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app, rootFlags)
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, format string) error {
	if format != formatCUE && format != formatTOML {
		return &ExitError{Code: types.ExitUsage, Err: fmt.Errorf("unknown format %q (expected cue or toml)", format)}
	}
	pc, err := app.loadProject(cmd.Context(), rootFlags)
	if err != nil {
		return err
	}

	source := SubtitleStyle.Render("(using defaults)")
	if pc.source != "" {
		source = CmdStyle.Render(pc.source)
	}
	fmt.Fprintf(app.stderr, "%s %s\n\n", TitleStyle.Render("Project file:"), source)

	if format == formatTOML {
		data, err := config.EncodeTOML(pc.cfg)
		if err != nil {
			return err
		}
		_, err = app.stdout.Write(data)
		return err
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(pc.cfg))
	return nil
}

func initConfig(app *App, rootFlags *rootFlagValues) error {
	root, err := rootFlags.root()
	if err != nil {
		return err
	}
	if existing := config.FindProjectFile(root); existing != "" {
		fmt.Fprintf(app.stdout, "%s Project file already exists: %s\n", WarningStyle.Render("!"), CmdStyle.Render(existing))
		return nil
	}
	path, err := config.CreateDefaultConfig(root)
	if err != nil {
		return issue.WrapWithOperation(err, "create project file")
	}
	fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
	return nil
}

func showConfigPath(app *App, rootFlags *rootFlagValues) error {
	if rootFlags.configPath != "" {
		fmt.Fprintln(app.stdout, rootFlags.configPath)
		return nil
	}
	root, err := rootFlags.root()
	if err != nil {
		return err
	}
	path := config.FindProjectFile(root)
	if path == "" {
		fmt.Fprintf(app.stderr, "%s no project file in %s\n", WarningStyle.Render("!"), root)
		return &ExitError{Code: types.ExitFailure}
	}
	fmt.Fprintln(app.stdout, path)
	return nil
}
