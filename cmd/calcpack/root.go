// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/calcpack/calcpack/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every command.
type rootFlagValues struct {
	verbose    bool
	configPath string
	projectDir string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "calcpack",
		Short: "Pack Python scripts into an OpenDocument spreadsheet",
		Long: TitleStyle.Render("calcpack") + SubtitleStyle.Render(" - Pack Python scripts into an OpenDocument spreadsheet") + `

calcpack reads the Python scripts of a project, follows the directives
written in their comments, and stores them inside a spreadsheet so the
office suite can run them as document macros.

` + SubtitleStyle.Render("Directives:") + `
  # calcpack: entry                 this script's functions get buttons
  # calcpack: embed script helpers  pack src/helpers.py before this one
  # calcpack: embed lib tables      pack lib/tables.py before this one
  # calcpack: import mymod as m     import a packed script
  # calcpack: use mymod::fn as f    import one object of a packed script

` + SubtitleStyle.Render("Examples:") + `
  calcpack build --base report.ods   Pack the scripts into report.ods
  calcpack debug                     Write a copy with one button per function
  calcpack init                      Start from a blank spreadsheet
  calcpack explain cyclic-embed      Explain a build error`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "project file (default is calcpack.cue or calcpack.toml in the project directory)")
	rootCmd.PersistentFlags().StringVarP(&flags.projectDir, "project-dir", "C", "", "run as if calcpack was started in this directory")

	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newDebugCommand(app, flags))
	rootCmd.AddCommand(newInitCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))
	rootCmd.AddCommand(newExplainCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command line and exits with the build's exit code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
			renderError(w, err, verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// renderError prints err, its suggestions and, in verbose mode, the
// catalog page of the failure kind.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	if !verbose {
		return
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue == 0 {
		return
	}
	if entry := issue.Get(ae.Issue); entry != nil {
		if rendered, renderErr := entry.Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
