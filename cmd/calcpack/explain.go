// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/calcpack/calcpack/internal/issue"
	"github.com/calcpack/calcpack/pkg/types"

	"github.com/spf13/cobra"
)

// newExplainCommand creates `calcpack explain [kind]`, which renders the
// catalog page of a build failure.
func newExplainCommand(app *App) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "explain [kind]",
		Short: "Explain a build error",
		Long: `Explain a build error.

Without an argument, list the known kinds. The kind is printed at the end of
every build error, e.g. "Run 'calcpack explain cyclic-embed' for details."`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return issue.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				listIssues(app)
				return nil
			}
			return explainIssue(app, args[0], style)
		},
	}
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style: dark, light, notty or a JSON style file")
	return cmd
}

func listIssues(app *App) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Known errors:"))
	for _, name := range issue.Names() {
		fmt.Fprintf(app.stdout, "  %s\n", CmdStyle.Render(name))
	}
}

func explainIssue(app *App, name, style string) error {
	entry := issue.Lookup(name)
	if entry == nil {
		return &ExitError{
			Code: types.ExitUsage,
			Err:  fmt.Errorf("unknown error kind %q; run 'calcpack explain' for the list", name),
		}
	}
	rendered, err := entry.Render(style)
	if err != nil {
		return issue.WrapWithOperation(err, "render help for "+entry.Name())
	}
	fmt.Fprint(app.stdout, rendered)
	return nil
}
