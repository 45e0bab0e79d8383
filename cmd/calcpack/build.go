// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/calcpack/calcpack/internal/config"
	"github.com/calcpack/calcpack/pkg/pipeline"
	"github.com/calcpack/calcpack/pkg/trigger"
	"github.com/calcpack/calcpack/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sourceDateEpochEnv is the reproducible-builds variable used when
// --timestamp is not given.
const sourceDateEpochEnv = "SOURCE_DATE_EPOCH"

// buildFlagValues holds the flags shared by build, debug and init.
type buildFlagValues struct {
	base      string
	output    string
	mode      string
	timestamp string
	watch     bool
}

func newBuildCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Pack the project scripts into a spreadsheet",
		Long: `Pack the project scripts into a spreadsheet.

The mode decides which document is written and whether buttons are generated:
  update  place the scripts in the base document (default)
  debug   write a copy with one button per exported function
  init    write a new spreadsheet with buttons, ignoring the base document`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, app, rootFlags, flags, "")
		},
	}
	addBuildFlags(cmd, flags, true)
	cmd.Flags().StringVar(&flags.mode, "mode", "", "build mode: update, debug or init (default from the project file)")
	return cmd
}

func newDebugCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Write a copy of the document with one button per exported function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, app, rootFlags, flags, pipeline.ModeDebug)
		},
	}
	addBuildFlags(cmd, flags, true)
	return cmd
}

func newInitCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new spreadsheet holding the scripts and their buttons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, app, rootFlags, flags, pipeline.ModeInit)
		},
	}
	addBuildFlags(cmd, flags, false)
	return cmd
}

func addBuildFlags(cmd *cobra.Command, flags *buildFlagValues, withBase bool) {
	if withBase {
		cmd.Flags().StringVar(&flags.base, "base", "", "base document (default from the project file)")
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output document (default from the project file)")
	cmd.Flags().StringVar(&flags.timestamp, "timestamp", "", "RFC 3339 modification time of rewritten entries (default $"+sourceDateEpochEnv+")")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild when the project changes")
}

// runBuild builds once, or keeps rebuilding in watch mode. An empty mode
// takes the value of --mode or the project file.
func runBuild(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *buildFlagValues, mode pipeline.Mode) error {
	ctx := cmd.Context()
	pc, err := app.loadProject(ctx, rootFlags)
	if err != nil {
		return err
	}
	if mode == "" {
		mode = pipeline.Mode(flags.mode)
	}
	req, err := newRequest(pc, mode, flags)
	if err != nil {
		return &ExitError{Code: types.ExitUsage, Err: err}
	}

	if flags.watch {
		return runWatchMode(ctx, app, pc, req)
	}

	rep, err := app.Builder.Build(ctx, req)
	if err != nil {
		return buildError(err, req)
	}
	renderSummary(app.stdout, pc.root, req, rep)
	return nil
}

// newRequest turns the project configuration and command flags into a build
// request. Relative paths are resolved against the project root.
func newRequest(pc *projectContext, mode pipeline.Mode, flags *buildFlagValues) (pipeline.Request, error) {
	cfg := pc.cfg
	if mode == "" {
		mode = pipeline.Mode(cfg.Mode)
	}
	mode, err := pipeline.ParseMode(string(mode))
	if err != nil {
		return pipeline.Request{}, err
	}

	output := flags.output
	if output == "" {
		output = defaultOutput(cfg, mode)
	}
	base := flags.base
	if base == "" {
		base = cfg.BaseFile
	}

	ts, err := parseTimestamp(flags.timestamp, os.Getenv(sourceDateEpochEnv))
	if err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{
		Layout:          cfg.Layout(pc.root),
		Mode:            mode,
		OutputPath:      cfg.Path(pc.root, output),
		Marker:          cfg.Marker,
		ExportFunctions: cfg.ExportFunctions,
		LenientImports:  cfg.LenientImports,
		Timestamp:       ts,
		TriggerLayout:   trigger.DefaultLayout(),
		Logger:          pc.logger,
	}
	if base != "" && mode != pipeline.ModeInit {
		req.BasePath = cfg.Path(pc.root, base)
	}
	return req, nil
}

func defaultOutput(cfg *config.Config, mode pipeline.Mode) string {
	switch mode {
	case pipeline.ModeDebug:
		return cfg.DebugFile
	case pipeline.ModeInit:
		return cfg.InitFile
	default:
		return cfg.OutputFile
	}
}

// parseTimestamp reads the --timestamp flag, falling back to a
// SOURCE_DATE_EPOCH value. Both empty yields the zero time.
func parseTimestamp(flag, epoch string) (time.Time, error) {
	if flag != "" {
		ts, err := time.Parse(time.RFC3339, flag)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --timestamp %q: %w", flag, err)
		}
		return ts.UTC(), nil
	}
	epoch = strings.TrimSpace(epoch)
	if epoch == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", sourceDateEpochEnv, epoch, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// renderSummary prints what a build wrote.
func renderSummary(w io.Writer, root string, req pipeline.Request, rep *pipeline.Report) {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, summaryLabelStyle.Render(label), value)
	}
	triggers := "none"
	if rep.Injected {
		triggers = strconv.Itoa(len(rep.Triggers))
	}
	rows := []string{
		row("mode", string(req.Mode)),
		row("entry", rep.Entry),
		row("units", strings.Join(rep.Units, " ")),
		row("scripts", strconv.Itoa(len(rep.Scripts))),
		row("assets", strconv.Itoa(len(rep.Assets))),
		row("buttons", triggers),
		row("output", CmdStyle.Render(displayPath(root, rep.Output))),
	}

	fmt.Fprintf(w, "%s Built %s\n", SuccessStyle.Render("✓"), TitleStyle.Render(filepath.Base(rep.Output)))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// displayPath shortens paths inside the project root.
func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
