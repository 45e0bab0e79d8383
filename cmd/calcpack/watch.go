// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/calcpack/calcpack/internal/watch"
	"github.com/calcpack/calcpack/pkg/pipeline"
)

// runWatchMode builds once, then rebuilds every time a script root, the
// project file or the base document changes. It blocks until ctx is done.
// Failed builds are reported and the watcher keeps running.
func runWatchMode(ctx context.Context, app *App, pc *projectContext, req pipeline.Request) error {
	rebuild := func(ctx context.Context) {
		rep, err := app.Builder.Build(ctx, req)
		if err != nil {
			renderError(app.stderr, buildError(err, req), false)
			return
		}
		renderSummary(app.stdout, pc.root, req, rep)
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: initial build\n", CmdStyle.Render("→"))
	rebuild(ctx)

	w, err := watch.New(watchConfig(pc, req, func(ctx context.Context, changed []string) error {
		fmt.Fprintf(app.stdout, "\n%s Detected %d change(s), rebuilding...\n", CmdStyle.Render("→"), len(changed))
		rebuild(ctx)
		fmt.Fprintf(app.stdout, "%s Watching for changes...\n", CmdStyle.Render("→"))
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Fprintf(app.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// watchConfig watches the script and asset roots plus the project file and
// base document. The output document and its temporary files are ignored
// when they lie inside a root.
func watchConfig(pc *projectContext, req pipeline.Request, onChange func(context.Context, []string) error) watch.Config {
	roots := []string{req.Layout.SrcDir, req.Layout.OptDir, req.Layout.LibDir, req.Layout.AssetsDir}
	roots = nonEmpty(roots)

	var files []string
	if pc.source != "" {
		files = append(files, pc.source)
	}
	if req.BasePath != "" && req.BasePath != req.OutputPath {
		files = append(files, req.BasePath)
	}

	var ignore []string
	for _, root := range roots {
		rel, err := filepath.Rel(root, req.OutputPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		ignore = append(ignore, rel, path.Join(path.Dir(rel), "."+path.Base(rel)+".*.tmp"))
	}

	return watch.Config{
		Roots:    roots,
		Files:    files,
		Ignore:   ignore,
		OnChange: onChange,
		Logger:   pc.logger,
	}
}

func nonEmpty(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
