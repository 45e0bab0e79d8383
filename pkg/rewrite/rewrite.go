// SPDX-License-Identifier: MPL-2.0

// Package rewrite places an assembled project into a copy of a base
// OpenDocument container and writes the result atomically.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/calcpack/calcpack/pkg/assemble"
	"github.com/calcpack/calcpack/pkg/odf"
	"github.com/calcpack/calcpack/pkg/project"
)

// AssetsPrefix is the container prefix reserved for copied assets.
const AssetsPrefix = "Assets/"

type (
	// Options configures a Rewriter.
	Options struct {
		// Timestamp stamps rewritten entries; zero keeps the newest base timestamp.
		Timestamp time.Time
		// Assets are copied under AssetsPrefix.
		Assets []project.Asset
		Logger *slog.Logger
	}

	// Hook edits the archive after the scripts are placed and before it is verified and written.
	Hook func(ctx context.Context, a *odf.Archive) error

	// Rewriter applies assembled projects to base containers.
	Rewriter struct {
		opts   Options
		logger *slog.Logger
	}

	// Result summarizes one rewrite.
	Result struct {
		Output string
		// Scripts are the script entries written, in embedding order.
		Scripts []string
		Assets  []string
		// Removed are the reserved entries dropped from the base.
		Removed   []string
		Timestamp time.Time
	}
)

// New creates a Rewriter.
func New(opts Options) *Rewriter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{opts: opts, logger: logger}
}

// Load opens basePath, or generates a blank spreadsheet when basePath is empty.
func Load(basePath string) (*odf.Archive, error) {
	if basePath == "" {
		return odf.NewSpreadsheet()
	}
	return odf.Open(basePath)
}

// Apply loads the base container, places the project, runs the hooks and
// writes the output. No output is left behind on failure.
func (r *Rewriter) Apply(ctx context.Context, basePath, outputPath string, p *assemble.Project, hooks ...Hook) (_ *Result, err error) {
	a, err := Load(basePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	res, err := r.Rewrite(a, p)
	if err != nil {
		return nil, err
	}
	for _, hook := range hooks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := hook(ctx, a); err != nil {
			return nil, err
		}
	}

	opts := odf.WriteOptions{Timestamp: r.opts.Timestamp}
	if err := Commit(a, outputPath, opts); err != nil {
		return nil, err
	}
	res.Output = outputPath
	res.Timestamp = a.Timestamp(opts)
	r.logger.Info("document written", "output", outputPath, "scripts", len(res.Scripts), "assets", len(res.Assets))
	return res, nil
}

// Rewrite replaces the reserved script and asset entries of a with the
// project units and configured assets, keeping the manifest and the script
// declarations of the content document in step.
func (r *Rewriter) Rewrite(a *odf.Archive, p *assemble.Project) (*Result, error) {
	res := &Result{}
	m := a.Manifest()

	for _, prefix := range []string{odf.PythonPrefix, AssetsPrefix} {
		res.Removed = append(res.Removed, a.RemovePrefix(prefix)...)
		m.RemovePrefix(prefix)
	}
	if !holdsScripts(a, m) {
		m.Remove(odf.ScriptsPrefix)
	}
	if len(res.Removed) > 0 {
		r.logger.Debug("reserved entries removed", "count", len(res.Removed))
	}

	if len(p.Units) > 0 {
		m.Set(odf.ScriptsPrefix, odf.MediaTypeDirectory)
	}
	dirs := map[string]bool{odf.ScriptsPrefix: true}
	for _, u := range p.Units {
		addDirs(m, dirs, u.Path, odf.MediaTypeDirectory)
		a.Put(u.Path, u.Text)
		m.Set(u.Path, odf.MediaTypeScript)
		res.Scripts = append(res.Scripts, u.Path)
	}
	a.Content().SetScriptModules(res.Scripts)

	for _, asset := range r.opts.Assets {
		data, err := os.ReadFile(asset.Path)
		if err != nil {
			return nil, fmt.Errorf("read asset %s: %w", asset.Rel, err)
		}
		name := AssetsPrefix + filepath.ToSlash(asset.Rel)
		addDirs(m, dirs, name, odf.MediaTypeDirectory)
		a.Put(name, data)
		m.Set(name, odf.MediaTypeAsset)
		res.Assets = append(res.Assets, name)
	}
	return res, nil
}

// holdsScripts reports whether any entry or record other than the Scripts/
// directory record itself remains under the scripts prefix.
func holdsScripts(a *odf.Archive, m *odf.Manifest) bool {
	for _, name := range a.Names() {
		if strings.HasPrefix(name, odf.ScriptsPrefix) {
			return true
		}
	}
	for _, r := range m.Records() {
		if r.Path != odf.ScriptsPrefix && strings.HasPrefix(r.Path, odf.ScriptsPrefix) {
			return true
		}
	}
	return false
}

// addDirs records every parent directory of name not recorded yet, outermost first.
func addDirs(m *odf.Manifest, seen map[string]bool, name, mediaType string) {
	var parents []string
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		parents = append(parents, dir+"/")
	}
	for i := len(parents) - 1; i >= 0; i-- {
		if seen[parents[i]] {
			continue
		}
		seen[parents[i]] = true
		m.Set(parents[i], mediaType)
	}
}

// Commit verifies a and writes it to outputPath through a temporary file in
// the same directory. The archive is closed before the rename so that the
// base may be replaced in place.
func Commit(a *odf.Archive, outputPath string, opts odf.WriteOptions) (err error) {
	if err := a.Verify(); err != nil {
		return err
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath) // Best-effort cleanup
		}
	}()

	if err := a.Write(tmp, opts); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := a.Close(); err != nil {
		return fmt.Errorf("failed to release base document: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
