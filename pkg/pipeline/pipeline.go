// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs a complete build: scan the project, resolve the embed
// graph, assemble the units, rewrite the document and, depending on the
// mode, inject trigger buttons.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calcpack/calcpack/pkg/assemble"
	"github.com/calcpack/calcpack/pkg/directive"
	"github.com/calcpack/calcpack/pkg/embedgraph"
	"github.com/calcpack/calcpack/pkg/odf"
	"github.com/calcpack/calcpack/pkg/project"
	"github.com/calcpack/calcpack/pkg/rewrite"
	"github.com/calcpack/calcpack/pkg/trigger"
)

const (
	// ModeUpdate places the scripts in an existing document. Buttons are
	// regenerated only if the document already carries generated ones.
	ModeUpdate Mode = "update"
	// ModeDebug writes a document with one button per exported callable.
	ModeDebug Mode = "debug"
	// ModeInit writes a new spreadsheet with buttons, ignoring any base document.
	ModeInit Mode = "init"
)

var (
	// ErrNoBaseDocument is returned when update mode has no base document.
	ErrNoBaseDocument = errors.New("update mode requires a base document")
	// ErrNoOutput is returned when no output path is given.
	ErrNoOutput = errors.New("no output path")
	// ErrInvalidMode is returned for an unknown mode.
	ErrInvalidMode = errors.New("invalid build mode")
)

type (
	// Mode selects the document and trigger policy of a build.
	Mode string

	// Request describes one build.
	Request struct {
		Layout     project.Layout
		Mode       Mode
		BasePath   string
		OutputPath string
		// Marker overrides the directive marker.
		Marker          string
		ExportFunctions bool
		LenientImports  bool
		// Timestamp stamps rewritten entries; zero keeps the base document's newest timestamp.
		Timestamp     time.Time
		TriggerLayout trigger.Layout
		Logger        *slog.Logger
	}

	// Report describes a successful build.
	Report struct {
		Stages []Stage
		// Units are the embed graph node IDs in embedding order.
		Units    []string
		Entry    string
		Scripts  []string
		Assets   []string
		Triggers []trigger.Trigger
		Injected bool
		Output   string
	}

	// FailedError is returned when a stage fails. No output is written.
	FailedError struct {
		// Stage is the stage that could not be reached.
		Stage Stage
		// Passed lists the stages completed before the failure.
		Passed []Stage
		Err    error
	}
)

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage.action(), e.Err)
}

// Unwrap returns the stage error.
func (e *FailedError) Unwrap() error { return e.Err }

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeUpdate, ModeDebug, ModeInit:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (expected update, debug or init)", ErrInvalidMode, s)
	}
}

func (r Request) validate() error {
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if r.OutputPath == "" {
		return ErrNoOutput
	}
	if r.Mode == ModeUpdate && r.BasePath == "" {
		return ErrNoBaseDocument
	}
	return nil
}

// basePath returns the base document to load; empty selects the blank template.
func (r Request) basePath() string {
	if r.Mode == ModeInit {
		return ""
	}
	return r.BasePath
}

// injects reports whether buttons are generated in a.
func (r Request) injects(a *odf.Archive) bool {
	switch r.Mode {
	case ModeDebug, ModeInit:
		return true
	case ModeUpdate:
		return trigger.HasMarker(a)
	default:
		return false
	}
}

// Run executes the build described by req.
func Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &machine{}
	fail := func(stage Stage, err error) (*Report, error) {
		passed := m.stages()
		m.fail()
		logger.Debug("build failed", "stage", stage.action(), "error", err)
		return nil, &FailedError{Stage: stage, Passed: passed, Err: err}
	}

	scanner := directive.NewScanner(directive.ScanOptions{Marker: req.Marker})
	resolver := embedgraph.NewResolver(req.Layout, scanner, embedgraph.Options{
		LenientImports: req.LenientImports,
		Logger:         logger,
	})

	units, err := resolver.ScanProject(ctx)
	if err != nil {
		return fail(StageScanned, err)
	}
	if err := m.advance(StageScanned); err != nil {
		return fail(StageScanned, err)
	}
	logger.Debug("project scanned", "units", len(units))

	g, err := resolver.Resolve(ctx, units)
	if err != nil {
		return fail(StageResolved, err)
	}
	if err := m.advance(StageResolved); err != nil {
		return fail(StageResolved, err)
	}

	proj, err := assemble.Assemble(g, assemble.Options{ExportFunctions: req.ExportFunctions, Logger: logger})
	if err != nil {
		return fail(StageAssembled, err)
	}
	if err := m.advance(StageAssembled); err != nil {
		return fail(StageAssembled, err)
	}

	assets, err := req.Layout.Assets()
	if err != nil {
		return fail(StageRewritten, err)
	}

	rep := &Report{Units: g.IDs(), Entry: g.Entry().ID}
	failing := StageRewritten
	inject := func(_ context.Context, a *odf.Archive) error {
		if err := m.advance(StageRewritten); err != nil {
			return err
		}
		if !req.injects(a) {
			return nil
		}
		failing = StageInjected
		triggers, err := trigger.Inject(a, proj.Entry(), trigger.Options{Layout: req.TriggerLayout, Logger: logger})
		if err != nil {
			return err
		}
		if err := m.advance(StageInjected); err != nil {
			return err
		}
		failing = StageRewritten
		rep.Triggers = triggers
		rep.Injected = true
		return nil
	}

	rw := rewrite.New(rewrite.Options{Timestamp: req.Timestamp, Assets: assets, Logger: logger})
	res, err := rw.Apply(ctx, req.basePath(), req.OutputPath, proj, inject)
	if err != nil {
		return fail(failing, err)
	}

	rep.Stages = m.stages()
	rep.Scripts = res.Scripts
	rep.Assets = res.Assets
	rep.Output = res.Output
	logger.Info("build complete", "mode", req.Mode, "units", len(rep.Units), "triggers", len(rep.Triggers), "output", rep.Output)
	return rep, nil
}
