// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/calcpack/calcpack/internal/config"
	"github.com/calcpack/calcpack/internal/issue"
	"github.com/calcpack/calcpack/pkg/assemble"
	"github.com/calcpack/calcpack/pkg/directive"
	"github.com/calcpack/calcpack/pkg/embedgraph"
	"github.com/calcpack/calcpack/pkg/odf"
	"github.com/calcpack/calcpack/pkg/pipeline"
	"github.com/calcpack/calcpack/pkg/project"
	"github.com/calcpack/calcpack/pkg/types"
)

// failureKind maps a sentinel error to its catalog entry and exit code.
type failureKind struct {
	sentinel error
	id       issue.Id
	code     types.ExitCode
}

// failureKinds is checked in order; the first match wins.
var failureKinds = []failureKind{
	{directive.ErrMalformedDirective, issue.MalformedDirectiveId, types.ExitProject},
	{embedgraph.ErrUnknownAsset, issue.UnknownAssetId, types.ExitProject},
	{embedgraph.ErrCyclicEmbed, issue.CyclicEmbedId, types.ExitProject},
	{embedgraph.ErrMissingEntry, issue.MissingEntryId, types.ExitProject},
	{embedgraph.ErrAmbiguousEntry, issue.AmbiguousEntryId, types.ExitProject},
	{embedgraph.ErrDanglingImport, issue.DanglingImportId, types.ExitProject},
	{assemble.ErrNameCollision, issue.NameCollisionId, types.ExitProject},
	{project.ErrNoScriptRoot, issue.ScriptRootNotFoundId, types.ExitUsage},
	{odf.ErrInvalidContainer, issue.InvalidContainerId, types.ExitDocument},
	{odf.ErrArchiveIntegrity, issue.ArchiveIntegrityId, types.ExitDocument},
	{pipeline.ErrNoBaseDocument, issue.NoBaseDocumentId, types.ExitUsage},
	{pipeline.ErrNoOutput, 0, types.ExitUsage},
	{pipeline.ErrInvalidMode, 0, types.ExitUsage},
	{config.ErrInvalidConfig, issue.ConfigLoadFailedId, types.ExitUsage},
	{config.ErrConfigNotFound, issue.ConfigLoadFailedId, types.ExitUsage},
	{os.ErrPermission, issue.PermissionDeniedId, types.ExitDocument},
}

// classifyError returns the catalog entry and exit code for err.
// Unknown failures map to (0, ExitFailure).
func classifyError(err error) (issue.Id, types.ExitCode) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		for _, k := range failureKinds {
			if k.id == ae.Issue {
				return k.id, k.code
			}
		}
	}
	for _, k := range failureKinds {
		if errors.Is(err, k.sentinel) {
			return k.id, k.code
		}
	}
	return 0, types.ExitFailure
}

func exitCodeFor(err error) types.ExitCode {
	_, code := classifyError(err)
	return code
}

// buildError wraps a failed build into an ExitError carrying an
// ActionableError, so the user sees where it failed and what to try next.
func buildError(err error, req pipeline.Request) error {
	if err == nil {
		return nil
	}
	id, code := classifyError(err)

	resource := failureResource(err)
	if resource == "" {
		resource = req.OutputPath
	}
	ectx := issue.NewErrorContext().
		WithOperation("build " + string(req.Mode) + " document").
		WithResource(resource).
		WithSuggestions(suggestionsFor(id, req)...).
		Wrap(err)
	if id != 0 {
		ectx = ectx.WithIssue(id)
	}
	return &ExitError{Code: code, Err: ectx.BuildError()}
}

// failureResource names the script or document the failure points at.
func failureResource(err error) string {
	var (
		malformed *directive.MalformedDirectiveError
		unknown   *embedgraph.UnknownAssetError
		dangling  *embedgraph.DanglingImportError
		cycle     *embedgraph.CyclicEmbedError
		ambiguous *embedgraph.AmbiguousEntryError
		collision *assemble.NameCollisionError
		container *odf.InvalidContainerError
		integrity *odf.ArchiveIntegrityError
	)
	switch {
	case errors.As(err, &malformed):
		return malformed.File
	case errors.As(err, &unknown):
		return unknown.Unit
	case errors.As(err, &dangling):
		return dangling.Unit
	case errors.As(err, &cycle) && len(cycle.Cycle) > 0:
		return cycle.Cycle[0]
	case errors.As(err, &ambiguous):
		return strings.Join(ambiguous.Units, ", ")
	case errors.As(err, &collision):
		return strings.Join(collision.Units, ", ")
	case errors.As(err, &container):
		return container.Path
	case errors.As(err, &integrity):
		return integrity.Path
	default:
		return ""
	}
}

func suggestionsFor(id issue.Id, req pipeline.Request) []string {
	switch id {
	case issue.MalformedDirectiveId:
		return []string{
			"Check the directive grammar with 'calcpack --help'",
			"Prefix comments that are not directives differently than " + markerOf(req),
		}
	case issue.UnknownAssetId:
		return []string{
			"Check the module name against the files under " + req.Layout.SrcDir + " and " + req.Layout.LibDir,
			"Module names use dots for directories and omit the .py suffix",
		}
	case issue.CyclicEmbedId:
		return []string{"Move the shared definitions into a third script embedded by both"}
	case issue.MissingEntryId:
		return []string{
			"Add '" + markerOf(req) + " entry' to the script whose functions get buttons",
			"Or set entry_hint in the project file",
		}
	case issue.AmbiguousEntryId:
		return []string{"Keep the entry directive in exactly one script"}
	case issue.DanglingImportId:
		return []string{
			"Embed the imported script as well",
			"Or set lenient_imports: true in the project file",
		}
	case issue.NameCollisionId:
		return []string{"Rename one of the scripts or library modules"}
	case issue.InvalidContainerId:
		return []string{"Open and re-save the base document in the office suite"}
	case issue.ArchiveIntegrityId:
		return []string{"Re-run with --verbose and report the failure"}
	case issue.NoBaseDocumentId:
		return []string{
			"Pass --base or set base_file in the project file",
			"Or run 'calcpack init' to start from a blank spreadsheet",
		}
	case issue.ScriptRootNotFoundId:
		return []string{
			"Create " + req.Layout.SrcDir + " or set src_dir in the project file",
			"Run calcpack from the project directory or pass --project-dir",
		}
	case issue.PermissionDeniedId:
		return []string{"Check that the output directory is writable and the document is not open elsewhere"}
	default:
		return nil
	}
}

func markerOf(req pipeline.Request) string {
	if req.Marker != "" {
		return req.Marker
	}
	return directive.DefaultMarker
}
