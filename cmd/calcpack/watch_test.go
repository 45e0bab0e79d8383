// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/calcpack/calcpack/pkg/pipeline"
	"github.com/calcpack/calcpack/pkg/project"

	"github.com/google/go-cmp/cmp"
)

func TestWatchConfig(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work/proj")
	abs := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }

	pc := testProject(root)
	pc.source = abs("calcpack.cue")

	tests := []struct {
		name       string
		req        pipeline.Request
		wantRoots  []string
		wantFiles  []string
		wantIgnore []string
	}{
		{
			name: "output outside roots",
			req: pipeline.Request{
				Layout:     project.Layout{SrcDir: abs("src"), LibDir: abs("lib")},
				BasePath:   abs("report.ods"),
				OutputPath: abs("build/out.ods"),
			},
			wantRoots: []string{abs("src"), abs("lib")},
			wantFiles: []string{abs("calcpack.cue"), abs("report.ods")},
		},
		{
			name: "output inside assets",
			req: pipeline.Request{
				Layout:     project.Layout{SrcDir: abs("src"), AssetsDir: abs("assets")},
				OutputPath: abs("assets/gen/out.ods"),
			},
			wantRoots:  []string{abs("src"), abs("assets")},
			wantFiles:  []string{abs("calcpack.cue")},
			wantIgnore: []string{"gen/out.ods", "gen/.out.ods.*.tmp"},
		},
		{
			name: "base rewritten in place",
			req: pipeline.Request{
				Layout:     project.Layout{SrcDir: abs("src")},
				BasePath:   abs("report.ods"),
				OutputPath: abs("report.ods"),
			},
			wantRoots: []string{abs("src")},
			wantFiles: []string{abs("calcpack.cue")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := watchConfig(pc, tt.req, nil)
			if diff := cmp.Diff(tt.wantRoots, cfg.Roots); diff != "" {
				t.Errorf("Roots mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantFiles, cfg.Files); diff != "" {
				t.Errorf("Files mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantIgnore, cfg.Ignore); diff != "" {
				t.Errorf("Ignore mismatch (-want +got):\n%s", diff)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
