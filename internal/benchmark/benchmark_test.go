// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calcpack/calcpack/internal/config"
	"github.com/calcpack/calcpack/internal/testutil"
	"github.com/calcpack/calcpack/pkg/directive"
	"github.com/calcpack/calcpack/pkg/embedgraph"
	"github.com/calcpack/calcpack/pkg/odf"
	"github.com/calcpack/calcpack/pkg/pipeline"
	"github.com/calcpack/calcpack/pkg/project"
	"github.com/calcpack/calcpack/pkg/trigger"
)

// sampleProjectFile is a representative calcpack.cue.
const sampleProjectFile = `
src_dir:    "src"
lib_dir:    "lib"
assets_dir: "assets"
src_ignore: ["**/__pycache__/**", "**/test_*.py"]
base_file:   "report.ods"
output_file: "build/report.ods"
marker:           "# calcpack:"
mode:             "update"
export_functions: true
log_level:        "warn"
`

// sampleProject returns a project of n helper scripts embedded by one
// entry script, plus a vendored library.
func sampleProject(n int) map[string]string {
	var entry strings.Builder
	entry.WriteString("# calcpack: entry\n# calcpack: embed lib commons\n# calcpack: import lib commons\n")
	files := map[string]string{
		"lib/commons.py":  "def shared():\n    pass\n",
		"assets/logo.png": "png",
	}
	for i := range n {
		name := fmt.Sprintf("helper%02d", i)
		fmt.Fprintf(&entry, "# calcpack: embed script %s\n# calcpack: import %s\n", name, name)
		files["src/"+name+".py"] = fmt.Sprintf(
			"import math\n\n\ndef %s_sum(*args):\n    return math.fsum(args)\n\n\ndef _%s_private():\n    pass\n", name, name)
	}
	entry.WriteString("\n\ndef run(*args):\n    commons.shared()\n\n\ndef report(*args):\n    pass\n")
	files["src/main.py"] = entry.String()
	return files
}

func layoutOf(root string) project.Layout {
	return project.Layout{
		SrcDir:    filepath.Join(root, "src"),
		LibDir:    filepath.Join(root, "lib"),
		AssetsDir: filepath.Join(root, "assets"),
	}
}

// BenchmarkConfigLoad benchmarks project file loading and schema validation.
func BenchmarkConfigLoad(b *testing.B) {
	root := testutil.WriteTree(b, map[string]string{"calcpack.cue": sampleProjectFile})
	provider := config.NewProvider()

	b.ResetTimer()
	for b.Loop() {
		if _, err := provider.Load(b.Context(), config.LoadOptions{ProjectDir: root}); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

// BenchmarkScan benchmarks directive scanning, which includes the tree-sitter
// parse for exported callables.
func BenchmarkScan(b *testing.B) {
	source := []byte(sampleProject(20)["src/main.py"])
	scanner := directive.NewScanner(directive.ScanOptions{})

	b.ResetTimer()
	for b.Loop() {
		if _, err := scanner.Scan(b.Context(), "main", "src/main.py", source); err != nil {
			b.Fatalf("Scan failed: %v", err)
		}
	}
}

// BenchmarkResolve benchmarks scanning a project and resolving its embed graph.
func BenchmarkResolve(b *testing.B) {
	root := testutil.WriteTree(b, sampleProject(20))
	resolver := embedgraph.NewResolver(layoutOf(root), directive.NewScanner(directive.ScanOptions{}), embedgraph.Options{
		Logger: testutil.DiscardLogger(),
	})

	b.ResetTimer()
	for b.Loop() {
		units, err := resolver.ScanProject(b.Context())
		if err != nil {
			b.Fatalf("ScanProject failed: %v", err)
		}
		if _, err := resolver.Resolve(b.Context(), units); err != nil {
			b.Fatalf("Resolve failed: %v", err)
		}
	}
}

// BenchmarkArchiveWrite benchmarks serializing the blank spreadsheet.
func BenchmarkArchiveWrite(b *testing.B) {
	a, err := odf.NewSpreadsheet()
	if err != nil {
		b.Fatalf("NewSpreadsheet failed: %v", err)
	}
	b.Cleanup(testutil.DeferClose(b, a))

	b.ResetTimer()
	for b.Loop() {
		if err := a.Write(io.Discard, odf.WriteOptions{}); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

// BenchmarkFullPipeline benchmarks a complete debug build.
func BenchmarkFullPipeline(b *testing.B) {
	root := testutil.WriteTree(b, sampleProject(20))
	req := pipeline.Request{
		Layout:          layoutOf(root),
		Mode:            pipeline.ModeDebug,
		OutputPath:      filepath.Join(root, "build", "debug.ods"),
		ExportFunctions: true,
		TriggerLayout:   trigger.DefaultLayout(),
		Logger:          testutil.DiscardLogger(),
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := pipeline.Run(b.Context(), req); err != nil {
			b.Fatalf("Run failed: %v", err)
		}
	}
}
