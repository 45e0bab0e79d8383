// SPDX-License-Identifier: MPL-2.0

package odf

import (
	"archive/zip"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"time"
)

// templateTime stamps the entries of the generated spreadsheet.
var templateTime = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// templateEntries lists the template files in archive order.
var templateEntries = []string{MimetypePath, ManifestPath, ContentPath, "styles.xml", "meta.xml"}

//go:embed template
var templateFS embed.FS

// NewSpreadsheet returns a minimal one-sheet spreadsheet, used as the base
// document when a project has none.
func NewSpreadsheet() (*Archive, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range templateEntries {
		data, err := fs.ReadFile(templateFS, "template/"+name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: templateTime}
		if name == MimetypePath {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return OpenReader("template.ods", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
}
