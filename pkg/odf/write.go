// SPDX-License-Identifier: MPL-2.0

package odf

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// fallbackTimestamp stamps rewritten entries when the source carries no usable time.
var fallbackTimestamp = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteOptions configures Archive.Write.
type WriteOptions struct {
	// Timestamp stamps rewritten and new entries. Zero selects the newest
	// timestamp of the source entries.
	Timestamp time.Time
}

// Timestamp returns the modification time Write will use for opts.
func (a *Archive) Timestamp(opts WriteOptions) time.Time {
	switch {
	case !opts.Timestamp.IsZero():
		return opts.Timestamp.UTC()
	case !a.newest.IsZero() && a.newest.After(fallbackTimestamp):
		return a.newest.UTC()
	default:
		return fallbackTimestamp
	}
}

// Write serializes the archive: mimetype first and stored, untouched entries
// copied raw, modified entries compressed and stamped with the write timestamp.
func (a *Archive) Write(w io.Writer, opts WriteOptions) (err error) {
	if err := a.flush(); err != nil {
		return err
	}
	ts := a.Timestamp(opts)

	zw := zip.NewWriter(w)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if a.comment != "" {
		if err := zw.SetComment(a.comment); err != nil {
			return err
		}
	}

	mt, ok := a.index[MimetypePath]
	if !ok {
		return &ArchiveIntegrityError{Path: MimetypePath, Reason: "missing"}
	}
	if mt.file != nil && mt.file.Method != zip.Store {
		// Readers sniff the first bytes of the archive; mimetype must be stored.
		data, err := a.ReadFile(MimetypePath)
		if err != nil {
			return err
		}
		mt.file, mt.data = nil, data
	}
	mt.method = zip.Store
	if err := writeEntry(zw, mt, ts); err != nil {
		return err
	}

	for _, e := range a.entries {
		if e.name == MimetypePath {
			continue
		}
		if err := writeEntry(zw, e, ts); err != nil {
			return err
		}
	}
	return nil
}

// flush stores the manifest and content trees into their entries when they changed.
func (a *Archive) flush() error {
	data, changed, err := a.manifest.bytes()
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}
	if changed {
		a.Put(ManifestPath, data)
	}
	data, changed, err = a.content.bytes()
	if err != nil {
		return fmt.Errorf("serialize content document: %w", err)
	}
	if changed {
		a.Put(ContentPath, data)
	}
	return nil
}

func writeEntry(zw *zip.Writer, e *entry, ts time.Time) error {
	if e.file != nil {
		hdr := e.file.FileHeader
		w, err := zw.CreateRaw(&hdr)
		if err != nil {
			return fmt.Errorf("copy entry %s: %w", e.name, err)
		}
		r, err := e.file.OpenRaw()
		if err != nil {
			return fmt.Errorf("copy entry %s: %w", e.name, err)
		}
		if _, err := io.Copy(w, r); err != nil {
			return fmt.Errorf("copy entry %s: %w", e.name, err)
		}
		return nil
	}

	hdr := &zip.FileHeader{Name: e.name, Method: e.method, Modified: ts}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write entry %s: %w", e.name, err)
	}
	if _, err := w.Write(e.data); err != nil {
		return fmt.Errorf("write entry %s: %w", e.name, err)
	}
	return nil
}
