// SPDX-License-Identifier: MPL-2.0

package odf

import (
	"archive/zip"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

const (
	// MimetypePath is the first entry of every container.
	MimetypePath = "mimetype"
	// ManifestPath holds the manifest records.
	ManifestPath = "META-INF/manifest.xml"
	// ContentPath holds the content document.
	ContentPath = "content.xml"

	mimetypePrefix = "application/vnd.oasis.opendocument."
)

type (
	// Archive is an OpenDocument container held in memory. Unmodified entries
	// keep a reference to the source zip and are copied raw on Write.
	Archive struct {
		name     string
		entries  []*entry
		index    map[string]*entry
		comment  string
		newest   time.Time
		mimetype string
		manifest *Manifest
		content  *Content
		closer   io.Closer
	}

	entry struct {
		name string
		// file is the source entry; nil once the entry is replaced or for new entries.
		file   *zip.File
		data   []byte
		method uint16
	}
)

// Open reads the container at path. The caller must Close the archive.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, &InvalidContainerError{Path: path, Reason: "not a zip archive", Err: err}
	}
	a, err := load(path, &rc.Reader)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	a.closer = rc
	return a, nil
}

// OpenReader reads a container from r. name is used in error messages.
func OpenReader(name string, r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &InvalidContainerError{Path: name, Reason: "not a zip archive", Err: err}
	}
	return load(name, zr)
}

func load(name string, zr *zip.Reader) (*Archive, error) {
	a := &Archive{
		name:    name,
		index:   make(map[string]*entry, len(zr.File)),
		comment: zr.Comment,
	}
	for _, f := range zr.File {
		if _, dup := a.index[f.Name]; dup {
			return nil, &InvalidContainerError{Path: name, Reason: fmt.Sprintf("duplicate entry %q", f.Name)}
		}
		e := &entry{name: f.Name, file: f, method: f.Method}
		a.entries = append(a.entries, e)
		a.index[f.Name] = e
		if f.Modified.After(a.newest) {
			a.newest = f.Modified
		}
	}

	mt, err := a.ReadFile(MimetypePath)
	if err != nil {
		return nil, &InvalidContainerError{Path: name, Reason: "missing mimetype", Err: err}
	}
	a.mimetype = strings.TrimSpace(string(mt))
	if !strings.HasPrefix(a.mimetype, mimetypePrefix) {
		return nil, &InvalidContainerError{Path: name, Reason: fmt.Sprintf("unsupported mimetype %q", a.mimetype)}
	}

	data, err := a.ReadFile(ManifestPath)
	if err != nil {
		return nil, &InvalidContainerError{Path: name, Reason: "missing manifest", Err: err}
	}
	if a.manifest, err = parseManifest(data); err != nil {
		return nil, &InvalidContainerError{Path: name, Reason: "unreadable manifest", Err: err}
	}

	data, err = a.ReadFile(ContentPath)
	if err != nil {
		return nil, &InvalidContainerError{Path: name, Reason: "missing content document", Err: err}
	}
	if a.content, err = parseContent(data); err != nil {
		return nil, &InvalidContainerError{Path: name, Reason: "unreadable content document", Err: err}
	}
	return a, nil
}

// Close releases the source file. It is safe to call more than once.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Name returns the path or name the archive was opened from.
func (a *Archive) Name() string { return a.name }

// Mimetype returns the document media type.
func (a *Archive) Mimetype() string { return a.mimetype }

// Newest returns the newest modification time of the source entries.
func (a *Archive) Newest() time.Time { return a.newest }

// Manifest returns the manifest tree.
func (a *Archive) Manifest() *Manifest { return a.manifest }

// Content returns the content document tree.
func (a *Archive) Content() *Content { return a.content }

// Names returns the entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Has reports whether the entry exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// ReadFile returns the uncompressed content of an entry.
func (a *Archive) ReadFile(name string) (_ []byte, err error) {
	e, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	if e.file == nil {
		return slices.Clone(e.data), nil
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", name, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return io.ReadAll(rc)
}

// Put replaces an entry or appends a new deflated one.
// The manifest is not updated.
func (a *Archive) Put(name string, data []byte) {
	if e, ok := a.index[name]; ok {
		e.file = nil
		e.data = slices.Clone(data)
		return
	}
	e := &entry{name: name, data: slices.Clone(data), method: zip.Deflate}
	a.entries = append(a.entries, e)
	a.index[name] = e
}

// Remove deletes an entry. The manifest is not updated.
func (a *Archive) Remove(name string) bool {
	if _, ok := a.index[name]; !ok {
		return false
	}
	delete(a.index, name)
	a.entries = slices.DeleteFunc(a.entries, func(e *entry) bool { return e.name == name })
	return true
}

// RemovePrefix deletes every entry whose name starts with prefix and returns their names.
func (a *Archive) RemovePrefix(prefix string) []string {
	var removed []string
	a.entries = slices.DeleteFunc(a.entries, func(e *entry) bool {
		if !strings.HasPrefix(e.name, prefix) {
			return false
		}
		removed = append(removed, e.name)
		delete(a.index, e.name)
		return true
	})
	return removed
}

// Modified reports whether the entry will be rewritten rather than copied raw.
func (a *Archive) Modified(name string) bool {
	e, ok := a.index[name]
	return ok && e.file == nil
}
