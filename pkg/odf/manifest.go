// SPDX-License-Identifier: MPL-2.0

package odf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	manifestEntryTag  = "manifest:file-entry"
	manifestPathAttr  = "manifest:full-path"
	manifestMediaAttr = "manifest:media-type"

	// MediaTypeScript is recorded for every embedded script.
	MediaTypeScript = "text/x-python"
	// MediaTypeDirectory is recorded for the script directories.
	MediaTypeDirectory = "application/binary"
	// MediaTypeAsset is recorded for copied asset files.
	MediaTypeAsset = "application/octet-stream"
)

type (
	// Manifest is the META-INF/manifest.xml tree.
	Manifest struct {
		doc   *etree.Document
		root  *etree.Element
		orig  []byte
		dirty bool
	}

	// Record is one manifest file entry.
	Record struct {
		Path      string
		MediaType string
	}
)

func parseManifest(data []byte) (*Manifest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "manifest" {
		return nil, fmt.Errorf("root element is not manifest:manifest")
	}
	return &Manifest{doc: doc, root: root, orig: data}, nil
}

// Records returns the file entries in document order.
func (m *Manifest) Records() []Record {
	var out []Record
	for _, el := range m.root.SelectElements(manifestEntryTag) {
		out = append(out, Record{
			Path:      el.SelectAttrValue(manifestPathAttr, ""),
			MediaType: el.SelectAttrValue(manifestMediaAttr, ""),
		})
	}
	return out
}

// MediaType returns the media type recorded for path.
func (m *Manifest) MediaType(path string) (string, bool) {
	for _, r := range m.Records() {
		if r.Path == path {
			return r.MediaType, true
		}
	}
	return "", false
}

// Set adds a record for path or updates its media type.
func (m *Manifest) Set(path, mediaType string) {
	for _, el := range m.root.SelectElements(manifestEntryTag) {
		if el.SelectAttrValue(manifestPathAttr, "") != path {
			continue
		}
		if el.SelectAttrValue(manifestMediaAttr, "") != mediaType {
			el.CreateAttr(manifestMediaAttr, mediaType)
			m.dirty = true
		}
		return
	}
	el := m.root.CreateElement(manifestEntryTag)
	el.CreateAttr(manifestPathAttr, path)
	el.CreateAttr(manifestMediaAttr, mediaType)
	m.dirty = true
}

// Remove deletes every record for path.
func (m *Manifest) Remove(path string) bool {
	return len(m.removeIf(func(p string) bool { return p == path })) > 0
}

// RemovePrefix deletes every record under prefix, including the prefix
// directory record itself, and returns the removed paths.
func (m *Manifest) RemovePrefix(prefix string) []string {
	dir := strings.TrimSuffix(prefix, "/")
	return m.removeIf(func(p string) bool {
		return strings.HasPrefix(p, prefix) || p == dir
	})
}

func (m *Manifest) removeIf(match func(string) bool) []string {
	var removed []string
	for _, el := range m.root.SelectElements(manifestEntryTag) {
		p := el.SelectAttrValue(manifestPathAttr, "")
		if match(p) {
			m.root.RemoveChild(el)
			removed = append(removed, p)
		}
	}
	if len(removed) > 0 {
		m.dirty = true
	}
	return removed
}

// bytes returns the serialized manifest and whether it differs from the source.
func (m *Manifest) bytes() ([]byte, bool, error) {
	if !m.dirty {
		return m.orig, false, nil
	}
	data, err := m.doc.WriteToBytes()
	if err != nil {
		return nil, false, err
	}
	return data, !bytes.Equal(data, m.orig), nil
}
