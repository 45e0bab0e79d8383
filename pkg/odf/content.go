// SPDX-License-Identifier: MPL-2.0

package odf

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/beevik/etree"
)

// Namespaces used by the elements calcpack writes.
const (
	NSOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	NSScript = "urn:oasis:names:tc:opendocument:xmlns:script:1.0"
	NSTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	NSForm   = "urn:oasis:names:tc:opendocument:xmlns:form:1.0"
	NSDraw   = "urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
	NSSVG    = "urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0"
	NSXLink  = "http://www.w3.org/1999/xlink"
)

const (
	// ScriptLanguage is the language of the office:script block listing embedded modules.
	ScriptLanguage = "ooo:Python"

	scriptsTag = "office:scripts"
	scriptTag  = "office:script"
	moduleTag  = "script:module"
	hrefAttr   = "xlink:href"
)

// tableHead is the schema order of the table children that precede columns and rows.
var tableHead = []string{
	"table:title", "table:desc", "table:table-source", "office:dde-source",
	"table:scenario", "office:forms", "table:shapes",
}

// Content is the content.xml tree.
type Content struct {
	doc   *etree.Document
	root  *etree.Element
	orig  []byte
	dirty bool
}

func parseContent(data []byte) (*Content, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "document-content" {
		return nil, fmt.Errorf("root element is not office:document-content")
	}
	return &Content{doc: doc, root: root, orig: data}, nil
}

// Root returns the office:document-content element.
func (c *Content) Root() *etree.Element { return c.root }

// Touch marks the tree as modified by a caller editing it directly.
func (c *Content) Touch() { c.dirty = true }

// EnsureNamespace declares prefix on the root element when it is missing.
func (c *Content) EnsureNamespace(prefix, uri string) {
	key := "xmlns:" + prefix
	if c.root.SelectAttr(key) != nil {
		return
	}
	c.root.CreateAttr(key, uri)
	c.dirty = true
}

// ScriptModules returns the entry paths declared in the Python script block.
func (c *Content) ScriptModules() []string {
	scripts := c.root.SelectElement(scriptsTag)
	if scripts == nil {
		return nil
	}
	var paths []string
	for _, s := range scripts.SelectElements(scriptTag) {
		if s.SelectAttrValue("script:language", "") != ScriptLanguage {
			continue
		}
		for _, m := range s.SelectElements(moduleTag) {
			paths = append(paths, m.SelectAttrValue(hrefAttr, ""))
		}
	}
	return paths
}

// SetScriptModules replaces the Python script block with one module
// declaration per path. An unchanged declaration leaves the tree untouched.
func (c *Content) SetScriptModules(paths []string) {
	if slices.Equal(c.ScriptModules(), paths) {
		return
	}
	scripts := c.root.SelectElement(scriptsTag)
	if scripts == nil {
		scripts = etree.NewElement(scriptsTag)
		c.root.InsertChildAt(firstElementIndex(c.root), scripts)
	}
	for _, s := range scripts.SelectElements(scriptTag) {
		if s.SelectAttrValue("script:language", "") == ScriptLanguage {
			scripts.RemoveChild(s)
		}
	}
	if len(paths) > 0 {
		block := scripts.CreateElement(scriptTag)
		block.CreateAttr("script:language", ScriptLanguage)
		for _, p := range paths {
			m := block.CreateElement(moduleTag)
			m.CreateAttr(hrefAttr, p)
			m.CreateAttr("xlink:type", "simple")
		}
	}
	c.EnsureNamespace("script", NSScript)
	c.EnsureNamespace("xlink", NSXLink)
	c.dirty = true
}

// EventListenerHrefs returns the targets of every script:event-listener.
func (c *Content) EventListenerHrefs() []string {
	var hrefs []string
	for _, el := range c.root.FindElements("//script:event-listener") {
		hrefs = append(hrefs, el.SelectAttrValue(hrefAttr, ""))
	}
	return hrefs
}

// FirstTable returns the first sheet of the spreadsheet body.
func (c *Content) FirstTable() (*etree.Element, error) {
	table := c.root.FindElement("office:body/office:spreadsheet/table:table")
	if table == nil {
		return nil, fmt.Errorf("content document has no spreadsheet table")
	}
	return table, nil
}

// TableChild returns the child of table with the given tag (one of the
// elements preceding columns, such as office:forms or table:shapes),
// inserting it at its schema position when create is set.
func (c *Content) TableChild(table *etree.Element, tag string, create bool) *etree.Element {
	if el := table.SelectElement(tag); el != nil || !create {
		return el
	}
	rank := slices.Index(tableHead, tag)
	pos := len(table.Child)
	for i, tok := range table.Child {
		el, ok := tok.(*etree.Element)
		if !ok {
			continue
		}
		if r := slices.Index(tableHead, el.FullTag()); r < 0 || r > rank {
			pos = i
			break
		}
	}
	el := etree.NewElement(tag)
	table.InsertChildAt(pos, el)
	c.dirty = true
	return el
}

// RemoveIfEmpty deletes el from parent when it has no child elements.
func (c *Content) RemoveIfEmpty(parent, el *etree.Element) {
	if el == nil || len(el.ChildElements()) > 0 {
		return
	}
	parent.RemoveChild(el)
	c.dirty = true
}

// bytes returns the serialized document and whether it differs from the source.
func (c *Content) bytes() ([]byte, bool, error) {
	if !c.dirty {
		return c.orig, false, nil
	}
	data, err := c.doc.WriteToBytes()
	if err != nil {
		return nil, false, err
	}
	return data, !bytes.Equal(data, c.orig), nil
}

func firstElementIndex(parent *etree.Element) int {
	for i, tok := range parent.Child {
		if _, ok := tok.(*etree.Element); ok {
			return i
		}
	}
	return len(parent.Child)
}
