// SPDX-License-Identifier: MPL-2.0

// Package trigger adds one push button per exported callable of the entry
// script to the first sheet of a document. Buttons are form controls bound
// to the callable through a document script locator.
package trigger

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/calcpack/calcpack/pkg/assemble"
	"github.com/calcpack/calcpack/pkg/odf"
)

const (
	// FormName identifies the form holding generated buttons.
	FormName = "calcpack-triggers"
	// ControlPrefix prefixes the control IDs of generated buttons.
	ControlPrefix = "calcpack-control"
)

// namespaces are declared on the content root before buttons are added.
var namespaces = [][2]string{
	{"office", odf.NSOffice},
	{"form", odf.NSForm},
	{"draw", odf.NSDraw},
	{"svg", odf.NSSVG},
	{"script", odf.NSScript},
	{"xlink", odf.NSXLink},
}

type (
	// Layout is the button grid, in millimetres.
	Layout struct {
		OriginX     float64
		OriginY     float64
		Width       float64
		Height      float64
		RowPitch    float64
		ColumnPitch float64
		// Rows is the number of buttons per column.
		Rows int
	}

	// Trigger is a button bound to an exported callable.
	Trigger struct {
		Label     string
		Function  string
		Locator   string
		ControlID string
		X         float64
		Y         float64
		Width     float64
		Height    float64
	}

	// Options configures Inject.
	Options struct {
		Layout Layout
		Logger *slog.Logger
	}
)

// DefaultLayout returns the standard grid: 80x10mm buttons from (10mm, 10mm),
// 15mm apart, 20 per column, columns 90mm apart.
func DefaultLayout() Layout {
	return Layout{
		OriginX:     10,
		OriginY:     10,
		Width:       80,
		Height:      10,
		RowPitch:    15,
		ColumnPitch: 90,
		Rows:        20,
	}
}

func (l Layout) normalized() Layout {
	d := DefaultLayout()
	if l.Width <= 0 {
		l.Width = d.Width
	}
	if l.Height <= 0 {
		l.Height = d.Height
	}
	if l.RowPitch < l.Height {
		l.RowPitch = max(d.RowPitch, l.Height)
	}
	if l.ColumnPitch < l.Width {
		l.ColumnPitch = max(d.ColumnPitch, l.Width)
	}
	if l.Rows <= 0 {
		l.Rows = d.Rows
	}
	return l
}

// Overlaps reports whether the rectangles of t and o intersect.
func (t Trigger) Overlaps(o Trigger) bool {
	return t.X < o.X+o.Width && o.X < t.X+t.Width &&
		t.Y < o.Y+o.Height && o.Y < t.Y+t.Height
}

// Plan lays out one trigger per exported callable of entry.
func Plan(entry assemble.Unit, layout Layout) []Trigger {
	l := layout.normalized()
	triggers := make([]Trigger, 0, len(entry.Exported))
	for i, fn := range entry.Exported {
		col, row := i/l.Rows, i%l.Rows
		triggers = append(triggers, Trigger{
			Label:     fn,
			Function:  fn,
			Locator:   entry.Locator(fn),
			ControlID: ControlPrefix + strconv.Itoa(i),
			X:         l.OriginX + float64(col)*l.ColumnPitch,
			Y:         l.OriginY + float64(row)*l.RowPitch,
			Width:     l.Width,
			Height:    l.Height,
		})
	}
	return triggers
}

// HasMarker reports whether the document carries generated buttons.
func HasMarker(a *odf.Archive) bool {
	for _, f := range a.Content().Root().FindElements("//form:form") {
		if f.SelectAttrValue("form:name", "") == FormName {
			return true
		}
	}
	return false
}

// Inject replaces previously generated buttons with one button per exported
// callable of entry, placed on the first sheet.
func Inject(a *odf.Archive, entry assemble.Unit, opts Options) ([]Trigger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := a.Content()
	table, err := c.FirstTable()
	if err != nil {
		return nil, err
	}

	removed, emptied := remove(c, table)
	triggers := Plan(entry, opts.Layout)
	if len(triggers) == 0 {
		for _, el := range emptied {
			c.RemoveIfEmpty(table, el)
		}
	} else {
		for _, ns := range namespaces {
			c.EnsureNamespace(ns[0], ns[1])
		}
		forms := c.TableChild(table, "office:forms", false)
		if forms == nil {
			forms = c.TableChild(table, "office:forms", true)
			forms.CreateAttr("form:automatic-focus", "false")
			forms.CreateAttr("form:apply-design-mode", "false")
		}
		forms.AddChild(newForm(triggers))
		shapes := c.TableChild(table, "table:shapes", true)
		for _, t := range triggers {
			shapes.AddChild(newShape(t))
		}
		c.Touch()
	}

	logger.Debug("triggers injected", "entry", entry.Path, "count", len(triggers), "replaced", removed)
	return triggers, nil
}

// Remove deletes generated forms and shapes from the first sheet and
// returns the number of buttons removed. A container left empty by the
// removal is dropped; containers holding no generated content are kept.
func Remove(a *odf.Archive) int {
	c := a.Content()
	table, err := c.FirstTable()
	if err != nil {
		return 0
	}
	removed, emptied := remove(c, table)
	for _, el := range emptied {
		c.RemoveIfEmpty(table, el)
	}
	return removed
}

// remove deletes the generated children of office:forms and table:shapes.
// It returns the button count and the containers it removed children from.
func remove(c *odf.Content, table *etree.Element) (int, []*etree.Element) {
	removed := 0
	var touched []*etree.Element
	if forms := c.TableChild(table, "office:forms", false); forms != nil {
		hit := false
		for _, f := range forms.SelectElements("form:form") {
			if f.SelectAttrValue("form:name", "") != FormName {
				continue
			}
			removed += len(f.SelectElements("form:button"))
			forms.RemoveChild(f)
			hit = true
		}
		if hit {
			touched = append(touched, forms)
		}
	}
	if shapes := c.TableChild(table, "table:shapes", false); shapes != nil {
		hit := false
		for _, s := range shapes.SelectElements("draw:control") {
			if strings.HasPrefix(s.SelectAttrValue("draw:control", ""), ControlPrefix) {
				shapes.RemoveChild(s)
				hit = true
			}
		}
		if hit {
			touched = append(touched, shapes)
		}
	}
	if len(touched) > 0 {
		c.Touch()
	}
	return removed, touched
}

func newForm(triggers []Trigger) *etree.Element {
	form := etree.NewElement("form:form")
	form.CreateAttr("form:name", FormName)
	form.CreateAttr("form:apply-filter", "true")
	form.CreateAttr("form:command-type", "table")
	form.CreateAttr("form:control-implementation", "ooo:com.sun.star.form.component.Form")
	form.CreateAttr("office:target-frame", "")
	form.CreateAttr("xlink:href", "")
	form.CreateAttr("xlink:type", "simple")
	props := form.CreateElement("form:properties")
	prop := props.CreateElement("form:property")
	prop.CreateAttr("form:property-name", "PropertyChangeNotificationEnabled")
	prop.CreateAttr("office:value-type", "boolean")
	prop.CreateAttr("office:boolean-value", "true")

	for _, t := range triggers {
		b := form.CreateElement("form:button")
		b.CreateAttr("form:name", "Button "+t.Function)
		b.CreateAttr("form:control-implementation", "ooo:com.sun.star.form.component.CommandButton")
		b.CreateAttr("xml:id", t.ControlID)
		b.CreateAttr("form:id", t.ControlID)
		b.CreateAttr("form:label", t.Label)
		b.CreateAttr("office:target-frame", "")
		b.CreateAttr("xlink:href", "")
		b.CreateAttr("form:image-data", "")
		b.CreateAttr("form:delay-for-repeat", "PT0.050000000S")
		b.CreateAttr("form:image-position", "center")
		bp := b.CreateElement("form:properties").CreateElement("form:property")
		bp.CreateAttr("form:property-name", "DefaultControl")
		bp.CreateAttr("office:value-type", "string")
		bp.CreateAttr("office:string-value", "com.sun.star.form.control.CommandButton")
		l := b.CreateElement("office:event-listeners").CreateElement("script:event-listener")
		l.CreateAttr("script:language", "ooo:script")
		l.CreateAttr("script:event-name", "form:performaction")
		l.CreateAttr("xlink:href", t.Locator)
		l.CreateAttr("xlink:type", "simple")
	}
	return form
}

func newShape(t Trigger) *etree.Element {
	s := etree.NewElement("draw:control")
	s.CreateAttr("draw:z-index", "0")
	s.CreateAttr("svg:width", mm(t.Width))
	s.CreateAttr("svg:height", mm(t.Height))
	s.CreateAttr("svg:x", mm(t.X))
	s.CreateAttr("svg:y", mm(t.Y))
	s.CreateAttr("draw:control", t.ControlID)
	return s
}

func mm(v float64) string {
	return fmt.Sprintf("%smm", strconv.FormatFloat(v, 'f', -1, 64))
}
