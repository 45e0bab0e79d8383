// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/calcpack/calcpack/pkg/assemble"
	"github.com/calcpack/calcpack/pkg/odf"

	"github.com/beevik/etree"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func entryUnit(n int) assemble.Unit {
	u := assemble.Unit{Name: "main", Path: "Scripts/python/main.py", Entry: true}
	for i := range n {
		u.Exported = append(u.Exported, fmt.Sprintf("fn%d", i))
	}
	return u
}

func scriptedTemplate(t *testing.T, u assemble.Unit) *odf.Archive {
	t.Helper()
	a, err := odf.NewSpreadsheet()
	if err != nil {
		t.Fatal(err)
	}
	a.Put(u.Path, nil)
	a.Manifest().Set(u.Path, odf.MediaTypeScript)
	a.Content().SetScriptModules([]string{u.Path})
	return a
}

func TestPlan_Grid(t *testing.T) {
	t.Parallel()
	triggers := Plan(entryUnit(45), DefaultLayout())
	if len(triggers) != 45 {
		t.Fatalf("got %d triggers, want 45", len(triggers))
	}

	first := triggers[0]
	if first.X != 10 || first.Y != 10 || first.Width != 80 || first.Height != 10 {
		t.Errorf("first trigger at %+v", first)
	}
	if triggers[1].Y != 25 {
		t.Errorf("second row Y = %v, want 25", triggers[1].Y)
	}
	if triggers[20].X != 100 || triggers[20].Y != 10 {
		t.Errorf("second column starts at (%v, %v), want (100, 10)", triggers[20].X, triggers[20].Y)
	}

	for i := range triggers {
		for j := i + 1; j < len(triggers); j++ {
			if triggers[i].Overlaps(triggers[j]) {
				t.Fatalf("triggers %d and %d overlap", i, j)
			}
		}
	}
	if triggers[3].Locator != "vnd.sun.star.script:main.py$fn3?language=Python&location=document" {
		t.Errorf("Locator = %q", triggers[3].Locator)
	}
}

func TestPlan_NormalizesLayout(t *testing.T) {
	t.Parallel()
	triggers := Plan(entryUnit(3), Layout{OriginX: 5, OriginY: 5, Height: 30, RowPitch: 10})
	for i := range triggers {
		for j := i + 1; j < len(triggers); j++ {
			if triggers[i].Overlaps(triggers[j]) {
				t.Fatalf("triggers %d and %d overlap", i, j)
			}
		}
	}
}

func TestInject(t *testing.T) {
	t.Parallel()
	u := entryUnit(3)
	a := scriptedTemplate(t, u)

	if HasMarker(a) {
		t.Fatal("fresh template reports the marker")
	}
	triggers, err := Inject(a, u, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Inject() error: %v", err)
	}
	if len(triggers) != len(u.Exported) {
		t.Errorf("got %d triggers, want %d", len(triggers), len(u.Exported))
	}
	if !HasMarker(a) {
		t.Error("HasMarker() = false after Inject")
	}
	if err := a.Verify(); err != nil {
		t.Errorf("Verify() error: %v", err)
	}

	c := a.Content()
	if got := len(c.Root().FindElements("//form:button")); got != 3 {
		t.Errorf("buttons = %d, want 3", got)
	}
	if got := len(c.Root().FindElements("//draw:control")); got != 3 {
		t.Errorf("shapes = %d, want 3", got)
	}
	hrefs := c.EventListenerHrefs()
	for i, h := range hrefs {
		if h != triggers[i].Locator {
			t.Errorf("listener %d = %q, want %q", i, h, triggers[i].Locator)
		}
	}
}

func TestInject_ReplacesPrevious(t *testing.T) {
	t.Parallel()
	u := entryUnit(4)
	a := scriptedTemplate(t, u)
	if _, err := Inject(a, u, Options{Logger: quiet}); err != nil {
		t.Fatal(err)
	}
	var first bytes.Buffer
	if err := a.Write(&first, odf.WriteOptions{}); err != nil {
		t.Fatal(err)
	}

	if _, err := Inject(a, u, Options{Logger: quiet}); err != nil {
		t.Fatal(err)
	}
	if got := len(a.Content().Root().FindElements("//form:button")); got != 4 {
		t.Errorf("buttons after re-injection = %d, want 4", got)
	}
	var second bytes.Buffer
	if err := a.Write(&second, odf.WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("re-injection changed the document")
	}

	u.Exported = nil
	if _, err := Inject(a, u, Options{Logger: quiet}); err != nil {
		t.Fatal(err)
	}
	if HasMarker(a) {
		t.Error("marker kept although no callable is exported")
	}
	table, _ := a.Content().FirstTable()
	if a.Content().TableChild(table, "office:forms", false) != nil {
		t.Error("empty office:forms kept")
	}
}

func TestRemove_KeepsUserForms(t *testing.T) {
	t.Parallel()
	u := entryUnit(1)
	a := scriptedTemplate(t, u)
	c := a.Content()
	table, _ := c.FirstTable()
	forms := c.TableChild(table, "office:forms", true)
	forms.CreateElement("form:form").CreateAttr("form:name", "Standard")
	shapes := c.TableChild(table, "table:shapes", true)
	shapes.CreateElement("draw:control").CreateAttr("draw:control", "control1")

	if _, err := Inject(a, u, Options{Logger: quiet}); err != nil {
		t.Fatal(err)
	}
	if n := Remove(a); n != 1 {
		t.Errorf("Remove() = %d, want 1", n)
	}
	if len(forms.SelectElements("form:form")) != 1 || len(shapes.SelectElements("draw:control")) != 1 {
		t.Error("user forms or shapes were removed")
	}
}

func TestInject_FormsContainer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing map[string]string
		want     map[string]string
	}{
		{
			name: "created",
			want: map[string]string{"form:automatic-focus": "false", "form:apply-design-mode": "false"},
		},
		{
			name:     "existing empty element kept",
			existing: map[string]string{"form:automatic-focus": "false", "form:apply-design-mode": "false", "form:custom": "kept"},
			want:     map[string]string{"form:automatic-focus": "false", "form:apply-design-mode": "false", "form:custom": "kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := entryUnit(2)
			a := scriptedTemplate(t, u)
			c := a.Content()
			table, err := c.FirstTable()
			if err != nil {
				t.Fatal(err)
			}
			var before *etree.Element
			if tt.existing != nil {
				before = c.TableChild(table, "office:forms", true)
				for k, v := range tt.existing {
					before.CreateAttr(k, v)
				}
			}

			for range 2 {
				if _, err := Inject(a, u, Options{Logger: quiet}); err != nil {
					t.Fatalf("Inject() error: %v", err)
				}
			}

			forms := c.TableChild(table, "office:forms", false)
			if forms == nil {
				t.Fatal("office:forms missing after Inject")
			}
			if before != nil && forms != before {
				t.Error("existing office:forms was replaced")
			}
			for k, v := range tt.want {
				if got := forms.SelectAttrValue(k, "<absent>"); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
			if got := len(forms.SelectElements("form:form")); got != 1 {
				t.Errorf("forms = %d, want 1", got)
			}
		})
	}
}

func TestRemove_KeepsUntouchedContainers(t *testing.T) {
	t.Parallel()
	a := scriptedTemplate(t, entryUnit(1))
	c := a.Content()
	table, _ := c.FirstTable()
	forms := c.TableChild(table, "office:forms", true)
	forms.CreateAttr("form:apply-design-mode", "false")

	if n := Remove(a); n != 0 {
		t.Errorf("Remove() = %d, want 0", n)
	}
	if c.TableChild(table, "office:forms", false) != forms {
		t.Error("empty office:forms without generated content was removed")
	}
}
