// SPDX-License-Identifier: MPL-2.0

package odf

import "testing"

func TestLocator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		fn   string
		want string
	}{
		{"Scripts/python/main.py", "run", "vnd.sun.star.script:main.py$run?language=Python&location=document"},
		{"Scripts/python/tools/sheet.py", "fill", "vnd.sun.star.script:tools|sheet.py$fill?language=Python&location=document"},
	}
	for _, tt := range tests {
		got := Locator(tt.path, tt.fn)
		if got != tt.want {
			t.Errorf("Locator(%q, %q) = %q, want %q", tt.path, tt.fn, got, tt.want)
		}
		path, fn, ok := ParseLocator(got)
		if !ok || path != tt.path || fn != tt.fn {
			t.Errorf("ParseLocator(%q) = %q, %q, %v", got, path, fn, ok)
		}
	}

	if _, _, ok := ParseLocator("vnd.sun.star.script:main.py$run?language=Python&location=user"); ok {
		t.Error("ParseLocator accepted a user script")
	}
	if _, _, ok := ParseLocator("https://example.com"); ok {
		t.Error("ParseLocator accepted a foreign URI")
	}
}
