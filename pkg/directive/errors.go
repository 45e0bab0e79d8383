// SPDX-License-Identifier: MPL-2.0

package directive

import (
	"errors"
	"fmt"
)

// ErrMalformedDirective is the sentinel for MalformedDirectiveError.
var ErrMalformedDirective = errors.New("malformed directive")

// MalformedDirectiveError reports a directive line that cannot be parsed.
type MalformedDirectiveError struct {
	File   string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedDirectiveError) Error() string {
	return fmt.Sprintf("%s:%d: malformed directive %q: %s", e.File, e.Line, e.Text, e.Reason)
}

// Unwrap returns ErrMalformedDirective for errors.Is() compatibility.
func (e *MalformedDirectiveError) Unwrap() error { return ErrMalformedDirective }
