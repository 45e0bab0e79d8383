// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess means the document was written.
	ExitSuccess ExitCode = 0
	// ExitFailure is any error without a more specific code.
	ExitFailure ExitCode = 1
	// ExitUsage is a command-line or configuration error.
	ExitUsage ExitCode = 2
	// ExitProject is a scan, resolve or assemble failure: the scripts are wrong.
	ExitProject ExitCode = 3
	// ExitDocument is a failure reading or writing the document.
	ExitDocument ExitCode = 4
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates a successful build.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// IsUserFixable reports whether the failure lies in the project rather than
// in calcpack or the environment.
func (c ExitCode) IsUserFixable() bool {
	return c == ExitUsage || c == ExitProject
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
