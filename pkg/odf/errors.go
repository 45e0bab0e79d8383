// SPDX-License-Identifier: MPL-2.0

package odf

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidContainer is returned when the base document cannot be read as an OpenDocument container.
	ErrInvalidContainer = errors.New("invalid container")
	// ErrArchiveIntegrity is returned when entries, manifest and declarations disagree.
	ErrArchiveIntegrity = errors.New("archive integrity violation")
	// ErrEntryNotFound is returned by Archive.ReadFile for a missing entry.
	ErrEntryNotFound = errors.New("entry not found")
)

type (
	// InvalidContainerError reports an unreadable or corrupt container.
	InvalidContainerError struct {
		Path   string
		Reason string
		Err    error
	}

	// ArchiveIntegrityError reports an inconsistency found by Archive.Verify.
	ArchiveIntegrityError struct {
		// Path is the offending entry, record or locator.
		Path   string
		Reason string
	}
)

func (e *InvalidContainerError) Error() string {
	msg := fmt.Sprintf("invalid container %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrInvalidContainer for errors.Is() compatibility.
func (e *InvalidContainerError) Unwrap() error { return ErrInvalidContainer }

func (e *ArchiveIntegrityError) Error() string {
	return fmt.Sprintf("archive integrity: %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrArchiveIntegrity for errors.Is() compatibility.
func (e *ArchiveIntegrityError) Unwrap() error { return ErrArchiveIntegrity }
