// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines an error type carrying the failed operation, the resource
// involved and remediation hints, plus a catalog of Markdown help pages,
// one per build failure kind, rendered in the terminal with glamour.
package issue
