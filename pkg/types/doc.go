// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the command line and the
// build packages.
package types
