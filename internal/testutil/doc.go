// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers build project fixtures on disk (WriteTree, MustWriteFile,
// MustMkdirAll), give tests a silent logger (DiscardLogger) and close
// resources (MustClose, DeferClose).
package testutil
