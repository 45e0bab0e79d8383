// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the calcpack command line.
//
// The commands are thin: they load the project configuration, turn flags
// and configuration into a pipeline.Request, run it and render the report
// or the error. Build failures are mapped to an issue catalog entry and a
// process exit code (see pkg/types).
package cmd
