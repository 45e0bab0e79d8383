// SPDX-License-Identifier: MPL-2.0

// Package odf models an OpenDocument container in memory: its zip entries,
// the manifest (META-INF/manifest.xml) and the content document
// (content.xml), both held as XML trees.
//
// Entries that are not modified are copied raw when the archive is written,
// so their compressed bytes are preserved. The mimetype entry is always
// written first and stored uncompressed.
package odf
