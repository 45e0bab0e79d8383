// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a build:
//   - project file loading and CUE schema validation
//   - directive scanning and exported-callable extraction
//   - embed graph resolution
//   - document serialization
//   - the end-to-end build pipeline
//
// To generate a profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
