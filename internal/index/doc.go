// Package index builds and orders the in-memory package index. Build
// walks a staged source tree (<package>/<version>/manifest) into an
// Index keyed by package name; Merge assembles per-source indexes into
// the registry's resolution view. Version ordering is semver where
// possible with a numeric-segment fallback.
package index
