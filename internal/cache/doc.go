// Package cache owns the durable on-disk mirror of the merged package
// index. Each update builds a complete new generation directory off to
// the side and then flips a single pointer file, so readers never
// observe a half-written cache. The layout under a generation
// (<source-index>/<package>/<version>/manifest plus files, with an
// index.meta record) is stable and read directly by the installer.
package cache
