// Package manifest parses and validates the per-version package
// descriptor files found in source trees. Parsing is YAML-based (JSON
// manifests parse as a YAML subset); validation runs against an
// embedded JSON schema.
package manifest
