package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stevedore-labs/stevedore/internal/index"
)

// NotFoundError reports a package name (or name@version) that no source
// defines. It is an empty-result condition, not a crash: a cache that
// has never been updated yields it for every name.
type NotFoundError struct {
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("package %s version %s not found in any source", e.Name, e.Version)
	}
	return fmt.Sprintf("package %s not found in any source", e.Name)
}

// Search matches query case-insensitively as a substring of package
// names and descriptions. For each matching package it returns the entry
// Resolve would pick, ordered: exact name matches first, then source
// priority, then name alphabetically.
func (r *Registry) Search(query string) ([]index.Entry, error) {
	merged, err := r.loadMerged()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var results []index.Entry
	for _, name := range merged.Names() {
		entries := merged.Entries(name)
		if len(entries) == 0 {
			continue
		}
		winner := entries[0]
		if q != "" &&
			!strings.Contains(strings.ToLower(name), q) &&
			!strings.Contains(strings.ToLower(winner.Description), q) {
			continue
		}
		results = append(results, winner)
	}

	sort.SliceStable(results, func(i, j int) bool {
		ei, ej := exactMatch(results[i].Name, q), exactMatch(results[j].Name, q)
		if ei != ej {
			return ei
		}
		if results[i].SourcePriority != results[j].SourcePriority {
			return results[i].SourcePriority < results[j].SourcePriority
		}
		return results[i].Name < results[j].Name
	})

	return results, nil
}

// Resolve turns a package name plus optional exact version into the one
// winning entry. With no version, the highest version wins; when several
// sources tie on the winning version, the first-configured source wins.
// The result is deterministic for a fixed cache and query.
func (r *Registry) Resolve(name, version string) (*index.Entry, error) {
	merged, err := r.loadMerged()
	if err != nil {
		return nil, err
	}

	entries := merged.Entries(name)
	if len(entries) == 0 {
		return nil, &NotFoundError{Name: name, Version: version}
	}

	if version == "" {
		// Entries are sorted by version descending with ties broken by
		// priority index, so the head is the winner.
		e := entries[0]
		return &e, nil
	}

	for _, e := range entries {
		if e.Version == version {
			return &e, nil
		}
	}
	return nil, &NotFoundError{Name: name, Version: version}
}

// Describe is Resolve under the name the CLI surface uses.
func (r *Registry) Describe(name, version string) (*index.Entry, error) {
	return r.Resolve(name, version)
}

// Versions returns every known entry for a package name across sources,
// in resolution order.
func (r *Registry) Versions(name string) ([]index.Entry, error) {
	merged, err := r.loadMerged()
	if err != nil {
		return nil, err
	}
	entries := merged.Entries(name)
	if len(entries) == 0 {
		return nil, &NotFoundError{Name: name}
	}
	return append([]index.Entry(nil), entries...), nil
}

func exactMatch(name, query string) bool {
	return query != "" && strings.ToLower(name) == query
}
