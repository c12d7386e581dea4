package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Entry represents one concrete package version as published by one
// source. Dir is the absolute path of the version directory holding the
// manifest and the package files.
type Entry struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	SourcePriority int      `json:"source_priority"`
	SourceURI      string   `json:"source_uri"`
	ManifestPath   string   `json:"manifest_path"`
	Dir            string   `json:"dir"`
	Files          []string `json:"files"`
}

// Index maps package names to their known versions, ordered by version
// descending. An Index is rebuilt wholesale on every update and never
// mutated incrementally after Sort.
type Index struct {
	entries map[string][]Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string][]Entry)}
}

// Add appends an entry. Call Sort once after the last Add.
func (ix *Index) Add(e Entry) {
	ix.entries[e.Name] = append(ix.entries[e.Name], e)
}

// Sort orders each package's entries by version descending, breaking
// version ties by ascending source priority index (first-configured
// source first). This is the resolution order: entries[0] wins.
func (ix *Index) Sort() {
	for name := range ix.entries {
		es := ix.entries[name]
		sort.SliceStable(es, func(i, j int) bool {
			if c := CompareVersions(es[i].Version, es[j].Version); c != 0 {
				return c > 0
			}
			return es[i].SourcePriority < es[j].SourcePriority
		})
	}
}

// Entries returns the ordered entries for a package name, or nil.
func (ix *Index) Entries(name string) []Entry {
	return ix.entries[name]
}

// Names returns all package names in alphabetical order.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.entries))
	for name := range ix.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct package names.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Merge combines per-source indexes into one. Inputs must be given in
// source priority order; entries keep their SourcePriority so the merged
// Sort remains deterministic.
func Merge(sources ...*Index) *Index {
	merged := New()
	for _, src := range sources {
		if src == nil {
			continue
		}
		for name, es := range src.entries {
			merged.entries[name] = append(merged.entries[name], es...)
		}
	}
	merged.Sort()
	return merged
}

// ErrEmptyIndex marks a staged source tree with zero valid packages.
// The source is treated as failed for this update.
var ErrEmptyIndex = errors.New("source contains no valid packages")

// ConflictError reports a duplicate (name, version) pair within a single
// source's tree. It is fatal for that source only.
type ConflictError struct {
	Name    string
	Version string
	Paths   []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate package %s@%s in source (%s)",
		e.Name, e.Version, strings.Join(e.Paths, ", "))
}

// Warning records a manifest that was skipped during an index build.
type Warning struct {
	Path   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Reason)
}
