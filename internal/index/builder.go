package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stevedore-labs/stevedore/internal/manifest"
)

// Build parses a staged source tree into an Index. The expected layout is
// <staged>/<package>/<version>/manifest.{yaml,json} plus the package
// files named by the manifest.
//
// Malformed manifests are skipped and recorded as warnings. A tree with
// zero valid packages returns ErrEmptyIndex; a duplicate (name, version)
// pair returns a *ConflictError. Both are fatal for this source only.
func Build(stagedPath string, priority int, sourceURI string) (*Index, []Warning, error) {
	ix := New()
	var warnings []Warning
	seen := make(map[string]string) // "name@version" -> first manifest path

	pkgDirs, err := os.ReadDir(stagedPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading staged tree %s: %w", stagedPath, err)
	}

	for _, pkgDir := range pkgDirs {
		if !pkgDir.IsDir() || hidden(pkgDir.Name()) {
			continue
		}

		versionDirs, err := os.ReadDir(filepath.Join(stagedPath, pkgDir.Name()))
		if err != nil {
			warnings = append(warnings, Warning{
				Path:   filepath.Join(stagedPath, pkgDir.Name()),
				Reason: fmt.Sprintf("unreadable package directory: %v", err),
			})
			continue
		}

		for _, versionDir := range versionDirs {
			if !versionDir.IsDir() || hidden(versionDir.Name()) {
				continue
			}
			dir := filepath.Join(stagedPath, pkgDir.Name(), versionDir.Name())

			entry, warn := buildEntry(dir, priority, sourceURI)
			if warn != nil {
				warnings = append(warnings, *warn)
				continue
			}

			key := entry.Name + "@" + entry.Version
			if prev, dup := seen[key]; dup {
				return nil, warnings, &ConflictError{
					Name:    entry.Name,
					Version: entry.Version,
					Paths:   []string{prev, entry.ManifestPath},
				}
			}
			seen[key] = entry.ManifestPath

			ix.Add(*entry)
		}
	}

	if ix.Len() == 0 {
		return nil, warnings, ErrEmptyIndex
	}

	ix.Sort()
	return ix, warnings, nil
}

// buildEntry parses one version directory into an Entry, or a Warning
// describing why it was skipped.
func buildEntry(dir string, priority int, sourceURI string) (*Entry, *Warning) {
	manifestPath, err := manifest.Find(dir)
	if err != nil {
		return nil, &Warning{Path: dir, Reason: "no manifest file"}
	}

	m, err := manifest.Parse(manifestPath)
	if err != nil {
		return nil, &Warning{Path: manifestPath, Reason: err.Error()}
	}
	if err := m.CheckRequired(); err != nil {
		return nil, &Warning{Path: manifestPath, Reason: err.Error()}
	}

	// Schema-invalid manifests are skipped like parse failures, with the
	// first issue recorded. Validator I/O errors are not the manifest's
	// fault and do not block indexing.
	if result, err := manifest.ValidateFile(manifestPath); err == nil && !result.Valid {
		issue := result.Issues[0]
		return nil, &Warning{Path: manifestPath,
			Reason: fmt.Sprintf("schema: %s %s", issue.Path, issue.Message)}
	}

	files := append([]string(nil), m.Files...)
	sort.Strings(files)

	return &Entry{
		Name:           m.Name,
		Version:        m.Version,
		Description:    m.Description,
		Tags:           m.Tags,
		SourcePriority: priority,
		SourceURI:      sourceURI,
		ManifestPath:   manifestPath,
		Dir:            dir,
		Files:          files,
	}, nil
}

func hidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
