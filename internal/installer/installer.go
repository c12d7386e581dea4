package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stevedore-labs/stevedore/internal/index"
	"github.com/stevedore-labs/stevedore/internal/manifest"
)

// Install unpacks a resolved entry's artifact set from the cache into
// <installedRoot>/<name>/<version>/. The manifest travels with the
// files so `list` can report versions without consulting the cache.
// An existing installation of the same name is replaced, but only after
// the new tree has been staged completely: a failed copy leaves the
// previous installation untouched.
func Install(e *index.Entry, installedRoot string) error {
	if err := os.MkdirAll(installedRoot, 0755); err != nil {
		return fmt.Errorf("creating installed root: %w", err)
	}
	staging, err := os.MkdirTemp(installedRoot, ".install-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := unpack(e, staging); err != nil {
		return fmt.Errorf("unpacking %s@%s: %w", e.Name, e.Version, err)
	}

	// One version per package name: the old version goes away only once
	// the replacement is complete.
	nameDir := filepath.Join(installedRoot, e.Name)
	if err := os.RemoveAll(nameDir); err != nil {
		return fmt.Errorf("removing existing installation of %s: %w", e.Name, err)
	}
	if err := os.MkdirAll(nameDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", nameDir, err)
	}
	if err := os.Rename(staging, filepath.Join(nameDir, e.Version)); err != nil {
		return fmt.Errorf("installing %s@%s: %w", e.Name, e.Version, err)
	}
	return nil
}

// unpack copies the entry's files from the cache into dst.
func unpack(e *index.Entry, dst string) error {
	if len(e.Files) == 0 {
		// A manifest with no file list ships the whole version directory.
		return copyTree(e.Dir, dst)
	}
	for _, rel := range e.Files {
		if err := copyRel(e.Dir, dst, rel); err != nil {
			return err
		}
	}
	return copyRel(e.Dir, dst, filepath.Base(e.ManifestPath))
}

// Installed is one package found under the installed root.
type Installed struct {
	Name    string
	Version string
	Dir     string
}

// List returns the installed packages in name order. A missing installed
// root is an empty list, not an error.
func List(installedRoot string) ([]Installed, error) {
	pkgDirs, err := os.ReadDir(installedRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading installed root: %w", err)
	}

	var result []Installed
	for _, pkgDir := range pkgDirs {
		if !pkgDir.IsDir() || strings.HasPrefix(pkgDir.Name(), ".") {
			continue
		}
		versionDirs, err := os.ReadDir(filepath.Join(installedRoot, pkgDir.Name()))
		if err != nil {
			continue
		}
		for _, versionDir := range versionDirs {
			if !versionDir.IsDir() {
				continue
			}
			dir := filepath.Join(installedRoot, pkgDir.Name(), versionDir.Name())
			if _, err := manifest.Find(dir); err != nil {
				continue
			}
			result = append(result, Installed{
				Name:    pkgDir.Name(),
				Version: versionDir.Name(),
				Dir:     dir,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Remove deletes an installed package.
func Remove(name, installedRoot string) error {
	dir := filepath.Join(installedRoot, name)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("package %s is not installed", name)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	return nil
}

// copyRel copies one manifest-relative path (file or directory) from the
// cached version directory into the installation directory.
func copyRel(srcRoot, dstRoot, rel string) error {
	src := filepath.Join(srcRoot, filepath.FromSlash(rel))
	dst := filepath.Join(dstRoot, filepath.FromSlash(rel))

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyTree(src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode())
}

// copyTree recursively copies a directory, skipping special files.
func copyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
		} else if entry.Type().IsRegular() {
			if err := copyRel(src, dst, entry.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}
