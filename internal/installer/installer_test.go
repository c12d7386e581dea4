package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stevedore-labs/stevedore/internal/index"
)

// cachedEntry fakes a resolved entry backed by a cache-style version
// directory.
func cachedEntry(t *testing.T, name, version string, files map[string]string) *index.Entry {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name, version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	manifest := "name: " + name + "\nversion: \"" + version + "\"\nfiles:\n"
	var fileList []string
	for rel, content := range files {
		manifest += "  - " + rel + "\n"
		fileList = append(fileList, rel)
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	manifestPath := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	return &index.Entry{
		Name:         name,
		Version:      version,
		ManifestPath: manifestPath,
		Dir:          dir,
		Files:        fileList,
	}
}

func TestInstall(t *testing.T) {
	root := t.TempDir()
	entry := cachedEntry(t, "cassandra", "1.0", map[string]string{
		"config.yaml":      "cluster: prod",
		"scripts/start.sh": "#!/bin/sh",
	})

	if err := Install(entry, root); err != nil {
		t.Fatal(err)
	}

	for _, rel := range []string{"config.yaml", "scripts/start.sh", "manifest.yaml"} {
		p := filepath.Join(root, "cassandra", "1.0", rel)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected installed file %s: %v", p, err)
		}
	}
}

func TestInstall_ReplacesOldVersion(t *testing.T) {
	root := t.TempDir()

	old := cachedEntry(t, "cassandra", "1.0", map[string]string{"config.yaml": "old"})
	if err := Install(old, root); err != nil {
		t.Fatal(err)
	}

	updated := cachedEntry(t, "cassandra", "2.0", map[string]string{"config.yaml": "new"})
	if err := Install(updated, root); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(root, "cassandra", "1.0")); !os.IsNotExist(err) {
		t.Error("old version should be removed on upgrade")
	}
	if _, err := os.Stat(filepath.Join(root, "cassandra", "2.0", "config.yaml")); err != nil {
		t.Errorf("new version missing: %v", err)
	}
}

func TestInstall_FailureKeepsOldVersion(t *testing.T) {
	root := t.TempDir()

	old := cachedEntry(t, "cassandra", "1.0", map[string]string{"config.yaml": "old"})
	if err := Install(old, root); err != nil {
		t.Fatal(err)
	}

	// An entry whose file list names a file missing from the cache makes
	// the copy fail partway through.
	broken := cachedEntry(t, "cassandra", "2.0", map[string]string{"config.yaml": "new"})
	broken.Files = append(broken.Files, "missing/part.bin")

	if err := Install(broken, root); err == nil {
		t.Fatal("expected install to fail on missing file")
	}

	if _, err := os.Stat(filepath.Join(root, "cassandra", "1.0", "config.yaml")); err != nil {
		t.Errorf("previous version should survive a failed install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cassandra", "2.0")); !os.IsNotExist(err) {
		t.Error("failed install should not leave a partial version directory")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "cassandra" {
			t.Errorf("unexpected leftover %q under installed root", e.Name())
		}
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	if err := Install(cachedEntry(t, "b-pkg", "1.0", map[string]string{"f": "x"}), root); err != nil {
		t.Fatal(err)
	}
	if err := Install(cachedEntry(t, "a-pkg", "2.0", map[string]string{"f": "x"}), root); err != nil {
		t.Fatal(err)
	}

	installed, err := List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(installed) != 2 {
		t.Fatalf("expected 2 installed, got %d", len(installed))
	}
	if installed[0].Name != "a-pkg" || installed[1].Name != "b-pkg" {
		t.Errorf("expected name order, got %+v", installed)
	}
	if installed[0].Version != "2.0" {
		t.Errorf("unexpected version: %+v", installed[0])
	}
}

func TestList_MissingRoot(t *testing.T) {
	installed, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if installed != nil {
		t.Errorf("expected empty list, got %+v", installed)
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	if err := Install(cachedEntry(t, "cassandra", "1.0", map[string]string{"f": "x"}), root); err != nil {
		t.Fatal(err)
	}

	if err := Remove("cassandra", root); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "cassandra")); !os.IsNotExist(err) {
		t.Error("package directory should be gone")
	}

	if err := Remove("cassandra", root); err == nil {
		t.Error("removing a non-installed package should error")
	}
}
