package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// maxManifestSize guards against pathological files during source walks.
const maxManifestSize = 1 << 20 // 1 MiB

// Parse reads and unmarshals a manifest file. Both YAML and JSON
// manifests are accepted (YAML is a superset of JSON).
func Parse(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	return &m, nil
}

// Find locates the manifest file inside a version directory, trying
// manifest.yaml before manifest.json.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no manifest found in %s", dir)
}

// IsManifestFile reports whether name is a recognized manifest filename.
func IsManifestFile(name string) bool {
	for _, n := range FileNames {
		if name == n {
			return true
		}
	}
	return false
}

// CheckRequired verifies the fields every manifest must carry. Schema
// validation covers shape; this covers semantics the walker depends on.
func (m *Manifest) CheckRequired() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest missing name")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest missing version")
	}
	for _, f := range m.Files {
		clean := filepath.ToSlash(filepath.Clean(f))
		if filepath.IsAbs(f) || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("manifest file path %q escapes package directory", f)
		}
	}
	return nil
}

// readFile reads a manifest file with a size limit.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("manifest %s exceeds %d bytes", path, maxManifestSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return data, nil
}
