package cache

import (
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// metaFileName is the manifest file recorded inside each cache generation.
const metaFileName = "index.meta"

// layoutVersion identifies the on-disk cache layout. Collaborators that
// read the cache directly check this before trusting the tree.
const layoutVersion = 1

// Meta records what a cache generation was built from: the configured
// sources in priority order with their per-source update outcomes.
type Meta struct {
	LayoutVersion int          `yaml:"layout_version"`
	UpdatedAt     time.Time    `yaml:"updated_at"`
	Sources       []SourceMeta `yaml:"sources"`
}

// SourceMeta is the per-source record inside index.meta.
type SourceMeta struct {
	URI       string    `yaml:"uri"`
	Scheme    string    `yaml:"scheme"`
	Priority  int       `yaml:"priority"`
	Succeeded bool      `yaml:"succeeded"`
	Error     string    `yaml:"error,omitempty"`
	FetchedAt time.Time `yaml:"fetched_at,omitempty"`
	// Packages counts distinct package names, not version entries,
	// matching what the update report shows.
	Packages int `yaml:"packages"`
}

// writeMeta serializes the meta record into a generation directory.
func writeMeta(dir string, meta *Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFileName), data, 0644)
}

// readMeta loads the meta record from a generation directory.
func readMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
