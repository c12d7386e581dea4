package manifest

// Manifest is the per-version descriptor file published inside a source's
// package tree at <package>/<version>/manifest.yaml (or .json). It names
// the package, its version, and the relative paths of the files that make
// up the installable artifact set.
type Manifest struct {
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Maintainer  string   `yaml:"maintainer,omitempty" json:"maintainer,omitempty"`
	Homepage    string   `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	Files       []string `yaml:"files" json:"files"`
}

// FileNames is the fallback order for locating manifest files inside a
// version directory.
var FileNames = []string{"manifest.yaml", "manifest.json"}
