package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Scheme identifies how a source's content is retrieved.
type Scheme int

const (
	SchemeLocal Scheme = iota
	SchemeHTTPZip
	SchemeVCS
)

// String returns the scheme name used in reports and index.meta.
func (s Scheme) String() string {
	switch s {
	case SchemeLocal:
		return "local"
	case SchemeHTTPZip:
		return "http_zip"
	case SchemeVCS:
		return "vcs"
	default:
		return "unknown"
	}
}

// Descriptor describes one configured registry source. It is immutable
// once parsed; Priority is the position in the configured source list
// (lower index = higher priority).
type Descriptor struct {
	URI      string
	Scheme   Scheme
	Priority int
}

// archiveExtensions are the suffixes recognized as downloadable bundles.
var archiveExtensions = []string{".zip", ".tar.gz", ".tgz"}

// vcsPatterns mark a URI as a version-control source.
var vcsPatterns = []string{"git://", "git@", ".git"}

// Parse detects the scheme of a configured source URI and returns its
// Descriptor. An unrecognized scheme yields a *ConfigError.
func Parse(uri string, priority int) (Descriptor, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Descriptor{}, &ConfigError{URI: uri, Reason: "empty source URI"}
	}

	d := Descriptor{URI: uri, Priority: priority}

	switch {
	case isVCS(uri):
		d.Scheme = SchemeVCS
	case strings.HasPrefix(uri, "file://"):
		d.Scheme = SchemeLocal
	case strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://"):
		if !hasArchiveExtension(uri) {
			return Descriptor{}, &ConfigError{URI: uri,
				Reason: "HTTP sources must point at an archive (.zip, .tar.gz, .tgz)"}
		}
		d.Scheme = SchemeHTTPZip
	case strings.Contains(uri, "://"):
		return Descriptor{}, &ConfigError{URI: uri,
			Reason: fmt.Sprintf("unsupported scheme %q", uri[:strings.Index(uri, "://")])}
	default:
		// Bare path.
		d.Scheme = SchemeLocal
	}

	return d, nil
}

// ParseAll parses an ordered list of configured URIs. The first error
// aborts parsing: a bad source list is a configuration problem, not a
// per-source fetch failure.
func ParseAll(uris []string) ([]Descriptor, error) {
	descriptors := make([]Descriptor, 0, len(uris))
	for i, uri := range uris {
		d, err := Parse(uri, i)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// Hash returns a stable content hash of the source URI, used to key
// per-source working directories and shown by `sources`.
func (d Descriptor) Hash() string {
	sum := sha256.Sum256([]byte(d.URI))
	return hex.EncodeToString(sum[:])
}

// LocalPath returns the filesystem path of a local source, stripping any
// file:// prefix.
func (d Descriptor) LocalPath() string {
	return strings.TrimPrefix(d.URI, "file://")
}

func isVCS(uri string) bool {
	for _, p := range vcsPatterns {
		if strings.HasPrefix(uri, p) || strings.HasSuffix(uri, p) {
			return true
		}
	}
	return false
}

func hasArchiveExtension(uri string) bool {
	lower := strings.ToLower(uri)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
