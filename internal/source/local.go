package source

import (
	"context"
	"fmt"
	"os"
)

// LocalFetcher handles file:// URIs and bare paths. The staged path is
// the source directory itself; nothing is copied.
type LocalFetcher struct{}

func (f *LocalFetcher) Scheme() Scheme { return SchemeLocal }

func (f *LocalFetcher) Fetch(ctx context.Context, d Descriptor, workDir string) (string, error) {
	path := d.LocalPath()

	info, err := os.Stat(path)
	if err != nil {
		// No package tree at the configured path.
		return "", &FetchError{Op: "stat", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}
	if !info.IsDir() {
		return "", &FetchError{Op: "stat", URI: d.URI, Kind: ErrCorruptArchive,
			Err: fmt.Errorf("%s is not a directory", path)}
	}

	// Readability check: an unreadable tree fails here rather than
	// midway through the index walk.
	if _, err := os.ReadDir(path); err != nil {
		return "", &FetchError{Op: "read", URI: d.URI, Kind: ErrAuth, Err: err}
	}

	return path, nil
}
