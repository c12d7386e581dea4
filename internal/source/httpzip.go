package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HTTPZipFetcher downloads an archive bundle over HTTP(S) and extracts it
// into a fresh directory under the source's work dir.
type HTTPZipFetcher struct {
	// Client overrides the HTTP client; nil means http.DefaultClient.
	Client *http.Client
}

func (f *HTTPZipFetcher) Scheme() Scheme { return SchemeHTTPZip }

func (f *HTTPZipFetcher) Fetch(ctx context.Context, d Descriptor, workDir string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", &FetchError{Op: "staging", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}

	tmpFile, err := os.CreateTemp(workDir, "download-*")
	if err != nil {
		return "", &FetchError{Op: "staging", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URI, nil)
	if err != nil {
		return "", &FetchError{Op: "http download", URI: d.URI, Kind: ErrNetwork, Err: err}
	}
	req.Header.Set("User-Agent", "stevedore")

	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{Op: "http download", URI: d.URI, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &FetchError{Op: "http download", URI: d.URI, Kind: ErrAuth,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return "", &FetchError{Op: "http download", URI: d.URI, Kind: ErrNetwork,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		return "", &FetchError{Op: "http download", URI: d.URI, Kind: ErrNetwork, Err: err}
	}

	// Transfer-completeness check: a declared Content-Length must match
	// what was read, otherwise the stream was cut short.
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return "", &FetchError{Op: "http download", URI: d.URI, Kind: ErrNetwork,
			Err: fmt.Errorf("short read: got %d of %d bytes", written, resp.ContentLength)}
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return "", &FetchError{Op: "extract", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}

	// Extract into a fresh directory so a partial extraction from a
	// previous run is never mistaken for a staged tree.
	stagedDir := filepath.Join(workDir, "staged")
	if err := os.RemoveAll(stagedDir); err != nil {
		return "", &FetchError{Op: "extract", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}
	if err := os.MkdirAll(stagedDir, 0755); err != nil {
		return "", &FetchError{Op: "extract", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}

	lower := strings.ToLower(d.URI)
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		err = extractTarGz(tmpFile, stagedDir)
	} else {
		err = extractZip(tmpFile.Name(), stagedDir)
	}
	if err != nil {
		return "", &FetchError{Op: "extract", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}

	return stagedDir, nil
}

// extractTarGz unpacks a tar.gz stream into destPath, stripping the
// archive's wrapper directory if it has one.
func extractTarGz(r io.ReadSeeker, destPath string) error {
	entries, err := scanTarGz(r)
	if err != nil {
		return err
	}
	topDir := wrapperDir(entries)

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		name := stripTopDir(header.Name, topDir)
		if name == "" {
			continue
		}

		target, err := securePath(destPath, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}

	return nil
}

// scanTarGz reads every header of a tar.gz stream without extracting,
// so the wrapper decision can see the whole archive first.
func scanTarGz(r io.Reader) ([]archiveEntry, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	var entries []archiveEntry
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch header.Typeflag {
		case tar.TypeDir, tar.TypeReg:
			entries = append(entries, archiveEntry{
				name: header.Name,
				dir:  header.Typeflag == tar.TypeDir,
			})
		}
	}
	return entries, nil
}

// extractZip unpacks a zip archive into destPath, stripping the
// archive's wrapper directory if it has one.
func extractZip(zipPath, destPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	entries := make([]archiveEntry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, archiveEntry{name: f.Name, dir: f.FileInfo().IsDir()})
	}
	topDir := wrapperDir(entries)

	for _, f := range r.File {
		name := stripTopDir(f.Name, topDir)
		if name == "" {
			continue
		}

		target, err := securePath(destPath, name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}

		outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// archiveEntry is one header from a scanned archive.
type archiveEntry struct {
	name string
	dir  bool
}

// wrapperDir returns the single top-level directory that wraps every
// archive entry, or "" when the entries already form a registry tree
// and nothing should be stripped. Package files live at
// <pkg>/<version>/<file>, so a file two levels below the candidate
// means the top directory is itself a package, not a wrapper.
func wrapperDir(entries []archiveEntry) string {
	top := ""
	for _, e := range entries {
		name := strings.TrimSuffix(e.name, "/")
		if name == "" {
			continue
		}
		first, rest, nested := strings.Cut(name, "/")
		if first == "" || first == "." || first == ".." {
			return ""
		}
		if !nested && !e.dir {
			// A file at the archive root rules out any wrapper.
			return ""
		}
		if nested && !e.dir && strings.Count(rest, "/") == 1 {
			return ""
		}
		if top == "" {
			top = first
		} else if top != first {
			return ""
		}
	}
	return top
}

func stripTopDir(name, topDir string) string {
	if topDir != "" && strings.HasPrefix(name, topDir+"/") {
		name = strings.TrimPrefix(name, topDir+"/")
	}
	return name
}

// securePath joins name under dest and rejects entries that escape it.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}
