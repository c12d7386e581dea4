package source

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestForDescriptor(t *testing.T) {
	cases := []struct {
		uri  string
		want Scheme
	}{
		{"/some/path", SchemeLocal},
		{"https://my.org/r.zip", SchemeHTTPZip},
		{"git://github.com/org/repo.git", SchemeVCS},
	}
	for _, c := range cases {
		d := mustParse(t, c.uri, 0)
		if got := ForDescriptor(d).Scheme(); got != c.want {
			t.Errorf("ForDescriptor(%q).Scheme() = %s, want %s", c.uri, got, c.want)
		}
	}
}

func TestLocalFetcher(t *testing.T) {
	tmp := t.TempDir()
	d := mustParse(t, tmp, 0)

	staged, err := (&LocalFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if staged != tmp {
		t.Errorf("local staged path should be the source itself, got %q", staged)
	}
}

func TestLocalFetcher_Missing(t *testing.T) {
	d := mustParse(t, "/definitely/not/here", 0)
	_, err := (&LocalFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if !errors.Is(err, ErrCorruptArchive) {
		t.Errorf("missing path should report no package tree, got %v", err)
	}
}

func TestLocalFetcher_NotADirectory(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "file")
	os.WriteFile(file, []byte("x"), 0644)

	_, err := (&LocalFetcher{}).Fetch(context.Background(), mustParse(t, file, 0), t.TempDir())
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive, got %v", err)
	}
}

// buildZip returns a zip archive containing the given name→content map.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHTTPZipFetcher(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"cassandra/1.0/manifest.yaml": "name: cassandra\nversion: \"1.0\"\n",
		"cassandra/1.0/config.yaml":   "cluster: test\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	d := Descriptor{URI: srv.URL + "/registry.zip", Scheme: SchemeHTTPZip}
	staged, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manifestPath := filepath.Join(staged, "cassandra", "1.0", "manifest.yaml")
	if _, err := os.Stat(manifestPath); err != nil {
		t.Errorf("expected extracted manifest at %s: %v", manifestPath, err)
	}
}

// buildZipWithDirs returns a zip archive with explicit directory
// entries, the way command-line zip tools write them.
func buildZipWithDirs(t *testing.T, dirs []string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, dir := range dirs {
		if _, err := zw.Create(dir); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildTarGz returns a tar.gz archive with entries in the given order.
func buildTarGz(t *testing.T, names []string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, name := range names {
		content := files[name]
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gzw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func serveArchive(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireStagedFiles(t *testing.T, staged string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(staged, filepath.FromSlash(p))
		if _, err := os.Stat(full); err != nil {
			t.Errorf("expected extracted file at %s: %v", p, err)
		}
	}
}

func TestHTTPZipFetcher_MultiPackageArchive(t *testing.T) {
	// Directory entries at the archive root: every package must keep its
	// <pkg>/<version>/ path, no entry may be hoisted.
	archive := buildZipWithDirs(t,
		[]string{"cassandra/", "cassandra/1.0/", "marathon/", "marathon/0.5/"},
		map[string]string{
			"cassandra/1.0/manifest.yaml": "name: cassandra\nversion: \"1.0\"\n",
			"marathon/0.5/manifest.yaml":  "name: marathon\nversion: \"0.5\"\n",
		})
	srv := serveArchive(t, archive)

	d := Descriptor{URI: srv.URL + "/registry.zip", Scheme: SchemeHTTPZip}
	staged, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireStagedFiles(t, staged,
		"cassandra/1.0/manifest.yaml",
		"marathon/0.5/manifest.yaml")
}

func TestHTTPZipFetcher_FlatTarGz(t *testing.T) {
	archive := buildTarGz(t,
		[]string{"marathon/0.5/manifest.yaml", "cassandra/1.0/manifest.yaml"},
		map[string]string{
			"marathon/0.5/manifest.yaml":  "name: marathon\nversion: \"0.5\"\n",
			"cassandra/1.0/manifest.yaml": "name: cassandra\nversion: \"1.0\"\n",
		})
	srv := serveArchive(t, archive)

	d := Descriptor{URI: srv.URL + "/registry.tar.gz", Scheme: SchemeHTTPZip}
	staged, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireStagedFiles(t, staged,
		"marathon/0.5/manifest.yaml",
		"cassandra/1.0/manifest.yaml")
}

func TestHTTPZipFetcher_WrappedArchive(t *testing.T) {
	// A single wrapper directory around the registry tree is stripped,
	// the way source-tarball exports wrap their contents.
	archive := buildTarGz(t,
		[]string{
			"registry-abc123/cassandra/1.0/manifest.yaml",
			"registry-abc123/marathon/0.5/manifest.yaml",
		},
		map[string]string{
			"registry-abc123/cassandra/1.0/manifest.yaml": "name: cassandra\nversion: \"1.0\"\n",
			"registry-abc123/marathon/0.5/manifest.yaml":  "name: marathon\nversion: \"0.5\"\n",
		})
	srv := serveArchive(t, archive)

	d := Descriptor{URI: srv.URL + "/registry.tar.gz", Scheme: SchemeHTTPZip}
	staged, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireStagedFiles(t, staged,
		"cassandra/1.0/manifest.yaml",
		"marathon/0.5/manifest.yaml")
}

func TestWrapperDir(t *testing.T) {
	cases := []struct {
		name    string
		entries []archiveEntry
		want    string
	}{
		{"wrapped tree", []archiveEntry{
			{"bundle/", true},
			{"bundle/cassandra/1.0/manifest.yaml", false},
		}, "bundle"},
		{"single package at root", []archiveEntry{
			{"cassandra/1.0/manifest.yaml", false},
		}, ""},
		{"two top dirs", []archiveEntry{
			{"cassandra/", true},
			{"marathon/", true},
		}, ""},
		{"file at root", []archiveEntry{
			{"bundle/cassandra/1.0/manifest.yaml", false},
			{"README", false},
		}, ""},
		{"escaping entry", []archiveEntry{
			{"../escape.txt", false},
		}, ""},
	}
	for _, c := range cases {
		if got := wrapperDir(c.entries); got != c.want {
			t.Errorf("%s: wrapperDir = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestHTTPZipFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := Descriptor{URI: srv.URL + "/registry.zip", Scheme: SchemeHTTPZip}
	_, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestHTTPZipFetcher_AuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := Descriptor{URI: srv.URL + "/registry.zip", Scheme: SchemeHTTPZip}
	_, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestHTTPZipFetcher_CorruptArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a zip file"))
	}))
	defer srv.Close()

	d := Descriptor{URI: srv.URL + "/registry.zip", Scheme: SchemeHTTPZip}
	_, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive, got %v", err)
	}
}

func TestHTTPZipFetcher_Unreachable(t *testing.T) {
	// Reserve a port and close the server so the address refuses connections.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := Descriptor{URI: url + "/registry.zip", Scheme: SchemeHTTPZip}
	_, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestHTTPZipFetcher_ZipSlip(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"../escape.txt": "evil",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	d := Descriptor{URI: srv.URL + "/registry.zip", Scheme: SchemeHTTPZip}
	_, err := (&HTTPZipFetcher{}).Fetch(context.Background(), d, t.TempDir())
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive for escaping entry, got %v", err)
	}
}
