package registry

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/stevedore-labs/stevedore/internal/cache"
	"github.com/stevedore-labs/stevedore/internal/source"
)

// writePackage lays out <root>/<name>/<version>/manifest.yaml with a
// payload file.
func writePackage(t *testing.T, root, name, version, description string) {
	t.Helper()
	dir := filepath.Join(root, name, version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	m := "name: " + name + "\nversion: \"" + version + "\"\n"
	if description != "" {
		m += "description: " + description + "\n"
	}
	m += "files:\n  - payload.txt\n"
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(m), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "payload.txt"), []byte(name+"@"+version), 0644); err != nil {
		t.Fatal(err)
	}
}

// failingFetcher simulates an unreachable source.
type failingFetcher struct{ scheme source.Scheme }

func (f *failingFetcher) Scheme() source.Scheme { return f.scheme }

func (f *failingFetcher) Fetch(ctx context.Context, d source.Descriptor, workDir string) (string, error) {
	return "", &source.FetchError{Op: "fetch", URI: d.URI, Kind: source.ErrNetwork,
		Err: errors.New("connection refused")}
}

// newTestRegistry builds a registry over local directory sources. URIs
// listed in failing get a network-failing fetcher instead.
func newTestRegistry(t *testing.T, sourceDirs []string, failing map[string]bool) *Registry {
	t.Helper()

	descriptors, err := source.ParseAll(sourceDirs)
	if err != nil {
		t.Fatal(err)
	}

	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	return New(store, descriptors,
		WithLogger(log.New(io.Discard)),
		WithFetcherFunc(func(d source.Descriptor) source.Fetcher {
			if failing[d.URI] {
				return &failingFetcher{scheme: d.Scheme}
			}
			return source.ForDescriptor(d)
		}),
	)
}

func mustUpdate(t *testing.T, r *Registry) *UpdateReport {
	t.Helper()
	report, err := r.Update(context.Background())
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	return report
}

func TestUpdate_MergesAllSources(t *testing.T) {
	src1, src2 := t.TempDir(), t.TempDir()
	writePackage(t, src1, "cassandra", "1.0", "")
	writePackage(t, src2, "marathon", "0.5", "")

	r := newTestRegistry(t, []string{src1, src2}, nil)
	report := mustUpdate(t, r)

	if !report.Committed {
		t.Fatal("expected commit")
	}
	for i, o := range report.Outcomes {
		if !o.Succeeded() {
			t.Errorf("source %d failed: %v", i, o.Err)
		}
	}

	for _, name := range []string{"cassandra", "marathon"} {
		if _, err := r.Resolve(name, ""); err != nil {
			t.Errorf("Resolve(%s): %v", name, err)
		}
	}
}

func TestUpdate_PartialFailure(t *testing.T) {
	src1, src2, src3 := t.TempDir(), t.TempDir(), t.TempDir()
	writePackage(t, src1, "cassandra", "1.0", "")
	writePackage(t, src2, "kafka", "2.0", "")
	writePackage(t, src3, "marathon", "0.5", "")

	r := newTestRegistry(t, []string{src1, src2, src3}, map[string]bool{src2: true})
	report := mustUpdate(t, r)

	if !report.Committed {
		t.Fatal("expected commit despite one failed source")
	}
	if report.Outcomes[1].Succeeded() {
		t.Error("source 2 should be marked failed")
	}
	if !errors.Is(report.Outcomes[1].Err, source.ErrNetwork) {
		t.Errorf("expected a network error, got %v", report.Outcomes[1].Err)
	}

	if _, err := r.Resolve("cassandra", ""); err != nil {
		t.Errorf("source 1 content missing: %v", err)
	}
	if _, err := r.Resolve("marathon", ""); err != nil {
		t.Errorf("source 3 content missing: %v", err)
	}
	if _, err := r.Resolve("kafka", ""); err == nil {
		t.Error("failed source's content must be absent")
	}
}

func TestUpdate_AllSourcesFailedPreservesCache(t *testing.T) {
	src := t.TempDir()
	writePackage(t, src, "cassandra", "1.0", "")

	r := newTestRegistry(t, []string{src}, nil)
	mustUpdate(t, r)

	// Same registry, but now the source is unreachable.
	r.fetcherFor = func(d source.Descriptor) source.Fetcher {
		return &failingFetcher{scheme: d.Scheme}
	}

	report, err := r.Update(context.Background())
	if !errors.Is(err, ErrNoSourcesUpdated) {
		t.Fatalf("expected ErrNoSourcesUpdated, got %v", err)
	}
	if report.Committed {
		t.Fatal("zero successes must not commit")
	}

	// Previous generation still answers queries.
	if _, err := r.Resolve("cassandra", ""); err != nil {
		t.Errorf("previous cache should survive a total failure: %v", err)
	}
}

func TestUpdate_NoSourcesConfigured(t *testing.T) {
	r := newTestRegistry(t, nil, nil)
	_, err := r.Update(context.Background())
	if !errors.Is(err, ErrNoSourcesUpdated) {
		t.Fatalf("expected ErrNoSourcesUpdated, got %v", err)
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	src := t.TempDir()
	writePackage(t, src, "cassandra", "1.0", "")
	writePackage(t, src, "cassandra", "1.1", "")

	r := newTestRegistry(t, []string{src}, nil)
	mustUpdate(t, r)
	first, err := r.Resolve("cassandra", "")
	if err != nil {
		t.Fatal(err)
	}

	mustUpdate(t, r)
	second, err := r.Resolve("cassandra", "")
	if err != nil {
		t.Fatal(err)
	}

	if first.Name != second.Name || first.Version != second.Version ||
		first.SourcePriority != second.SourcePriority {
		t.Errorf("repeated update changed resolution: %+v vs %+v", first, second)
	}
}

func TestUpdate_EmptySourceFails(t *testing.T) {
	empty := t.TempDir()
	good := t.TempDir()
	writePackage(t, good, "cassandra", "1.0", "")

	r := newTestRegistry(t, []string{empty, good}, nil)
	report := mustUpdate(t, r)

	if report.Outcomes[0].Succeeded() {
		t.Error("empty source should fail its update")
	}
	if !report.Outcomes[1].Succeeded() {
		t.Errorf("sibling source should still succeed: %v", report.Outcomes[1].Err)
	}
}

func TestUpdate_Cancelled(t *testing.T) {
	src := t.TempDir()
	writePackage(t, src, "cassandra", "1.0", "")

	r := newTestRegistry(t, []string{src}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Update(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled update")
	}
	if report.Committed {
		t.Error("cancelled update must not commit")
	}
}
