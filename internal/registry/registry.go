package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/stevedore-labs/stevedore/internal/cache"
	"github.com/stevedore-labs/stevedore/internal/index"
	"github.com/stevedore-labs/stevedore/internal/source"
)

// ErrNoSourcesUpdated is returned by Update when every configured source
// failed. The previous cache generation stays live.
var ErrNoSourcesUpdated = errors.New("no package source could be updated")

// Registry coordinates the configured sources, the cache store, and the
// merged package index. It owns the in-memory index for the lifetime of
// one command invocation.
type Registry struct {
	descriptors  []source.Descriptor
	store        *cache.Store
	fetchTimeout time.Duration
	workers      int
	logger       *log.Logger
	fetcherFor   func(source.Descriptor) source.Fetcher

	merged *index.Index
	loaded bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithFetchTimeout bounds each source's fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Registry) { r.fetchTimeout = d }
}

// WithWorkers sets the size of the update worker pool.
func WithWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger overrides the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithFetcherFunc overrides fetcher selection (used by tests to inject
// failing fetchers).
func WithFetcherFunc(fn func(source.Descriptor) source.Fetcher) Option {
	return func(r *Registry) { r.fetcherFor = fn }
}

// New builds a Registry over an opened cache store and an ordered list
// of source descriptors (index 0 = highest priority).
func New(store *cache.Store, descriptors []source.Descriptor, opts ...Option) *Registry {
	r := &Registry{
		descriptors:  descriptors,
		store:        store,
		fetchTimeout: 2 * time.Minute,
		workers:      4,
		logger:       log.Default(),
		fetcherFor:   source.ForDescriptor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SourceOutcome is the per-source result of one Update.
type SourceOutcome struct {
	URI      string
	Scheme   source.Scheme
	Priority int
	Packages int
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the source fetched and indexed cleanly.
func (o SourceOutcome) Succeeded() bool { return o.Err == nil }

// UpdateReport summarizes an Update: one outcome per configured source,
// in configured priority order, plus whether a new cache generation was
// committed.
type UpdateReport struct {
	Outcomes  []SourceOutcome
	Committed bool
}

// Update fetches every configured source, builds each source's index,
// and atomically replaces the cache with the merged result. Sources are
// fetched concurrently but the committed view always reflects configured
// priority order. Per-source failures are reported, not propagated; the
// update commits as long as at least one source succeeded. With zero
// successes the previous cache is left untouched and ErrNoSourcesUpdated
// is returned alongside the report.
func (r *Registry) Update(ctx context.Context) (*UpdateReport, error) {
	report := &UpdateReport{Outcomes: make([]SourceOutcome, len(r.descriptors))}
	if len(r.descriptors) == 0 {
		return report, ErrNoSourcesUpdated
	}

	txn, err := r.store.Begin()
	if err != nil {
		return report, err
	}
	defer txn.Abort()

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, d := range r.descriptors {
		g.Go(func() error {
			report.Outcomes[i] = r.updateSource(ctx, txn, d)
			return nil
		})
	}
	g.Wait()

	// A cache write failure is not a source's fault: abort the whole
	// transaction so the previous generation survives intact.
	var writeErr *cache.WriteError
	for _, o := range report.Outcomes {
		if errors.As(o.Err, &writeErr) {
			return report, writeErr
		}
	}

	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	succeeded := 0
	for _, o := range report.Outcomes {
		if o.Succeeded() {
			succeeded++
		}
	}
	if succeeded == 0 {
		return report, ErrNoSourcesUpdated
	}

	if err := txn.Commit(); err != nil {
		return report, err
	}
	report.Committed = true
	r.invalidate()
	return report, nil
}

// updateSource runs fetch → build → stage for one source and returns its
// outcome. Every failure is captured here so sibling sources proceed.
func (r *Registry) updateSource(ctx context.Context, txn *cache.Txn, d source.Descriptor) SourceOutcome {
	outcome := SourceOutcome{URI: d.URI, Scheme: d.Scheme, Priority: d.Priority}
	start := time.Now()
	defer func() { outcome.Duration = time.Since(start) }()

	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	r.logger.Debug("fetching source", "uri", d.URI, "scheme", d.Scheme.String())

	fetcher := r.fetcherFor(d)
	staged, err := fetcher.Fetch(ctx, d, r.sourceWorkDir(d))
	if err != nil {
		r.logger.Warn("source fetch failed", "uri", d.URI, "err", err)
		txn.RecordFailure(d, err.Error())
		outcome.Err = err
		return outcome
	}

	ix, warnings, err := index.Build(staged, d.Priority, d.URI)
	for _, w := range warnings {
		r.logger.Warn("skipping manifest", "uri", d.URI, "path", w.Path, "reason", w.Reason)
	}
	if err != nil {
		r.logger.Warn("source index failed", "uri", d.URI, "err", err)
		txn.RecordFailure(d, err.Error())
		outcome.Err = err
		return outcome
	}

	if err := txn.Replace(d, ix); err != nil {
		txn.RecordFailure(d, err.Error())
		outcome.Err = err
		return outcome
	}

	outcome.Packages = ix.Len()
	r.logger.Debug("source updated", "uri", d.URI, "packages", ix.Len())
	return outcome
}

// sourceWorkDir returns the scratch directory dedicated to one source.
// VCS checkouts persist here between updates; archive fetchers treat it
// as throwaway space.
func (r *Registry) sourceWorkDir(d source.Descriptor) string {
	return filepath.Join(r.store.Root(), "work", d.Hash()[:12])
}

// LastUpdated reports when a source URI last fetched successfully.
func (r *Registry) LastUpdated(uri string) (time.Time, bool) {
	return r.store.LastUpdated(uri)
}

// loadMerged reads the live cache generation once per invocation.
func (r *Registry) loadMerged() (*index.Index, error) {
	if r.loaded {
		return r.merged, nil
	}
	merged, _, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading package cache: %w", err)
	}
	r.merged = merged
	r.loaded = true
	return r.merged, nil
}

func (r *Registry) invalidate() {
	r.merged = nil
	r.loaded = false
}
