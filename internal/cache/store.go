package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stevedore-labs/stevedore/internal/index"
	"github.com/stevedore-labs/stevedore/internal/source"
)

const (
	pointerFileName = "current"
	genPrefix       = "gen-"
	stagingPrefix   = "staging-"
)

// WriteError reports a failed cache write (disk full, permissions). It
// is fatal to the update; the previous cache generation stays live.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Store owns the on-disk package cache. Generations live under the root
// as gen-<n> directories; a single pointer file names the live one.
// Readers only ever see a fully committed generation because the pointer
// is replaced atomically, after the generation is complete on disk.
type Store struct {
	root string

	mu sync.Mutex // serializes commits: single-writer discipline
}

// Open prepares a store rooted at root, creating the directory if needed.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &WriteError{Op: "open", Err: err}
	}
	return &Store{root: root}, nil
}

// Root returns the cache root path.
func (s *Store) Root() string { return s.root }

// sweepStaging removes staging directories abandoned by interrupted
// updates. Updates are serialized, so any staging entry present when a
// new transaction begins is an orphan.
func (s *Store) sweepStaging() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), stagingPrefix) {
			os.RemoveAll(filepath.Join(s.root, e.Name()))
		}
	}
}

// Txn is one cache replacement in progress. Replace stages per-source
// trees; Commit makes the staged generation live; Abort discards it.
type Txn struct {
	store *Store
	dir   string
	meta  Meta
	done  bool
}

// Begin starts a new cache replacement in an isolated staging directory
// under the cache root (same filesystem, so the final rename is cheap).
// Staging directories left behind by a crashed update are swept first.
func (s *Store) Begin() (*Txn, error) {
	s.sweepStaging()
	dir, err := os.MkdirTemp(s.root, stagingPrefix)
	if err != nil {
		return nil, &WriteError{Op: "staging", Err: err}
	}
	return &Txn{
		store: s,
		dir:   dir,
		meta:  Meta{LayoutVersion: layoutVersion},
	}, nil
}

// Replace stores a fully built per-source index under the staging tree,
// laid out as <source-index>/<package>/<version>/manifest plus files.
// Safe to call concurrently for distinct sources: each writes a disjoint
// subtree and appends a disjoint meta record via the store lock.
func (t *Txn) Replace(d source.Descriptor, ix *index.Index) error {
	base := filepath.Join(t.dir, strconv.Itoa(d.Priority))

	for _, name := range ix.Names() {
		for _, e := range ix.Entries(name) {
			dst := filepath.Join(base, e.Name, e.Version)
			if err := copyDir(e.Dir, dst); err != nil {
				return &WriteError{Op: "replace " + d.URI, Err: err}
			}
		}
	}

	t.recordOutcome(SourceMeta{
		URI:       d.URI,
		Scheme:    d.Scheme.String(),
		Priority:  d.Priority,
		Succeeded: true,
		FetchedAt: time.Now().UTC(),
		Packages:  ix.Len(),
	})
	return nil
}

// RecordFailure notes a source that could not be fetched or indexed this
// update. Failed sources contribute no entries to the new generation.
func (t *Txn) RecordFailure(d source.Descriptor, reason string) {
	t.recordOutcome(SourceMeta{
		URI:      d.URI,
		Scheme:   d.Scheme.String(),
		Priority: d.Priority,
		Error:    reason,
	})
}

func (t *Txn) recordOutcome(sm SourceMeta) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.meta.Sources = append(t.meta.Sources, sm)
}

// Commit writes index.meta, promotes the staging tree to the next
// generation, and atomically repoints the live cache at it. The previous
// generation is removed only after the pointer swap.
func (t *Txn) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.done {
		return errors.New("cache transaction already finished")
	}
	t.done = true

	// Meta records must appear in configured priority order regardless
	// of which source finished first.
	sortMetaSources(&t.meta)
	t.meta.UpdatedAt = time.Now().UTC()

	if err := writeMeta(t.dir, &t.meta); err != nil {
		os.RemoveAll(t.dir)
		return &WriteError{Op: "write index.meta", Err: err}
	}

	prev, prevGen := t.store.currentGeneration()
	genDir := filepath.Join(t.store.root, genPrefix+strconv.Itoa(prevGen+1))

	if err := os.Rename(t.dir, genDir); err != nil {
		os.RemoveAll(t.dir)
		return &WriteError{Op: "promote generation", Err: err}
	}

	if err := t.store.writePointer(filepath.Base(genDir)); err != nil {
		os.RemoveAll(genDir)
		return err
	}

	// The old generation is unreachable now. Removal is best effort; a
	// leftover directory is garbage, not corruption.
	if prev != "" {
		os.RemoveAll(filepath.Join(t.store.root, prev))
	}
	return nil
}

// Abort discards the staging tree. Safe to call after Commit.
func (t *Txn) Abort() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	os.RemoveAll(t.dir)
}

// Load reads the live cache generation and merges all per-source indexes
// in source priority order. A store that has never committed returns an
// empty index: "no cache yet" is a valid state, not an error.
func (s *Store) Load() (*index.Index, *Meta, error) {
	current, _ := s.currentGeneration()
	if current == "" {
		return index.New(), nil, nil
	}
	genDir := filepath.Join(s.root, current)

	meta, err := readMeta(genDir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading cache metadata: %w", err)
	}
	if meta.LayoutVersion != layoutVersion {
		return nil, nil, fmt.Errorf("cache layout version %d not supported (want %d); run update",
			meta.LayoutVersion, layoutVersion)
	}

	parts := make([]*index.Index, 0, len(meta.Sources))
	for _, sm := range meta.Sources {
		if !sm.Succeeded {
			continue
		}
		srcDir := filepath.Join(genDir, strconv.Itoa(sm.Priority))
		ix, _, err := index.Build(srcDir, sm.Priority, sm.URI)
		if err != nil {
			// A committed source tree that no longer indexes is skipped
			// rather than poisoning the whole merged view.
			continue
		}
		parts = append(parts, ix)
	}

	return index.Merge(parts...), meta, nil
}

// LastUpdated returns the last successful fetch time recorded for a
// source URI, or false if the live generation has none.
func (s *Store) LastUpdated(uri string) (time.Time, bool) {
	_, meta, err := s.Load()
	if err != nil || meta == nil {
		return time.Time{}, false
	}
	for _, sm := range meta.Sources {
		if sm.URI == uri && sm.Succeeded {
			return sm.FetchedAt, true
		}
	}
	return time.Time{}, false
}

// currentGeneration reads the pointer file. Returns the live generation
// directory name (or "") and its number (or 0).
func (s *Store) currentGeneration() (string, int) {
	data, err := os.ReadFile(filepath.Join(s.root, pointerFileName))
	if err != nil {
		return "", 0
	}
	name := strings.TrimSpace(string(data))
	if !strings.HasPrefix(name, genPrefix) {
		return "", 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, genPrefix))
	if err != nil {
		return "", 0
	}
	return name, n
}

// writePointer atomically replaces the pointer file via
// write-temp-then-rename. This is the single commit point readers race
// against; rename within one directory is atomic.
func (s *Store) writePointer(generation string) error {
	tmp, err := os.CreateTemp(s.root, pointerFileName+"-*")
	if err != nil {
		return &WriteError{Op: "write pointer", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(generation + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Op: "write pointer", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Op: "write pointer", Err: err}
	}
	if err := os.Rename(tmpName, filepath.Join(s.root, pointerFileName)); err != nil {
		os.Remove(tmpName)
		return &WriteError{Op: "write pointer", Err: err}
	}
	return nil
}

func sortMetaSources(meta *Meta) {
	sort.Slice(meta.Sources, func(i, j int) bool {
		return meta.Sources[i].Priority < meta.Sources[j].Priority
	})
}
