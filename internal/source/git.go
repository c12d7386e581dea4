package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitFetcher maintains a shallow working copy of a VCS source under the
// source's work dir. The first fetch clones; later fetches update the
// existing checkout in place.
type GitFetcher struct{}

func (f *GitFetcher) Scheme() Scheme { return SchemeVCS }

func (f *GitFetcher) Fetch(ctx context.Context, d Descriptor, workDir string) (string, error) {
	checkout := filepath.Join(workDir, "checkout")

	if _, err := os.Stat(filepath.Join(checkout, ".git")); err == nil {
		if err := f.update(ctx, d, checkout); err != nil {
			return "", err
		}
		return checkout, nil
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", &FetchError{Op: "git clone", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}
	// A leftover partial clone would make `git clone` fail on a
	// non-empty directory.
	if err := os.RemoveAll(checkout); err != nil {
		return "", &FetchError{Op: "git clone", URI: d.URI, Kind: ErrCorruptArchive, Err: err}
	}

	if err := runGit(ctx, d, "git clone", "", "clone", "--depth", "1", normalizeGitURL(d.URI), checkout); err != nil {
		return "", err
	}
	return checkout, nil
}

// update refreshes an existing checkout to the remote head.
func (f *GitFetcher) update(ctx context.Context, d Descriptor, checkout string) error {
	if err := runGit(ctx, d, "git fetch", checkout, "fetch", "--depth", "1", "origin"); err != nil {
		return err
	}
	return runGit(ctx, d, "git reset", checkout, "reset", "--hard", "FETCH_HEAD")
}

// Commit returns the HEAD commit SHA of a checkout, or "" if unknown.
func (f *GitFetcher) Commit(checkout string) string {
	cmd := exec.Command("git", "-C", checkout, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// runGit executes a git subcommand and maps its failure to a typed
// FetchError by sniffing stderr.
func runGit(ctx context.Context, d Descriptor, op, dir string, args ...string) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdout = nil
	cmd.Stderr = &stderr
	// Never prompt for credentials during an unattended update.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return &FetchError{Op: op, URI: d.URI, Kind: ErrNetwork, Err: ctx.Err()}
	}
	return &FetchError{Op: op, URI: d.URI, Kind: classifyGitFailure(stderr.String()), Err: err}
}

// classifyGitFailure maps git's stderr text onto the fetch error taxonomy.
func classifyGitFailure(stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "could not read username"):
		return ErrAuth
	case strings.Contains(lower, "could not resolve") ||
		strings.Contains(lower, "unable to access") ||
		strings.Contains(lower, "connection") ||
		strings.Contains(lower, "timed out"):
		return ErrNetwork
	default:
		return ErrNetwork
	}
}

// ErrGitMissing is returned by CheckGit when no git binary is on PATH.
var ErrGitMissing = errors.New("git executable not found in PATH")

// CheckGit verifies a git binary is available for VCS sources.
func CheckGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitMissing
	}
	return nil
}

// normalizeGitURL converts git:// and scp-like URLs to forms git accepts
// over HTTPS where possible; HTTPS and ssh URLs pass through unchanged.
func normalizeGitURL(uri string) string {
	if strings.HasPrefix(uri, "git://") {
		return "https://" + strings.TrimPrefix(uri, "git://")
	}
	return uri
}
