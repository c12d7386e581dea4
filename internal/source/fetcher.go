package source

import "context"

// Fetcher retrieves the content addressed by a Descriptor into a staging
// location on disk. One implementation exists per scheme; selection
// happens once, at descriptor-parse time, via ForDescriptor.
type Fetcher interface {
	// Scheme returns the scheme this fetcher handles.
	Scheme() Scheme

	// Fetch stages the source's package tree and returns the staged
	// directory. workDir is a per-source scratch directory owned by the
	// caller; fetchers may reuse it across updates (VCS working copies)
	// or treat it as throwaway (archive extraction). Failures are typed:
	// *FetchError wrapping ErrNetwork, ErrAuth, or ErrCorruptArchive.
	Fetch(ctx context.Context, d Descriptor, workDir string) (string, error)
}

// ForDescriptor returns the fetcher for a descriptor's scheme.
func ForDescriptor(d Descriptor) Fetcher {
	switch d.Scheme {
	case SchemeHTTPZip:
		return &HTTPZipFetcher{}
	case SchemeVCS:
		return &GitFetcher{}
	default:
		return &LocalFetcher{}
	}
}
