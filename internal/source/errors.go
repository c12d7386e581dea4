package source

import (
	"errors"
	"fmt"
)

// Failure kinds for per-source fetch errors. A FetchError wraps exactly
// one of these so callers can classify with errors.Is.
var (
	ErrNetwork        = errors.New("network error")
	ErrAuth           = errors.New("authentication required")
	ErrCorruptArchive = errors.New("corrupt archive")
)

// ConfigError reports a bad source URI in the configured source list.
// It is fatal to the whole update: nothing is fetched.
type ConfigError struct {
	URI    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("invalid source: %s", e.Reason)
	}
	return fmt.Sprintf("invalid source %s: %s", e.URI, e.Reason)
}

// FetchError reports a per-source fetch failure. Kind is one of the
// sentinel errors above; Err carries the underlying cause.
type FetchError struct {
	Op   string // operation, e.g. "http download", "git clone"
	URI  string
	Kind error
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Kind }
