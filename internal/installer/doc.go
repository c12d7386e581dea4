// Package installer unpacks resolved package entries from the cache
// into the installed root. It is a thin collaborator over the stable
// cache layout: resolution and failure reporting live in registry.
package installer
