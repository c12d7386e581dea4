// Package registry is the top-level coordinator: it drives Update
// (fetch every configured source, build each index, atomically replace
// the cache) and answers Search, Describe, and Resolve queries against
// the merged view. Sources update concurrently; resolution order always
// follows the user's configured source priority.
package registry
