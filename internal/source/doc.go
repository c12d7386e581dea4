// Package source models configured registry sources and the fetch
// strategies that stage their content. A Descriptor pairs a source URI
// with its detected scheme (local path, HTTP archive, VCS repository)
// and its configured priority; ForDescriptor selects the matching
// Fetcher. Fetch failures are typed so the registry can report them
// per source without aborting sibling sources.
package source
