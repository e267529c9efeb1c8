// Package scrape collects the source clips a render job consumes.
//
// A Source places clips under the run's collect directory and returns their
// paths in render order. Two sources ship: DirectorySource drains a local
// drop folder, and URLListSource fetches a configured URL list through the
// retrying Downloader. The pipeline treats the source as a black box; an
// empty result is decided upstream, not here.
package scrape
