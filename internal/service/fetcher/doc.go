// Package fetcher installs the Node.js runtime into the build directory.
//
// Archives are kept in the build cache keyed by version and platform. On a miss
// the archive is streamed once from the mirror into both the cache and the
// extractor; on a hit it is extracted from the cache without touching the
// network. A requested npm version replaces the bundled one afterwards.
package fetcher
