// Package cache stores downloaded runtime archives across compile runs.
//
// Entries are keyed by runtime version and platform; only empty or corrupted
// entries are ever removed.
// New entries are streamed into a private partial file and committed with an
// atomic rename once the download is complete, so a crash mid-download never
// leaves a truncated archive under the final name. A BLAKE3 sidecar lets later
// runs detect entries that were corrupted after the fact.
package cache
