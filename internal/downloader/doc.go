// Package downloader fetches the segments of a playlist into a dump
// directory.
//
// A [SegmentDownloader] handles one [Job]: it skips segments the ledger
// already holds, streams the body into a temporary file, renames it to the
// segment name and records the name in the ledger.
//
// A [Coordinator] runs one job per playlist segment, at or after the
// start-from marker, with bounded concurrency. Jobs are dispatched in
// playlist order; completion order is unconstrained.
//
// # Failure Policy
//
// The first failed segment aborts the dump lazily:
//   - No job starts after the failure is seen
//   - Downloads already running are allowed to finish
//   - The first error is returned once they have drained
//
// Retrying is left to the HTTP client; the coordinator never retries.
package downloader
