// Package thumbnail keeps a cache directory populated with one thumbnail per
// catalog record. Ensure partitions records into cache hits and misses, fetches
// the misses concurrently behind a bounded gate, and returns only after every
// fetch has finished. Failures are reported per record and never cancel
// sibling fetches.
//
// Each record moves through NOT_REQUESTED -> IN_FLIGHT -> {CACHED | FAILED}
// exactly once per call.
package thumbnail
