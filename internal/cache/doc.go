// Package cache defines the disk-backed thumbnail store. One Store owns one
// cache directory and maps asset ids to <dir>/<id><ext> files. Presence of that
// file is the only cache-hit signal: there is no checksum, expiry or sidecar
// metadata per entry. Writes stream into a temporary file in the same
// directory and are renamed into place only after the advertised length has
// been verified, so a truncated transfer never leaves a partial entry behind.
// The optional manifest records per-record fetch status for a directory.
package cache
