// Package routes registers the thumbhub HTTP endpoints on a Fiber app:
// diagnostics under /-/ and the per-catalog asset endpoints under
// /:catalog/assets.
package routes
