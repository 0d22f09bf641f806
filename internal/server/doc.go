// Package server hosts the local Fiber HTTP surface that the host
// application's browser windows talk to, plus the catalog registry and the
// shared upstream HTTP client. The registry resolves every configured catalog
// once at startup (parsed base/proxy URLs, asset kind, cache directory) so
// request handlers and the CLI sync path reuse the same view of the config.
// Keep exports narrow and accept explicit dependencies.
package server
