// Package server exposes the HTTP API: JQL search with cache-aside caching,
// Markdown conversion of caller-provided search results, and the health and
// stats endpoints. Conversions that yield upload items hand them to the
// upload dispatcher and return immediately.
package server
