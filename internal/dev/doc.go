// Package dev implements the development server: a file watcher feeding
// a debounced change detector, a WebSocket reload hub, and an HTTP server
// that renders routes on demand through the epoch-stamped cache.
//
// The pipeline is watch -> debounce -> classify -> invalidate -> broadcast.
// A burst of file events collapses into a single batch; the batch bumps
// the invalidation epoch exactly once and produces exactly one reload
// message for connected browsers.
package dev
