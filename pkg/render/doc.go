// Package render turns route entries into HTML and caches the result.
//
// Rendering is pure with respect to the page sources on disk: the same
// entry, parameters, and source snapshot always produce the same output.
// Cached output is stamped with the invalidation epoch current at render
// time; bumping the epoch makes every older stamp stale at once without
// touching individual cache entries.
package render
