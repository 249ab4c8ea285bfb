// Package routes builds and queries the route table of a page-source tree.
//
// A directory under the page root is a route when it contains an index.html
// entry unit. Directory segments wrapped in brackets ([slug]) are dynamic
// placeholders that capture one segment of a concrete request path. Each
// route knows its nearest ancestor layout and its style cascade
// (global → layout → page).
//
// The table is immutable once built; rebuilds replace it wholesale. Dynamic
// routes are ordered by specificity at build time so resolution is
// deterministic regardless of file-system iteration order.
package routes
