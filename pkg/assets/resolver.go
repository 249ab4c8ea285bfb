package assets

import "strings"

// Resolver maps a logical asset name to the URL path the browser
// should request. Builds resolve through the fingerprint manifest so
// pages reference hashed file names; the dev server hands names out
// unchanged so edits stay addressable.
type Resolver interface {
	Asset(name string) string
}

// urlResolver joins a normalized URL prefix with the resolved name.
// A nil manifest means passthrough.
type urlResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver returns a Resolver that rewrites names through the
// manifest before prefixing. Names absent from the manifest pass
// through untouched, so files copied without fingerprints still
// resolve.
func NewResolver(m *Manifest, prefix string) Resolver {
	return &urlResolver{manifest: m, prefix: normalizePrefix(prefix)}
}

// NewPassthroughResolver returns a Resolver that only applies the
// prefix. Using the same prefix in dev and in builds keeps template
// asset references identical across both.
func NewPassthroughResolver(prefix string) Resolver {
	return &urlResolver{prefix: normalizePrefix(prefix)}
}

func (r *urlResolver) Asset(name string) string {
	name = strings.TrimPrefix(name, "/")
	if r.manifest != nil {
		name = r.manifest.Resolve(name)
	}
	return r.prefix + name
}

// normalizePrefix forces a non-empty prefix to end in exactly one
// slash so Asset never emits "//name" or "prefixname".
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}
