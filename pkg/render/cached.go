package render

import "context"

// CachedRenderer wraps a Renderer with an epoch-stamped cache. Renders
// that fail are never stored, so the next request retries from scratch.
type CachedRenderer struct {
	inner Renderer
	cache *Cache
}

// NewCachedRenderer composes a renderer and a cache.
func NewCachedRenderer(inner Renderer, cache *Cache) *CachedRenderer {
	return &CachedRenderer{inner: inner, cache: cache}
}

// Render returns the cached document when fresh, otherwise renders and
// stores the result.
func (c *CachedRenderer) Render(ctx context.Context, page Page) (string, error) {
	key := page.CacheKey()
	if html, ok := c.cache.Get(key); ok {
		return html, nil
	}

	html, err := c.inner.Render(ctx, page)
	if err != nil {
		return "", err
	}
	c.cache.Put(key, html)
	return html, nil
}
