package render

import "sync"

type cacheEntry struct {
	html        string
	generatedAt int64
}

// Cache stores rendered HTML keyed by route name plus parameter values.
// A hit requires the entry's stamp to be at least the current epoch;
// stale entries stay in the map until overwritten by a fresh render.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	epoch   *Epoch
}

// NewCache creates an empty cache bound to the given epoch counter.
func NewCache(epoch *Epoch) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		epoch:   epoch,
	}
}

// Get returns the cached HTML for key when it is still fresh.
func (c *Cache) Get(key string) (string, bool) {
	current := c.epoch.Current()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.generatedAt < current {
		return "", false
	}
	return entry.html, true
}

// Put stores HTML for key stamped with the current epoch. Callers must
// only Put successful renders; failures are never cached.
func (c *Cache) Put(key, html string) {
	stamp := c.epoch.Current()

	c.mu.Lock()
	c.entries[key] = cacheEntry{html: html, generatedAt: stamp}
	c.mu.Unlock()
}

// Len reports the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
