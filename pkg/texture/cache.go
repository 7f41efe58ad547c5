package texture

import "sync"

// Cache is a concurrency-safe, path-keyed texture cache. Textures are
// decoded once and shared read-only between materials and shaders.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	load  func(string) (*Texture, error)
}

type cacheEntry struct {
	tex *Texture
	err error
}

// NewCache creates an empty cache that decodes with Load.
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		load:  Load,
	}
}

// Get returns the texture for path, decoding it on first use. Decode
// failures are cached too, so a broken file is only read once.
func (c *Cache) Get(path string) (*Texture, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, ok := c.items[path]; ok {
		c.mu.RUnlock()
		return entry.tex, entry.err
	}
	c.mu.RUnlock()

	tex, err := c.load(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.items[path]; ok {
		return entry.tex, entry.err
	}
	c.items[path] = &cacheEntry{tex: tex, err: err}
	return tex, err
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
