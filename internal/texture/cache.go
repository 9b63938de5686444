package texture

import (
	"image"
	"sync"
)

// Resolver resolves an image name to a decoded NRGBA image.
type Resolver interface {
	Resolve(texName string) *image.NRGBA
}

// Cache is a concurrency-safe texture cache.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*image.NRGBA
	index   *Index
	maxSize int
}

// NewCache creates a cache backed by index. Images larger than maxSize on
// either side are downscaled once when loaded; maxSize <= 0 keeps them as is.
func NewCache(index *Index, maxSize int) *Cache {
	return &Cache{
		items:   make(map[string]*image.NRGBA),
		index:   index,
		maxSize: maxSize,
	}
}

// Resolve loads and caches a texture by name. Returns nil if it is missing or
// cannot be decoded; failures are cached too.
func (c *Cache) Resolve(texName string) *image.NRGBA {
	path, ok := c.index.ResolvePath(texName)
	if !ok {
		return nil
	}

	c.mu.RLock()
	if img, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return img
	}
	c.mu.RUnlock()

	img, err := LoadTexture(path)
	if err == nil {
		img = Fit(img, c.maxSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, exists := c.items[path]; exists {
		return prev
	}
	c.items[path] = img
	return img
}
