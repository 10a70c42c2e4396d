// Package translate fills a per-locale cache of translated items in the
// background, batch by batch, as the display set changes.
package translate

import (
	"sync"

	"github.com/abelbrown/nexus/internal/model"
)

// Cache maps item IDs to their translated form for one locale.
// Entries are added or overwritten, never evicted.
type Cache struct {
	mu    sync.RWMutex
	items map[string]model.Item
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]model.Item)}
}

// Get returns the translated item for id.
func (c *Cache) Get(id string) (model.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Has reports whether id has been translated.
func (c *Cache) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Merge stores translated items, overwriting existing entries.
func (c *Cache) Merge(items []model.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.items[item.ID] = item
	}
}

// Missing returns the items with no cache entry, in input order.
func (c *Cache) Missing(items []model.Item) []model.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Item
	for _, item := range items {
		if _, ok := c.items[item.ID]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// Resolve substitutes cached translations, leaving uncached items as-is.
func (c *Cache) Resolve(items []model.Item) []model.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Item, len(items))
	for i, item := range items {
		if t, ok := c.items[item.ID]; ok {
			out[i] = t
		} else {
			out[i] = item
		}
	}
	return out
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
