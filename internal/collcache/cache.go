// Package collcache implements the load-on-demand, invalidatable collection
// handle described in SPEC_FULL.md 4.6 (C6): a thin cache in front of
// schema.Open, replaced as a whole on invalidation. Grounded on
// original_source's state.rs (the RwLock<Option<PathBuf>> collection_root
// holder) generalized to cache the opened handle itself, not just the root.
package collcache

import (
	"sync"

	"github.com/callumalpass/mdbase-lsp/internal/schema"
)

// Cache holds the current Collection handle (or none) for a workspace root.
type Cache struct {
	mu         sync.RWMutex
	root       string
	collection *schema.Collection
}

// New returns a Cache bound to root. The collection itself is not opened
// until the first Get call.
func New(root string) *Cache {
	return &Cache{root: root}
}

// Root returns the workspace root this cache is bound to.
func (c *Cache) Root() string {
	return c.root
}

// Get returns the cached Collection, opening it from disk on first use.
func (c *Cache) Get() (*schema.Collection, error) {
	c.mu.RLock()
	if c.collection != nil {
		defer c.mu.RUnlock()
		return c.collection, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection != nil {
		return c.collection, nil
	}
	opened, err := schema.Open(c.root)
	if err != nil {
		return nil, err
	}
	c.collection = opened
	return c.collection, nil
}

// Invalidate clears the cached handle so the next Get reopens it from disk,
// e.g. after a file under <root>/<types_folder>/ is saved.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.collection = nil
	c.mu.Unlock()
}
