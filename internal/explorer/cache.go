package explorer

import (
	"sync"

	"noesis/internal/tree"
)

// Cache memoizes prerequisite discoveries within one exploration session.
// Keys are normalized concept names so "Linear Algebra" and "linear algebra"
// share an entry. Safe for concurrent use by parallel sibling exploration.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]string)}
}

// Lookup returns the cached prerequisites for a concept, if present.
func (c *Cache) Lookup(concept string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prereqs, ok := c.entries[tree.NormalizeConcept(concept)]
	return prereqs, ok
}

// Store records the prerequisites discovered for a concept.
func (c *Cache) Store(concept string, prerequisites []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tree.NormalizeConcept(concept)] = prerequisites
}

// Len returns the number of cached concepts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot copies the cache contents, for persistence.
func (c *Cache) Snapshot() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.entries))
	for concept, prereqs := range c.entries {
		copied := make([]string, len(prereqs))
		copy(copied, prereqs)
		out[concept] = copied
	}
	return out
}

// Restore loads previously persisted entries, overwriting existing keys.
func (c *Cache) Restore(entries map[string][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for concept, prereqs := range entries {
		copied := make([]string, len(prereqs))
		copy(copied, prereqs)
		c.entries[tree.NormalizeConcept(concept)] = copied
	}
}
