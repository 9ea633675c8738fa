package extract

import (
	"sync"

	"github.com/fabfab/policy-qa/doc"
)

// Cache memoizes extracted sections per document, keyed by content
// hash. Re-uploading a document with new bytes changes its hash, so
// stale entries are never served; evicting replaced hashes is left to
// Delete callers.
type Cache struct {
	mu       sync.RWMutex
	sections map[string][]doc.Section
}

func NewCache() *Cache {
	return &Cache{sections: make(map[string][]doc.Section)}
}

func (c *Cache) Get(sha string) ([]doc.Section, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sections[sha]
	return s, ok
}

func (c *Cache) Put(sha string, sections []doc.Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections[sha] = sections
}

func (c *Cache) Delete(sha string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sections, sha)
}
