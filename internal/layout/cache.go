package layout

import (
	"sync"

	"pipelayout/internal/restree"
)

type cache struct {
	mu     sync.Mutex
	byTree map[*restree.Tree]*Region
}

func newCache() *cache {
	return &cache{byTree: make(map[*restree.Tree]*Region, 4)}
}

func (c *cache) get(t *restree.Tree) (*Region, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.byTree[t]
	return r, ok
}

func (c *cache) put(t *restree.Tree, r *Region) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if r == nil {
		delete(c.byTree, t)
		return
	}
	c.byTree[t] = r
}
