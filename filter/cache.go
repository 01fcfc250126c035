package filter

import (
	"container/list"
	"sync"
)

// programCache is a thread-safe LRU of compiled filters keyed by expression
type programCache struct {
	size    int
	order   *list.List
	entries map[string]*list.Element
	mu      sync.Mutex
}

type cacheEntry struct {
	expression string
	filter     CompiledFilter
}

func newProgramCache(size int) *programCache {
	return &programCache{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the cached filter and marks it most recently used
func (c *programCache) Get(expression string) (CompiledFilter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[expression]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(node)
	return node.Value.(*cacheEntry).filter, true
}

// Put stores a filter, evicting the least recently used one when full
func (c *programCache) Put(expression string, filter CompiledFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.entries[expression]; ok {
		c.order.MoveToFront(node)
		node.Value.(*cacheEntry).filter = filter
		return
	}

	c.entries[expression] = c.order.PushFront(&cacheEntry{expression: expression, filter: filter})

	if c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).expression)
	}
}

// Len returns the number of cached filters
func (c *programCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
