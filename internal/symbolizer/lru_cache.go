package symbolizer

import (
	"container/list"
	"sync"
)

// lruCache is a simple LRU (Least Recently Used) cache with a fixed capacity.
type lruCache struct {
	capacity int
	mu       sync.Mutex
	items    map[uint64]*list.Element
	lruList  *list.List
}

// lruEntry represents a key-value pair in the cache.
type lruEntry struct {
	addr uint64
	sym  Symbol
}

// newLRUCache creates a new LRU cache with the specified capacity.
func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		items:    make(map[uint64]*list.Element),
		lruList:  list.New(),
	}
}

// Get retrieves a symbol and marks it as recently used.
func (c *lruCache) Get(addr uint64) (Symbol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[addr]; ok {
		c.lruList.MoveToFront(elem)
		return elem.Value.(*lruEntry).sym, true
	}
	return Symbol{}, false
}

// Put adds or updates a symbol.
func (c *lruCache) Put(addr uint64, sym Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[addr]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value.(*lruEntry).sym = sym
		return
	}

	elem := c.lruList.PushFront(&lruEntry{addr: addr, sym: sym})
	c.items[addr] = elem

	if c.lruList.Len() > c.capacity {
		c.evictOldest()
	}
}

// evictOldest removes the least recently used entry.
func (c *lruCache) evictOldest() {
	elem := c.lruList.Back()
	if elem != nil {
		c.lruList.Remove(elem)
		delete(c.items, elem.Value.(*lruEntry).addr)
	}
}

// Len returns the current number of cached symbols.
func (c *lruCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}
