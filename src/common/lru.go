package common

import "container/list"

// LRU is a fixed-size cache with least-recently-used eviction. It is not
// thread-safe; the consensus pipeline only ever touches it from a single
// scheduler thread.
type LRU struct {
	size    int
	evicted func(key, value interface{})
	items   map[interface{}]*list.Element
	order   *list.List
}

type lruEntry struct {
	key   interface{}
	value interface{}
}

// NewLRU creates an LRU cache holding at most size items. evicted, if not nil,
// is called for every entry pushed out of the cache.
func NewLRU(size int, evicted func(key, value interface{})) *LRU {
	return &LRU{
		size:    size,
		evicted: evicted,
		items:   make(map[interface{}]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value and marks it as recently used.
func (c *LRU) Get(key interface{}) (interface{}, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

// Add inserts a value, evicting the oldest entry if the cache is full. It
// returns true if an eviction occurred.
func (c *LRU) Add(key, value interface{}) bool {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry).value = value
		return false
	}

	el := c.order.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el

	if c.size > 0 && c.order.Len() > c.size {
		c.removeOldest()
		return true
	}
	return false
}

// Remove drops an entry without triggering the eviction callback.
func (c *LRU) Remove(key interface{}) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Len returns the number of cached items.
func (c *LRU) Len() int {
	return c.order.Len()
}

func (c *LRU) removeOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	entry := el.Value.(*lruEntry)
	c.order.Remove(el)
	delete(c.items, entry.key)
	if c.evicted != nil {
		c.evicted(entry.key, entry.value)
	}
}
