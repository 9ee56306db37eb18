// Package cache provides a generic, thread-safe LRU cache used by the
// engine to memoize review reports for repeated bundles.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Cache is a generic LRU cache. The zero value is not usable; use New.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	elements map[K]*list.Element
	order    *list.List
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
	evicts atomic.Uint64
	sets   atomic.Uint64
}

// pair is what each list element carries.
type pair[K comparable, V any] struct {
	key   K
	value V
}

// New creates a Cache holding at most capacity entries. A capacity
// of zero or less falls back to 100.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache[K, V]{
		elements: make(map[K]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

// Get returns the cached value for key, marking it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	c.order.MoveToFront(el)
	return el.Value.(*pair[K, V]).value, true
}

// Set stores a value, evicting the least recently used entry when the
// cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// put inserts or updates without locking. Callers hold mu.
func (c *Cache[K, V]) put(key K, value V) {
	c.sets.Add(1)

	if el, ok := c.elements[key]; ok {
		el.Value.(*pair[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}

	if len(c.elements) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.elements, oldest.Value.(*pair[K, V]).key)
			c.order.Remove(oldest)
			c.evicts.Add(1)
		}
	}

	c.elements[key] = c.order.PushFront(&pair[K, V]{key: key, value: value})
}

// GetOrSet returns the cached value for key, computing and storing it
// via fn on a miss. The computation runs under the cache lock, so at
// most one caller computes a given key.
func (c *Cache[K, V]) GetOrSet(key K, fn func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[key]; ok {
		c.hits.Add(1)
		c.order.MoveToFront(el)
		return el.Value.(*pair[K, V]).value
	}
	c.misses.Add(1)

	value := fn()
	c.put(key, value)
	return value
}

// Delete removes key from the cache if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[key]; ok {
		delete(c.elements, key)
		c.order.Remove(el)
	}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.elements)
}

// Clear removes every entry. Counters are preserved.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Keys returns the cached keys, most recently used first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.elements))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*pair[K, V]).key)
	}
	return keys
}

// Stats holds cache counters.
type Stats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	Evicts   uint64
	Sets     uint64
	HitRate  float64
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.elements)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Evicts:   c.evicts.Load(),
		Sets:     c.sets.Load(),
		HitRate:  rate,
	}
}
