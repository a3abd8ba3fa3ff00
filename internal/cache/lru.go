package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache evicts by size and by idle time. Each Get extends the entry's
// lifetime by the TTL.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	onEvict func(key string, data T)
	now     func() time.Time
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// Option configures an LRUCache.
type Option[T any] func(*LRUCache[T])

// WithOnEvict registers fn to run for every entry leaving the cache, whether by
// Delete, expiry or capacity. fn runs without the cache lock held.
func WithOnEvict[T any](fn func(key string, data T)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.unlink(elem)
		c.mu.Unlock()
		c.evicted(e)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.lru.MoveToFront(elem)
	c.mu.Unlock()
	return e.data, true
}

// Set stores data under key. Replacing an existing value does not fire the
// eviction hook for the old one.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	e := &entry[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.lru.MoveToFront(elem)
		c.mu.Unlock()
		return
	}
	c.items[key] = c.lru.PushFront(e)

	var dropped *entry[T]
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			dropped = c.unlink(oldest)
		}
	}
	c.mu.Unlock()
	if dropped != nil {
		c.evicted(dropped)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e := c.unlink(elem)
	c.mu.Unlock()
	c.evicted(e)
}

// CleanExpired removes all expired entries and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	now := c.now()
	var gone []*entry[T]
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			gone = append(gone, c.unlink(elem))
		}
		elem = prev
	}
	c.mu.Unlock()

	for _, e := range gone {
		c.evicted(e)
	}
	return len(gone)
}

// Purge empties the cache, firing the eviction hook for every entry.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	var gone []*entry[T]
	for elem := c.lru.Front(); elem != nil; elem = c.lru.Front() {
		gone = append(gone, c.unlink(elem))
	}
	c.mu.Unlock()

	for _, e := range gone {
		c.evicted(e)
	}
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) unlink(elem *list.Element) *entry[T] {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.lru.Remove(elem)
	return e
}

func (c *LRUCache[T]) evicted(e *entry[T]) {
	if c.onEvict != nil {
		c.onEvict(e.key, e.data)
	}
}
