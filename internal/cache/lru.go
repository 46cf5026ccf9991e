package cache

import (
	"container/list"
	"sync"
	"time"
)

var _ Cache[int] = (*LRUCache[int])(nil)

// LRUCache keeps at most maxSize entries, each for ttl. Writing to a full
// cache drops the least recently read entry.
type LRUCache[T any] struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]*list.Element
	recency   *list.List // front is most recently used
	evictions int
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*list.Element, maxSize),
		recency: list.New(),
	}
}

// Get returns the live value for key and marks it recently used.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if !c.now().Before(e.expires) {
		c.unlink(elem)
		return zero, false
	}
	c.recency.MoveToFront(elem)
	return e.value, true
}

// Set stores value under key with a fresh ttl.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry[T])
		e.value, e.expires = value, expires
		c.recency.MoveToFront(elem)
		return
	}

	c.entries[key] = c.recency.PushFront(&entry[T]{key: key, value: value, expires: expires})
	for c.recency.Len() > c.maxSize {
		c.unlink(c.recency.Back())
		c.evictions++
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.unlink(elem)
	}
}

// CleanExpired drops every expired entry and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.recency.Front(); elem != nil; {
		next := elem.Next()
		if !now.Before(elem.Value.(*entry[T]).expires) {
			c.unlink(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evictions counts entries dropped for capacity, not expiry.
func (c *LRUCache[T]) Evictions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

func (c *LRUCache[T]) unlink(elem *list.Element) {
	delete(c.entries, elem.Value.(*entry[T]).key)
	c.recency.Remove(elem)
}
