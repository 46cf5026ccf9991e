package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader puts a read-through layer over an LRUCache. Concurrent misses for
// the same key share one load, and a load that started before an Invalidate
// never writes its result back.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group

	// mu orders store-backs against Invalidate.
	mu         sync.Mutex
	generation uint64
}

// NewLoader wraps c.
func NewLoader[T any](c *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load to produce it. The
// boolean reports whether the value came from the cache.
func (l *Loader[T]) Get(key string, load func() (T, error)) (T, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		l.storeIfCurrent(key, v, gen)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

func (l *Loader[T]) storeIfCurrent(key string, v T, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation == gen {
		l.cache.Set(key, v)
	}
}

// Invalidate drops key and detaches any in-flight load for it.
func (l *Loader[T]) Invalidate(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.group.Forget(key)
	l.cache.Delete(key)
}

// CleanExpired delegates to the underlying cache.
func (l *Loader[T]) CleanExpired() int {
	return l.cache.CleanExpired()
}

// Size returns the number of cached entries.
func (l *Loader[T]) Size() int {
	return l.cache.Size()
}
