package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, 1, c.Evictions())
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire exactly at ttl")

	c.Set("x", "y")
	c.Set("z", "w")
	now = now.Add(time.Minute)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
	assert.Equal(t, 0, c.Evictions())
}

func TestLRUCache_SetRefreshesExisting(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Evictions())
}

func TestLoader_CachesAndInvalidates(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	calls := 0
	load := func() (int, error) {
		calls++
		return calls, nil
	}

	v, hit, err := l.Get("2024-6", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, v)

	v, hit, err = l.Get("2024-6", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, v)

	l.Invalidate("2024-6")
	v, _, _ = l.Get("2024-6", load)
	assert.Equal(t, 2, v)
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	boom := errors.New("boom")

	_, _, err := l.Get("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, l.Size())
}

func TestLoader_SharesConcurrentLoads(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := l.Get("k", load)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_StaleLoadIsNotStored(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = l.Get("k", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started
	l.Invalidate("k")
	close(release)
	<-done

	assert.Equal(t, 0, l.Size())
}

func TestLoader_StoreAfterInvalidateIsDropped(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))

	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()

	l.Invalidate("k")
	l.storeIfCurrent("k", 1, gen)
	assert.Equal(t, 0, l.Size(), "value loaded before the write must not be stored")

	l.mu.Lock()
	gen = l.generation
	l.mu.Unlock()
	l.storeIfCurrent("k", 2, gen)
	v, hit, err := l.Get("k", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, v)
}

func TestLoader_InvalidateRacesWithLoads(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	var version atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_, _, _ = l.Get("k", func() (int, error) { return int(version.Load()), nil })
			}
		}()
	}
	for j := 0; j < 500; j++ {
		version.Add(1)
		l.Invalidate("k")
	}
	wg.Wait()

	// After the last write settles, a cached value must be the latest one.
	v, _, err := l.Get("k", func() (int, error) { return int(version.Load()), nil })
	require.NoError(t, err)
	assert.Equal(t, int(version.Load()), v)
}

func TestManager_CleanAllAndStop(t *testing.T) {
	m := NewManager()
	c := NewLRUCache[int](10, time.Millisecond)
	m.Register(c)
	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, m.CleanAll())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
}
