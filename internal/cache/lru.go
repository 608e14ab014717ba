package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// node is an entry in the recency ring. The ring's sentinel sits between the
// most recent (sentinel.next) and the least recent (sentinel.prev) entries.
type node[T any] struct {
	key        string
	value      T
	expiresAt  time.Time
	prev, next *node[T]
}

func (n *node[T]) unlink() {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// Stats counts lookups since creation.
type Stats struct {
	Hits   int64
	Misses int64
}

// LRUCache holds at most capacity entries, each living for ttl after its last write.
type LRUCache[T any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	loads    singleflight.Group

	mu       sync.Mutex
	index    map[string]*node[T]
	sentinel node[T]
	stats    Stats
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	c := &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		now:      time.Now,
		index:    make(map[string]*node[T], capacity),
	}
	c.sentinel.prev, c.sentinel.next = &c.sentinel, &c.sentinel
	return c
}

func (c *LRUCache[T]) pushFront(n *node[T]) {
	n.prev, n.next = &c.sentinel, c.sentinel.next
	c.sentinel.next.prev = n
	c.sentinel.next = n
}

func (c *LRUCache[T]) drop(n *node[T]) {
	n.unlink()
	delete(c.index, n.key)
}

// lookup returns the live node for key, dropping it when it has expired. Caller holds mu.
func (c *LRUCache[T]) lookup(key string) *node[T] {
	n := c.index[key]
	if n == nil {
		c.stats.Misses++
		return nil
	}
	if c.now().After(n.expiresAt) {
		c.drop(n)
		c.stats.Misses++
		return nil
	}
	c.stats.Hits++
	n.unlink()
	c.pushFront(n)
	return n
}

// Get returns the value for key and marks it most recently used.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.lookup(key); n != nil {
		return n.value, true
	}
	var zero T
	return zero, false
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if n := c.index[key]; n != nil {
		n.value, n.expiresAt = value, expires
		n.unlink()
		c.pushFront(n)
		return
	}
	n := &node[T]{key: key, value: value, expiresAt: expires}
	c.index[key] = n
	c.pushFront(n)
	if len(c.index) > c.capacity {
		c.drop(c.sentinel.prev)
	}
}

// GetOrLoad returns the cached value for key or caches what load returns.
// Concurrent callers for the same cold key share one load. A failed load
// caches nothing.
func (c *LRUCache[T]) GetOrLoad(key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.loads.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.index[key]; n != nil {
		c.drop(n)
	}
}

// CleanExpired drops every expired entry and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now, removed := c.now(), 0
	for n := c.sentinel.next; n != &c.sentinel; {
		next := n.next
		if now.After(n.expiresAt) {
			c.drop(n)
			removed++
		}
		n = next
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns a snapshot of the hit and miss counters.
func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
