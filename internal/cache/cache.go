// Package cache holds the in-process caches used for reference data such as
// the category registry. Aggregations are never cached.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner is a cache that can drop its expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps its registered caches on a fixed interval.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewManager() *Manager {
	return &Manager{
		caches: make(map[string]Cleaner),
		quit:   make(chan struct{}),
	}
}

// Register adds c under name, replacing any cache already registered there.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	m.caches[name] = c
	m.mu.Unlock()
}

// CleanAll sweeps every registered cache once. The result maps cache name to
// the number of entries dropped.
func (m *Manager) CleanAll() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		out[name] = c.CleanExpired()
	}
	return out
}

// StartCleanup sweeps every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-m.quit:
				return
			case <-tick.C:
				for name, n := range m.CleanAll() {
					if n > 0 {
						slog.Debug("cache swept", "cache", name, "entries_removed", n)
					}
				}
			}
		}
	}()
}

// Stop ends the sweeper and waits for it. Safe to call more than once, and
// without StartCleanup.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.quit) })
	m.wg.Wait()
}
