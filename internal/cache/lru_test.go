package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3) // evicts b, a was touched
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
}

func TestLRUCacheGetOrLoad(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	calls := 0
	load := func() (int, error) { calls++; return 42, nil }

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("answer", load)
		if err != nil || v != 42 {
			t.Fatalf("GetOrLoad = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("broken", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if _, ok := c.Get("broken"); ok {
		t.Fatal("failed load must not be cached")
	}

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Fatalf("Hits = %d, want 2", stats.Hits)
	}
}

func TestManagerCleanAll(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](4, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Minute)

	m := NewManager()
	m.Register("numbers", c)
	if got := m.CleanAll()["numbers"]; got != 1 {
		t.Fatalf("CleanAll removed %d, want 1", got)
	}
	m.Stop() // never started: must not block
}

func TestLRUCacheConcurrentColdLoad(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad("categories", func() (string, error) {
				calls.Add(1)
				<-release
				return "loaded", nil
			})
			if err != nil {
				t.Errorf("GetOrLoad error = %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > int32(len(results)) {
		t.Fatalf("loader called %d times", n)
	}
	for i, v := range results {
		if v != "loaded" {
			t.Fatalf("results[%d] = %q", i, v)
		}
	}
	if v, ok := c.Get("categories"); !ok || v != "loaded" {
		t.Fatalf("value not cached: %q %v", v, ok)
	}
}

func TestLRUCacheOverwriteRefreshes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(50 * time.Second)
	c.Set("a", 10) // a is newest again and its TTL restarts
	c.Set("c", 3)  // evicts b

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	now = now.Add(30 * time.Second)
	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Fatalf("a = %d, %v; want 10, true", v, ok)
	}
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}
