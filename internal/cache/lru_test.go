package cache

import (
	"slices"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *clock, *[]string) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewLRUCache(size, ttl,
		WithClock[int](clk.Now),
		WithOnEvict(func(key string, _ int) { evicted = append(evicted, key) }),
	)
	return c, clk, &evicted
}

func TestLRUCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c, _, evicted := newTestCache(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if !slices.Equal(*evicted, []string{"b"}) {
		t.Fatalf("evicted = %v", *evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUGetSlidesExpiry(t *testing.T) {
	c, clk, _ := newTestCache(10, time.Minute)
	c.Set("a", 1)
	clk.Advance(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should still be live")
	}
	clk.Advance(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("get should have extended a")
	}
	clk.Advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
}

func TestLRUCleanExpiredFiresHook(t *testing.T) {
	c, clk, evicted := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.Advance(30 * time.Second)
	c.Set("c", 3)
	clk.Advance(45 * time.Second)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	slices.Sort(*evicted)
	if !slices.Equal(*evicted, []string{"a", "b"}) {
		t.Fatalf("evicted = %v", *evicted)
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c, _, evicted := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	if len(*evicted) != 0 {
		t.Fatalf("replacing a value must not evict: %v", *evicted)
	}
	c.Delete("a")
	c.Delete("missing")
	c.Purge()
	if !slices.Equal(*evicted, []string{"a", "b"}) || c.Size() != 0 {
		t.Fatalf("evicted = %v size = %d", *evicted, c.Size())
	}
}

func TestJanitorSweep(t *testing.T) {
	c, clk, _ := newTestCache(10, time.Minute)
	c.Set("a", 1)
	clk.Advance(2 * time.Minute)

	j := NewJanitor()
	j.Register(c)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("swept %d", n)
	}
	j.Stop(false)
	j.Stop(false)
}
