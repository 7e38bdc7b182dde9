// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestCacheBasicOperations(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Fatal("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, exists := c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 key", stats)
	}
	if rate := c.HitRate(); rate != 50 {
		t.Errorf("HitRate = %.1f, want 50", rate)
	}
}

func TestCacheExpiration(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Hour, WithClock(clock.Now))
	defer c.Close()

	c.Set("popular", []int{1, 2})
	c.SetWithTTL("short", "x", time.Minute)

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Error("short-lived entry should have expired")
	}
	if _, ok := c.Get("popular"); !ok {
		t.Error("hour-long entry should still be cached")
	}

	clock.Advance(time.Hour)
	c.cleanup()
	if stats := c.GetStats(); stats.TotalKeys != 0 {
		t.Errorf("TotalKeys after cleanup = %d, want 0", stats.TotalKeys)
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Expected a to be deleted")
	}

	c.Clear()
	for _, key := range []string{"b", "c"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("Expected %s to be cleared", key)
		}
	}
	if stats := c.GetStats(); stats.Evictions != 3 {
		t.Errorf("Evictions = %d, want 3", stats.Evictions)
	}
}

func TestGetOrLoadCallsLoaderOnce(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", time.Minute, load)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	for i, v := range results {
		if v != "loaded" {
			t.Errorf("result[%d] = %v", i, v)
		}
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	boom := errors.New("tmdb down")
	if _, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	v, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (interface{}, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Errorf("second GetOrLoad = %v, %v; want 42", v, err)
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("tmdb:search", map[string]string{"query": "dune", "page": "1"})
	b := GenerateKey("tmdb:search", map[string]string{"page": "1", "query": "dune"})
	c := GenerateKey("tmdb:search", map[string]string{"query": "dune", "page": "2"})

	if a != b {
		t.Errorf("keys differ for equal params: %s vs %s", a, b)
	}
	if a == c {
		t.Error("keys collide for different params")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	c.Close()
	c.Close()
}
