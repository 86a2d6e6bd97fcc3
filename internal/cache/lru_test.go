// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRUCache_BasicOperations(t *testing.T) {
	c := NewLRUCache(3, time.Minute)

	c.Add("a", time.Now())
	c.Add("b", time.Now())
	c.Add("c", time.Now())

	for _, k := range []string{"a", "b", "c"} {
		if _, found := c.Get(k); !found {
			t.Errorf("expected to find %q", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if !c.Remove("b") {
		t.Error("Remove(b) = false")
	}
	if c.Contains("b") {
		t.Error("b still present after Remove")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache(3, time.Minute)

	c.Add("a", time.Now())
	c.Add("b", time.Now())
	c.Add("c", time.Now())
	c.Get("a")
	c.Add("d", time.Now())

	if c.Contains("b") {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !c.Contains(k) {
			t.Errorf("expected %q to be present", k)
		}
	}
}

func TestLRUCache_TTLWithClock(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache(10, 30*time.Second, WithClock(clock.Now))

	c.Add("p1", clock.Now())
	clock.Advance(29 * time.Second)
	if !c.Contains("p1") {
		t.Fatal("expected p1 within TTL")
	}

	clock.Advance(time.Second)
	if c.Contains("p1") {
		t.Fatal("expected p1 to expire at exactly the TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, Len = %d", c.Len())
	}
}

func TestLRUCache_AddRestartsTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache(10, 30*time.Second, WithClock(clock.Now))

	c.Add("p1", clock.Now())
	clock.Advance(20 * time.Second)
	c.Add("p1", clock.Now())
	clock.Advance(20 * time.Second)

	if !c.Contains("p1") {
		t.Error("re-adding should restart the TTL")
	}
}

func TestLRUCache_IsDuplicate(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache(10, 10*time.Second, WithClock(clock.Now))

	if c.IsDuplicate("p1") {
		t.Fatal("first sighting reported as duplicate")
	}
	clock.Advance(5 * time.Second)
	if !c.IsDuplicate("p1") {
		t.Fatal("second sighting within window not a duplicate")
	}
	clock.Advance(5 * time.Second)
	if c.IsDuplicate("p1") {
		t.Fatal("sighting after window reported as duplicate")
	}

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 2 || size != 1 {
		t.Errorf("Stats = (%d, %d, %d), want (1, 2, 1)", hits, misses, size)
	}
}

func TestLRUCache_KeysAndCleanup(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache(10, 30*time.Second, WithClock(clock.Now))

	c.Add("old", clock.Now())
	clock.Advance(20 * time.Second)
	c.Add("new", clock.Now())
	clock.Advance(15 * time.Second)

	keys := c.Keys()
	if len(keys) != 1 || keys[0] != "new" {
		t.Errorf("Keys = %v, want [new]", keys)
	}
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired = %d, want 1", removed)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestLRUCache_Defaults(t *testing.T) {
	c := NewLRUCache(0, 0, WithClock(nil))
	if c.capacity != 10000 {
		t.Errorf("capacity = %d", c.capacity)
	}
	if c.TTL() != 5*time.Minute {
		t.Errorf("TTL = %v", c.TTL())
	}
	if c.now == nil {
		t.Error("nil clock option should keep time.Now")
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (n*200+j)%150)
				c.IsDuplicate(key)
				c.Contains(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
