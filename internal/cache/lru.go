// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package cache

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// LRUEntry is one node of the recency list.
type LRUEntry struct {
	key       string
	value     time.Time
	prev      *LRUEntry
	next      *LRUEntry
	expiresAt time.Time
}

// LRUCache is a thread-safe LRU set of string keys with a fixed TTL.
// Each key carries the time it was recorded.
type LRUCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      Clock

	items map[string]*LRUEntry

	// head.next is the most recently used entry, tail.prev the least.
	head *LRUEntry
	tail *LRUEntry

	hits   int64
	misses int64
}

// Option configures an LRUCache.
type Option func(*LRUCache)

// WithClock replaces time.Now as the cache's time source.
func WithClock(clock Clock) Option {
	return func(c *LRUCache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewLRUCache creates a cache holding at most capacity keys, each for ttl.
func NewLRUCache(capacity int, ttl time.Duration, opts ...Option) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*LRUEntry),
		head:     &LRUEntry{},
		tail:     &LRUEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *LRUCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the time recorded for key and marks it recently used.
func (c *LRUCache) Get(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.live(key)
	if !ok {
		c.misses++
		return time.Time{}, false
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Contains reports whether key is present and unexpired. Recency is not
// updated.
func (c *LRUCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.live(key)
	return ok
}

// Add records key with value, restarting its TTL.
func (c *LRUCache) Add(key string, value time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key, value, c.now())
}

// Remove deletes key and reports whether it was present.
func (c *LRUCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// IsDuplicate reports whether key was recorded within the TTL. When it was
// not, key is recorded now and false is returned.
//
//	if !limiter.IsDuplicate(id) {
//	    log.Warn().Str("id", id).Msg("kept newer local copy")
//	}
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.live(key); ok {
		c.moveToFront(entry)
		c.hits++
		return true
	}
	now := c.now()
	c.insert(key, now, now)
	c.misses++
	return false
}

// Len returns the number of stored keys, expired ones included.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the unexpired keys, most recently used first.
func (c *LRUCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.items))
	for e := c.head.next; e != c.tail; e = e.next {
		if now.Before(e.expiresAt) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Clear removes every key.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*LRUEntry)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired drops expired keys and returns how many were removed.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if !now.Before(e.expiresAt) {
			c.removeEntry(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns hit and miss counters and the current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// The helpers below must be called with mu held.

// live returns the entry for key if it has not expired, dropping it if it has.
// An entry expires once the clock reaches expiresAt.
func (c *LRUCache) live(key string) (*LRUEntry, bool) {
	entry, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.removeEntry(entry)
		return nil, false
	}
	return entry, true
}

func (c *LRUCache) insert(key string, value, now time.Time) {
	expiresAt := now.Add(c.ttl)
	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &LRUEntry{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

func (c *LRUCache) addToFront(entry *LRUEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache) moveToFront(entry *LRUEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRUCache) removeEntry(entry *LRUEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
