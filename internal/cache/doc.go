// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

/*
Package cache provides a bounded, TTL-aware LRU set.

The sync engine uses it twice:
  - as the tombstone set, remembering record ids deleted locally for a short
    window so that remote snapshots arriving in that window cannot revive them
  - as the conflict log rate limiter, so that one record id produces at most
    one "local copy is newer" warning per window

Both uses depend on time, so the cache reads the current time through a
Clock that tests replace:

	now := time.Unix(0, 0)
	c := cache.NewLRUCache(100, 30*time.Second, cache.WithClock(func() time.Time { return now }))
	c.Add("p1", now)
	now = now.Add(31 * time.Second)
	c.Contains("p1") // false

Expiration is lazy. Expired entries are dropped when touched, by
CleanupExpired, or by LRU eviction once the capacity is reached.
*/
package cache
