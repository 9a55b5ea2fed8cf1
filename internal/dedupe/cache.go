// Package dedupe keeps a bounded record of recently indexed alerts so
// overlapping harvest windows don't rewrite the same documents every
// poll.
package dedupe

import (
	"sync"
	"time"
)

type seenEntry struct {
	key string
	ts  time.Time
}

// Cache is a fixed-capacity set of alert document ids with a TTL.
// Safe for concurrent use by the per-broker harvest goroutines.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []seenEntry
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]seenEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// IsSeen reports whether the alert id was recorded inside the ttl
// window. It does not mark the id; use MarkSeen for that.
func (c *Cache) IsSeen(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.items[key]; ok {
		return now.Sub(ts) <= c.ttl
	}
	return false
}

// MarkSeen records that an alert id has been indexed.
func (c *Cache) MarkSeen(key string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, seenEntry{key: key, ts: now})
	c.compact(now)
}

// compact drops expired entries and, when over capacity, the oldest
// ones. An id re-marked after its original entry keeps its newer
// timestamp.
func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok && ts == oldest.ts {
			delete(c.items, oldest.key)
		}
	}
}
