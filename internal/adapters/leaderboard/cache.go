package leaderboard

import (
	"sync"
	"time"

	"positionsMonitor/internal/ports"
)

// snapshotCache is a small TTL cache of trader snapshots keyed by UID.
// It is an explicit, inspectable object rather than memoization baked into
// the fetch call: entries carry their storage time and expire after the TTL.
type snapshotCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snapshot *ports.TraderSnapshot
	storedAt time.Time
}

// newSnapshotCache creates a cache with the given TTL. A TTL of zero or less
// disables caching entirely.
func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached snapshot for the UID if it is still fresh.
func (c *snapshotCache) Get(uid string) (*ports.TraderSnapshot, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[uid]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, uid)
		return nil, false
	}
	return entry.snapshot, true
}

// Put stores a snapshot for the UID, stamping it with the current time.
func (c *snapshotCache) Put(uid string, snapshot *ports.TraderSnapshot) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[uid] = cacheEntry{snapshot: snapshot, storedAt: c.now()}
}

// Len returns the number of entries currently held, expired or not.
func (c *snapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
