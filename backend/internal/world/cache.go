package world

import (
	"sync"
	"time"

	"dramabot/backend/internal/model"
)

// userCache is a short-TTL read cache over the persistence adapter. It sits
// between the in-memory map and the adapter so a burst of lookups for the
// same cold user costs one storage round-trip, not many.
type userCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	user    *model.User
	expires time.Time
}

func newUserCache(ttl time.Duration) *userCache {
	return &userCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached user, or nil past expiry. Expired entries are
// dropped on access; there is no background sweeper.
func (c *userCache) get(id string, now time.Time) *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	if now.After(e.expires) {
		delete(c.entries, id)
		return nil
	}
	return e.user
}

func (c *userCache) put(u *model.User, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[u.ID] = cacheEntry{user: u, expires: now.Add(c.ttl)}
}

func (c *userCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
