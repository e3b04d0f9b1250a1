// Package urlcache holds discovered direct media URLs per channel for a
// bounded time, so consecutive viewers within the TTL skip the discovery
// stage.
package urlcache

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a discovered URL is trusted.
const DefaultTTL = 5 * time.Minute

type entry struct {
	url     string
	savedAt time.Time
}

// Cache is a TTL-bounded map from channel login to a direct media URL.
// Expiry is checked inline on Get; a background sweep is optional and only
// reclaims memory, it is never needed for correctness.
type Cache struct {
	mu  sync.RWMutex
	m   map[string]entry
	ttl time.Duration
	now func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{m: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Get returns the cached URL for login, or ok=false on a miss or when the
// entry is older than the TTL.
func (c *Cache) Get(login string) (string, bool) {
	c.mu.RLock()
	e, ok := c.m[login]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.savedAt) > c.ttl {
		return "", false
	}
	return e.url, true
}

// Put stores url for login, replacing any previous entry.
func (c *Cache) Put(login, url string) {
	c.mu.Lock()
	c.m[login] = entry{url: url, savedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes the entry for login, if any.
func (c *Cache) Invalidate(login string) {
	c.mu.Lock()
	delete(c.m, login)
	c.mu.Unlock()
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Sweep removes expired entries. Purely memory hygiene.
func (c *Cache) Sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.m {
		if now.Sub(e.savedAt) > c.ttl {
			delete(c.m, k)
		}
	}
	c.mu.Unlock()
}
