package exchangerate

import (
	"sync"
	"time"
)

// Cache holds the process-wide USD to INR rate. It is the only shared
// mutable state in the gateway: one writer (the refresher), many readers
// (the accounting engine). The lock guards a single assignment and is
// never held across network I/O.
type Cache struct {
	mu          sync.RWMutex
	rate        float64
	lastFetched time.Time
}

// NewCache creates a cache pre-seeded with the fallback rate so reads
// succeed before the first refresh completes.
func NewCache(fallbackRate float64) *Cache {
	return &Cache{rate: fallbackRate}
}

// Read returns the current rate. It never blocks on I/O and always
// succeeds, serving the fallback or last-known value when refreshes fail.
func (c *Cache) Read() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate
}

// LastFetched returns when the rate was last refreshed successfully.
// ok is false until the first successful refresh.
func (c *Cache) LastFetched() (t time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetched, !c.lastFetched.IsZero()
}

func (c *Cache) store(rate float64, fetchedAt time.Time) {
	c.mu.Lock()
	c.rate = rate
	c.lastFetched = fetchedAt
	c.mu.Unlock()
}
