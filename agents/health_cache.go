package agents

import (
	"sync"
	"time"
)

// DefaultHealthCacheTTL is how long a cached availability result is trusted.
const DefaultHealthCacheTTL = 30 * time.Second

// HealthCache caches the result of an agent availability probe so frequent
// IsAvailable calls do not turn into API traffic.
type HealthCache struct {
	mu        sync.RWMutex
	available bool
	checkedAt time.Time
	ttl       time.Duration
}

// NewHealthCache creates a cache with the given TTL. A TTL of 0 disables
// caching entirely.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{ttl: ttl}
}

// Get returns the cached availability and whether the entry is still fresh.
func (c *HealthCache) Get() (available bool, valid bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	valid = !c.checkedAt.IsZero() && time.Since(c.checkedAt) < c.ttl
	return c.available, valid
}

// Set records the result of a live availability probe.
func (c *HealthCache) Set(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = available
	c.checkedAt = time.Now()
}

// Invalidate drops the cached entry, forcing the next check to probe live.
func (c *HealthCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkedAt = time.Time{}
}

// TTL returns the cache's time-to-live.
func (c *HealthCache) TTL() time.Duration {
	return c.ttl
}
