package freshness

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultTTL is the age after which a cached payload counts as absent.
const DefaultTTL = 5 * time.Minute

// CacheEntry is a payload captured for one location.
type CacheEntry struct {
	LocationID string
	Payload    weather.WeatherSnapshot
	FetchedAt  time.Time
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Cache holds the latest payload per location id.
//
// Get treats entries older than the TTL as absent and evicts them. IsStale
// answers the same question without evicting, so a caller can keep showing
// a value it already holds while a replacement is fetched.
type Cache struct {
	mu    sync.Mutex
	clock clockwork.Clock
	ttl   time.Duration
	m     map[string]CacheEntry
}

// NewCache creates an empty cache. A non-positive ttl selects DefaultTTL.
func NewCache(clock clockwork.Clock, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		clock: clock,
		ttl:   ttl,
		m:     make(map[string]CacheEntry),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for id if it is at most TTL old.
func (c *Cache) Get(id string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.m[id]
	if !ok {
		return CacheEntry{}, false
	}
	if entry.Age(c.clock.Now()) > c.ttl {
		delete(c.m, id)
		return CacheEntry{}, false
	}
	return entry, true
}

// Peek returns whatever is stored for id, however old, without evicting.
func (c *Cache) Peek(id string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.m[id]
	return entry, ok
}

// Put stores payload for id, stamped with the current time.
func (c *Cache) Put(id string, payload weather.WeatherSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = CacheEntry{
		LocationID: id,
		Payload:    payload,
		FetchedAt:  c.clock.Now(),
	}
}

// IsStale reports whether id has no entry or its entry is older than the TTL.
func (c *Cache) IsStale(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.m[id]
	return !ok || entry.Age(c.clock.Now()) > c.ttl
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]CacheEntry)
}
