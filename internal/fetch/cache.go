package fetch

import (
	"sync"
	"time"
)

// CachePolicy controls whether a fetch may be served from the shared
// response cache.
type CachePolicy int

const (
	// CacheDefault serves unexpired cached responses
	CacheDefault CachePolicy = iota

	// CacheBypass always goes to the network and refreshes the entry
	CacheBypass
)

type cacheEntry struct {
	body     []byte
	storedAt time.Time
}

// Cache is a time- and size-bounded response cache keyed by URL. It
// exists to avoid redundant re-fetching of unchanged resources within
// a session, not to be a durable HTTP cache.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
}

// NewCache creates a response cache. A zero ttl or maxEntries disables
// caching entirely.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the cached body for url if present and unexpired
func (c *Cache) Get(url string) ([]byte, bool) {
	if c == nil || c.ttl <= 0 || c.maxEntries <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		delete(c.entries, url)
		return nil, false
	}
	return entry.body, true
}

// Set stores a response body, evicting the oldest entry when full
func (c *Cache) Set(url string, body []byte) {
	if c == nil || c.ttl <= 0 || c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[url]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[url] = cacheEntry{body: body, storedAt: time.Now()}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
