package report

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// cacheEntry with expiration
type cacheEntry[V any] struct {
	value     V
	timestamp time.Time
}

// Cache is a TTL cache for upstream responses, bounded to maxSize entries
type Cache[V any] struct {
	mu              sync.RWMutex
	entries         map[string]cacheEntry[V]
	ttl             time.Duration
	maxSize         int
	cleanupInterval time.Duration
	now             func() time.Time
	done            chan struct{}
	closeOnce       sync.Once
}

// NewCache creates a Cache and starts its cleanup loop
func NewCache[V any](ttl time.Duration, maxSize int) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	c := &Cache[V]{
		entries:         make(map[string]cacheEntry[V]),
		ttl:             ttl,
		maxSize:         maxSize,
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
		done:            make(chan struct{}),
	}

	go c.periodicCleanup()

	return c
}

// cacheKey hashes the parts of an upstream request into a fixed size key
func cacheKey(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key if it has not expired
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found || c.now().Sub(entry.timestamp) >= c.ttl {
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key, evicting the oldest entries when full
func (c *Cache[V]) Set(key string, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[V]{value: value, timestamp: c.now()}
	if len(c.entries) > c.maxSize {
		c.evictOldest()
	}
}

func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop
func (c *Cache[V]) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() { close(c.done) })
}

// periodicCleanup removes expired entries periodically
func (c *Cache[V]) periodicCleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

// cleanup removes expired entries and enforces the size limit
func (c *Cache[V]) cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if now.Sub(entry.timestamp) >= c.ttl {
			delete(c.entries, key)
		}
	}

	if len(c.entries) > c.maxSize {
		c.evictOldest()
	}
}

// evictOldest drops the oldest entries until the cache fits. Callers hold mu.
func (c *Cache[V]) evictOldest() {
	type aged struct {
		key       string
		timestamp time.Time
	}
	entries := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		entries = append(entries, aged{key, entry.timestamp})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})

	for i := 0; i < len(entries)-c.maxSize; i++ {
		delete(c.entries, entries[i].key)
	}
}
